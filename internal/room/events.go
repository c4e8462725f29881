package room

import (
	"github.com/jinhan04/bbungkabi-vercel/internal/card"
	"github.com/jinhan04/bbungkabi-vercel/internal/score"
)

// 下行事件名
const (
	EventUpdatePlayers  = "update-players"
	EventDeckUpdate     = "deck-update"
	EventGameStarted    = "game-started"
	EventDealCards      = "deal-cards"
	EventTurnInfo       = "turn-info"
	EventCardSubmitted  = "card-submitted"
	EventDrawnCard      = "drawn-card"
	EventPlayerDrawn    = "player-drawn"
	EventBbungEffect    = "bbung-effect"
	EventRoundEnded     = "round-ended"
	EventNextRound      = "next-round"
	EventUpdateReady    = "update-ready"
	EventChatMessage    = "chat-message"
	EventBagajiDeclared = "bagaji-declared"
	EventGameComplete   = "game-complete"
	EventTurnTimeout    = "turn-timeout"
	EventRoomEvicted    = "room-evicted"
	EventRoomClosed     = "room-closed"
)

// Target 事件投递范围
type Target int

const (
	// Broadcast 房间内所有人
	Broadcast Target = iota
	// Only 仅 Nickname 本人
	Only
	// Except 除 Nickname 外的所有人
	Except
)

// Event 房间产生的下行事件
//
// Seq 在房间内单调递增，客户端可据此判断顺序。
type Event struct {
	Seq      uint64
	Room     string
	Name     string
	Target   Target
	Nickname string
	Data     any
}

// Sink 事件接收方
//
// Emit 在房间锁内被调用，实现必须是非阻塞的且不能回调房间。
type Sink interface {
	Emit(ev Event)
}

// SinkFunc 函数适配器
type SinkFunc func(ev Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

type fanout []Sink

func (f fanout) Emit(ev Event) {
	for _, s := range f {
		s.Emit(ev)
	}
}

// Fanout 把事件依次交给多个 Sink，忽略 nil
func Fanout(sinks ...Sink) Sink {
	out := make(fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Roster update-players 的载荷，按座位顺序
type Roster []string

// ReadyList update-ready 的载荷
type ReadyList []string

type DeckUpdate struct {
	Remaining int `json:"remaining"`
}

type GameStarted struct {
	RoomCode string `json:"roomCode"`
	Round    int    `json:"round"`
}

type DealCards struct {
	Hand []card.Card `json:"hand"`
}

type TurnInfo struct {
	CurrentPlayer string `json:"currentPlayer"`
	Round         int    `json:"round"`
	TurnSeq       uint64 `json:"turnSeq"`
}

type CardSubmitted struct {
	Nickname string    `json:"nickname"`
	Card     card.Card `json:"card"`
}

type DrawnCard struct {
	Card card.Card `json:"card"`
}

type PlayerDrawn struct {
	Nickname string `json:"nickname"`
}

type BbungEffect struct {
	Nickname string `json:"nickname"`
}

// RoundEnded 回合结束广播
type RoundEnded struct {
	Reason         score.Reason           `json:"reason"`
	Stopper        string                 `json:"stopper,omitempty"`
	AllPlayerHands map[string][]card.Card `json:"allPlayerHands"`
	Round          int                    `json:"round"`
	Triggerer      string                 `json:"triggerer,omitempty"`
	Scores         map[string]int         `json:"scores"`
}

type NextRound struct {
	Round int `json:"round"`
}

type ChatMessage struct {
	Nickname string `json:"nickname"`
	Message  string `json:"message"`
	SentAt   int64  `json:"sentAt"`
}

type BagajiDeclared struct {
	Nickname string `json:"nickname"`
	IsBagaji bool   `json:"isBagaji"`
}

type GameComplete struct {
	Scores []FinalScore `json:"scores"`
}

type TurnTimeout struct {
	Nickname string `json:"nickname"`
	Round    int    `json:"round"`
	TurnSeq  uint64 `json:"turnSeq"`
}

type RoomEvicted struct {
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason"`
}

// RoomClosed 房间销毁，Members 为关闭时仍在房间内的玩家
type RoomClosed struct {
	RoomCode string   `json:"roomCode"`
	Members  []string `json:"members,omitempty"`
}
