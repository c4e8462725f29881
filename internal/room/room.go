package room

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jinhan04/bbungkabi-vercel/internal/card"
	"github.com/jinhan04/bbungkabi-vercel/internal/score"
)

const (
	// HandSize 每回合开局每人手牌数
	HandSize = 5
	// DefaultMaxPlayers 房间人数上限
	DefaultMaxPlayers = 6
	// MaxNicknameLen 昵称最大字符数
	MaxNicknameLen = 20
	// MaxChatLen 聊天消息最大字符数
	MaxChatLen = 200
)

// Phase 房间阶段
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseRoundActive
	PhaseRoundEnded
	PhaseGameComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseRoundActive:
		return "round-active"
	case PhaseRoundEnded:
		return "round-ended"
	case PhaseGameComplete:
		return "game-complete"
	}
	return "unknown"
}

// Shuffler 洗牌与随机选先手
type Shuffler interface {
	Shuffle(deck []card.Card) []card.Card
	Intn(n int) int
}

// Submission 出牌记录
type Submission struct {
	Nickname string    `json:"nickname"`
	Card     card.Card `json:"card"`
}

// RoundResult 最近一回合的结算快照
type RoundResult struct {
	Round     int                    `json:"round"`
	Reason    score.Reason           `json:"reason"`
	Stopper   string                 `json:"stopper,omitempty"`
	Triggerer string                 `json:"triggerer,omitempty"`
	Scores    map[string]int         `json:"scores"`
	Hands     map[string][]card.Card `json:"hands"`
}

// FinalScore 单个玩家的累计得分
type FinalScore struct {
	Nickname string `json:"nickname"`
	Rounds   []int  `json:"rounds"`
	Total    int    `json:"total"`
}

// Snapshot 房间只读快照
type Snapshot struct {
	Code          string           `json:"roomCode"`
	Phase         string           `json:"phase"`
	Round         int              `json:"round"`
	Players       []string         `json:"players"`
	CurrentPlayer string           `json:"currentPlayer,omitempty"`
	DeckRemaining int              `json:"deckRemaining"`
	DoubleFinal   bool             `json:"doubleFinal"`
	Scores        map[string][]int `json:"scores"`
	LastActive    time.Time        `json:"lastActive"`
}

// pendingBbung 抢牌后等待补出一张的状态
type pendingBbung struct {
	nickname string
	sniped   Submission
}

// Room 房间聚合
//
// 房间内所有操作由 mu 串行化，事件在锁内按产生顺序交给 sink。
type Room struct {
	mu sync.RWMutex

	code     string
	sink     Sink
	shuffler Shuffler
	settler  *score.Settler
	logger   *slog.Logger

	phase      Phase
	players    []string
	deck       []card.Card
	hands      map[string][]card.Card
	discard    []card.Card
	turnIndex  int
	drawn      map[string]struct{}
	history    []Submission
	round      int
	scores     map[string][]int
	scoreOrder []string
	ready      []string
	pending    *pendingBbung
	triggerer  string
	lastResult *RoundResult

	doubleFinal bool
	maxPlayers  int

	seq        uint64
	turnSeq    uint64
	lastActive time.Time
	closed     bool
}

// NewRoom 创建房间实例
func NewRoom(code string, sink Sink, shuffler Shuffler, maxPlayers int) *Room {
	if sink == nil {
		sink = Fanout()
	}
	if shuffler == nil {
		shuffler = card.NewShuffler()
	}
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	return &Room{
		code:       code,
		sink:       sink,
		shuffler:   shuffler,
		settler:    score.NewSettler(),
		logger:     slog.Default().With("component", "Room", "roomCode", code),
		phase:      PhaseLobby,
		hands:      make(map[string][]card.Card),
		drawn:      make(map[string]struct{}),
		scores:     make(map[string][]int),
		maxPlayers: maxPlayers,
		deck:       shuffler.Shuffle(card.NewDeck()),
		lastActive: time.Now(),
	}
}

// Code 房间号
func (r *Room) Code() string {
	return r.code
}

// LastActiveTime 最后活跃时间
func (r *Room) LastActiveTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActive
}

// Empty 房间内没有玩家
func (r *Room) Empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players) == 0
}

func (r *Room) closeIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.players) > 0 || r.closed {
		return false
	}
	r.closed = true
	return true
}

// Players 按座位顺序的玩家列表
func (r *Room) Players() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.players...)
}

// Hand 玩家当前手牌副本
func (r *Room) Hand(nickname string) ([]card.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.seatOf(nickname) < 0 {
		return nil, ErrNotInRoom
	}
	return append([]card.Card{}, r.hands[nickname]...), nil
}

// RoundResult 最近一回合的结算结果
func (r *Room) RoundResult() (*RoundResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.lastResult == nil {
		return nil, ErrNoRoundResult
	}
	res := *r.lastResult
	return &res, nil
}

// FinalScores 每位玩家各回合得分与总分
func (r *Room) FinalScores() ([]FinalScore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.scoreOrder) == 0 {
		return nil, ErrNoScores
	}
	return r.finalScores(), nil
}

// Snapshot 房间快照
func (r *Room) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scores := make(map[string][]int, len(r.scores))
	for k, v := range r.scores {
		scores[k] = append([]int{}, v...)
	}
	s := Snapshot{
		Code:          r.code,
		Phase:         r.phase.String(),
		Round:         r.round,
		Players:       append([]string{}, r.players...),
		DeckRemaining: len(r.deck),
		DoubleFinal:   r.doubleFinal,
		Scores:        scores,
		LastActive:    r.lastActive,
	}
	if r.phase == PhaseRoundActive {
		s.CurrentPlayer = r.currentPlayer()
	}
	return s
}

func (r *Room) finalScores() []FinalScore {
	out := make([]FinalScore, 0, len(r.scoreOrder))
	for _, nickname := range r.scoreOrder {
		rounds := append([]int{}, r.scores[nickname]...)
		total := 0
		for _, s := range rounds {
			total += s
		}
		out = append(out, FinalScore{Nickname: nickname, Rounds: rounds, Total: total})
	}
	return out
}

func (r *Room) seatOf(nickname string) int {
	for i, p := range r.players {
		if p == nickname {
			return i
		}
	}
	return -1
}

func (r *Room) currentPlayer() string {
	if len(r.players) == 0 {
		return ""
	}
	return r.players[r.turnIndex]
}

func (r *Room) hasDrawn(nickname string) bool {
	_, ok := r.drawn[nickname]
	return ok
}

func (r *Room) touch() {
	r.lastActive = time.Now()
}

// emit 必须在持有写锁时调用
func (r *Room) emit(name string, target Target, nickname string, data any) {
	r.seq++
	r.sink.Emit(Event{
		Seq:      r.seq,
		Room:     r.code,
		Name:     name,
		Target:   target,
		Nickname: nickname,
		Data:     data,
	})
}

func (r *Room) broadcast(name string, data any) {
	r.emit(name, Broadcast, "", data)
}

func (r *Room) emitTurn() {
	r.turnSeq++
	r.broadcast(EventTurnInfo, TurnInfo{
		CurrentPlayer: r.currentPlayer(),
		Round:         r.round,
		TurnSeq:       r.turnSeq,
	})
}

// cardsInPlay 牌堆、手牌与弃牌之和，回合内恒为 52
func (r *Room) cardsInPlay() int {
	n := len(r.deck) + len(r.discard)
	for _, h := range r.hands {
		n += len(h)
	}
	return n
}
