package room

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/jinhan04/bbungkabi-vercel/internal/card"
	"github.com/jinhan04/bbungkabi-vercel/internal/score"
)

// Join 加入房间
//
// 只能在大厅或回合之间加入，昵称在房间内唯一。
func (r *Room) Join(nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || utf8.RuneCountInString(nickname) > MaxNicknameLen {
		return ErrInvalidNickname
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errRoomClosed
	}
	if r.seatOf(nickname) >= 0 {
		return ErrNicknameTaken
	}
	if r.phase == PhaseRoundActive {
		return ErrGameInProgress
	}
	if len(r.players) >= r.maxPlayers {
		return ErrRoomFull
	}

	r.players = append(r.players, nickname)
	r.touch()

	r.logger.Info("Player joined", "nickname", nickname, "players", len(r.players))
	r.broadcast(EventUpdatePlayers, Roster(append([]string{}, r.players...)))
	return nil
}

// Leave 离开房间，返回房间是否因此变空
//
// 离开者的手牌进入弃牌堆；若正轮到他，出牌权交给下一座位。
// 处于补牌状态的抢牌者离开时只撤销补牌状态，当前玩家的摸牌状态保持不变。
func (r *Room) Leave(nickname string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat := r.seatOf(nickname)
	if seat < 0 {
		return false, ErrNotInRoom
	}

	wasTurn := r.phase == PhaseRoundActive && seat == r.turnIndex
	wasBbunger := r.pending != nil && r.pending.nickname == nickname

	r.players = append(r.players[:seat:seat], r.players[seat+1:]...)
	r.discard = append(r.discard, r.hands[nickname]...)
	delete(r.hands, nickname)
	delete(r.drawn, nickname)
	r.ready = removeName(r.ready, nickname)
	r.touch()

	r.logger.Info("Player left", "nickname", nickname, "players", len(r.players))

	if len(r.players) == 0 {
		r.closed = true
		r.broadcast(EventRoomClosed, RoomClosed{RoomCode: r.code})
		return true, nil
	}

	if seat < r.turnIndex {
		r.turnIndex--
	}
	if r.turnIndex >= len(r.players) {
		r.turnIndex = 0
	}
	if wasBbunger {
		r.pending = nil
	}

	r.broadcast(EventUpdatePlayers, Roster(append([]string{}, r.players...)))

	switch r.phase {
	case PhaseRoundActive:
		if wasTurn {
			clear(r.drawn)
			r.emitTurn()
		}
	case PhaseRoundEnded:
		if len(r.ready) > 0 {
			r.broadcast(EventUpdateReady, ReadyList(append([]string{}, r.ready...)))
		}
		r.advanceIfReady()
	}
	return false, nil
}

// Start 开始游戏
//
// maxPlayers <= 0 时使用默认上限；doubleFinal 决定第五回合是否双倍计分。
func (r *Room) Start(nickname string, maxPlayers int, doubleFinal bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seatOf(nickname) < 0 {
		return ErrNotInRoom
	}
	if r.phase == PhaseRoundActive || r.phase == PhaseRoundEnded {
		return ErrGameInProgress
	}
	if maxPlayers <= 0 || maxPlayers > DefaultMaxPlayers {
		maxPlayers = DefaultMaxPlayers
	}
	if len(r.players) < 1 || len(r.players) > maxPlayers {
		return ErrPlayerCount
	}

	r.maxPlayers = maxPlayers
	r.doubleFinal = doubleFinal
	r.round = 1
	r.scores = make(map[string][]int, len(r.players))
	r.scoreOrder = append([]string{}, r.players...)
	for _, p := range r.players {
		r.scores[p] = []int{}
	}
	r.ready = nil
	r.lastResult = nil

	r.logger.Info("Game started",
		"startedBy", nickname,
		"players", len(r.players),
		"doubleFinal", doubleFinal)

	r.dealRound(r.shuffler.Intn(len(r.players)), false)
	return nil
}

// ReadyNextRound 标记玩家准备进入下一回合，全员准备后开始新回合
func (r *Room) ReadyNextRound(nickname string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seatOf(nickname) < 0 {
		return ErrNotInRoom
	}
	switch r.phase {
	case PhaseLobby:
		return ErrGameNotStarted
	case PhaseRoundActive:
		return ErrRoundInProgress
	case PhaseGameComplete:
		return ErrGameOver
	}

	if indexOf(r.ready, nickname) < 0 {
		r.ready = append(r.ready, nickname)
	}
	r.touch()
	r.broadcast(EventUpdateReady, ReadyList(append([]string{}, r.ready...)))
	r.advanceIfReady()
	return nil
}

// advanceIfReady 全员准备时推进回合
//
// 推进后阶段立即变为 RoundActive，重复的准备信号不会再次推进。
func (r *Room) advanceIfReady() {
	if r.phase != PhaseRoundEnded || r.round >= score.FinalRound {
		return
	}
	for _, p := range r.players {
		if indexOf(r.ready, p) < 0 {
			return
		}
	}

	r.ready = nil
	r.round++
	r.logger.Info("Advancing round", "round", r.round)
	r.dealRound(r.lowestLastScoreSeat(), true)
}

// lowestLastScoreSeat 上一回合得分最低者先手，无记录视为正无穷，平分按座位顺序
func (r *Room) lowestLastScoreSeat() int {
	best, bestScore := 0, math.MaxInt
	for i, p := range r.players {
		s := math.MaxInt
		if rounds := r.scores[p]; len(rounds) > 0 {
			s = rounds[len(rounds)-1]
		}
		if s < bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

// dealRound 洗一副新牌并发牌
func (r *Room) dealRound(first int, advancing bool) {
	deck := r.shuffler.Shuffle(card.NewDeck())
	r.hands, r.deck = card.Deal(deck, r.players, HandSize)
	r.discard = nil
	r.history = nil
	clear(r.drawn)
	r.pending = nil
	r.triggerer = ""
	r.turnIndex = first
	r.phase = PhaseRoundActive
	r.touch()

	r.broadcast(EventDeckUpdate, DeckUpdate{Remaining: len(r.deck)})
	r.broadcast(EventGameStarted, GameStarted{RoomCode: r.code, Round: r.round})
	if advancing {
		r.broadcast(EventNextRound, NextRound{Round: r.round})
	}
	for _, p := range r.players {
		r.emit(EventDealCards, Only, p, DealCards{Hand: append([]card.Card{}, r.hands[p]...)})
	}
	r.emitTurn()
}

// RequestHand 向本人重发手牌
func (r *Room) RequestHand(nickname string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seatOf(nickname) < 0 {
		return ErrNotInRoom
	}
	r.emit(EventDealCards, Only, nickname, DealCards{Hand: append([]card.Card{}, r.hands[nickname]...)})
	return nil
}

// Evict 因长期不活跃关闭房间
func (r *Room) Evict(reason string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	members := append([]string{}, r.players...)
	r.broadcast(EventRoomEvicted, RoomEvicted{RoomCode: r.code, Reason: reason})
	r.broadcast(EventRoomClosed, RoomClosed{RoomCode: r.code, Members: members})
	return members
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func removeName(list []string, s string) []string {
	i := indexOf(list, s)
	if i < 0 {
		return list
	}
	return append(list[:i:i], list[i+1:]...)
}
