package room

import (
	"github.com/jinhan04/bbungkabi-vercel/internal/card"
	"github.com/jinhan04/bbungkabi-vercel/internal/score"
)

// checkActive 回合进行中且没有未完成的抢牌
func (r *Room) checkActive(nickname string) error {
	if r.seatOf(nickname) < 0 {
		return ErrNotInRoom
	}
	if r.phase != PhaseRoundActive {
		return ErrRoundNotActive
	}
	if r.pending != nil {
		return ErrBbungPending
	}
	return nil
}

// Draw 当前玩家摸一张牌，每回合一次
func (r *Room) Draw(nickname string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkActive(nickname); err != nil {
		return err
	}
	if r.currentPlayer() != nickname {
		return ErrNotYourTurn
	}
	if r.hasDrawn(nickname) {
		return ErrAlreadyDrawn
	}
	if len(r.deck) == 0 {
		return ErrDeckEmpty
	}

	c := r.deck[0]
	r.deck = r.deck[1:]
	r.hands[nickname] = append(r.hands[nickname], c)
	r.drawn[nickname] = struct{}{}
	r.touch()

	r.emit(EventDrawnCard, Only, nickname, DrawnCard{Card: c})
	r.emit(EventPlayerDrawn, Except, nickname, PlayerDrawn{Nickname: nickname})
	r.broadcast(EventDeckUpdate, DeckUpdate{Remaining: len(r.deck)})

	if len(r.deck) == 0 {
		r.endRound(score.ReasonDeckEmpty, "")
	}
	return nil
}

// Submit 当前玩家在摸牌后出一张牌，出牌权交给下一座位
func (r *Room) Submit(nickname string, c card.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkActive(nickname); err != nil {
		return err
	}
	if r.currentPlayer() != nickname {
		return ErrNotYourTurn
	}
	if !r.hasDrawn(nickname) {
		return ErrMustDrawFirst
	}
	hand, ok := card.Remove(r.hands[nickname], c)
	if !ok {
		return ErrCardNotInHand
	}

	r.hands[nickname] = hand
	r.play(nickname, c)

	r.turnIndex = (r.turnIndex + 1) % len(r.players)
	clear(r.drawn)
	r.emitTurn()
	return nil
}

// Bbung 用两张同点牌抢上一张出牌
//
// 任何未在本轮摸过牌的玩家都可以抢，但不能抢自己出的牌。
// 抢完手牌为空则回合立即结束，否则进入补牌状态，等待同一玩家再出一张。
func (r *Room) Bbung(nickname string, cards []card.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkActive(nickname); err != nil {
		return err
	}
	if r.hasDrawn(nickname) {
		return ErrAlreadyDrawn
	}
	if len(cards) != 2 {
		return ErrInvalidBbung
	}
	if !cards[0].SameRank(cards[1]) {
		return ErrRankMismatch
	}
	if len(r.history) == 0 {
		return ErrNothingToSnap
	}
	last := r.history[len(r.history)-1]
	if !last.Card.SameRank(cards[0]) {
		return ErrRankMismatch
	}
	if last.Nickname == nickname {
		return ErrSelfSnap
	}
	if !card.ContainsAll(r.hands[nickname], cards) {
		return ErrCardNotInHand
	}

	hand := r.hands[nickname]
	for _, c := range cards {
		hand, _ = card.Remove(hand, c)
	}
	r.hands[nickname] = hand
	for _, c := range cards {
		r.play(nickname, c)
	}
	r.broadcast(EventBbungEffect, BbungEffect{Nickname: nickname})

	r.logger.Debug("Bbung", "nickname", nickname, "sniped", last.Nickname, "card", last.Card)

	if len(hand) == 0 {
		r.triggerer = last.Nickname
		r.endRound(score.ReasonBbungEnd, "")
		return nil
	}

	r.pending = &pendingBbung{nickname: nickname, sniped: last}
	return nil
}

// BbungExtra 抢牌后补出的一张
func (r *Room) BbungExtra(nickname string, c card.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seatOf(nickname) < 0 {
		return ErrNotInRoom
	}
	if r.phase != PhaseRoundActive {
		return ErrRoundNotActive
	}
	if r.pending == nil {
		return ErrNoPendingBbung
	}
	if r.pending.nickname != nickname {
		return ErrNotBbunger
	}
	hand, ok := card.Remove(r.hands[nickname], c)
	if !ok {
		return ErrCardNotInHand
	}

	sniped := r.pending.sniped
	r.pending = nil
	r.hands[nickname] = hand
	r.play(nickname, c)

	if len(hand) == 0 {
		r.triggerer = sniped.Nickname
		r.endRound(score.ReasonBbungEnd, "")
		return nil
	}

	r.turnIndex = (r.seatOf(nickname) + 1) % len(r.players)
	clear(r.drawn)
	r.emitTurn()
	return nil
}

// Stop 当前玩家在摸牌前喊停
//
// 服务端手牌为准；若携带了手牌且与服务端不一致则拒绝。
func (r *Room) Stop(nickname string, claimed []card.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkActive(nickname); err != nil {
		return err
	}
	if r.currentPlayer() != nickname {
		return ErrNotYourTurn
	}
	if r.hasDrawn(nickname) {
		return ErrAlreadyDrawn
	}
	if len(claimed) > 0 && !card.EqualMultiset(claimed, r.hands[nickname]) {
		return ErrHandMismatch
	}

	r.endRound(score.ReasonStop, nickname)
	return nil
}

// ClaimEnd 玩家宣告自己的手牌满足结束条件，服务端校验后结束回合
func (r *Room) ClaimEnd(nickname string, reason score.Reason) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkActive(nickname); err != nil {
		return err
	}

	hand := r.hands[nickname]
	var ok bool
	switch reason {
	case score.ReasonHandEmpty:
		ok = len(hand) == 0
	case score.ReasonThreeOfAKind:
		ok = score.IsThreeOfAKind(hand)
	case score.ReasonJokbo:
		ok = score.IsJokbo(hand)
	default:
		return ErrInvalidClaim
	}
	if !ok {
		return ErrClaimUnsatisfied
	}

	r.endRound(reason, "")
	return nil
}

// TurnExpired 出牌计时到期，turnSeq 未变化时广播超时提示
func (r *Room) TurnExpired(turnSeq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.phase != PhaseRoundActive || r.turnSeq != turnSeq {
		return false
	}
	r.broadcast(EventTurnTimeout, TurnTimeout{
		Nickname: r.currentPlayer(),
		Round:    r.round,
		TurnSeq:  turnSeq,
	})
	return true
}

// play 记录一张已离手的牌
func (r *Room) play(nickname string, c card.Card) {
	r.discard = append(r.discard, c)
	r.history = append(r.history, Submission{Nickname: nickname, Card: c})
	r.touch()
	r.broadcast(EventCardSubmitted, CardSubmitted{Nickname: nickname, Card: c})
}

// endRound 结算并结束当前回合，第五回合结束后整局结束
func (r *Room) endRound(reason score.Reason, stopper string) {
	hands := make(map[string][]card.Card, len(r.players))
	for _, p := range r.players {
		hands[p] = append([]card.Card{}, r.hands[p]...)
	}

	result := r.settler.Calculate(score.Input{
		Reason:      reason,
		Stopper:     stopper,
		Hands:       hands,
		Triggerer:   r.triggerer,
		Round:       r.round,
		DoubleFinal: r.doubleFinal,
	})

	for _, p := range r.players {
		if _, ok := r.scores[p]; !ok {
			r.scoreOrder = append(r.scoreOrder, p)
		}
		r.scores[p] = append(r.scores[p], result[p])
	}

	r.lastResult = &RoundResult{
		Round:     r.round,
		Reason:    reason,
		Stopper:   stopper,
		Triggerer: r.triggerer,
		Scores:    result,
		Hands:     hands,
	}

	r.pending = nil
	clear(r.drawn)
	r.ready = nil
	r.turnSeq++
	if r.round >= score.FinalRound {
		r.phase = PhaseGameComplete
	} else {
		r.phase = PhaseRoundEnded
	}
	r.touch()

	r.logger.Info("Round ended",
		"round", r.round,
		"reason", reason,
		"stopper", stopper,
		"triggerer", r.triggerer)

	r.broadcast(EventRoundEnded, RoundEnded{
		Reason:         reason,
		Stopper:        stopper,
		AllPlayerHands: hands,
		Round:          r.round,
		Triggerer:      r.triggerer,
		Scores:         result,
	})

	if r.phase == PhaseGameComplete {
		r.broadcast(EventGameComplete, GameComplete{Scores: r.finalScores()})
	}
}
