package score

import (
	"github.com/jinhan04/bbungkabi-vercel/internal/card"
)

// Reason 回合结束原因
type Reason string

const (
	ReasonStop         Reason = "stop"
	ReasonBbungEnd     Reason = "bbung-end"
	ReasonHandEmpty    Reason = "hand-empty"
	ReasonDeckEmpty    Reason = "deck-empty"
	ReasonJokbo        Reason = "족보 완성"
	ReasonThreeOfAKind Reason = "three-of-a-kind"
)

// Valid 是否为已知的结束原因
func (r Reason) Valid() bool {
	switch r {
	case ReasonStop, ReasonBbungEnd, ReasonHandEmpty, ReasonDeckEmpty, ReasonJokbo, ReasonThreeOfAKind:
		return true
	}
	return false
}

const (
	// StopPenalty 喊停失败的罚分
	StopPenalty = 50
	// BbungBonus 被抢牌者的奖励分
	BbungBonus = 30
	// FinalRound 最后一回合
	FinalRound = 5
)

// Input 一次回合结算的输入
type Input struct {
	Reason      Reason
	Stopper     string
	Hands       map[string][]card.Card
	Triggerer   string
	Round       int
	DoubleFinal bool
}

// Settler 回合结算器
type Settler struct{}

// NewSettler 创建结算器
func NewSettler() *Settler {
	return &Settler{}
}

// Calculate 计算本回合每位玩家的得分
func (s *Settler) Calculate(in Input) map[string]int {
	raw := make(map[string]int, len(in.Hands))
	for nickname, hand := range in.Hands {
		raw[nickname] = Evaluate(hand)
	}

	penalized := in.Reason == ReasonStop && stopFailed(raw, in.Stopper)

	result := make(map[string]int, len(raw))
	for nickname, sc := range raw {
		switch {
		case !penalized:
			result[nickname] = sc
		case nickname == in.Stopper:
			result[nickname] = sc + StopPenalty
		default:
			result[nickname] = 0
		}
	}

	if in.Reason == ReasonBbungEnd && in.Triggerer != "" {
		if _, ok := result[in.Triggerer]; ok {
			result[in.Triggerer] += BbungBonus
		}
	}

	if in.DoubleFinal && in.Round == FinalRound {
		for nickname := range result {
			result[nickname] *= 2
		}
	}

	return result
}

// stopFailed 有其他玩家的分数不高于喊停者；喊停者为空或不在手牌中时不算失败
func stopFailed(raw map[string]int, stopper string) bool {
	stopperScore, ok := raw[stopper]
	if stopper == "" || !ok {
		return false
	}
	for nickname, sc := range raw {
		if nickname != stopper && sc <= stopperScore {
			return true
		}
	}
	return false
}
