package card

import (
	"fmt"
	"strconv"
	"strings"
)

// Suit 花色
type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Clubs    Suit = "♣"
	Diamonds Suit = "♦"
)

// Suits 发牌顺序下的花色
var Suits = []Suit{Spades, Hearts, Clubs, Diamonds}

// Ranks 点数，A 最小、K 最大
var Ranks = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// Card 一张牌，线上格式为 点数+花色，例如 "10♥"
//
// 牌堆与房间层只把 Card 当作不透明的令牌，只有计分逻辑关心点数。
type Card string

// New 由点数和花色组成一张牌
func New(rank string, suit Suit) Card {
	return Card(rank + string(suit))
}

// Parse 解析并校验客户端传来的牌
func Parse(s string) (Card, error) {
	c := Card(strings.TrimSpace(s))
	if !c.Valid() {
		return "", fmt.Errorf("invalid card %q", s)
	}
	return c, nil
}

// Rank 去掉花色后的点数部分
func (c Card) Rank() string {
	var b strings.Builder
	for _, r := range string(c) {
		switch {
		case r >= '0' && r <= '9', r == 'J', r == 'Q', r == 'K', r == 'A':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Suit 花色部分，无法识别时返回空串
func (c Card) Suit() Suit {
	for _, s := range Suits {
		if strings.HasSuffix(string(c), string(s)) {
			return s
		}
	}
	return ""
}

// Value 点数值: A=1, 数字为面值, J=11, Q=12, K=13
func (c Card) Value() int {
	return RankValue(c.Rank())
}

// Valid 点数与花色都能识别
func (c Card) Valid() bool {
	return c.Value() > 0 && c.Suit() != ""
}

// SameRank 两张牌点数相同
func (c Card) SameRank(o Card) bool {
	r := c.Rank()
	return r != "" && r == o.Rank()
}

// RankValue 点数转数值，无法识别返回 0
func RankValue(rank string) int {
	switch rank {
	case "A":
		return 1
	case "J":
		return 11
	case "Q":
		return 12
	case "K":
		return 13
	}
	v, err := strconv.Atoi(rank)
	if err != nil || v < 1 || v > 13 {
		return 0
	}
	return v
}

// Values 手牌的点数值
func Values(hand []Card) []int {
	values := make([]int, len(hand))
	for i, c := range hand {
		values[i] = c.Value()
	}
	return values
}

// Index 返回牌在手牌中的位置，不存在返回 -1
func Index(hand []Card, c Card) int {
	for i, h := range hand {
		if h == c {
			return i
		}
	}
	return -1
}

// Remove 从手牌中移除一张牌，返回新切片
func Remove(hand []Card, c Card) ([]Card, bool) {
	i := Index(hand, c)
	if i < 0 {
		return hand, false
	}
	out := make([]Card, 0, len(hand)-1)
	out = append(out, hand[:i]...)
	out = append(out, hand[i+1:]...)
	return out, true
}

// ContainsAll 手牌中是否包含 cards 中的每一张（按多重集合计）
func ContainsAll(hand []Card, cards []Card) bool {
	rest := hand
	for _, c := range cards {
		var ok bool
		if rest, ok = Remove(rest, c); !ok {
			return false
		}
	}
	return true
}

// EqualMultiset 两手牌在不计顺序时是否相同
func EqualMultiset(a, b []Card) bool {
	if len(a) != len(b) {
		return false
	}
	return ContainsAll(a, b)
}
