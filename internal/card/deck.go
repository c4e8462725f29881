package card

import (
	"math/rand"
	"sync"
	"time"
)

// DeckSize 一副牌的张数
const DeckSize = 52

// NewDeck 生成一副按花色、点数排列的 52 张牌
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, suit := range Suits {
		for _, rank := range Ranks {
			deck = append(deck, New(rank, suit))
		}
	}
	return deck
}

// Shuffler 洗牌器
type Shuffler interface {
	Shuffle(deck []Card) []Card
}

// RandShuffler 基于 math/rand 的 Fisher-Yates 洗牌器，可并发使用
type RandShuffler struct {
	mu   sync.Mutex
	rand *rand.Rand
}

// NewShuffler 创建以当前时间为种子的洗牌器
func NewShuffler() *RandShuffler {
	return NewSeededShuffler(time.Now().UnixNano())
}

// NewSeededShuffler 创建固定种子的洗牌器
func NewSeededShuffler(seed int64) *RandShuffler {
	return &RandShuffler{rand: rand.New(rand.NewSource(seed))}
}

// Shuffle 返回打乱后的副本，不修改入参
func (s *RandShuffler) Shuffle(deck []Card) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(out) - 1; i > 0; i-- {
		j := s.rand.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Intn 供房间选择随机先手
func (s *RandShuffler) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Intn(n)
}

// Deal 从牌堆顶按座位顺序给每位玩家发 n 张，返回手牌和剩余牌堆
func Deal(deck []Card, players []string, n int) (map[string][]Card, []Card) {
	hands := make(map[string][]Card, len(players))
	idx := 0
	for _, p := range players {
		end := idx + n
		if end > len(deck) {
			end = len(deck)
		}
		hand := make([]Card, end-idx)
		copy(hand, deck[idx:end])
		hands[p] = hand
		idx = end
	}
	rest := make([]Card, len(deck)-idx)
	copy(rest, deck[idx:])
	return hands, rest
}
