package score

import (
	"sort"

	"github.com/jinhan04/bbungkabi-vercel/internal/card"
)

// JokboSize 族谱手牌张数
const JokboSize = 6

// counts 统计每个点数值出现的次数
func counts(values []int) map[int]int {
	m := make(map[int]int, len(values))
	for _, v := range values {
		m[v]++
	}
	return m
}

// IsStraight 顺子判定
//
// A 同时计为 1 和 14，去重后只要存在 5 个连续值即成立（10-J-Q-K-A 合法）。
func IsStraight(values []int) bool {
	set := make(map[int]struct{}, len(values)+1)
	for _, v := range values {
		set[v] = struct{}{}
	}
	if _, ok := set[1]; ok {
		set[14] = struct{}{}
	}

	nums := make([]int, 0, len(set))
	for v := range set {
		nums = append(nums, v)
	}
	sort.Ints(nums)

	run := 1
	for i := 1; i < len(nums); i++ {
		if nums[i] == nums[i-1]+1 {
			run++
			if run >= 5 {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

// IsPairPairPair 恰好三个点数各出现两次
func IsPairPairPair(values []int) bool {
	pairs := 0
	for _, c := range counts(values) {
		if c == 2 {
			pairs++
		}
	}
	return pairs == 3
}

// IsTripleTriple 恰好两个点数各出现三次
func IsTripleTriple(values []int) bool {
	triples := 0
	for _, c := range counts(values) {
		if c == 3 {
			triples++
		}
	}
	return triples == 2
}

// IsThreeOfAKind 三张同点
func IsThreeOfAKind(hand []card.Card) bool {
	if len(hand) != 3 {
		return false
	}
	return hand[0].SameRank(hand[1]) && hand[0].SameRank(hand[2])
}

// IsJokbo 六张手牌是否构成可以宣告结束的族谱
func IsJokbo(hand []card.Card) bool {
	if len(hand) != JokboSize {
		return false
	}
	values := card.Values(hand)
	total := sum(values)
	return IsStraight(values) ||
		IsPairPairPair(values) ||
		IsTripleTriple(values) ||
		total <= 14 ||
		total >= 65
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
