package score

import "github.com/jinhan04/bbungkabi-vercel/internal/card"

const (
	// LowJokboScore 六张总和不超过 14 的得分
	LowJokboScore = -100

	lowJokboTotal  = 14
	highJokboTotal = 65
)

// Evaluate 计算一手牌的分数，纯函数，按规则顺序首个命中即返回
func Evaluate(hand []card.Card) int {
	if len(hand) == 0 {
		return 0
	}

	values := card.Values(hand)
	total := sum(values)

	if len(hand) == JokboSize {
		switch {
		case IsStraight(values):
			return -total
		case IsPairPairPair(values), IsTripleTriple(values):
			return 0
		case total <= lowJokboTotal:
			return LowJokboScore
		case total >= highJokboTotal:
			return -total
		default:
			return total
		}
	}

	if IsThreeOfAKind(hand) {
		return 0
	}

	// 仅有一组三条时三条本身不计分
	tripleValue, triples := 0, 0
	for v, c := range counts(values) {
		if c == 3 {
			tripleValue = v
			triples++
		}
	}
	if triples == 1 {
		rest := 0
		for _, v := range values {
			if v != tripleValue {
				rest += v
			}
		}
		return rest
	}

	return total
}
