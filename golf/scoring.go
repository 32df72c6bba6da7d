package golf

import (
	"sort"

	"golf-lite/card"
)

// CardValue is a card's score under the active variants. Variants never
// mutate the card itself.
func CardValue(r card.Rank, o Options) int {
	switch {
	case o.SuperKings && r == card.RankKing:
		return -2
	case o.LuckySevens && r == card.Rank7:
		return 0
	case o.TenPenny && r == card.Rank10:
		return 1
	case o.LuckySwing && r == card.RankJoker:
		return -5
	}
	return card.Card{Rank: r}.BaseValue()
}

// ScoreHand scores a 6-card hand. Columns pair position i with i+3; a
// matching column scores 0 regardless of card order.
func ScoreHand(cards []card.Card, o Options) int {
	removed := make([]bool, len(cards))
	if o.FourOfAKind {
		counts := map[card.Rank]int{}
		for _, c := range cards {
			counts[c.Rank]++
		}
		for i, c := range cards {
			if counts[c.Rank] == 4 {
				removed[i] = true
			}
		}
	}

	score := 0
	for i := 0; i < HandSize/2 && i+3 < len(cards); i++ {
		top, bottom := cards[i], cards[i+3]
		if removed[i] && removed[i+3] {
			continue
		}
		if removed[i] {
			score += CardValue(bottom.Rank, o)
			continue
		}
		if removed[i+3] {
			score += CardValue(top.Rank, o)
			continue
		}
		match := top.Rank == bottom.Rank
		if o.QueensWild && (top.Rank == card.RankQueen || bottom.Rank == card.RankQueen) {
			match = true
		}
		if match {
			if o.EagleEye && top.IsJoker() && bottom.IsJoker() {
				score -= 8
			}
			continue
		}
		score += CardValue(top.Rank, o) + CardValue(bottom.Rank, o)
	}
	return score
}

// applyRoundModifiers runs the global round-end adjustments in their fixed
// order: blackjack, knock_penalty, knock_bonus, underdog_bonus, tied_shame.
// scores is mutated in place; finisherID may be empty.
func applyRoundModifiers(scores map[string]int, finisherID string, o Options) {
	if o.Blackjack {
		for id, s := range scores {
			if s == 21 {
				scores[id] = 0
			}
		}
	}

	if finisherID != "" {
		if _, ok := scores[finisherID]; ok {
			if o.KnockPenalty && !uniqueMinimum(scores, finisherID) {
				scores[finisherID] += 10
			}
			if o.KnockBonus {
				scores[finisherID] -= 5
			}
		}
	}

	if o.UnderdogBonus && len(scores) > 0 {
		min := minScore(scores)
		for id, s := range scores {
			if s == min {
				scores[id] = s - 3
			}
		}
	}

	if o.TiedShame {
		counts := map[int]int{}
		for _, s := range scores {
			counts[s]++
		}
		for id, s := range scores {
			if counts[s] > 1 {
				scores[id] = s + 5
			}
		}
	}
}

// roundWinners returns the ids tied for the minimum score, sorted for
// stable event payloads.
func roundWinners(scores map[string]int) []string {
	if len(scores) == 0 {
		return nil
	}
	min := minScore(scores)
	var out []string
	for id, s := range scores {
		if s == min {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func minScore(scores map[string]int) int {
	first := true
	min := 0
	for _, s := range scores {
		if first || s < min {
			min = s
			first = false
		}
	}
	return min
}

func uniqueMinimum(scores map[string]int, id string) bool {
	mine, ok := scores[id]
	if !ok {
		return false
	}
	for other, s := range scores {
		if other == id {
			continue
		}
		if s <= mine {
			return false
		}
	}
	return true
}
