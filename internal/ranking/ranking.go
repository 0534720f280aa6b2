package ranking

import (
	"sort"

	"giftboard/internal/model"
)

// GiftCounts returns, per input position, how many records in subs name
// that record's user as gifter. A record naming itself is counted.
func GiftCounts(subs []model.Subscriber) []int {
	byGifter := make(map[string]int, len(subs))
	for _, s := range subs {
		if s.Gifter.Valid {
			byGifter[s.Gifter.Name]++
		}
	}
	counts := make([]int, len(subs))
	for i, s := range subs {
		counts[i] = byGifter[s.UserName]
	}
	return counts
}

// Rank orders subscribers by gift count, highest first, keeping input
// order among equal counts. The first entry is gold whatever its count;
// every other entry is silver when it gifted at least once, else bronze.
func Rank(subs []model.Subscriber) []model.RankedSubscriber {
	counts := GiftCounts(subs)
	out := make([]model.RankedSubscriber, len(subs))
	for i, s := range subs {
		out[i] = model.RankedSubscriber{Subscriber: s, GiftCount: counts[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GiftCount > out[j].GiftCount })
	for i := range out {
		switch {
		case i == 0:
			out[i].Badge = model.BadgeGold
		case out[i].GiftCount > 0:
			out[i].Badge = model.BadgeSilver
		default:
			out[i].Badge = model.BadgeBronze
		}
	}
	return out
}
