package ranking

import (
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftboard/internal/model"
)

func sub(name, gifter string) model.Subscriber {
	s := model.Subscriber{UserID: name, UserName: name, UserLogin: name, Tier: "1000"}
	if gifter != "" {
		s.IsGift = true
		s.Gifter = model.SomeGifter(gifter)
	}
	return s
}

func names(r []model.RankedSubscriber) []string {
	out := make([]string, len(r))
	for i := range r {
		out[i] = r[i].UserName
	}
	return out
}

func TestRankScenarioABC(t *testing.T) {
	got := Rank([]model.Subscriber{sub("A", ""), sub("B", "A"), sub("C", "A")})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A", "B", "C"}, names(got))
	assert.Equal(t, 2, got[0].GiftCount)
	assert.Equal(t, model.BadgeGold, got[0].Badge)
	assert.Equal(t, 0, got[1].GiftCount)
	assert.Equal(t, model.BadgeBronze, got[1].Badge)
	assert.Equal(t, model.BadgeBronze, got[2].Badge)
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil))
	assert.Empty(t, Rank([]model.Subscriber{}))
}

func TestGoldGoesToFirstEvenWithZeroGifts(t *testing.T) {
	got := Rank([]model.Subscriber{sub("X", ""), sub("Y", "")})
	assert.Equal(t, model.BadgeGold, got[0].Badge)
	assert.Equal(t, "X", got[0].UserName)
	assert.Equal(t, model.BadgeBronze, got[1].Badge)
}

func TestSilverForEveryOtherGifter(t *testing.T) {
	in := []model.Subscriber{
		sub("A", ""), sub("B", ""), sub("C", ""),
		sub("d1", "A"), sub("d2", "A"), sub("d3", "A"),
		sub("e1", "B"), sub("e2", "B"),
		sub("f1", "C"),
	}
	got := Rank(in)
	assert.Equal(t, []string{"A", "B", "C"}, names(got)[:3])
	assert.Equal(t, []model.Badge{model.BadgeGold, model.BadgeSilver, model.BadgeSilver}, []model.Badge{got[0].Badge, got[1].Badge, got[2].Badge})
	for _, r := range got[3:] {
		assert.Equal(t, model.BadgeBronze, r.Badge)
	}
}

func TestSelfGiftIsCounted(t *testing.T) {
	counts := GiftCounts([]model.Subscriber{sub("A", "A"), sub("B", "")})
	assert.Equal(t, []int{1, 0}, counts)
}

func TestAbsentGifterNeverMatchesEmptyName(t *testing.T) {
	in := []model.Subscriber{{UserName: ""}, sub("B", "")}
	assert.Equal(t, []int{0, 0}, GiftCounts(in))

	in[1].Gifter = model.SomeGifter("")
	assert.Equal(t, []int{1, 0}, GiftCounts(in))
}

func TestGiftCountMatchesQuadraticDefinition(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 50; round++ {
		n := r.IntN(40)
		in := make([]model.Subscriber, n)
		for i := range in {
			g := ""
			if n > 0 && r.IntN(2) == 0 {
				g = "u" + strconv.Itoa(r.IntN(n+3))
			}
			in[i] = sub("u"+strconv.Itoa(i), g)
		}
		counts := GiftCounts(in)
		sum := 0
		matched := 0
		for i, s := range in {
			want := 0
			for _, o := range in {
				if o.Gifter.Is(s.UserName) {
					want++
				}
			}
			assert.Equal(t, want, counts[i])
			sum += counts[i]
		}
		names := map[string]bool{}
		for _, s := range in {
			names[s.UserName] = true
		}
		for _, s := range in {
			if s.Gifter.Valid && s.Gifter.Name != "" && names[s.Gifter.Name] {
				matched++
			}
		}
		assert.Equal(t, matched, sum)
	}
}

func TestRankIsStable(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	for round := 0; round < 50; round++ {
		n := 1 + r.IntN(30)
		in := make([]model.Subscriber, n)
		for i := range in {
			g := ""
			if r.IntN(3) == 0 {
				g = "u" + strconv.Itoa(r.IntN(n))
			}
			in[i] = sub("u"+strconv.Itoa(i), g)
		}
		pos := map[string]int{}
		for i, s := range in {
			pos[s.UserName] = i
		}
		got := Rank(in)
		require.Len(t, got, n)
		for i := 1; i < len(got); i++ {
			prev, cur := got[i-1], got[i]
			require.GreaterOrEqual(t, prev.GiftCount, cur.GiftCount)
			if prev.GiftCount == cur.GiftCount {
				assert.Less(t, pos[prev.UserName], pos[cur.UserName])
			}
		}
		gold := 0
		for i, e := range got {
			switch {
			case i == 0:
				assert.Equal(t, model.BadgeGold, e.Badge)
			case e.GiftCount > 0:
				assert.Equal(t, model.BadgeSilver, e.Badge)
			default:
				assert.Equal(t, model.BadgeBronze, e.Badge)
			}
			if e.Badge == model.BadgeGold {
				gold++
			}
		}
		assert.Equal(t, 1, gold)
	}
}
