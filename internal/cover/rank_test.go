package cover

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(title string, tier QualityTier, w, h int, internal bool) RankItem {
	return RankItem{
		ID:    uuid.New(),
		Title: title,
		Tier:  tier,
		Cover: ResolvedCover{
			URL:                 "https://example.com/" + title + ".jpg",
			Width:               w,
			Height:              h,
			FromInternalStorage: internal,
			StorageKey:          map[bool]string{true: "covers/" + title + ".jpg"}[internal],
		},
	}
}

func titles(items []RankItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func TestRankerTieBreakChain(t *testing.T) {
	tests := []struct {
		name string
		a, b RankItem
		want int // sign of compare(a, b)
	}{
		{
			name: "higher tier first",
			a:    item("a", TierStandard, 400, 600, false),
			b:    item("b", TierHighRes, 100, 100, false),
			want: 1,
		},
		{
			name: "more pixels first within a tier",
			a:    item("a", TierStandard, 400, 600, false),
			b:    item("b", TierStandard, 300, 450, false),
			want: -1,
		},
		{
			name: "taller first when pixels tie",
			a:    item("a", TierStandard, 600, 400, false),
			b:    item("b", TierStandard, 400, 600, false),
			want: 1,
		},
		{
			name: "internal storage first when sizes tie",
			a:    item("a", TierStandard, 400, 600, true),
			b:    item("b", TierStandard, 400, 600, false),
			want: -1,
		},
		{
			name: "title breaks a full structural tie",
			a:    item("alpha", TierStandard, 400, 600, false),
			b:    item("beta", TierStandard, 400, 600, false),
			want: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := NewRanker(nil, nil)
			assert.Equal(t, tt.want, cmp(tt.a, tt.b))
			assert.Equal(t, -tt.want, cmp(tt.b, tt.a))
			assert.Equal(t, 0, cmp(tt.a, tt.a))
		})
	}
}

func TestRankerExtremePixelCounts(t *testing.T) {
	// Directly constructed items can carry pixel counts near the int
	// limits, including negative ones from upstream overflow. The
	// comparison must not wrap: subtracting MaxInt from a negative count
	// would flip the sign.
	huge := item("huge", TierStandard, math.MaxInt, 1, false)
	negative := item("negative", TierStandard, -2, 1, false)

	cmp := NewRanker(nil, nil)
	assert.Equal(t, -1, cmp(huge, negative))
	assert.Equal(t, 1, cmp(negative, huge))
}

func TestRankerInsertionOrderBeatsTitle(t *testing.T) {
	a := item("zebra", TierStandard, 400, 600, false)
	b := item("aardvark", TierStandard, 400, 600, false)

	order := map[uuid.UUID]int{a.ID: 0, b.ID: 1}
	cmp := NewRanker(order, nil)

	// Insertion position decides before the title does.
	assert.Equal(t, -1, cmp(a, b))
}

func TestRankerUnknownIDsSortLast(t *testing.T) {
	known := item("known", TierStandard, 400, 600, false)
	unknown := item("unknown", TierStandard, 400, 600, false)

	order := map[uuid.UUID]int{known.ID: 3}
	cmp := NewRanker(order, nil)

	assert.Equal(t, -1, cmp(known, unknown))
}

func TestRankerCustomTieBreak(t *testing.T) {
	a := item("a", TierStandard, 400, 600, false)
	b := item("b", TierStandard, 400, 600, false)

	relevance := map[uuid.UUID]int{a.ID: 10, b.ID: 90}
	custom := func(x, y RankItem) int { return relevance[y.ID] - relevance[x.ID] }

	cmp := NewRanker(map[uuid.UUID]int{a.ID: 0, b.ID: 1}, custom)

	// Custom relevance runs before insertion order.
	assert.Equal(t, 1, cmp(a, b))
}

func TestRankStableAcrossShuffles(t *testing.T) {
	items := []RankItem{
		item("first", TierHighResInternal, 800, 1200, true),
		item("second", TierHighRes, 800, 1200, false),
		item("third", TierStandard, 400, 600, false),
		item("tie-a", TierStandard, 300, 450, false),
		item("tie-b", TierStandard, 300, 450, false),
		item("worst", TierNone, 0, 0, false),
	}

	order := InsertionOrder(items)
	cmp := NewRanker(order, nil)

	rng := rand.New(rand.NewSource(7))
	var want []string
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]RankItem, len(items))
		copy(shuffled, items)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		// Unstable sort on purpose: the chain itself must be total
		// enough that stability is not load-bearing.
		sort.Slice(shuffled, func(i, j int) bool { return cmp(shuffled[i], shuffled[j]) < 0 })
		got := titles(shuffled)

		if want == nil {
			want = got
			require.Equal(t, []string{"first", "second", "third", "tie-a", "tie-b", "worst"}, got)
			continue
		}
		assert.Equal(t, want, got, "ordering changed on shuffled input")
	}
}

func TestRankDerivesInsertionOrder(t *testing.T) {
	items := []RankItem{
		item("tie-b", TierStandard, 400, 600, false),
		item("tie-a", TierStandard, 400, 600, false),
		item("best", TierHighRes, 800, 1200, false),
	}

	Rank(items, nil)

	// Ties keep their original relative positions.
	assert.Equal(t, []string{"best", "tie-b", "tie-a"}, titles(items))
}

func TestInsertionOrderKeepsFirstPosition(t *testing.T) {
	a := item("a", TierStandard, 400, 600, false)
	items := []RankItem{a, a}

	order := InsertionOrder(items)
	assert.Equal(t, map[uuid.UUID]int{a.ID: 0}, order)
}
