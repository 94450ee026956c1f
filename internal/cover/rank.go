package cover

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// RankItem is one entry in a ranking batch: the book's identity, its
// resolved cover, and the tier the Scorer assigned. The ranker never
// touches the underlying book.
type RankItem struct {
	ID    uuid.UUID
	Title string
	Cover ResolvedCover
	Tier  QualityTier
}

// CompareFunc orders two items, returning a negative value when a sorts
// before b, positive when after, zero on a tie. Compatible with
// sort.Slice and slices.SortFunc.
type CompareFunc func(a, b RankItem) int

// tieBreak is one link in the comparison chain. Keeping the chain as an
// explicit ordered list means a new key slots in without restructuring
// the comparisons around it, and each key is testable on its own.
type tieBreak struct {
	name string
	cmp  CompareFunc
}

// NewRanker builds the comparator for one ranking batch.
//
// insertionOrder maps item ID to its original position in the batch and
// is the stability anchor: identical input sets produce identical output
// orders even when the input list arrives shuffled. IDs missing from the
// map sort last among otherwise-equal items; a nil map is treated as
// empty, not rejected. custom is an optional caller tie-break (a
// relevance ordering, say) injected between the structural keys and the
// stability keys; nil skips it.
//
// The full chain, best first:
//
//	quality tier desc, total pixels desc, height desc, width desc,
//	internally-stored desc, custom, insertion position asc, title asc.
//
// The result is a total, side-effect-free ordering: it consults no
// mutable state, so repeated calls over the same inputs always agree.
func NewRanker(insertionOrder map[uuid.UUID]int, custom CompareFunc) CompareFunc {
	if insertionOrder == nil {
		insertionOrder = map[uuid.UUID]int{}
	}

	chain := []tieBreak{
		{"tier", func(a, b RankItem) int { return descInt(int(a.Tier), int(b.Tier)) }},
		{"pixels", func(a, b RankItem) int { return descInt(a.Cover.Pixels(), b.Cover.Pixels()) }},
		{"height", func(a, b RankItem) int { return descInt(a.Cover.Height, b.Cover.Height) }},
		{"width", func(a, b RankItem) int { return descInt(a.Cover.Width, b.Cover.Width) }},
		{"internal", func(a, b RankItem) int {
			return descInt(boolToInt(a.Cover.FromInternalStorage), boolToInt(b.Cover.FromInternalStorage))
		}},
	}
	if custom != nil {
		chain = append(chain, tieBreak{"custom", custom})
	}
	chain = append(chain,
		tieBreak{"insertion", func(a, b RankItem) int {
			return ascInt(positionOf(insertionOrder, a.ID), positionOf(insertionOrder, b.ID))
		}},
		tieBreak{"title", func(a, b RankItem) int { return strings.Compare(a.Title, b.Title) }},
	)

	return func(a, b RankItem) int {
		for _, tb := range chain {
			if c := tb.cmp(a, b); c != 0 {
				return sign(c)
			}
		}
		return 0
	}
}

// Rank sorts items in place, best cover first, deriving the insertion
// order from the slice positions as given.
func Rank(items []RankItem, custom CompareFunc) {
	cmp := NewRanker(InsertionOrder(items), custom)
	sort.SliceStable(items, func(i, j int) bool {
		return cmp(items[i], items[j]) < 0
	})
}

// InsertionOrder builds the id-to-position map for one batch. Each
// ranking call gets its own map; it is never ambient state.
func InsertionOrder(items []RankItem) map[uuid.UUID]int {
	order := make(map[uuid.UUID]int, len(items))
	for i, it := range items {
		if _, seen := order[it.ID]; !seen {
			order[it.ID] = i
		}
	}
	return order
}

func positionOf(order map[uuid.UUID]int, id uuid.UUID) int {
	if pos, ok := order[id]; ok && pos >= 0 {
		return pos
	}
	return math.MaxInt
}

// Branch compares instead of subtraction: the insertion sentinel is
// MaxInt and pixel counts on large inputs get close enough to overflow.
func descInt(a, b int) int {
	switch {
	case b < a:
		return -1
	case b > a:
		return 1
	}
	return 0
}

func ascInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sign(c int) int {
	switch {
	case c < 0:
		return -1
	case c > 0:
		return 1
	}
	return 0
}
