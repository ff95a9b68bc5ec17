package ecs

import (
	"iter"
	"math"
	"math/bits"
	"unsafe"
)

// QueryCombinationIter yields every k-combination of distinct matching
// entities, in lexicographic order of iteration position.
//
// Each cursor after the first starts as a clone of its left neighbour and is
// advanced once, so it always sits strictly after it. Advancing works right
// to left: when cursor i runs out, cursor i-1 moves and everything to its
// right is re-seeded from it.
type QueryCombinationIter[Q any] struct {
	state     *queryState
	world     *World
	cursors   []queryCursor
	buf       []Q
	exhausted bool
}

// IterCombinations iterates k-combinations of matching items.
func (s *QueryState[Q]) IterCombinations(w *World, k int) *QueryCombinationIter[Q] {
	return s.IterCombinationsWithTicks(w, k, w.LastChangeTick(), w.ChangeTick())
}

// IterCombinationsWithTicks is IterCombinations with explicit change detection ticks.
func (s *QueryState[Q]) IterCombinationsWithTicks(w *World, k int, lastRun, thisRun Tick) *QueryCombinationIter[Q] {
	invariant(k >= 0, "negative combination size %d", k)
	s.updateArchetypes(w)
	it := &QueryCombinationIter[Q]{
		state:     s.queryState,
		world:     w,
		cursors:   make([]queryCursor, k),
		buf:       make([]Q, k),
		exhausted: k == 0,
	}
	if k > 0 {
		it.cursors[0] = newQueryCursor(s.queryState, w, lastRun, thisRun)
		for i := 1; i < k; i++ {
			it.cursors[i] = newEmptyQueryCursor(s.queryState, w, lastRun, thisRun)
		}
	}
	return it
}

// advance positions the cursors on the next combination.
func (it *QueryCombinationIter[Q]) advance() bool {
	if it.exhausted {
		return false
	}
	k := len(it.cursors)

outer:
	for i := k - 1; i >= 0; i-- {
		if !it.cursors[i].advance() {
			continue
		}
		for j := i + 1; j < k; j++ {
			it.cursors[j] = it.cursors[j-1].clone()
			if !it.cursors[j].advance() {
				// Cursor j ran off the end right after being seeded, so
				// every position at or right of i is used up. Move i-1.
				continue outer
			}
		}
		return true
	}
	it.exhausted = true
	return false
}

// fetchNextAliasedUnchecked fills out with the current combination. The same
// entity never appears twice within one combination, but consecutive
// combinations share entities.
func (it *QueryCombinationIter[Q]) fetchNextAliasedUnchecked(out []Q) bool {
	if !it.advance() {
		return false
	}
	for i := range it.cursors {
		var zero Q
		out[i] = zero
		it.cursors[i].peekLast(unsafe.Pointer(&out[i]))
	}
	return true
}

// FetchNext returns the next combination. The slice is the iterator's buffer
// and is overwritten by the next call.
func (it *QueryCombinationIter[Q]) FetchNext() ([]Q, bool) {
	if !it.fetchNextAliasedUnchecked(it.buf) {
		return nil, false
	}
	return it.buf, true
}

// SizeHint bounds the number of combinations of the whole iteration. ok is
// false when the upper bound overflows int.
func (it *QueryCombinationIter[Q]) SizeHint() (lower, upper int, ok bool) {
	return combinationSizeHint(it.state, it.world, len(it.cursors))
}

func combinationSizeHint(s *queryState, w *World, k int) (lower, upper int, ok bool) {
	if k == 0 {
		return 0, 0, true
	}
	n := s.matchedLen(w)
	if n < k {
		return 0, 0, true
	}
	max, ok := choose(n, min(k, n-k))
	if !ok {
		max = math.MaxInt
	}
	if s.isArchetypal {
		return max, max, ok
	}
	return 0, max, ok
}

// choose computes the binomial coefficient C(n, k). Each step multiplies
// before dividing so every intermediate value is itself a binomial
// coefficient. ok is false on overflow.
func choose(n, k int) (int, bool) {
	acc := uint64(1)
	for i := 1; i <= k; i++ {
		hi, lo := bits.Mul64(acc, uint64(n-i+1))
		if hi != 0 {
			return 0, false
		}
		acc = lo / uint64(i)
	}
	if acc > math.MaxInt {
		return 0, false
	}
	return int(acc), true
}

// ReadOnlyCombinationIter is a QueryCombinationIter over a read-only query.
// Its combinations are freshly allocated and may be retained.
type ReadOnlyCombinationIter[Q any] struct {
	inner *QueryCombinationIter[Q]
}

// IterCombinationsReadOnly iterates k-combinations. It panics unless the
// query is read-only.
func (s *QueryState[Q]) IterCombinationsReadOnly(w *World, k int) *ReadOnlyCombinationIter[Q] {
	invariant(s.isReadOnly, "IterCombinationsReadOnly on query %s with write access", s.layout.typ)
	return &ReadOnlyCombinationIter[Q]{inner: s.IterCombinations(w, k)}
}

// Next returns the next combination.
func (it *ReadOnlyCombinationIter[Q]) Next() ([]Q, bool) {
	out := make([]Q, len(it.inner.cursors))
	if !it.inner.fetchNextAliasedUnchecked(out) {
		return nil, false
	}
	return out, true
}

// All iterates the remaining combinations.
func (it *ReadOnlyCombinationIter[Q]) All() iter.Seq[[]Q] {
	return func(yield func([]Q) bool) {
		for {
			combination, ok := it.Next()
			if !ok || !yield(combination) {
				return
			}
		}
	}
}

// SizeHint bounds the number of combinations of the whole iteration.
func (it *ReadOnlyCombinationIter[Q]) SizeHint() (lower, upper int, ok bool) {
	return it.inner.SizeHint()
}
