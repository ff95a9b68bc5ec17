package ecs

import (
	"iter"
	"unsafe"
)

// QueryManyIter fetches the items of an explicit list of entities. Entities
// that are dead or do not match are skipped. The list may repeat an entity,
// so FetchNext hands out a single buffer that each call overwrites.
type QueryManyIter[Q any] struct {
	state    *queryState
	world    *World
	entities []EntityId
	pos      int
	lastRun  Tick
	thisRun  Tick
	binding  fetchBinding
	bound    ArchetypeId
	buf      Q
}

// IterMany iterates the items of entities, in list order.
func (s *QueryState[Q]) IterMany(w *World, entities []EntityId) *QueryManyIter[Q] {
	return s.IterManyWithTicks(w, entities, w.LastChangeTick(), w.ChangeTick())
}

// IterManyWithTicks is IterMany with explicit change detection ticks.
func (s *QueryState[Q]) IterManyWithTicks(w *World, entities []EntityId, lastRun, thisRun Tick) *QueryManyIter[Q] {
	s.updateArchetypes(w)
	return &QueryManyIter[Q]{
		state:    s.queryState,
		world:    w,
		entities: entities,
		lastRun:  lastRun,
		thisRun:  thisRun,
		bound:    InvalidArchetypeId,
	}
}

// fetchNextAliasedUnchecked writes the next item into out. Callers must not
// let two results for the same entity be used for writing at once.
func (it *QueryManyIter[Q]) fetchNextAliasedUnchecked(out *Q) bool {
	for it.pos < len(it.entities) {
		entity := it.entities[it.pos]
		it.pos++
		if it.state.fetchEntity(it.world, &it.binding, &it.bound, entity, unsafe.Pointer(out), it.lastRun, it.thisRun) {
			return true
		}
	}
	return false
}

// FetchNext returns the next item. The pointer is the iterator's buffer and
// its contents are replaced by the next call, so no two items obtained this
// way are live together.
func (it *QueryManyIter[Q]) FetchNext() (*Q, bool) {
	var zero Q
	it.buf = zero
	if !it.fetchNextAliasedUnchecked(&it.buf) {
		return nil, false
	}
	return &it.buf, true
}

// ReadOnlyManyIter is a QueryManyIter over a query without write access.
// Since its items cannot be written through, they may be held freely.
type ReadOnlyManyIter[Q any] struct {
	inner *QueryManyIter[Q]
}

// IterManyReadOnly iterates the items of entities. It panics unless the
// query is read-only.
func (s *QueryState[Q]) IterManyReadOnly(w *World, entities []EntityId) *ReadOnlyManyIter[Q] {
	invariant(s.isReadOnly, "IterManyReadOnly on query %s with write access", s.layout.typ)
	return &ReadOnlyManyIter[Q]{inner: s.IterMany(w, entities)}
}

// Next returns the next item.
func (it *ReadOnlyManyIter[Q]) Next() (Q, bool) {
	var item Q
	ok := it.inner.fetchNextAliasedUnchecked(&item)
	return item, ok
}

// All iterates the remaining items.
func (it *ReadOnlyManyIter[Q]) All() iter.Seq[Q] {
	return func(yield func(Q) bool) {
		for {
			item, ok := it.Next()
			if !ok || !yield(item) {
				return
			}
		}
	}
}

// SizeHint bounds the remaining items.
func (it *ReadOnlyManyIter[Q]) SizeHint() (lower, upper int) {
	return 0, len(it.inner.entities) - it.inner.pos
}
