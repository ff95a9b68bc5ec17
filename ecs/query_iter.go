package ecs

import (
	"iter"
	"unsafe"
)

type cursorState uint8

const (
	cursorBeforeFirstBatch cursorState = iota
	cursorWithinBatch
	cursorExhausted
)

// queryCursor walks the matched tables (dense) or archetypes (sparse) of a
// query one row at a time. It holds ids and row indexes only and re-resolves
// storage whenever it enters a new batch.
type queryCursor struct {
	state   *queryState
	world   *World
	lastRun Tick
	thisRun Tick

	step    func(*queryCursor) bool
	status  cursorState
	batch   int
	index   int
	length  int
	table   *Table
	arch    *Archetype
	binding fetchBinding

	entity EntityId
	row    int
}

func newQueryCursor(s *queryState, w *World, lastRun, thisRun Tick) queryCursor {
	c := queryCursor{
		state:   s,
		world:   w,
		lastRun: lastRun,
		thisRun: thisRun,
		step:    (*queryCursor).stepSparse,
	}
	if s.isDense {
		c.step = (*queryCursor).stepDense
	}
	return c
}

// newEmptyQueryCursor returns a cursor that yields nothing until it is
// overwritten by a clone.
func newEmptyQueryCursor(s *queryState, w *World, lastRun, thisRun Tick) queryCursor {
	c := newQueryCursor(s, w, lastRun, thisRun)
	c.status = cursorExhausted
	return c
}

// clone copies the cursor's position. The clone owns its own binding.
func (c *queryCursor) clone() queryCursor {
	out := *c
	out.binding = c.binding.clone()
	return out
}

// advance moves to the next row that passes the filters without fetching it.
func (c *queryCursor) advance() bool {
	return c.step(c)
}

// next advances and fills out with the new row's item.
func (c *queryCursor) next(out unsafe.Pointer) bool {
	if !c.step(c) {
		return false
	}
	c.binding.fetch(c.state.layout, out, c.entity, c.row, c.thisRun)
	return true
}

// peekLast fills out with the item returned by the most recent next.
func (c *queryCursor) peekLast(out unsafe.Pointer) bool {
	if c.status != cursorWithinBatch || c.index == 0 {
		return false
	}
	c.binding.fetch(c.state.layout, out, c.entity, c.row, c.thisRun)
	return true
}

func (c *queryCursor) stepDense() bool {
	for {
		switch c.status {
		case cursorExhausted:
			return false
		case cursorWithinBatch:
			if c.index < c.length {
				row := c.index
				c.index++
				entity := c.table.entities[row]
				if !c.binding.matches(entity, row, c.lastRun, c.thisRun) {
					continue
				}
				c.entity, c.row = entity, row
				return true
			}
		}

		ids := c.state.matchedTableIds
		if c.batch >= len(ids) {
			c.status = cursorExhausted
			return false
		}
		c.table = c.world.storages.Tables.get(ids[c.batch])
		c.batch++
		c.binding.bind(c.state, c.world, c.table, nil)
		c.status = cursorWithinBatch
		c.index = 0
		c.length = c.table.Len()
	}
}

func (c *queryCursor) stepSparse() bool {
	for {
		switch c.status {
		case cursorExhausted:
			return false
		case cursorWithinBatch:
			if c.index < c.length {
				index := c.index
				c.index++
				entry := c.arch.entities[index]
				if !c.binding.matches(entry.Entity, entry.TableRow, c.lastRun, c.thisRun) {
					continue
				}
				c.entity, c.row = entry.Entity, entry.TableRow
				return true
			}
		}

		ids := c.state.matchedArchetypeIds
		if c.batch >= len(ids) {
			c.status = cursorExhausted
			return false
		}
		c.arch = c.world.archetypes.get(ids[c.batch])
		c.batch++
		c.table = c.world.storages.Tables.get(c.arch.tableId)
		c.binding.bind(c.state, c.world, c.table, c.arch)
		c.status = cursorWithinBatch
		c.index = 0
		c.length = c.arch.Len()
	}
}

// QueryIter iterates the items of a query. Each entity is visited at most
// once, in matched-archetype order and then row order. Items hold pointers
// into storage that stay valid until the next structural change.
type QueryIter[Q any] struct {
	cursor queryCursor
	state  *queryState
	world  *World
}

// Next returns the next item.
func (it *QueryIter[Q]) Next() (Q, bool) {
	var item Q
	ok := it.cursor.next(unsafe.Pointer(&item))
	return item, ok
}

// Entity returns the entity of the item most recently returned by Next.
func (it *QueryIter[Q]) Entity() EntityId {
	return it.cursor.entity
}

func (it *QueryIter[Q]) advance() bool {
	return it.cursor.advance()
}

// All iterates the remaining items along with their entities.
func (it *QueryIter[Q]) All() iter.Seq2[EntityId, Q] {
	return func(yield func(EntityId, Q) bool) {
		for {
			item, ok := it.Next()
			if !ok || !yield(it.cursor.entity, item) {
				return
			}
		}
	}
}

// Values iterates the remaining items.
func (it *QueryIter[Q]) Values() iter.Seq[Q] {
	return func(yield func(Q) bool) {
		for {
			item, ok := it.Next()
			if !ok || !yield(item) {
				return
			}
		}
	}
}

// SizeHint bounds the number of items of the whole iteration. The bounds
// are equal when the query has no row filters.
func (it *QueryIter[Q]) SizeHint() (lower, upper int) {
	upper = it.state.matchedLen(it.world)
	if it.state.isArchetypal {
		return upper, upper
	}
	return 0, upper
}
