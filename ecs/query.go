package ecs

import (
	"iter"
)

// SystemTicks are the change detection ticks of one system run. The
// scheduler updates them before and after every Execute.
type SystemTicks struct {
	LastRun Tick
	ThisRun Tick
}

// SystemParam is implemented by system struct fields that need the world.
// The scheduler calls Init once, when the system is registered.
type SystemParam interface {
	Init(world *World, ticks *SystemTicks)
}

// Query is a QueryState bound to a world and a system's ticks, meant to be
// declared as a system field. Change filters compare against the system's
// previous run.
type Query[Q any] struct {
	state *QueryState[Q]
	world *World
	ticks *SystemTicks
}

// NewQuery builds a query outside of a scheduler. It tracks changes relative
// to the world's last ClearTrackers.
func NewQuery[Q any](w *World, filters ...Filter) *Query[Q] {
	q := &Query[Q]{}
	q.init(w, nil, filters)
	return q
}

// Init binds the query to a world. Called by the Scheduler during system registration.
func (q *Query[Q]) Init(world *World, ticks *SystemTicks) {
	q.init(world, ticks, nil)
}

func (q *Query[Q]) init(world *World, ticks *SystemTicks, filters []Filter) {
	q.state = NewQueryState[Q](world, filters...)
	q.world = world
	q.ticks = ticks
}

func (q *Query[Q]) runTicks() (Tick, Tick) {
	if q.ticks == nil {
		return q.world.LastChangeTick(), q.world.ChangeTick()
	}
	return q.ticks.LastRun, q.ticks.ThisRun
}

// State exposes the underlying QueryState.
func (q *Query[Q]) State() *QueryState[Q] {
	return q.state
}

// Iter returns an iterator over entity IDs and items.
func (q *Query[Q]) Iter() iter.Seq2[EntityId, Q] {
	lastRun, thisRun := q.runTicks()
	return q.state.IterWithTicks(q.world, lastRun, thisRun).All()
}

// Values returns an iterator over items only.
func (q *Query[Q]) Values() iter.Seq[Q] {
	lastRun, thisRun := q.runTicks()
	return q.state.IterWithTicks(q.world, lastRun, thisRun).Values()
}

// Get fetches the item of one entity.
func (q *Query[Q]) Get(entity EntityId) (Q, bool) {
	lastRun, thisRun := q.runTicks()
	return q.state.GetWithTicks(q.world, entity, lastRun, thisRun)
}

// Contains reports whether entity matches the query without fetching it.
func (q *Query[Q]) Contains(entity EntityId) bool {
	lastRun, thisRun := q.runTicks()
	return q.state.ContainsWithTicks(q.world, entity, lastRun, thisRun)
}

// Many iterates the items of the listed entities.
func (q *Query[Q]) Many(entities []EntityId) *QueryManyIter[Q] {
	lastRun, thisRun := q.runTicks()
	return q.state.IterManyWithTicks(q.world, entities, lastRun, thisRun)
}

// Combinations iterates k-combinations of matching items.
func (q *Query[Q]) Combinations(k int) *QueryCombinationIter[Q] {
	lastRun, thisRun := q.runTicks()
	return q.state.IterCombinationsWithTicks(q.world, k, lastRun, thisRun)
}

// ParForEach runs fn over every item on pool.
func (q *Query[Q]) ParForEach(pool TaskPool, batchSize int, fn func(Q) error) error {
	lastRun, thisRun := q.runTicks()
	return q.state.ParForEachWithTicks(q.world, pool, batchSize, lastRun, thisRun, fn)
}

// Count returns the number of matching entities.
func (q *Query[Q]) Count() int {
	lastRun, thisRun := q.runTicks()
	return q.state.CountWithTicks(q.world, lastRun, thisRun)
}
