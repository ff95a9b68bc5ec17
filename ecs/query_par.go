package ecs

import (
	"unsafe"

	"github.com/rotisserie/eris"
)

// TaskPool runs tasks concurrently. Scope calls fn with a spawn function,
// waits for every spawned task and returns the first task error.
type TaskPool interface {
	Scope(fn func(spawn func(task func() error))) error
}

// parBatch is a contiguous range of one table (dense) or archetype (sparse).
type parBatch struct {
	table     *Table
	archetype *Archetype
	start     int
	end       int
}

// ParForEach calls fn for every matching item, spreading batches of at most
// batchSize rows over pool. A batchSize <= 0 uses the world's configured
// default. fn must not make structural changes to the world; queue them on
// a Commands buffer instead. Items of a write query are disjoint across
// tasks because every entity lives in exactly one batch.
func (s *QueryState[Q]) ParForEach(w *World, pool TaskPool, batchSize int, fn func(Q) error) error {
	return s.ParForEachWithTicks(w, pool, batchSize, w.LastChangeTick(), w.ChangeTick(), fn)
}

// ParForEachWithTicks is ParForEach with explicit change detection ticks.
func (s *QueryState[Q]) ParForEachWithTicks(w *World, pool TaskPool, batchSize int, lastRun, thisRun Tick, fn func(Q) error) error {
	s.updateArchetypes(w)
	if batchSize <= 0 {
		batchSize = w.config.DefaultBatchSize
	}

	batches := s.parBatches(w, batchSize)
	w.logger.Trace().
		Str("query", s.layout.typ.String()).
		Int("batches", len(batches)).
		Int("batch_size", batchSize).
		Msg("parallel query")

	err := pool.Scope(func(spawn func(task func() error)) {
		for _, batch := range batches {
			spawn(func() error {
				return s.runBatch(w, batch, lastRun, thisRun, fn)
			})
		}
	})
	return eris.Wrapf(err, "par for each over %s", s.layout.typ)
}

func (s *queryState) parBatches(w *World, batchSize int) []parBatch {
	var batches []parBatch
	split := func(table *Table, archetype *Archetype, n int) {
		for start := 0; start < n; start += batchSize {
			batches = append(batches, parBatch{
				table:     table,
				archetype: archetype,
				start:     start,
				end:       min(start+batchSize, n),
			})
		}
	}

	if s.isDense {
		for _, id := range s.matchedTableIds {
			table := w.storages.Tables.get(id)
			split(table, nil, table.Len())
		}
		return batches
	}
	for _, id := range s.matchedArchetypeIds {
		archetype := w.archetypes.get(id)
		split(w.storages.Tables.get(archetype.tableId), archetype, archetype.Len())
	}
	return batches
}

func (s *QueryState[Q]) runBatch(w *World, batch parBatch, lastRun, thisRun Tick, fn func(Q) error) error {
	var binding fetchBinding
	binding.bind(s.queryState, w, batch.table, batch.archetype)

	for i := batch.start; i < batch.end; i++ {
		var entity EntityId
		row := i
		if batch.archetype != nil {
			entry := batch.archetype.entities[i]
			entity, row = entry.Entity, entry.TableRow
		} else {
			entity = batch.table.entities[i]
		}
		if !binding.matches(entity, row, lastRun, thisRun) {
			continue
		}
		var item Q
		binding.fetch(s.layout, unsafe.Pointer(&item), entity, row, thisRun)
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}
