package ecs

import (
	"errors"
	"reflect"

	"github.com/rotisserie/eris"
)

// Commands provides a buffer for deferred world operations that are applied at the end of a frame.
// This keeps structural changes out of running query iterations.
type Commands struct {
	spawns    []spawnCommand
	despawns  []EntityId
	inserts   []insertCommand
	removes   []removeCommand
	resources []func(*World)
	defers    []deferCommand
}

// NewCommands returns an empty buffer.
func NewCommands() *Commands {
	return &Commands{}
}

type deferCommand struct {
	fn func(*World)
}

type spawnCommand struct {
	components []any
}

type insertCommand struct {
	entity     EntityId
	components []any
}

type removeCommand struct {
	entity EntityId
	types  []reflect.Type
}

// Defer queues a function to run against the world.
func (c *Commands) Defer(fn func(*World)) {
	c.defers = append(c.defers, deferCommand{fn: fn})
}

// Spawn queues an entity spawn with the given components.
func (c *Commands) Spawn(components ...any) {
	c.spawns = append(c.spawns, spawnCommand{components: components})
}

// Despawn queues an entity despawn.
func (c *Commands) Despawn(entity EntityId) {
	c.despawns = append(c.despawns, entity)
}

// Insert queues adding or overwriting components on an entity.
func (c *Commands) Insert(entity EntityId, components ...any) {
	c.inserts = append(c.inserts, insertCommand{entity: entity, components: components})
}

// Remove queues removing components from an entity.
func (c *Commands) Remove(entity EntityId, types ...reflect.Type) {
	c.removes = append(c.removes, removeCommand{entity: entity, types: types})
}

// QueueInsertResource queues storing value as the world's T.
func QueueInsertResource[T any](c *Commands, value T) {
	c.resources = append(c.resources, func(w *World) {
		InsertResource(w, value)
	})
}

// Len is the number of queued operations.
func (c *Commands) Len() int {
	return len(c.spawns) + len(c.despawns) + len(c.inserts) + len(c.removes) + len(c.resources) + len(c.defers)
}

// Flush applies the buffer to the world and resets it. Operations on
// entities despawned by the same buffer are skipped; failures on other
// entities are collected and returned together.
func (c *Commands) Flush(w *World) error {
	var errs []error
	despawned := make(map[EntityId]bool, len(c.despawns))

	for _, entity := range c.despawns {
		if !w.Despawn(entity) {
			errs = append(errs, eris.Wrapf(ErrEntityNotFound, "despawn %v", entity))
		}
		despawned[entity] = true
	}

	for _, cmd := range c.removes {
		if despawned[cmd.entity] {
			continue
		}
		if err := w.Remove(cmd.entity, cmd.types...); err != nil {
			errs = append(errs, err)
		}
	}

	for _, cmd := range c.inserts {
		if despawned[cmd.entity] {
			continue
		}
		if err := w.Insert(cmd.entity, cmd.components...); err != nil {
			errs = append(errs, err)
		}
	}

	for _, cmd := range c.spawns {
		w.Spawn(cmd.components...)
	}

	for _, fn := range c.resources {
		fn(w)
	}

	for _, df := range c.defers {
		df.fn(w)
	}

	w.logger.Trace().
		Int("spawns", len(c.spawns)).
		Int("despawns", len(c.despawns)).
		Int("inserts", len(c.inserts)).
		Int("removes", len(c.removes)).
		Int("errors", len(errs)).
		Msg("flushed commands")

	c.spawns = c.spawns[:0]
	c.despawns = c.despawns[:0]
	c.inserts = c.inserts[:0]
	c.removes = c.removes[:0]
	c.resources = c.resources[:0]
	c.defers = c.defers[:0]

	return errors.Join(errs...)
}
