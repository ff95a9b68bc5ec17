package ecs

import (
	"fmt"
	"math"
)

// EntityId encodes both the slot index (lower 32 bits) and the slot generation (upper 32 bits).
// Generations start at 1, so the zero EntityId never refers to a live entity.
type EntityId uint64

// NewEntityId creates an EntityId from a slot index and generation
func NewEntityId(index uint32, generation uint32) EntityId {
	return EntityId(uint64(generation)<<32 | uint64(index))
}

// Index extracts the slot index from the entity ID
func (e EntityId) Index() uint32 {
	return uint32(e & 0xFFFFFFFF)
}

// Generation extracts the slot generation from the entity ID
func (e EntityId) Generation() uint32 {
	return uint32(e >> 32)
}

func (e EntityId) String() string {
	return fmt.Sprintf("%dv%d", e.Index(), e.Generation())
}

// EntityLocation is where a live entity sits: its archetype and its index in that archetype's entity list.
type EntityLocation struct {
	ArchetypeId ArchetypeId
	Index       int
}

type entityMeta struct {
	generation uint32
	alive      bool
	location   EntityLocation
}

// Entities allocates entity ids and tracks their locations. Freed slots are
// recycled with a bumped generation so stale ids never resolve.
type Entities struct {
	meta     []entityMeta
	freeList []uint32
	live     int
}

func newEntities(capacity int) Entities {
	return Entities{meta: make([]entityMeta, 0, capacity)}
}

func (e *Entities) alloc() EntityId {
	e.live++
	if n := len(e.freeList); n > 0 {
		index := e.freeList[n-1]
		e.freeList = e.freeList[:n-1]
		meta := &e.meta[index]
		meta.alive = true
		return NewEntityId(index, meta.generation)
	}

	if uint64(len(e.meta)) >= math.MaxUint32 {
		panic("too many entities")
	}
	index := uint32(len(e.meta))
	e.meta = append(e.meta, entityMeta{generation: 1, alive: true})
	return NewEntityId(index, 1)
}

// free releases the slot and returns the location the entity occupied.
func (e *Entities) free(id EntityId) (EntityLocation, bool) {
	meta, ok := e.lookup(id)
	if !ok {
		return EntityLocation{}, false
	}
	location := meta.location
	meta.alive = false
	meta.generation++
	if meta.generation == 0 {
		meta.generation = 1
	}
	meta.location = EntityLocation{ArchetypeId: InvalidArchetypeId}
	e.freeList = append(e.freeList, id.Index())
	e.live--
	return location, true
}

func (e *Entities) lookup(id EntityId) (*entityMeta, bool) {
	index := id.Index()
	if int(index) >= len(e.meta) {
		return nil, false
	}
	meta := &e.meta[index]
	if !meta.alive || meta.generation != id.Generation() {
		return nil, false
	}
	return meta, true
}

// Get returns the location of a live entity.
func (e *Entities) Get(id EntityId) (EntityLocation, bool) {
	meta, ok := e.lookup(id)
	if !ok {
		return EntityLocation{}, false
	}
	return meta.location, true
}

// Contains reports whether the id refers to a live entity.
func (e *Entities) Contains(id EntityId) bool {
	_, ok := e.lookup(id)
	return ok
}

func (e *Entities) setLocation(id EntityId, location EntityLocation) {
	meta, ok := e.lookup(id)
	invariant(ok, "entity %v is not alive", id)
	meta.location = location
}

// Len returns the number of live entities.
func (e *Entities) Len() int {
	return e.live
}
