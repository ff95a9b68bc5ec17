package ecs

import (
	"unsafe"

	"github.com/kamstrup/intmap"
)

// ComponentSparseSet stores one sparse-set component for every entity that has it.
// Values stay densely packed; sparse maps an entity index to its dense row.
type ComponentSparseSet struct {
	dense    *Column
	entities []EntityId
	sparse   *intmap.Map[uint32, int]
}

func newComponentSparseSet(info *ComponentInfo, capacity int) *ComponentSparseSet {
	return &ComponentSparseSet{
		dense:    newColumn(info, capacity),
		entities: make([]EntityId, 0, capacity),
		sparse:   intmap.New[uint32, int](capacity),
	}
}

func (s *ComponentSparseSet) Len() int      { return len(s.entities) }
func (s *ComponentSparseSet) IsEmpty() bool { return len(s.entities) == 0 }

func (s *ComponentSparseSet) Contains(entity EntityId) bool {
	_, ok := s.denseIndex(entity)
	return ok
}

func (s *ComponentSparseSet) denseIndex(entity EntityId) (int, bool) {
	row, ok := s.sparse.Get(entity.Index())
	if !ok || s.entities[row] != entity {
		return 0, false
	}
	return row, true
}

// insert stores value for entity. Overwriting an existing value drops it and
// stamps only the changed tick.
func (s *ComponentSparseSet) insert(entity EntityId, value any, changeTick Tick) {
	if row, ok := s.denseIndex(entity); ok {
		s.dense.replace(row, value, changeTick)
		return
	}
	s.sparse.Put(entity.Index(), len(s.entities))
	s.entities = append(s.entities, entity)
	s.dense.push(value, newComponentTicks(changeTick))
}

func (s *ComponentSparseSet) get(entity EntityId) (unsafe.Pointer, bool) {
	row, ok := s.denseIndex(entity)
	if !ok {
		return nil, false
	}
	return s.dense.ptr(row), true
}

func (s *ComponentSparseSet) getTicks(entity EntityId) (ComponentTicks, bool) {
	row, ok := s.denseIndex(entity)
	if !ok {
		return ComponentTicks{}, false
	}
	return s.dense.ticks(row), true
}

func (s *ComponentSparseSet) markChanged(entity EntityId, changeTick Tick) {
	if row, ok := s.denseIndex(entity); ok {
		s.dense.markChanged(row, changeTick)
	}
}

func (s *ComponentSparseSet) detach(row int) {
	last := len(s.entities) - 1
	s.sparse.Del(s.entities[row].Index())
	if row != last {
		moved := s.entities[last]
		s.entities[row] = moved
		s.sparse.Put(moved.Index(), row)
	}
	s.entities = s.entities[:last]
}

// remove drops the entity's value. It reports whether there was one.
func (s *ComponentSparseSet) remove(entity EntityId) bool {
	row, ok := s.denseIndex(entity)
	if !ok {
		return false
	}
	s.dense.swapRemove(row)
	s.detach(row)
	return true
}

// removeAndForget removes the entity's value and returns it without dropping.
func (s *ComponentSparseSet) removeAndForget(entity EntityId) (any, bool) {
	row, ok := s.denseIndex(entity)
	if !ok {
		return nil, false
	}
	value, _ := s.dense.swapRemoveAndForget(row)
	s.detach(row)
	return value, true
}

func (s *ComponentSparseSet) checkChangeTicks(changeTick Tick) {
	s.dense.checkChangeTicks(changeTick)
}

// SparseSets owns one sparse set per sparse-set component that has been used.
type SparseSets struct {
	sets *intmap.Map[ComponentId, *ComponentSparseSet]
}

func newSparseSets() SparseSets {
	return SparseSets{sets: intmap.New[ComponentId, *ComponentSparseSet](16)}
}

// Get returns the sparse set of a component, if it was created.
func (s *SparseSets) Get(id ComponentId) (*ComponentSparseSet, bool) {
	return s.sets.Get(id)
}

func (s *SparseSets) Len() int { return s.sets.Len() }

func (s *SparseSets) getOrInsert(info *ComponentInfo, capacity int) *ComponentSparseSet {
	if set, ok := s.sets.Get(info.id); ok {
		return set
	}
	set := newComponentSparseSet(info, capacity)
	s.sets.Put(info.id, set)
	return set
}

func (s *SparseSets) checkChangeTicks(changeTick Tick) {
	for _, set := range s.sets.All() {
		set.checkChangeTicks(changeTick)
	}
}
