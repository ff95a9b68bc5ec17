package ecs

import (
	"slices"

	"github.com/kamstrup/intmap"
)

// Access records which ids something reads and writes.
type Access[T intmap.IntKey] struct {
	reads  *intmap.Set[T]
	writes *intmap.Set[T]
}

// NewAccess returns an empty access set.
func NewAccess[T intmap.IntKey]() Access[T] {
	return Access[T]{
		reads:  intmap.NewSet[T](8),
		writes: intmap.NewSet[T](8),
	}
}

func (a *Access[T]) AddRead(id T)  { a.reads.Add(id) }
func (a *Access[T]) AddWrite(id T) { a.writes.Add(id) }

// HasRead reports read or write access to id.
func (a *Access[T]) HasRead(id T) bool  { return a.reads.Has(id) || a.writes.Has(id) }
func (a *Access[T]) HasWrite(id T) bool { return a.writes.Has(id) }

// Extend adds everything other accesses.
func (a *Access[T]) Extend(other Access[T]) {
	for id := range other.reads.All() {
		a.reads.Add(id)
	}
	for id := range other.writes.All() {
		a.writes.Add(id)
	}
}

// IsCompatible reports whether a and other can be used at the same time:
// neither writes anything the other touches.
func (a *Access[T]) IsCompatible(other Access[T]) bool {
	for id := range a.writes.All() {
		if other.reads.Has(id) || other.writes.Has(id) {
			return false
		}
	}
	for id := range other.writes.All() {
		if a.reads.Has(id) {
			return false
		}
	}
	return true
}

// Reads returns the ids read but not written, sorted.
func (a *Access[T]) Reads() []T {
	var out []T
	for id := range a.reads.All() {
		if !a.writes.Has(id) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Writes returns the written ids, sorted.
func (a *Access[T]) Writes() []T {
	out := slices.Collect(a.writes.All())
	slices.Sort(out)
	return out
}

// FilteredAccess is an Access plus the With/Without constraints that decide
// which archetypes it applies to. Two filtered accesses that conflict on
// paper are still compatible when their constraints are disjoint.
type FilteredAccess[T intmap.IntKey] struct {
	access  Access[T]
	with    *intmap.Set[T]
	without *intmap.Set[T]
}

// NewFilteredAccess returns an empty filtered access.
func NewFilteredAccess[T intmap.IntKey]() FilteredAccess[T] {
	return FilteredAccess[T]{
		access:  NewAccess[T](),
		with:    intmap.NewSet[T](8),
		without: intmap.NewSet[T](8),
	}
}

func (f *FilteredAccess[T]) Access() *Access[T] { return &f.access }

// AddRead records a read that the matched archetypes must have.
func (f *FilteredAccess[T]) AddRead(id T) {
	f.access.AddRead(id)
	f.with.Add(id)
}

// AddWrite records a write that the matched archetypes must have.
func (f *FilteredAccess[T]) AddWrite(id T) {
	f.access.AddWrite(id)
	f.with.Add(id)
}

func (f *FilteredAccess[T]) AddWith(id T)    { f.with.Add(id) }
func (f *FilteredAccess[T]) AddWithout(id T) { f.without.Add(id) }

// IsCompatible reports whether f and other can run at the same time.
func (f *FilteredAccess[T]) IsCompatible(other FilteredAccess[T]) bool {
	if f.access.IsCompatible(other.access) {
		return true
	}
	for id := range f.with.All() {
		if other.without.Has(id) {
			return true
		}
	}
	for id := range f.without.All() {
		if other.with.Has(id) {
			return true
		}
	}
	return false
}
