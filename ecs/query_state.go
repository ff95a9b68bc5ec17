package ecs

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/kamstrup/intmap"
)

// queryState is the type-erased part of a QueryState.
type queryState struct {
	worldId uint64
	layout  *fetchLayout
	filters []resolvedFilter

	matchedArchetypeIds []ArchetypeId
	matchedTableIds     []TableId
	matchedArchetypes   *intmap.Set[ArchetypeId]
	matchedTables       *intmap.Set[TableId]
	generation          ArchetypeGeneration

	componentAccess          FilteredAccess[ComponentId]
	archetypeComponentAccess Access[ArchetypeComponentId]

	isDense      bool
	isArchetypal bool
	isReadOnly   bool
}

func newQueryState(w *World, itemType reflect.Type, filters []Filter) *queryState {
	if withFilters, ok := reflect.Zero(itemType).Interface().(QueryFilters); ok {
		filters = append(withFilters.Filters(), filters...)
	}

	s := &queryState{
		worldId:                  w.id,
		layout:                   newFetchLayout(w.registry, itemType),
		matchedArchetypes:        intmap.NewSet[ArchetypeId](16),
		matchedTables:            intmap.NewSet[TableId](16),
		componentAccess:          NewFilteredAccess[ComponentId](),
		archetypeComponentAccess: NewAccess[ArchetypeComponentId](),
	}
	s.layout.checkConflicts(w.registry)

	for _, f := range filters {
		s.filters = append(s.filters, resolveFilter(w.registry, f))
	}

	s.isDense = s.layout.isDense()
	s.isArchetypal = true
	s.isReadOnly = s.layout.isReadOnly()
	for i := range s.filters {
		s.isDense = s.isDense && s.filters[i].isDense()
		s.isArchetypal = s.isArchetypal && s.filters[i].isArchetypal()
	}

	for _, term := range s.layout.terms {
		switch {
		case term.kind == termEntity:
		case term.optional && term.kind == termRead:
			s.componentAccess.access.AddRead(term.componentId)
		case term.optional:
			s.componentAccess.access.AddWrite(term.componentId)
		case term.kind == termRead:
			s.componentAccess.AddRead(term.componentId)
		default:
			s.componentAccess.AddWrite(term.componentId)
		}
	}
	for i := range s.filters {
		s.filters[i].updateAccess(&s.componentAccess)
	}

	s.updateArchetypes(w)
	return s
}

func (s *queryState) validateWorld(w *World) {
	invariant(s.worldId == w.id, "query built for world %d used with world %d", s.worldId, w.id)
}

// updateArchetypes matches archetypes created since the last call.
func (s *queryState) updateArchetypes(w *World) {
	s.validateWorld(w)
	if s.generation == w.archetypes.Generation() {
		return
	}
	for _, archetype := range w.archetypes.since(s.generation) {
		s.newArchetype(archetype)
	}
	s.generation = w.archetypes.Generation()
}

func (s *queryState) matchesArchetype(archetype *Archetype) bool {
	if !s.layout.matchesComponents(archetype) {
		return false
	}
	for i := range s.filters {
		if !s.filters[i].matchesComponents(archetype) {
			return false
		}
	}
	return true
}

func (s *queryState) newArchetype(archetype *Archetype) {
	if !s.matchesArchetype(archetype) {
		return
	}

	for _, term := range s.layout.terms {
		if term.kind == termEntity {
			continue
		}
		id, ok := archetype.ArchetypeComponentId(term.componentId)
		if !ok {
			continue
		}
		if term.kind == termWrite {
			s.archetypeComponentAccess.AddWrite(id)
		} else {
			s.archetypeComponentAccess.AddRead(id)
		}
	}
	for i := range s.filters {
		s.filters[i].reads(func(component ComponentId) {
			if id, ok := archetype.ArchetypeComponentId(component); ok {
				s.archetypeComponentAccess.AddRead(id)
			}
		})
	}

	if !s.matchedArchetypes.Has(archetype.id) {
		s.matchedArchetypes.Add(archetype.id)
		s.matchedArchetypeIds = append(s.matchedArchetypeIds, archetype.id)
	}
	if !s.matchedTables.Has(archetype.tableId) {
		s.matchedTables.Add(archetype.tableId)
		s.matchedTableIds = append(s.matchedTableIds, archetype.tableId)
	}
}

// matchedLen is the number of entities in matched archetypes, before row filters.
func (s *queryState) matchedLen(w *World) int {
	n := 0
	for _, id := range s.matchedArchetypeIds {
		n += w.archetypes.get(id).Len()
	}
	return n
}

// matchEntity binds to the entity's archetype and returns its table row when
// the entity passes the archetype match and the row filters.
func (s *queryState) matchEntity(w *World, binding *fetchBinding, bound *ArchetypeId, entity EntityId, lastRun, thisRun Tick) (int, bool) {
	location, ok := w.entities.Get(entity)
	if !ok || !s.matchedArchetypes.Has(location.ArchetypeId) {
		return 0, false
	}
	archetype := w.archetypes.get(location.ArchetypeId)
	if *bound != location.ArchetypeId {
		binding.bind(s, w, w.storages.Tables.get(archetype.tableId), archetype)
		*bound = location.ArchetypeId
	}
	row := archetype.entities[location.Index].TableRow
	if !binding.matches(entity, row, lastRun, thisRun) {
		return 0, false
	}
	return row, true
}

// fetchEntity fills out for one entity, checking archetype match and row filters.
func (s *queryState) fetchEntity(w *World, binding *fetchBinding, bound *ArchetypeId, entity EntityId, out unsafe.Pointer, lastRun, thisRun Tick) bool {
	row, ok := s.matchEntity(w, binding, bound, entity, lastRun, thisRun)
	if !ok {
		return false
	}
	binding.fetch(s.layout, out, entity, row, thisRun)
	return true
}

// QueryState is a prepared query over items of type Q. Build it once and
// iterate it many times; it picks up new archetypes incrementally.
type QueryState[Q any] struct {
	*queryState
}

// NewQueryState prepares a query. Q must be a struct describing the fetch
// (see the field rules on the package's query item types). It panics when Q
// asks for conflicting access to the same component.
func NewQueryState[Q any](w *World, filters ...Filter) *QueryState[Q] {
	return &QueryState[Q]{queryState: newQueryState(w, reflect.TypeFor[Q](), filters)}
}

// UpdateArchetypes matches archetypes created since the last update.
func (s *QueryState[Q]) UpdateArchetypes(w *World) {
	s.updateArchetypes(w)
}

// MatchedArchetypeIds returns the matched archetypes in the order they were matched.
func (s *QueryState[Q]) MatchedArchetypeIds() []ArchetypeId { return s.matchedArchetypeIds }

// MatchedTableIds returns the matched tables in the order they were matched.
func (s *QueryState[Q]) MatchedTableIds() []TableId { return s.matchedTableIds }

// ComponentAccess is what the query reads and writes at the component level.
func (s *QueryState[Q]) ComponentAccess() *FilteredAccess[ComponentId] {
	return &s.componentAccess
}

// ArchetypeComponentAccess is what the query touches in the archetypes it matched so far.
func (s *QueryState[Q]) ArchetypeComponentAccess() *Access[ArchetypeComponentId] {
	return &s.archetypeComponentAccess
}

func (s *QueryState[Q]) IsDense() bool      { return s.isDense }
func (s *QueryState[Q]) IsArchetypal() bool { return s.isArchetypal }
func (s *QueryState[Q]) IsReadOnly() bool   { return s.isReadOnly }

// Iter iterates every matching entity, with change detection relative to the
// world's last ClearTrackers call.
func (s *QueryState[Q]) Iter(w *World) *QueryIter[Q] {
	return s.IterWithTicks(w, w.LastChangeTick(), w.ChangeTick())
}

// IterWithTicks iterates every matching entity, with change detection
// between lastRun and thisRun. Write fields are stamped with thisRun.
func (s *QueryState[Q]) IterWithTicks(w *World, lastRun, thisRun Tick) *QueryIter[Q] {
	s.updateArchetypes(w)
	return &QueryIter[Q]{
		cursor: newQueryCursor(s.queryState, w, lastRun, thisRun),
		state:  s.queryState,
		world:  w,
	}
}

// Get fetches the item of one entity.
func (s *QueryState[Q]) Get(w *World, entity EntityId) (Q, bool) {
	return s.GetWithTicks(w, entity, w.LastChangeTick(), w.ChangeTick())
}

// GetWithTicks is Get with explicit change detection ticks.
func (s *QueryState[Q]) GetWithTicks(w *World, entity EntityId, lastRun, thisRun Tick) (Q, bool) {
	s.updateArchetypes(w)
	var item Q
	var binding fetchBinding
	bound := InvalidArchetypeId
	ok := s.fetchEntity(w, &binding, &bound, entity, unsafe.Pointer(&item), lastRun, thisRun)
	return item, ok
}

// Contains reports whether the entity matches the query. Nothing is fetched,
// so write fields are not stamped.
func (s *QueryState[Q]) Contains(w *World, entity EntityId) bool {
	return s.ContainsWithTicks(w, entity, w.LastChangeTick(), w.ChangeTick())
}

// ContainsWithTicks is Contains with explicit change detection ticks.
func (s *QueryState[Q]) ContainsWithTicks(w *World, entity EntityId, lastRun, thisRun Tick) bool {
	s.updateArchetypes(w)
	var binding fetchBinding
	bound := InvalidArchetypeId
	_, ok := s.matchEntity(w, &binding, &bound, entity, lastRun, thisRun)
	return ok
}

// ForEach calls fn for every matching item.
func (s *QueryState[Q]) ForEach(w *World, fn func(Q)) {
	it := s.Iter(w)
	for {
		item, ok := it.Next()
		if !ok {
			return
		}
		fn(item)
	}
}

// Count returns the number of matching entities, applying row filters.
func (s *QueryState[Q]) Count(w *World) int {
	return s.CountWithTicks(w, w.LastChangeTick(), w.ChangeTick())
}

// CountWithTicks is Count with explicit change detection ticks. Rows are
// skipped over without fetching them.
func (s *QueryState[Q]) CountWithTicks(w *World, lastRun, thisRun Tick) int {
	it := s.IterWithTicks(w, lastRun, thisRun)
	if s.isArchetypal {
		lower, _ := it.SizeHint()
		return lower
	}
	n := 0
	for it.advance() {
		n++
	}
	return n
}

// IsEmpty reports whether no entity matches.
func (s *QueryState[Q]) IsEmpty(w *World) bool {
	return !s.Iter(w).advance()
}

func (s *QueryState[Q]) String() string {
	return fmt.Sprintf("QueryState[%s](archetypes=%d, tables=%d, dense=%t)",
		s.layout.typ, len(s.matchedArchetypeIds), len(s.matchedTableIds), s.isDense)
}
