package ecs

import (
	"iter"
	"slices"

	"github.com/kamstrup/intmap"
)

// ComponentStatus records whether a bundle component was new to the source
// archetype or already present and only overwritten.
type ComponentStatus uint8

const (
	ComponentAdded ComponentStatus = iota
	ComponentMutated
)

// AddBundle is a cached add-bundle edge.
type AddBundle struct {
	ArchetypeId  ArchetypeId
	BundleStatus []ComponentStatus
}

// Edges caches archetype transitions keyed by bundle. A missing key means
// the transition was never computed; a cached InvalidArchetypeId remove edge
// means the removal is impossible from this archetype.
type Edges struct {
	addBundle                *intmap.Map[BundleId, AddBundle]
	removeBundle             *intmap.Map[BundleId, ArchetypeId]
	removeBundleIntersection *intmap.Map[BundleId, ArchetypeId]
}

func newEdges() Edges {
	return Edges{
		addBundle:                intmap.New[BundleId, AddBundle](4),
		removeBundle:             intmap.New[BundleId, ArchetypeId](4),
		removeBundleIntersection: intmap.New[BundleId, ArchetypeId](4),
	}
}

func (e *Edges) GetAddBundle(bundle BundleId) (AddBundle, bool) {
	return e.addBundle.Get(bundle)
}

func (e *Edges) insertAddBundle(bundle BundleId, archetype ArchetypeId, status []ComponentStatus) {
	e.addBundle.Put(bundle, AddBundle{ArchetypeId: archetype, BundleStatus: status})
}

// GetRemoveBundle returns the cached removal target. cached is false when the
// edge was never computed; target is InvalidArchetypeId when removal is impossible.
func (e *Edges) GetRemoveBundle(bundle BundleId) (target ArchetypeId, cached bool) {
	return e.removeBundle.Get(bundle)
}

func (e *Edges) insertRemoveBundle(bundle BundleId, archetype ArchetypeId) {
	e.removeBundle.Put(bundle, archetype)
}

func (e *Edges) GetRemoveBundleIntersection(bundle BundleId) (ArchetypeId, bool) {
	return e.removeBundleIntersection.Get(bundle)
}

func (e *Edges) insertRemoveBundleIntersection(bundle BundleId, archetype ArchetypeId) {
	e.removeBundleIntersection.Put(bundle, archetype)
}

// ArchetypeEntity is one entity of an archetype and its row in the archetype's table.
type ArchetypeEntity struct {
	Entity   EntityId
	TableRow int
}

type archetypeComponentInfo struct {
	storage              StorageType
	archetypeComponentId ArchetypeComponentId
}

// Archetype represents a unique combination of component types
type Archetype struct {
	id               ArchetypeId
	tableId          TableId
	tableComponents  []ComponentId
	sparseComponents []ComponentId
	components       *intmap.Map[ComponentId, archetypeComponentInfo]
	entities         []ArchetypeEntity
	edges            Edges
}

func newArchetype(id ArchetypeId, tableId TableId, tableComponents, sparseComponents []ComponentId, nextId func() ArchetypeComponentId) *Archetype {
	a := &Archetype{
		id:               id,
		tableId:          tableId,
		tableComponents:  tableComponents,
		sparseComponents: sparseComponents,
		components:       intmap.New[ComponentId, archetypeComponentInfo](len(tableComponents) + len(sparseComponents)),
		edges:            newEdges(),
	}
	for _, c := range tableComponents {
		a.components.Put(c, archetypeComponentInfo{storage: StorageTable, archetypeComponentId: nextId()})
	}
	for _, c := range sparseComponents {
		a.components.Put(c, archetypeComponentInfo{storage: StorageSparseSet, archetypeComponentId: nextId()})
	}
	return a
}

// Id returns the archetype's unique identifier
func (a *Archetype) Id() ArchetypeId                      { return a.id }
func (a *Archetype) TableId() TableId                     { return a.tableId }
func (a *Archetype) Entities() []ArchetypeEntity          { return a.entities }
func (a *Archetype) Len() int                             { return len(a.entities) }
func (a *Archetype) IsEmpty() bool                        { return len(a.entities) == 0 }
func (a *Archetype) TableComponents() []ComponentId       { return a.tableComponents }
func (a *Archetype) SparseSetComponents() []ComponentId   { return a.sparseComponents }
func (a *Archetype) Edges() *Edges                        { return &a.edges }
func (a *Archetype) ComponentCount() int                  { return a.components.Len() }
func (a *Archetype) Contains(component ComponentId) bool  { return a.components.Has(component) }
func (a *Archetype) contains(component ComponentId) bool  { return a.components.Has(component) }
func (a *Archetype) setEntityTableRow(index int, row int) { a.entities[index].TableRow = row }

// Components iterates table components first, then sparse-set components.
func (a *Archetype) Components() iter.Seq[ComponentId] {
	return func(yield func(ComponentId) bool) {
		for _, c := range a.tableComponents {
			if !yield(c) {
				return
			}
		}
		for _, c := range a.sparseComponents {
			if !yield(c) {
				return
			}
		}
	}
}

// StorageType returns where a component of this archetype lives.
func (a *Archetype) StorageType(component ComponentId) (StorageType, bool) {
	info, ok := a.components.Get(component)
	return info.storage, ok
}

// ArchetypeComponentId returns the id of a component within this archetype.
func (a *Archetype) ArchetypeComponentId(component ComponentId) (ArchetypeComponentId, bool) {
	info, ok := a.components.Get(component)
	if !ok {
		return InvalidArchetypeComponentId, false
	}
	return info.archetypeComponentId, true
}

func (a *Archetype) allocate(entity EntityId, tableRow int) EntityLocation {
	a.entities = append(a.entities, ArchetypeEntity{Entity: entity, TableRow: tableRow})
	return EntityLocation{ArchetypeId: a.id, Index: len(a.entities) - 1}
}

// archetypeSwapRemoveResult is what swapRemove leaves behind: the table row
// the removed entity used, and the entity moved into its slot, if any.
type archetypeSwapRemoveResult struct {
	tableRow   int
	swapped    EntityId
	hasSwapped bool
}

func (a *Archetype) swapRemove(index int) archetypeSwapRemoveResult {
	invariant(index < len(a.entities), "index %d out of range for archetype %d", index, a.id)
	last := len(a.entities) - 1
	result := archetypeSwapRemoveResult{tableRow: a.entities[index].TableRow}
	if index != last {
		a.entities[index] = a.entities[last]
		result.swapped = a.entities[index].Entity
		result.hasSwapped = true
	}
	a.entities = a.entities[:last]
	return result
}

// ArchetypeGeneration is a point in the archetype list's history: the number
// of archetypes that existed at that point.
type ArchetypeGeneration uint32

// Archetypes is the append-only archetype graph of a world.
type Archetypes struct {
	archetypes              []*Archetype
	byIdentity              *intmap.Map[uint64, []ArchetypeId]
	archetypeComponentCount uint32
}

func newArchetypes() Archetypes {
	a := Archetypes{byIdentity: intmap.New[uint64, []ArchetypeId](64)}
	a.getIdOrInsert(EmptyTableId, nil, nil)
	return a
}

// Generation returns the current generation. Anything with an id at or
// above a stored generation was created after it.
func (a *Archetypes) Generation() ArchetypeGeneration {
	return ArchetypeGeneration(len(a.archetypes))
}

func (a *Archetypes) Len() int { return len(a.archetypes) }

// Empty returns the archetype with no components.
func (a *Archetypes) Empty() *Archetype {
	return a.archetypes[EmptyArchetypeId]
}

// Get returns the archetype with the given id.
func (a *Archetypes) Get(id ArchetypeId) (*Archetype, bool) {
	if int(id) >= len(a.archetypes) {
		return nil, false
	}
	return a.archetypes[id], true
}

func (a *Archetypes) get(id ArchetypeId) *Archetype {
	return a.archetypes[id]
}

// All iterates archetypes in id order.
func (a *Archetypes) All() iter.Seq[*Archetype] {
	return slices.Values(a.archetypes)
}

// since iterates the archetypes created at or after generation.
func (a *Archetypes) since(generation ArchetypeGeneration) []*Archetype {
	return a.archetypes[generation:]
}

// ArchetypeComponentCount returns how many archetype component ids were handed out.
func (a *Archetypes) ArchetypeComponentCount() int {
	return int(a.archetypeComponentCount)
}

func (a *Archetypes) newArchetypeComponentId() ArchetypeComponentId {
	id := ArchetypeComponentId(a.archetypeComponentCount)
	if id == InvalidArchetypeComponentId {
		panic("archetype component id space exhausted")
	}
	a.archetypeComponentCount++
	return id
}

// getIdOrInsert returns the archetype of a (sorted) component identity,
// creating it on first use. created reports whether it was new.
func (a *Archetypes) getIdOrInsert(tableId TableId, tableComponents, sparseComponents []ComponentId) (id ArchetypeId, created bool) {
	key := hashComponentIds(tableComponents, sparseComponents)
	bucket, _ := a.byIdentity.Get(key)
	for _, candidate := range bucket {
		archetype := a.archetypes[candidate]
		if slices.Equal(archetype.tableComponents, tableComponents) && slices.Equal(archetype.sparseComponents, sparseComponents) {
			return candidate, false
		}
	}
	id = newArchetypeId(len(a.archetypes))
	archetype := newArchetype(id, tableId, slices.Clone(tableComponents), slices.Clone(sparseComponents), a.newArchetypeComponentId)
	a.archetypes = append(a.archetypes, archetype)
	a.byIdentity.Put(key, append(bucket, id))
	return id, true
}
