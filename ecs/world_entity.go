package ecs

import (
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"
)

// Spawn creates a new entity with the provided components. Components may be
// passed as values or pointers; pointers are copied.
func (w *World) Spawn(components ...any) EntityId {
	if len(components) == 0 {
		entity := w.entities.alloc()
		w.placeInEmpty(entity)
		return entity
	}

	bundle := w.bundleForValues(components)
	entity := w.entities.alloc()
	targetId := w.addBundleToArchetype(EmptyArchetypeId, bundle)
	status, _ := w.archetypes.Empty().edges.GetAddBundle(bundle.id)
	target := w.archetypes.get(targetId)
	table := w.storages.Tables.get(target.tableId)
	row := table.allocate(entity)
	location := target.allocate(entity, row)
	w.entities.setLocation(entity, location)
	w.writeBundle(entity, target, table, row, bundle, status.BundleStatus, components)
	return entity
}

// SpawnEmpty creates an entity without components.
func (w *World) SpawnEmpty() EntityId {
	return w.Spawn()
}

func (w *World) placeInEmpty(entity EntityId) {
	empty := w.archetypes.Empty()
	row := w.storages.Tables.get(EmptyTableId).allocate(entity)
	w.entities.setLocation(entity, empty.allocate(entity, row))
}

// Insert adds components to an entity, moving it to the archetype holding the
// union of its old and new components. Components the entity already has are
// overwritten in place and only their changed tick moves.
func (w *World) Insert(entity EntityId, components ...any) error {
	location, ok := w.entities.Get(entity)
	if !ok {
		return eris.Wrapf(ErrEntityNotFound, "insert into %v", entity)
	}
	if len(components) == 0 {
		return nil
	}

	bundle := w.bundleForValues(components)
	source := w.archetypes.get(location.ArchetypeId)
	targetId := w.addBundleToArchetype(source.id, bundle)
	edge, _ := source.edges.GetAddBundle(bundle.id)

	if targetId == source.id {
		row := source.entities[location.Index].TableRow
		table := w.storages.Tables.get(source.tableId)
		w.writeBundle(entity, source, table, row, bundle, edge.BundleStatus, components)
		return nil
	}

	target := w.archetypes.get(targetId)
	row := w.moveEntity(entity, location, source, target, true)
	w.writeBundle(entity, target, w.storages.Tables.get(target.tableId), row, bundle, edge.BundleStatus, components)
	return nil
}

// Remove removes the listed component types from an entity. Types the entity
// does not have are ignored. Removed values are dropped.
func (w *World) Remove(entity EntityId, types ...reflect.Type) error {
	location, ok := w.entities.Get(entity)
	if !ok {
		return eris.Wrapf(ErrEntityNotFound, "remove from %v", entity)
	}
	if len(types) == 0 {
		return nil
	}

	bundle := w.bundleForTypes(types)
	source := w.archetypes.get(location.ArchetypeId)
	targetId, _ := w.removeBundleFromArchetype(source.id, bundle, true)
	if targetId == source.id {
		return nil
	}

	for _, id := range bundle.componentIds {
		if storage, ok := source.StorageType(id); ok && storage == StorageSparseSet {
			set, _ := w.storages.SparseSets.Get(id)
			set.remove(entity)
		}
	}
	w.moveEntity(entity, location, source, w.archetypes.get(targetId), true)
	return nil
}

// Take removes the listed component types and returns their values in the
// order requested, without dropping them. Nothing is removed unless the
// entity has every listed type.
func (w *World) Take(entity EntityId, types ...reflect.Type) ([]any, error) {
	location, ok := w.entities.Get(entity)
	if !ok {
		return nil, eris.Wrapf(ErrEntityNotFound, "take from %v", entity)
	}
	if len(types) == 0 {
		return nil, nil
	}

	bundle := w.bundleForTypes(types)
	source := w.archetypes.get(location.ArchetypeId)
	targetId, ok := w.removeBundleFromArchetype(source.id, bundle, false)
	if !ok {
		return nil, eris.Wrapf(ErrComponentMissing, "take from %v", entity)
	}

	row := source.entities[location.Index].TableRow
	table := w.storages.Tables.get(source.tableId)
	values := make([]any, len(bundle.componentIds))
	for i, id := range bundle.componentIds {
		storage, _ := source.StorageType(id)
		switch storage {
		case StorageTable:
			values[i] = reflect.ValueOf(table.Column(id).get(row)).Elem().Interface()
		case StorageSparseSet:
			set, _ := w.storages.SparseSets.Get(id)
			values[i], _ = set.removeAndForget(entity)
		}
	}
	w.moveEntity(entity, location, source, w.archetypes.get(targetId), false)
	return values, nil
}

// Despawn removes an entity and drops all of its components. It reports
// whether the entity existed.
func (w *World) Despawn(entity EntityId) bool {
	location, ok := w.entities.free(entity)
	if !ok {
		return false
	}

	archetype := w.archetypes.get(location.ArchetypeId)
	for _, id := range archetype.sparseComponents {
		set, _ := w.storages.SparseSets.Get(id)
		set.remove(entity)
	}

	removed := archetype.swapRemove(location.Index)
	if removed.hasSwapped {
		w.entities.setLocation(removed.swapped, location)
	}

	table := w.storages.Tables.get(archetype.tableId)
	if swapped, ok := table.swapRemove(removed.tableRow); ok {
		w.fixTableRow(swapped, removed.tableRow)
	}
	return true
}

// Contains reports whether entity is alive.
func (w *World) Contains(entity EntityId) bool {
	return w.entities.Contains(entity)
}

// Location returns where a live entity is stored.
func (w *World) Location(entity EntityId) (EntityLocation, bool) {
	return w.entities.Get(entity)
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return w.entities.Len()
}

// moveEntity relocates entity from source to target and returns its new
// table row. Table columns target lacks are dropped or forgotten according
// to dropMissing.
func (w *World) moveEntity(entity EntityId, location EntityLocation, source, target *Archetype, dropMissing bool) int {
	removed := source.swapRemove(location.Index)
	if removed.hasSwapped {
		w.entities.setLocation(removed.swapped, location)
	}

	if source.tableId == target.tableId {
		w.entities.setLocation(entity, target.allocate(entity, removed.tableRow))
		return removed.tableRow
	}

	sourceTable := w.storages.Tables.get(source.tableId)
	targetTable := w.storages.Tables.get(target.tableId)
	var moved tableMoveResult
	if dropMissing {
		moved = sourceTable.moveToAndDropMissing(removed.tableRow, targetTable)
	} else {
		moved = sourceTable.moveToAndForgetMissing(removed.tableRow, targetTable)
	}
	w.entities.setLocation(entity, target.allocate(entity, moved.newRow))
	if moved.hasSwapped {
		w.fixTableRow(moved.swapped, removed.tableRow)
	}
	return moved.newRow
}

// fixTableRow points an entity's archetype entry at its new table row after a
// table swap-remove moved it.
func (w *World) fixTableRow(entity EntityId, row int) {
	location, ok := w.entities.Get(entity)
	invariant(ok, "swapped entity %v has no location", entity)
	w.archetypes.get(location.ArchetypeId).setEntityTableRow(location.Index, row)
}

func (w *World) writeBundle(entity EntityId, archetype *Archetype, table *Table, row int, bundle *bundleInfo, status []ComponentStatus, values []any) {
	changeTick := w.ChangeTick()
	for i, id := range bundle.componentIds {
		storage, _ := archetype.StorageType(id)
		switch storage {
		case StorageTable:
			column := table.Column(id)
			if status[i] == ComponentAdded {
				column.initialize(row, values[i], newComponentTicks(changeTick))
			} else {
				column.replace(row, values[i], changeTick)
			}
		case StorageSparseSet:
			set, _ := w.storages.SparseSets.Get(id)
			set.insert(entity, values[i], changeTick)
		}
	}
}

func (w *World) bundleForValues(values []any) *bundleInfo {
	ids := make([]ComponentId, len(values))
	for i, v := range values {
		ids[i] = w.registry.componentIdOf(v)
	}
	return w.bundles.initInfo(ids, w.registry)
}

func (w *World) bundleForTypes(types []reflect.Type) *bundleInfo {
	ids := make([]ComponentId, len(types))
	for i, t := range types {
		ids[i] = w.registry.mustComponentId(t)
	}
	return w.bundles.initInfo(ids, w.registry)
}

// componentPtr locates the storage of one component of a live entity.
func (w *World) componentPtr(entity EntityId, id ComponentId) (unsafe.Pointer, *Column, int, *ComponentSparseSet, bool) {
	location, ok := w.entities.Get(entity)
	if !ok {
		return nil, nil, 0, nil, false
	}
	archetype := w.archetypes.get(location.ArchetypeId)
	storage, ok := archetype.StorageType(id)
	if !ok {
		return nil, nil, 0, nil, false
	}
	if storage == StorageSparseSet {
		set, _ := w.storages.SparseSets.Get(id)
		ptr, ok := set.get(entity)
		return ptr, nil, 0, set, ok
	}
	row := archetype.entities[location.Index].TableRow
	column := w.storages.Tables.get(archetype.tableId).Column(id)
	return column.ptr(row), column, row, nil, true
}

// GetComponent returns a pointer to the component of type t on entity, or nil.
func (w *World) GetComponent(entity EntityId, t reflect.Type) any {
	id, ok := w.registry.ComponentId(t)
	if !ok {
		return nil
	}
	ptr, _, _, _, ok := w.componentPtr(entity, id)
	if !ok {
		return nil
	}
	return reflect.NewAt(t, ptr).Interface()
}

// Get returns a pointer to entity's T. The pointer is valid until the next
// structural change to the world. Writing through it is not change-tracked;
// use GetMut for that.
func Get[T any](w *World, entity EntityId) (*T, bool) {
	id, ok := ComponentIdFor[T](w.registry)
	if !ok {
		return nil, false
	}
	ptr, _, _, _, ok := w.componentPtr(entity, id)
	if !ok {
		return nil, false
	}
	return (*T)(ptr), true
}

// GetMut is Get that stamps the component as changed at the current tick.
func GetMut[T any](w *World, entity EntityId) (*T, bool) {
	id, ok := ComponentIdFor[T](w.registry)
	if !ok {
		return nil, false
	}
	ptr, column, row, set, ok := w.componentPtr(entity, id)
	if !ok {
		return nil, false
	}
	changeTick := w.ChangeTick()
	if column != nil {
		column.markChanged(row, changeTick)
	} else {
		set.markChanged(entity, changeTick)
	}
	return (*T)(ptr), true
}

// Has reports whether entity has a T.
func Has[T any](w *World, entity EntityId) bool {
	id, ok := ComponentIdFor[T](w.registry)
	if !ok {
		return false
	}
	location, ok := w.entities.Get(entity)
	if !ok {
		return false
	}
	return w.archetypes.get(location.ArchetypeId).contains(id)
}

// TicksOf returns the change ticks of entity's T.
func TicksOf[T any](w *World, entity EntityId) (ComponentTicks, bool) {
	id, ok := ComponentIdFor[T](w.registry)
	if !ok {
		return ComponentTicks{}, false
	}
	_, column, row, set, ok := w.componentPtr(entity, id)
	if !ok {
		return ComponentTicks{}, false
	}
	if column != nil {
		return column.ticks(row), true
	}
	return set.getTicks(entity)
}

// ReadComponent returns entity's T, or nil when absent.
func ReadComponent[T any](w *World, entity EntityId) *T {
	c, _ := Get[T](w, entity)
	return c
}
