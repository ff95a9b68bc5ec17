package ecs

import (
	"iter"
	"reflect"
	"unsafe"

	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
)

// ResourceData is the storage slot of one resource type. It holds at most
// one value along with that value's ticks.
type ResourceData struct {
	column *Column
	id     ArchetypeComponentId
	name   string
}

// IsPresent reports whether the slot holds a value.
func (r *ResourceData) IsPresent() bool {
	return r.column.Len() > 0
}

// ArchetypeComponentId identifies this resource for access tracking.
func (r *ResourceData) ArchetypeComponentId() ArchetypeComponentId {
	return r.id
}

func (r *ResourceData) ptr() (unsafe.Pointer, bool) {
	if !r.IsPresent() {
		return nil, false
	}
	return r.column.ptr(0), true
}

// Ticks returns the added and changed ticks of the value, if present.
func (r *ResourceData) Ticks() (ComponentTicks, bool) {
	if !r.IsPresent() {
		return ComponentTicks{}, false
	}
	return r.column.ticks(0), true
}

// insert stores value, dropping any previous one, and stamps both ticks.
func (r *ResourceData) insert(value any, changeTick Tick) {
	r.insertWithTicks(value, newComponentTicks(changeTick))
}

// insertWithTicks is insert with explicit ticks, for values moved in from
// another world or context.
func (r *ResourceData) insertWithTicks(value any, ticks ComponentTicks) {
	if r.IsPresent() {
		r.column.replace(0, value, ticks.Changed)
		r.column.added[0] = ticks.Added
		return
	}
	r.column.push(value, ticks)
}

// remove takes the value out of the slot without dropping it.
func (r *ResourceData) remove() (any, ComponentTicks, bool) {
	if !r.IsPresent() {
		return nil, ComponentTicks{}, false
	}
	value, ticks := r.column.swapRemoveAndForget(0)
	return value, ticks, true
}

// removeAndDrop empties the slot, dropping the value.
func (r *ResourceData) removeAndDrop() {
	r.column.clear()
}

func (r *ResourceData) markChanged(changeTick Tick) {
	if r.IsPresent() {
		r.column.markChanged(0, changeTick)
	}
}

func (r *ResourceData) checkChangeTicks(changeTick Tick) {
	r.column.checkChangeTicks(changeTick)
}

// Resources holds one ResourceData per resource type that has been touched.
type Resources struct {
	slots *intmap.Map[ComponentId, *ResourceData]
}

func newResources() Resources {
	return Resources{slots: intmap.New[ComponentId, *ResourceData](16)}
}

// Get returns the slot of a resource, if it was ever initialized.
func (r *Resources) Get(id ComponentId) (*ResourceData, bool) {
	return r.slots.Get(id)
}

// Len returns the number of initialized slots, present or not.
func (r *Resources) Len() int {
	return r.slots.Len()
}

// All iterates initialized slots by component id.
func (r *Resources) All() iter.Seq2[ComponentId, *ResourceData] {
	return r.slots.All()
}

// initializeWith returns the slot of a resource, creating it on first use.
// Later calls return the same slot untouched.
func (r *Resources) initializeWith(id ComponentId, registry *ComponentRegistry, makeArchetypeComponentId func() ArchetypeComponentId) (*ResourceData, bool) {
	if slot, ok := r.slots.Get(id); ok {
		return slot, false
	}
	info := registry.Info(id)
	slot := &ResourceData{
		column: newColumn(info, 1),
		id:     makeArchetypeComponentId(),
		name:   info.name,
	}
	r.slots.Put(id, slot)
	return slot, true
}

func (r *Resources) checkChangeTicks(changeTick Tick) {
	for _, slot := range r.slots.All() {
		slot.checkChangeTicks(changeTick)
	}
}

func (w *World) initializeResource(id ComponentId) *ResourceData {
	slot, created := w.storages.Resources.initializeWith(id, w.registry, w.archetypes.newArchetypeComponentId)
	if created {
		w.logger.Debug().Str("resource", slot.name).Uint32("archetype_component", uint32(slot.id)).Msg("initialized resource")
	}
	return slot
}

func resourceSlot[T any](w *World) (*ResourceData, bool) {
	id, ok := w.registry.ResourceId(reflect.TypeFor[T]())
	if !ok {
		return nil, false
	}
	return w.storages.Resources.Get(id)
}

// InsertResource stores value as the world's T, replacing and dropping any
// previous value. Both ticks are stamped with the current change tick.
func InsertResource[T any](w *World, value T) {
	w.initializeResource(resourceIdFor[T](w.registry)).insert(value, w.ChangeTick())
}

// InsertResourceWithTicks stores value with explicit ticks.
func InsertResourceWithTicks[T any](w *World, value T, ticks ComponentTicks) {
	w.initializeResource(resourceIdFor[T](w.registry)).insertWithTicks(value, ticks)
}

// InitResource inserts the zero T unless a T is already present.
func InitResource[T any](w *World) *T {
	slot := w.initializeResource(resourceIdFor[T](w.registry))
	if !slot.IsPresent() {
		var zero T
		slot.insert(zero, w.ChangeTick())
	}
	ptr, _ := slot.ptr()
	return (*T)(ptr)
}

// GetResource returns the world's T. The pointer stays valid until the
// resource is removed or replaced.
func GetResource[T any](w *World) (*T, bool) {
	slot, ok := resourceSlot[T](w)
	if !ok {
		return nil, false
	}
	ptr, ok := slot.ptr()
	return (*T)(ptr), ok
}

// GetResourceMut is GetResource that stamps the resource as changed.
func GetResourceMut[T any](w *World) (*T, bool) {
	slot, ok := resourceSlot[T](w)
	if !ok {
		return nil, false
	}
	ptr, ok := slot.ptr()
	if ok {
		slot.markChanged(w.ChangeTick())
	}
	return (*T)(ptr), ok
}

// ContainsResource reports whether the world holds a T.
func ContainsResource[T any](w *World) bool {
	slot, ok := resourceSlot[T](w)
	return ok && slot.IsPresent()
}

// ResourceTicks returns the ticks of the world's T.
func ResourceTicks[T any](w *World) (ComponentTicks, bool) {
	slot, ok := resourceSlot[T](w)
	if !ok {
		return ComponentTicks{}, false
	}
	return slot.Ticks()
}

// ResourceArchetypeComponentId returns the access-tracking id of T's slot.
func ResourceArchetypeComponentId[T any](w *World) (ArchetypeComponentId, bool) {
	slot, ok := resourceSlot[T](w)
	if !ok {
		return InvalidArchetypeComponentId, false
	}
	return slot.id, true
}

// RemoveResource takes the world's T out without dropping it.
func RemoveResource[T any](w *World) (T, ComponentTicks, error) {
	var zero T
	slot, ok := resourceSlot[T](w)
	if !ok {
		return zero, ComponentTicks{}, eris.Wrapf(ErrResourceNotFound, "remove %s", reflect.TypeFor[T]())
	}
	value, ticks, ok := slot.remove()
	if !ok {
		return zero, ComponentTicks{}, eris.Wrapf(ErrResourceNotFound, "remove %s", reflect.TypeFor[T]())
	}
	return value.(T), ticks, nil
}

// DropResource removes the world's T and drops it. It reports whether one was present.
func DropResource[T any](w *World) bool {
	slot, ok := resourceSlot[T](w)
	if !ok || !slot.IsPresent() {
		return false
	}
	slot.removeAndDrop()
	return true
}
