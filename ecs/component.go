package ecs

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/kamstrup/intmap"
)

// StorageType selects where a component's values live.
type StorageType uint8

const (
	// StorageTable keeps values in table columns. Fast to iterate, slower to add and remove.
	StorageTable StorageType = iota
	// StorageSparseSet keeps values in a per-component sparse set. Adding and removing
	// never moves the entity's other components between tables.
	StorageSparseSet
)

func (s StorageType) String() string {
	switch s {
	case StorageTable:
		return "table"
	case StorageSparseSet:
		return "sparse_set"
	default:
		return fmt.Sprintf("StorageType(%d)", uint8(s))
	}
}

// ComponentInfo describes a registered component or resource type.
type ComponentInfo struct {
	id         ComponentId
	name       string
	typ        reflect.Type
	storage    StorageType
	isResource bool
	vtable     componentVTable
}

func (c *ComponentInfo) Id() ComponentId          { return c.id }
func (c *ComponentInfo) Name() string             { return c.name }
func (c *ComponentInfo) Type() reflect.Type       { return c.typ }
func (c *ComponentInfo) StorageType() StorageType { return c.storage }
func (c *ComponentInfo) IsResource() bool         { return c.isResource }

// componentVTable is the type-erased capability set storage uses to hold
// values of one type without knowing it at compile time.
type componentVTable interface {
	newColumn(capacity int) columnData
}

type typedVTable[T any] struct {
	drop func(*T)
}

func (v typedVTable[T]) newColumn(capacity int) columnData {
	return &typedColumn[T]{values: make([]T, 0, capacity), drop: v.drop}
}

type componentOptions struct {
	storage StorageType
	drop    any
}

// ComponentOption configures a component or resource at registration.
type ComponentOption func(*componentOptions)

// WithStorage selects the storage type of a component.
func WithStorage(storage StorageType) ComponentOption {
	return func(o *componentOptions) {
		o.storage = storage
	}
}

// WithDrop registers a hook called whenever storage discards a value of T:
// on overwrite, on removal, and on despawn. It is not called for values
// handed back to the caller by Take or RemoveResource.
func WithDrop[T any](drop func(*T)) ComponentOption {
	return func(o *componentOptions) {
		o.drop = drop
	}
}

// ComponentRegistry manages component type registration for an ECS instance.
// Each World has its own registry view, allowing multiple independent worlds
// to coexist without interference.
type ComponentRegistry struct {
	components []*ComponentInfo
	indices    *intmap.Map[int, ComponentId]
	resources  *intmap.Map[int, ComponentId]
}

// NewComponentRegistry creates a new component registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		indices:   intmap.New[int, ComponentId](64),
		resources: intmap.New[int, ComponentId](16),
	}
}

// RegisterComponent registers a new component type with the given registry.
// This must be called for each component type before it can be used.
// Registering the same type again returns the existing id.
func RegisterComponent[T any](r *ComponentRegistry, opts ...ComponentOption) ComponentId {
	t := reflect.TypeFor[T]()
	if id, ok := r.indices.Get(typeId(t)); ok {
		return id
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		panic("components cannot be pointers, maps, channels, functions or interfaces: " + t.String())
	}
	info := r.register(t, false, buildVTable[T](t, opts))
	info.storage = applyOptions(opts).storage
	r.indices.Put(typeId(t), info.id)
	return info.id
}

// RegisterResource registers a resource type. Resources are registered
// implicitly on first use; call this to attach a drop hook.
func RegisterResource[T any](r *ComponentRegistry, opts ...ComponentOption) ComponentId {
	t := reflect.TypeFor[T]()
	if id, ok := r.resources.Get(typeId(t)); ok {
		return id
	}
	info := r.register(t, true, buildVTable[T](t, opts))
	r.resources.Put(typeId(t), info.id)
	return info.id
}

func applyOptions(opts []ComponentOption) componentOptions {
	var o componentOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func buildVTable[T any](t reflect.Type, opts []ComponentOption) typedVTable[T] {
	o := applyOptions(opts)
	var vt typedVTable[T]
	if o.drop != nil {
		drop, ok := o.drop.(func(*T))
		if !ok {
			panic(fmt.Sprintf("drop hook %T does not match component type %s", o.drop, t))
		}
		vt.drop = drop
	}
	return vt
}

func (r *ComponentRegistry) register(t reflect.Type, resource bool, vtable componentVTable) *ComponentInfo {
	if len(r.components) >= int(InvalidComponentId) {
		panic("component id space exhausted")
	}
	info := &ComponentInfo{
		id:         ComponentId(len(r.components)),
		name:       t.String(),
		typ:        t,
		isResource: resource,
		vtable:     vtable,
	}
	r.components = append(r.components, info)
	return info
}

// Info returns the descriptor for a component id.
func (r *ComponentRegistry) Info(id ComponentId) *ComponentInfo {
	invariant(int(id) < len(r.components), "unknown component id %d", id)
	return r.components[id]
}

// Len returns the number of registered components and resources.
func (r *ComponentRegistry) Len() int {
	return len(r.components)
}

// ComponentId returns the id of a registered component type.
func (r *ComponentRegistry) ComponentId(t reflect.Type) (ComponentId, bool) {
	return r.indices.Get(typeId(t))
}

// ResourceId returns the id of a registered resource type.
func (r *ComponentRegistry) ResourceId(t reflect.Type) (ComponentId, bool) {
	return r.resources.Get(typeId(t))
}

// ComponentIdFor returns the id of component type T.
func ComponentIdFor[T any](r *ComponentRegistry) (ComponentId, bool) {
	return r.ComponentId(reflect.TypeFor[T]())
}

// mustComponentId resolves a type, panicking for types nobody registered.
func (r *ComponentRegistry) mustComponentId(t reflect.Type) ComponentId {
	id, ok := r.ComponentId(t)
	if !ok {
		panic("component type " + t.String() + " not registered")
	}
	return id
}

// componentIdOf resolves the component type of a value passed as T or *T.
func (r *ComponentRegistry) componentIdOf(value any) ComponentId {
	t := reflect.TypeOf(value)
	if t == nil {
		panic("nil component value")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return r.mustComponentId(t)
}

func resourceIdFor[T any](r *ComponentRegistry) ComponentId {
	t := reflect.TypeFor[T]()
	if id, ok := r.resources.Get(typeId(t)); ok {
		return id
	}
	return RegisterResource[T](r)
}

// typeId keys the registry maps by the address of t's runtime type
// descriptor, which is the data word of the reflect.Type interface value.
func typeId(t reflect.Type) int {
	words := (*[2]unsafe.Pointer)(unsafe.Pointer(&t))
	return int(uintptr(words[1]))
}
