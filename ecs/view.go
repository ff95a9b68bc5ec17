package ecs

import (
	"fmt"
	"reflect"
	"strings"
	"unsafe"
)

type termKind uint8

const (
	termEntity termKind = iota
	termRead
	termWrite
)

// fetchTerm is one field of a query item struct.
type fetchTerm struct {
	kind        termKind
	componentId ComponentId
	storage     StorageType
	optional    bool
	offset      uintptr
	name        string
}

// fetchLayout describes how to fill a query item struct.
//
// The item type is a struct whose fields say what to fetch:
//
//	*T                    write access to component T, stamped changed when fetched
//	*T `ecs:"read"`       read access to T
//	*T `ecs:"optional"`   nil when the entity has no T (combine as `ecs:"read,optional"`)
//	EntityId              the entity being visited
//
// Embedded pointer fields are allowed and follow the same rules.
type fetchLayout struct {
	typ   reflect.Type
	terms []fetchTerm
}

var entityIdType = reflect.TypeFor[EntityId]()

func newFetchLayout(registry *ComponentRegistry, structType reflect.Type) *fetchLayout {
	if structType.Kind() != reflect.Struct {
		panic("query item type must be a struct, got " + structType.String())
	}

	layout := &fetchLayout{typ: structType}
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if field.Name == "_" {
			continue
		}

		if field.Type == entityIdType {
			layout.terms = append(layout.terms, fetchTerm{kind: termEntity, offset: field.Offset, name: field.Name})
			continue
		}

		if field.Type.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("query item field %s.%s must be a component pointer or EntityId", structType, field.Name))
		}

		componentType := field.Type.Elem()
		id := registry.mustComponentId(componentType)
		term := fetchTerm{
			kind:        termWrite,
			componentId: id,
			storage:     registry.Info(id).storage,
			offset:      field.Offset,
			name:        field.Name,
		}

		if tag := field.Tag.Get("ecs"); tag != "" {
			for _, opt := range strings.Split(tag, ",") {
				switch strings.TrimSpace(opt) {
				case "read":
					term.kind = termRead
				case "optional":
					term.optional = true
				default:
					panic("invalid ecs tag value: \"" + tag + "\" (supported: \"read\", \"optional\")")
				}
			}
		}
		layout.terms = append(layout.terms, term)
	}
	return layout
}

// checkConflicts panics when the item asks for the same component twice and
// at least one of the requests writes.
func (l *fetchLayout) checkConflicts(registry *ComponentRegistry) {
	seen := make(map[ComponentId]termKind, len(l.terms))
	for _, term := range l.terms {
		if term.kind == termEntity {
			continue
		}
		if prev, ok := seen[term.componentId]; ok && (prev == termWrite || term.kind == termWrite) {
			panic(fmt.Sprintf("query item %s accesses %s more than once with write access",
				l.typ, registry.Info(term.componentId).name))
		}
		seen[term.componentId] = term.kind
	}
}

func (l *fetchLayout) isDense() bool {
	for _, term := range l.terms {
		if term.kind != termEntity && term.storage == StorageSparseSet {
			return false
		}
	}
	return true
}

func (l *fetchLayout) isReadOnly() bool {
	for _, term := range l.terms {
		if term.kind == termWrite {
			return false
		}
	}
	return true
}

func (l *fetchLayout) matchesComponents(source componentSource) bool {
	for _, term := range l.terms {
		if term.kind == termEntity || term.optional {
			continue
		}
		if !source.contains(term.componentId) {
			return false
		}
	}
	return true
}

// componentSource is anything that can say whether it holds a component:
// archetypes for sparse iteration and tables for dense iteration.
type componentSource interface {
	contains(id ComponentId) bool
}

// boundTerm is a fetch term resolved against one table or archetype.
type boundTerm struct {
	column *Column
	sparse *ComponentSparseSet
}

// fetchBinding caches the storage a query touches for the current batch.
type fetchBinding struct {
	terms   []boundTerm
	filters []boundFilter
}

func (b *fetchBinding) clone() fetchBinding {
	out := fetchBinding{
		terms:   make([]boundTerm, len(b.terms)),
		filters: make([]boundFilter, len(b.filters)),
	}
	copy(out.terms, b.terms)
	for i := range b.filters {
		out.filters[i] = b.filters[i].clone()
	}
	return out
}

// bind resolves every term and filter against a batch. table is always the
// batch's table; archetype is nil when iterating tables directly.
func (b *fetchBinding) bind(s *queryState, w *World, table *Table, archetype *Archetype) {
	var source componentSource = table
	if archetype != nil {
		source = archetype
	}
	if b.terms == nil {
		b.terms = make([]boundTerm, len(s.layout.terms))
		b.filters = make([]boundFilter, len(s.filters))
	}
	for i, term := range s.layout.terms {
		b.terms[i] = bindComponent(w, table, source, term.kind != termEntity, term.componentId, term.storage)
	}
	for i := range s.filters {
		s.filters[i].bind(&b.filters[i], w, table, source)
	}
}

func bindComponent(w *World, table *Table, source componentSource, isComponent bool, id ComponentId, storage StorageType) boundTerm {
	if !isComponent || !source.contains(id) {
		return boundTerm{}
	}
	if storage == StorageSparseSet {
		set, _ := w.storages.SparseSets.Get(id)
		return boundTerm{sparse: set}
	}
	return boundTerm{column: table.Column(id)}
}

// fetch fills the item at out for one row of the bound batch.
func (b *fetchBinding) fetch(layout *fetchLayout, out unsafe.Pointer, entity EntityId, row int, thisRun Tick) {
	for i := range layout.terms {
		term := &layout.terms[i]
		field := unsafe.Add(out, term.offset)
		if term.kind == termEntity {
			*(*EntityId)(field) = entity
			continue
		}

		bound := &b.terms[i]
		var ptr unsafe.Pointer
		switch {
		case bound.column != nil:
			ptr = bound.column.ptr(row)
			if term.kind == termWrite {
				bound.column.markChanged(row, thisRun)
			}
		case bound.sparse != nil:
			ptr, _ = bound.sparse.get(entity)
			if term.kind == termWrite {
				bound.sparse.markChanged(entity, thisRun)
			}
		}
		*(*unsafe.Pointer)(field) = ptr
	}
}

// matches evaluates the per-row filters of the bound batch.
func (b *fetchBinding) matches(entity EntityId, row int, lastRun, thisRun Tick) bool {
	for i := range b.filters {
		if !b.filters[i].test(entity, row, lastRun, thisRun) {
			return false
		}
	}
	return true
}
