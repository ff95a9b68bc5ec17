package ecs

import (
	"reflect"
)

type filterKind uint8

const (
	filterWith filterKind = iota
	filterWithout
	filterAdded
	filterChanged
	filterOr
)

// Filter narrows which entities a query visits without fetching anything.
type Filter struct {
	kind     filterKind
	typ      reflect.Type
	children []Filter
}

// With keeps entities that have a T.
func With[T any]() Filter {
	return Filter{kind: filterWith, typ: reflect.TypeFor[T]()}
}

// Without keeps entities that have no T.
func Without[T any]() Filter {
	return Filter{kind: filterWithout, typ: reflect.TypeFor[T]()}
}

// Added keeps entities whose T was added since the query's last run.
func Added[T any]() Filter {
	return Filter{kind: filterAdded, typ: reflect.TypeFor[T]()}
}

// Changed keeps entities whose T was added or mutated since the query's last run.
func Changed[T any]() Filter {
	return Filter{kind: filterChanged, typ: reflect.TypeFor[T]()}
}

// Or keeps entities matching any of filters.
func Or(filters ...Filter) Filter {
	return Filter{kind: filterOr, children: filters}
}

// QueryFilters can be implemented by a query item type to attach filters to
// every query built over it.
type QueryFilters interface {
	Filters() []Filter
}

// resolvedFilter is a Filter with its component resolved against a registry.
type resolvedFilter struct {
	kind        filterKind
	componentId ComponentId
	storage     StorageType
	children    []resolvedFilter
}

func resolveFilter(registry *ComponentRegistry, f Filter) resolvedFilter {
	if f.kind == filterOr {
		r := resolvedFilter{kind: filterOr, children: make([]resolvedFilter, len(f.children))}
		for i, child := range f.children {
			r.children[i] = resolveFilter(registry, child)
		}
		return r
	}
	id := registry.mustComponentId(f.typ)
	return resolvedFilter{kind: f.kind, componentId: id, storage: registry.Info(id).storage}
}

// isArchetypal reports whether the filter can be decided per archetype
// without looking at rows.
func (f *resolvedFilter) isArchetypal() bool {
	switch f.kind {
	case filterAdded, filterChanged:
		return false
	case filterOr:
		for i := range f.children {
			if !f.children[i].isArchetypal() {
				return false
			}
		}
	}
	return true
}

func (f *resolvedFilter) isDense() bool {
	if f.kind == filterOr {
		for i := range f.children {
			if !f.children[i].isDense() {
				return false
			}
		}
		return true
	}
	return f.storage == StorageTable
}

func (f *resolvedFilter) matchesComponents(source componentSource) bool {
	switch f.kind {
	case filterWithout:
		return !source.contains(f.componentId)
	case filterOr:
		for i := range f.children {
			if f.children[i].matchesComponents(source) {
				return true
			}
		}
		return false
	default:
		return source.contains(f.componentId)
	}
}

// updateAccess records what the filter needs from the world.
func (f *resolvedFilter) updateAccess(access *FilteredAccess[ComponentId]) {
	switch f.kind {
	case filterWith:
		access.AddWith(f.componentId)
	case filterWithout:
		access.AddWithout(f.componentId)
	case filterAdded, filterChanged:
		if !access.access.HasWrite(f.componentId) {
			access.AddRead(f.componentId)
		}
	case filterOr:
		f.reads(func(id ComponentId) {
			if !access.access.HasWrite(id) {
				access.access.AddRead(id)
			}
		})
	}
}

func (f *resolvedFilter) reads(yield func(ComponentId)) {
	switch f.kind {
	case filterAdded, filterChanged:
		yield(f.componentId)
	case filterOr:
		for i := range f.children {
			f.children[i].reads(yield)
		}
	}
}

func (f *resolvedFilter) bind(b *boundFilter, w *World, table *Table, source componentSource) {
	b.kind = f.kind
	b.matches = f.matchesComponents(source)
	b.column, b.sparse = nil, nil
	if f.kind == filterOr {
		if len(b.children) != len(f.children) {
			b.children = make([]boundFilter, len(f.children))
		}
		for i := range f.children {
			f.children[i].bind(&b.children[i], w, table, source)
		}
		return
	}
	if (f.kind == filterAdded || f.kind == filterChanged) && b.matches {
		bound := bindComponent(w, table, source, true, f.componentId, f.storage)
		b.column, b.sparse = bound.column, bound.sparse
	}
}

// boundFilter is a resolved filter attached to the current batch.
type boundFilter struct {
	kind     filterKind
	matches  bool
	column   *Column
	sparse   *ComponentSparseSet
	children []boundFilter
}

func (b *boundFilter) clone() boundFilter {
	out := *b
	if b.children != nil {
		out.children = make([]boundFilter, len(b.children))
		for i := range b.children {
			out.children[i] = b.children[i].clone()
		}
	}
	return out
}

func (b *boundFilter) ticks(entity EntityId, row int) ComponentTicks {
	if b.column != nil {
		return b.column.ticks(row)
	}
	ticks, _ := b.sparse.getTicks(entity)
	return ticks
}

func (b *boundFilter) test(entity EntityId, row int, lastRun, thisRun Tick) bool {
	switch b.kind {
	case filterAdded:
		return b.ticks(entity, row).IsAdded(lastRun, thisRun)
	case filterChanged:
		return b.ticks(entity, row).IsChanged(lastRun, thisRun)
	case filterOr:
		for i := range b.children {
			if b.children[i].matches && b.children[i].test(entity, row, lastRun, thisRun) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
