package ecs

import (
	"fmt"
	"unsafe"
)

// columnData is a type-erased, densely packed vector of component values.
type columnData interface {
	len() int
	push(value any)
	pushZero()
	set(row int, value any)
	replace(row int, value any)
	ptr(row int) unsafe.Pointer
	get(row int) any
	swapRemove(row int)
	swapRemoveAndForget(row int) any
	moveRowTo(row int, dst columnData, dstRow int)
	clear()
}

// typedColumn stores the values of one component type.
type typedColumn[T any] struct {
	values []T
	drop   func(*T)
}

func valueOf[T any](item any) T {
	switch v := item.(type) {
	case T:
		return v
	case *T:
		return *v
	default:
		var zero T
		panic(fmt.Sprintf("value of type %T stored in column of %T", item, zero))
	}
}

func (c *typedColumn[T]) len() int {
	return len(c.values)
}

func (c *typedColumn[T]) push(value any) {
	c.values = append(c.values, valueOf[T](value))
}

func (c *typedColumn[T]) pushZero() {
	var zero T
	c.values = append(c.values, zero)
}

// set writes into an uninitialized row without dropping what was there.
func (c *typedColumn[T]) set(row int, value any) {
	c.values[row] = valueOf[T](value)
}

// replace drops the current value before writing the new one.
func (c *typedColumn[T]) replace(row int, value any) {
	next := valueOf[T](value)
	if c.drop != nil {
		c.drop(&c.values[row])
	}
	c.values[row] = next
}

func (c *typedColumn[T]) ptr(row int) unsafe.Pointer {
	return unsafe.Pointer(&c.values[row])
}

func (c *typedColumn[T]) get(row int) any {
	return &c.values[row]
}

func (c *typedColumn[T]) swapRemove(row int) {
	if c.drop != nil {
		c.drop(&c.values[row])
	}
	c.forget(row)
}

func (c *typedColumn[T]) swapRemoveAndForget(row int) any {
	value := c.values[row]
	c.forget(row)
	return value
}

func (c *typedColumn[T]) forget(row int) {
	last := len(c.values) - 1
	c.values[row] = c.values[last]
	var zero T
	c.values[last] = zero
	c.values = c.values[:last]
}

func (c *typedColumn[T]) moveRowTo(row int, dst columnData, dstRow int) {
	target := dst.(*typedColumn[T])
	target.values[dstRow] = c.values[row]
	c.forget(row)
}

func (c *typedColumn[T]) clear() {
	if c.drop != nil {
		for i := range c.values {
			c.drop(&c.values[i])
		}
	}
	clear(c.values)
	c.values = c.values[:0]
}

// Column is one component's values plus their added and changed ticks.
type Column struct {
	componentId ComponentId
	data        columnData
	added       []Tick
	changed     []Tick
}

func newColumn(info *ComponentInfo, capacity int) *Column {
	return &Column{
		componentId: info.id,
		data:        info.vtable.newColumn(capacity),
		added:       make([]Tick, 0, capacity),
		changed:     make([]Tick, 0, capacity),
	}
}

func (c *Column) ComponentId() ComponentId { return c.componentId }

func (c *Column) Len() int {
	return c.data.len()
}

// push appends a fully initialized row.
func (c *Column) push(value any, ticks ComponentTicks) {
	c.data.push(value)
	c.added = append(c.added, ticks.Added)
	c.changed = append(c.changed, ticks.Changed)
}

func (c *Column) pushZero() {
	c.data.pushZero()
	c.added = append(c.added, 0)
	c.changed = append(c.changed, 0)
}

// initialize writes a value into a freshly allocated row.
func (c *Column) initialize(row int, value any, ticks ComponentTicks) {
	c.data.set(row, value)
	c.added[row] = ticks.Added
	c.changed[row] = ticks.Changed
}

// replace overwrites an existing value. Only the changed tick moves.
func (c *Column) replace(row int, value any, changeTick Tick) {
	c.data.replace(row, value)
	c.changed[row] = changeTick
}

func (c *Column) ptr(row int) unsafe.Pointer {
	return c.data.ptr(row)
}

func (c *Column) get(row int) any {
	return c.data.get(row)
}

func (c *Column) ticks(row int) ComponentTicks {
	return ComponentTicks{Added: c.added[row], Changed: c.changed[row]}
}

func (c *Column) markChanged(row int, changeTick Tick) {
	c.changed[row] = changeTick
}

func (c *Column) swapRemoveTicks(row int) {
	last := len(c.added) - 1
	c.added[row] = c.added[last]
	c.changed[row] = c.changed[last]
	c.added = c.added[:last]
	c.changed = c.changed[:last]
}

// swapRemove drops the value at row and moves the last row into its place.
func (c *Column) swapRemove(row int) {
	c.data.swapRemove(row)
	c.swapRemoveTicks(row)
}

// swapRemoveAndForget is swapRemove that hands the value back instead of dropping it.
func (c *Column) swapRemoveAndForget(row int) (any, ComponentTicks) {
	ticks := c.ticks(row)
	value := c.data.swapRemoveAndForget(row)
	c.swapRemoveTicks(row)
	return value, ticks
}

// moveRowTo moves the value and ticks at row into dstRow of dst, which must
// already be allocated, then swap-removes row here without dropping.
func (c *Column) moveRowTo(row int, dst *Column, dstRow int) {
	dst.added[dstRow] = c.added[row]
	dst.changed[dstRow] = c.changed[row]
	c.data.moveRowTo(row, dst.data, dstRow)
	c.swapRemoveTicks(row)
}

func (c *Column) clear() {
	c.data.clear()
	c.added = c.added[:0]
	c.changed = c.changed[:0]
}

func (c *Column) checkChangeTicks(changeTick Tick) {
	for i := range c.added {
		checkTick(&c.added[i], changeTick)
	}
	for i := range c.changed {
		checkTick(&c.changed[i], changeTick)
	}
}
