package ecs

import (
	"slices"

	"github.com/kamstrup/intmap"
)

// Table stores the table components of every entity whose archetype shares
// the same set of table components. Rows are densely packed.
type Table struct {
	id           TableId
	componentIds []ComponentId
	columns      *intmap.Map[ComponentId, *Column]
	entities     []EntityId
}

func newTable(id TableId, componentIds []ComponentId, registry *ComponentRegistry, capacity int) *Table {
	t := &Table{
		id:           id,
		componentIds: componentIds,
		columns:      intmap.New[ComponentId, *Column](len(componentIds)),
		entities:     make([]EntityId, 0, capacity),
	}
	for _, id := range componentIds {
		t.columns.Put(id, newColumn(registry.Info(id), capacity))
	}
	return t
}

func (t *Table) Id() TableId                   { return t.id }
func (t *Table) Len() int                      { return len(t.entities) }
func (t *Table) IsEmpty() bool                 { return len(t.entities) == 0 }
func (t *Table) Entities() []EntityId          { return t.entities }
func (t *Table) ComponentIds() []ComponentId   { return t.componentIds }
func (t *Table) HasColumn(id ComponentId) bool { return t.columns.Has(id) }

// Column returns the column of a component, or nil.
func (t *Table) Column(id ComponentId) *Column {
	c, _ := t.columns.Get(id)
	return c
}

func (t *Table) contains(id ComponentId) bool {
	return t.columns.Has(id)
}

// allocate appends a row for entity. Every column gets a zero value the
// caller is expected to initialize.
func (t *Table) allocate(entity EntityId) int {
	row := len(t.entities)
	t.entities = append(t.entities, entity)
	for _, id := range t.componentIds {
		t.Column(id).pushZero()
	}
	return row
}

// tableMoveResult reports where a moved row landed and which entity, if any,
// was swapped into the vacated source row.
type tableMoveResult struct {
	newRow     int
	swapped    EntityId
	hasSwapped bool
}

func (t *Table) swapRemoveEntity(row int) (EntityId, bool) {
	last := len(t.entities) - 1
	var swapped EntityId
	hasSwapped := row != last
	if hasSwapped {
		swapped = t.entities[last]
		t.entities[row] = swapped
	}
	t.entities = t.entities[:last]
	return swapped, hasSwapped
}

// moveTo moves row into dst. Columns dst lacks are dropped when dropMissing
// is set and forgotten otherwise.
func (t *Table) moveTo(row int, dst *Table, dropMissing bool) tableMoveResult {
	invariant(row < len(t.entities), "row %d out of range for table %d", row, t.id)
	newRow := dst.allocate(t.entities[row])
	for _, id := range t.componentIds {
		column := t.Column(id)
		if target := dst.Column(id); target != nil {
			column.moveRowTo(row, target, newRow)
		} else if dropMissing {
			column.swapRemove(row)
		} else {
			column.swapRemoveAndForget(row)
		}
	}
	swapped, hasSwapped := t.swapRemoveEntity(row)
	return tableMoveResult{newRow: newRow, swapped: swapped, hasSwapped: hasSwapped}
}

func (t *Table) moveToAndDropMissing(row int, dst *Table) tableMoveResult {
	return t.moveTo(row, dst, true)
}

func (t *Table) moveToAndForgetMissing(row int, dst *Table) tableMoveResult {
	return t.moveTo(row, dst, false)
}

// swapRemove drops every value in row and fills the gap with the last row.
func (t *Table) swapRemove(row int) (EntityId, bool) {
	for _, id := range t.componentIds {
		t.Column(id).swapRemove(row)
	}
	return t.swapRemoveEntity(row)
}

func (t *Table) checkChangeTicks(changeTick Tick) {
	for _, id := range t.componentIds {
		t.Column(id).checkChangeTicks(changeTick)
	}
}

// Tables owns every table of a world. Table 0 has no columns.
type Tables struct {
	tables     []*Table
	byIdentity *intmap.Map[uint64, []TableId]
}

func newTables(registry *ComponentRegistry, capacity int) Tables {
	t := Tables{byIdentity: intmap.New[uint64, []TableId](64)}
	t.getIdOrInsert(nil, registry, capacity)
	return t
}

func (t *Tables) Len() int { return len(t.tables) }

// Get returns the table with the given id.
func (t *Tables) Get(id TableId) (*Table, bool) {
	if int(id) >= len(t.tables) {
		return nil, false
	}
	return t.tables[id], true
}

func (t *Tables) get(id TableId) *Table {
	return t.tables[id]
}

// getIdOrInsert returns the table for a sorted component set, creating it on first use.
func (t *Tables) getIdOrInsert(componentIds []ComponentId, registry *ComponentRegistry, capacity int) (TableId, bool) {
	key := hashComponentIds(componentIds)
	bucket, _ := t.byIdentity.Get(key)
	for _, id := range bucket {
		if slices.Equal(t.tables[id].componentIds, componentIds) {
			return id, false
		}
	}
	id := newTableId(len(t.tables))
	t.tables = append(t.tables, newTable(id, slices.Clone(componentIds), registry, capacity))
	t.byIdentity.Put(key, append(bucket, id))
	return id, true
}

func (t *Tables) checkChangeTicks(changeTick Tick) {
	for _, table := range t.tables {
		table.checkChangeTicks(changeTick)
	}
}
