package ecs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/tessera/ecs"
)

func TestIterManyVisitsListInOrder(t *testing.T) {
	w := newTestWorld()
	a := w.Spawn(Position{X: 1}, Velocity{})
	b := w.Spawn(Position{X: 2}, Velocity{}, Buff{})
	noVel := w.Spawn(Position{X: 3})
	dead := w.Spawn(Position{X: 4}, Velocity{})
	w.Despawn(dead)

	state := ecs.NewQueryState[movingItem](w)
	it := state.IterMany(w, []ecs.EntityId{b, noVel, a, dead, b})

	var got []ecs.EntityId
	var xs []float32
	for {
		item, ok := it.FetchNext()
		if !ok {
			break
		}
		got = append(got, item.Entity)
		xs = append(xs, item.Pos.X)
	}
	assert.Equal(t, []ecs.EntityId{b, a, b}, got)
	assert.Equal(t, []float32{2, 1, 2}, xs)

	_, ok := it.FetchNext()
	assert.False(t, ok, "stays exhausted")
}

func TestIterManyFetchNextReusesBuffer(t *testing.T) {
	w := newTestWorld()
	a := w.Spawn(Position{X: 1}, Velocity{})
	b := w.Spawn(Position{X: 2}, Velocity{})

	it := ecs.NewQueryState[movingItem](w).IterMany(w, []ecs.EntityId{a, b})
	first, ok := it.FetchNext()
	require.True(t, ok)
	assert.Equal(t, a, first.Entity)

	second, ok := it.FetchNext()
	require.True(t, ok)
	assert.Same(t, first, second)
	assert.Equal(t, b, first.Entity, "the first result was overwritten")
}

func TestIterManyWritesThroughRepeatedEntity(t *testing.T) {
	w := newTestWorld()
	e := w.Spawn(Position{}, Velocity{DX: 1})

	it := ecs.NewQueryState[movingItem](w).IterMany(w, []ecs.EntityId{e, e, e})
	for {
		item, ok := it.FetchNext()
		if !ok {
			break
		}
		item.Pos.X += item.Vel.DX
	}
	assert.Equal(t, float32(3), ecs.ReadComponent[Position](w, e).X)
	assert.Equal(t, w.ChangeTick(), mustTicks[Position](t, w, e).Changed)
}

func TestIterManyAppliesRowFilters(t *testing.T) {
	w := newTestWorld()
	a := w.Spawn(Position{}, Health{})
	b := w.Spawn(Position{}, Health{})
	w.ClearTrackers()
	ecs.GetMut[Health](w, b)

	state := ecs.NewQueryState[posReadItem](w, ecs.Changed[Health]())
	var got []ecs.EntityId
	for item := range state.IterManyReadOnly(w, []ecs.EntityId{a, b}).All() {
		got = append(got, item.Entity)
	}
	assert.Equal(t, []ecs.EntityId{b}, got)
}

func TestIterManyReadOnly(t *testing.T) {
	w := newTestWorld()
	a := w.Spawn(Position{X: 1})
	b := w.Spawn(Position{X: 2})

	it := ecs.NewQueryState[posReadItem](w).IterManyReadOnly(w, []ecs.EntityId{a, b, a})
	lower, upper := it.SizeHint()
	assert.Equal(t, 0, lower)
	assert.Equal(t, 3, upper)

	var items []posReadItem
	for item := range it.All() {
		items = append(items, item)
	}
	require.Len(t, items, 3)
	assert.Equal(t, float32(1), items[0].Pos.X)
	assert.Equal(t, float32(2), items[1].Pos.X)
	assert.Equal(t, items[0], items[2], "read-only items can be held")

	writes := ecs.NewQueryState[movingItem](w)
	assert.Panics(t, func() { writes.IterManyReadOnly(w, []ecs.EntityId{a}) })
}
