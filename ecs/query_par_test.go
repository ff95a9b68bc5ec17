package ecs_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/tessera/ecs"
	"github.com/plus3/tessera/ecs/taskpool"
)

func TestParForEachDenseVisitsEveryEntityOnce(t *testing.T) {
	w := newTestWorld()
	for i := range 1000 {
		if i%4 == 0 {
			w.Spawn(Position{}, Velocity{DX: 1}, Health{})
		} else {
			w.Spawn(Position{}, Velocity{DX: 1})
		}
	}
	w.Spawn(Position{})

	state := ecs.NewQueryState[movingItem](w)
	require.True(t, state.IsDense())

	var visited sync.Map
	var count atomic.Int64
	err := state.ParForEach(w, taskpool.New(4), 64, func(item movingItem) error {
		_, dup := visited.LoadOrStore(item.Entity, true)
		assert.False(t, dup)
		item.Pos.X += item.Vel.DX
		count.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), count.Load())

	for item := range state.Iter(w).Values() {
		assert.Equal(t, float32(1), item.Pos.X)
	}
}

func TestParForEachSparse(t *testing.T) {
	w := newTestWorld()
	var buffed []ecs.EntityId
	for i := range 300 {
		e := w.Spawn(Position{}, Velocity{})
		if i%3 == 0 {
			require.NoError(t, w.Insert(e, Buff{Strength: i}))
			buffed = append(buffed, e)
		}
	}
	state := ecs.NewQueryState[buffedItem](w)
	require.False(t, state.IsDense())

	var mu sync.Mutex
	var got []ecs.EntityId
	err := state.ParForEach(w, taskpool.New(3), 7, func(item buffedItem) error {
		mu.Lock()
		got = append(got, item.Entity)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, buffed, got)
}

func TestParForEachAppliesRowFilters(t *testing.T) {
	w := newTestWorld()
	var entities []ecs.EntityId
	for range 100 {
		entities = append(entities, w.Spawn(Position{}, Health{}))
	}
	w.ClearTrackers()
	for _, e := range entities[:10] {
		ecs.GetMut[Health](w, e)
	}

	state := ecs.NewQueryState[posReadItem](w, ecs.Changed[Health]())
	var count atomic.Int64
	err := state.ParForEach(w, taskpool.New(0), 0, func(posReadItem) error {
		count.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), count.Load())
}

func TestParForEachReturnsTaskError(t *testing.T) {
	w := newTestWorld()
	for range 50 {
		w.Spawn(Position{})
	}
	boom := errors.New("boom")

	state := ecs.NewQueryState[posReadItem](w)
	err := state.ParForEach(w, taskpool.New(2), 10, func(item posReadItem) error {
		if item.Entity.Index() == 25 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestQueryParForEachUsesSystemTicks(t *testing.T) {
	w := newTestWorld()
	e := w.Spawn(Position{}, Velocity{DX: 2})

	var q ecs.Query[movingItem]
	ticks := &ecs.SystemTicks{}
	q.Init(w, ticks)
	ticks.ThisRun = w.IncrementChangeTick()

	err := q.ParForEach(taskpool.New(1), 0, func(item movingItem) error {
		item.Pos.X += item.Vel.DX
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, float32(2), ecs.ReadComponent[Position](w, e).X)
	assert.Equal(t, ticks.ThisRun, mustTicks[Position](t, w, e).Changed)
}
