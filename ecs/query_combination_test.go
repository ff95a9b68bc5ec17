package ecs_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/tessera/ecs"
)

// bruteCombinations lists every k-combination of items in order.
func bruteCombinations(items []ecs.EntityId, k int) [][]ecs.EntityId {
	if k == 0 {
		return nil
	}
	var out [][]ecs.EntityId
	var walk func(start int, prefix []ecs.EntityId)
	walk = func(start int, prefix []ecs.EntityId) {
		if len(prefix) == k {
			out = append(out, append([]ecs.EntityId(nil), prefix...))
			return
		}
		for i := start; i < len(items); i++ {
			walk(i+1, append(prefix, items[i]))
		}
	}
	walk(0, nil)
	return out
}

func combinationWorld(t *testing.T) (*ecs.World, *ecs.QueryState[posReadItem]) {
	t.Helper()
	w := newTestWorld()
	w.Spawn(Position{X: 0})
	w.Spawn(Position{X: 1}, Velocity{})
	w.Spawn(Position{X: 2})
	w.Spawn(Position{X: 3}, Name{})
	w.Spawn(Position{X: 4}, Velocity{})
	w.Spawn(Velocity{})
	return w, ecs.NewQueryState[posReadItem](w)
}

func TestCombinationsMatchBruteForce(t *testing.T) {
	for k := 0; k <= 6; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			w, state := combinationWorld(t)
			order := entitiesOf(state.Iter(w))
			require.Len(t, order, 5)

			var got [][]ecs.EntityId
			it := state.IterCombinations(w, k)
			for {
				combination, ok := it.FetchNext()
				if !ok {
					break
				}
				ids := make([]ecs.EntityId, len(combination))
				for i, item := range combination {
					ids[i] = item.Entity
				}
				got = append(got, ids)
			}
			assert.Equal(t, bruteCombinations(order, k), got)

			lower, upper, ok := state.IterCombinations(w, k).SizeHint()
			assert.True(t, ok)
			assert.Equal(t, len(got), lower)
			assert.Equal(t, len(got), upper)
		})
	}
}

func TestCombinationsAreDistinctEntities(t *testing.T) {
	w, state := combinationWorld(t)
	for combination := range state.IterCombinationsReadOnly(w, 3).All() {
		seen := map[ecs.EntityId]bool{}
		for _, item := range combination {
			assert.False(t, seen[item.Entity])
			seen[item.Entity] = true
		}
	}
}

func TestCombinationsFetchNextReusesBuffer(t *testing.T) {
	w, state := combinationWorld(t)
	it := state.IterCombinations(w, 2)
	first, ok := it.FetchNext()
	require.True(t, ok)
	firstEntity := first[1].Entity

	second, ok := it.FetchNext()
	require.True(t, ok)
	assert.Same(t, &first[0], &second[0])
	assert.NotEqual(t, firstEntity, first[1].Entity)
}

func TestCombinationsReadOnlyAllocates(t *testing.T) {
	w, state := combinationWorld(t)
	it := state.IterCombinationsReadOnly(w, 2)
	var all [][]posReadItem
	for {
		combination, ok := it.Next()
		if !ok {
			break
		}
		all = append(all, combination)
	}
	require.Len(t, all, 10)
	assert.NotEqual(t, all[0][1].Entity, all[1][1].Entity, "earlier combinations survive later calls")

	writes := ecs.NewQueryState[movingItem](w)
	assert.Panics(t, func() { writes.IterCombinationsReadOnly(w, 2) })
}

func TestCombinationsWithRowFilter(t *testing.T) {
	w := newTestWorld()
	var healthy []ecs.EntityId
	for i := range 6 {
		healthy = append(healthy, w.Spawn(Position{X: float32(i)}, Health{}))
	}
	w.ClearTrackers()
	changed := []ecs.EntityId{healthy[1], healthy[3], healthy[4]}
	for _, e := range changed {
		ecs.GetMut[Health](w, e)
	}

	state := ecs.NewQueryState[posReadItem](w, ecs.Changed[Health]())
	var got [][]ecs.EntityId
	for combination := range state.IterCombinationsReadOnly(w, 2).All() {
		got = append(got, []ecs.EntityId{combination[0].Entity, combination[1].Entity})
	}
	assert.Equal(t, bruteCombinations(changed, 2), got)

	lower, upper, ok := state.IterCombinations(w, 2).SizeHint()
	assert.True(t, ok)
	assert.Equal(t, 0, lower)
	assert.Equal(t, 15, upper)
}

func TestCombinationsSparseQuery(t *testing.T) {
	w := newTestWorld()
	var buffed []ecs.EntityId
	for i := range 5 {
		e := w.Spawn(Position{X: float32(i)}, Buff{Strength: i})
		if i%2 == 1 {
			w.Insert(e, Velocity{})
		}
		buffed = append(buffed, e)
	}
	state := ecs.NewQueryState[buffedItem](w)
	require.False(t, state.IsDense())

	order := entitiesOf(state.Iter(w))
	assert.ElementsMatch(t, buffed, order)

	var got [][]ecs.EntityId
	for combination := range state.IterCombinationsReadOnly(w, 3).All() {
		got = append(got, []ecs.EntityId{combination[0].Entity, combination[1].Entity, combination[2].Entity})
	}
	assert.Equal(t, bruteCombinations(order, 3), got)
}

func TestCombinationsNegativeK(t *testing.T) {
	w, state := combinationWorld(t)
	assert.Panics(t, func() { state.IterCombinations(w, -1) })
}
