package ecs_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/tessera/ecs"
)

func TestCollectStats(t *testing.T) {
	w := newTestWorld()
	w.Spawn(Position{}, Velocity{})
	w.Spawn(Position{}, Velocity{})
	w.Spawn(Position{}, Buff{})
	gone := w.Spawn(Health{})
	w.Despawn(gone)
	ecs.InsertResource(w, GameClock{})
	ecs.InitResource[Settings](w)
	ecs.RemoveResource[Settings](w)

	stats := w.CollectStats()
	assert.Equal(t, 3, stats.TotalEntityCount)
	assert.Equal(t, 4, stats.ArchetypeCount, "empty, pos+vel, pos+buff, health")
	assert.Equal(t, 4, stats.TableCount, "empty, pos+vel, pos, health")
	assert.Equal(t, 1, stats.SparseSetCount)
	assert.Equal(t, 1, stats.ResourceCount)
	assert.Equal(t, []string{"ecs_test.GameClock"}, stats.ResourceTypes)
	assert.Equal(t, w.ChangeTick(), stats.ChangeTick)
	assert.Equal(t, w.Generation(), stats.Generation)

	require.Len(t, stats.ArchetypeBreakdown, 2)
	byCount := map[int]ecs.ArchetypeStats{}
	for _, a := range stats.ArchetypeBreakdown {
		byCount[a.EntityCount] = a
	}
	assert.ElementsMatch(t, []string{"ecs_test.Position", "ecs_test.Velocity"}, byCount[2].TableComponents)
	assert.Empty(t, byCount[2].SparseComponents)
	assert.Equal(t, []string{"ecs_test.Position"}, byCount[1].TableComponents)
	assert.Equal(t, []string{"ecs_test.Buff"}, byCount[1].SparseComponents)
}

func TestLogState(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	w := ecs.NewWorld(newTestRegistry(), ecs.WithLogger(logger))
	w.Spawn(Position{}, Buff{})
	buf.Reset()

	w.LogState("snapshot")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "snapshot", event["message"])
	assert.Equal(t, float64(1), event["entities"])
	archetypes, ok := event["archetypes"].([]any)
	require.True(t, ok)
	assert.Len(t, archetypes, 1)
}
