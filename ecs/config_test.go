package ecs_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/tessera/ecs"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := ecs.LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, ecs.DefaultConfig(), config)

	_, ok := config.Level()
	assert.False(t, ok)
}

func TestLoadConfigOverrides(t *testing.T) {
	doc := `
check_tick_threshold: 1000
default_batch_size: 32
log_level: debug
`
	config, err := ecs.LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), config.CheckTickThreshold)
	assert.Equal(t, 32, config.DefaultBatchSize)
	assert.Equal(t, ecs.DefaultConfig().InitialEntityCapacity, config.InitialEntityCapacity)

	level, ok := config.Level()
	require.True(t, ok)
	assert.Equal(t, zerolog.DebugLevel, level)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"zero threshold":     "check_tick_threshold: 0",
		"threshold too high": "check_tick_threshold: 4000000000",
		"negative capacity":  "initial_entity_capacity: -1",
		"zero batch":         "default_batch_size: 0",
		"bad level":          "log_level: loud",
		"bad yaml":           "check_tick_threshold: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ecs.LoadConfig(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestNewWorldRejectsInvalidConfig(t *testing.T) {
	config := ecs.DefaultConfig()
	config.DefaultBatchSize = 0
	assert.Panics(t, func() { ecs.NewWorld(newTestRegistry(), ecs.WithConfig(config)) })
}

func TestWorldLogLevelFromConfig(t *testing.T) {
	var buf bytes.Buffer
	config := ecs.DefaultConfig()
	config.LogLevel = "warn"
	w := ecs.NewWorld(newTestRegistry(), ecs.WithConfig(config), ecs.WithLogger(zerolog.New(&buf)))

	w.LogState("state")
	assert.Empty(t, buf.String(), "debug output is filtered")
	assert.Equal(t, zerolog.WarnLevel, w.Logger().GetLevel())
}
