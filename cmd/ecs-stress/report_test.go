package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/tessera/ecs"
)

func TestFrameTimesFinalize(t *testing.T) {
	var frames FrameTimes
	for i := 100; i >= 1; i-- {
		frames.Record(time.Duration(i) * time.Millisecond)
	}
	frames.Finalize()

	assert.Equal(t, time.Millisecond, frames.Min)
	assert.Equal(t, 100*time.Millisecond, frames.Max)
	assert.Equal(t, 50500*time.Microsecond, frames.Mean)
	assert.Equal(t, 50*time.Millisecond, frames.P50)
	assert.Equal(t, 95*time.Millisecond, frames.P95)
	assert.Equal(t, 99*time.Millisecond, frames.P99)
}

func TestFrameTimesSingleSample(t *testing.T) {
	var frames FrameTimes
	frames.Record(time.Second)
	frames.Finalize()
	assert.Equal(t, time.Second, frames.P50)
	assert.Equal(t, time.Second, frames.P99)
}

func TestReportGenerate(t *testing.T) {
	registry := ecs.NewComponentRegistry()
	registerComponents(registry)
	world := ecs.NewWorld(registry)
	ecs.NewSingleton[FrameCounter](world)
	world.Spawn(Position{}, Velocity{})
	world.Spawn(Position{}, Velocity{})
	world.Spawn(Position{}, Burning{})

	scheduler := ecs.NewScheduler(world)
	scheduler.Register(&ProximitySystem{})
	require.NoError(t, scheduler.Once(0.016))

	report := &Report{
		Duration:     time.Second,
		Entities:     3,
		Workers:      1,
		TotalUpdates: 1,
		TotalTime:    time.Second,
		World:        world.CollectStats(),
		Scheduler:    scheduler.GetStats(),
	}
	report.Frames.Record(time.Millisecond)
	report.Frames.Finalize()

	top := report.TopArchetypes(1)
	require.Len(t, top, 1)
	assert.Equal(t, 2, top[0].EntityCount)

	var buf bytes.Buffer
	require.NoError(t, report.Generate(&buf))
	out := buf.String()
	assert.Contains(t, out, "# ECS Stress Test Report")
	assert.Contains(t, out, "**Live Entities:** 3")
	assert.Contains(t, out, "ProximitySystem")
	assert.Contains(t, out, "main.FrameCounter")
	assert.Contains(t, out, "main.Burning")
}
