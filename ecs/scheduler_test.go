package ecs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/tessera/ecs"
)

type healthItem struct {
	Entity ecs.EntityId
	Health *Health `ecs:"read"`
}

// changedHealthSystem records which entities had their Health changed since
// its previous run.
type changedHealthSystem struct {
	Changed ecs.Query[healthItem]
	Clock   *ecs.Singleton[GameClock]

	seen [][]ecs.EntityId
}

func (s *changedHealthSystem) Execute(frame *ecs.UpdateFrame) {
	var frameSeen []ecs.EntityId
	for item := range s.Changed.State().IterWithTicks(frame.World, frame.LastRun, frame.ThisRun).Values() {
		if ticks, ok := ecs.TicksOf[Health](frame.World, item.Entity); ok && ticks.IsChanged(frame.LastRun, frame.ThisRun) {
			frameSeen = append(frameSeen, item.Entity)
		}
	}
	s.seen = append(s.seen, frameSeen)
	if s.Clock.Exists() {
		s.Clock.GetMut().Frame++
	}
}

type filteredHealthSystem struct {
	Changed ecs.Query[changedHealthItem]
	seen    [][]ecs.EntityId
}

type changedHealthItem struct {
	Entity ecs.EntityId
	Health *Health `ecs:"read"`
}

func (changedHealthItem) Filters() []ecs.Filter {
	return []ecs.Filter{ecs.Changed[Health]()}
}

func (s *filteredHealthSystem) Execute(frame *ecs.UpdateFrame) {
	var frameSeen []ecs.EntityId
	for entity := range s.Changed.Iter() {
		frameSeen = append(frameSeen, entity)
	}
	s.seen = append(s.seen, frameSeen)
}

// damageSystem writes Health of every entity on every frame it is enabled.
type damageSystem struct {
	Targets ecs.Query[struct {
		Health *Health
	}]
	enabled bool
}

func (s *damageSystem) Execute(frame *ecs.UpdateFrame) {
	if !s.enabled {
		return
	}
	for item := range s.Targets.Values() {
		item.Health.Current--
	}
}

type spawnerSystem struct {
	stale ecs.EntityId
}

func (s *spawnerSystem) Execute(frame *ecs.UpdateFrame) {
	frame.Commands.Spawn(Position{})
	if s.stale != 0 {
		frame.Commands.Despawn(s.stale)
	}
}

func TestSchedulerInitializesSystemParams(t *testing.T) {
	w := newTestWorld()
	ecs.InsertResource(w, GameClock{})
	scheduler := ecs.NewScheduler(w)

	system := &changedHealthSystem{}
	scheduler.Register(system)
	require.NotNil(t, system.Clock)
	require.NotNil(t, system.Changed.State())

	require.NoError(t, scheduler.Once(0.016))
	require.NoError(t, scheduler.Once(0.016))
	assert.Equal(t, 2, system.Clock.Get().Frame)
}

func TestSchedulerChangeDetectionAcrossFrames(t *testing.T) {
	w := newTestWorld()
	a := w.Spawn(Health{Current: 10})
	b := w.Spawn(Health{Current: 10})

	scheduler := ecs.NewScheduler(w)
	filtered := &filteredHealthSystem{}
	scheduler.Register(filtered)

	require.NoError(t, scheduler.Once(0))
	assert.ElementsMatch(t, []ecs.EntityId{a, b}, filtered.seen[0], "first run sees everything")

	require.NoError(t, scheduler.Once(0))
	assert.Empty(t, filtered.seen[1])

	health, _ := ecs.GetMut[Health](w, b)
	health.Current = 1
	require.NoError(t, scheduler.Once(0))
	assert.Equal(t, []ecs.EntityId{b}, filtered.seen[2])

	require.NoError(t, scheduler.Once(0))
	assert.Empty(t, filtered.seen[3])
}

func TestSchedulerSeesWritesOfEarlierAndLaterSystems(t *testing.T) {
	w := newTestWorld()
	e := w.Spawn(Health{Current: 10})
	scheduler := ecs.NewScheduler(w)

	before := &filteredHealthSystem{}
	damage := &damageSystem{}
	after := &filteredHealthSystem{}
	scheduler.Register(before)
	scheduler.Register(damage)
	scheduler.Register(after)

	require.NoError(t, scheduler.Once(0))
	require.NoError(t, scheduler.Once(0))
	assert.Empty(t, before.seen[1])
	assert.Empty(t, after.seen[1])

	damage.enabled = true
	require.NoError(t, scheduler.Once(0))
	assert.Empty(t, before.seen[2], "runs before the write")
	assert.Equal(t, []ecs.EntityId{e}, after.seen[2])

	damage.enabled = false
	require.NoError(t, scheduler.Once(0))
	assert.Equal(t, []ecs.EntityId{e}, before.seen[3], "sees the write from the previous frame")
	assert.Empty(t, after.seen[3])
	assert.Equal(t, 9, ecs.ReadComponent[Health](w, e).Current)
}

func TestSchedulerFlushesCommandsAfterFrame(t *testing.T) {
	w := newTestWorld()
	scheduler := ecs.NewScheduler(w)
	spawner := &spawnerSystem{}
	scheduler.Register(spawner)

	require.NoError(t, scheduler.Once(0))
	assert.Equal(t, 1, w.EntityCount())

	stale := w.Spawn(Position{})
	w.Despawn(stale)
	spawner.stale = stale
	err := scheduler.Once(0)
	assert.ErrorIs(t, err, ecs.ErrEntityNotFound)
	assert.Equal(t, 2, w.EntityCount())
}

func TestSchedulerAdvancesTicks(t *testing.T) {
	w := newTestWorld()
	scheduler := ecs.NewScheduler(w)
	scheduler.Register(&filteredHealthSystem{})
	scheduler.Register(&filteredHealthSystem{})

	start := w.ChangeTick()
	require.NoError(t, scheduler.Once(0))
	assert.Equal(t, start+3, w.ChangeTick(), "one tick per system plus the tracker clear")
	assert.Equal(t, start+2, w.LastChangeTick())

	stats := scheduler.GetStats()
	assert.Equal(t, 2, stats.SystemCount)
	assert.Equal(t, int64(2), stats.TotalExecutions)
	require.Len(t, stats.Systems, 2)
	assert.Equal(t, "filteredHealthSystem", stats.Systems[0].Name)
	assert.Equal(t, start, stats.Systems[0].LastRun)
	assert.Equal(t, start+1, stats.Systems[1].LastRun)
	assert.Equal(t, int64(1), stats.Systems[1].ExecutionCount)
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	w := newTestWorld()
	scheduler := ecs.NewScheduler(w)
	system := &filteredHealthSystem{}
	scheduler.Register(system)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	scheduler.Run(ctx, time.Millisecond)

	assert.NotEmpty(t, system.seen)
}
