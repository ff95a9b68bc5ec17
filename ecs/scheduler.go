package ecs

import (
	"context"
	"reflect"
	"time"
)

// System is one unit of per-frame behavior. Exported fields implementing
// SystemParam (Query, Singleton) are bound to the world at registration;
// other fields keep their state between frames.
type System interface {
	Execute(frame *UpdateFrame)
}

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	SystemCount     int
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
	LastRun        Tick
}

type systemStatsInternal struct {
	name           string
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

// Scheduler executes systems one after another in registration order.
type Scheduler struct {
	world       *World
	systems     []System
	ticks       []*SystemTicks
	systemStats []*systemStatsInternal
}

// NewScheduler creates a new scheduler for the given world.
func NewScheduler(world *World) *Scheduler {
	return &Scheduler{
		world:   world,
		systems: make([]System, 0),
	}
}

// Register adds a system to the scheduler and initializes its SystemParam fields.
// A new system sees everything in the world as changed on its first run.
func (s *Scheduler) Register(system System) {
	ticks := &SystemTicks{}
	s.initializeParams(system, ticks)
	s.systems = append(s.systems, system)
	s.ticks = append(s.ticks, ticks)

	systemType := reflect.TypeOf(system)
	if systemType.Kind() == reflect.Ptr {
		systemType = systemType.Elem()
	}
	systemName := systemType.Name()

	s.systemStats = append(s.systemStats, &systemStatsInternal{
		name:        systemName,
		minDuration: time.Duration(1<<63 - 1),
	})
	s.world.logger.Debug().Str("system", systemName).Msg("registered system")
}

func (s *Scheduler) initializeParams(system System, ticks *SystemTicks) {
	systemValue := reflect.ValueOf(system)
	if systemValue.Kind() == reflect.Ptr {
		systemValue = systemValue.Elem()
	}

	if systemValue.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < systemValue.NumField(); i++ {
		field := systemValue.Field(i)
		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Ptr {
			if field.IsNil() {
				if _, ok := reflect.New(field.Type().Elem()).Interface().(SystemParam); !ok {
					continue
				}
				field.Set(reflect.New(field.Type().Elem()))
			}
			field = field.Elem()
		}

		if field.Kind() != reflect.Struct {
			continue
		}

		if param, ok := field.Addr().Interface().(SystemParam); ok {
			param.Init(s.world, ticks)
		}
	}
}

// Once executes all registered systems once with the given delta time, then
// flushes their commands and advances the world's change trackers. The
// returned error comes from applying the frame's commands.
func (s *Scheduler) Once(dt float64) error {
	frame := newUpdateFrame(dt, s.world)

	for i, system := range s.systems {
		ticks := s.ticks[i]
		ticks.ThisRun = s.world.IncrementChangeTick()
		frame.LastRun, frame.ThisRun = ticks.LastRun, ticks.ThisRun

		start := time.Now()
		system.Execute(frame)
		duration := time.Since(start)

		ticks.LastRun = ticks.ThisRun

		stats := s.systemStats[i]
		stats.executionCount++
		stats.lastDuration = duration
		stats.totalDuration += duration

		if duration < stats.minDuration {
			stats.minDuration = duration
		}
		if duration > stats.maxDuration {
			stats.maxDuration = duration
		}
	}

	err := frame.Commands.Flush(s.world)

	if s.world.CheckChangeTicks() {
		changeTick := s.world.ChangeTick()
		for _, ticks := range s.ticks {
			checkTick(&ticks.LastRun, changeTick)
		}
	}
	s.world.ClearTrackers()
	return err
}

// Run executes all systems repeatedly at the given interval until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(lastTime).Seconds()
			lastTime = now
			if err := s.Once(dt); err != nil {
				s.world.logger.Warn().Err(err).Msg("frame commands failed")
			}
		}
	}
}

// GetStats returns statistics about system execution.
func (s *Scheduler) GetStats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount: len(s.systems),
		Systems:     make([]SystemStats, len(s.systemStats)),
	}

	var totalExecs int64
	for i, internal := range s.systemStats {
		avgDuration := time.Duration(0)
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		}

		stats.Systems[i] = SystemStats{
			Name:           internal.name,
			ExecutionCount: internal.executionCount,
			MinDuration:    internal.minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
			LastRun:        s.ticks[i].LastRun,
		}
		totalExecs += internal.executionCount
	}

	stats.TotalExecutions = totalExecs
	return stats
}
