package main

import (
	"cmp"
	"fmt"
	"io"
	"runtime"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/plus3/tessera/ecs"
)

// Report collects the outcome of one stress run.
type Report struct {
	Duration time.Duration
	Entities int
	Workers  int

	TotalUpdates   int64
	TotalTime      time.Duration
	Frames         FrameTimes
	GCPauseMetrics bool
	MemStatsStart  runtime.MemStats
	MemStatsEnd    runtime.MemStats

	World     ecs.WorldStats
	Scheduler *ecs.SchedulerStats
	Counter   FrameCounter
}

// FrameTimes summarizes the duration of every Scheduler.Once call.
type FrameTimes struct {
	Samples []time.Duration

	Min, Max, Mean time.Duration
	P50, P95, P99  time.Duration
}

func (f *FrameTimes) Record(d time.Duration) {
	f.Samples = append(f.Samples, d)
}

// Finalize sorts the samples and fills in the summary fields.
func (f *FrameTimes) Finalize() {
	if len(f.Samples) == 0 {
		return
	}
	slices.Sort(f.Samples)

	var total time.Duration
	for _, sample := range f.Samples {
		total += sample
	}
	f.Min = f.Samples[0]
	f.Max = f.Samples[len(f.Samples)-1]
	f.Mean = total / time.Duration(len(f.Samples))
	f.P50 = f.percentile(50)
	f.P95 = f.percentile(95)
	f.P99 = f.percentile(99)
}

// percentile uses nearest rank over the sorted samples.
func (f *FrameTimes) percentile(p int) time.Duration {
	rank := (p*len(f.Samples) + 99) / 100
	return f.Samples[max(rank-1, 0)]
}

// FPS is the number of frames per second of wall time.
func (r *Report) FPS() float64 {
	if r.TotalTime <= 0 {
		return 0
	}
	return float64(r.TotalUpdates) / r.TotalTime.Seconds()
}

// TopArchetypes returns the n most populated archetypes.
func (r *Report) TopArchetypes(n int) []ecs.ArchetypeStats {
	archetypes := slices.Clone(r.World.ArchetypeBreakdown)
	slices.SortFunc(archetypes, func(a, b ecs.ArchetypeStats) int {
		return cmp.Compare(b.EntityCount, a.EntityCount)
	})
	return archetypes[:min(n, len(archetypes))]
}

// Log writes a one-line summary of the run.
func (r *Report) Log(logger zerolog.Logger) {
	logger.Info().
		Int64("frames", r.TotalUpdates).
		Float64("fps", r.FPS()).
		Dur("p50", r.Frames.P50).
		Dur("p99", r.Frames.P99).
		Int("entities", r.World.TotalEntityCount).
		Int("archetypes", r.World.ArchetypeCount).
		Int64("spawned", r.Counter.Spawned).
		Int64("despawned", r.Counter.Despawns).
		Msg("stress run finished")
}

const reportTemplate = `
# ECS Stress Test Report

## Run
- **Duration:** {{.Duration}} (measured {{.TotalTime}})
- **Target Entities:** {{.Entities}}
- **Workers:** {{.Workers}}

## Frames
- **Frames:** {{.TotalUpdates}} ({{printf "%.1f" .FPS}} fps)
- **Frame Time:** min {{.Frames.Min}}, mean {{.Frames.Mean}}, max {{.Frames.Max}}
- **Percentiles:** p50 {{.Frames.P50}}, p95 {{.Frames.P95}}, p99 {{.Frames.P99}}

## World
- **Live Entities:** {{.World.TotalEntityCount}}
- **Archetypes:** {{.World.ArchetypeCount}} ({{len .World.ArchetypeBreakdown}} non-empty, generation {{.World.Generation}})
- **Tables / Sparse Sets:** {{.World.TableCount}} / {{.World.SparseSetCount}}
- **Change Tick:** {{.World.ChangeTick}} (last cleared at {{.World.LastChangeTick}})
- **Resources:** {{join .World.ResourceTypes ", "}}
- **Spawned / Despawned:** {{.Counter.Spawned}} / {{.Counter.Despawns}}
- **Close Tracked Pairs:** {{.Counter.Pairs}}

### Most Populated Archetypes
| Id | Table | Entities | Table Components | Sparse Components |
|---|---|---|---|---|
{{range .TopArchetypes 8}}| {{.Id}} | {{.TableId}} | {{.EntityCount}} | {{join .TableComponents ", "}} | {{join .SparseComponents ", "}} |
{{end}}
## Systems
{{range .Scheduler.Systems}}- **{{.Name}}:** avg {{.AvgDuration}}, max {{.MaxDuration}} over {{.ExecutionCount}} runs (last run tick {{.LastRun}})
{{end}}
## Memory
- **Heap Alloc:** {{mb .MemStatsStart.HeapAlloc}} MB -> {{mb .MemStatsEnd.HeapAlloc}} MB
- **Total Alloc:** {{mb (bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc)}} MB during the run
- **Sys:** {{mb .MemStatsEnd.Sys}} MB
- **GC Cycles:** {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}
{{if .GCPauseMetrics}}- **Total GC Pause:** {{ns (bsub .MemStatsEnd.PauseTotalNs .MemStatsStart.PauseTotalNs)}}
{{end}}`

// Generate renders the report as markdown.
func (r *Report) Generate(w io.Writer) error {
	fm := template.FuncMap{
		"mb": func(v uint64) string {
			return fmt.Sprintf("%.2f", float64(v)/1024/1024)
		},
		"bsub": func(a, b uint64) uint64 {
			if a < b {
				return 0
			}
			return a - b
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
		"ns": func(ns uint64) string {
			return time.Duration(ns).String()
		},
		"join": strings.Join,
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return eris.Wrap(err, "parse report template")
	}
	return eris.Wrap(tmpl.Execute(w, r), "render report")
}
