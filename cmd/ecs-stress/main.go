package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/plus3/tessera/ecs"
	"github.com/plus3/tessera/ecs/taskpool"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The target number of live entities.")
	configPath := flag.String("config", "", "Optional YAML file with world configuration.")
	profileMode := flag.String("profile", "", "Write a profile to the working directory: cpu, mem or allocs.")
	workers := flag.Int("workers", 0, "Task pool size for parallel systems (0 uses GOMAXPROCS).")
	batchSize := flag.Int("batch", 0, "Parallel batch size (0 uses the configured default).")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	if err := run(logger, options{
		duration:       *duration,
		entities:       *entityCount,
		configPath:     *configPath,
		profileMode:    *profileMode,
		workers:        *workers,
		batchSize:      *batchSize,
		seed:           *seed,
		gcPauseMetrics: *gcPauseMetrics,
	}); err != nil {
		logger.Fatal().Err(err).Msg("stress test failed")
	}
}

type options struct {
	duration       time.Duration
	entities       int
	configPath     string
	profileMode    string
	workers        int
	batchSize      int
	seed           int64
	gcPauseMetrics bool
}

func loadConfig(path string) (ecs.Config, error) {
	if path == "" {
		return ecs.DefaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return ecs.Config{}, eris.Wrap(err, "open config")
	}
	defer f.Close()
	return ecs.LoadConfig(f)
}

func startProfile(mode string) (interface{ Stop() }, error) {
	opts := []func(*profile.Profile){profile.ProfilePath("."), profile.NoShutdownHook}
	switch mode {
	case "":
		return nil, nil
	case "cpu":
		opts = append(opts, profile.CPUProfile)
	case "mem":
		opts = append(opts, profile.MemProfile)
	case "allocs":
		opts = append(opts, profile.MemProfileAllocs)
	default:
		return nil, eris.Errorf("unknown profile mode %q", mode)
	}
	return profile.Start(opts...), nil
}

func run(logger zerolog.Logger, opts options) error {
	config, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	logger.Info().Int64("seed", opts.seed).Msg("starting ECS stress test")
	rng := rand.New(rand.NewSource(opts.seed))

	// 1. Setup registry, world and scheduler
	registry := ecs.NewComponentRegistry()
	registerComponents(registry)
	world := ecs.NewWorld(registry, ecs.WithConfig(config), ecs.WithLogger(logger))
	ecs.NewSingleton[FrameCounter](world)

	pool := taskpool.New(opts.workers)
	scheduler := ecs.NewScheduler(world)
	scheduler.Register(&SpawnSystem{target: opts.entities, rng: rng})
	scheduler.Register(&MovementSystem{pool: pool, batchSize: opts.batchSize})
	scheduler.Register(&BurnSystem{rng: rng})
	scheduler.Register(&IgniteSystem{rng: rng})
	scheduler.Register(&ProximitySystem{})
	scheduler.Register(&LifetimeSystem{})

	// 2. Populate the world with initial entities
	logger.Info().Int("entities", opts.entities).Msg("populating world")
	commands := ecs.NewCommands()
	for range opts.entities {
		spawnRandomEntity(commands, rng)
	}
	if err := commands.Flush(world); err != nil {
		return err
	}
	world.LogState("population complete")

	// 3. Run the simulation loop
	report := &Report{
		Duration:       opts.duration,
		Entities:       opts.entities,
		Workers:        pool.Limit(),
		GCPauseMetrics: opts.gcPauseMetrics,
	}

	p, err := startProfile(opts.profileMode)
	if err != nil {
		return err
	}

	runtime.ReadMemStats(&report.MemStatsStart)

	logger.Info().Dur("duration", opts.duration).Msg("running simulation")
	ctx, cancel := context.WithTimeout(context.Background(), opts.duration)
	defer cancel()

	startTime := time.Now()
	var totalUpdates int64
	lastFrameTime := time.Now()

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			deltaTime := time.Since(lastFrameTime)
			lastFrameTime = time.Now()

			updateStart := time.Now()
			if err := scheduler.Once(deltaTime.Seconds()); err != nil {
				logger.Warn().Err(err).Msg("frame commands failed")
			}
			report.Frames.Record(time.Since(updateStart))
			totalUpdates++
		}
	}

	report.TotalTime = time.Since(startTime)
	report.TotalUpdates = totalUpdates
	report.Frames.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)
	if p != nil {
		p.Stop()
	}

	report.World = world.CollectStats()
	report.Scheduler = scheduler.GetStats()
	if counter, ok := ecs.GetResource[FrameCounter](world); ok {
		report.Counter = *counter
	}
	world.LogState("simulation finished")
	report.Log(logger)

	// 4. Generate report to console
	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		return eris.Wrap(err, "generate report")
	}
	fmt.Println("--- End of Report ---")
	return nil
}
