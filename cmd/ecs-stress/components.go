package main

import (
	"github.com/plus3/tessera/ecs"
)

type Position struct{ X, Y float64 }

type Velocity struct{ X, Y float64 }

type Health struct{ Current, Max int }

type Lifetime struct{ Remaining float64 }

// Burning is toggled on and off often, so it lives in a sparse set.
type Burning struct{ DamagePerSecond float64 }

// Tracked marks entities the proximity system compares pairwise.
type Tracked struct{}

type FrameCounter struct {
	Frames   int64
	Spawned  int64
	Despawns int64
	Pairs    int64
}

func registerComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[Lifetime](registry)
	ecs.RegisterComponent[Burning](registry, ecs.WithStorage(ecs.StorageSparseSet))
	ecs.RegisterComponent[Tracked](registry, ecs.WithStorage(ecs.StorageSparseSet))
}
