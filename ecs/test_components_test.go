package ecs_test

import "github.com/plus3/tessera/ecs"

// Table-stored components
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Name struct {
	Value string
}

type Health struct {
	Current int
	Max     int
}

type AI struct {
	State int
}

// Named primitives, used as cheap tags to fan out archetypes
type Score int32
type Tag string
type Temperature float64

type TestA string
type TestB string

// Sparse-set stored components
type Buff struct {
	Strength int
}
type Marker struct{}

func newTestRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[AI](registry)
	ecs.RegisterComponent[Score](registry)
	ecs.RegisterComponent[Tag](registry)
	ecs.RegisterComponent[Temperature](registry)
	ecs.RegisterComponent[TestA](registry)
	ecs.RegisterComponent[TestB](registry)
	ecs.RegisterComponent[Buff](registry, ecs.WithStorage(ecs.StorageSparseSet))
	ecs.RegisterComponent[Marker](registry, ecs.WithStorage(ecs.StorageSparseSet))
	return registry
}

func newTestWorld() *ecs.World {
	return ecs.NewWorld(newTestRegistry())
}
