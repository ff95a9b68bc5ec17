package main

import (
	"math/rand"
	"reflect"

	"github.com/plus3/tessera/ecs"
)

type movementItem struct {
	Position *Position
	Velocity *Velocity `ecs:"read"`
}

// MovementSystem integrates velocities on the task pool.
type MovementSystem struct {
	Movers ecs.Query[movementItem]

	pool      ecs.TaskPool
	batchSize int
}

func (s *MovementSystem) Execute(frame *ecs.UpdateFrame) {
	dt := frame.DeltaTime
	err := s.Movers.ParForEach(s.pool, s.batchSize, func(item movementItem) error {
		item.Position.X += item.Velocity.X * dt
		item.Position.Y += item.Velocity.Y * dt
		return nil
	})
	if err != nil {
		frame.World.Logger().Error().Err(err).Msg("movement failed")
	}
}

type burnItem struct {
	Entity  ecs.EntityId
	Health  *Health
	Burning *Burning `ecs:"read"`
}

// BurnSystem damages burning entities and puts out a few fires every frame.
type BurnSystem struct {
	Burning ecs.Query[burnItem]
	rng     *rand.Rand
}

func (s *BurnSystem) Execute(frame *ecs.UpdateFrame) {
	for entity, item := range s.Burning.Iter() {
		item.Health.Current -= int(item.Burning.DamagePerSecond*frame.DeltaTime) + 1
		if s.rng.Intn(10) == 0 {
			frame.Commands.Remove(entity, reflect.TypeFor[Burning]())
		}
	}
}

type lifetimeItem struct {
	Entity   ecs.EntityId
	Lifetime *Lifetime
	Health   *Health `ecs:"read,optional"`
}

// LifetimeSystem despawns expired or dead entities.
type LifetimeSystem struct {
	Aging   ecs.Query[lifetimeItem]
	Counter ecs.Singleton[FrameCounter]
}

func (s *LifetimeSystem) Execute(frame *ecs.UpdateFrame) {
	counter := s.Counter.GetMut()
	for item := range s.Aging.Values() {
		item.Lifetime.Remaining -= frame.DeltaTime
		if item.Lifetime.Remaining <= 0 || (item.Health != nil && item.Health.Current <= 0) {
			frame.Commands.Despawn(item.Entity)
			counter.Despawns++
		}
	}
}

type damagedItem struct {
	Entity ecs.EntityId
	Health *Health `ecs:"read"`
}

func (damagedItem) Filters() []ecs.Filter {
	return []ecs.Filter{ecs.Changed[Health](), ecs.Without[Burning]()}
}

// IgniteSystem sets fire to some entities whose health changed since its last run.
type IgniteSystem struct {
	Damaged ecs.Query[damagedItem]
	rng     *rand.Rand
}

func (s *IgniteSystem) Execute(frame *ecs.UpdateFrame) {
	for entity := range s.Damaged.Iter() {
		if s.rng.Intn(50) == 0 {
			frame.Commands.Insert(entity, Burning{DamagePerSecond: 5})
		}
	}
}

type trackedItem struct {
	Position *Position `ecs:"read"`
	Tracked  *Tracked  `ecs:"read"`
}

// ProximitySystem counts tracked pairs that are close to each other.
type ProximitySystem struct {
	Tracked ecs.Query[trackedItem]
	Counter ecs.Singleton[FrameCounter]
}

func (s *ProximitySystem) Execute(frame *ecs.UpdateFrame) {
	pairs := s.Tracked.State().IterCombinationsReadOnly(frame.World, 2)
	var close int64
	for pair := range pairs.All() {
		dx := pair[0].Position.X - pair[1].Position.X
		dy := pair[0].Position.Y - pair[1].Position.Y
		if dx*dx+dy*dy < 100 {
			close++
		}
	}
	s.Counter.GetMut().Pairs += close
}

// SpawnSystem keeps the population near its target.
type SpawnSystem struct {
	Counter ecs.Singleton[FrameCounter]
	target  int
	rng     *rand.Rand
}

func (s *SpawnSystem) Execute(frame *ecs.UpdateFrame) {
	counter := s.Counter.GetMut()
	counter.Frames++
	missing := s.target - frame.World.EntityCount()
	for range max(missing, 0) {
		spawnRandomEntity(frame.Commands, s.rng)
		counter.Spawned++
	}
}

func spawnRandomEntity(commands *ecs.Commands, rng *rand.Rand) {
	components := []any{
		Position{X: rng.Float64() * 1000, Y: rng.Float64() * 1000},
		Velocity{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1},
		Lifetime{Remaining: 1 + rng.Float64()*10},
	}
	if rng.Intn(2) == 0 {
		components = append(components, Health{Current: 100, Max: 100})
	}
	if rng.Intn(8) == 0 {
		components = append(components, Burning{DamagePerSecond: 10})
	}
	if rng.Intn(200) == 0 {
		components = append(components, Tracked{})
	}
	commands.Spawn(components...)
}
