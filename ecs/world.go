package ecs

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

var nextWorldId atomic.Uint64

// WorldOption configures a World at construction.
type WorldOption func(*World)

// WithConfig overrides the default configuration.
func WithConfig(config Config) WorldOption {
	return func(w *World) {
		w.config = config
	}
}

// WithLogger attaches a logger. Worlds log nothing by default.
func WithLogger(logger zerolog.Logger) WorldOption {
	return func(w *World) {
		w.logger = logger
	}
}

// World owns every entity, component, resource and archetype of one ECS instance.
type World struct {
	id         uint64
	registry   *ComponentRegistry
	entities   Entities
	archetypes Archetypes
	storages   Storages
	bundles    Bundles

	changeTick     atomic.Uint32
	lastChangeTick Tick
	lastCheckTick  Tick

	config Config
	logger zerolog.Logger
}

// NewWorld creates an empty world whose component types come from registry.
func NewWorld(registry *ComponentRegistry, opts ...WorldOption) *World {
	w := &World{
		id:       nextWorldId.Add(1),
		registry: registry,
		config:   DefaultConfig(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.config.Validate(); err != nil {
		panic(err)
	}
	if level, ok := w.config.Level(); ok {
		w.logger = w.logger.Level(level)
	}

	w.entities = newEntities(w.config.InitialEntityCapacity)
	w.archetypes = newArchetypes()
	w.storages = newStorages(registry, w.config.InitialEntityCapacity)
	w.bundles = newBundles()
	w.changeTick.Store(1)
	return w
}

func (w *World) Id() uint64                    { return w.id }
func (w *World) Registry() *ComponentRegistry  { return w.registry }
func (w *World) Entities() *Entities           { return &w.entities }
func (w *World) Archetypes() *Archetypes       { return &w.archetypes }
func (w *World) Storages() *Storages           { return &w.storages }
func (w *World) Config() Config                { return w.config }
func (w *World) Logger() *zerolog.Logger       { return &w.logger }
func (w *World) LastChangeTick() Tick          { return w.lastChangeTick }
func (w *World) ChangeTick() Tick              { return Tick(w.changeTick.Load()) }

// Generation changes whenever an archetype is created.
func (w *World) Generation() ArchetypeGeneration {
	return w.archetypes.Generation()
}

// IncrementChangeTick advances the world tick and returns the tick before the
// increment. Safe to call from several goroutines.
func (w *World) IncrementChangeTick() Tick {
	return Tick(w.changeTick.Add(1) - 1)
}

// ClearTrackers marks the end of a frame: changes stamped before now are no
// longer reported by Iter.
func (w *World) ClearTrackers() {
	w.lastChangeTick = w.IncrementChangeTick()
}

// CheckChangeTicks runs the tick sweep when at least the configured threshold
// of ticks passed since the previous one. Call it at least once per
// CheckTickThreshold ticks. It reports whether the sweep ran.
func (w *World) CheckChangeTicks() bool {
	changeTick := w.ChangeTick()
	if uint32(changeTick-w.lastCheckTick) < w.config.CheckTickThreshold {
		return false
	}
	w.storages.checkChangeTicks(changeTick)
	checkTick(&w.lastChangeTick, changeTick)
	w.lastCheckTick = changeTick
	w.logger.Debug().Uint32("change_tick", uint32(changeTick)).Msg("checked change ticks")
	return true
}

func (w *World) tableIdFor(componentIds []ComponentId) TableId {
	id, created := w.storages.Tables.getIdOrInsert(componentIds, w.registry, 0)
	if created {
		w.logger.Debug().Uint32("table", uint32(id)).Strs("components", w.componentNames(componentIds)).Msg("created table")
	}
	return id
}

func (w *World) archetypeIdFor(tableId TableId, tableComponents, sparseComponents []ComponentId) ArchetypeId {
	id, created := w.archetypes.getIdOrInsert(tableId, tableComponents, sparseComponents)
	if created {
		for _, c := range sparseComponents {
			w.storages.SparseSets.getOrInsert(w.registry.Info(c), 0)
		}
		w.logger.Debug().
			Uint32("archetype", uint32(id)).
			Uint32("table", uint32(tableId)).
			Strs("table_components", w.componentNames(tableComponents)).
			Strs("sparse_components", w.componentNames(sparseComponents)).
			Msg("created archetype")
	}
	return id
}

func (w *World) componentNames(ids []ComponentId) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = w.registry.Info(id).name
	}
	return names
}
