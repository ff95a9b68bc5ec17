package ecs

import (
	"github.com/rs/zerolog"
)

// WorldStats is a snapshot of a world's storage.
type WorldStats struct {
	ArchetypeCount     int
	TableCount         int
	SparseSetCount     int
	TotalEntityCount   int
	ResourceCount      int
	ResourceTypes      []string
	ArchetypeBreakdown []ArchetypeStats
	ChangeTick         Tick
	LastChangeTick     Tick
	Generation         ArchetypeGeneration
}

// ArchetypeStats describes one non-empty archetype.
type ArchetypeStats struct {
	Id               ArchetypeId
	TableId          TableId
	EntityCount      int
	TableComponents  []string
	SparseComponents []string
}

// CollectStats gathers counts over the world. Archetypes without entities
// count toward ArchetypeCount but are left out of the breakdown.
func (w *World) CollectStats() WorldStats {
	stats := WorldStats{
		ArchetypeCount:   w.archetypes.Len(),
		TableCount:       w.storages.Tables.Len(),
		SparseSetCount:   w.storages.SparseSets.Len(),
		TotalEntityCount: w.entities.Len(),
		ChangeTick:       w.ChangeTick(),
		LastChangeTick:   w.lastChangeTick,
		Generation:       w.archetypes.Generation(),
	}

	for archetype := range w.archetypes.All() {
		if archetype.IsEmpty() {
			continue
		}
		stats.ArchetypeBreakdown = append(stats.ArchetypeBreakdown, ArchetypeStats{
			Id:               archetype.id,
			TableId:          archetype.tableId,
			EntityCount:      archetype.Len(),
			TableComponents:  w.componentNames(archetype.tableComponents),
			SparseComponents: w.componentNames(archetype.sparseComponents),
		})
	}

	for _, slot := range w.storages.Resources.All() {
		if slot.IsPresent() {
			stats.ResourceCount++
			stats.ResourceTypes = append(stats.ResourceTypes, slot.name)
		}
	}
	return stats
}

// LogState writes the current stats to the world's logger at debug level.
func (w *World) LogState(msg string) {
	event := w.logger.Debug()
	if !event.Enabled() {
		return
	}

	stats := w.CollectStats()
	archetypes := zerolog.Arr()
	for _, a := range stats.ArchetypeBreakdown {
		archetypes.Dict(zerolog.Dict().
			Uint32("id", uint32(a.Id)).
			Uint32("table", uint32(a.TableId)).
			Int("entities", a.EntityCount).
			Strs("table_components", a.TableComponents).
			Strs("sparse_components", a.SparseComponents))
	}

	event.
		Uint64("world", w.id).
		Int("entities", stats.TotalEntityCount).
		Int("archetype_count", stats.ArchetypeCount).
		Int("tables", stats.TableCount).
		Int("sparse_sets", stats.SparseSetCount).
		Strs("resources", stats.ResourceTypes).
		Uint32("change_tick", uint32(stats.ChangeTick)).
		Uint32("last_change_tick", uint32(stats.LastChangeTick)).
		Array("archetypes", archetypes).
		Msg(msg)
}
