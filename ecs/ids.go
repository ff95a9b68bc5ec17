package ecs

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
)

type (
	// ComponentId is the dense index of a registered component or resource type.
	ComponentId uint32
	// ArchetypeId indexes World.Archetypes(). Ids are never reused.
	ArchetypeId uint32
	// TableId indexes the world's tables. Ids are never reused.
	TableId uint32
	// ArchetypeComponentId identifies one component inside one archetype, or one resource.
	// Schedulers use it to reason about which systems touch the same data.
	ArchetypeComponentId uint32
	// BundleId identifies an ordered set of component types inserted or removed together.
	BundleId uint32
)

const (
	InvalidComponentId          ComponentId          = math.MaxUint32
	InvalidArchetypeId          ArchetypeId          = math.MaxUint32
	InvalidTableId              TableId              = math.MaxUint32
	InvalidArchetypeComponentId ArchetypeComponentId = math.MaxUint32

	// EmptyArchetypeId is the archetype of entities with no components. It always exists.
	EmptyArchetypeId ArchetypeId = 0
	// EmptyTableId is the table without columns. It always exists.
	EmptyTableId TableId = 0
)

func newArchetypeId(n int) ArchetypeId {
	if n >= int(InvalidArchetypeId) {
		panic("archetype id space exhausted")
	}
	return ArchetypeId(n)
}

func newTableId(n int) TableId {
	if n >= int(InvalidTableId) {
		panic("table id space exhausted")
	}
	return TableId(n)
}

// hashComponentIds digests one or more id lists into a 64 bit identity key.
// A separator word keeps ([a], [b]) and ([a, b], []) apart.
func hashComponentIds(lists ...[]ComponentId) uint64 {
	buf := make([]byte, 0, 64)
	for _, list := range lists {
		for _, id := range list {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(id))
		}
		buf = binary.LittleEndian.AppendUint32(buf, math.MaxUint32)
	}
	return xxhash.Sum64(buf)
}

func sortedUnion(a, b []ComponentId) []ComponentId {
	out := make([]ComponentId, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}
