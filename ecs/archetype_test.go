package ecs

import (
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyArchetypeExists(t *testing.T) {
	w := NewWorld(NewComponentRegistry())
	assert.Equal(t, 1, w.archetypes.Len())
	assert.Equal(t, ArchetypeGeneration(1), w.Generation())
	empty := w.archetypes.Empty()
	assert.Equal(t, EmptyArchetypeId, empty.Id())
	assert.Equal(t, EmptyTableId, empty.TableId())
	assert.Equal(t, 0, empty.ComponentCount())

	e := w.SpawnEmpty()
	location := mustLocation(t, w, e)
	assert.Equal(t, EmptyArchetypeId, location.ArchetypeId)
}

func TestArchetypeIdentityIsComponentSet(t *testing.T) {
	registry := NewComponentRegistry()
	RegisterComponent[droppable](registry)
	RegisterComponent[plain](registry)
	RegisterComponent[sparseTag](registry, WithStorage(StorageSparseSet))
	w := NewWorld(registry)

	a := w.Spawn(droppable{}, plain{})
	b := w.Spawn(plain{}, droppable{})
	assert.Equal(t, mustLocation(t, w, a).ArchetypeId, mustLocation(t, w, b).ArchetypeId,
		"order of values does not matter")

	c := w.Spawn(plain{}, droppable{}, sparseTag{})
	locA, locC := mustLocation(t, w, a), mustLocation(t, w, c)
	assert.NotEqual(t, locA.ArchetypeId, locC.ArchetypeId)

	archA, archC := w.archetypes.get(locA.ArchetypeId), w.archetypes.get(locC.ArchetypeId)
	assert.Equal(t, archA.TableId(), archC.TableId(), "sparse components do not split tables")
	assert.Equal(t, 3, w.archetypes.Len())
	assert.Equal(t, 2, w.storages.Tables.Len())
}

func TestArchetypeComponentIdsAreUnique(t *testing.T) {
	registry := NewComponentRegistry()
	d := RegisterComponent[droppable](registry)
	p := RegisterComponent[plain](registry)
	s := RegisterComponent[sparseTag](registry, WithStorage(StorageSparseSet))
	w := NewWorld(registry)

	e := w.Spawn(droppable{}, plain{}, sparseTag{})
	archetype := w.archetypes.get(mustLocation(t, w, e).ArchetypeId)

	seen := map[ArchetypeComponentId]bool{}
	for _, id := range []ComponentId{d, p, s} {
		acid, ok := archetype.ArchetypeComponentId(id)
		require.True(t, ok)
		assert.False(t, seen[acid])
		seen[acid] = true
	}
	storage, ok := archetype.StorageType(s)
	require.True(t, ok)
	assert.Equal(t, StorageSparseSet, storage)
	assert.Equal(t, []ComponentId{d, p}, archetype.TableComponents())
	assert.Equal(t, []ComponentId{s}, archetype.SparseSetComponents())
}

func TestAddBundleEdgeIsCached(t *testing.T) {
	registry := NewComponentRegistry()
	RegisterComponent[droppable](registry)
	RegisterComponent[plain](registry)
	w := NewWorld(registry)

	e := w.Spawn(droppable{})
	source := mustLocation(t, w, e).ArchetypeId
	require.NoError(t, w.Insert(e, plain{V: 1}, droppable{Id: 2}))
	target := mustLocation(t, w, e).ArchetypeId

	bundle := w.bundleForValues([]any{plain{}, droppable{}})
	edge, ok := w.archetypes.get(source).Edges().GetAddBundle(bundle.id)
	require.True(t, ok)
	assert.Equal(t, target, edge.ArchetypeId)
	assert.Equal(t, []ComponentStatus{ComponentAdded, ComponentMutated}, edge.BundleStatus)

	generation := w.Generation()
	assert.Equal(t, target, w.addBundleToArchetype(source, bundle))
	assert.Equal(t, generation, w.Generation(), "cached edge creates nothing")

	_, ok = w.archetypes.get(target).Edges().GetAddBundle(bundle.id)
	assert.False(t, ok)
	assert.Equal(t, target, w.addBundleToArchetype(target, bundle))
	self, ok := w.archetypes.get(target).Edges().GetAddBundle(bundle.id)
	require.True(t, ok)
	assert.Equal(t, target, self.ArchetypeId)
	assert.Equal(t, []ComponentStatus{ComponentMutated, ComponentMutated}, self.BundleStatus)
}

func TestRemoveBundleCachesImpossibleRemoval(t *testing.T) {
	registry := NewComponentRegistry()
	RegisterComponent[droppable](registry)
	RegisterComponent[plain](registry)
	w := NewWorld(registry)

	e := w.Spawn(droppable{})
	source := mustLocation(t, w, e).ArchetypeId
	bundle := w.bundleForTypes([]reflect.Type{reflect.TypeFor[droppable](), reflect.TypeFor[plain]()})

	_, err := w.Take(e, reflect.TypeFor[droppable](), reflect.TypeFor[plain]())
	require.Error(t, err)
	target, cached := w.archetypes.get(source).Edges().GetRemoveBundle(bundle.id)
	require.True(t, cached)
	assert.Equal(t, InvalidArchetypeId, target)
	assert.True(t, Has[droppable](w, e), "failed take removes nothing")

	require.NoError(t, w.Remove(e, reflect.TypeFor[droppable](), reflect.TypeFor[plain]()))
	target, cached = w.archetypes.get(source).Edges().GetRemoveBundleIntersection(bundle.id)
	require.True(t, cached)
	assert.Equal(t, EmptyArchetypeId, target)
	assert.Equal(t, EmptyArchetypeId, mustLocation(t, w, e).ArchetypeId)
}

func TestBundleRejectsDuplicates(t *testing.T) {
	registry := NewComponentRegistry()
	RegisterComponent[plain](registry)
	w := NewWorld(registry)
	assert.PanicsWithValue(t, "bundle lists component ecs.plain more than once", func() {
		w.Spawn(plain{V: 1}, plain{V: 2})
	})
}

func TestArchetypesSince(t *testing.T) {
	registry := NewComponentRegistry()
	RegisterComponent[droppable](registry)
	RegisterComponent[plain](registry)
	w := NewWorld(registry)

	generation := w.Generation()
	w.Spawn(droppable{})
	w.Spawn(plain{})
	w.Spawn(plain{})

	created := w.archetypes.since(generation)
	require.Len(t, created, 2)
	assert.Equal(t, ArchetypeId(generation), created[0].Id())
}

func TestIdSpaceExhaustionPanics(t *testing.T) {
	assert.Equal(t, ArchetypeId(math.MaxUint32-1), newArchetypeId(math.MaxUint32-1))
	assert.Panics(t, func() { newArchetypeId(int(InvalidArchetypeId)) })
	assert.Equal(t, TableId(math.MaxUint32-1), newTableId(math.MaxUint32-1))
	assert.Panics(t, func() { newTableId(int(InvalidTableId)) })

	archetypes := newArchetypes()
	archetypes.archetypeComponentCount = uint32(InvalidArchetypeComponentId) - 1
	assert.Equal(t, InvalidArchetypeComponentId-1, archetypes.newArchetypeComponentId())
	assert.Panics(t, func() { archetypes.newArchetypeComponentId() })
	assert.Equal(t, int(InvalidArchetypeComponentId), archetypes.ArchetypeComponentCount())
}
