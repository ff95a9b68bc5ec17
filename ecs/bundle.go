package ecs

import (
	"slices"

	"github.com/kamstrup/intmap"
)

// bundleInfo is an ordered set of component types that are inserted or
// removed together. Order follows the caller's values.
type bundleInfo struct {
	id           BundleId
	componentIds []ComponentId
}

// Bundles interns bundles by their component id list.
type Bundles struct {
	infos      []*bundleInfo
	byIdentity *intmap.Map[uint64, []BundleId]
}

func newBundles() Bundles {
	return Bundles{byIdentity: intmap.New[uint64, []BundleId](64)}
}

func (b *Bundles) Len() int { return len(b.infos) }

// initInfo interns the bundle for an ordered component id list. Listing a
// component twice is a programming error.
func (b *Bundles) initInfo(componentIds []ComponentId, registry *ComponentRegistry) *bundleInfo {
	key := hashComponentIds(componentIds)
	bucket, _ := b.byIdentity.Get(key)
	for _, id := range bucket {
		if slices.Equal(b.infos[id].componentIds, componentIds) {
			return b.infos[id]
		}
	}

	sorted := slices.Clone(componentIds)
	slices.Sort(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			panic("bundle lists component " + registry.Info(sorted[i]).name + " more than once")
		}
	}

	if len(b.infos) >= int(^uint32(0)) {
		panic("bundle id space exhausted")
	}
	info := &bundleInfo{id: BundleId(len(b.infos)), componentIds: slices.Clone(componentIds)}
	b.infos = append(b.infos, info)
	b.byIdentity.Put(key, append(bucket, info.id))
	return info
}

// addBundleToArchetype returns the archetype reached by inserting bundle into
// archetypeId, consulting and filling the edge cache.
func (w *World) addBundleToArchetype(archetypeId ArchetypeId, bundle *bundleInfo) ArchetypeId {
	source := w.archetypes.get(archetypeId)
	if edge, ok := source.edges.GetAddBundle(bundle.id); ok {
		return edge.ArchetypeId
	}

	status := make([]ComponentStatus, len(bundle.componentIds))
	var newTable, newSparse []ComponentId
	for i, id := range bundle.componentIds {
		if source.contains(id) {
			status[i] = ComponentMutated
			continue
		}
		status[i] = ComponentAdded
		switch w.registry.Info(id).storage {
		case StorageTable:
			newTable = append(newTable, id)
		case StorageSparseSet:
			newSparse = append(newSparse, id)
		}
	}

	if len(newTable) == 0 && len(newSparse) == 0 {
		source.edges.insertAddBundle(bundle.id, archetypeId, status)
		return archetypeId
	}

	tableId := source.tableId
	tableComponents := source.tableComponents
	if len(newTable) > 0 {
		tableComponents = sortedUnion(source.tableComponents, newTable)
		tableId = w.tableIdFor(tableComponents)
	}
	sparseComponents := source.sparseComponents
	if len(newSparse) > 0 {
		sparseComponents = sortedUnion(source.sparseComponents, newSparse)
	}

	target := w.archetypeIdFor(tableId, tableComponents, sparseComponents)
	source.edges.insertAddBundle(bundle.id, target, status)
	return target
}

// removeBundleFromArchetype returns the archetype reached by removing bundle
// from archetypeId. With intersection set, components the archetype lacks are
// ignored; otherwise their absence makes the removal invalid and ok is false.
func (w *World) removeBundleFromArchetype(archetypeId ArchetypeId, bundle *bundleInfo, intersection bool) (target ArchetypeId, ok bool) {
	source := w.archetypes.get(archetypeId)
	if intersection {
		if target, cached := source.edges.GetRemoveBundleIntersection(bundle.id); cached {
			return target, true
		}
	} else if target, cached := source.edges.GetRemoveBundle(bundle.id); cached {
		return target, target != InvalidArchetypeId
	}

	tableComponents := slices.Clone(source.tableComponents)
	sparseComponents := slices.Clone(source.sparseComponents)
	tableChanged := false
	for _, id := range bundle.componentIds {
		storage, present := source.StorageType(id)
		if !present {
			if intersection {
				continue
			}
			source.edges.insertRemoveBundle(bundle.id, InvalidArchetypeId)
			return InvalidArchetypeId, false
		}
		switch storage {
		case StorageTable:
			tableComponents = slices.DeleteFunc(tableComponents, func(c ComponentId) bool { return c == id })
			tableChanged = true
		case StorageSparseSet:
			sparseComponents = slices.DeleteFunc(sparseComponents, func(c ComponentId) bool { return c == id })
		}
	}

	tableId := source.tableId
	if tableChanged {
		tableId = w.tableIdFor(tableComponents)
	}
	target = w.archetypeIdFor(tableId, tableComponents, sparseComponents)
	if intersection {
		source.edges.insertRemoveBundleIntersection(bundle.id, target)
	} else {
		source.edges.insertRemoveBundle(bundle.id, target)
	}
	return target, true
}
