package ecs

// Storages groups the three places component and resource values live.
type Storages struct {
	Tables     Tables
	SparseSets SparseSets
	Resources  Resources
}

func newStorages(registry *ComponentRegistry, capacity int) Storages {
	return Storages{
		Tables:     newTables(registry, capacity),
		SparseSets: newSparseSets(),
		Resources:  newResources(),
	}
}

func (s *Storages) checkChangeTicks(changeTick Tick) {
	s.Tables.checkChangeTicks(changeTick)
	s.SparseSets.checkChangeTicks(changeTick)
	s.Resources.checkChangeTicks(changeTick)
}
