package ecs

// Singleton provides cached access to a world resource of type T. Use this
// for global game state, configuration, or other data not tied to an entity.
type Singleton[T any] struct {
	world *World
	slot  *ResourceData
	ticks *SystemTicks
}

// NewSingleton creates a Singleton accessor for the given world.
// If the resource doesn't exist yet it is inserted with initializer, or the
// zero value when no initializer is given.
func NewSingleton[T any](w *World, initializer ...T) *Singleton[T] {
	if !ContainsResource[T](w) {
		var value T
		if len(initializer) > 0 {
			value = initializer[0]
		}
		InsertResource(w, value)
	}
	s := &Singleton[T]{}
	s.Init(w, nil)
	return s
}

// Init binds the Singleton to a world. The slot is created empty when the
// resource was never inserted, so Get reports nil until it is.
// This is called automatically by the Scheduler during system registration.
func (s *Singleton[T]) Init(w *World, ticks *SystemTicks) {
	s.world = w
	s.ticks = ticks
	s.slot = w.initializeResource(resourceIdFor[T](w.registry))
}

// Get returns a pointer to the resource, or nil if it is absent.
func (s *Singleton[T]) Get() *T {
	ptr, ok := s.slot.ptr()
	if !ok {
		return nil
	}
	return (*T)(ptr)
}

// GetMut is Get that stamps the resource as changed.
func (s *Singleton[T]) GetMut() *T {
	ptr, ok := s.slot.ptr()
	if !ok {
		return nil
	}
	s.slot.markChanged(s.thisRun())
	return (*T)(ptr)
}

// Exists returns true if the resource is present.
func (s *Singleton[T]) Exists() bool {
	return s.slot.IsPresent()
}

// Changed reports whether the resource was inserted or mutated since the
// owning system's last run.
func (s *Singleton[T]) Changed() bool {
	ticks, ok := s.slot.Ticks()
	if !ok {
		return false
	}
	if s.ticks == nil {
		return ticks.IsChanged(s.world.LastChangeTick(), s.world.ChangeTick())
	}
	return ticks.IsChanged(s.ticks.LastRun, s.ticks.ThisRun)
}

func (s *Singleton[T]) thisRun() Tick {
	if s.ticks == nil {
		return s.world.ChangeTick()
	}
	return s.ticks.ThisRun
}
