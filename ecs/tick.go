package ecs

import "math"

// Tick is a point in the world's logical time. It wraps around; comparisons
// are only meaningful relative to a "this run" tick.
type Tick uint32

const (
	// CheckTickThreshold is how many ticks may pass between two tick sweeps.
	CheckTickThreshold uint32 = 518_400_000

	// MaxChangeAge is the oldest a tick may get before the sweep clamps it.
	// It leaves room for CheckTickThreshold ticks to pass between sweeps
	// without a stored tick ever looking newer than it is.
	MaxChangeAge uint32 = math.MaxUint32 - (2*CheckTickThreshold - 1)
)

// IsNewerThan reports whether t happened after lastRun, as seen from thisRun.
func (t Tick) IsNewerThan(lastRun, thisRun Tick) bool {
	ticksSinceInsert := min(uint32(thisRun-t), MaxChangeAge)
	ticksSinceSystem := min(uint32(thisRun-lastRun), MaxChangeAge)
	return ticksSinceSystem > ticksSinceInsert
}

// checkTick clamps t so that it is never older than MaxChangeAge relative to
// changeTick. It reports whether t was modified.
func checkTick(t *Tick, changeTick Tick) bool {
	age := uint32(changeTick - *t)
	if age > MaxChangeAge {
		*t = changeTick - Tick(MaxChangeAge)
		return true
	}
	return false
}

// ComponentTicks holds the added and last changed ticks of one stored value.
type ComponentTicks struct {
	Added   Tick
	Changed Tick
}

func newComponentTicks(changeTick Tick) ComponentTicks {
	return ComponentTicks{Added: changeTick, Changed: changeTick}
}

// IsAdded reports whether the value was added after lastRun.
func (c ComponentTicks) IsAdded(lastRun, thisRun Tick) bool {
	return c.Added.IsNewerThan(lastRun, thisRun)
}

// IsChanged reports whether the value was added or mutated after lastRun.
func (c ComponentTicks) IsChanged(lastRun, thisRun Tick) bool {
	return c.Changed.IsNewerThan(lastRun, thisRun)
}

// SetChanged stamps the value as mutated at changeTick.
func (c *ComponentTicks) SetChanged(changeTick Tick) {
	c.Changed = changeTick
}
