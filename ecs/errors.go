package ecs

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrEntityNotFound is returned when an entity id is stale or was never allocated.
	ErrEntityNotFound = eris.New("entity not found")
	// ErrComponentMissing is returned by Take when the entity lacks one of the requested components.
	ErrComponentMissing = eris.New("entity is missing a requested component")
	// ErrResourceNotFound is returned when removing a resource that is not present.
	ErrResourceNotFound = eris.New("resource not found")
)

// invariant panics with a formatted diagnostic when cond is false. Misuse of
// a query or storage contract ends up here rather than in an error return.
func invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("ecs: "+format, args...))
	}
}
