// Package taskpool runs ecs parallel iteration on a bounded set of goroutines.
package taskpool

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool runs the tasks of each scope on at most Limit goroutines.
type Pool struct {
	limit int
}

// New returns a pool. A limit <= 0 uses GOMAXPROCS.
func New(limit int) *Pool {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	return &Pool{limit: limit}
}

// Limit is the number of goroutines a scope may use.
func (p *Pool) Limit() int { return p.limit }

// Scope calls fn with a spawn function and waits for every spawned task.
// spawn blocks while the pool is saturated. The first task error is returned;
// tasks already running are not interrupted.
func (p *Pool) Scope(fn func(spawn func(task func() error))) error {
	var g errgroup.Group
	g.SetLimit(p.limit)
	fn(func(task func() error) {
		g.Go(task)
	})
	return g.Wait()
}
