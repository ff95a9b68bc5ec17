package taskpool

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsEveryTask(t *testing.T) {
	pool := New(4)
	var sum atomic.Int64
	err := pool.Scope(func(spawn func(task func() error)) {
		for i := 1; i <= 100; i++ {
			spawn(func() error {
				sum.Add(int64(i))
				return nil
			})
		}
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5050), sum.Load())
}

func TestPoolRespectsLimit(t *testing.T) {
	pool := New(2)
	var running, peak atomic.Int32
	release := make(chan struct{})

	done := make(chan error)
	go func() {
		done <- pool.Scope(func(spawn func(task func() error)) {
			for range 6 {
				spawn(func() error {
					n := running.Add(1)
					for {
						p := peak.Load()
						if n <= p || peak.CompareAndSwap(p, n) {
							break
						}
					}
					<-release
					running.Add(-1)
					return nil
				})
			}
		})
	}()
	close(release)
	require.NoError(t, <-done)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPoolReturnsTaskError(t *testing.T) {
	boom := errors.New("boom")
	err := New(0).Scope(func(spawn func(task func() error)) {
		spawn(func() error { return nil })
		spawn(func() error { return boom })
	})
	assert.ErrorIs(t, err, boom)
}

func TestNewDefaultsToGOMAXPROCS(t *testing.T) {
	assert.Positive(t, New(0).Limit())
	assert.Equal(t, 3, New(3).Limit())
}
