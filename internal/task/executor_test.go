package task

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsSeriallyInOrder(t *testing.T) {
	loop := NewLoop(nil)
	loop.Start()
	defer func() { _ = loop.Stop(t.Context()) }()

	var (
		mu      sync.Mutex
		order   []int
		running atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)
	for i := range 200 {
		wg.Add(1)
		require.NoError(t, loop.Execute(func() {
			defer wg.Done()
			if running.Add(1) > 1 {
				overlap.Store(true)
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			running.Add(-1)
		}))
	}
	wg.Wait()

	assert.False(t, overlap.Load())
	require.Len(t, order, 200)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestLoopStopDrainsQueue(t *testing.T) {
	loop := NewLoop(nil)

	var ran atomic.Int32
	for range 10 {
		require.NoError(t, loop.Execute(func() { ran.Add(1) }))
	}
	loop.Start()
	require.NoError(t, loop.Stop(t.Context()))

	assert.Equal(t, int32(10), ran.Load())
	require.ErrorIs(t, loop.Execute(func() {}), ErrClosed)
}

func TestLoopSurvivesPanics(t *testing.T) {
	loop := NewLoop(nil)
	loop.Start()
	defer func() { _ = loop.Stop(t.Context()) }()

	require.NoError(t, loop.Execute(func() { panic("boom") }))
	v, err := Submit(loop, func() (string, error) { return "alive", nil }).Await(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "alive", v)
}

func TestPoolStopWaitsForWorkers(t *testing.T) {
	pool := NewPool(nil)

	release := make(chan struct{})
	var finished atomic.Bool
	require.NoError(t, pool.Execute(func() {
		<-release
		finished.Store(true)
	}))

	close(release)
	require.NoError(t, pool.Stop(t.Context()))
	assert.True(t, finished.Load())
	require.ErrorIs(t, pool.Execute(func() {}), ErrClosed)
}
