package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNaivePoolRunsEveryJob(t *testing.T) {
	p, err := NewNaivePool(4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var count int32
	var mu sync.Mutex

	for i := 0; i < 50; i++ {
		wg.Add(1)
		p.Spawn(func() {
			defer wg.Done()
			mu.Lock()
			count++
			mu.Unlock()
		})
	}
	wg.Wait()
	require.EqualValues(t, 50, count)
	require.NoError(t, p.Close())
}

func TestSharedQueuePoolRunsEveryJob(t *testing.T) {
	p, err := NewSharedQueuePool(4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var count int32
	var mu sync.Mutex

	for i := 0; i < 50; i++ {
		wg.Add(1)
		p.Spawn(func() {
			defer wg.Done()
			mu.Lock()
			count++
			mu.Unlock()
		})
	}
	wg.Wait()
	require.EqualValues(t, 50, count)
	require.NoError(t, p.Close())
}

func TestSharedQueuePoolSurvivesPanickingJob(t *testing.T) {
	p, err := NewSharedQueuePool(2)
	require.NoError(t, err)
	defer p.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	p.Spawn(func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()

	// The worker pool must still service jobs after a panic: spawn another
	// job and confirm it completes within a bounded time.
	done := make(chan struct{})
	p.Spawn(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not recover capacity after a panicking job")
	}
}

func TestConcPoolRunsEveryJob(t *testing.T) {
	p, err := NewConcPool(4)
	require.NoError(t, err)

	var mu sync.Mutex
	var count int

	for i := 0; i < 50; i++ {
		p.Spawn(func() {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}
	require.NoError(t, p.Close())
	require.Equal(t, 50, count)
}
