package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_Disabled(t *testing.T) {
	ml := NewMemoryLimiter(0)
	assert.False(t, ml.IsEnabled())

	release, err := ml.Acquire(context.Background(), 1<<40)
	require.NoError(t, err)
	release()
	assert.Zero(t, ml.CurrentUsage())
}

func TestMemoryLimiter_BlocksUntilRelease(t *testing.T) {
	ml := NewMemoryLimiter(10)
	ml.alloc = func() uint64 { return 0 }
	ml.retry = time.Millisecond

	first, err := ml.Acquire(context.Background(), 8<<20)
	require.NoError(t, err)
	assert.Equal(t, uint64(8<<20), ml.CurrentUsage())

	acquired := make(chan struct{})
	go func() {
		release, err := ml.Acquire(context.Background(), 4<<20)
		if err == nil {
			close(acquired)
			release()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire must wait")
	case <-time.After(20 * time.Millisecond):
	}

	first()
	first() // повторный вызов безопасен

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire did not proceed after release")
	}
}

func TestMemoryLimiter_Oversized(t *testing.T) {
	ml := NewMemoryLimiter(1)
	ml.alloc = func() uint64 { return 0 }

	release, err := ml.Acquire(context.Background(), 100<<20)
	require.NoError(t, err)
	release()
}

func TestMemoryLimiter_HeapAboveLimitWithNothingReserved(t *testing.T) {
	ml := NewMemoryLimiter(256)
	ml.alloc = func() uint64 { return 100 << 20 }
	ml.retry = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	release, err := ml.Acquire(ctx, 200<<20)
	require.NoError(t, err)
	assert.Equal(t, uint64(200<<20), ml.CurrentUsage())

	// Пока первая задача держит память, вторая ждёт
	short, stop := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer stop()
	_, err = ml.Acquire(short, 100<<20)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	assert.Zero(t, ml.CurrentUsage())
}

func TestMemoryLimiter_Cancelled(t *testing.T) {
	ml := NewMemoryLimiter(1)
	ml.alloc = func() uint64 { return 0 }
	ml.retry = time.Millisecond

	hold, err := ml.Acquire(context.Background(), 1<<20)
	require.NoError(t, err)
	defer hold()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = ml.Acquire(ctx, 1<<20)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEstimateRaster(t *testing.T) {
	assert.Equal(t, int64(10*10*4+2*5*5*4), EstimateRaster(10, 10, 5, 5))
}

func TestRunner_Go(t *testing.T) {
	r := NewRunner(2, 0)

	var mu sync.Mutex
	var results []error
	done := func(err error) {
		mu.Lock()
		results = append(results, err)
		mu.Unlock()
	}

	boom := errors.New("boom")
	r.Go(context.Background(), Task{Run: func(context.Context) error { return nil }}, done)
	r.Go(context.Background(), Task{Run: func(context.Context) error { return boom }}, done)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Go(ctx, Task{Run: func(context.Context) error { return nil }}, done)

	r.Wait()
	assert.Len(t, results, 3)

	stats := r.GetStats()
	assert.Equal(t, int64(1), stats.Processed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Cancelled)
}

func TestRunner_LimitsParallelism(t *testing.T) {
	r := NewRunner(1, 0)

	var running, peak atomic.Int32
	for i := 0; i < 5; i++ {
		r.Go(context.Background(), Task{Run: func(context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
			return nil
		}}, nil)
	}
	r.Wait()

	assert.Equal(t, int32(1), peak.Load())
	assert.Equal(t, int64(5), r.GetStats().Processed)
}

func TestRunner_Do(t *testing.T) {
	r := NewRunner(0, 0)
	err := r.Do(context.Background(), Task{Cost: 1024, Run: func(context.Context) error { return nil }})
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.GetStats().Processed)
}
