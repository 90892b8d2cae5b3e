package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var handled int32
	done := make(chan struct{}, 3)
	q := NewQueue("test", func(context.Context, Job) error {
		atomic.AddInt32(&handled, 1)
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 4})

	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(Job{ID: fmt.Sprintf("job-%d", i), Type: "test"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(&handled))
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "job-1", Type: "test"})
	require.Error(t, err)
}

func TestEnqueueReturnsImmediatelyWhenBufferFull(t *testing.T) {
	started := make(chan struct{})
	var startedOnce sync.Once
	gate := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, _ Job) error {
		startedOnce.Do(func() { close(started) })
		select {
		case <-gate:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})

	q.Start(context.Background())
	defer q.Stop()
	defer close(gate)

	// The first job occupies the single worker, the second fills the
	// buffer. The third must come back without waiting for either.
	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "test"}))
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("worker never picked up the first job")
	}
	require.NoError(t, q.Enqueue(Job{ID: "job-2", Type: "test"}))

	result := make(chan error, 1)
	go func() { result <- q.Enqueue(Job{ID: "job-3", Type: "test"}) }()

	select {
	case err := <-result:
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrQueueFull))
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Enqueue blocked on a full buffer")
	}
}

func TestQueueRetriesUntilDropped(t *testing.T) {
	var attempts int32
	q := NewQueue("test", func(context.Context, Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("delivery failed")
	}, QueueConfig{Workers: 1, BufferSize: 4, MaxRetries: 2, RetryDelay: 5 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "test"}))

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&attempts) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
}
