package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDispatchesByType(t *testing.T) {
	q := NewQueue("test", QueueConfig{Workers: 2, RetryDelay: time.Millisecond})
	done := make(chan Job, 1)
	q.Register("mail", func(_ context.Context, j Job) error {
		done <- j
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "mail", Payload: "hello"}))

	select {
	case j := <-done:
		assert.Equal(t, "hello", j.Payload)
		assert.NotEmpty(t, j.ID)
		assert.False(t, j.Enqueued.IsZero())
	case <-time.After(time.Second):
		t.Fatal("job was not dispatched")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	q := NewQueue("test", QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond})
	var calls int32
	succeeded := make(chan struct{})
	q.Register("flaky", func(context.Context, Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("smtp unavailable")
		}
		close(succeeded)
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "flaky"}))

	select {
	case <-succeeded:
		assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
}

func TestQueueRecoversPanickingHandler(t *testing.T) {
	q := NewQueue("test", QueueConfig{Workers: 1, MaxRetries: 0})
	after := make(chan struct{})
	q.Register("panics", func(context.Context, Job) error { panic("boom") })
	q.Register("ok", func(context.Context, Job) error {
		close(after)
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "panics"}))
	require.NoError(t, q.Enqueue(Job{Type: "ok"}))

	select {
	case <-after:
	case <-time.After(time.Second):
		t.Fatal("worker died after panic")
	}
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", QueueConfig{})
	assert.Error(t, q.Enqueue(Job{Type: "mail"}))
}
