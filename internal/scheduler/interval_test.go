package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalScheduler_RunsOnCadence(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int64
	s := NewIntervalScheduler(ctx, 10*time.Millisecond)
	s.Name = "test"

	done := make(chan struct{})
	go func() {
		s.Start(func() { runs.Add(1) })
		close(done)
	}()

	time.Sleep(55 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not exit on cancel")
	}
	assert.GreaterOrEqual(t, runs.Load(), int64(3))
}

func TestIntervalScheduler_RunImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int64
	s := NewIntervalScheduler(ctx, time.Hour)
	s.RunImmediately = true

	done := make(chan struct{})
	go func() {
		s.Start(func() { runs.Add(1) })
		close(done)
	}()

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestIntervalScheduler_InvalidInterval(t *testing.T) {
	s := NewIntervalScheduler(context.Background(), 0)
	// Returns immediately instead of spinning.
	s.Start(func() {})
}
