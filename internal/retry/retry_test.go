package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, Default().Validate())

	bad := Default()
	bad.MaxAttempts = 0
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.Multiplier = 0.5
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.JitterFraction = 1.0
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.MaxDelay = bad.BaseDelay / 2
	assert.Error(t, bad.Validate())
}

func TestPolicy_DelayGrowthAndCap(t *testing.T) {
	p := Policy{
		MaxAttempts:    5,
		BaseDelay:      100 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0, // deterministic
		MaxDelay:       350 * time.Millisecond,
	}
	assert.Equal(t, 100*time.Millisecond, p.Delay(0))
	assert.Equal(t, 200*time.Millisecond, p.Delay(1))
	assert.Equal(t, 350*time.Millisecond, p.Delay(2)) // capped
	assert.Equal(t, 350*time.Millisecond, p.Delay(9)) // stays capped
}

func TestPolicy_DelayJitterBounds(t *testing.T) {
	p := Policy{
		MaxAttempts:    3,
		BaseDelay:      100 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		MaxDelay:       10 * time.Second,
	}
	for i := 0; i < 200; i++ {
		d := p.Delay(0)
		assert.GreaterOrEqual(t, d, 90*time.Millisecond)
		assert.LessOrEqual(t, d, 110*time.Millisecond)
	}
}

func TestPolicy_DoSucceedsAfterTransientFailures(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2, MaxDelay: 5 * time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPolicy_DoExhausted(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2, MaxDelay: 5 * time.Millisecond}
	sentinel := errors.New("broker down")
	calls := 0
	err := p.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return sentinel
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, sentinel)
}

func TestPolicy_DoCancelledBetweenAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Hour, Multiplier: 2, MaxDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, "op", func(ctx context.Context) error {
			calls++
			return errors.New("fail")
		})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not observe cancellation")
	}
}
