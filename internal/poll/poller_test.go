package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_RunsOnInterval(t *testing.T) {
	var calls atomic.Int32
	p := New("test", 10*time.Millisecond, 1, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.False(t, p.Disabled())
}

func TestPoller_DisablesAfterThreshold(t *testing.T) {
	var calls atomic.Int32
	p := New("test", 5*time.Millisecond, 2, func(context.Context) error {
		calls.Add(1)
		return errors.New("unreachable")
	}, nil)

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, p.Disabled, time.Second, 5*time.Millisecond)
	stopped := calls.Load()
	assert.GreaterOrEqual(t, stopped, int32(2))

	// No more automatic runs once disabled
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
	assert.EqualError(t, p.Err(), "unreachable")
}

func TestPoller_RetryReenables(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	p := New("test", time.Hour, 1, func(context.Context) error {
		if fail.Load() {
			return errors.New("boom")
		}
		return nil
	}, nil)

	require.Error(t, p.Retry(context.Background()))
	assert.True(t, p.Disabled())

	fail.Store(false)
	require.NoError(t, p.Retry(context.Background()))
	assert.False(t, p.Disabled())
	assert.NoError(t, p.Err())
}

func TestPoller_DisableFromOutside(t *testing.T) {
	var calls atomic.Int32
	p := New("test", 5*time.Millisecond, 3, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)
	p.Disable(errors.New("fetch failed"))

	p.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	p.Stop()

	assert.Equal(t, int32(0), calls.Load())
	assert.True(t, p.Disabled())
}

func TestPoller_OnResult(t *testing.T) {
	results := make(chan error, 1)
	p := New("test", time.Hour, 1, func(context.Context) error { return nil }, nil)
	p.OnResult = func(err error) { results <- err }

	require.NoError(t, p.Retry(context.Background()))
	assert.NoError(t, <-results)
}

func TestPoller_StopIsIdempotent(t *testing.T) {
	p := New("test", time.Millisecond, 1, func(context.Context) error { return nil }, nil)
	p.Stop()
	p.Start(context.Background())
	p.Stop()
	p.Stop()
}

func TestPoller_StartAfterStopDoesNothing(t *testing.T) {
	var calls atomic.Int32
	p := New("test", 5*time.Millisecond, 1, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	p.Stop()
	p.Start(context.Background())
	defer p.Stop()

	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, calls.Load())
}
