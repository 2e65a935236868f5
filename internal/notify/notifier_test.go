package notify

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebeliceyang/lazyweave/internal/models"
)

func TestNotifier_AutoDismiss(t *testing.T) {
	n := New(20*time.Millisecond, nil)
	defer n.Close()

	id := n.Publish(Info, "connected")
	require.NotEmpty(t, id)
	assert.Len(t, n.List(), 1)

	require.Eventually(t, func() bool { return len(n.List()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestNotifier_Dismiss(t *testing.T) {
	n := New(time.Hour, nil)
	defer n.Close()

	var changes atomic.Int32
	n.OnChange(func() { changes.Add(1) })

	a := n.Publish(Info, "a")
	b := n.Publish(Warning, "b")
	n.Dismiss(a)

	list := n.List()
	require.Len(t, list, 1)
	assert.Equal(t, b, list[0].ID)
	assert.Equal(t, int32(3), changes.Load())

	latest, ok := n.Latest()
	require.True(t, ok)
	assert.Equal(t, "b", latest.Message)
}

func TestNotifier_PublishError(t *testing.T) {
	n := New(time.Hour, nil)
	defer n.Close()

	_, err := n.PublishError(&models.ValidationError{Field: "name", Message: "name cannot be empty"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, n.List())

	remote := &models.RemoteOperationError{Op: "connect", ConnectionID: 1, Err: errors.New("refused")}
	id, err := n.PublishError(remote)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	latest, _ := n.Latest()
	assert.Equal(t, Error, latest.Level)
	assert.Equal(t, "connect connection 1 failed: refused", latest.Message)
}

func TestNotifier_CloseCancelsTimers(t *testing.T) {
	n := New(10*time.Millisecond, nil)
	var changes atomic.Int32
	n.Publish(Info, "a")
	n.OnChange(func() { changes.Add(1) })

	n.Close()
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, int32(0), changes.Load())
	assert.Empty(t, n.Publish(Info, "after close"))
}

func TestFlag(t *testing.T) {
	var f Flag
	expired := make(chan struct{}, 1)

	f.Set(10*time.Millisecond, func() { expired <- struct{}{} })
	assert.True(t, f.On())

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("flag did not expire")
	}
	assert.False(t, f.On())
}

func TestFlag_StopPreventsCallback(t *testing.T) {
	var f Flag
	var fired atomic.Bool

	f.Set(10*time.Millisecond, func() { fired.Store(true) })
	f.Stop()
	time.Sleep(30 * time.Millisecond)

	assert.False(t, f.On())
	assert.False(t, fired.Load())
}

func TestFlag_RestartExtends(t *testing.T) {
	var f Flag
	var fired atomic.Int32

	f.Set(20*time.Millisecond, func() { fired.Add(1) })
	f.Set(time.Hour, func() { fired.Add(1) })
	time.Sleep(40 * time.Millisecond)

	assert.True(t, f.On())
	assert.Equal(t, int32(0), fired.Load())
	f.Stop()
}
