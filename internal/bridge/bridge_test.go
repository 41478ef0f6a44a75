package bridge

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallReturnsValue(t *testing.T) {
	b := New(2)
	v, err := Call(context.Background(), b, "answer", func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestCallWrapsError(t *testing.T) {
	b := New(1)
	cause := errors.New("connection reset")

	_, err := Call(context.Background(), b, "load chat", func(context.Context) (string, error) {
		return "", cause
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "load chat", perr.Op)
	assert.Contains(t, err.Error(), "persistence load chat")
}

func TestCallRecoversPanic(t *testing.T) {
	b := New(1)
	err := Do(context.Background(), b, "explode", func(context.Context) error {
		panic("boom")
	})
	assert.ErrorIs(t, err, ErrPanic)

	// слот освобождён, пул продолжает работать
	v, err := Call(context.Background(), b, "after", func(context.Context) (bool, error) { return true, nil })
	require.NoError(t, err)
	assert.True(t, v)
}

func TestCallBoundsConcurrency(t *testing.T) {
	const workers = 3
	b := New(workers)

	var running, peak atomic.Int32
	release := make(chan struct{})
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			errs <- Do(context.Background(), b, "slow", func(context.Context) error {
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
		}()
	}

	require.Eventually(t, func() bool { return running.Load() == workers }, time.Second, 5*time.Millisecond)
	close(release)
	for i := 0; i < 10; i++ {
		require.NoError(t, <-errs)
	}
	assert.EqualValues(t, workers, peak.Load())
}

func TestCallHonoursContext(t *testing.T) {
	b := New(1)
	hold := make(chan struct{})
	defer close(hold)
	go func() {
		_ = Do(context.Background(), b, "hold", func(context.Context) error {
			<-hold
			return nil
		})
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := Do(ctx, b, "queued", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
