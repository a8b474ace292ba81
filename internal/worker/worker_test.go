package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newWorker(t *testing.T) *Worker {
	t.Helper()
	w := New(context.Background(), nil)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestWorker_RunsJobsInOrder(t *testing.T) {
	w := newWorker(t)

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, w.Queue(name, func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}))
	}
	w.Wait()

	require.Equal(t, []string{"first", "second", "third"}, order)
	status := w.Status()
	require.False(t, status.Busy())
	require.Empty(t, w.DrainErrors())
}

func TestWorker_OneJobAtATime(t *testing.T) {
	w := newWorker(t)

	var mu sync.Mutex
	active, peak := 0, 0
	for i := 0; i < 5; i++ {
		require.NoError(t, w.Queue("job", func(context.Context) error {
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			return nil
		}))
	}
	w.Wait()
	require.Equal(t, 1, peak)
}

func TestWorker_Abort(t *testing.T) {
	w := newWorker(t)

	started := make(chan struct{})
	var cancelled error
	require.NoError(t, w.Queue("long", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled = ctx.Err()
		return ctx.Err()
	}))
	ran := false
	require.NoError(t, w.Queue("pending", func(context.Context) error {
		ran = true
		return nil
	}))

	<-started
	status := w.Status()
	require.Equal(t, "long", status.Running)
	require.Equal(t, 1, status.Queued)

	w.Abort()
	w.Wait()

	require.False(t, ran)
	require.ErrorIs(t, cancelled, context.Canceled)
	errs := w.DrainErrors()
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], context.Canceled)
	require.Contains(t, errs[0].Error(), "long")

	// the worker keeps serving after an abort
	done := false
	require.NoError(t, w.Queue("after", func(context.Context) error {
		done = true
		return nil
	}))
	w.Wait()
	require.True(t, done)
}

func TestWorker_StatusAndErrors(t *testing.T) {
	w := newWorker(t)

	boom := errors.New("boom")
	require.NoError(t, w.Queue("reporting", func(context.Context) error {
		w.SetStatus("halfway")
		w.ReportError(errors.New("diagnostic"))
		time.Sleep(5 * time.Millisecond)
		return boom
	}))
	w.Wait()

	status := w.Status()
	require.Equal(t, "halfway", status.Message)
	require.GreaterOrEqual(t, status.Active, 5*time.Millisecond)
	require.Empty(t, status.Running)

	errs := w.DrainErrors()
	require.Len(t, errs, 2)
	require.EqualError(t, errs[0], "diagnostic")
	require.ErrorIs(t, errs[1], boom)
	require.Empty(t, w.DrainErrors())
}

func TestWorker_Stop(t *testing.T) {
	w := New(context.Background(), nil)

	started := make(chan struct{})
	require.NoError(t, w.Queue("long", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return nil
	}))
	<-started

	require.NoError(t, w.Stop())
	w.Wait()
	require.ErrorIs(t, w.Queue("late", func(context.Context) error { return nil }), ErrStopped)
}
