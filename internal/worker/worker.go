// Package worker runs queued jobs one at a time on a single background
// goroutine. Callers submit work and poll Status; they never touch the
// state a running job owns.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrStopped is returned by Queue once the worker has been stopped
var ErrStopped = errors.New("worker stopped")

// Func is the body of a job. It must return promptly once ctx is done.
type Func func(ctx context.Context) error

type job struct {
	name string
	fn   Func
}

// Status is a point-in-time view of the worker
type Status struct {
	// Message is the last status message set by a job
	Message string
	// Active is the cumulative time spent running jobs
	Active time.Duration
	// Running is the name of the job in progress, if any
	Running string
	// Queued is the number of jobs waiting to run
	Queued int
}

// Busy reports whether a job is running or waiting
func (s Status) Busy() bool {
	return s.Running != "" || s.Queued > 0
}

// Worker is a FIFO job queue drained by one goroutine
type Worker struct {
	ctx  context.Context
	stop context.CancelFunc
	eg   *errgroup.Group
	log  *slog.Logger
	wake chan struct{}

	mu      sync.Mutex
	idle    *sync.Cond
	queue   []job
	running *job
	started time.Time
	cancel  context.CancelFunc
	message string
	active  time.Duration
	errs    []error
	stopped bool
}

// New starts a worker whose jobs run under ctx
func New(ctx context.Context, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(ctx)
	eg, ctx := errgroup.WithContext(ctx)
	w := &Worker{
		ctx:  ctx,
		stop: cancel,
		eg:   eg,
		log:  log,
		wake: make(chan struct{}, 1),
	}
	w.idle = sync.NewCond(&w.mu)
	eg.Go(w.loop)
	return w
}

// Queue appends a job. Jobs run strictly in submission order.
func (w *Worker) Queue(name string, fn Func) error {
	w.mu.Lock()
	if w.stopped || w.ctx.Err() != nil {
		w.mu.Unlock()
		return ErrStopped
	}
	w.queue = append(w.queue, job{name: name, fn: fn})
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

func (w *Worker) loop() error {
	defer w.dropQueued()
	for {
		if w.ctx.Err() != nil {
			return nil
		}
		j, ctx, ok := w.next()
		if !ok {
			select {
			case <-w.ctx.Done():
				return nil
			case <-w.wake:
			}
			continue
		}
		w.run(ctx, j)
	}
}

// dropQueued forgets jobs that can no longer run once the worker's
// context is done
func (w *Worker) dropQueued() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue = nil
	w.idle.Broadcast()
}

func (w *Worker) next() (job, context.Context, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return job{}, nil, false
	}
	j := w.queue[0]
	w.queue = w.queue[1:]
	ctx, cancel := context.WithCancel(w.ctx)
	w.running = &j
	w.cancel = cancel
	w.started = time.Now()
	return j, ctx, true
}

func (w *Worker) run(ctx context.Context, j job) {
	w.log.Debug(fmt.Sprintf("starting %s", j.name))
	err := j.fn(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancel()
	w.active += time.Since(w.started)
	w.running = nil
	w.cancel = nil
	if err != nil {
		w.errs = append(w.errs, fmt.Errorf("%s: %w", j.name, err))
		w.log.Debug(fmt.Sprintf("%s failed: %v", j.name, err))
	} else {
		w.log.Debug(fmt.Sprintf("%s finished", j.name))
	}
	w.idle.Broadcast()
}

// Abort cancels the running job and drops every pending one
func (w *Worker) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()
	dropped := len(w.queue)
	w.queue = nil
	if w.cancel != nil {
		w.cancel()
	}
	if dropped > 0 {
		w.log.Debug(fmt.Sprintf("dropped %d pending job(s)", dropped))
	}
	w.idle.Broadcast()
}

// Wait blocks until no job is running or queued
func (w *Worker) Wait() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.running != nil || len(w.queue) > 0 {
		w.idle.Wait()
	}
}

// Stop aborts outstanding work and shuts the worker down. Further calls to
// Queue fail with ErrStopped.
func (w *Worker) Stop() error {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	w.Abort()
	w.stop()
	err := w.eg.Wait()

	w.mu.Lock()
	w.queue = nil
	w.idle.Broadcast()
	w.mu.Unlock()
	return err
}

// Status returns the worker's current state
func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := Status{Message: w.message, Active: w.active, Queued: len(w.queue)}
	if w.running != nil {
		s.Running = w.running.name
		s.Active += time.Since(w.started)
	}
	return s
}

// SetStatus replaces the status message
func (w *Worker) SetStatus(message string) {
	w.mu.Lock()
	w.message = message
	w.mu.Unlock()
}

// ReportError records a diagnostic for the caller to drain
func (w *Worker) ReportError(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	w.errs = append(w.errs, err)
	w.mu.Unlock()
}

// DrainErrors returns and clears the recorded errors
func (w *Worker) DrainErrors() []error {
	w.mu.Lock()
	defer w.mu.Unlock()
	errs := w.errs
	w.errs = nil
	return errs
}
