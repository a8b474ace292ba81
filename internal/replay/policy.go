package replay

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Decision is what to do about a failed backend or filesystem operation
type Decision int

const (
	// Abort stops the run
	Abort Decision = iota
	// Retry repeats the failed operation
	Retry
	// Ignore skips the operation and continues
	Ignore
)

var decisionNames = map[Decision]string{
	Abort:  "abort",
	Retry:  "retry",
	Ignore: "ignore",
}

func (d Decision) String() string {
	if name, ok := decisionNames[d]; ok {
		return name
	}
	return "unknown"
}

// Failure describes one failed operation
type Failure struct {
	Op      string
	Path    string
	Err     error
	Attempt int
}

// FailurePolicy decides how the engine reacts to an operational error
type FailurePolicy interface {
	Decide(ctx context.Context, f Failure) Decision
}

// FailurePolicyFunc adapts a function to FailurePolicy
type FailurePolicyFunc func(ctx context.Context, f Failure) Decision

// Decide calls fn
func (fn FailurePolicyFunc) Decide(ctx context.Context, f Failure) Decision {
	return fn(ctx, f)
}

// AbortPolicy aborts on the first failure
type AbortPolicy struct{}

// Decide always returns Abort
func (AbortPolicy) Decide(context.Context, Failure) Decision { return Abort }

// IgnorePolicy skips every failed operation
type IgnorePolicy struct{}

// Decide always returns Ignore
func (IgnorePolicy) Decide(context.Context, Failure) Decision { return Ignore }

// RetryPolicy retries with exponential backoff until MaxElapsed has passed
// for one operation, then aborts.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration

	current backoff.BackOff
}

// NewRetryPolicy creates a RetryPolicy giving up after maxElapsed
func NewRetryPolicy(maxElapsed time.Duration) *RetryPolicy {
	return &RetryPolicy{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		MaxElapsed:      maxElapsed,
	}
}

// Decide waits for the next backoff interval and returns Retry, or Abort
// once the budget is spent or ctx is done.
func (p *RetryPolicy) Decide(ctx context.Context, f Failure) Decision {
	if f.Attempt <= 1 || p.current == nil {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = p.InitialInterval
		b.MaxInterval = p.MaxInterval
		b.MaxElapsedTime = p.MaxElapsed
		b.Reset()
		p.current = backoff.WithContext(b, ctx)
	}

	wait := p.current.NextBackOff()
	if wait == backoff.Stop {
		return Abort
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Abort
	case <-timer.C:
		return Retry
	}
}
