package replay

import (
	"sync/atomic"
	"time"
)

// State is the phase of an export run
type State int32

const (
	StateInit State = iota
	StateReplaying
	StateCommitting
	StateTagging
	StateVerifying
	StateDone
	StateAborted
	StateFailed
)

var stateNames = map[State]string{
	StateInit:       "init",
	StateReplaying:  "replaying",
	StateCommitting: "committing",
	StateTagging:    "tagging",
	StateVerifying:  "verifying",
	StateDone:       "done",
	StateAborted:    "aborted",
	StateFailed:     "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the run has finished
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted || s == StateFailed
}

// Stats holds run counters. It is written by the worker and may be read
// from any goroutine.
type Stats struct {
	files       atomic.Int64
	revisions   atomic.Int64
	changesets  atomic.Int64
	commits     atomic.Int64
	tags        atomic.Int64
	diagnostics atomic.Int64
	state       atomic.Int32
	current     atomic.Int64
	total       atomic.Int64
}

// Snapshot is a point-in-time copy of Stats
type Snapshot struct {
	State       State
	Files       int64
	Revisions   int64
	Changesets  int64
	Total       int64
	Commits     int64
	Tags        int64
	Diagnostics int64
	// Current is the index of the changeset being replayed
	Current int64
}

// Snapshot reads all counters
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		State:       State(s.state.Load()),
		Files:       s.files.Load(),
		Revisions:   s.revisions.Load(),
		Changesets:  s.changesets.Load(),
		Total:       s.total.Load(),
		Commits:     s.commits.Load(),
		Tags:        s.tags.Load(),
		Diagnostics: s.diagnostics.Load(),
		Current:     s.current.Load(),
	}
}

// State returns the current phase
func (s *Stats) State() State {
	return State(s.state.Load())
}

func (s *Stats) setState(state State) {
	s.state.Store(int32(state))
}

// Progress returns the fraction of changesets replayed
func (s Snapshot) Progress() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Changesets) / float64(s.Total)
}

// Summary is the outcome of a finished run
type Summary struct {
	Snapshot
	Elapsed     time.Duration
	Differences int
	Verified    bool
}
