package lanes

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/giantswarm/failwatch/internal/logging"
	"github.com/giantswarm/failwatch/internal/sentinel"
)

const (
	// ErrAlreadyRegistered is returned when a suite that already occupies a
	// lane tries to enter another one.
	ErrAlreadyRegistered = sentinel.Error("suite is already registered in a lane")

	// ErrEmptySuite is returned when a suite name is empty.
	ErrEmptySuite = sentinel.Error("suite name must not be empty")
)

// State is the lane a suite currently occupies.
type State int

const (
	// Unregistered means the suite holds no lane.
	Unregistered State = iota
	// Parallel means the suite is registered in the parallel lane.
	Parallel
	// Isolated means the suite holds the exclusive isolated lock.
	Isolated
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case Unregistered:
		return "unregistered"
	case Parallel:
		return "parallel"
	case Isolated:
		return "isolated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is a point-in-time copy of the registry.
type Snapshot struct {
	Parallel []string // sorted
	Isolated string   // empty when the lock is free
}

// Registry tracks lane membership. The zero value is not usable; call New.
//
// All fields below mu are guarded by it. The registry lock is independent of
// any capture lock, so deregistration never waits on an in-flight capture.
type Registry struct {
	maxParallel int

	mu              sync.Mutex
	parallel        map[string]struct{}
	isolated        string
	isolatedWaiting int
	changed         chan struct{}
}

// New returns an empty registry. maxParallel caps the number of concurrently
// registered parallel suites; 0 means unlimited.
//
// Panics if maxParallel is negative.
func New(maxParallel int) *Registry {
	if maxParallel < 0 {
		panic(fmt.Sprintf("failwatch: lanes max parallel suites must not be negative, got %d", maxParallel))
	}
	return &Registry{
		maxParallel: maxParallel,
		parallel:    make(map[string]struct{}),
		changed:     make(chan struct{}),
	}
}

// notifyLocked wakes every waiter. Caller must hold r.mu.
func (r *Registry) notifyLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
}

// stateLocked returns the lane of suite. Caller must hold r.mu.
func (r *Registry) stateLocked(suite string) State {
	if suite != "" && r.isolated == suite {
		return Isolated
	}
	if _, ok := r.parallel[suite]; ok {
		return Parallel
	}
	return Unregistered
}

// RegisterParallel adds suite to the parallel lane. It blocks while an
// isolated suite holds or waits for the exclusive lock, and while the
// parallel capacity is exhausted. Returns ctx's error if ctx ends first.
func (r *Registry) RegisterParallel(ctx context.Context, suite string) error {
	if suite == "" {
		return ErrEmptySuite
	}
	for {
		r.mu.Lock()
		if st := r.stateLocked(suite); st != Unregistered {
			r.mu.Unlock()
			return fmt.Errorf("register parallel suite %s (currently %s): %w", suite, st, ErrAlreadyRegistered)
		}
		if r.isolated == "" && r.isolatedWaiting == 0 &&
			(r.maxParallel == 0 || len(r.parallel) < r.maxParallel) {
			r.parallel[suite] = struct{}{}
			count := len(r.parallel)
			r.notifyLocked()
			r.mu.Unlock()
			logging.Logger().Debug("parallel suite registered", "suite", suite, "parallel", count)
			return nil
		}
		wait := r.changed
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for parallel lane for suite %s: %w", suite, ctx.Err())
		case <-wait:
		}
	}
}

// LockIsolated takes the exclusive isolated lock for suite. It blocks until
// the lock is free and no parallel suite is registered. While it waits, new
// parallel registrations are held back so the isolated suite cannot starve.
func (r *Registry) LockIsolated(ctx context.Context, suite string) error {
	if suite == "" {
		return ErrEmptySuite
	}

	r.mu.Lock()
	if st := r.stateLocked(suite); st != Unregistered {
		r.mu.Unlock()
		return fmt.Errorf("lock isolated suite %s (currently %s): %w", suite, st, ErrAlreadyRegistered)
	}
	r.isolatedWaiting++
	r.mu.Unlock()

	for {
		r.mu.Lock()
		if r.isolated == "" && len(r.parallel) == 0 {
			r.isolated = suite
			r.isolatedWaiting--
			r.notifyLocked()
			r.mu.Unlock()
			logging.Logger().Debug("isolated lock acquired", "suite", suite)
			return nil
		}
		wait := r.changed
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			r.mu.Lock()
			r.isolatedWaiting--
			r.notifyLocked()
			r.mu.Unlock()
			return fmt.Errorf("wait for isolated lock for suite %s: %w", suite, ctx.Err())
		case <-wait:
		}
	}
}

// State reports the lane suite currently occupies.
func (r *Registry) State(suite string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked(suite)
}

// IsParallel reports whether suite is registered in the parallel lane.
func (r *Registry) IsParallel(suite string) bool {
	return r.State(suite) == Parallel
}

// IsIsolated reports whether suite holds the isolated lock.
func (r *Registry) IsIsolated(suite string) bool {
	return r.State(suite) == Isolated
}

// DeregisterParallel removes suite from the parallel lane and reports whether
// it was registered. Calling it for an unregistered suite is a no-op.
func (r *Registry) DeregisterParallel(suite string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.parallel[suite]; !ok {
		return false
	}
	delete(r.parallel, suite)
	r.notifyLocked()
	logging.Logger().Debug("parallel suite deregistered", "suite", suite, "parallel", len(r.parallel))
	return true
}

// ReleaseIsolated frees the isolated lock if suite holds it and reports
// whether it did. The check and the release happen under one lock, so a
// suite can never release a lock another suite acquired.
func (r *Registry) ReleaseIsolated(suite string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if suite == "" || r.isolated != suite {
		return false
	}
	r.isolated = ""
	r.notifyLocked()
	logging.Logger().Debug("isolated lock released", "suite", suite)
	return true
}

// Leave removes suite from whichever lane it occupies and returns the lane it
// left.
func (r *Registry) Leave(suite string) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.stateLocked(suite)
	switch st {
	case Parallel:
		delete(r.parallel, suite)
	case Isolated:
		r.isolated = ""
	case Unregistered:
		return st
	}
	r.notifyLocked()
	return st
}

// Snapshot returns a copy of the current registry state.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{Isolated: r.isolated, Parallel: make([]string, 0, len(r.parallel))}
	for suite := range r.parallel {
		s.Parallel = append(s.Parallel, suite)
	}
	slices.Sort(s.Parallel)
	return s
}
