package failwatch_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/giantswarm/failwatch"
)

// recordingCapturer records every scope it is asked to capture.
type recordingCapturer struct {
	mu     sync.Mutex
	scopes []failwatch.Scope
	err    error
	// onCollect, if set, runs inside Collect after the scope is recorded.
	onCollect func(failwatch.Scope)
}

func (r *recordingCapturer) Collect(_ context.Context, scope failwatch.Scope) error {
	r.mu.Lock()
	r.scopes = append(r.scopes, scope)
	r.mu.Unlock()
	if r.onCollect != nil {
		r.onCollect(scope)
	}
	return r.err
}

func (r *recordingCapturer) calls() []failwatch.Scope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]failwatch.Scope(nil), r.scopes...)
}

// interval is one recorded collector call.
type interval struct {
	scope      failwatch.Scope
	start, end time.Time
}

// intervalCollector records start/end of every Collect call so tests can
// assert that no two calls overlapped.
type intervalCollector struct {
	hold time.Duration
	err  error

	mu        sync.Mutex
	intervals []interval
	active    int
	maxActive int
	dirs      []string
}

func (c *intervalCollector) Collect(_ context.Context, scope failwatch.Scope, outputDir string) error {
	c.mu.Lock()
	c.active++
	c.maxActive = max(c.maxActive, c.active)
	c.dirs = append(c.dirs, outputDir)
	c.mu.Unlock()

	start := time.Now()
	time.Sleep(c.hold)
	end := time.Now()

	c.mu.Lock()
	c.active--
	c.intervals = append(c.intervals, interval{scope: scope, start: start, end: end})
	c.mu.Unlock()
	return c.err
}

func (c *intervalCollector) recorded() []interval {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interval(nil), c.intervals...)
}

// requireNoOverlap fails if any two intervals overlap in time.
func requireNoOverlap(t *testing.T, ivs []interval) {
	t.Helper()
	for i := range ivs {
		for j := i + 1; j < len(ivs); j++ {
			a, b := ivs[i], ivs[j]
			if a.start.Before(b.end) && b.start.Before(a.end) {
				t.Errorf("captures overlap: %s [%s, %s] and %s [%s, %s]",
					a.scope.Key(), a.start.Format(time.StampMicro), a.end.Format(time.StampMicro),
					b.scope.Key(), b.start.Format(time.StampMicro), b.end.Format(time.StampMicro))
			}
		}
	}
}

// fakeTimer records StopOperation calls.
type fakeTimer struct {
	mu    sync.Mutex
	stops []string
	err   error
}

func (f *fakeTimer) StopOperation(_ context.Context, op failwatch.Operation, class, method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, fmt.Sprintf("%s/%s/%s", op, class, method))
	return f.err
}

func (f *fakeTimer) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.stops...)
}

// fakeLanes is a LaneRegistry with a single suite's state.
type fakeLanes struct {
	mu       sync.Mutex
	parallel map[string]bool
	isolated string
}

func newFakeLanes() *fakeLanes {
	return &fakeLanes{parallel: make(map[string]bool)}
}

func (f *fakeLanes) IsParallel(s string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.parallel[s]
}

func (f *fakeLanes) IsIsolated(s string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isolated == s
}

func (f *fakeLanes) DeregisterParallel(s string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	ok := f.parallel[s]
	delete(f.parallel, s)
	return ok
}

func (f *fakeLanes) ReleaseIsolated(s string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isolated != s {
		return false
	}
	f.isolated = ""
	return true
}

// fakeTB overrides the testing.TB methods Guard uses. Calling any other
// method panics through the nil embedded interface.
type fakeTB struct {
	testing.TB
	name     string
	failed   bool
	skipped  bool
	cleanups []func()
}

func (f *fakeTB) Name() string      { return f.name }
func (f *fakeTB) Helper()           {}
func (f *fakeTB) Failed() bool      { return f.failed }
func (f *fakeTB) Skipped() bool     { return f.skipped }
func (f *fakeTB) Cleanup(fn func()) { f.cleanups = append(f.cleanups, fn) }

// finish runs registered cleanups in LIFO order, like the testing package.
func (f *fakeTB) finish() {
	for i := len(f.cleanups) - 1; i >= 0; i-- {
		f.cleanups[i]()
	}
}

var errAssertion = errors.New("expected 3 ready replicas, got 2")

func requirePanicContains(t *testing.T, fn func(), wantSubstr string) {
	t.Helper()

	var recovered string
	func() {
		defer func() {
			if r := recover(); r != nil {
				recovered = fmt.Sprint(r)
			}
		}()
		fn()
	}()

	if recovered == "" {
		t.Fatal("expected panic, got none")
	}
	if !strings.Contains(recovered, wantSubstr) {
		t.Errorf("panic message %q does not contain %q", recovered, wantSubstr)
	}
}
