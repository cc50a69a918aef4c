package failwatch

import (
	"context"
	"testing"

	"github.com/giantswarm/failwatch/internal/logging"
)

// LaneRelease records which lanes an AfterAll failure released.
type LaneRelease struct {
	Parallel bool // the suite was deregistered from the parallel lane
	Isolated bool // the suite's isolated lock was released
}

// Outcome describes how the Watcher processed one failure.
type Outcome struct {
	Point LifecyclePoint
	Scope Scope
	// Failure is the exact error value that was observed. Callers return it
	// as-is so their pass/fail accounting is unaffected.
	Failure error
	// Captured reports that the Capturer was invoked.
	Captured bool
	// Suppressed reports that capture was skipped for an aborted test.
	Suppressed bool
	// Released reports lane cleanup done for an AfterAll failure.
	Released LaneRelease
	// CollectErr is the secondary failure of the capture, if any. It is
	// logged and never replaces Failure.
	CollectErr error
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLaneRegistry sets the registry AfterAll failures release lanes in.
// Without one, AfterAll performs no lane cleanup.
func WithLaneRegistry(r LaneRegistry) WatcherOption {
	return func(w *Watcher) {
		w.lanes = r
	}
}

// WithWatcherMetrics records observed failures on m.
func WithWatcherMetrics(m *Metrics) WatcherOption {
	return func(w *Watcher) {
		w.metrics = m
	}
}

// Watcher turns failures observed at lifecycle points into capture requests.
// It is safe for concurrent use.
type Watcher struct {
	capturer Capturer
	lanes    LaneRegistry
	metrics  *Metrics
}

// NewWatcher returns a Watcher forwarding captures to c.
//
// Panics if c is nil.
func NewWatcher(c Capturer, opts ...WatcherOption) *Watcher {
	if c == nil {
		panic("failwatch: watcher capturer must not be nil")
	}
	w := &Watcher{capturer: c}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Observe processes failure observed at point during exec. A nil failure is
// a no-op. For AfterAll the suite leaves its lane before capture starts.
// Aborted failures are not captured at TestBody, BeforeAll and BeforeEach.
//
// Panics if point is not a recognized lifecycle point.
func (w *Watcher) Observe(ctx context.Context, point LifecyclePoint, exec Execution, failure error) Outcome {
	pol := point.policy()
	out := Outcome{Point: point, Failure: failure}
	if failure == nil {
		return out
	}
	out.Scope = exec.scope(pol.methodScoped)

	log := logging.Logger().With(
		"point", point.String(),
		"class", out.Scope.TestClass,
		"method", out.Scope.TestMethod,
	)
	log.Error("failure observed, collecting diagnostics", "error", failure)

	if pol.releaseLanes && w.lanes != nil {
		out.Released = w.releaseLanes(exec.TestClass)
		if out.Released.Parallel || out.Released.Isolated {
			log.Info("suite left its lane after failure",
				"parallel", out.Released.Parallel, "isolated", out.Released.Isolated)
		}
	}

	if pol.suppressOnAbort && IsAborted(failure) {
		out.Suppressed = true
		w.metrics.observeFailure(point, actionSuppressed)
		log.Info("test aborted, diagnostics not collected")
		return out
	}

	if err := out.Scope.Validate(); err != nil {
		out.CollectErr = err
		w.metrics.observeFailure(point, actionSkipped)
		log.Warn("diagnostics not collected", "error", err)
		return out
	}

	out.Captured = true
	w.metrics.observeFailure(point, actionCaptured)
	if err := w.capture(ctx, out.Scope); err != nil {
		out.CollectErr = err
		log.Warn("diagnostic collection failed", "error", err)
	}
	return out
}

// capture forwards scope to the capturer. A panicking capturer is reported
// as a *CollectionError so it cannot replace the observed failure.
func (w *Watcher) capture(ctx context.Context, scope Scope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CollectionError{Scope: scope, Err: &PanicError{Value: r}}
		}
	}()
	return w.capturer.Collect(ctx, scope)
}

// releaseLanes removes suite from whichever lane it occupies.
func (w *Watcher) releaseLanes(suite string) LaneRelease {
	return LaneRelease{
		Parallel: w.lanes.DeregisterParallel(suite),
		Isolated: w.lanes.ReleaseIsolated(suite),
	}
}

// Handle is Observe for callers that only need the failure back. It returns
// failure unchanged.
func (w *Watcher) Handle(ctx context.Context, point LifecyclePoint, exec Execution, failure error) error {
	return w.Observe(ctx, point, exec, failure).Failure
}

// Run calls fn and routes its error through Handle, returning that error
// unchanged. If fn panics, the panic is captured as a *PanicError and then
// re-raised with its original value.
func (w *Watcher) Run(ctx context.Context, point LifecyclePoint, exec Execution, fn func(context.Context) error) error {
	panicked, value, err := callHook(ctx, fn)
	if panicked {
		w.Observe(ctx, point, exec, &PanicError{Value: value})
		panic(value)
	}
	return w.Handle(ctx, point, exec, err)
}

// callHook runs fn and reports a panic instead of propagating it. Only panics
// raised by fn itself are recovered here.
func callHook(ctx context.Context, fn func(context.Context) error) (panicked bool, value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicked, value = true, r
		}
	}()
	return false, nil, fn(ctx)
}

// Guard captures diagnostics when tb finishes failed. The failure is reported
// at TestBody with tb.Name() as the method. A test that failed and then
// skipped itself still counts as failed and is captured.
func (w *Watcher) Guard(tb testing.TB, class string) {
	tb.Helper()
	exec := Execution{TestClass: class, TestMethod: tb.Name()}
	tb.Cleanup(func() {
		if !tb.Failed() {
			return
		}
		w.Observe(context.Background(), TestBody, exec, ErrTestFailed)
	})
}
