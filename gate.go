package failwatch

import (
	"context"
	"sync"
	"time"

	"github.com/giantswarm/failwatch/internal/filelock"
	"github.com/giantswarm/failwatch/internal/logging"
)

// GateConfig configures a Gate.
type GateConfig struct {
	// Collector gathers the artifacts. Required.
	Collector LogCollector
	// OutputDir is handed to Collector on every capture. Required.
	OutputDir string
	// Timer, if set, has the failing method's TestExecution measurement
	// stopped before collection starts.
	Timer Timer
	// LockFile, if set, is locked exclusively for the duration of every
	// capture so that captures are serialized across processes too.
	LockFile string
	// Metrics, if set, records capture counts and durations.
	Metrics *Metrics
}

// Gate is the single serialized entry point for captures. At most one
// Collect runs at a time; callers block until the previous one completes.
type Gate struct {
	collector LogCollector
	outputDir string
	timer     Timer
	lockFile  string
	metrics   *Metrics

	mu sync.Mutex
}

// NewGate returns a Gate.
//
// Panics if cfg.Collector is nil or cfg.OutputDir is empty.
func NewGate(cfg GateConfig) *Gate {
	if cfg.Collector == nil {
		panic("failwatch: gate collector must not be nil")
	}
	requireNonEmpty("gate output directory", cfg.OutputDir)
	return &Gate{
		collector: cfg.Collector,
		outputDir: cfg.OutputDir,
		timer:     cfg.Timer,
		lockFile:  cfg.LockFile,
		metrics:   cfg.Metrics,
	}
}

// Collect stops the failing method's execution measurement and runs the log
// collector for scope, holding the gate for both.
//
// Once a call is admitted it runs to completion: cancellation of ctx is not
// propagated into the capture, since a test's context is usually already
// canceled by the time its failure is handled. Timing errors are logged and
// ignored. Collector and lock errors, and collector panics, are returned as
// *CollectionError.
func (g *Gate) Collect(ctx context.Context, scope Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	log := logging.Logger().With("class", scope.TestClass, "method", scope.TestMethod)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lockFile != "" {
		fl, err := filelock.Acquire(ctx, g.lockFile)
		if err != nil {
			g.metrics.observeLockFailure()
			return &CollectionError{Scope: scope, Err: err}
		}
		defer filelock.Release(log, fl)
	}

	start := time.Now()

	if scope.HasMethod() && g.timer != nil {
		if err := g.timer.StopOperation(ctx, TestExecution, scope.TestClass, scope.TestMethod); err != nil {
			log.Warn("stopping test execution measurement failed", "error", err)
		}
	}

	err := g.runCollector(ctx, scope)
	g.metrics.observeCapture(err, time.Since(start))
	if err != nil {
		return &CollectionError{Scope: scope, Err: err}
	}
	return nil
}

// runCollector calls the collector, turning a panic into a *PanicError.
func (g *Gate) runCollector(ctx context.Context, scope Scope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return g.collector.Collect(ctx, scope, g.outputDir)
}

// OutputDir returns the directory captures are written under.
func (g *Gate) OutputDir() string {
	return g.outputDir
}
