package failwatch

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/client-go/rest"

	"github.com/giantswarm/failwatch/internal/collector"
	"github.com/giantswarm/failwatch/internal/lanes"
	"github.com/giantswarm/failwatch/internal/logging"
	"github.com/giantswarm/failwatch/internal/timing"
)

// LaneSnapshot is a point-in-time copy of the suite lane registry.
type LaneSnapshot = lanes.Snapshot

// Measurement is a completed timing measurement.
type Measurement = timing.Record

// Harness owns one lane registry, timing system, Gate and Watcher. Build it
// once per test binary (typically in TestMain) and pass it to suites.
type Harness struct {
	cfg     config
	lanes   *lanes.Registry
	timing  *timing.System
	store   *timing.SQLiteStore
	gate    *Gate
	watcher *Watcher
}

// New builds a Harness that collects diagnostics from the cluster restCfg
// points at.
func New(ctx context.Context, restCfg *rest.Config, opts ...Option) (*Harness, error) {
	if restCfg == nil {
		return nil, errors.New("failwatch: rest config must not be nil")
	}
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	kc, err := collector.NewForConfig(restCfg, collector.Options{
		Namespaces:  cfg.Namespaces,
		TailLines:   cfg.LogTailLines,
		Concurrency: cfg.CollectConcurrency,
	})
	if err != nil {
		return nil, err
	}
	return newHarness(ctx, cfg, func(ts *timing.System) LogCollector {
		return &kubeCollector{c: kc, timing: ts}
	})
}

// NewWithCollector builds a Harness around a caller-supplied LogCollector.
//
// Panics if lc is nil.
func NewWithCollector(ctx context.Context, lc LogCollector, opts ...Option) (*Harness, error) {
	if lc == nil {
		panic("failwatch: log collector must not be nil")
	}
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	return newHarness(ctx, cfg, func(*timing.System) LogCollector { return lc })
}

func buildConfig(opts []Option) (config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return config{}, fmt.Errorf("invalid failwatch configuration: %w", err)
	}
	return cfg, nil
}

func newHarness(ctx context.Context, cfg config, mkCollector func(*timing.System) LogCollector) (*Harness, error) {
	h := &Harness{cfg: cfg, lanes: lanes.New(cfg.MaxParallelSuites)}

	if cfg.TimingDBPath != "" {
		store, err := timing.OpenSQLite(ctx, cfg.TimingDBPath)
		if err != nil {
			return nil, err
		}
		h.store = store
		h.timing = timing.NewSystem(store)
	} else {
		h.timing = timing.NewSystem(nil)
	}

	var metrics *Metrics
	if cfg.Registerer != nil {
		metrics = NewMetrics(cfg.Registerer)
	}

	h.gate = NewGate(GateConfig{
		Collector: mkCollector(h.timing),
		OutputDir: cfg.LogDir,
		Timer:     h.timing,
		LockFile:  cfg.CaptureLockFile,
		Metrics:   metrics,
	})
	h.watcher = NewWatcher(h.gate, WithLaneRegistry(h.lanes), WithWatcherMetrics(metrics))

	logging.Logger().Debug("harness ready",
		"log_dir", cfg.LogDir,
		"namespaces", cfg.Namespaces,
		"max_parallel_suites", cfg.MaxParallelSuites,
		"timing_db", cfg.TimingDBPath,
		"capture_lock", cfg.CaptureLockFile,
	)
	return h, nil
}

// Watcher returns the harness Watcher.
func (h *Harness) Watcher() *Watcher { return h.watcher }

// Gate returns the harness Gate.
func (h *Harness) Gate() *Gate { return h.gate }

// LogDir returns the directory captures are written under.
func (h *Harness) LogDir() string { return h.cfg.LogDir }

// EnterParallel registers suite in the parallel lane, blocking while an
// isolated suite runs or waits, and starts its class measurement.
func (h *Harness) EnterParallel(ctx context.Context, suite string) error {
	if err := h.lanes.RegisterParallel(ctx, suite); err != nil {
		return err
	}
	h.timing.Start(ClassExecution, suite, "")
	return nil
}

// EnterIsolated takes the isolated lane for suite, blocking until every
// parallel suite has left, and starts its class measurement.
func (h *Harness) EnterIsolated(ctx context.Context, suite string) error {
	if err := h.lanes.LockIsolated(ctx, suite); err != nil {
		return err
	}
	h.timing.Start(ClassExecution, suite, "")
	return nil
}

// LeaveSuite removes suite from its lane after a normal after-all and stops
// its class measurement. It is a no-op for a suite that already left, e.g.
// because its after-all failure was handled by the Watcher.
func (h *Harness) LeaveSuite(ctx context.Context, suite string) error {
	h.lanes.Leave(suite)
	return h.timing.StopOperation(ctx, ClassExecution, suite, "")
}

// Lanes returns a snapshot of the lane registry.
func (h *Harness) Lanes() LaneSnapshot { return h.lanes.Snapshot() }

// LaneRegistry returns the failure-side view of the lane registry.
//
//nolint:ireturn // failure-side capability of the registry
func (h *Harness) LaneRegistry() LaneRegistry { return h.lanes }

// StartTest starts the TestExecution measurement for (class, method).
func (h *Harness) StartTest(class, method string) {
	h.timing.Start(TestExecution, class, method)
}

// FinishTest stops the TestExecution measurement for (class, method). It is
// a no-op if a capture already stopped it.
func (h *Harness) FinishTest(ctx context.Context, class, method string) error {
	return h.timing.StopOperation(ctx, TestExecution, class, method)
}

// Measurements returns all completed measurements of this process.
func (h *Harness) Measurements() []Measurement { return h.timing.Records() }

// Close releases the timing database, if any.
func (h *Harness) Close() error {
	if h.store == nil {
		return nil
	}
	if err := h.store.Close(); err != nil {
		return fmt.Errorf("close timing database: %w", err)
	}
	return nil
}

// kubeCollector adapts the Kubernetes collector to LogCollector and measures
// each capture as a CollectLogs operation.
type kubeCollector struct {
	c      *collector.Collector
	timing *timing.System
}

func (k *kubeCollector) Collect(ctx context.Context, scope Scope, outputDir string) error {
	k.timing.Start(CollectLogs, scope.TestClass, scope.TestMethod)
	dir, err := k.c.Collect(ctx, scope.TestClass, scope.TestMethod, outputDir)
	if stopErr := k.timing.StopOperation(ctx, CollectLogs, scope.TestClass, scope.TestMethod); stopErr != nil {
		logging.Logger().Debug("collect-logs measurement not persisted", "error", stopErr)
	}
	if err != nil {
		return err
	}
	logging.Logger().Info("diagnostics collected", "class", scope.TestClass, "method", scope.TestMethod, "dir", dir)
	return nil
}
