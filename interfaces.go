package failwatch

import (
	"context"

	"github.com/giantswarm/failwatch/internal/lanes"
	"github.com/giantswarm/failwatch/internal/timing"
)

// Operation names a kind of timing measurement.
type Operation = timing.Operation

// Timing operations understood by the built-in timing system.
const (
	TestExecution  = timing.TestExecution
	ClassExecution = timing.ClassExecution
	CollectLogs    = timing.CollectLogs
)

// LogCollector gathers and persists diagnostic artifacts for a failing scope
// into outputDir. It owns whatever client it needs to reach the environment
// under test and may be slow; the Gate never runs two calls at once.
type LogCollector interface {
	Collect(ctx context.Context, scope Scope, outputDir string) error
}

// LogCollectorFunc adapts a function to LogCollector.
type LogCollectorFunc func(ctx context.Context, scope Scope, outputDir string) error

// Collect calls f.
func (f LogCollectorFunc) Collect(ctx context.Context, scope Scope, outputDir string) error {
	return f(ctx, scope, outputDir)
}

// Timer stops in-flight timing measurements. StopOperation must return nil
// for a measurement that was never started or is already stopped.
type Timer interface {
	StopOperation(ctx context.Context, op Operation, class, method string) error
}

// LaneRegistry is the failure-side view of the suite lane registry.
//
// ReleaseIsolated takes the suite so that checking the holder and releasing
// the lock happen atomically.
type LaneRegistry interface {
	IsParallel(suite string) bool
	IsIsolated(suite string) bool
	DeregisterParallel(suite string) bool
	ReleaseIsolated(suite string) bool
}

// Capturer is what the Watcher forwards capture requests to. *Gate is the
// production implementation.
type Capturer interface {
	Collect(ctx context.Context, scope Scope) error
}

// Compile-time interface satisfaction checks.
var (
	_ Capturer     = (*Gate)(nil)
	_ Timer        = (*timing.System)(nil)
	_ LaneRegistry = (*lanes.Registry)(nil)
)
