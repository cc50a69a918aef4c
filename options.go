package failwatch

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("failwatch: %s must not be empty", name))
	}
}

// requireNonNegative panics if v < 0 with a descriptive message.
func requireNonNegative[T int | int64](name string, v T) {
	if v < 0 {
		panic(fmt.Sprintf("failwatch: %s must not be negative, got %d", name, v))
	}
}

// Option configures a Harness during construction via New.
//
// With* functions panic on invalid input. Option values are normally
// constants in a TestMain, so an invalid one is a programmer error.
// FromEnvironment is the exception: environment values are runtime input, so
// its parse failures are returned by New instead.
type Option func(*config)

// WithLogDir sets the directory captures are written under.
//
// Default: filepath.Join(os.TempDir(), DefaultLogDirName).
//
// Panics if dir is empty.
func WithLogDir(dir string) Option {
	requireNonEmpty("log directory", dir)
	return func(c *config) {
		c.LogDir = dir
	}
}

// WithNamespaces restricts collection to the given namespaces. Without it,
// every non-system namespace is collected.
//
// Panics if any namespace is empty.
func WithNamespaces(namespaces ...string) Option {
	for _, ns := range namespaces {
		requireNonEmpty("namespace", ns)
	}
	namespaces = slices.Clone(namespaces)
	return func(c *config) {
		c.Namespaces = namespaces
	}
}

// WithMaxParallelSuites caps the number of suites in the parallel lane.
// 0 means unlimited.
//
// Panics if n < 0.
func WithMaxParallelSuites(n int) Option {
	requireNonNegative("max parallel suites", n)
	return func(c *config) {
		c.MaxParallelSuites = n
	}
}

// WithTimingDB persists completed timing measurements to a SQLite database
// at path.
//
// Panics if path is empty.
func WithTimingDB(path string) Option {
	requireNonEmpty("timing database path", path)
	return func(c *config) {
		c.TimingDBPath = path
	}
}

// WithCaptureLockFile serializes captures across processes through an
// exclusive lock on path. Use it when several test binaries share a log
// directory or a cluster.
//
// Panics if path is empty.
func WithCaptureLockFile(path string) Option {
	requireNonEmpty("capture lock file", path)
	return func(c *config) {
		c.CaptureLockFile = path
	}
}

// WithLogTailLines limits each collected container log to its last n lines.
// 0 collects whole logs.
//
// Default: 10000.
//
// Panics if n < 0.
func WithLogTailLines(n int64) Option {
	requireNonNegative("log tail lines", n)
	return func(c *config) {
		c.LogTailLines = n
	}
}

// WithCollectConcurrency sets how many namespaces one capture collects from
// at once.
//
// Default: 4.
//
// Panics if n <= 0.
func WithCollectConcurrency(n int) Option {
	if n <= 0 {
		panic(fmt.Sprintf("failwatch: collect concurrency must be greater than 0, got %d", n))
	}
	return func(c *config) {
		c.CollectConcurrency = n
	}
}

// WithMetricsRegisterer registers capture metrics on reg.
//
// Panics if reg is nil.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	if reg == nil {
		panic("failwatch: metrics registerer must not be nil")
	}
	return func(c *config) {
		c.Registerer = reg
	}
}

// FromEnvironment applies the settings found in the process environment
// (see the Env* constants). Unset variables leave the current value alone.
// Options listed after it override it.
func FromEnvironment() Option {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) Option {
	return func(c *config) {
		if v, ok := lookup(EnvLogDir); ok && v != "" {
			c.LogDir = v
		}
		if v, ok := lookup(EnvNamespaces); ok && v != "" {
			c.Namespaces = splitList(v)
		}
		if v, ok := lookup(EnvMaxParallelSuites); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				c.envErrs = append(c.envErrs, fmt.Errorf("parse %s: %w", EnvMaxParallelSuites, err))
			} else {
				c.MaxParallelSuites = n
			}
		}
		if v, ok := lookup(EnvTimingDB); ok && v != "" {
			c.TimingDBPath = v
		}
		if v, ok := lookup(EnvCaptureLock); ok && v != "" {
			c.CaptureLockFile = v
		}
		if v, ok := lookup(EnvLogTailLines); ok && v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				c.envErrs = append(c.envErrs, fmt.Errorf("parse %s: %w", EnvLogTailLines, err))
			} else {
				c.LogTailLines = n
			}
		}
	}
}

// splitList splits a comma-separated list, trimming blanks and dropping
// empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
