package failwatch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// config holds Harness configuration. It is built from defaultConfig plus
// Options and is immutable once New returns.
type config struct {
	LogDir             string
	Namespaces         []string
	MaxParallelSuites  int
	TimingDBPath       string
	CaptureLockFile    string
	LogTailLines       int64
	CollectConcurrency int
	Registerer         prometheus.Registerer

	// envErrs collects parse failures from FromEnvironment; New reports them.
	envErrs []error
}

func defaultConfig() config {
	return config{
		LogDir:             filepath.Join(os.TempDir(), DefaultLogDirName),
		MaxParallelSuites:  DefaultMaxParallelSuites,
		LogTailLines:       DefaultLogTailLines,
		CollectConcurrency: DefaultCollectConcurrency,
	}
}

// Validate checks every config invariant and reports all violations at once.
func (c config) Validate() error {
	errs := append([]error(nil), c.envErrs...)

	if c.LogDir == "" {
		errs = append(errs, errors.New("log directory must not be empty"))
	}
	if c.MaxParallelSuites < 0 {
		errs = append(errs, fmt.Errorf("max parallel suites must not be negative, got %d", c.MaxParallelSuites))
	}
	if c.LogTailLines < 0 {
		errs = append(errs, fmt.Errorf("log tail lines must not be negative, got %d", c.LogTailLines))
	}
	if c.CollectConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("collect concurrency must be greater than 0, got %d", c.CollectConcurrency))
	}
	for idx, ns := range c.Namespaces {
		if ns == "" {
			errs = append(errs, fmt.Errorf("namespace %d must not be empty", idx))
		}
	}

	return errors.Join(errs...)
}
