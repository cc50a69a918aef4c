package failwatch

import "github.com/prometheus/client_golang/prometheus"

// ConfigSnapshot holds a copy of config fields for test assertions.
type ConfigSnapshot struct {
	LogDir             string
	Namespaces         []string
	MaxParallelSuites  int
	TimingDBPath       string
	CaptureLockFile    string
	LogTailLines       int64
	CollectConcurrency int
	HasRegisterer      bool
}

// ApplyOptionsForTesting applies opts to the default config and returns a
// snapshot of the result together with the validation error, if any.
func ApplyOptionsForTesting(opts ...Option) (ConfigSnapshot, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return ConfigSnapshot{
		LogDir:             cfg.LogDir,
		Namespaces:         cfg.Namespaces,
		MaxParallelSuites:  cfg.MaxParallelSuites,
		TimingDBPath:       cfg.TimingDBPath,
		CaptureLockFile:    cfg.CaptureLockFile,
		LogTailLines:       cfg.LogTailLines,
		CollectConcurrency: cfg.CollectConcurrency,
		HasRegisterer:      cfg.Registerer != nil,
	}, cfg.Validate()
}

// EnvOptionForTesting returns the FromEnvironment option reading env instead
// of the process environment.
func EnvOptionForTesting(env map[string]string) Option {
	return fromLookup(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
}

// CapturesForTesting returns the captures_total counter for result.
func (m *Metrics) CapturesForTesting(result string) prometheus.Counter {
	return m.captures.WithLabelValues(result)
}

// FailuresForTesting returns the failures_observed_total counter for point
// and action.
func (m *Metrics) FailuresForTesting(point, action string) prometheus.Counter {
	return m.failures.WithLabelValues(point, action)
}
