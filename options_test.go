package failwatch_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/giantswarm/failwatch"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	got, err := failwatch.ApplyOptionsForTesting()
	if err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	want := failwatch.ConfigSnapshot{
		LogDir:             filepath.Join(os.TempDir(), failwatch.DefaultLogDirName),
		MaxParallelSuites:  failwatch.DefaultMaxParallelSuites,
		LogTailLines:       failwatch.DefaultLogTailLines,
		CollectConcurrency: failwatch.DefaultCollectConcurrency,
	}
	if !equalSnapshots(got, want) {
		t.Errorf("default config = %+v, want %+v", got, want)
	}
}

func TestOptionsApply(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		opt   failwatch.Option
		check func(failwatch.ConfigSnapshot) bool
	}{
		"WithLogDir": {
			opt:   failwatch.WithLogDir("/var/tmp/st-logs"),
			check: func(c failwatch.ConfigSnapshot) bool { return c.LogDir == "/var/tmp/st-logs" },
		},
		"WithNamespaces": {
			opt:   failwatch.WithNamespaces("kafka", "co-namespace"),
			check: func(c failwatch.ConfigSnapshot) bool { return slices.Equal(c.Namespaces, []string{"kafka", "co-namespace"}) },
		},
		"WithMaxParallelSuites": {
			opt:   failwatch.WithMaxParallelSuites(3),
			check: func(c failwatch.ConfigSnapshot) bool { return c.MaxParallelSuites == 3 },
		},
		"WithTimingDB": {
			opt:   failwatch.WithTimingDB("/tmp/timing.db"),
			check: func(c failwatch.ConfigSnapshot) bool { return c.TimingDBPath == "/tmp/timing.db" },
		},
		"WithCaptureLockFile": {
			opt:   failwatch.WithCaptureLockFile("/tmp/capture.lock"),
			check: func(c failwatch.ConfigSnapshot) bool { return c.CaptureLockFile == "/tmp/capture.lock" },
		},
		"WithLogTailLines zero": {
			opt:   failwatch.WithLogTailLines(0),
			check: func(c failwatch.ConfigSnapshot) bool { return c.LogTailLines == 0 },
		},
		"WithCollectConcurrency": {
			opt:   failwatch.WithCollectConcurrency(16),
			check: func(c failwatch.ConfigSnapshot) bool { return c.CollectConcurrency == 16 },
		},
		"WithMetricsRegisterer": {
			opt:   failwatch.WithMetricsRegisterer(prometheus.NewRegistry()),
			check: func(c failwatch.ConfigSnapshot) bool { return c.HasRegisterer },
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := failwatch.ApplyOptionsForTesting(tc.opt)
			if err != nil {
				t.Fatalf("config invalid: %v", err)
			}
			if !tc.check(got) {
				t.Errorf("option not applied: %+v", got)
			}
		})
	}
}

func TestWithNamespacesCopiesInput(t *testing.T) {
	t.Parallel()

	in := []string{"kafka", "connect"}
	opt := failwatch.WithNamespaces(in...)
	in[0] = "mutated"

	got, _ := failwatch.ApplyOptionsForTesting(opt)
	if got.Namespaces[0] != "kafka" {
		t.Errorf("Namespaces = %v, option aliased its input", got.Namespaces)
	}
}

func TestOptionsPanic(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		fn   func()
		want string
	}{
		"empty log dir":          {fn: func() { failwatch.WithLogDir("") }, want: "log directory must not be empty"},
		"empty namespace":        {fn: func() { failwatch.WithNamespaces("kafka", "") }, want: "namespace must not be empty"},
		"negative max parallel":  {fn: func() { failwatch.WithMaxParallelSuites(-1) }, want: "max parallel suites must not be negative, got -1"},
		"empty timing db":        {fn: func() { failwatch.WithTimingDB("") }, want: "timing database path must not be empty"},
		"empty lock file":        {fn: func() { failwatch.WithCaptureLockFile("") }, want: "capture lock file must not be empty"},
		"negative tail lines":    {fn: func() { failwatch.WithLogTailLines(-5) }, want: "log tail lines must not be negative, got -5"},
		"zero concurrency":       {fn: func() { failwatch.WithCollectConcurrency(0) }, want: "collect concurrency must be greater than 0, got 0"},
		"nil metrics registerer": {fn: func() { failwatch.WithMetricsRegisterer(nil) }, want: "metrics registerer must not be nil"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			requirePanicContains(t, tc.fn, tc.want)
		})
	}
}

func TestFromEnvironment(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		failwatch.EnvLogDir:            "/logs/st",
		failwatch.EnvNamespaces:        " kafka, ,connect ,",
		failwatch.EnvMaxParallelSuites: "5",
		failwatch.EnvTimingDB:          "/logs/timing.db",
		failwatch.EnvCaptureLock:       "/logs/capture.lock",
		failwatch.EnvLogTailLines:      "250",
	}

	got, err := failwatch.ApplyOptionsForTesting(failwatch.EnvOptionForTesting(env))
	if err != nil {
		t.Fatalf("config invalid: %v", err)
	}

	want := failwatch.ConfigSnapshot{
		LogDir:             "/logs/st",
		Namespaces:         []string{"kafka", "connect"},
		MaxParallelSuites:  5,
		TimingDBPath:       "/logs/timing.db",
		CaptureLockFile:    "/logs/capture.lock",
		LogTailLines:       250,
		CollectConcurrency: failwatch.DefaultCollectConcurrency,
	}
	if !equalSnapshots(got, want) {
		t.Errorf("config = %+v, want %+v", got, want)
	}
}

func TestFromEnvironmentUnsetAndOverride(t *testing.T) {
	t.Parallel()

	got, err := failwatch.ApplyOptionsForTesting(
		failwatch.WithLogDir("/explicit"),
		failwatch.EnvOptionForTesting(map[string]string{failwatch.EnvLogDir: ""}),
		failwatch.EnvOptionForTesting(map[string]string{failwatch.EnvMaxParallelSuites: "2"}),
		failwatch.WithMaxParallelSuites(7),
	)
	if err != nil {
		t.Fatalf("config invalid: %v", err)
	}
	if got.LogDir != "/explicit" {
		t.Errorf("LogDir = %q, empty env value must not override", got.LogDir)
	}
	if got.MaxParallelSuites != 7 {
		t.Errorf("MaxParallelSuites = %d, later option must win", got.MaxParallelSuites)
	}
}

func TestFromEnvironmentParseErrors(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		failwatch.EnvMaxParallelSuites: "many",
		failwatch.EnvLogTailLines:      "-3",
	}

	_, err := failwatch.ApplyOptionsForTesting(failwatch.EnvOptionForTesting(env))
	if err == nil {
		t.Fatal("expected validation error")
	}

	var numErr *strconv.NumError
	if !errors.As(err, &numErr) {
		t.Errorf("error %v does not wrap a *strconv.NumError", err)
	}
	for _, want := range []string{
		"parse " + failwatch.EnvMaxParallelSuites,
		"log tail lines must not be negative, got -3",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not contain %q", err, want)
		}
	}
}

func TestFromEnvironmentNegativeMaxParallel(t *testing.T) {
	t.Parallel()

	_, err := failwatch.ApplyOptionsForTesting(
		failwatch.EnvOptionForTesting(map[string]string{failwatch.EnvMaxParallelSuites: "-1"}),
	)
	if err == nil || !strings.Contains(err.Error(), "max parallel suites must not be negative") {
		t.Errorf("error = %v, want negative max parallel suites", err)
	}
}

func equalSnapshots(a, b failwatch.ConfigSnapshot) bool {
	return a.LogDir == b.LogDir &&
		slices.Equal(a.Namespaces, b.Namespaces) &&
		a.MaxParallelSuites == b.MaxParallelSuites &&
		a.TimingDBPath == b.TimingDBPath &&
		a.CaptureLockFile == b.CaptureLockFile &&
		a.LogTailLines == b.LogTailLines &&
		a.CollectConcurrency == b.CollectConcurrency &&
		a.HasRegisterer == b.HasRegisterer
}
