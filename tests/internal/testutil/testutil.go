//go:build integration

// Package testutil provides shared helpers for integration test packages.
package testutil

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	v1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/giantswarm/failwatch"
)

// nameCounter is an atomic counter used by UniqueName to generate resource
// names that are unique across parallel test goroutines.
var nameCounter atomic.Int64

// UniqueName returns a resource name that is unique across all parallel tests.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, os.Getpid(), nameCounter.Add(1))
}

// TestParallel returns the effective -test.parallel value for the current test
// binary, falling back to GOMAXPROCS like the testing package does.
func TestParallel() int {
	f := flag.Lookup("test.parallel")
	if f == nil {
		return runtime.GOMAXPROCS(0)
	}
	n, err := strconv.Atoi(f.Value.String())
	if err != nil || n < 1 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// SetupTestLogging configures slog based on the FAILWATCH_LOG_LEVEL environment
// variable. This only affects test runs.
func SetupTestLogging() {
	levelStr := os.Getenv("FAILWATCH_LOG_LEVEL")
	if levelStr == "" {
		levelStr = "INFO"
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	failwatch.SetLogger(slog.Default().With("component", "failwatch"))
}

// RestConfigOrExit loads the cluster config from KUBECONFIG (or the default
// loading rules). When no cluster is configured the test binary exits 0 with
// a note, since integration tests need a live API server.
func RestConfigOrExit() *rest.Config {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "no cluster configured, skipping integration tests: %v\n", err)
		os.Exit(0)
	}
	return cfg
}

// CreateNamespace creates a namespace with the given name.
func CreateNamespace(ctx context.Context, client kubernetes.Interface, name string) error {
	ns := &v1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	if _, err := client.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("create namespace %s: %w", name, err)
	}
	return nil
}

// DeleteNamespace deletes a namespace, ignoring NotFound.
func DeleteNamespace(ctx context.Context, client kubernetes.Interface, name string) error {
	err := client.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete namespace %s: %w", name, err)
	}
	return nil
}

// CreateConfigMap creates a ConfigMap and fails the test on error.
func CreateConfigMap(ctx context.Context, t *testing.T, client kubernetes.Interface, ns, name string, data map[string]string) {
	t.Helper()

	cm := &v1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: ns},
		Data:       data,
	}
	if _, err := client.CoreV1().ConfigMaps(ns).Create(ctx, cm, metav1.CreateOptions{}); err != nil {
		t.Fatalf("create configmap %s/%s: %v", ns, name, err)
	}
}

// CaptureDirs returns every capture directory under root, identified by its
// capture.yaml summary.
func CaptureDirs(t *testing.T, root string) []string {
	t.Helper()

	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == "capture.yaml" {
			dirs = append(dirs, filepath.Dir(path))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", root, err)
	}
	return dirs
}

// Env is the shared state TestMain builds for a test package.
type Env struct {
	Harness   *failwatch.Harness
	Client    kubernetes.Interface
	Namespace string
	LogDir    string
}

// SetupAndRun handles the standard TestMain boilerplate: flag parsing, logging
// setup, cluster config loading, a scratch namespace, harness creation and
// cleanup. The created Env is assigned to *env. This function calls os.Exit
// and never returns.
func SetupAndRun(m *testing.M, env *Env, prefix string, opts ...failwatch.Option) {
	flag.Parse()
	SetupTestLogging()
	restCfg := RestConfigOrExit()

	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create kubernetes client: %v\n", err)
		os.Exit(1)
	}

	tmpDir, err := os.MkdirTemp("", prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	ns := UniqueName("failwatch-it")
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := CreateNamespace(ctx, client, ns); err != nil {
		fmt.Fprintln(os.Stderr, err)
		_ = os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	baseOpts := []failwatch.Option{
		failwatch.WithLogDir(tmpDir),
		failwatch.WithNamespaces(ns),
		failwatch.WithLogTailLines(200),
	}
	h, err := failwatch.New(ctx, restCfg, append(baseOpts, opts...)...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create harness: %v\n", err)
		_ = DeleteNamespace(ctx, client, ns)
		_ = os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	*env = Env{Harness: h, Client: client, Namespace: ns, LogDir: tmpDir}

	os.Exit(runTestMain(m, env, tmpDir))
}

// runTestMain sets up signal handling for graceful shutdown, runs all tests,
// then removes the scratch namespace and temp dir. Returns the exit code.
func runTestMain(m *testing.M, env *Env, tmpDir string) int {
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := DeleteNamespace(ctx, env.Client, env.Namespace); err != nil {
			fmt.Fprintf(os.Stderr, "cleanup: %v\n", err)
		}
		if err := env.Harness.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close harness: %v\n", err)
		}
		_ = os.RemoveAll(tmpDir)
	}

	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			signal.Stop(sigCh) // Restore default handler so a second signal force-kills
			fmt.Fprintf(os.Stderr, "\nReceived %s, shutting down...\n", sig)
			cleanup()
			os.Exit(1)
		case <-done:
			return
		}
	}()

	code := m.Run()

	signal.Stop(sigCh)
	close(done)
	cleanup()

	return code
}
