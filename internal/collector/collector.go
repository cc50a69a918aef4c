package collector

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextensionsclient "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/yaml"

	"github.com/giantswarm/failwatch/internal/fileutil"
	"github.com/giantswarm/failwatch/internal/logging"
)

// classScopeDir is the directory used in place of a method name for
// class-scoped captures (before-all / after-all failures).
const classScopeDir = "class"

// timestampLayout names capture directories. It sorts lexically and contains
// no characters that need escaping on common filesystems.
const timestampLayout = "20060102-150405.000000000"

// systemNamespaces are skipped when no explicit namespace list is configured.
var systemNamespaces = map[string]struct{}{
	"default":         {},
	"kube-system":     {},
	"kube-public":     {},
	"kube-node-lease": {},
}

// Options configures a Collector.
type Options struct {
	// Namespaces to collect from. Empty means every non-system namespace.
	Namespaces []string
	// TailLines limits each container log to its last N lines. 0 means the
	// whole log.
	TailLines int64
	// Concurrency bounds how many namespaces are collected at once.
	// Values < 1 mean 1.
	Concurrency int
}

// Collector gathers artifacts through client-go clients.
type Collector struct {
	client  kubernetes.Interface
	dynamic dynamic.Interface
	ext     apiextensionsclient.Interface
	opts    Options
	now     func() time.Time
	log     *slog.Logger
}

// New returns a Collector. dyn and ext may be nil, in which case custom
// resources are not collected.
//
// Panics if client is nil.
func New(client kubernetes.Interface, dyn dynamic.Interface, ext apiextensionsclient.Interface, opts Options) *Collector {
	if client == nil {
		panic("failwatch: collector kubernetes client must not be nil")
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	opts.Namespaces = slices.Clone(opts.Namespaces)
	return &Collector{
		client:  client,
		dynamic: dyn,
		ext:     ext,
		opts:    opts,
		now:     time.Now,
		log:     logging.Logger().With("subsystem", "collector"),
	}
}

// NewForConfig builds the typed, dynamic and apiextensions clients from cfg.
func NewForConfig(cfg *rest.Config, opts Options) (*Collector, error) {
	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create kubernetes client: %w", err)
	}
	dyn, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create dynamic client: %w", err)
	}
	ext, err := apiextensionsclient.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create apiextensions client: %w", err)
	}
	return New(client, dyn, ext, opts), nil
}

// TargetDir returns the directory a capture for (class, method) taken at
// time at is written to.
func TargetDir(outDir, class, method string, at time.Time) string {
	methodDir := classScopeDir
	if method != "" {
		methodDir = fileutil.SafeName(method)
	}
	return filepath.Join(outDir, fileutil.SafeName(class), methodDir, at.UTC().Format(timestampLayout))
}

// summary is written as capture.yaml at the root of every capture.
type summary struct {
	TestClass       string    `json:"testClass"`
	TestMethod      string    `json:"testMethod,omitempty"`
	CapturedAt      time.Time `json:"capturedAt"`
	Namespaces      []string  `json:"namespaces"`
	CustomResources []string  `json:"customResources,omitempty"`
}

// Collect gathers artifacts for (class, method) into a fresh directory under
// outDir and returns that directory.
func (c *Collector) Collect(ctx context.Context, class, method, outDir string) (string, error) {
	capturedAt := c.now()
	dir := TargetDir(outDir, class, method, capturedAt)
	if err := fileutil.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("prepare capture directory: %w", err)
	}

	namespaces, err := c.targetNamespaces(ctx)
	if err != nil {
		return dir, err
	}
	gvrs := c.customResourceTypes(ctx)

	sum := summary{TestClass: class, TestMethod: method, CapturedAt: capturedAt.UTC(), Namespaces: namespaces}
	for _, gvr := range gvrs {
		sum.CustomResources = append(sum.CustomResources, gvr.String())
	}
	if err := writeYAML(filepath.Join(dir, "capture.yaml"), sum); err != nil {
		c.log.Debug("capture summary not written", "dir", dir, "error", err)
	}

	c.log.Debug("collecting diagnostics", "class", class, "method", method, "namespaces", len(namespaces), "custom_resource_types", len(gvrs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for _, ns := range namespaces {
		g.Go(func() error {
			c.collectNamespace(gCtx, filepath.Join(dir, fileutil.SafeName(ns)), ns, gvrs)
			return nil
		})
	}
	// collectNamespace never fails; per-item errors are logged.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return dir, fmt.Errorf("collect diagnostics: %w", err)
	}
	return dir, nil
}

// targetNamespaces returns the configured namespaces, or every non-system
// namespace in the cluster when none are configured.
func (c *Collector) targetNamespaces(ctx context.Context) ([]string, error) {
	if len(c.opts.Namespaces) > 0 {
		return slices.Clone(c.opts.Namespaces), nil
	}

	list, err := c.client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	var out []string
	for idx := range list.Items {
		name := list.Items[idx].Name
		if _, ok := systemNamespaces[name]; !ok {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out, nil
}

// customResourceTypes discovers namespaced custom resources at their storage
// version. Discovery failures disable custom-resource collection for this
// capture rather than failing it.
func (c *Collector) customResourceTypes(ctx context.Context) []schema.GroupVersionResource {
	if c.ext == nil || c.dynamic == nil {
		return nil
	}

	crds, err := c.ext.ApiextensionsV1().CustomResourceDefinitions().List(ctx, metav1.ListOptions{})
	if err != nil {
		c.log.Debug("custom resource discovery skipped", "error", err)
		return nil
	}

	var gvrs []schema.GroupVersionResource
	for idx := range crds.Items {
		crd := &crds.Items[idx]
		if crd.Spec.Scope != apiextensionsv1.NamespaceScoped {
			continue
		}
		for _, v := range crd.Spec.Versions {
			if v.Storage {
				gvrs = append(gvrs, schema.GroupVersionResource{
					Group:    crd.Spec.Group,
					Version:  v.Name,
					Resource: crd.Spec.Names.Plural,
				})
				break
			}
		}
	}
	slices.SortFunc(gvrs, func(a, b schema.GroupVersionResource) int {
		return cmp.Compare(a.String(), b.String())
	})
	return gvrs
}

// writeYAML renders v as YAML and writes it atomically to path.
func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return fileutil.WriteFile(path, data)
}
