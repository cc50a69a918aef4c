package collector

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/giantswarm/failwatch/internal/fileutil"
)

// manifest is a typed API object that can carry its own GVK.
type manifest[T any] interface {
	*T
	metav1.Object
	runtime.Object
}

// collectNamespace writes every artifact for one namespace into dir.
func (c *Collector) collectNamespace(ctx context.Context, dir, ns string, gvrs []schema.GroupVersionResource) {
	log := c.log.With("namespace", ns)

	if pods, err := c.client.CoreV1().Pods(ns).List(ctx, metav1.ListOptions{}); err != nil {
		log.Debug("pods skipped", "error", err)
	} else {
		writeManifests(c, filepath.Join(dir, "pods"), corev1.SchemeGroupVersion.WithKind("Pod"), pods.Items)
		for idx := range pods.Items {
			c.collectPodLogs(ctx, filepath.Join(dir, "logs"), &pods.Items[idx])
		}
	}

	if list, err := c.client.AppsV1().Deployments(ns).List(ctx, metav1.ListOptions{}); err != nil {
		log.Debug("deployments skipped", "error", err)
	} else {
		writeManifests(c, filepath.Join(dir, "deployments"), appsv1.SchemeGroupVersion.WithKind("Deployment"), list.Items)
	}

	if list, err := c.client.AppsV1().StatefulSets(ns).List(ctx, metav1.ListOptions{}); err != nil {
		log.Debug("statefulsets skipped", "error", err)
	} else {
		writeManifests(c, filepath.Join(dir, "statefulsets"), appsv1.SchemeGroupVersion.WithKind("StatefulSet"), list.Items)
	}

	if list, err := c.client.CoreV1().ConfigMaps(ns).List(ctx, metav1.ListOptions{}); err != nil {
		log.Debug("configmaps skipped", "error", err)
	} else {
		writeManifests(c, filepath.Join(dir, "configmaps"), corev1.SchemeGroupVersion.WithKind("ConfigMap"), list.Items)
	}

	if list, err := c.client.CoreV1().Services(ns).List(ctx, metav1.ListOptions{}); err != nil {
		log.Debug("services skipped", "error", err)
	} else {
		writeManifests(c, filepath.Join(dir, "services"), corev1.SchemeGroupVersion.WithKind("Service"), list.Items)
	}

	if list, err := c.client.CoreV1().Events(ns).List(ctx, metav1.ListOptions{}); err != nil {
		log.Debug("events skipped", "error", err)
	} else if err := fileutil.WriteFile(filepath.Join(dir, "events.log"), []byte(formatEvents(list.Items))); err != nil {
		log.Debug("events not written", "error", err)
	}

	for _, gvr := range gvrs {
		c.collectCustomResources(ctx, filepath.Join(dir, "custom"), ns, gvr)
	}
}

// writeManifests writes each item as <dir>/<name>.yaml with its apiVersion
// and kind set, so the file can be re-applied.
func writeManifests[T any, PT manifest[T]](c *Collector, dir string, gvk schema.GroupVersionKind, items []T) {
	for idx := range items {
		obj := PT(&items[idx])
		obj.GetObjectKind().SetGroupVersionKind(gvk)
		path := filepath.Join(dir, fileutil.SafeName(obj.GetName())+".yaml")
		if err := writeYAML(path, obj); err != nil {
			c.log.Debug("manifest not written", "kind", gvk.Kind, "name", obj.GetName(), "error", err)
		}
	}
}

// collectPodLogs streams the log of every init and regular container. For a
// container that has restarted, the previous instance's log is saved too.
func (c *Collector) collectPodLogs(ctx context.Context, dir string, pod *corev1.Pod) {
	restarts := make(map[string]int32, len(pod.Status.ContainerStatuses)+len(pod.Status.InitContainerStatuses))
	for _, st := range pod.Status.InitContainerStatuses {
		restarts[st.Name] = st.RestartCount
	}
	for _, st := range pod.Status.ContainerStatuses {
		restarts[st.Name] = st.RestartCount
	}

	containers := make([]string, 0, len(pod.Spec.InitContainers)+len(pod.Spec.Containers))
	for _, ct := range pod.Spec.InitContainers {
		containers = append(containers, ct.Name)
	}
	for _, ct := range pod.Spec.Containers {
		containers = append(containers, ct.Name)
	}

	for _, name := range containers {
		base := fileutil.SafeName(pod.Name + "-" + name)
		c.streamLog(ctx, filepath.Join(dir, base+".log"), pod, name, false)
		if restarts[name] > 0 {
			c.streamLog(ctx, filepath.Join(dir, base+".previous.log"), pod, name, true)
		}
	}
}

func (c *Collector) streamLog(ctx context.Context, path string, pod *corev1.Pod, container string, previous bool) {
	opts := &corev1.PodLogOptions{Container: container, Previous: previous}
	if c.opts.TailLines > 0 {
		tail := c.opts.TailLines
		opts.TailLines = &tail
	}

	stream, err := c.client.CoreV1().Pods(pod.Namespace).GetLogs(pod.Name, opts).Stream(ctx)
	if err != nil {
		c.log.Debug("container log skipped", "pod", pod.Name, "container", container, "previous", previous, "error", err)
		return
	}
	defer stream.Close() //nolint:errcheck // read side; nothing to flush

	if err := fileutil.WriteFrom(path, stream); err != nil {
		c.log.Debug("container log not written", "pod", pod.Name, "container", container, "error", err)
	}
}

// eventTime picks the most meaningful timestamp of an event.
func eventTime(e *corev1.Event) time.Time {
	switch {
	case !e.LastTimestamp.IsZero():
		return e.LastTimestamp.Time
	case !e.EventTime.IsZero():
		return e.EventTime.Time
	default:
		return e.CreationTimestamp.Time
	}
}

// formatEvents renders events one per line, oldest first.
func formatEvents(events []corev1.Event) string {
	sorted := make([]*corev1.Event, len(events))
	for idx := range events {
		sorted[idx] = &events[idx]
	}
	slices.SortStableFunc(sorted, func(a, b *corev1.Event) int {
		return eventTime(a).Compare(eventTime(b))
	})

	var b strings.Builder
	for _, e := range sorted {
		fmt.Fprintf(&b, "%s %s %s %s/%s: %s\n",
			eventTime(e).UTC().Format(time.RFC3339),
			e.Type,
			e.Reason,
			strings.ToLower(e.InvolvedObject.Kind),
			e.InvolvedObject.Name,
			strings.TrimSpace(e.Message),
		)
	}
	return b.String()
}

// collectCustomResources writes every object of gvr in ns as
// <dir>/<resource>.<group>/<name>.yaml.
func (c *Collector) collectCustomResources(ctx context.Context, dir, ns string, gvr schema.GroupVersionResource) {
	list, err := c.dynamic.Resource(gvr).Namespace(ns).List(ctx, metav1.ListOptions{})
	if err != nil {
		c.log.Debug("custom resources skipped", "gvr", gvr.String(), "namespace", ns, "error", err)
		return
	}
	if len(list.Items) == 0 {
		return
	}

	typeDir := filepath.Join(dir, fileutil.SafeName(gvr.GroupResource().String()))
	for idx := range list.Items {
		item := &list.Items[idx]
		path := filepath.Join(typeDir, fileutil.SafeName(item.GetName())+".yaml")
		if err := writeYAML(path, item.Object); err != nil {
			c.log.Debug("custom resource not written", "gvr", gvr.String(), "name", item.GetName(), "error", err)
		}
	}
}
