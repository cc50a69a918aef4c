// Package collector gathers diagnostic artifacts from a Kubernetes cluster
// for a failed test: pod manifests and container logs, workload and config
// manifests, namespace events, and every namespaced custom resource whose
// CustomResourceDefinition is installed.
//
// Artifacts land under <outDir>/<class>/<method or "class">/<UTC timestamp>/
// with one sub-directory per namespace. A single failing list or log stream
// is logged and skipped; only failures that leave nothing to collect (the
// target directory, the namespace list) are returned.
package collector
