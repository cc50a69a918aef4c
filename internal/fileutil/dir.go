package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates a directory and all parent directories if they don't exist.
// Uses mode 0755. Returns nil if directory already exists.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// EnsureDirForFile creates the parent directory of filePath if it does not
// already exist.
func EnsureDirForFile(filePath string) error {
	if err := EnsureDir(filepath.Dir(filePath)); err != nil {
		return fmt.Errorf("ensure dir for %s: %w", filePath, err)
	}
	return nil
}

// SafeName turns an arbitrary identifier (a test name with slashes, a pod
// name, a GVR string) into a single path segment. Path separators and other
// characters that are awkward on common filesystems become '_'. An empty or
// dot-only result is replaced with "_".
func SafeName(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ', '\t', '\n':
			return '_'
		}
		return r
	}, s)
	if strings.Trim(mapped, ".") == "" {
		return "_"
	}
	return mapped
}
