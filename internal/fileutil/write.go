package fileutil

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/giantswarm/failwatch/internal/sentinel"
)

// ErrEmptyPath is returned when a destination path is empty.
const ErrEmptyPath = sentinel.Error("destination path must not be empty")

// WriteFile atomically writes data to path with mode 0644, creating parent
// directories as needed.
func WriteFile(path string, data []byte) error {
	return WriteFrom(path, bytes.NewReader(data))
}

// WriteFrom atomically writes everything read from r to path. The data goes
// to a temp file in the same directory, is fsynced, then renamed to path. On
// any error the temp file is removed and path is left untouched.
func WriteFrom(path string, r io.Reader) (retErr error) {
	if path == "" {
		return ErrEmptyPath
	}
	if err := EnsureDirForFile(path); err != nil {
		return fmt.Errorf("prepare destination: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-artifact-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if retErr != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file to destination: %w", err)
	}
	return nil
}
