package filelock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"github.com/giantswarm/failwatch/internal/fileutil"
)

// retryInterval is the interval between consecutive attempts to take the
// lock. 50ms keeps the wait after the holder releases short without
// busy-polling.
const retryInterval = 50 * time.Millisecond

// Acquire takes an exclusive lock on path, creating the file and its parent
// directory if needed. It retries until the lock is held or ctx is done.
func Acquire(ctx context.Context, path string) (*flock.Flock, error) {
	if err := fileutil.EnsureDirForFile(path); err != nil {
		return nil, fmt.Errorf("prepare lock file %s: %w", path, err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLockContext(ctx, retryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquiring file lock %s: %w", path, err)
	}
	if !locked {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquiring file lock %s: %w", path, ctx.Err())
		}
		return nil, fmt.Errorf("acquiring file lock %s: lock not acquired", path)
	}
	return fl, nil
}

// Release unlocks and closes fl. The lock file stays on disk: removing it
// could invalidate a lock another process takes concurrently. Errors are
// logged at debug level only.
func Release(logger *slog.Logger, fl *flock.Flock) {
	if fl == nil {
		return
	}
	if err := fl.Close(); err != nil {
		logger.Debug("failed to release file lock", "path", fl.Path(), "err", err)
	}
}
