package failwatch

import (
	"errors"
	"fmt"

	"github.com/giantswarm/failwatch/internal/lanes"
	"github.com/giantswarm/failwatch/internal/sentinel"
)

// Sentinel errors for inspection with errors.Is.
const (
	// ErrAborted marks a failure that means "the test skipped itself".
	// Capture is suppressed for it at TestBody, BeforeAll and BeforeEach.
	ErrAborted = sentinel.Error("test aborted")

	// ErrCollection is matched by every error returned from Gate.Collect when
	// the log collector (or the capture lock) failed.
	ErrCollection = sentinel.Error("diagnostic collection failed")

	// ErrInvalidScope is returned when a Scope has an empty test class.
	ErrInvalidScope = sentinel.Error("collector scope requires a test class")

	// ErrTestFailed is the failure Guard reports for a testing.TB that failed
	// without an error value of its own.
	ErrTestFailed = sentinel.Error("test failed")

	// ErrAlreadyRegistered is returned when a suite enters a lane while it
	// already occupies one.
	ErrAlreadyRegistered = lanes.ErrAlreadyRegistered

	// ErrEmptySuite is returned when a suite name is empty.
	ErrEmptySuite = lanes.ErrEmptySuite
)

// AbortedError is a failure that signals a voluntarily skipped test.
type AbortedError struct {
	Reason string
}

// Abort returns an *AbortedError with the given reason.
func Abort(reason string) error {
	return &AbortedError{Reason: reason}
}

func (e *AbortedError) Error() string {
	if e.Reason == "" {
		return string(ErrAborted)
	}
	return string(ErrAborted) + ": " + e.Reason
}

// Is makes every *AbortedError match ErrAborted.
func (e *AbortedError) Is(target error) bool {
	return target == ErrAborted
}

// IsAborted reports whether err is, or wraps, an aborted-test signal.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}

// CollectionError reports that capturing diagnostics for Scope failed. It is a
// secondary failure: it never replaces the test failure that triggered the
// capture.
type CollectionError struct {
	Scope Scope
	Err   error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("%s for %s: %v", ErrCollection, e.Scope, e.Err)
}

// Unwrap exposes both ErrCollection and the underlying cause.
func (e *CollectionError) Unwrap() []error {
	return []error{ErrCollection, e.Err}
}

// PanicError carries a value recovered from a panicking hook run by
// Watcher.Run. The panic itself is re-raised after capture.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
