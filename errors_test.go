package failwatch_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/giantswarm/failwatch"
)

func TestIsAborted(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  error
		want bool
	}{
		"nil":            {err: nil, want: false},
		"generic":        {err: errAssertion, want: false},
		"sentinel":       {err: failwatch.ErrAborted, want: true},
		"abort":          {err: failwatch.Abort("needs 3 nodes"), want: true},
		"wrapped abort":  {err: fmt.Errorf("before each: %w", failwatch.Abort("")), want: true},
		"joined":         {err: errors.Join(errAssertion, failwatch.Abort("x")), want: true},
		"same text only": {err: errors.New("test aborted"), want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := failwatch.IsAborted(tc.err); got != tc.want {
				t.Errorf("IsAborted(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestAbortedErrorMessage(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		reason string
		want   string
	}{
		"with reason":    {reason: "feature gate off", want: "test aborted: feature gate off"},
		"without reason": {want: "test aborted"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := failwatch.Abort(tc.reason).Error(); got != tc.want {
				t.Errorf("Error() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCollectionError(t *testing.T) {
	t.Parallel()

	cause := errors.New("etcdserver: request timed out")
	err := error(&failwatch.CollectionError{Scope: failwatch.MethodScope("KafkaST", "testScale"), Err: cause})

	if !errors.Is(err, failwatch.ErrCollection) {
		t.Error("CollectionError does not match ErrCollection")
	}
	if !errors.Is(err, cause) {
		t.Error("CollectionError does not match its cause")
	}
	want := `diagnostic collection failed for scope "KafkaST#testScale": etcdserver: request timed out`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestPanicErrorMessage(t *testing.T) {
	t.Parallel()

	err := &failwatch.PanicError{Value: fmt.Errorf("nil map")}
	if got, want := err.Error(), "panic: nil map"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestLaneSentinelsReexported(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	if err := h.EnterParallel(t.Context(), ""); !errors.Is(err, failwatch.ErrEmptySuite) {
		t.Errorf("EnterParallel(\"\") = %v, want ErrEmptySuite", err)
	}
	if err := h.EnterParallel(t.Context(), "KafkaST"); err != nil {
		t.Fatalf("EnterParallel() = %v", err)
	}
	if err := h.EnterParallel(t.Context(), "KafkaST"); !errors.Is(err, failwatch.ErrAlreadyRegistered) {
		t.Errorf("second EnterParallel() = %v, want ErrAlreadyRegistered", err)
	}
}
