package sentinel

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  Error
		want string
	}{
		"aborted":     {err: Error("test aborted"), want: "test aborted"},
		"empty":       {err: Error(""), want: ""},
		"punctuation": {err: Error("log collection failed: io"), want: "log collection failed: io"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := tc.err.Error(); got != tc.want {
				t.Errorf("Error() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestErrorMatching(t *testing.T) {
	t.Parallel()

	const aborted = Error("test aborted")

	tests := map[string]struct {
		err    error
		target error
		want   bool
	}{
		"self":                 {err: aborted, target: aborted, want: true},
		"wrapped":              {err: fmt.Errorf("before each: %w", aborted), target: aborted, want: true},
		"joined":               {err: errors.Join(errors.New("x"), aborted), target: aborted, want: true},
		"different sentinel":   {err: aborted, target: Error("collection failed"), want: false},
		"same text errors.New": {err: aborted, target: errors.New("test aborted"), want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := errors.Is(tc.err, tc.target); got != tc.want {
				t.Errorf("errors.Is() = %v, want %v", got, tc.want)
			}
		})
	}
}
