package failwatch

import (
	"log/slog"

	"github.com/giantswarm/failwatch/internal/logging"
)

// SetLogger replaces the logger used by failwatch and its collectors. The
// logger should already carry any attributes the caller wants; failwatch
// adds only per-call attributes such as class, method and point.
//
// If l is nil, the logger resets to slog.Default() with a
// component=failwatch attribute. Call SetLogger(nil) after slog.SetDefault()
// to pick up the new default.
//
// SetLogger is safe to call concurrently with other failwatch operations.
// For a strict happens-before guarantee, call it in TestMain before m.Run.
func SetLogger(l *slog.Logger) {
	logging.SetLogger(l)
}
