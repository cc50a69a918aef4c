// Package logging holds the package-level slog logger shared by failwatch and
// its internal packages.
package logging
