// Package sentinel provides a string-backed error type so failwatch sentinel
// errors can be declared as constants.
//
// A const sentinel cannot be reassigned by importers, and because Error is a
// comparable type errors.Is matches it through any %w wrapping chain.
package sentinel
