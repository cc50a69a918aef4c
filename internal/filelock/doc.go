// Package filelock serializes work across processes with an exclusive
// advisory lock on a file (flock(2) on Unix, LockFileEx on Windows).
package filelock
