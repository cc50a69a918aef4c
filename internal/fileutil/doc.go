// Package fileutil writes capture artifacts to disk.
//
// Artifacts are written through a temp file in the destination directory and
// renamed into place, so a reader of the log directory (a CI artifact
// uploader, a second test binary) never sees a half-written manifest or log.
package fileutil
