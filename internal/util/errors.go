package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrUnsupported indicates a file format or operation is not supported
	ErrUnsupported = errors.New("unsupported")

	// ErrCorrupt indicates a file is corrupt or unreadable
	ErrCorrupt = errors.New("corrupt file")

	// ErrConflict indicates a destination file conflict
	ErrConflict = errors.New("destination conflict")

	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPermission indicates a permission error
	ErrPermission = errors.New("permission denied")

	// ErrDiskFull indicates insufficient disk space
	ErrDiskFull = errors.New("disk full")

	// ErrConstraint indicates an insert violated a record invariant
	// (non-absolute path, or a type outside {Audio, Video, Image}).
	ErrConstraint = errors.New("constraint violation")

	// ErrSchemaMismatch indicates a read-only store open found an
	// on-disk schema version different from the compiled-in one.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrInvalidOrder indicates a query requested an ordering its
	// operation cannot satisfy (e.g. albums by rank).
	ErrInvalidOrder = errors.New("invalid order for this query")

	// ErrBlacklisted indicates detection refused a known-bad content type.
	ErrBlacklisted = errors.New("blacklisted content type")

	// ErrUnsupportedType indicates detection could not classify a file
	// as audio, video or image.
	ErrUnsupportedType = errors.New("unsupported media type")

	// ErrExtractFailed wraps a structured failure reported by the
	// extraction worker.
	ErrExtractFailed = errors.New("extraction failed")

	// ErrNoReply indicates the extraction worker's reply channel closed
	// mid-call (the worker process died).
	ErrNoReply = errors.New("no reply from extractor worker")

	// ErrBusy indicates the store exhausted its SQL BUSY retry budget.
	ErrBusy = errors.New("store busy")

	// ErrEndOfIteration is the directory scanner's iterator sentinel.
	// Not a failure in the semantic sense.
	ErrEndOfIteration = errors.New("end of iteration")
)
