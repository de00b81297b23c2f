package etl

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a failed sync. Kinds are strings so they log and
// serialize readably.
type ErrorKind string

const (
	// KindStore covers any count, fetch, insert or commit failure. Fatal, never retried.
	KindStore ErrorKind = "STORE_ERROR"

	// KindCanceled means the run context was canceled or timed out.
	KindCanceled ErrorKind = "CANCELED"

	// KindConnect means a store could not be reached or opened.
	KindConnect ErrorKind = "CONNECT_ERROR"

	// KindConfig means the sync was misconfigured.
	KindConfig ErrorKind = "INVALID_CONFIGURATION"

	// KindBusy means a run was already in progress.
	KindBusy ErrorKind = "ALREADY_RUNNING"
)

// Operations a SyncError can be attributed to.
const (
	OpCountSource      = "count source"
	OpCountDestination = "count destination"
	OpFetch            = "fetch batch"
	OpBegin            = "begin transaction"
	OpInsert           = "insert batch"
	OpCommit           = "commit batch"
	OpConnect          = "connect"
	OpResolveSecret    = "resolve secret"
)

// SyncError is the error half of a run's result. Offset is the resume point
// at the time of failure: every record before it is committed.
type SyncError struct {
	Kind   ErrorKind
	Op     string
	Offset int64
	Batch  int
	Err    error
}

func (e *SyncError) Error() string {
	if e.Batch > 0 {
		return fmt.Sprintf("%s (batch %d, offset %d): %v", e.Op, e.Batch, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// newSyncError classifies err; context errors become KindCanceled.
func newSyncError(kind ErrorKind, op string, offset int64, batch int, err error) *SyncError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = KindCanceled
	}
	return &SyncError{Kind: kind, Op: op, Offset: offset, Batch: batch, Err: err}
}

// NewError wraps err as a SyncError outside the copy loop (connect, config).
func NewError(kind ErrorKind, op string, err error) error {
	return newSyncError(kind, op, 0, 0, err)
}

// IsKind reports whether err is a SyncError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *SyncError
	return errors.As(err, &se) && se.Kind == kind
}

// KindOf returns the kind of err, or "" when err is not a SyncError.
func KindOf(err error) ErrorKind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
