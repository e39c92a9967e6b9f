package domain

import "errors"

var (
	// ErrBatchNotFound is returned when a batch is not found in the projection
	ErrBatchNotFound = errors.New("batch not found")

	// ErrBatchAlreadyExists is returned when a creation event names a batch
	// id that is already projected
	ErrBatchAlreadyExists = errors.New("batch already exists")

	// ErrInvalidStatusTransition is returned when a status change is outside
	// the allowed edge set
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrInsufficientQuantity is returned when applying an event would drive
	// a batch quantity negative
	ErrInsufficientQuantity = errors.New("insufficient batch quantity")

	// ErrUnknownParent is returned when a split references a parent batch
	// that is not projected
	ErrUnknownParent = errors.New("unknown parent batch")

	// ErrUnknownEvent is returned when a raw log does not decode to any of
	// the known event shapes
	ErrUnknownEvent = errors.New("unknown event")

	// ErrDuplicateEvent is returned when a (tx_hash, log_index) pair is
	// already recorded as processed
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrSyncInProgress is returned when a catch-up pass is already running
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrTraceDepthExceeded is returned when a lineage walk exceeds the depth
	// bound or revisits a batch, indicating malformed parent links
	ErrTraceDepthExceeded = errors.New("trace depth exceeded or cycle detected")

	// ErrTxNotFound is returned when a forced transaction processing request
	// names a transaction unknown to the ledger
	ErrTxNotFound = errors.New("transaction not found")
)

// IsInvariantViolation reports whether an error indicates a projection
// invariant violation (missed prior event or data corruption). Such errors
// are terminal for the event: recorded FAILED, never retried.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrBatchAlreadyExists) ||
		errors.Is(err, ErrInvalidStatusTransition) ||
		errors.Is(err, ErrInsufficientQuantity) ||
		errors.Is(err, ErrUnknownParent) ||
		errors.Is(err, ErrBatchNotFound)
}

// IsTerminalEventError reports whether an event application error must not be
// retried. Everything else is treated as transient and goes through the
// bounded retry pipeline.
func IsTerminalEventError(err error) bool {
	return IsInvariantViolation(err) || errors.Is(err, ErrUnknownEvent)
}
