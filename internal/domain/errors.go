package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Workers classify
// failures with errors.Is against these.

var (
	// Slot-level: the endpoint behind a worker slot cannot be reached.
	// Marks the slot Unhealthy and re-enqueues its in-flight task.
	ErrEndpointUnreachable = errors.New("automation endpoint unreachable")

	// Step-level, retryable.
	ErrActionTimeout = errors.New("action timed out")
	ErrActionFailed  = errors.New("action failed")

	// Task definition is malformed — skipped without consuming a worker cycle.
	ErrTaskInvalid = errors.New("invalid task definition")

	// Commit-level: the trajectory could not be written to the dataset.
	ErrDiskWriteFailure = errors.New("trajectory write failed")

	// Fatal: no healthy worker slots remain — collection cannot proceed.
	ErrPoolExhausted = errors.New("no healthy worker slots available")

	// Queue drained (or shutdown requested) — workers terminate.
	ErrEndOfWork = errors.New("no more tasks")
)
