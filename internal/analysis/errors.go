package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned when neither files nor text are supplied.
	ErrInvalidRequest = errors.New("either files or text must be provided")

	// ErrNoValidInput is returned when classification leaves no analyzable files.
	ErrNoValidInput = errors.New("no valid files found for analysis")

	// ErrSessionBusy is returned when an analysis is already in flight for the session.
	ErrSessionBusy = errors.New("an analysis is already running for this session")

	// ErrEmptyResult is returned when aggregation produced an all-blank artifact.
	ErrEmptyResult = errors.New("analysis produced an empty result")
)

// BatchError records the failure of a single batch. It is non-fatal to the
// session: the coordinator downgrades it to a placeholder in the merged output.
type BatchError struct {
	Batch int
	Total int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d of %d failed: %v", e.Batch, e.Total, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// PersistenceError reports a memory-store write failure after a successful
// merge. It is surfaced distinctly so callers know analysis text was produced
// but consolidation was not durable.
type PersistenceError struct {
	Content string // the merged result that could not be consolidated
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist consolidated memory: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Category names the error class for structured responses.
func Category(err error) string {
	var pe *PersistenceError
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrNoValidInput):
		return "no_valid_input"
	case errors.Is(err, ErrSessionBusy):
		return "session_busy"
	case errors.Is(err, ErrEmptyResult):
		return "empty_result"
	case errors.As(err, &pe):
		return "persistence"
	default:
		return "internal"
	}
}
