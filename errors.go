package autocurator

import (
	"errors"
	"fmt"
)

// Fatal run-level errors. Per-file and per-photo errors are recorded in the
// run's failure list instead and never abort the run.
var (
	// ErrFolderNotFound is returned when the input path does not exist or is
	// not a directory.
	ErrFolderNotFound = errors.New("folder not found")

	// ErrNoImagesFound is returned when the folder contains no file with a
	// supported image extension. Raised before any backend call.
	ErrNoImagesFound = errors.New("no supported image files found")

	// ErrAllEvaluationsFailed is returned when every photo in the run failed
	// evaluation and there is nothing to rank.
	ErrAllEvaluationsFailed = errors.New("every photo failed evaluation")
)

// ParseError reports that a backend response could not be turned into a
// structured evaluation. No guessed score is ever substituted.
type ParseError struct {
	Reason string
	Raw    string // offending response, kept for diagnostics
}

func (e *ParseError) Error() string {
	return "unparseable evaluation: " + e.Reason
}

// BackendError reports a failed backend call (transport error, non-2xx
// status) after the transport layer gave up.
type BackendError struct {
	Backend string
	Status  int // HTTP status when available, 0 otherwise
	Err     error
}

func (e *BackendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend unavailable: %s returned status %d", e.Backend, e.Status)
	}
	return fmt.Sprintf("backend unavailable: %s: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// failureReason condenses an evaluation error into the short reason string
// used in failure summaries.
func failureReason(err error) string {
	var be *BackendError
	if errors.As(err, &be) {
		return "backend unavailable"
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return "unparseable evaluation"
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
