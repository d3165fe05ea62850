package crawler

import (
	"errors"
	"fmt"
)

// ErrSinkWrite wraps a failed append; the crawl cannot continue without
// risking a gap in the output.
var ErrSinkWrite = errors.New("sink write failed")

// Reason classifies a per-candidate failure.
type Reason int

const (
	ActivationFailed Reason = iota + 1
	DetailNotLoaded
	EvaluationError
)

func (r Reason) String() string {
	switch r {
	case ActivationFailed:
		return "activation_failed"
	case DetailNotLoaded:
		return "detail_not_loaded"
	case EvaluationError:
		return "evaluation_error"
	}
	return "unknown"
}

// ExtractionError reports a candidate that could not be extracted. It is
// never fatal to the crawl.
type ExtractionError struct {
	Reason Reason
	Index  int
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("candidate %d: %s: %v", e.Index, e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
