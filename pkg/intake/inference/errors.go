package inference

import (
	"errors"
	"fmt"
)

// TransientError marks an upstream failure (timeout, connection error,
// rate limit, empty completion) where retrying the same call may succeed.
// The orchestrator surfaces these to its caller without committing state;
// retry policy belongs to the caller, not the core.
type TransientError struct {
	// Op is the inference capability that failed ("classify_topic",
	// "assess_risk", "generate_question", "generate_summary",
	// "decide_route", "extract_referral").
	Op string
	// Err is the underlying transport or API error.
	Err error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	return fmt.Sprintf("inference %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// MalformedOutputError indicates the service responded but the payload
// failed schema validation. Raw preserves the unparsed text so callers
// with a documented degradation path (summary generation) can use it.
type MalformedOutputError struct {
	Op  string
	Raw string
	Err error
}

// Error implements the error interface.
func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("inference %s: malformed output: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsMalformed reports whether err is (or wraps) a MalformedOutputError.
func IsMalformed(err error) bool {
	var me *MalformedOutputError
	return errors.As(err, &me)
}
