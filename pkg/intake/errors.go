package intake

import (
	"errors"
	"fmt"
)

// Sentinel errors for turn submission.
var (
	// ErrNilContext indicates SubmitTurn was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrConversationIDRequired indicates an empty conversation ID.
	ErrConversationIDRequired = errors.New("conversation ID required")

	// ErrUnknownConversation indicates a non-empty message arrived for a
	// conversation that has no checkpoint. New conversations start with
	// an empty opening turn; a patient message can only continue one.
	ErrUnknownConversation = errors.New("unknown conversation")

	// ErrQuestionRepeated indicates the generator produced the same
	// question twice in a row even after being told to avoid it.
	ErrQuestionRepeated = errors.New("question generator repeated itself")

	// ErrNoReplyToRedeliver indicates an empty message arrived for an
	// existing conversation that has no completed reply to re-fetch,
	// such as one holding an interrupted turn for a different message.
	ErrNoReplyToRedeliver = errors.New("no completed reply to redeliver")
)

// TerminalConversationError rejects a turn submitted to a conversation
// that has already terminated.
type TerminalConversationError struct {
	// Reason is why the conversation terminated.
	Reason TerminateReason
}

// Error implements the error interface.
func (e *TerminalConversationError) Error() string {
	return fmt.Sprintf("conversation terminated: %s", e.Reason)
}

// StageError wraps an error with stage context.
type StageError struct {
	// Stage is the stage that failed.
	Stage Stage
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StageError) Unwrap() error {
	return e.Err
}

// CheckpointError wraps errors from checkpoint commits. Commits are
// load-bearing: a stage whose checkpoint fails is treated as never
// having run, so these are always fatal to the turn.
type CheckpointError struct {
	// Stage is the stage whose result failed to commit.
	Stage Stage
	// Op is the operation that failed ("serialize", "marshal", "save").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s after stage %s: %v", e.Op, e.Stage, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CheckpointError) Unwrap() error {
	return e.Err
}

// CancellationError captures the point where a turn was cancelled.
type CancellationError struct {
	// Stage is the stage that was about to execute.
	Stage Stage
	// Cause is context.Canceled or context.DeadlineExceeded.
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled before stage %s: %v", e.Stage, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}
