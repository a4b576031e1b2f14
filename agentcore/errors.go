package agentcore

import (
	"errors"
	"fmt"
)

// ErrorKind tags terminal and recoverable failures surfaced on the event
// stream so front-ends can render them distinctly.
type ErrorKind string

const (
	ErrKindUnknownTool         ErrorKind = "UnknownTool"
	ErrKindToolExecution       ErrorKind = "ToolExecutionFailure"
	ErrKindApprovalTimeout     ErrorKind = "ApprovalTimeout"
	ErrKindApprovalRejected    ErrorKind = "ApprovalRejected"
	ErrKindProviderUnavailable ErrorKind = "ProviderUnavailable"
	ErrKindRateLimited         ErrorKind = "RateLimited"
	ErrKindLoopBudgetExceeded  ErrorKind = "LoopBudgetExceeded"
	ErrKindSessionNotFound     ErrorKind = "SessionNotFound"
	ErrKindChannelOverflow     ErrorKind = "ChannelOverflow"
)

var (
	// ErrSessionNotFound is returned when a session ID is not registered.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed is returned when submitting to a destroyed session.
	ErrSessionClosed = errors.New("session is closed")

	// ErrLoopBudgetExceeded terminates a loop invocation that never
	// produced a final answer within the configured iteration bound.
	ErrLoopBudgetExceeded = errors.New("loop budget exceeded")

	// ErrUnknownApproval is returned by Resolve for a call ID that is
	// unknown or already expired.
	ErrUnknownApproval = errors.New("approval does not exist")

	// ErrAlreadyResolved is returned by Resolve when a decision has
	// already been recorded for the call ID.
	ErrAlreadyResolved = errors.New("approval already resolved")

	// ErrDuplicateApproval is returned by Request when a PendingApproval
	// already exists for the call ID.
	ErrDuplicateApproval = errors.New("approval already pending for call")
)

// ToolExecutionError wraps a tool failure with a machine-readable kind so
// the synthesized tool-result turn can tell the model what went wrong.
type ToolExecutionError struct {
	Kind    string
	Message string
	Cause   error
}

func (e *ToolExecutionError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("tool execution failed (%s): %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("tool execution failed: %s", e.Message)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Cause
}
