package domain

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a brew invocation failed.
type FailureKind int

const (
	// FailureExecution covers everything that is not specifically a prompt
	// or a timeout: spawn failure, non-zero exit, invalid output encoding,
	// I/O errors while waiting on the child.
	FailureExecution FailureKind = iota
	// FailureInputRequested means the child asked for interactive input.
	FailureInputRequested
	// FailureTimeout means the child outlived its wall-clock budget.
	FailureTimeout
)

func (k FailureKind) String() string {
	switch k {
	case FailureInputRequested:
		return "input-requested"
	case FailureTimeout:
		return "timeout"
	default:
		return "execution-failed"
	}
}

// CommandError is the error returned by the command executor.
type CommandError struct {
	Kind    FailureKind
	Message string
}

func (e *CommandError) Error() string {
	switch e.Kind {
	case FailureInputRequested:
		return "command requested interactive input"
	case FailureTimeout:
		return "command exceeded the allowed timeout"
	default:
		return fmt.Sprintf("command execution failed: %s", e.Message)
	}
}

// NewExecutionFailed wraps a failure message into a CommandError.
func NewExecutionFailed(message string) *CommandError {
	return &CommandError{Kind: FailureExecution, Message: message}
}

// NewInputRequested reports that a child solicited human input.
func NewInputRequested() *CommandError {
	return &CommandError{Kind: FailureInputRequested}
}

// NewTimeout reports that a child exceeded its wall-clock budget.
func NewTimeout() *CommandError {
	return &CommandError{Kind: FailureTimeout}
}

// IsExecutionFailed reports whether err is (or wraps) an execution failure.
func IsExecutionFailed(err error) bool {
	return failureKindIs(err, FailureExecution)
}

// IsInputRequested reports whether err is (or wraps) an input request.
func IsInputRequested(err error) bool {
	return failureKindIs(err, FailureInputRequested)
}

// IsTimeout reports whether err is (or wraps) a timeout.
func IsTimeout(err error) bool {
	return failureKindIs(err, FailureTimeout)
}

func failureKindIs(err error, kind FailureKind) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr) && cmdErr.Kind == kind
}
