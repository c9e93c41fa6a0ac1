package workflow

import (
	"errors"
	"fmt"
)

// ErrorType classifies a workflow error.
type ErrorType string

const (
	// Structural errors, raised before any agent is invoked.
	ErrorTypeUnknownTaskType  ErrorType = "unknown_task_type"
	ErrorTypeAgentNotFound    ErrorType = "agent_not_found"
	ErrorTypeAgentUnavailable ErrorType = "agent_unavailable"
	ErrorTypeMissingParameter ErrorType = "missing_parameter"
	ErrorTypeOutOfOrder       ErrorType = "out_of_order"
	ErrorTypeDuplicateAgent   ErrorType = "duplicate_registration"
	ErrorTypeInvalidAgent     ErrorType = "invalid_agent"
	ErrorTypeNoData           ErrorType = "no_data_available"
	ErrorTypeDataMismatch     ErrorType = "type_mismatch"

	// Agent-reported and runtime errors.
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeCancellation ErrorType = "cancellation"
	ErrorTypeInvalidState ErrorType = "invalid_state"
)

// Error is the engine's error type. Structural errors abort routing
// before an agent runs; execution errors carry the failing task and
// agent for the caller.
type Error struct {
	Type      ErrorType      `json:"type"`
	Task      string         `json:"task,omitempty"`
	Agent     string         `json:"agent,omitempty"`
	Message   string         `json:"message"`
	Cause     error          `json:"-"`
	Context   map[string]any `json:"context,omitempty"`
	Retryable bool           `json:"retryable"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "unknown workflow error"
	}
	switch {
	case e.Task != "" && e.Agent != "":
		return fmt.Sprintf("[%s] task %s (agent %s): %s", e.Type, e.Task, e.Agent, e.Message)
	case e.Task != "":
		return fmt.Sprintf("[%s] task %s: %s", e.Type, e.Task, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Structural indicates the error was raised before any agent ran.
func (e *Error) Structural() bool {
	switch e.Type {
	case ErrorTypeUnknownTaskType, ErrorTypeAgentNotFound, ErrorTypeAgentUnavailable,
		ErrorTypeMissingParameter, ErrorTypeOutOfOrder, ErrorTypeDuplicateAgent,
		ErrorTypeInvalidAgent, ErrorTypeNoData, ErrorTypeDataMismatch:
		return true
	}
	return false
}

// NewUnknownTaskTypeError reports a task type outside the closed set.
func NewUnknownTaskTypeError(taskType string) *Error {
	return &Error{
		Type:    ErrorTypeUnknownTaskType,
		Message: fmt.Sprintf("unknown task type %q", taskType),
		Context: map[string]any{"task_type": taskType},
	}
}

// NewAgentNotFoundError reports a lookup of an unregistered agent name.
func NewAgentNotFoundError(name string) *Error {
	return &Error{
		Type:    ErrorTypeAgentNotFound,
		Agent:   name,
		Message: fmt.Sprintf("agent %q not registered", name),
	}
}

// NewAgentUnavailableError reports that a routed task's target agent is
// not registered.
func NewAgentUnavailableError(task string, agent string) *Error {
	return &Error{
		Type:    ErrorTypeAgentUnavailable,
		Task:    task,
		Agent:   agent,
		Message: fmt.Sprintf("no agent registered as %q", agent),
	}
}

// NewMissingParameterError reports an absent required parameter.
func NewMissingParameterError(task, param string) *Error {
	return &Error{
		Type:    ErrorTypeMissingParameter,
		Task:    task,
		Message: fmt.Sprintf("required parameter %q missing", param),
		Context: map[string]any{"parameter": param},
	}
}

// NewOutOfOrderError reports a workflow whose tasks violate the
// canonical pipeline stage ordering.
func NewOutOfOrderError(earlier, later TaskType) *Error {
	return &Error{
		Type:    ErrorTypeOutOfOrder,
		Message: fmt.Sprintf("task type %q cannot precede %q", earlier, later),
		Context: map[string]any{"found": string(earlier), "expected_before": string(later)},
	}
}

// NewDuplicateAgentError reports a second registration under a taken name.
func NewDuplicateAgentError(name string) *Error {
	return &Error{
		Type:    ErrorTypeDuplicateAgent,
		Agent:   name,
		Message: fmt.Sprintf("agent %q already registered", name),
	}
}

// NewInvalidAgentError reports an agent that lacks the required surface.
func NewInvalidAgentError(message string) *Error {
	return &Error{
		Type:    ErrorTypeInvalidAgent,
		Message: message,
	}
}

// NewNoDataError reports that no input dataset could be resolved.
func NewNoDataError(task string) *Error {
	return &Error{
		Type:    ErrorTypeNoData,
		Task:    task,
		Message: "no data available: not inline, not in cache, no default",
	}
}

// NewDataMismatchError reports a cached value of the wrong shape.
func NewDataMismatchError(task, key string, got any) *Error {
	return &Error{
		Type:    ErrorTypeDataMismatch,
		Task:    task,
		Message: fmt.Sprintf("cache key %q holds %T, want *Dataset", key, got),
		Context: map[string]any{"key": key},
	}
}

// NewExecutionError wraps an agent-reported failure.
func NewExecutionError(task, agent string, cause error, retryable bool) *Error {
	return &Error{
		Type:      ErrorTypeExecution,
		Task:      task,
		Agent:     agent,
		Message:   "task execution failed",
		Cause:     cause,
		Retryable: retryable,
	}
}

// NewTimeoutError reports a task that exceeded its configured timeout.
func NewTimeoutError(task, timeout string) *Error {
	return &Error{
		Type:      ErrorTypeTimeout,
		Task:      task,
		Message:   fmt.Sprintf("task exceeded timeout of %s", timeout),
		Context:   map[string]any{"timeout": timeout},
		Retryable: true,
	}
}

// NewCancellationError reports a workflow cancelled between tasks.
func NewCancellationError(task string) *Error {
	return &Error{
		Type:    ErrorTypeCancellation,
		Task:    task,
		Message: "workflow was cancelled",
	}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var wErr *Error
	if errors.As(err, &wErr) {
		return wErr.Retryable
	}
	return false
}

// TypeOf returns the classification of an error, ErrorTypeExecution for
// anything foreign.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var wErr *Error
	if errors.As(err, &wErr) {
		return wErr.Type
	}
	return ErrorTypeExecution
}

// Wrap attaches task context to an error, preserving an existing *Error.
func Wrap(err error, task, message string) *Error {
	if err == nil {
		return nil
	}
	var wErr *Error
	if errors.As(err, &wErr) {
		if wErr.Task == "" {
			wErr.Task = task
		}
		if message != "" {
			wErr.Message = fmt.Sprintf("%s: %s", message, wErr.Message)
		}
		return wErr
	}
	return &Error{
		Type:    ErrorTypeExecution,
		Task:    task,
		Message: message,
		Cause:   err,
	}
}
