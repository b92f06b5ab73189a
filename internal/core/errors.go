package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatConfig         ErrorCategory = "config"         // Invalid workflow or configuration
	ErrCatClassification ErrorCategory = "classification" // Intent could not be resolved
	ErrCatCapability     ErrorCategory = "capability"     // Capability invocation failed
	ErrCatReconciliation ErrorCategory = "reconciliation" // Duplicate or conflicting item
	ErrCatPersistence    ErrorCategory = "persistence"    // Store write failed
	ErrCatValidation     ErrorCategory = "validation"     // Invalid input
	ErrCatNotFound       ErrorCategory = "not_found"      // Resource not found
	ErrCatInternal       ErrorCategory = "internal"       // Unexpected internal error
)

// DomainError represents a structured error from the engine.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]any
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// ErrConfig creates a configuration error. Config errors are fatal at load
// time and fatal for any turn whose intent has no registered workflow.
func ErrConfig(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatConfig,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrClassification creates a non-fatal classification error. Callers
// resolve it to the fallback intent rather than failing the turn.
func ErrClassification(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatClassification,
		Code:      "CLASSIFICATION_UNCERTAIN",
		Message:   message,
		Retryable: false,
	}
}

// ErrPersistence creates a persistence error. It only escalates when the
// synchronous state update cannot be durably recorded.
func ErrPersistence(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatPersistence,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes.
const (
	CodeUnknownIntent      = "UNKNOWN_INTENT"
	CodeUnregisteredIntent = "UNREGISTERED_INTENT"
	CodeUnboundCondition   = "UNBOUND_CONDITION"
	CodeEmptyWorkflow      = "EMPTY_WORKFLOW"
	CodeUnknownAgent       = "UNKNOWN_AGENT"
	CodeDuplicateWorkflow  = "DUPLICATE_WORKFLOW"
	CodeEmptyMessage       = "EMPTY_MESSAGE"
	CodeMessageTooLong     = "MESSAGE_TOO_LONG"
	CodeStateAppendFailed  = "STATE_APPEND_FAILED"
	CodeInvalidConfig      = "INVALID_CONFIG"
)

// MaxMessageLength is the maximum allowed user message length.
const MaxMessageLength = 32000

// CapabilityErrorKind distinguishes capability failure modes.
type CapabilityErrorKind string

const (
	// CapabilityTimeout means the bounded per-step timeout elapsed.
	CapabilityTimeout CapabilityErrorKind = "timeout"

	// CapabilityInvalidResponse means the backend returned output the
	// capability could not interpret.
	CapabilityInvalidResponse CapabilityErrorKind = "invalid_response"

	// CapabilityUpstreamFailure means the text-generation backend failed.
	CapabilityUpstreamFailure CapabilityErrorKind = "upstream_failure"
)

// CapabilityError captures a single step's failure. It is recorded on the
// StepResult and never escalated past the orchestrator.
type CapabilityError struct {
	Kind   CapabilityErrorKind `json:"kind"`
	Agent  string              `json:"agent"`
	Action string              `json:"action"`
	Cause  error               `json:"-"`
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("capability %s.%s failed (%s): %v", e.Agent, e.Action, e.Kind, e.Cause)
	}
	return fmt.Sprintf("capability %s.%s failed (%s)", e.Agent, e.Action, e.Kind)
}

// Unwrap returns the underlying cause.
func (e *CapabilityError) Unwrap() error {
	return e.Cause
}

// NewCapabilityError builds a CapabilityError for a step.
func NewCapabilityError(kind CapabilityErrorKind, agent, action string, cause error) *CapabilityError {
	return &CapabilityError{Kind: kind, Agent: agent, Action: action, Cause: cause}
}
