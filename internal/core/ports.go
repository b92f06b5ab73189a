package core

import (
	"context"
	"time"
)

// TurnInput carries everything a capability may read about the current
// turn. The context fields degrade to empty defaults when their fetch
// fails; capabilities must tolerate that.
type TurnInput struct {
	ProjectID  string
	UserID     string
	Message    string
	Intent     Intent
	History    []ChatMessage
	References []ReferenceSummary
	Documents  []DocumentSummary
}

// TurnResult is the user-facing outcome of one processed turn.
type TurnResult struct {
	Messages     []string      `json:"messages"`
	UpdatedState *ProjectState `json:"updated_state"`
}

// AgentCapability is the common contract for every specialized behavior.
//
// A capability must not assume any specific other capability ran earlier in
// the same phase; cross-step dependencies are expressed only through the
// documented metadata keys of prior-phase results. Implementations map
// backend failures to CapabilityError and may be slow; the orchestrator
// bounds each invocation with a timeout via ctx.
type AgentCapability interface {
	// Name returns the capability identifier used in StepSpec.Agent.
	Name() string

	// Invoke performs one action for the current turn. prior holds the
	// StepResults accumulated from all earlier phases, in declared order.
	Invoke(ctx context.Context, action string, input TurnInput, state *ProjectState, prior []StepResult) (StepResult, error)
}

// CapabilityRegistry manages registered capabilities. Dispatch is by
// registered name, never by concrete type; new capabilities are added by
// registering a new name.
type CapabilityRegistry interface {
	// Register adds a capability under its name.
	Register(cap AgentCapability) error

	// Get retrieves a capability by name.
	Get(name string) (AgentCapability, error)

	// List returns all registered capability names, sorted.
	List() []string
}

// ProjectStateStore persists project state. Append must be idempotent and
// commutative by item ID: two concurrent turns appending distinct items
// must both survive, and re-appending an existing item ID is a no-op.
type ProjectStateStore interface {
	// Fetch loads the current state of a project, creating an empty state
	// for unknown project IDs.
	Fetch(ctx context.Context, projectID string) (*ProjectState, error)

	// Append durably adds items to a project and bumps its revision.
	Append(ctx context.Context, projectID string, items []Item) error
}

// ReferenceStore supplies summaries of project reference material.
type ReferenceStore interface {
	FetchForProject(ctx context.Context, projectID string) ([]ReferenceSummary, error)
}

// DocumentStore supplies summaries of the running project document.
type DocumentStore interface {
	FetchForProject(ctx context.Context, projectID string) ([]DocumentSummary, error)
}

// GenerateRequest is the input to the opaque text-generation backend.
type GenerateRequest struct {
	Prompt  string
	Context []string
	Timeout time.Duration
}

// GenerateResult is the backend's output: free text plus whatever
// structured metadata the backend extracted.
type GenerateResult struct {
	Text     string
	Metadata map[string]any
}

// TextGenerator is the opaque text-generation backend behind the
// LLM-backed capabilities. It may time out or return malformed output;
// capabilities translate both into CapabilityError.
type TextGenerator interface {
	// Name returns the backend identifier for logging and diagnostics.
	Name() string

	// Generate produces text for a prompt.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// PersistenceSink receives background writes: chat messages and activity
// events. Writes may be fire-and-forget; a sink failure must never block
// or fail message delivery to the user.
type PersistenceSink interface {
	WriteMessages(ctx context.Context, msgs []ChatMessage) error
	WriteActivity(ctx context.Context, events []ActivityEvent) error
}
