package core

import "time"

// Activity outcomes recorded in ActivityEvent details.
const (
	ActivityExecuted            = "executed"
	ActivityFailed              = "failed"
	ActivitySkipped             = "skipped"
	ActivityRecorded            = "recorded"
	ActivityDuplicateSuppressed = "duplicate_suppressed"
)

// ActivityEvent is the audit record for one executed or skipped step. Every
// StepResult yields exactly one event with fields derived deterministically
// from that result; skipped steps yield their own event.
type ActivityEvent struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	Agent     string         `json:"agent"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ChatMessage is one persisted message of a project conversation.
type ChatMessage struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id,omitempty"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
