package events

import (
	"time"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
)

// Event type constants.
const (
	TypeTurnStarted   = "turn_started"
	TypeTurnCompleted = "turn_completed"
	TypeTurnFailed    = "turn_failed"
	TypeActivity      = "activity_recorded"
	TypeChatMessage   = "chat_message"
)

// TurnStartedEvent marks the start of a conversation turn.
type TurnStartedEvent struct {
	BaseEvent
	UserID string      `json:"user_id"`
	Intent core.Intent `json:"intent"`
}

// NewTurnStartedEvent creates a turn started event.
func NewTurnStartedEvent(projectID, userID string, intent core.Intent) TurnStartedEvent {
	return TurnStartedEvent{
		BaseEvent: NewBaseEvent(TypeTurnStarted, projectID),
		UserID:    userID,
		Intent:    intent,
	}
}

// TurnCompletedEvent summarizes a finished turn.
type TurnCompletedEvent struct {
	BaseEvent
	Intent        core.Intent   `json:"intent"`
	StepsExecuted int           `json:"steps_executed"`
	StepsSkipped  int           `json:"steps_skipped"`
	StepsFailed   int           `json:"steps_failed"`
	Duration      time.Duration `json:"duration"`
}

// NewTurnCompletedEvent creates a turn completed event.
func NewTurnCompletedEvent(projectID string, intent core.Intent, executed, skipped, failed int, duration time.Duration) TurnCompletedEvent {
	return TurnCompletedEvent{
		BaseEvent:     NewBaseEvent(TypeTurnCompleted, projectID),
		Intent:        intent,
		StepsExecuted: executed,
		StepsSkipped:  skipped,
		StepsFailed:   failed,
		Duration:      duration,
	}
}

// TurnFailedEvent marks a turn that could not produce a result.
type TurnFailedEvent struct {
	BaseEvent
	Reason string `json:"reason"`
}

// NewTurnFailedEvent creates a turn failed event.
func NewTurnFailedEvent(projectID, reason string) TurnFailedEvent {
	return TurnFailedEvent{
		BaseEvent: NewBaseEvent(TypeTurnFailed, projectID),
		Reason:    reason,
	}
}

// ActivityRecordedEvent carries one audit-trail entry to the
// persistence worker.
type ActivityRecordedEvent struct {
	BaseEvent
	Activity core.ActivityEvent `json:"activity"`
}

// NewActivityRecordedEvent wraps an activity entry for publication.
func NewActivityRecordedEvent(activity core.ActivityEvent) ActivityRecordedEvent {
	return ActivityRecordedEvent{
		BaseEvent: NewBaseEvent(TypeActivity, activity.ProjectID),
		Activity:  activity,
	}
}

// ChatMessageEvent carries one chat message to the persistence worker.
type ChatMessageEvent struct {
	BaseEvent
	Message core.ChatMessage `json:"message"`
}

// NewChatMessageEvent wraps a chat message for publication.
func NewChatMessageEvent(msg core.ChatMessage) ChatMessageEvent {
	return ChatMessageEvent{
		BaseEvent: NewBaseEvent(TypeChatMessage, msg.ProjectID),
		Message:   msg,
	}
}
