package agents

import (
	"context"
	"fmt"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/workflow"
)

// VersionTracker annotates turns with the project's revision trajectory.
// It is deterministic over the fetched state and needs no backend.
type VersionTracker struct {
	logger *logging.Logger
}

// NewVersionTracker creates the version tracker capability.
func NewVersionTracker(logger *logging.Logger) *VersionTracker {
	return &VersionTracker{logger: logger.WithAgent(workflow.AgentVersionTracker)}
}

// Name implements core.AgentCapability.
func (t *VersionTracker) Name() string { return workflow.AgentVersionTracker }

// Invoke implements core.AgentCapability.
func (t *VersionTracker) Invoke(_ context.Context, action string, input core.TurnInput, state *core.ProjectState, prior []core.StepResult) (core.StepResult, error) {
	switch action {
	case workflow.ActionNote:
		note := fmt.Sprintf("revision %d; pending item %q will be revision %d",
			state.Revision, metaFromPrior(prior, core.MetaItem), state.Revision+1)
		return core.StepResult{
			Metadata: map[string]any{core.MetaRevisionNote: note},
		}, nil

	case workflow.ActionSummarize:
		decided := len(state.ActiveItems(core.ItemDecided))
		exploring := len(state.ActiveItems(core.ItemExploring))
		parked := len(state.ActiveItems(core.ItemParked))
		note := fmt.Sprintf("revision %d: %d decided, %d exploring, %d parked",
			state.Revision, decided, exploring, parked)
		return core.StepResult{
			Metadata: map[string]any{core.MetaRevisionNote: note},
		}, nil

	default:
		return core.StepResult{}, unknownAction(t.Name(), action)
	}
}

// ModeManager tracks which session mode the conversation is drifting
// toward. The mode is a soft signal surfaced to the request layer.
type ModeManager struct {
	logger *logging.Logger
}

// NewModeManager creates the mode manager capability.
func NewModeManager(logger *logging.Logger) *ModeManager {
	return &ModeManager{logger: logger.WithAgent(workflow.AgentModeManager)}
}

// Name implements core.AgentCapability.
func (m *ModeManager) Name() string { return workflow.AgentModeManager }

// Invoke implements core.AgentCapability.
func (m *ModeManager) Invoke(_ context.Context, action string, input core.TurnInput, _ *core.ProjectState, _ []core.StepResult) (core.StepResult, error) {
	if action != workflow.ActionTrack {
		return core.StepResult{}, unknownAction(m.Name(), action)
	}

	mode := "brainstorm"
	switch input.Intent {
	case core.IntentReviewing:
		mode = "review"
	case core.IntentAsking:
		mode = "organize"
	}
	return core.StepResult{
		Metadata: map[string]any{core.MetaMode: mode},
	}, nil
}
