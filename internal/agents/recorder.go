package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/workflow"
)

// leadIns are conversational prefixes stripped when falling back to
// extracting the item text straight from the user message.
var leadIns = []string{
	"i want to", "i'd like to", "i would like to", "let's", "lets",
	"we should", "we will", "we'll", "i think we should", "how about",
	"maybe we could", "park", "let's park", "decision:",
}

// Recorder extracts a recordable item from the user's message and emits
// the metadata the reconciler acts on. It never writes state itself.
type Recorder struct {
	gen    core.TextGenerator
	logger *logging.Logger
}

// NewRecorder creates the decision recorder capability.
func NewRecorder(gen core.TextGenerator, logger *logging.Logger) *Recorder {
	return &Recorder{gen: gen, logger: logger.WithAgent(workflow.AgentRecorder)}
}

// Name implements core.AgentCapability.
func (r *Recorder) Name() string { return workflow.AgentRecorder }

// Invoke implements core.AgentCapability.
func (r *Recorder) Invoke(ctx context.Context, action string, input core.TurnInput, state *core.ProjectState, _ []core.StepResult) (core.StepResult, error) {
	if action != workflow.ActionExtract {
		return core.StepResult{}, unknownAction(r.Name(), action)
	}

	// Pure questions carry nothing to record, whatever the workflow.
	if isQuestion(input.Message) {
		return core.StepResult{Metadata: map[string]any{core.MetaShouldRecord: false}}, nil
	}

	prompt := fmt.Sprintf(
		"Extract the single concrete decision or idea from this message, as a short statement. Message: %q",
		input.Message,
	)
	res, err := generate(ctx, r.gen, r.Name(), action, core.GenerateRequest{
		Prompt:  prompt,
		Context: promptContext(input, state),
	})
	if err != nil {
		return core.StepResult{}, err
	}

	item, confidence := r.interpret(res, input.Message)
	if item == "" {
		return core.StepResult{Metadata: map[string]any{core.MetaShouldRecord: false}}, nil
	}

	return core.StepResult{
		Metadata: map[string]any{
			core.MetaShouldRecord: true,
			core.MetaItem:         item,
			core.MetaItemState:    string(stateForIntent(input.Intent)),
			core.MetaConfidence:   confidence,
		},
	}, nil
}

// interpret prefers the backend's structured extraction and falls back to
// trimming the raw message when the backend returned prose only.
func (r *Recorder) interpret(res *core.GenerateResult, message string) (string, float64) {
	if item, ok := res.Metadata[core.MetaItem].(string); ok && strings.TrimSpace(item) != "" {
		confidence := 0.9
		if c, ok := res.Metadata[core.MetaConfidence].(float64); ok && c > 0 && c <= 1 {
			confidence = c
		}
		return strings.TrimSpace(item), confidence
	}

	r.logger.Debug("backend returned no structured item, using lead-in fallback")
	return trimLeadIn(message), 0.5
}

// trimLeadIn strips a conversational prefix from the message, leaving the
// substantive statement.
func trimLeadIn(message string) string {
	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)
	for _, lead := range leadIns {
		if strings.HasPrefix(lower, lead) {
			rest := strings.TrimSpace(trimmed[len(lead):])
			if rest != "" {
				return rest
			}
		}
	}
	return trimmed
}

func isQuestion(message string) bool {
	return strings.HasSuffix(strings.TrimSpace(message), "?")
}

// stateForIntent maps the turn's intent to the recorded item's lifecycle
// state.
func stateForIntent(intent core.Intent) core.ItemState {
	switch intent {
	case core.IntentDeciding:
		return core.ItemDecided
	case core.IntentParking:
		return core.ItemParked
	default:
		return core.ItemExploring
	}
}
