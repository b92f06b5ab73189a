package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/workflow"
)

// AssumptionScanner surfaces the implicit assumptions a message rests on.
// Background-only: its findings land in metadata and the audit trail.
type AssumptionScanner struct {
	gen    core.TextGenerator
	logger *logging.Logger
}

// NewAssumptionScanner creates the assumption scanner capability.
func NewAssumptionScanner(gen core.TextGenerator, logger *logging.Logger) *AssumptionScanner {
	return &AssumptionScanner{gen: gen, logger: logger.WithAgent(workflow.AgentAssumptionScanner)}
}

// Name implements core.AgentCapability.
func (s *AssumptionScanner) Name() string { return workflow.AgentAssumptionScanner }

// Invoke implements core.AgentCapability.
func (s *AssumptionScanner) Invoke(ctx context.Context, action string, input core.TurnInput, state *core.ProjectState, _ []core.StepResult) (core.StepResult, error) {
	if action != workflow.ActionScan {
		return core.StepResult{}, unknownAction(s.Name(), action)
	}

	res, err := generate(ctx, s.gen, s.Name(), action, core.GenerateRequest{
		Prompt:  fmt.Sprintf("List the unstated assumptions this message relies on, one per line. Message: %q", input.Message),
		Context: promptContext(input, state),
	})
	if err != nil {
		return core.StepResult{}, err
	}

	assumptions := splitLines(res)
	return core.StepResult{
		Metadata: map[string]any{
			core.MetaAssumptions: assumptions,
		},
	}, nil
}

// splitLines prefers the backend's structured list and falls back to
// parsing the text line by line.
func splitLines(res *core.GenerateResult) []string {
	if list, ok := res.Metadata[core.MetaAssumptions].([]string); ok {
		return list
	}

	var out []string
	for _, line := range strings.Split(res.Text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
