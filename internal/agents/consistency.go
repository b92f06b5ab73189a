package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/workflow"
)

// ConsistencyChecker compares the turn's candidate item (or, when
// reviewing, the whole message) against the project's recorded decisions
// and reports conflicts. Advisory only.
type ConsistencyChecker struct {
	gen    core.TextGenerator
	logger *logging.Logger
}

// NewConsistencyChecker creates the consistency checker capability.
func NewConsistencyChecker(gen core.TextGenerator, logger *logging.Logger) *ConsistencyChecker {
	return &ConsistencyChecker{gen: gen, logger: logger.WithAgent(workflow.AgentConsistency)}
}

// Name implements core.AgentCapability.
func (c *ConsistencyChecker) Name() string { return workflow.AgentConsistency }

// Invoke implements core.AgentCapability.
func (c *ConsistencyChecker) Invoke(ctx context.Context, action string, input core.TurnInput, state *core.ProjectState, prior []core.StepResult) (core.StepResult, error) {
	if action != workflow.ActionCheck {
		return core.StepResult{}, unknownAction(c.Name(), action)
	}

	decided := state.ActiveItems(core.ItemDecided)
	if len(decided) == 0 {
		// Nothing recorded yet, so nothing to conflict with.
		return core.StepResult{
			Metadata: map[string]any{core.MetaConsistencyIssues: []string{}},
		}, nil
	}

	subject := metaFromPrior(prior, core.MetaItem)
	if subject == "" {
		subject = input.Message
	}

	var existing []string
	for _, it := range decided {
		existing = append(existing, it.Text)
	}

	res, err := generate(ctx, c.gen, c.Name(), action, core.GenerateRequest{
		Prompt: fmt.Sprintf(
			"Check whether %q contradicts any of these recorded decisions. List each contradiction on its own line, or answer 'consistent'. Decisions:\n%s",
			subject, strings.Join(existing, "\n"),
		),
		Context: promptContext(input, state),
	})
	if err != nil {
		return core.StepResult{}, err
	}

	issues := parseIssues(res)
	if len(issues) > 0 {
		c.logger.WithProject(input.ProjectID).Info("consistency issues found", "count", len(issues))
	}

	return core.StepResult{
		Metadata: map[string]any{core.MetaConsistencyIssues: issues},
	}, nil
}

func parseIssues(res *core.GenerateResult) []string {
	if list, ok := res.Metadata[core.MetaConsistencyIssues].([]string); ok {
		return list
	}
	if strings.EqualFold(strings.TrimSpace(res.Text), "consistent") {
		return []string{}
	}

	issues := []string{}
	for _, line := range strings.Split(res.Text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-* "))
		if line != "" && !strings.EqualFold(line, "consistent") {
			issues = append(issues, line)
		}
	}
	return issues
}
