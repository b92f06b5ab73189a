package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
)

// Wire registers every built-in capability against the given backend and
// returns the populated registry.
func Wire(gen core.TextGenerator, logger *logging.Logger) (*Registry, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	registry := NewRegistry()
	caps := []core.AgentCapability{
		NewConversational(gen, logger),
		NewRecorder(gen, logger),
		NewVerifier(gen, logger),
		NewAssumptionScanner(gen, logger),
		NewConsistencyChecker(gen, logger),
		NewVersionTracker(logger),
		NewModeManager(logger),
	}
	for _, c := range caps {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// generate calls the backend and maps its failure modes onto the
// capability error taxonomy. An empty text result counts as invalid: the
// backend answered but said nothing usable.
func generate(ctx context.Context, gen core.TextGenerator, agent, action string, req core.GenerateRequest) (*core.GenerateResult, error) {
	res, err := gen.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, core.NewCapabilityError(core.CapabilityTimeout, agent, action, err)
		}
		return nil, core.NewCapabilityError(core.CapabilityUpstreamFailure, agent, action, err)
	}
	if res == nil || strings.TrimSpace(res.Text) == "" {
		return nil, core.NewCapabilityError(core.CapabilityInvalidResponse, agent, action,
			errors.New("backend returned empty text"))
	}
	return res, nil
}

// unknownAction builds the error for an action a capability does not
// implement. Reaching it means the workflow table and the capability
// disagree, which is a wiring bug, not a runtime condition.
func unknownAction(agent, action string) error {
	return core.NewCapabilityError(core.CapabilityInvalidResponse, agent, action,
		fmt.Errorf("unsupported action %q", action))
}

// promptContext renders the turn's fetched context into prompt lines.
func promptContext(input core.TurnInput, state *core.ProjectState) []string {
	var lines []string
	for _, it := range state.ActiveItems("") {
		lines = append(lines, fmt.Sprintf("%s [%s]: %s", "item", it.State, it.Text))
	}
	for _, ref := range input.References {
		lines = append(lines, fmt.Sprintf("reference %q: %s", ref.Title, ref.Summary))
	}
	for _, doc := range input.Documents {
		lines = append(lines, fmt.Sprintf("document %q: %s", doc.Section, doc.Summary))
	}
	for _, msg := range input.History {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	return lines
}
