package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/workflow"
)

// Verifier checks the factual plausibility of the claim behind a recorded
// decision. Its verdict is strictly advisory: the reconciler records the
// item either way and the verdict only reaches the user as a note.
type Verifier struct {
	gen    core.TextGenerator
	logger *logging.Logger
}

// NewVerifier creates the claim verifier capability.
func NewVerifier(gen core.TextGenerator, logger *logging.Logger) *Verifier {
	return &Verifier{gen: gen, logger: logger.WithAgent(workflow.AgentVerifier)}
}

// Name implements core.AgentCapability.
func (v *Verifier) Name() string { return workflow.AgentVerifier }

// Invoke implements core.AgentCapability. It reads the candidate item from
// prior-phase metadata, never from a specific sibling.
func (v *Verifier) Invoke(ctx context.Context, action string, input core.TurnInput, state *core.ProjectState, prior []core.StepResult) (core.StepResult, error) {
	if action != workflow.ActionVerify {
		return core.StepResult{}, unknownAction(v.Name(), action)
	}

	claim := metaFromPrior(prior, core.MetaItem)
	if claim == "" {
		claim = input.Message
	}

	res, err := generate(ctx, v.gen, v.Name(), action, core.GenerateRequest{
		Prompt:  fmt.Sprintf("Verify this claim against common knowledge and the project context. Answer whether it holds. Claim: %q", claim),
		Context: promptContext(input, state),
	})
	if err != nil {
		return core.StepResult{}, err
	}

	approved, ok := res.Metadata[core.MetaApproved].(bool)
	if !ok {
		// The backend's answer is unusable without a verdict.
		return core.StepResult{}, core.NewCapabilityError(core.CapabilityInvalidResponse, v.Name(), action,
			errors.New("backend result missing approved verdict"))
	}

	return core.StepResult{
		Metadata: map[string]any{
			core.MetaApproved:         approved,
			core.MetaVerificationNote: res.Text,
		},
	}, nil
}

// metaFromPrior scans prior results for the first string value under key.
func metaFromPrior(prior []core.StepResult, key string) string {
	for _, r := range prior {
		if v := r.MetaString(key); v != "" {
			return v
		}
	}
	return ""
}
