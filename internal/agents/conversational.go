package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/workflow"
)

// Suggestion depth thresholds. Terse input gets broad clarifying
// questions; detailed input gets a small number of deep suggestions that
// reference what was already stated.
const (
	terseWordLimit       = 8
	detailedWordLimit    = 25
	clarifyingQuestions  = 3
	deepSuggestionLimit  = 2
	broadSuggestionLimit = 4
)

// Conversational produces the user-facing reply for a turn.
type Conversational struct {
	gen    core.TextGenerator
	logger *logging.Logger
}

// NewConversational creates the conversational capability.
func NewConversational(gen core.TextGenerator, logger *logging.Logger) *Conversational {
	return &Conversational{gen: gen, logger: logger.WithAgent(workflow.AgentConversational)}
}

// Name implements core.AgentCapability.
func (c *Conversational) Name() string { return workflow.AgentConversational }

// Invoke implements core.AgentCapability. The reply's shape scales with
// the amount of concrete detail in the input rather than being a fixed
// list: terse messages yield foundational clarifying questions, detailed
// ones a couple of deep suggestions grounded in what the user said.
func (c *Conversational) Invoke(ctx context.Context, action string, input core.TurnInput, state *core.ProjectState, prior []core.StepResult) (core.StepResult, error) {
	if action != workflow.ActionRespond {
		return core.StepResult{}, unknownAction(c.Name(), action)
	}

	depth, count := c.shape(input.Message)
	prompt := c.prompt(input, depth, count)

	res, err := generate(ctx, c.gen, c.Name(), action, core.GenerateRequest{
		Prompt:  prompt,
		Context: promptContext(input, state),
	})
	if err != nil {
		return core.StepResult{}, err
	}

	message := strings.TrimSpace(res.Text)
	if note := advisoryNotes(prior); note != "" {
		message += "\n\n" + note
	}

	return core.StepResult{
		Message:    message,
		ShowToUser: true,
		Metadata: map[string]any{
			core.MetaSuggestionCount: count,
		},
	}, nil
}

// shape decides reply depth from input detail. Signals of concrete detail
// are length, named specifics (capitalized or numeric tokens) and clause
// separators.
func (c *Conversational) shape(message string) (depth string, count int) {
	words := strings.Fields(message)
	specifics := 0
	for _, w := range words[min(1, len(words)):] {
		r := []rune(w)[0]
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			specifics++
		}
	}
	clauses := strings.Count(message, ",") + strings.Count(message, ";")

	switch {
	case len(words) < terseWordLimit && specifics == 0:
		return "clarify", clarifyingQuestions
	case len(words) >= detailedWordLimit || specifics >= 2 || clauses >= 2:
		return "deep", deepSuggestionLimit
	default:
		return "broad", broadSuggestionLimit
	}
}

func (c *Conversational) prompt(input core.TurnInput, depth string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the brainstorm facilitator. The user said: %q\n", input.Message)
	fmt.Fprintf(&b, "Classified intent: %s.\n", input.Intent)

	switch depth {
	case "clarify":
		fmt.Fprintf(&b, "The message is terse. Ask %d foundational clarifying questions before suggesting anything.", count)
	case "deep":
		fmt.Fprintf(&b, "The message is detailed. Give at most %d deep, specific suggestions that reference details the user already stated. Do not pad the list.", count)
	default:
		fmt.Fprintf(&b, "Give up to %d suggestions broadening the direction the user indicated.", count)
	}
	return b.String()
}

// advisoryNotes folds prior quality signals into the visible reply.
// Disapprovals and consistency issues reach the user here and only here;
// they never blocked anything upstream.
func advisoryNotes(prior []core.StepResult) string {
	var notes []string
	for _, r := range prior {
		if r.Failed() {
			continue
		}
		if note := r.MetaString(core.MetaVerificationNote); note != "" && !r.MetaBool(core.MetaApproved) {
			notes = append(notes, "Heads up: "+note)
		}
		if issues, ok := r.Metadata[core.MetaConsistencyIssues].([]string); ok && len(issues) > 0 {
			notes = append(notes, "Possible conflict with earlier decisions: "+strings.Join(issues, "; "))
		}
	}
	return strings.Join(notes, "\n")
}
