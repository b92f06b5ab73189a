package generator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
)

// RuleGenerator is a deterministic local backend. It recognizes the
// prompt shapes the capabilities build and answers with usable
// structured output, so the engine runs fully offline: demos, tests,
// and the doctor command all work without an external model.
type RuleGenerator struct{}

// NewRuleGenerator creates the rule backend.
func NewRuleGenerator() *RuleGenerator { return &RuleGenerator{} }

// Name implements core.TextGenerator.
func (g *RuleGenerator) Name() string { return "rule" }

// Generate implements core.TextGenerator.
func (g *RuleGenerator) Generate(_ context.Context, req core.GenerateRequest) (*core.GenerateResult, error) {
	prompt := req.Prompt

	switch {
	case strings.Contains(prompt, "Extract the single concrete"):
		return g.extract(prompt), nil
	case strings.Contains(prompt, "Verify this claim"):
		return g.verify(prompt), nil
	case strings.Contains(prompt, "contradicts any of these recorded decisions"):
		return g.checkConsistency(prompt), nil
	case strings.Contains(prompt, "unstated assumptions"):
		return g.scanAssumptions(prompt), nil
	case strings.Contains(prompt, "conversational intent"):
		return &core.GenerateResult{Text: "unresolved"}, nil
	default:
		return g.respond(prompt, req.Context), nil
	}
}

// extract pulls the statement out of the quoted message, stripping
// conversational lead-ins.
func (g *RuleGenerator) extract(prompt string) *core.GenerateResult {
	message := quotedArg(prompt, "Message: ")
	item := strings.TrimSpace(message)
	for _, lead := range []string{"i want to ", "i'd like to ", "let's ", "lets ", "we should ", "decision: "} {
		if strings.HasPrefix(strings.ToLower(item), lead) {
			item = strings.TrimSpace(item[len(lead):])
			break
		}
	}
	// Drop a trailing clause announcing the decision rather than stating it.
	if idx := strings.LastIndex(strings.ToLower(item), ", decision made"); idx > 0 {
		item = item[:idx]
	}
	if item == "" {
		return &core.GenerateResult{Text: "nothing to record"}
	}
	return &core.GenerateResult{
		Text: item,
		Metadata: map[string]any{
			core.MetaItem:       item,
			core.MetaConfidence: 0.75,
		},
	}
}

// verify approves a claim unless it overreaches with absolutes.
func (g *RuleGenerator) verify(prompt string) *core.GenerateResult {
	claim := strings.ToLower(quotedArg(prompt, "Claim: "))
	for _, absolute := range []string{"always", "never", "guarantees", "guaranteed", "impossible", "100%"} {
		if strings.Contains(claim, absolute) {
			return &core.GenerateResult{
				Text:     fmt.Sprintf("The claim leans on %q, which rarely holds unconditionally.", absolute),
				Metadata: map[string]any{core.MetaApproved: false},
			}
		}
	}
	return &core.GenerateResult{
		Text:     "No red flags found.",
		Metadata: map[string]any{core.MetaApproved: true},
	}
}

// checkConsistency flags a decision the candidate directly negates: the
// candidate says "not X" or "drop X" while X matches a recorded
// decision's words.
func (g *RuleGenerator) checkConsistency(prompt string) *core.GenerateResult {
	subject := strings.ToLower(quotedArg(prompt, "whether "))

	_, decisionsPart, found := strings.Cut(prompt, "Decisions:\n")
	if !found {
		return &core.GenerateResult{Text: "consistent"}
	}

	negated := strings.Contains(subject, "not ") || strings.Contains(subject, "drop ") ||
		strings.Contains(subject, "instead of ") || strings.Contains(subject, "stop ")
	if !negated {
		return &core.GenerateResult{Text: "consistent"}
	}

	var issues []string
	for _, decision := range strings.Split(decisionsPart, "\n") {
		decision = strings.TrimSpace(decision)
		if decision == "" {
			continue
		}
		if sharesKeyword(subject, strings.ToLower(decision)) {
			issues = append(issues, fmt.Sprintf("may reverse the recorded decision %q", decision))
		}
	}
	if len(issues) == 0 {
		return &core.GenerateResult{Text: "consistent"}
	}
	return &core.GenerateResult{
		Text:     strings.Join(issues, "\n"),
		Metadata: map[string]any{core.MetaConsistencyIssues: issues},
	}
}

// scanAssumptions derives generic assumptions from what the message
// takes for granted.
func (g *RuleGenerator) scanAssumptions(prompt string) *core.GenerateResult {
	message := strings.ToLower(quotedArg(prompt, "Message: "))

	var assumptions []string
	checks := []struct {
		keyword    string
		assumption string
	}{
		{"mobile", "users are on mobile devices"},
		{"users", "the target users exist and are reachable"},
		{"fast", "current performance is the limiting factor"},
		{"cheap", "cost is the deciding constraint"},
		{"scale", "growth will materialize enough to need scaling"},
		{"api", "consumers can integrate against an API"},
	}
	for _, c := range checks {
		if strings.Contains(message, c.keyword) {
			assumptions = append(assumptions, c.assumption)
		}
	}
	if len(assumptions) == 0 {
		assumptions = []string{"the stated direction is technically feasible"}
	}
	return &core.GenerateResult{
		Text:     "- " + strings.Join(assumptions, "\n- "),
		Metadata: map[string]any{core.MetaAssumptions: assumptions},
	}
}

// respond builds the plain conversational reply.
func (g *RuleGenerator) respond(prompt string, contextLines []string) *core.GenerateResult {
	message := quotedArg(prompt, "The user said: ")
	var b strings.Builder

	switch {
	case strings.Contains(prompt, "clarifying questions"):
		b.WriteString("A few things would help me give better input:\n")
		b.WriteString("1. What problem is this solving, concretely?\n")
		b.WriteString("2. Who is it for?\n")
		b.WriteString("3. What constraints are fixed already?")
	case strings.Contains(prompt, "deep, specific suggestions"):
		fmt.Fprintf(&b, "Building on what you laid out (%s):\n", firstWords(message, 8))
		b.WriteString("1. Pressure-test the riskiest stated dependency before committing further.\n")
		b.WriteString("2. Write down the rollback path while the details are fresh.")
	default:
		fmt.Fprintf(&b, "Noted: %s. ", firstWords(message, 12))
		b.WriteString("Some directions worth a look:\n")
		b.WriteString("1. Sketch the smallest version that proves the idea.\n")
		b.WriteString("2. List what would make you abandon it.\n")
		b.WriteString("3. Compare against what you already decided.")
		if len(contextLines) > 0 {
			fmt.Fprintf(&b, "\n(Considered %d context entries.)", len(contextLines))
		}
	}
	return &core.GenerateResult{Text: b.String()}
}

// quotedArg extracts the Go-quoted string following marker in prompt.
func quotedArg(prompt, marker string) string {
	_, rest, found := strings.Cut(prompt, marker)
	if !found {
		return ""
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, `"`) {
		// Unquoted: take the rest of the line.
		if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
			rest = rest[:idx]
		}
		return rest
	}
	// Find the closing quote of the Go-quoted literal.
	for i := 1; i < len(rest); i++ {
		if rest[i] == '\\' {
			i++
			continue
		}
		if rest[i] == '"' {
			if unquoted, err := strconv.Unquote(rest[:i+1]); err == nil {
				return unquoted
			}
			break
		}
	}
	return rest
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ") + "…"
}

// sharesKeyword reports whether two texts share a word longer than
// three characters.
func sharesKeyword(a, b string) bool {
	seen := make(map[string]bool)
	for _, w := range strings.Fields(a) {
		w = strings.Trim(w, ".,;:!?\"'")
		if len(w) > 3 {
			seen[w] = true
		}
	}
	for _, w := range strings.Fields(b) {
		w = strings.Trim(w, ".,;:!?\"'")
		if len(w) > 3 && seen[w] {
			return true
		}
	}
	return false
}
