// Package service wires the turn pipeline together: intent
// classification, workflow execution, reconciliation, and the background
// persistence worker.
package service

import (
	"context"
	"strings"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
)

// Classification confidence levels. The heuristic pass answers with
// strongConfidence when a signal dominates; anything below weakConfidence
// consults the generator fallback when one is configured.
const (
	strongConfidence = 0.9
	mediumConfidence = 0.7
	weakConfidence   = 0.5
)

// intentSignals maps each intent to the phrases that indicate it. Longer
// phrases are checked as substrings of the lowercased message; scoring is
// additive so repeated signals strengthen the verdict.
var intentSignals = map[core.Intent][]string{
	core.IntentDeciding: {
		"decide", "decision", "let's go with", "lets go with", "we will use",
		"we'll use", "i want to use", "settled on", "choose", "final answer",
		"commit to", "going with",
	},
	core.IntentParking: {
		"park", "shelve", "table this", "not now", "later", "put aside",
		"backlog", "revisit",
	},
	core.IntentReviewing: {
		"review", "recap", "summarize", "summary", "where are we",
		"what have we", "so far", "status", "overview",
	},
	core.IntentUploading: {
		"upload", "attach", "attached", "here's a document", "this file",
		"pasting", "sharing a doc",
	},
	core.IntentExploring: {
		"explore", "brainstorm", "what if", "idea", "ideas", "maybe we",
		"alternative", "options", "could we", "thinking about",
	},
}

var questionLeads = []string{
	"what", "how", "why", "where", "when", "who", "which",
	"should", "can", "could", "do we", "does", "is there", "are there",
}

// Classifier resolves a user message to an intent. The keyword pass is
// authoritative when it finds a dominant signal; a generator fallback
// handles ambiguous input when configured. It never fails a turn:
// anything unresolvable becomes IntentUnresolved.
type Classifier struct {
	gen    core.TextGenerator // optional
	logger *logging.Logger
}

// NewClassifier creates a classifier. gen may be nil, in which case
// ambiguous messages resolve straight to IntentUnresolved.
func NewClassifier(gen core.TextGenerator, logger *logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Classifier{gen: gen, logger: logger}
}

// Classify returns the intent for a message and a confidence in [0,1].
func (c *Classifier) Classify(ctx context.Context, message string, history []core.ChatMessage) (core.Intent, float64) {
	intent, confidence := c.heuristic(message)
	if confidence >= mediumConfidence {
		return intent, confidence
	}

	if c.gen != nil {
		if resolved, ok := c.generatorFallback(ctx, message, history); ok {
			return resolved, mediumConfidence
		}
	}

	if confidence >= weakConfidence {
		return intent, confidence
	}
	return core.IntentUnresolved, weakConfidence
}

// heuristic scores the message against the signal table. Questions are a
// strong asking signal unless a decision or parking phrase co-occurs.
func (c *Classifier) heuristic(message string) (core.Intent, float64) {
	lower := strings.ToLower(strings.TrimSpace(message))
	if lower == "" {
		return core.IntentUnresolved, 0
	}

	scores := make(map[core.Intent]int)
	for intent, signals := range intentSignals {
		for _, sig := range signals {
			if strings.Contains(lower, sig) {
				scores[intent]++
			}
		}
	}

	if isQuestionLike(lower) {
		// A question overrides topical signals unless the user is
		// explicitly deciding, parking, or asking for a review in the
		// same breath.
		if scores[core.IntentDeciding] == 0 && scores[core.IntentParking] == 0 &&
			scores[core.IntentReviewing] == 0 {
			return core.IntentAsking, strongConfidence
		}
	}

	best, bestScore, runnerUp := core.IntentUnresolved, 0, 0
	for _, intent := range core.AllIntents() {
		s := scores[intent]
		if s > bestScore {
			best, bestScore, runnerUp = intent, s, bestScore
		} else if s > runnerUp {
			runnerUp = s
		}
	}

	switch {
	case bestScore == 0:
		return core.IntentUnresolved, 0
	case bestScore > runnerUp:
		if bestScore >= 2 {
			return best, strongConfidence
		}
		return best, mediumConfidence
	default:
		// Tie between intents: ambiguous.
		return best, weakConfidence
	}
}

func isQuestionLike(lower string) bool {
	if strings.HasSuffix(lower, "?") {
		return true
	}
	for _, lead := range questionLeads {
		if strings.HasPrefix(lower, lead+" ") {
			return true
		}
	}
	return false
}

// generatorFallback asks the backend to pick one of the known intents.
// Any failure or unparseable answer reports not-ok; the caller falls back
// to IntentUnresolved.
func (c *Classifier) generatorFallback(ctx context.Context, message string, history []core.ChatMessage) (core.Intent, bool) {
	var contextLines []string
	for _, msg := range history {
		contextLines = append(contextLines, msg.Role+": "+msg.Content)
	}

	names := make([]string, 0, len(core.AllIntents()))
	for _, intent := range core.AllIntents() {
		if intent != core.IntentUnresolved {
			names = append(names, string(intent))
		}
	}

	res, err := c.gen.Generate(ctx, core.GenerateRequest{
		Prompt: "Classify the user's conversational intent as exactly one of: " +
			strings.Join(names, ", ") + ". Answer with the single word. Message: " + message,
		Context: contextLines,
	})
	if err != nil {
		c.logger.Warn("intent fallback generation failed", "error", err)
		return core.IntentUnresolved, false
	}

	answer := strings.ToLower(strings.TrimSpace(res.Text))
	answer = strings.Trim(answer, ".\"'")
	intent, err := core.ParseIntent(answer)
	if err != nil || intent == core.IntentUnresolved {
		c.logger.Debug("intent fallback answer unusable", "answer", answer)
		return core.IntentUnresolved, false
	}
	return intent, true
}
