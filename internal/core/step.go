package core

import "fmt"

// Documented metadata keys. These constants are the only channel through
// which one step's effect is visible to later step conditions and to the
// reconciler. A StepSpec must list the keys it produces so the registry can
// validate conditions statically.
const (
	// MetaShouldRecord signals that the reconciler should append an item.
	MetaShouldRecord = "should_record"

	// MetaItem is the text of the item to record.
	MetaItem = "item"

	// MetaItemState is the lifecycle state for the recorded item.
	MetaItemState = "state"

	// MetaConfidence is the recorder's confidence in the extraction.
	MetaConfidence = "confidence"

	// MetaApproved carries a verifier's advisory verdict. It never gates
	// recording; it is surfaced to the user as a quality signal only.
	MetaApproved = "approved"

	// MetaVerificationNote is the verifier's human-readable note.
	MetaVerificationNote = "verification_note"

	// MetaAssumptions lists implicit assumptions found in the input.
	MetaAssumptions = "assumptions"

	// MetaConsistencyIssues lists conflicts with previously recorded items.
	MetaConsistencyIssues = "consistency_issues"

	// MetaMode is the session mode suggested by the mode manager.
	MetaMode = "mode"

	// MetaRevisionNote is the version tracker's milestone note.
	MetaRevisionNote = "revision_note"

	// MetaSuggestionCount is how many suggestions the conversational
	// capability emitted, used for telemetry.
	MetaSuggestionCount = "suggestion_count"
)

// Condition is a declarative predicate over metadata produced by earlier
// phases. It names the key it reads so the registry can prove at
// registration time that some earlier step can populate it.
type Condition struct {
	Key    string `json:"key" yaml:"key"`
	Equals any    `json:"equals" yaml:"equals"`
}

// Holds evaluates the condition against the accumulated results of all
// prior phases. A key that no prior result populated evaluates to false.
func (c *Condition) Holds(prior []StepResult) bool {
	for _, r := range prior {
		if r.Metadata == nil {
			continue
		}
		if v, ok := r.Metadata[c.Key]; ok && v == c.Equals {
			return true
		}
	}
	return false
}

func (c *Condition) String() string {
	return fmt.Sprintf("%s == %v", c.Key, c.Equals)
}

// StepSpec declares one capability invocation inside a workflow.
type StepSpec struct {
	// Agent names the capability to invoke.
	Agent string `json:"agent" yaml:"agent"`

	// Action is the operation the capability should perform. One capability
	// may support several actions.
	Action string `json:"action" yaml:"action"`

	// Condition optionally gates the step on earlier-phase metadata.
	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`

	// ParallelGroup tags contiguous steps that run as one concurrent phase.
	// Empty means the step is its own sequential phase.
	ParallelGroup string `json:"parallel_group,omitempty" yaml:"parallel_group,omitempty"`

	// Produces documents the metadata keys this step may populate. The
	// registry validates every condition against this contract.
	Produces []string `json:"produces,omitempty" yaml:"produces,omitempty"`
}

// Name returns the step's display identity.
func (s StepSpec) Name() string {
	return s.Agent + "." + s.Action
}

// StepResult is the typed output of one capability invocation.
type StepResult struct {
	Agent      string           `json:"agent"`
	Action     string           `json:"action"`
	Message    string           `json:"message"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
	ShowToUser bool             `json:"show_to_user"`
	Err        *CapabilityError `json:"error,omitempty"`
}

// Failed reports whether the step's capability invocation failed.
func (r *StepResult) Failed() bool {
	return r.Err != nil
}

// MetaBool reads a boolean metadata value, false if absent or mistyped.
func (r *StepResult) MetaBool(key string) bool {
	v, ok := r.Metadata[key].(bool)
	return ok && v
}

// MetaString reads a string metadata value, empty if absent or mistyped.
func (r *StepResult) MetaString(key string) string {
	v, _ := r.Metadata[key].(string)
	return v
}

// MetaFloat reads a numeric metadata value, 0 if absent or mistyped.
func (r *StepResult) MetaFloat(key string) float64 {
	switch v := r.Metadata[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

// WorkflowDefinition binds an intent to an ordered, phase-grouped list of
// steps. Definitions are validated once at registration and immutable
// thereafter.
type WorkflowDefinition struct {
	Intent Intent     `json:"intent" yaml:"intent"`
	Steps  []StepSpec `json:"steps" yaml:"steps"`
}

// Phases partitions the steps into ordered execution phases: contiguous
// steps sharing a non-empty ParallelGroup form one concurrent phase, every
// other step is a singleton sequential phase. Declaration order is
// preserved within and across phases.
func (d *WorkflowDefinition) Phases() [][]StepSpec {
	var phases [][]StepSpec
	for i := 0; i < len(d.Steps); {
		step := d.Steps[i]
		if step.ParallelGroup == "" {
			phases = append(phases, []StepSpec{step})
			i++
			continue
		}
		j := i + 1
		for j < len(d.Steps) && d.Steps[j].ParallelGroup == step.ParallelGroup {
			j++
		}
		phases = append(phases, d.Steps[i:j])
		i = j
	}
	return phases
}
