package workflow

import "github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"

// Capability names shared by the built-in table and the agents package.
const (
	AgentConversational    = "conversational"
	AgentRecorder          = "recorder"
	AgentVerifier          = "verifier"
	AgentAssumptionScanner = "assumption_scanner"
	AgentConsistency       = "consistency_checker"
	AgentVersionTracker    = "version_tracker"
	AgentModeManager       = "mode_manager"
)

// Actions understood by the built-in capabilities.
const (
	ActionRespond   = "respond"
	ActionExtract   = "extract"
	ActionVerify    = "verify"
	ActionScan      = "scan"
	ActionCheck     = "check"
	ActionNote      = "note"
	ActionSummarize = "summarize"
	ActionTrack     = "track"
)

// recorderProduces is the metadata contract of the decision recorder.
var recorderProduces = []string{
	core.MetaShouldRecord, core.MetaItem, core.MetaItemState, core.MetaConfidence,
}

// Builtin returns the default workflow table with every intent registered.
// The returned registry has already passed validation; a panic here means
// the built-in table itself is broken, which is a programming error.
func Builtin() *Registry {
	r := NewRegistry()
	for _, def := range BuiltinDefinitions() {
		if err := r.Register(def); err != nil {
			panic("builtin workflow table invalid: " + err.Error())
		}
	}
	return r
}

// BuiltinDefinitions returns the default definition for every intent.
func BuiltinDefinitions() []*core.WorkflowDefinition {
	return []*core.WorkflowDefinition{
		// A decision turn records first, then runs the quality signals in
		// parallel. Verification and consistency are advisory: they gate
		// nothing, their output only enriches the user-facing reply.
		{
			Intent: core.IntentDeciding,
			Steps: []core.StepSpec{
				{Agent: AgentRecorder, Action: ActionExtract, Produces: recorderProduces},
				{
					Agent: AgentVerifier, Action: ActionVerify, ParallelGroup: "quality",
					Condition: &core.Condition{Key: core.MetaShouldRecord, Equals: true},
					Produces:  []string{core.MetaApproved, core.MetaVerificationNote},
				},
				{
					Agent: AgentConsistency, Action: ActionCheck, ParallelGroup: "quality",
					Condition: &core.Condition{Key: core.MetaShouldRecord, Equals: true},
					Produces:  []string{core.MetaConsistencyIssues},
				},
				{
					Agent: AgentVersionTracker, Action: ActionNote,
					Condition: &core.Condition{Key: core.MetaShouldRecord, Equals: true},
					Produces:  []string{core.MetaRevisionNote},
				},
				{Agent: AgentConversational, Action: ActionRespond},
			},
		},
		{
			Intent: core.IntentExploring,
			Steps: []core.StepSpec{
				{Agent: AgentRecorder, Action: ActionExtract, Produces: recorderProduces},
				{
					Agent: AgentConversational, Action: ActionRespond, ParallelGroup: "ideation",
					Produces: []string{core.MetaSuggestionCount},
				},
				{
					Agent: AgentAssumptionScanner, Action: ActionScan, ParallelGroup: "ideation",
					Produces: []string{core.MetaAssumptions},
				},
			},
		},
		{
			Intent: core.IntentParking,
			Steps: []core.StepSpec{
				{Agent: AgentRecorder, Action: ActionExtract, Produces: recorderProduces},
				{Agent: AgentConversational, Action: ActionRespond},
			},
		},
		{
			Intent: core.IntentAsking,
			Steps: []core.StepSpec{
				{Agent: AgentConversational, Action: ActionRespond},
				{Agent: AgentModeManager, Action: ActionTrack, Produces: []string{core.MetaMode}},
			},
		},
		{
			Intent: core.IntentReviewing,
			Steps: []core.StepSpec{
				{
					Agent: AgentConsistency, Action: ActionCheck, ParallelGroup: "audit",
					Produces: []string{core.MetaConsistencyIssues},
				},
				{
					Agent: AgentVersionTracker, Action: ActionSummarize, ParallelGroup: "audit",
					Produces: []string{core.MetaRevisionNote},
				},
				{Agent: AgentConversational, Action: ActionRespond},
			},
		},
		{
			Intent: core.IntentUploading,
			Steps: []core.StepSpec{
				{
					Agent: AgentConversational, Action: ActionRespond, ParallelGroup: "intake",
				},
				{
					Agent: AgentAssumptionScanner, Action: ActionScan, ParallelGroup: "intake",
					Produces: []string{core.MetaAssumptions},
				},
			},
		},
		// The fallback workflow keeps the guarantee that every turn yields
		// at least one message, whatever the classifier made of the input.
		{
			Intent: core.IntentUnresolved,
			Steps: []core.StepSpec{
				{Agent: AgentConversational, Action: ActionRespond},
			},
		},
	}
}
