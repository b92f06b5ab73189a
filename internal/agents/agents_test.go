package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/workflow"
)

// stubGenerator returns a canned result or error and records the last
// prompt it saw.
type stubGenerator struct {
	result     *core.GenerateResult
	err        error
	lastPrompt string
	calls      int
}

func (s *stubGenerator) Name() string { return "stub" }

func (s *stubGenerator) Generate(_ context.Context, req core.GenerateRequest) (*core.GenerateResult, error) {
	s.calls++
	s.lastPrompt = req.Prompt
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func turnInput(intent core.Intent, message string) core.TurnInput {
	return core.TurnInput{ProjectID: "p1", UserID: "u1", Intent: intent, Message: message}
}

func TestConversational_TerseInput_AsksClarifyingQuestions(t *testing.T) {
	gen := &stubGenerator{result: &core.GenerateResult{Text: "What problem are we solving?"}}
	c := NewConversational(gen, logging.NewNop())

	res, err := c.Invoke(context.Background(), workflow.ActionRespond,
		turnInput(core.IntentExploring, "auth ideas"), &core.ProjectState{ID: "p1"}, nil)

	require.NoError(t, err)
	assert.True(t, res.ShowToUser)
	assert.Equal(t, clarifyingQuestions, res.Metadata[core.MetaSuggestionCount])
	assert.Contains(t, gen.lastPrompt, "clarifying questions")
}

func TestConversational_DetailedInput_FewDeepSuggestions(t *testing.T) {
	gen := &stubGenerator{result: &core.GenerateResult{Text: "Two specific suggestions."}}
	c := NewConversational(gen, logging.NewNop())

	message := "We already use PostgreSQL and Redis, the API gateway issues JWTs with a 15 minute TTL, and sessions are stateless; I want to add refresh-token rotation without breaking mobile clients"
	res, err := c.Invoke(context.Background(), workflow.ActionRespond,
		turnInput(core.IntentDeciding, message), &core.ProjectState{ID: "p1"}, nil)

	require.NoError(t, err)
	assert.Equal(t, deepSuggestionLimit, res.Metadata[core.MetaSuggestionCount])
	assert.Contains(t, gen.lastPrompt, "deep, specific suggestions")
}

func TestConversational_FoldsAdvisoryNotesIntoReply(t *testing.T) {
	gen := &stubGenerator{result: &core.GenerateResult{Text: "Recorded your decision."}}
	c := NewConversational(gen, logging.NewNop())

	prior := []core.StepResult{
		{Agent: "verifier", Metadata: map[string]any{
			core.MetaApproved:         false,
			core.MetaVerificationNote: "JWT revocation needs a denylist",
		}},
		{Agent: "consistency_checker", Metadata: map[string]any{
			core.MetaConsistencyIssues: []string{"conflicts with session-cookie decision"},
		}},
	}
	res, err := c.Invoke(context.Background(), workflow.ActionRespond,
		turnInput(core.IntentDeciding, "use jwt"), &core.ProjectState{ID: "p1"}, prior)

	require.NoError(t, err)
	assert.Contains(t, res.Message, "Recorded your decision.")
	assert.Contains(t, res.Message, "JWT revocation needs a denylist")
	assert.Contains(t, res.Message, "conflicts with session-cookie decision")
}

func TestConversational_BackendFailure_IsCapabilityError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("connection refused")}
	c := NewConversational(gen, logging.NewNop())

	_, err := c.Invoke(context.Background(), workflow.ActionRespond,
		turnInput(core.IntentAsking, "status?"), &core.ProjectState{ID: "p1"}, nil)

	var capErr *core.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, core.CapabilityUpstreamFailure, capErr.Kind)
}

func TestConversational_EmptyBackendText_IsInvalidResponse(t *testing.T) {
	gen := &stubGenerator{result: &core.GenerateResult{Text: "   "}}
	c := NewConversational(gen, logging.NewNop())

	_, err := c.Invoke(context.Background(), workflow.ActionRespond,
		turnInput(core.IntentAsking, "status?"), &core.ProjectState{ID: "p1"}, nil)

	var capErr *core.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, core.CapabilityInvalidResponse, capErr.Kind)
}

func TestRecorder_StructuredExtraction(t *testing.T) {
	gen := &stubGenerator{result: &core.GenerateResult{
		Text: "Use JWT for auth",
		Metadata: map[string]any{
			core.MetaItem:       "Use JWT for auth",
			core.MetaConfidence: 0.85,
		},
	}}
	r := NewRecorder(gen, logging.NewNop())

	res, err := r.Invoke(context.Background(), workflow.ActionExtract,
		turnInput(core.IntentDeciding, "I want to use JWT for auth"), &core.ProjectState{ID: "p1"}, nil)

	require.NoError(t, err)
	assert.True(t, res.MetaBool(core.MetaShouldRecord))
	assert.Equal(t, "Use JWT for auth", res.MetaString(core.MetaItem))
	assert.Equal(t, string(core.ItemDecided), res.MetaString(core.MetaItemState))
	assert.Equal(t, 0.85, res.MetaFloat(core.MetaConfidence))
}

func TestRecorder_FallbackTrimsLeadIn(t *testing.T) {
	// Backend answered with prose but no structured item.
	gen := &stubGenerator{result: &core.GenerateResult{Text: "The user decided something."}}
	r := NewRecorder(gen, logging.NewNop())

	res, err := r.Invoke(context.Background(), workflow.ActionExtract,
		turnInput(core.IntentParking, "let's park the mobile app discussion"), &core.ProjectState{ID: "p1"}, nil)

	require.NoError(t, err)
	assert.True(t, res.MetaBool(core.MetaShouldRecord))
	assert.Equal(t, "park the mobile app discussion", res.MetaString(core.MetaItem))
	assert.Equal(t, string(core.ItemParked), res.MetaString(core.MetaItemState))
}

func TestRecorder_QuestionRecordsNothing(t *testing.T) {
	gen := &stubGenerator{result: &core.GenerateResult{Text: "irrelevant"}}
	r := NewRecorder(gen, logging.NewNop())

	res, err := r.Invoke(context.Background(), workflow.ActionExtract,
		turnInput(core.IntentDeciding, "should we use JWT?"), &core.ProjectState{ID: "p1"}, nil)

	require.NoError(t, err)
	assert.False(t, res.MetaBool(core.MetaShouldRecord))
	assert.Zero(t, gen.calls, "backend should not be called for a pure question")
}

func TestVerifier_MissingVerdict_IsInvalidResponse(t *testing.T) {
	gen := &stubGenerator{result: &core.GenerateResult{Text: "sounds plausible"}}
	v := NewVerifier(gen, logging.NewNop())

	_, err := v.Invoke(context.Background(), workflow.ActionVerify,
		turnInput(core.IntentDeciding, "use jwt"), &core.ProjectState{ID: "p1"}, nil)

	var capErr *core.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, core.CapabilityInvalidResponse, capErr.Kind)
}

func TestVerifier_UsesPriorItemAndReturnsVerdict(t *testing.T) {
	gen := &stubGenerator{result: &core.GenerateResult{
		Text:     "Holds for stateless APIs.",
		Metadata: map[string]any{core.MetaApproved: true},
	}}
	v := NewVerifier(gen, logging.NewNop())

	prior := []core.StepResult{{Agent: "recorder", Metadata: map[string]any{core.MetaItem: "Use JWT for auth"}}}
	res, err := v.Invoke(context.Background(), workflow.ActionVerify,
		turnInput(core.IntentDeciding, "I want JWT"), &core.ProjectState{ID: "p1"}, prior)

	require.NoError(t, err)
	assert.True(t, res.MetaBool(core.MetaApproved))
	assert.Equal(t, "Holds for stateless APIs.", res.MetaString(core.MetaVerificationNote))
	assert.Contains(t, gen.lastPrompt, "Use JWT for auth")
}

func TestAssumptionScanner_ParsesLineList(t *testing.T) {
	gen := &stubGenerator{result: &core.GenerateResult{
		Text: "- users have smartphones\n- network is reliable\n",
	}}
	s := NewAssumptionScanner(gen, logging.NewNop())

	res, err := s.Invoke(context.Background(), workflow.ActionScan,
		turnInput(core.IntentExploring, "mobile-first onboarding"), &core.ProjectState{ID: "p1"}, nil)

	require.NoError(t, err)
	assumptions, ok := res.Metadata[core.MetaAssumptions].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"users have smartphones", "network is reliable"}, assumptions)
}

func TestConsistencyChecker_NoDecisions_NoBackendCall(t *testing.T) {
	gen := &stubGenerator{result: &core.GenerateResult{Text: "consistent"}}
	c := NewConsistencyChecker(gen, logging.NewNop())

	res, err := c.Invoke(context.Background(), workflow.ActionCheck,
		turnInput(core.IntentDeciding, "use jwt"), &core.ProjectState{ID: "p1"}, nil)

	require.NoError(t, err)
	issues, ok := res.Metadata[core.MetaConsistencyIssues].([]string)
	require.True(t, ok)
	assert.Empty(t, issues)
	assert.Zero(t, gen.calls)
}

func TestConsistencyChecker_ConsistentAnswer(t *testing.T) {
	gen := &stubGenerator{result: &core.GenerateResult{Text: "consistent"}}
	c := NewConsistencyChecker(gen, logging.NewNop())
	state := &core.ProjectState{ID: "p1", Items: []core.Item{
		{ID: "i1", Text: "use session cookies", State: core.ItemDecided},
	}}

	res, err := c.Invoke(context.Background(), workflow.ActionCheck,
		turnInput(core.IntentDeciding, "add rate limiting"), state, nil)

	require.NoError(t, err)
	issues := res.Metadata[core.MetaConsistencyIssues].([]string)
	assert.Empty(t, issues)
	assert.Equal(t, 1, gen.calls)
}

func TestVersionTracker_Actions(t *testing.T) {
	tr := NewVersionTracker(logging.NewNop())
	state := &core.ProjectState{ID: "p1", Revision: 4, Items: []core.Item{
		{ID: "1", State: core.ItemDecided},
		{ID: "2", State: core.ItemParked},
	}}

	res, err := tr.Invoke(context.Background(), workflow.ActionSummarize,
		turnInput(core.IntentReviewing, "where are we?"), state, nil)
	require.NoError(t, err)
	note := res.MetaString(core.MetaRevisionNote)
	assert.Contains(t, note, "revision 4")
	assert.Contains(t, note, "1 decided")
	assert.Contains(t, note, "1 parked")

	_, err = tr.Invoke(context.Background(), "unknown",
		turnInput(core.IntentReviewing, "x"), state, nil)
	assert.Error(t, err)
}

func TestModeManager_MapsIntentToMode(t *testing.T) {
	m := NewModeManager(logging.NewNop())

	tests := []struct {
		intent core.Intent
		want   string
	}{
		{core.IntentReviewing, "review"},
		{core.IntentAsking, "organize"},
		{core.IntentExploring, "brainstorm"},
	}
	for _, tt := range tests {
		res, err := m.Invoke(context.Background(), workflow.ActionTrack,
			turnInput(tt.intent, "msg"), &core.ProjectState{ID: "p1"}, nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, res.MetaString(core.MetaMode))
	}
}

func TestRegistry_DuplicateNameRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewModeManager(logging.NewNop())))

	err := r.Register(NewModeManager(logging.NewNop()))
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatConfig))
}

func TestWire_RegistersAllBuiltinAgents(t *testing.T) {
	gen := &stubGenerator{result: &core.GenerateResult{Text: "ok"}}
	registry, err := Wire(gen, logging.NewNop())
	require.NoError(t, err)

	want := []string{
		workflow.AgentAssumptionScanner,
		workflow.AgentConsistency,
		workflow.AgentConversational,
		workflow.AgentModeManager,
		workflow.AgentRecorder,
		workflow.AgentVerifier,
		workflow.AgentVersionTracker,
	}
	got := registry.List()
	for _, name := range want {
		assert.True(t, contains(got, name), "missing capability %s", name)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestUnknownAction_AllGeneratorBackedAgents(t *testing.T) {
	gen := &stubGenerator{result: &core.GenerateResult{Text: "ok"}}
	log := logging.NewNop()
	input := turnInput(core.IntentAsking, "hello")
	state := &core.ProjectState{ID: "p1"}

	agentsUnderTest := []core.AgentCapability{
		NewConversational(gen, log),
		NewRecorder(gen, log),
		NewVerifier(gen, log),
		NewAssumptionScanner(gen, log),
		NewConsistencyChecker(gen, log),
	}
	for _, a := range agentsUnderTest {
		_, err := a.Invoke(context.Background(), "bogus_action", input, state, nil)
		var capErr *core.CapabilityError
		require.ErrorAs(t, err, &capErr, "agent %s", a.Name())
		assert.Equal(t, core.CapabilityInvalidResponse, capErr.Kind)
	}
}
