package reconcile

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
)

func newTestReconciler() *Reconciler {
	seq := 0
	return New(logging.NewNop(),
		WithClock(func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		}),
	)
}

func recordingResult(text string, state core.ItemState) core.StepResult {
	return core.StepResult{
		Agent:  "recorder",
		Action: "extract",
		Metadata: map[string]any{
			core.MetaShouldRecord: true,
			core.MetaItem:         text,
			core.MetaItemState:    string(state),
			core.MetaConfidence:   0.9,
		},
	}
}

func TestApply_RecordsItemWithCitation(t *testing.T) {
	r := newTestReconciler()
	state := &core.ProjectState{ID: "p1"}

	next, events := r.Apply(state, []core.StepResult{
		recordingResult("Use JWT for auth", core.ItemDecided),
	}, "I want to use JWT for auth")

	require.Len(t, next.Items, 1)
	item := next.Items[0]
	assert.Equal(t, "Use JWT for auth", item.Text)
	assert.Equal(t, core.ItemDecided, item.State)
	assert.False(t, item.IsArchived)
	require.NotNil(t, item.Citation)
	assert.Equal(t, "I want to use JWT for auth", item.Citation.UserQuote)
	assert.Equal(t, 0.9, item.Citation.Confidence)
	assert.Equal(t, 1, next.Revision)

	require.Len(t, events, 1)
	assert.Equal(t, core.ActivityRecorded, events[0].Details["outcome"])
}

func TestApply_RecordingUnconditionalOnDisapproval(t *testing.T) {
	// Scenario: a verifier disapproves the decision. Recording must still
	// happen; disapproval is advisory metadata, not a gate.
	r := newTestReconciler()
	state := &core.ProjectState{ID: "p1"}

	results := []core.StepResult{
		recordingResult("Use JWT for auth", core.ItemDecided),
		{
			Agent:  "verifier",
			Action: "verify",
			Metadata: map[string]any{
				core.MetaApproved:         false,
				core.MetaVerificationNote: "JWT revocation is hard",
			},
		},
	}

	next, events := r.Apply(state, results, "I want to use JWT for auth")

	require.Len(t, next.Items, 1)
	assert.Contains(t, next.Items[0].Text, "JWT")
	assert.Equal(t, core.ItemDecided, next.Items[0].State)
	assert.Len(t, events, 2)
}

func TestApply_Idempotent(t *testing.T) {
	r := newTestReconciler()
	state := &core.ProjectState{ID: "p1"}
	results := []core.StepResult{recordingResult("use postgres", core.ItemDecided)}

	once, _ := r.Apply(state, results, "use postgres")
	twice, events := r.Apply(once, results, "use postgres")

	assert.Len(t, twice.Items, 1)
	assert.Equal(t, once.Revision, twice.Revision)

	require.Len(t, events, 1)
	assert.Equal(t, core.ActivityDuplicateSuppressed, events[0].Details["outcome"])
	assert.Equal(t, once.Items[0].ID, events[0].Details["duplicate_of"])
}

func TestApply_DuplicateAcrossTurns_SuppressedWithEvent(t *testing.T) {
	// Scenario: the same decision text arrives in two separate turns.
	r := newTestReconciler()
	state := &core.ProjectState{ID: "p1"}

	turn1, _ := r.Apply(state, []core.StepResult{recordingResult("Use JWT for auth", core.ItemDecided)}, "use jwt")
	turn2, events := r.Apply(turn1, []core.StepResult{recordingResult("use jwt, for AUTH!", core.ItemDecided)}, "use jwt again")

	assert.Len(t, turn2.ActiveItems(core.ItemDecided), 1)
	require.Len(t, events, 1)
	assert.Equal(t, core.ActivityDuplicateSuppressed, events[0].Details["outcome"])
}

func TestApply_SameTextDifferentState_NotADuplicate(t *testing.T) {
	r := newTestReconciler()
	state := &core.ProjectState{ID: "p1"}

	turn1, _ := r.Apply(state, []core.StepResult{recordingResult("graphql api", core.ItemExploring)}, "m1")
	turn2, _ := r.Apply(turn1, []core.StepResult{recordingResult("graphql api", core.ItemDecided)}, "m2")

	assert.Len(t, turn2.Items, 2)
}

func TestApply_ArchivedDuplicateDoesNotSuppress(t *testing.T) {
	r := newTestReconciler()
	state := &core.ProjectState{ID: "p1", Items: []core.Item{
		{ID: "old", Text: "use jwt for auth", State: core.ItemDecided, IsArchived: true},
	}}

	next, events := r.Apply(state, []core.StepResult{recordingResult("use jwt for auth", core.ItemDecided)}, "m")

	assert.Len(t, next.Items, 2)
	assert.Equal(t, core.ActivityRecorded, events[0].Details["outcome"])
}

func TestApply_OneEventPerResult(t *testing.T) {
	r := newTestReconciler()
	state := &core.ProjectState{ID: "p1"}

	results := []core.StepResult{
		recordingResult("a decision", core.ItemDecided),
		{Agent: "conversational", Action: "respond", Message: "ok", ShowToUser: true},
		{Agent: "consistency_checker", Action: "check", Err: core.NewCapabilityError(core.CapabilityTimeout, "consistency_checker", "check", nil)},
	}

	_, events := r.Apply(state, results, "m")

	require.Len(t, events, len(results))
	assert.Equal(t, core.ActivityRecorded, events[0].Details["outcome"])
	assert.Equal(t, core.ActivityExecuted, events[1].Details["outcome"])
	assert.Equal(t, core.ActivityFailed, events[2].Details["outcome"])
	assert.Equal(t, "timeout", events[2].Details["error_kind"])
}

func TestApply_DoesNotMutateInputState(t *testing.T) {
	r := newTestReconciler()
	state := &core.ProjectState{ID: "p1", Items: []core.Item{
		{ID: "i1", Text: "existing", State: core.ItemDecided},
	}}

	next, _ := r.Apply(state, []core.StepResult{recordingResult("new item", core.ItemDecided)}, "m")

	assert.Len(t, state.Items, 1, "input state was mutated")
	assert.Len(t, next.Items, 2)
	assert.Equal(t, 0, state.Revision)
}

func TestApply_ExistingItemsNeverEdited(t *testing.T) {
	r := newTestReconciler()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	state := &core.ProjectState{ID: "p1", Items: []core.Item{
		{ID: "i1", Text: "keep me", State: core.ItemDecided, CreatedAt: created},
	}}

	next, _ := r.Apply(state, []core.StepResult{recordingResult("brand new", core.ItemDecided)}, "m")

	assert.Equal(t, "keep me", next.Items[0].Text)
	assert.Equal(t, created, next.Items[0].CreatedAt)
}

func TestApply_MissingItemText_AuditedAsFailure(t *testing.T) {
	r := newTestReconciler()
	state := &core.ProjectState{ID: "p1"}

	res := core.StepResult{
		Agent:    "recorder",
		Action:   "extract",
		Metadata: map[string]any{core.MetaShouldRecord: true},
	}
	next, events := r.Apply(state, []core.StepResult{res}, "m")

	assert.Empty(t, next.Items)
	require.Len(t, events, 1)
	assert.Equal(t, core.ActivityFailed, events[0].Details["outcome"])
}

func TestApply_InvalidItemState_FallsBackToExploring(t *testing.T) {
	r := newTestReconciler()
	state := &core.ProjectState{ID: "p1"}

	res := recordingResult("some idea", core.ItemState("unknown"))
	next, _ := r.Apply(state, []core.StepResult{res}, "m")

	require.Len(t, next.Items, 1)
	assert.Equal(t, core.ItemExploring, next.Items[0].State)
}

func TestSkipEvent(t *testing.T) {
	r := newTestReconciler()
	step := core.StepSpec{
		Agent:     "verifier",
		Action:    "verify",
		Condition: &core.Condition{Key: core.MetaShouldRecord, Equals: true},
	}

	event := r.SkipEvent("p1", step)

	assert.Equal(t, "verifier", event.Agent)
	assert.Equal(t, core.ActivitySkipped, event.Details["outcome"])
	assert.Contains(t, event.Details["condition"], core.MetaShouldRecord)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Use JWT for auth", "use jwt for auth"},
		{"  use   JWT,  for auth!  ", "use jwt for auth"},
		{"USE-JWT-FOR-AUTH", "use jwt for auth"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_EquivalenceClasses(t *testing.T) {
	variants := []string{
		"Use JWT for auth",
		"use jwt for auth.",
		"Use  JWT   for  auth",
		"use JWT, for AUTH!",
	}
	base := Normalize(variants[0])
	for _, v := range variants[1:] {
		if Normalize(v) != base {
			t.Errorf("Normalize(%q) = %q, want %q", v, Normalize(v), base)
		}
	}

	distinct := Normalize("use oauth for auth")
	if distinct == base {
		t.Errorf("distinct texts normalized to same form %q", base)
	}
}
