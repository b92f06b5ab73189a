// Package reconcile merges capability outputs into the append-only
// project item list.
package reconcile

import (
	"time"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
)

// Reconciler applies StepResults to project state. It is append-only and
// idempotent: items are never mutated, and re-applying an identical result
// set against the updated state creates nothing new.
type Reconciler struct {
	logger *logging.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures the reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithIDGenerator overrides item/event ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(r *Reconciler) { r.newID = gen }
}

// New creates a reconciler.
func New(logger *logging.Logger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Reconciler{
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply merges results into the state and returns the new state plus one
// ActivityEvent per StepResult. The input state is never mutated.
//
// Recording is unconditional on any other step's approval metadata: a
// verifier's disapproval is advisory, never a gate. The only thing that
// suppresses a record is an exact normalized duplicate among active items
// of the same lifecycle state.
func (r *Reconciler) Apply(state *core.ProjectState, results []core.StepResult, userMessage string) (*core.ProjectState, []core.ActivityEvent) {
	next := state.Clone()
	events := make([]core.ActivityEvent, 0, len(results))

	recorded := 0
	for _, res := range results {
		events = append(events, r.applyOne(next, res, userMessage, &recorded))
	}
	if recorded > 0 {
		next.Revision++
	}

	r.logger.WithProject(state.ID).Debug("reconciled turn",
		"results", len(results),
		"recorded", recorded,
		"revision", next.Revision,
	)
	return next, events
}

// applyOne processes a single result against the evolving state and
// returns its audit event. Results within one turn see the items appended
// by earlier results of the same turn, so a workflow cannot record the
// same text twice in one pass.
func (r *Reconciler) applyOne(state *core.ProjectState, res core.StepResult, userMessage string, recorded *int) core.ActivityEvent {
	event := core.ActivityEvent{
		ID:        r.newID(),
		ProjectID: state.ID,
		Agent:     res.Agent,
		Action:    res.Action,
		CreatedAt: r.now(),
		Details: map[string]any{
			"outcome":      core.ActivityExecuted,
			"show_to_user": res.ShowToUser,
		},
	}

	if res.Failed() {
		event.Details["outcome"] = core.ActivityFailed
		event.Details["error_kind"] = string(res.Err.Kind)
		return event
	}

	if !res.MetaBool(core.MetaShouldRecord) {
		return event
	}

	text := res.MetaString(core.MetaItem)
	if text == "" {
		// A recorder claiming should_record without an item is a contract
		// violation worth surfacing in the audit trail.
		event.Details["outcome"] = core.ActivityFailed
		event.Details["error_kind"] = string(core.CapabilityInvalidResponse)
		return event
	}

	itemState, err := core.ParseItemState(res.MetaString(core.MetaItemState))
	if err != nil {
		itemState = core.ItemExploring
	}

	normalized := Normalize(text)
	if dup, ok := findDuplicate(state, normalized, itemState); ok {
		event.Details["outcome"] = core.ActivityDuplicateSuppressed
		event.Details["duplicate_of"] = dup.ID
		r.logger.WithProject(state.ID).Info("duplicate item suppressed",
			"agent", res.Agent,
			"existing_item", dup.ID,
		)
		return event
	}

	item := core.Item{
		ID:    r.newID(),
		Text:  text,
		State: itemState,
		Citation: &core.Citation{
			UserQuote:  userMessage,
			Timestamp:  r.now(),
			Confidence: res.MetaFloat(core.MetaConfidence),
		},
		IsArchived: false,
		CreatedAt:  r.now(),
	}
	state.Items = append(state.Items, item)
	*recorded++

	event.Details["outcome"] = core.ActivityRecorded
	event.Details["item_id"] = item.ID
	event.Details["item_state"] = string(itemState)
	if similar := nearMatches(state, normalized, item.ID, itemState); len(similar) > 0 {
		// Advisory only. Near misses never suppress a record.
		event.Details["similar_items"] = similar
	}
	return event
}

// SkipEvent builds the audit event for a step whose condition evaluated
// false. Skipped steps never reach Apply (they have no StepResult), so the
// coordinator requests their events separately.
func (r *Reconciler) SkipEvent(projectID string, step core.StepSpec) core.ActivityEvent {
	return core.ActivityEvent{
		ID:        r.newID(),
		ProjectID: projectID,
		Agent:     step.Agent,
		Action:    step.Action,
		CreatedAt: r.now(),
		Details: map[string]any{
			"outcome":   core.ActivitySkipped,
			"condition": step.Condition.String(),
		},
	}
}

// findDuplicate looks for an active item of the same state whose
// normalized text matches exactly.
func findDuplicate(state *core.ProjectState, normalized string, itemState core.ItemState) (*core.Item, bool) {
	for i := range state.Items {
		it := &state.Items[i]
		if it.IsArchived || it.State != itemState {
			continue
		}
		if Normalize(it.Text) == normalized {
			return it, true
		}
	}
	return nil, false
}

// nearMatches returns IDs of active same-state items whose text fuzzily
// contains the candidate. Used purely as an advisory audit detail.
func nearMatches(state *core.ProjectState, normalized string, excludeID string, itemState core.ItemState) []string {
	var texts []string
	var ids []string
	for i := range state.Items {
		it := &state.Items[i]
		if it.IsArchived || it.State != itemState || it.ID == excludeID {
			continue
		}
		texts = append(texts, Normalize(it.Text))
		ids = append(ids, it.ID)
	}
	if len(texts) == 0 {
		return nil
	}

	var out []string
	for _, m := range fuzzy.Find(normalized, texts) {
		out = append(out, ids[m.Index])
	}
	return out
}
