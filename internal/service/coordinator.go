package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/events"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/reconcile"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/workflow"
)

// fallbackMessage is the single generic reply for turns that cannot run a
// workflow or whose every visible step failed. The user always hears
// something.
const fallbackMessage = "I couldn't fully process that turn. Nothing was lost; please try rephrasing."

// Coordinator runs one conversation turn end to end. It owns the
// sequencing described by the turn pipeline: context fetch, classify,
// workflow lookup, execution, reconciliation, persistence.
type Coordinator struct {
	classifier   *Classifier
	registry     *workflow.Registry
	orchestrator *workflow.Orchestrator
	reconciler   *reconcile.Reconciler
	states       core.ProjectStateStore
	references   core.ReferenceStore
	documents    core.DocumentStore
	bus          *events.Bus
	logger       *logging.Logger
}

// CoordinatorDeps names the collaborators a Coordinator needs.
type CoordinatorDeps struct {
	Classifier   *Classifier
	Registry     *workflow.Registry
	Orchestrator *workflow.Orchestrator
	Reconciler   *reconcile.Reconciler
	States       core.ProjectStateStore
	References   core.ReferenceStore // optional
	Documents    core.DocumentStore  // optional
	Bus          *events.Bus
	Logger       *logging.Logger
}

// NewCoordinator creates the coordination service.
func NewCoordinator(deps CoordinatorDeps) *Coordinator {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		classifier:   deps.Classifier,
		registry:     deps.Registry,
		orchestrator: deps.Orchestrator,
		reconciler:   deps.Reconciler,
		states:       deps.States,
		references:   deps.References,
		documents:    deps.Documents,
		bus:          deps.Bus,
		logger:       logger,
	}
}

// Process handles one user turn. The only error it returns is a
// persistence failure of the synchronous state append; everything else
// degrades inside the turn and still yields at least one message.
func (c *Coordinator) Process(ctx context.Context, projectID, userID, message string) (*core.TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, core.ErrValidation(core.CodeEmptyMessage, "message is empty")
	}
	if len(message) > core.MaxMessageLength {
		return nil, core.ErrValidation(core.CodeMessageTooLong, "message exceeds maximum length")
	}

	turnID := uuid.NewString()
	log := c.logger.WithProject(projectID).WithTurn(turnID)
	started := time.Now()

	state, references, documents := c.fetchContext(ctx, projectID, log)

	intent, confidence := c.classifier.Classify(ctx, message, nil)
	log = log.WithIntent(string(intent))
	log.Info("turn started", "confidence", confidence)
	c.publish(events.NewTurnStartedEvent(projectID, userID, intent))

	input := core.TurnInput{
		ProjectID:  projectID,
		UserID:     userID,
		Message:    message,
		Intent:     intent,
		References: references,
		Documents:  documents,
	}

	def, err := c.registry.Lookup(intent)
	if err != nil {
		// No workflow for this intent is a deployment problem, not the
		// user's. One generic message, loudly logged.
		log.Error("no workflow registered for intent", "error", err)
		c.publish(events.NewTurnFailedEvent(projectID, "unregistered intent "+string(intent)))
		c.persistChat(projectID, userID, message, []string{fallbackMessage})
		return &core.TurnResult{Messages: []string{fallbackMessage}, UpdatedState: state}, nil
	}

	report, err := c.orchestrator.Execute(ctx, def, input, state)
	if err != nil {
		c.publish(events.NewTurnFailedEvent(projectID, err.Error()))
		return nil, err
	}

	newState, activity := c.reconciler.Apply(state, report.Results, message)
	for _, step := range report.Skipped {
		activity = append(activity, c.reconciler.SkipEvent(projectID, step))
	}

	messages := visibleMessages(report.Results)
	if len(messages) == 0 {
		log.Warn("every visible step failed, falling back to generic message")
		messages = []string{fallbackMessage}
	}

	// The state append is the one write the user's turn depends on.
	if appended := newItems(state, newState); len(appended) > 0 {
		if err := c.states.Append(ctx, projectID, appended); err != nil {
			log.Error("state append failed", "items", len(appended), "error", err)
			c.publish(events.NewTurnFailedEvent(projectID, "state append failed"))
			return nil, core.ErrPersistence(core.CodeStateAppendFailed,
				"could not durably record new items").WithCause(err)
		}
	}

	for _, ev := range activity {
		c.publish(events.NewActivityRecordedEvent(ev))
	}
	c.persistChat(projectID, userID, message, messages)

	failed := 0
	for _, r := range report.Results {
		if r.Failed() {
			failed++
		}
	}
	c.publish(events.NewTurnCompletedEvent(projectID, intent,
		len(report.Results), len(report.Skipped), failed, time.Since(started)))
	log.Info("turn completed",
		"steps_executed", len(report.Results),
		"steps_skipped", len(report.Skipped),
		"steps_failed", failed,
		"duration_ms", time.Since(started).Milliseconds())

	return &core.TurnResult{Messages: messages, UpdatedState: newState}, nil
}

// fetchContext loads state, references, and documents concurrently. Each
// fetch degrades independently to an empty default; a slow or broken
// library store never takes the turn down with it.
func (c *Coordinator) fetchContext(ctx context.Context, projectID string, log *logging.Logger) (*core.ProjectState, []core.ReferenceSummary, []core.DocumentSummary) {
	state := &core.ProjectState{ID: projectID}
	var references []core.ReferenceSummary
	var documents []core.DocumentSummary

	var g errgroup.Group
	g.Go(func() error {
		fetched, err := c.states.Fetch(ctx, projectID)
		if err != nil {
			log.Warn("state fetch failed, using empty state", "error", err)
			return nil
		}
		state = fetched
		return nil
	})
	g.Go(func() error {
		if c.references == nil {
			return nil
		}
		fetched, err := c.references.FetchForProject(ctx, projectID)
		if err != nil {
			log.Warn("reference fetch failed, continuing without", "error", err)
			return nil
		}
		references = fetched
		return nil
	})
	g.Go(func() error {
		if c.documents == nil {
			return nil
		}
		fetched, err := c.documents.FetchForProject(ctx, projectID)
		if err != nil {
			log.Warn("document fetch failed, continuing without", "error", err)
			return nil
		}
		documents = fetched
		return nil
	})
	_ = g.Wait() // goroutines always return nil

	return state, references, documents
}

// persistChat publishes the turn's chat messages for the background
// worker. Fire-and-forget by construction: Publish never blocks.
func (c *Coordinator) persistChat(projectID, userID, userMessage string, replies []string) {
	if c.bus == nil {
		return
	}
	now := time.Now().UTC()
	c.bus.Publish(events.NewChatMessageEvent(core.ChatMessage{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		UserID:    userID,
		Role:      "user",
		Content:   userMessage,
		CreatedAt: now,
	}))
	for _, reply := range replies {
		c.bus.Publish(events.NewChatMessageEvent(core.ChatMessage{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			Role:      "assistant",
			Content:   reply,
			CreatedAt: now,
		}))
	}
}

func (c *Coordinator) publish(ev events.Event) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}

// visibleMessages collects user-facing messages in declared order.
func visibleMessages(results []core.StepResult) []string {
	var out []string
	for _, r := range results {
		if r.ShowToUser && !r.Failed() && strings.TrimSpace(r.Message) != "" {
			out = append(out, r.Message)
		}
	}
	return out
}

// newItems returns the items present in after but not in before. The
// reconciler only ever appends, so the tail past before's length is
// exactly the new set.
func newItems(before, after *core.ProjectState) []core.Item {
	if len(after.Items) <= len(before.Items) {
		return nil
	}
	return after.Items[len(before.Items):]
}
