// Package workflow holds the declarative workflow table and the engine
// that executes one workflow for one conversation turn.
package workflow

import (
	"fmt"
	"sync"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
)

// Registry maps intents to validated workflow definitions. Definitions are
// registered at startup and immutable afterwards.
type Registry struct {
	mu        sync.RWMutex
	workflows map[core.Intent]*core.WorkflowDefinition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		workflows: make(map[core.Intent]*core.WorkflowDefinition),
	}
}

// Register validates a definition and binds it to its intent. Registering
// the same intent twice replaces the previous definition; validation
// failures leave the registry unchanged.
func (r *Registry) Register(def *core.WorkflowDefinition) error {
	if err := Validate(def); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[def.Intent] = def
	return nil
}

// Lookup returns the workflow for an intent. An unregistered intent is a
// config error: the caller falls back to a generic turn and the failure is
// logged, never silently swallowed.
func (r *Registry) Lookup(intent core.Intent) (*core.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.workflows[intent]
	if !ok {
		return nil, core.ErrConfig(core.CodeUnregisteredIntent,
			fmt.Sprintf("no workflow registered for intent %q", intent))
	}
	return def, nil
}

// Intents returns the intents with registered workflows.
func (r *Registry) Intents() []core.Intent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]core.Intent, 0, len(r.workflows))
	for _, intent := range core.AllIntents() {
		if _, ok := r.workflows[intent]; ok {
			out = append(out, intent)
		}
	}
	return out
}

// Validate checks a definition statically. The important rule: a step
// condition may only reference metadata keys that some step in an earlier
// phase documents in Produces. A condition referencing a key no prior step
// can ever populate would silently disable its step on every turn, so it
// is rejected at registration time instead.
func Validate(def *core.WorkflowDefinition) error {
	if def == nil || !core.ValidIntent(def.Intent) {
		return core.ErrConfig(core.CodeUnknownIntent, "workflow has no valid intent")
	}
	if len(def.Steps) == 0 {
		return core.ErrConfig(core.CodeEmptyWorkflow,
			fmt.Sprintf("workflow for intent %q declares no steps", def.Intent))
	}

	for i, step := range def.Steps {
		if step.Agent == "" || step.Action == "" {
			return core.ErrConfig(core.CodeUnknownAgent,
				fmt.Sprintf("step %d of intent %q is missing agent or action", i, def.Intent))
		}
	}

	// Walk phases in order, accumulating the producible key set, and check
	// each condition against keys producible strictly before its phase.
	produced := make(map[string]bool)
	for _, phase := range def.Phases() {
		for _, step := range phase {
			if step.Condition == nil {
				continue
			}
			if step.Condition.Key == "" {
				return core.ErrConfig(core.CodeUnboundCondition,
					fmt.Sprintf("step %s of intent %q has a condition without a key", step.Name(), def.Intent))
			}
			if !produced[step.Condition.Key] {
				return core.ErrConfig(core.CodeUnboundCondition,
					fmt.Sprintf("step %s of intent %q gates on %q, which no earlier step produces",
						step.Name(), def.Intent, step.Condition.Key)).
					WithDetail("step", step.Name()).
					WithDetail("key", step.Condition.Key)
			}
		}
		for _, step := range phase {
			for _, key := range step.Produces {
				produced[key] = true
			}
		}
	}
	return nil
}
