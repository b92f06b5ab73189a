package workflow

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
)

// Report is the outcome of executing one workflow. Results hold one entry
// per non-skipped step in declaration order; Skipped holds the steps whose
// condition evaluated false. Together they account for every declared step.
type Report struct {
	Results []core.StepResult
	Skipped []core.StepSpec
}

// Orchestrator executes workflow definitions phase by phase.
type Orchestrator struct {
	capabilities core.CapabilityRegistry
	stepTimeout  time.Duration
	logger       *logging.Logger
}

// OrchestratorOption configures the orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithStepTimeout bounds each capability invocation.
func WithStepTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.stepTimeout = d
		}
	}
}

// DefaultStepTimeout bounds a single capability invocation when the config
// does not override it.
const DefaultStepTimeout = 45 * time.Second

// NewOrchestrator creates an orchestrator over a capability registry.
func NewOrchestrator(capabilities core.CapabilityRegistry, logger *logging.Logger, opts ...OrchestratorOption) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Orchestrator{
		capabilities: capabilities,
		stepTimeout:  DefaultStepTimeout,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs a workflow for one turn.
//
// Phases run sequentially in declaration order. Within a concurrent phase
// every non-skipped step is dispatched before any is awaited, then all are
// awaited before the next phase starts. A capability failure is captured
// on its StepResult and never aborts the phase or the workflow; each
// non-skipped step is invoked exactly once, with no retries at this layer.
// The returned Results are in declaration order regardless of completion
// order.
func (o *Orchestrator) Execute(ctx context.Context, def *core.WorkflowDefinition, input core.TurnInput, state *core.ProjectState) (*Report, error) {
	if def == nil {
		return nil, core.ErrConfig(core.CodeEmptyWorkflow, "nil workflow definition")
	}

	log := o.logger.WithProject(input.ProjectID).WithIntent(string(def.Intent))
	report := &Report{}

	for phaseIdx, phase := range def.Phases() {
		// Resolve conditions against everything accumulated so far. The
		// slice is frozen for this phase: same-phase siblings never see
		// each other's output.
		prior := report.Results

		type slot struct {
			spec core.StepSpec
			run  bool
		}
		slots := make([]slot, len(phase))
		for i, step := range phase {
			run := step.Condition == nil || step.Condition.Holds(prior)
			slots[i] = slot{spec: step, run: run}
			if !run {
				report.Skipped = append(report.Skipped, step)
				log.Debug("step skipped",
					"step", step.Name(),
					"condition", step.Condition.String(),
					"phase", phaseIdx,
				)
			}
		}

		// Fan out all runnable steps of the phase, then fan in. Results
		// land in declaration slots, never in completion order.
		results := make([]*core.StepResult, len(phase))
		g, gctx := errgroup.WithContext(ctx)
		for i := range slots {
			if !slots[i].run {
				continue
			}
			i := i
			step := slots[i].spec
			g.Go(func() error {
				res := o.invoke(gctx, step, input, state, prior)
				results[i] = &res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			// Goroutines only record failures on their StepResult; the
			// group can only fail if the turn context itself is done.
			return nil, err
		}

		for _, res := range results {
			if res != nil {
				report.Results = append(report.Results, *res)
			}
		}
	}

	log.Debug("workflow executed",
		"steps", len(def.Steps),
		"results", len(report.Results),
		"skipped", len(report.Skipped),
	)
	return report, nil
}

// invoke resolves and calls one capability under the bounded step timeout,
// translating every failure mode into a captured StepResult.
func (o *Orchestrator) invoke(ctx context.Context, step core.StepSpec, input core.TurnInput, state *core.ProjectState, prior []core.StepResult) core.StepResult {
	capability, err := o.capabilities.Get(step.Agent)
	if err != nil {
		o.logger.Error("unknown capability", "step", step.Name(), "error", err)
		return failedResult(step, core.NewCapabilityError(core.CapabilityUpstreamFailure, step.Agent, step.Action, err))
	}

	stepCtx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()

	start := time.Now()
	res, err := capability.Invoke(stepCtx, step.Action, input, state, prior)
	if err != nil {
		capErr := asCapabilityError(step, err)
		o.logger.Warn("capability failed",
			"step", step.Name(),
			"kind", string(capErr.Kind),
			"duration", time.Since(start),
			"error", err,
		)
		return failedResult(step, capErr)
	}

	res.Agent = step.Agent
	res.Action = step.Action
	return res
}

func failedResult(step core.StepSpec, capErr *core.CapabilityError) core.StepResult {
	return core.StepResult{
		Agent:      step.Agent,
		Action:     step.Action,
		ShowToUser: false,
		Err:        capErr,
	}
}

// asCapabilityError normalizes an invocation error. Context expiry maps to
// the timeout kind; anything untyped counts as an upstream failure.
func asCapabilityError(step core.StepSpec, err error) *core.CapabilityError {
	var capErr *core.CapabilityError
	if errors.As(err, &capErr) {
		return capErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return core.NewCapabilityError(core.CapabilityTimeout, step.Agent, step.Action, err)
	}
	return core.NewCapabilityError(core.CapabilityUpstreamFailure, step.Agent, step.Action, err)
}
