package cmd

import (
	"fmt"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/adapters/generator"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/adapters/library"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/adapters/state"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/agents"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/config"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/events"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/reconcile"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/service"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/workflow"
)

// engine bundles everything a command needs to process turns.
type engine struct {
	coordinator *service.Coordinator
	worker      *service.PersistenceWorker
	store       state.Store
	library     *library.Library
	bus         *events.Bus
	logger      *logging.Logger
}

// buildEngine assembles the turn pipeline from configuration.
func buildEngine(cfg *config.Config) (*engine, error) {
	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	store, err := state.New(cfg.State.Backend, cfg.State.Path)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	gen, err := generator.New(cfg.Generator.Backend, cfg.Generator.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	capabilities, err := agents.Wire(gen, logger)
	if err != nil {
		return nil, fmt.Errorf("wiring capabilities: %w", err)
	}

	registry, err := workflow.BuiltinWithOverrides(cfg.Workflow.OverridesFile)
	if err != nil {
		return nil, fmt.Errorf("loading workflows: %w", err)
	}

	lib, err := library.New(cfg.Library.Root, logger)
	if err != nil {
		return nil, fmt.Errorf("opening library: %w", err)
	}

	bus := events.New(cfg.Events.BufferSize)

	coordinator := service.NewCoordinator(service.CoordinatorDeps{
		Classifier: service.NewClassifier(gen, logger),
		Registry:   registry,
		Orchestrator: workflow.NewOrchestrator(capabilities, logger,
			workflow.WithStepTimeout(cfg.Workflow.StepTimeoutDuration())),
		Reconciler: reconcile.New(logger),
		States:     store,
		References: lib,
		Documents:  lib.Documents(),
		Bus:        bus,
		Logger:     logger,
	})

	return &engine{
		coordinator: coordinator,
		worker:      service.NewPersistenceWorker(store, bus, logger),
		store:       store,
		library:     lib,
		bus:         bus,
		logger:      logger,
	}, nil
}

// close releases the engine's resources.
func (e *engine) close() {
	e.bus.Close()
	_ = e.library.Close()
	_ = state.CloseStore(e.store)
}
