package service

import (
	"context"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/events"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
)

// PersistenceWorker drains chat and activity events off the bus into the
// sink. It runs until its context is canceled or the bus closes; sink
// failures are logged and dropped, never surfaced to a turn.
type PersistenceWorker struct {
	sink   core.PersistenceSink
	bus    *events.Bus
	logger *logging.Logger
}

// NewPersistenceWorker creates the background persistence worker.
func NewPersistenceWorker(sink core.PersistenceSink, bus *events.Bus, logger *logging.Logger) *PersistenceWorker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PersistenceWorker{sink: sink, bus: bus, logger: logger}
}

// Run blocks draining the bus. Call it in its own goroutine.
func (w *PersistenceWorker) Run(ctx context.Context) {
	ch := w.bus.Subscribe(events.TypeActivity, events.TypeChatMessage)
	defer w.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			w.handle(ctx, ev)
		}
	}
}

func (w *PersistenceWorker) handle(ctx context.Context, ev events.Event) {
	switch e := ev.(type) {
	case events.ActivityRecordedEvent:
		if err := w.sink.WriteActivity(ctx, []core.ActivityEvent{e.Activity}); err != nil {
			w.logger.Warn("activity write failed",
				"project_id", e.ProjectID(), "error", err)
		}
	case events.ChatMessageEvent:
		if err := w.sink.WriteMessages(ctx, []core.ChatMessage{e.Message}); err != nil {
			w.logger.Warn("chat message write failed",
				"project_id", e.ProjectID(), "error", err)
		}
	}
}
