package state

import (
	"context"
	"sync"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
)

// MemoryStore implements core.ProjectStateStore and core.PersistenceSink
// in process memory. Used by tests and ephemeral one-shot runs.
type MemoryStore struct {
	mu        sync.RWMutex
	items     map[string][]core.Item
	revisions map[string]int
	messages  map[string][]core.ChatMessage
	activity  map[string][]core.ActivityEvent
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:     make(map[string][]core.Item),
		revisions: make(map[string]int),
		messages:  make(map[string][]core.ChatMessage),
		activity:  make(map[string][]core.ActivityEvent),
	}
}

// Fetch implements core.ProjectStateStore.
func (m *MemoryStore) Fetch(_ context.Context, projectID string) (*core.ProjectState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state := &core.ProjectState{ID: projectID, Revision: m.revisions[projectID]}
	state.Items = append(state.Items, m.items[projectID]...)
	return state, nil
}

// Append implements core.ProjectStateStore.
func (m *MemoryStore) Append(_ context.Context, projectID string, items []core.Item) error {
	if len(items) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing := make(map[string]bool, len(m.items[projectID]))
	for _, it := range m.items[projectID] {
		existing[it.ID] = true
	}
	added := 0
	for _, it := range items {
		if !existing[it.ID] {
			m.items[projectID] = append(m.items[projectID], it)
			existing[it.ID] = true
			added++
		}
	}
	if added > 0 {
		m.revisions[projectID]++
	}
	return nil
}

// WriteMessages implements core.PersistenceSink.
func (m *MemoryStore) WriteMessages(_ context.Context, msgs []core.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		m.messages[msg.ProjectID] = append(m.messages[msg.ProjectID], msg)
	}
	return nil
}

// WriteActivity implements core.PersistenceSink.
func (m *MemoryStore) WriteActivity(_ context.Context, events []core.ActivityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range events {
		m.activity[ev.ProjectID] = append(m.activity[ev.ProjectID], ev)
	}
	return nil
}

// ListActivity returns a project's recorded activity, oldest first.
func (m *MemoryStore) ListActivity(_ context.Context, projectID string, limit int) ([]core.ActivityEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := m.activity[projectID]
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]core.ActivityEvent, len(events))
	copy(out, events)
	return out, nil
}

// ListMessages returns a project's chat history, oldest first.
func (m *MemoryStore) ListMessages(_ context.Context, projectID string, limit int) ([]core.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.messages[projectID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]core.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}
