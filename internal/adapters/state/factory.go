package state

import (
	"context"
	"fmt"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
)

// Store is the full surface the engine needs from a durable backend:
// project state, the persistence sink, and the query side used by the
// HTTP layer.
type Store interface {
	core.ProjectStateStore
	core.PersistenceSink
	ActivityReader
}

// ActivityReader exposes the query side of the audit trail and chat log.
type ActivityReader interface {
	ListActivity(ctx context.Context, projectID string, limit int) ([]core.ActivityEvent, error)
	ListMessages(ctx context.Context, projectID string, limit int) ([]core.ChatMessage, error)
}

// New creates a Store for the given backend name: "sqlite", "json", or
// "memory". path is the database file (sqlite) or directory (json).
func New(backend, path string) (Store, error) {
	switch backend {
	case "sqlite", "":
		return NewSQLiteStore(path)
	case "json":
		store, err := NewJSONStore(path)
		if err != nil {
			return nil, err
		}
		// JSON keeps state on disk but the chat/activity side in memory.
		return &jsonWithMemorySink{JSONStore: store, MemoryStore: NewMemoryStore()}, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", backend)
	}
}

// jsonWithMemorySink pairs the durable JSON item store with an in-memory
// sink for the fire-and-forget writes.
type jsonWithMemorySink struct {
	*JSONStore
	*MemoryStore
}

// Fetch resolves the embedding ambiguity in favor of the durable store.
func (s *jsonWithMemorySink) Fetch(ctx context.Context, projectID string) (*core.ProjectState, error) {
	return s.JSONStore.Fetch(ctx, projectID)
}

// Append resolves the embedding ambiguity in favor of the durable store.
func (s *jsonWithMemorySink) Append(ctx context.Context, projectID string, items []core.Item) error {
	return s.JSONStore.Append(ctx, projectID, items)
}

// Closeable is an optional interface for stores that need cleanup.
type Closeable interface {
	Close() error
}

// CloseStore safely closes a store if it implements Closeable.
func CloseStore(store Store) error {
	if closeable, ok := store.(Closeable); ok {
		return closeable.Close()
	}
	return nil
}
