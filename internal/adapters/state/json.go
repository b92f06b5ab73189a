package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
)

// JSONStore implements core.ProjectStateStore on one JSON file per
// project. Writes go through renameio so a crash mid-write never leaves
// a torn file behind.
type JSONStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewJSONStore creates a JSON file store rooted at dir.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &JSONStore{baseDir: dir}, nil
}

// stateEnvelope wraps a project's state for file storage.
type stateEnvelope struct {
	Version  int         `json:"version"`
	ID       string      `json:"id"`
	Revision int         `json:"revision"`
	Items    []core.Item `json:"items"`
}

func (s *JSONStore) projectPath(projectID string) string {
	return filepath.Join(s.baseDir, projectID+".json")
}

// Fetch implements core.ProjectStateStore.
func (s *JSONStore) Fetch(_ context.Context, projectID string) (*core.ProjectState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	env, err := s.load(projectID)
	if err != nil {
		return nil, err
	}
	return &core.ProjectState{
		ID:       projectID,
		Items:    env.Items,
		Revision: env.Revision,
	}, nil
}

// Append implements core.ProjectStateStore. Re-appending an item ID is a
// no-op; the revision bumps only when something new landed.
func (s *JSONStore) Append(_ context.Context, projectID string, items []core.Item) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.load(projectID)
	if err != nil {
		return err
	}

	existing := make(map[string]bool, len(env.Items))
	for _, it := range env.Items {
		existing[it.ID] = true
	}
	added := 0
	for _, it := range items {
		if !existing[it.ID] {
			env.Items = append(env.Items, it)
			existing[it.ID] = true
			added++
		}
	}
	if added == 0 {
		return nil
	}
	env.Revision++

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding project state: %w", err)
	}
	if err := renameio.WriteFile(s.projectPath(projectID), data, 0o640); err != nil {
		return fmt.Errorf("writing project state: %w", err)
	}
	return nil
}

// load reads a project's envelope, returning an empty one for unknown
// projects.
func (s *JSONStore) load(projectID string) (*stateEnvelope, error) {
	env := &stateEnvelope{Version: 1, ID: projectID}

	data, err := os.ReadFile(s.projectPath(projectID))
	if os.IsNotExist(err) {
		return env, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading project state: %w", err)
	}
	if err := json.Unmarshal(data, env); err != nil {
		return nil, fmt.Errorf("decoding project state: %w", err)
	}
	return env, nil
}
