package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/adapters/generator"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/adapters/state"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/agents"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/reconcile"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/service"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/workflow"
)

// newTestServer wires the full pipeline on the memory store and the
// rule generator.
func newTestServer(t *testing.T) (*Server, state.Store) {
	t.Helper()
	log := logging.NewNop()
	store := state.NewMemoryStore()

	gen := generator.NewRuleGenerator()
	registry, err := agents.Wire(gen, log)
	require.NoError(t, err)

	coordinator := service.NewCoordinator(service.CoordinatorDeps{
		Classifier:   service.NewClassifier(nil, log),
		Registry:     workflow.Builtin(),
		Orchestrator: workflow.NewOrchestrator(registry, log),
		Reconciler:   reconcile.New(log),
		States:       store,
		Logger:       log,
	})

	return New(DefaultConfig(), coordinator, store, log), store
}

func TestServer_Healthz(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestServer_PostTurn(t *testing.T) {
	srv, store := newTestServer(t)

	body := `{"user_id":"u1","message":"I want to use postgres for storage, decision made"}`
	req := httptest.NewRequest(http.MethodPost, "/api/projects/p1/turns", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result core.TurnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.Messages)
	require.NotNil(t, result.UpdatedState)
	assert.Len(t, result.UpdatedState.Items, 1)

	stored, err := store.Fetch(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)
}

func TestServer_PostTurnValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/projects/p1/turns",
		strings.NewReader(`{"user_id":"u1","message":"  "}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/projects/p1/turns",
		strings.NewReader(`{not json`))
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetProject(t *testing.T) {
	srv, store := newTestServer(t)

	require.NoError(t, store.Append(context.Background(), "p1", []core.Item{{
		ID: "i1", Text: "use postgres", State: core.ItemDecided, CreatedAt: time.Now(),
	}}))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/p1/", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got core.ProjectState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "p1", got.ID)
	assert.Len(t, got.Items, 1)
}

func TestServer_GetActivityAndMessages(t *testing.T) {
	srv, store := newTestServer(t)

	require.NoError(t, store.WriteActivity(context.Background(), []core.ActivityEvent{
		{ID: "a1", ProjectID: "p1", Agent: "recorder", Action: "extract", CreatedAt: time.Now()},
	}))
	require.NoError(t, store.WriteMessages(context.Background(), []core.ChatMessage{
		{ID: "m1", ProjectID: "p1", Role: "user", Content: "hi", CreatedAt: time.Now()},
	}))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/p1/activity", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "recorder")

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/p1/messages?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hi")

	// Empty project yields empty arrays, not nulls.
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/empty/activity", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"activity":[]`)
}
