package state

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
)

func testItem(id, text string, state core.ItemState) core.Item {
	return core.Item{
		ID:    id,
		Text:  text,
		State: state,
		Citation: &core.Citation{
			UserQuote:  "original words",
			Timestamp:  time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
			Confidence: 0.8,
		},
		CreatedAt: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
	}
}

// storeUnderTest lets every backend share the same contract tests.
func backends(t *testing.T) map[string]core.ProjectStateStore {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	jsonStore, err := NewJSONStore(t.TempDir())
	require.NoError(t, err)

	return map[string]core.ProjectStateStore{
		"sqlite": sqlite,
		"json":   jsonStore,
		"memory": NewMemoryStore(),
	}
}

func TestStores_FetchUnknownProjectIsEmpty(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			state, err := store.Fetch(context.Background(), "nope")
			require.NoError(t, err)
			assert.Equal(t, "nope", state.ID)
			assert.Empty(t, state.Items)
			assert.Zero(t, state.Revision)
		})
	}
}

func TestStores_AppendAndFetchRoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			items := []core.Item{
				testItem("i1", "use postgres", core.ItemDecided),
				testItem("i2", "try passkeys", core.ItemExploring),
			}
			require.NoError(t, store.Append(ctx, "p1", items))

			state, err := store.Fetch(ctx, "p1")
			require.NoError(t, err)
			require.Len(t, state.Items, 2)
			assert.Equal(t, 1, state.Revision)
			assert.Equal(t, "use postgres", state.Items[0].Text)
			assert.Equal(t, core.ItemDecided, state.Items[0].State)
			require.NotNil(t, state.Items[0].Citation)
			assert.Equal(t, "original words", state.Items[0].Citation.UserQuote)
			assert.InDelta(t, 0.8, state.Items[0].Citation.Confidence, 1e-9)
		})
	}
}

func TestStores_AppendIsIdempotentByItemID(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			item := testItem("i1", "use postgres", core.ItemDecided)

			require.NoError(t, store.Append(ctx, "p1", []core.Item{item}))
			require.NoError(t, store.Append(ctx, "p1", []core.Item{item}))

			state, err := store.Fetch(ctx, "p1")
			require.NoError(t, err)
			assert.Len(t, state.Items, 1)
			assert.Equal(t, 1, state.Revision, "replayed append must not bump revision")
		})
	}
}

func TestStores_ConcurrentAppendsAllSurvive(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const n = 8

			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					item := testItem(
						string(rune('a'+i)),
						"item "+string(rune('a'+i)),
						core.ItemExploring,
					)
					assert.NoError(t, store.Append(ctx, "p1", []core.Item{item}))
				}(i)
			}
			wg.Wait()

			state, err := store.Fetch(ctx, "p1")
			require.NoError(t, err)
			assert.Len(t, state.Items, n)
		})
	}
}

func TestSQLiteStore_SinkRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.WriteMessages(ctx, []core.ChatMessage{
		{ID: "m1", ProjectID: "p1", UserID: "u1", Role: "user", Content: "hello", CreatedAt: now},
		{ID: "m2", ProjectID: "p1", Role: "assistant", Content: "hi", CreatedAt: now.Add(time.Second)},
	}))
	require.NoError(t, store.WriteActivity(ctx, []core.ActivityEvent{
		{ID: "a1", ProjectID: "p1", Agent: "recorder", Action: "extract",
			Details: map[string]any{"outcome": "recorded"}, CreatedAt: now},
	}))

	msgs, err := store.ListMessages(ctx, "p1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)

	activity, err := store.ListActivity(ctx, "p1", 0)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, "recorder", activity[0].Agent)
	assert.Equal(t, "recorded", activity[0].Details["outcome"])
}

func TestSQLiteStore_SinkWritesAreIdempotent(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	msg := core.ChatMessage{ID: "m1", ProjectID: "p1", Role: "user", Content: "hello", CreatedAt: time.Now()}

	require.NoError(t, store.WriteMessages(ctx, []core.ChatMessage{msg}))
	require.NoError(t, store.WriteMessages(ctx, []core.ChatMessage{msg}))

	msgs, err := store.ListMessages(ctx, "p1", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, "p1", []core.Item{testItem("i1", "use postgres", core.ItemDecided)}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	state, err := reopened.Fetch(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, state.Items, 1)
	assert.Equal(t, 1, state.Revision)
}

func TestJSONStore_FileSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewJSONStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, "p1", []core.Item{testItem("i1", "use postgres", core.ItemDecided)}))

	reopened, err := NewJSONStore(dir)
	require.NoError(t, err)

	state, err := reopened.Fetch(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, state.Items, 1)
	assert.Equal(t, "use postgres", state.Items[0].Text)
}

func TestFactory_Backends(t *testing.T) {
	dir := t.TempDir()

	sqlite, err := New("sqlite", filepath.Join(dir, "s.db"))
	require.NoError(t, err)
	defer CloseStore(sqlite)
	assert.IsType(t, &SQLiteStore{}, sqlite)

	jsonStore, err := New("json", filepath.Join(dir, "json"))
	require.NoError(t, err)
	assert.IsType(t, &jsonWithMemorySink{}, jsonStore)

	mem, err := New("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, mem)

	_, err = New("cassandra", "")
	assert.Error(t, err)
}
