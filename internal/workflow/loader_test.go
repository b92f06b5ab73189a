package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
)

func writeWorkflowFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflows.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_ValidOverride(t *testing.T) {
	path := writeWorkflowFile(t, `
workflows:
  - intent: deciding
    steps:
      - agent: recorder
        action: extract
        produces: [should_record, item, state, confidence]
      - agent: verifier
        action: verify
        condition:
          key: should_record
          equals: true
        produces: [approved, verification_note]
      - agent: conversational
        action: respond
`)

	defs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, core.IntentDeciding, defs[0].Intent)
	require.Len(t, defs[0].Steps, 3)
	require.NotNil(t, defs[0].Steps[1].Condition)
	assert.Equal(t, core.MetaShouldRecord, defs[0].Steps[1].Condition.Key)
	assert.Equal(t, true, defs[0].Steps[1].Condition.Equals)
}

func TestLoadFile_UnboundConditionRejected(t *testing.T) {
	path := writeWorkflowFile(t, `
workflows:
  - intent: deciding
    steps:
      - agent: recorder
        action: extract
      - agent: verifier
        action: verify
        condition:
          key: approval_status
          equals: true
`)

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatConfig))
}

func TestLoadFile_DuplicateIntentRejected(t *testing.T) {
	path := writeWorkflowFile(t, `
workflows:
  - intent: asking
    steps:
      - agent: conversational
        action: respond
  - intent: asking
    steps:
      - agent: conversational
        action: respond
`)

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatConfig))
}

func TestLoadFile_MalformedYAML(t *testing.T) {
	path := writeWorkflowFile(t, "workflows: [not: valid: yaml")

	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestBuiltinWithOverrides_ReplacesNamedIntentOnly(t *testing.T) {
	path := writeWorkflowFile(t, `
workflows:
  - intent: parking
    steps:
      - agent: conversational
        action: respond
`)

	registry, err := BuiltinWithOverrides(path)
	require.NoError(t, err)

	parking, err := registry.Lookup(core.IntentParking)
	require.NoError(t, err)
	assert.Len(t, parking.Steps, 1)

	// Untouched intents keep the builtin shape.
	deciding, err := registry.Lookup(core.IntentDeciding)
	require.NoError(t, err)
	assert.Greater(t, len(deciding.Steps), 1)
}

func TestBuiltinWithOverrides_EmptyPath(t *testing.T) {
	registry, err := BuiltinWithOverrides("")
	require.NoError(t, err)
	assert.Len(t, registry.Intents(), len(core.AllIntents()))
}
