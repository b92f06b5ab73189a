// Package generator provides the TextGenerator backends: an external CLI
// process speaking JSON over stdio, and a deterministic rule backend for
// offline runs and tests.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
)

// DefaultExecTimeout bounds one generation when the request carries none.
const DefaultExecTimeout = 60 * time.Second

// ExecGenerator runs an external command per generation. The request is
// written to stdin as JSON; the command answers on stdout with either a
// JSON object {"text": ..., "metadata": {...}} or plain text.
type ExecGenerator struct {
	path    string
	args    []string
	timeout time.Duration
	logger  *logging.Logger
}

// ExecOption configures the generator.
type ExecOption func(*ExecGenerator)

// WithExecTimeout overrides the default per-call timeout.
func WithExecTimeout(d time.Duration) ExecOption {
	return func(g *ExecGenerator) { g.timeout = d }
}

// WithArgs sets extra command arguments.
func WithArgs(args ...string) ExecOption {
	return func(g *ExecGenerator) { g.args = args }
}

// NewExecGenerator creates a generator backed by the command at path.
func NewExecGenerator(path string, logger *logging.Logger, opts ...ExecOption) *ExecGenerator {
	if logger == nil {
		logger = logging.NewNop()
	}
	g := &ExecGenerator{
		path:    path,
		timeout: DefaultExecTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name implements core.TextGenerator.
func (g *ExecGenerator) Name() string { return "exec:" + g.path }

// execRequest is the JSON sent to the command's stdin.
type execRequest struct {
	Prompt  string   `json:"prompt"`
	Context []string `json:"context,omitempty"`
}

// execResponse is the structured stdout shape. Plain-text output is
// accepted as a fallback.
type execResponse struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Generate implements core.TextGenerator.
func (g *ExecGenerator) Generate(ctx context.Context, req core.GenerateRequest) (*core.GenerateResult, error) {
	timeout := g.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(execRequest{Prompt: req.Prompt, Context: req.Context})
	if err != nil {
		return nil, fmt.Errorf("encoding generation request: %w", err)
	}

	cmd := exec.CommandContext(ctx, g.path, g.args...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err = cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		g.logger.Warn("generator command failed",
			"command", g.path,
			"stderr", strings.TrimSpace(stderr.String()),
			"error", err)
		return nil, fmt.Errorf("running %s: %w", g.path, err)
	}
	g.logger.Debug("generator command finished",
		"command", g.path, "duration_ms", time.Since(started).Milliseconds())

	return parseOutput(stdout.Bytes()), nil
}

// parseOutput accepts structured JSON and degrades to raw text.
func parseOutput(out []byte) *core.GenerateResult {
	trimmed := bytes.TrimSpace(out)

	var resp execResponse
	if json.Unmarshal(trimmed, &resp) == nil && resp.Text != "" {
		return &core.GenerateResult{Text: resp.Text, Metadata: normalizeMetadata(resp.Metadata)}
	}
	return &core.GenerateResult{Text: string(trimmed)}
}

// normalizeMetadata converts JSON-decoded values to the shapes the
// capabilities expect: []any of strings becomes []string.
func normalizeMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		if list, ok := v.([]any); ok {
			strs := make([]string, 0, len(list))
			allStrings := true
			for _, item := range list {
				s, ok := item.(string)
				if !ok {
					allStrings = false
					break
				}
				strs = append(strs, s)
			}
			if allStrings {
				out[k] = strs
				continue
			}
		}
		out[k] = v
	}
	return out
}
