package generator

import (
	"fmt"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/logging"
)

// New creates a TextGenerator for the given backend name: "rule" or
// "exec". path is the command to run for the exec backend.
func New(backend, path string, logger *logging.Logger) (core.TextGenerator, error) {
	switch backend {
	case "rule", "":
		return NewRuleGenerator(), nil
	case "exec":
		if path == "" {
			return nil, fmt.Errorf("exec generator requires a command path")
		}
		return NewExecGenerator(path, logger), nil
	default:
		return nil, fmt.Errorf("unknown generator backend %q", backend)
	}
}
