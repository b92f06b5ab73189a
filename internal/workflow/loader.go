package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/core"
)

// fileSchema is the on-disk shape of a workflow override file.
type fileSchema struct {
	Workflows []*core.WorkflowDefinition `yaml:"workflows"`
}

// LoadFile reads workflow definitions from a YAML file. The file replaces
// the built-in definition of each intent it names; intents it omits keep
// their built-in workflow.
//
// Example:
//
//	workflows:
//	  - intent: deciding
//	    steps:
//	      - agent: recorder
//	        action: extract
//	        produces: [should_record, item, state, confidence]
//	      - agent: conversational
//	        action: respond
func LoadFile(path string) ([]*core.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow file: %w", err)
	}

	var file fileSchema
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, core.ErrConfig(core.CodeInvalidConfig, "workflow file is not valid YAML").WithCause(err)
	}
	if len(file.Workflows) == 0 {
		return nil, core.ErrConfig(core.CodeInvalidConfig,
			fmt.Sprintf("workflow file %s declares no workflows", path))
	}

	seen := make(map[core.Intent]bool)
	for _, def := range file.Workflows {
		if seen[def.Intent] {
			return nil, core.ErrConfig(core.CodeDuplicateWorkflow,
				fmt.Sprintf("workflow file declares intent %q twice", def.Intent))
		}
		seen[def.Intent] = true
		if err := Validate(def); err != nil {
			return nil, err
		}
	}
	return file.Workflows, nil
}

// BuiltinWithOverrides builds the default registry, then applies the
// definitions from path on top. An empty path returns the plain built-in
// table. Validation failures surface before any definition is applied.
func BuiltinWithOverrides(path string) (*Registry, error) {
	registry := Builtin()
	if path == "" {
		return registry, nil
	}

	defs, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if err := registry.Register(def); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
