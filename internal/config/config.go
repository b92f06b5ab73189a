// Package config loads engine configuration from flags, environment,
// and YAML files, with layered precedence.
package config

// Config holds all engine configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	State     StateConfig     `mapstructure:"state"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Library   LibraryConfig   `mapstructure:"library"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Events    EventsConfig    `mapstructure:"events"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures the HTTP request layer.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StateConfig configures project state persistence.
type StateConfig struct {
	Backend string `mapstructure:"backend"` // sqlite, json, memory
	Path    string `mapstructure:"path"`
}

// GeneratorConfig configures the text-generation backend.
type GeneratorConfig struct {
	Backend string `mapstructure:"backend"` // rule, exec
	Path    string `mapstructure:"path"`
	Timeout string `mapstructure:"timeout"`
}

// LibraryConfig configures the reference/document library.
type LibraryConfig struct {
	Root string `mapstructure:"root"`
}

// WorkflowConfig configures workflow execution.
type WorkflowConfig struct {
	StepTimeout   string `mapstructure:"step_timeout"`
	OverridesFile string `mapstructure:"overrides_file"`
}

// EventsConfig configures the in-process event bus.
type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}
