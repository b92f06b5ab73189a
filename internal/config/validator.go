package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateServer(&cfg.Server)
	v.validateState(&cfg.State)
	v.validateGenerator(&cfg.Generator)
	v.validateWorkflow(&cfg.Workflow)
	v.validateEvents(&cfg.Events)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) add(field string, value any, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: message})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		v.add("log.level", cfg.Level, "must be debug, info, warn, or error")
	}
	switch cfg.Format {
	case "auto", "text", "json":
	default:
		v.add("log.format", cfg.Format, "must be auto, text, or json")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Addr == "" {
		v.add("server.addr", cfg.Addr, "must not be empty")
	}
}

func (v *Validator) validateState(cfg *StateConfig) {
	switch cfg.Backend {
	case "sqlite", "json", "memory":
	default:
		v.add("state.backend", cfg.Backend, "must be sqlite, json, or memory")
	}
	if cfg.Backend != "memory" && cfg.Path == "" {
		v.add("state.path", cfg.Path, "required for durable backends")
	}
}

func (v *Validator) validateGenerator(cfg *GeneratorConfig) {
	switch cfg.Backend {
	case "rule":
	case "exec":
		if cfg.Path == "" {
			v.add("generator.path", cfg.Path, "required for the exec backend")
		}
	default:
		v.add("generator.backend", cfg.Backend, "must be rule or exec")
	}
	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err != nil || d <= 0 {
			v.add("generator.timeout", cfg.Timeout, "must be a positive duration")
		}
	}
}

func (v *Validator) validateWorkflow(cfg *WorkflowConfig) {
	if cfg.StepTimeout != "" {
		if d, err := time.ParseDuration(cfg.StepTimeout); err != nil || d <= 0 {
			v.add("workflow.step_timeout", cfg.StepTimeout, "must be a positive duration")
		}
	}
}

func (v *Validator) validateEvents(cfg *EventsConfig) {
	if cfg.BufferSize <= 0 {
		v.add("events.buffer_size", cfg.BufferSize, "must be positive")
	}
}

// StepTimeoutDuration parses the configured per-step timeout.
func (c *WorkflowConfig) StepTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.StepTimeout)
	if err != nil || d <= 0 {
		return 45 * time.Second
	}
	return d
}

// TimeoutDuration parses the configured generator timeout.
func (c *GeneratorConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}
