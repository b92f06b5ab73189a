package config

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("server.addr", ":8384")
	l.v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	l.v.SetDefault("state.backend", "sqlite")
	l.v.SetDefault("state.path", ".brainstorm/state/engine.db")

	l.v.SetDefault("generator.backend", "rule")
	l.v.SetDefault("generator.path", "")
	l.v.SetDefault("generator.timeout", "60s")

	l.v.SetDefault("library.root", ".brainstorm/library")

	l.v.SetDefault("workflow.step_timeout", "45s")
	l.v.SetDefault("workflow.overrides_file", "")

	l.v.SetDefault("events.buffer_size", 256)
}
