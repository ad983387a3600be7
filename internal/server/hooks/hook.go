package hooks

import "context"

// Hook represents a handler invoked when a lifecycle event occurs.
type Hook interface {
	Execute(ctx context.Context, event Event) error
	Type() string
	ID() string
}

// Config configures the hook manager.
type Config struct {
	// Timeout (default: 30s) is only checked for a valid duration; it is
	// not applied to hook execution, which uses each hook's own timeout.
	Timeout string `json:"timeout"`
	// Concurrency bounds simultaneous hook executions (default: 10).
	Concurrency int `json:"concurrency"`
	// StdioFormat enables structured stdio output ("json", "env", or "").
	StdioFormat string `json:"stdio_format"`
}

// DefaultConfig returns sensible hook manager defaults.
func DefaultConfig() Config {
	return Config{Timeout: "30s", Concurrency: 10}
}
