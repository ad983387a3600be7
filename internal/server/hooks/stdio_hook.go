package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// StdioHook writes event data to stderr in the configured format.
type StdioHook struct {
	id     string
	format string // "json" or "env"
	output *os.File
}

// NewStdioHook creates a stdio hook. format must be "json" or "env".
func NewStdioHook(id, format string) *StdioHook {
	return &StdioHook{id: id, format: format, output: os.Stderr}
}

// SetOutput overrides the output destination (default: stderr).
func (h *StdioHook) SetOutput(output *os.File) *StdioHook {
	h.output = output
	return h
}

// Execute writes the event in the configured format.
func (h *StdioHook) Execute(ctx context.Context, event Event) error {
	switch h.format {
	case "json":
		return h.outputJSON(event)
	case "env":
		return h.outputEnv(event)
	default:
		return fmt.Errorf("stdio hook %s: unsupported format: %s", h.id, h.format)
	}
}

// Type returns "stdio".
func (h *StdioHook) Type() string { return "stdio" }

// ID returns the hook's id.
func (h *StdioHook) ID() string { return h.id }

func (h *StdioHook) outputJSON(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("stdio hook %s: failed to marshal JSON: %w", h.id, err)
	}
	if _, err := fmt.Fprintf(h.output, "ASCIICHAT_EVENT: %s\n", data); err != nil {
		return fmt.Errorf("stdio hook %s: failed to write JSON: %w", h.id, err)
	}
	return nil
}

func (h *StdioHook) outputEnv(event Event) error {
	lines := []string{
		"# ASCII-Chat event: " + string(event.Type),
		fmt.Sprintf("ASCIICHAT_EVENT_TYPE=%s", event.Type),
		fmt.Sprintf("ASCIICHAT_TIMESTAMP=%d", event.Timestamp),
	}
	if event.ClientID != 0 {
		lines = append(lines, fmt.Sprintf("ASCIICHAT_CLIENT_ID=%d", event.ClientID))
	}
	if event.RemoteAddr != "" {
		lines = append(lines, "ASCIICHAT_REMOTE_ADDR="+event.RemoteAddr)
	}
	for key, value := range event.Data {
		lines = append(lines, fmt.Sprintf("ASCIICHAT_%s=%v", strings.ToUpper(key), value))
	}
	lines = append(lines, "")

	for _, line := range lines {
		if _, err := fmt.Fprintln(h.output, line); err != nil {
			return fmt.Errorf("stdio hook %s: failed to write env line: %w", h.id, err)
		}
	}
	return nil
}
