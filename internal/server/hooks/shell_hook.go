package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ShellHook executes a script when an event occurs.
type ShellHook struct {
	id       string
	command  string
	args     []string
	env      []string
	passJSON bool
	timeout  time.Duration
}

// NewShellHook creates a shell hook that runs scriptPath via /bin/bash.
func NewShellHook(id, scriptPath string, timeout time.Duration) *ShellHook {
	return &ShellHook{
		id:      id,
		command: "/bin/bash",
		args:    []string{scriptPath},
		timeout: timeout,
	}
}

// NewShellHookWithCommand creates a shell hook with a custom command.
func NewShellHookWithCommand(id, command string, args []string, timeout time.Duration) *ShellHook {
	return &ShellHook{id: id, command: command, args: args, timeout: timeout}
}

// SetPassJSON enables passing the event as JSON on stdin.
func (h *ShellHook) SetPassJSON(passJSON bool) *ShellHook {
	h.passJSON = passJSON
	return h
}

// SetEnv sets additional environment variables for the script.
func (h *ShellHook) SetEnv(env []string) *ShellHook {
	h.env = env
	return h
}

// Execute runs the script with event data passed as environment variables.
func (h *ShellHook) Execute(ctx context.Context, event Event) error {
	execCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, h.command, h.args...)
	cmd.Env = append(cmd.Env, h.buildEnvironment(event)...)

	if h.passJSON {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return fmt.Errorf("shell hook %s: failed to create stdin pipe: %w", h.id, err)
		}
		go func() {
			defer stdin.Close()
			_ = json.NewEncoder(stdin).Encode(event)
		}()
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("shell hook %s: execution failed: %w", h.id, err)
	}
	return nil
}

// Type returns "shell".
func (h *ShellHook) Type() string { return "shell" }

// ID returns the hook's id.
func (h *ShellHook) ID() string { return h.id }

func (h *ShellHook) buildEnvironment(event Event) []string {
	env := make([]string, 0, len(h.env)+len(event.Data)+4)
	env = append(env, h.env...)

	env = append(env, "ASCIICHAT_EVENT_TYPE="+string(event.Type))
	env = append(env, fmt.Sprintf("ASCIICHAT_TIMESTAMP=%d", event.Timestamp))

	if event.ClientID != 0 {
		env = append(env, fmt.Sprintf("ASCIICHAT_CLIENT_ID=%d", event.ClientID))
	}
	if event.RemoteAddr != "" {
		env = append(env, "ASCIICHAT_REMOTE_ADDR="+event.RemoteAddr)
	}

	for key, value := range event.Data {
		envKey := "ASCIICHAT_" + strings.ToUpper(key)
		env = append(env, fmt.Sprintf("%s=%v", envKey, value))
	}
	return env
}
