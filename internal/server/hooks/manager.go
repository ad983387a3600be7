package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// HookManager registers hooks per event type and dispatches events to them
// concurrently, bounded by an execution pool.
type HookManager struct {
	hooks     map[EventType][]Hook
	stdioHook *StdioHook
	mu        sync.RWMutex
	pool      *executionPool
	logger    *slog.Logger
	config    Config
}

// NewHookManager creates a hook manager from config.
func NewHookManager(config Config, logger *slog.Logger) *HookManager {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := time.ParseDuration(config.Timeout); err != nil {
		logger.Warn("invalid hook timeout, using default", "timeout", config.Timeout, "error", err)
	}

	m := &HookManager{
		hooks:  make(map[EventType][]Hook),
		logger: logger,
		config: config,
		pool:   newExecutionPool(config.Concurrency, logger),
	}
	if config.StdioFormat != "" {
		_ = m.EnableStdioOutput(config.StdioFormat)
	}
	return m
}

// RegisterHook registers hook for eventType.
func (m *HookManager) RegisterHook(eventType EventType, hook Hook) error {
	if hook == nil {
		return fmt.Errorf("cannot register nil hook")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[eventType] = append(m.hooks[eventType], hook)
	m.logger.Info("hook registered", "event_type", eventType, "hook_type", hook.Type(), "hook_id", hook.ID())
	return nil
}

// UnregisterHook removes a hook by id from eventType.
func (m *HookManager) UnregisterHook(eventType EventType, hookID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	hooks := m.hooks[eventType]
	for i, h := range hooks {
		if h.ID() == hookID {
			m.hooks[eventType] = append(hooks[:i], hooks[i+1:]...)
			return true
		}
	}
	return false
}

// TriggerEvent dispatches event to every hook registered for its type.
func (m *HookManager) TriggerEvent(ctx context.Context, event Event) {
	if m == nil {
		return
	}
	m.mu.RLock()
	hooks := make([]Hook, len(m.hooks[event.Type]))
	copy(hooks, m.hooks[event.Type])
	stdio := m.stdioHook
	m.mu.RUnlock()

	if stdio != nil {
		hooks = append(hooks, stdio)
	}
	if len(hooks) == 0 {
		return
	}
	for _, h := range hooks {
		m.pool.execute(ctx, h, event)
	}
}

// EnableStdioOutput turns on structured stdio hook output.
func (m *HookManager) EnableStdioOutput(format string) error {
	if format != "json" && format != "env" {
		return fmt.Errorf("unsupported stdio format: %s", format)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stdioHook = NewStdioHook("stdio", format)
	return nil
}

// GetStats reports the total number of registered hooks and a per-event-type
// breakdown.
func (m *HookManager) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	byType := make(map[string]int, len(m.hooks))
	for eventType, hooks := range m.hooks {
		byType[string(eventType)] = len(hooks)
		total += len(hooks)
	}
	return map[string]interface{}{
		"total_hooks": total,
		"by_event":    byType,
	}
}

// Close shuts down the execution pool, waiting for in-flight hooks.
func (m *HookManager) Close() error {
	if m.pool != nil {
		m.pool.close()
	}
	return nil
}

// executionPool bounds concurrent hook execution.
type executionPool struct {
	workers chan struct{}
	size    int
	logger  *slog.Logger
}

func newExecutionPool(size int, logger *slog.Logger) *executionPool {
	if size <= 0 {
		size = 10
	}
	return &executionPool{workers: make(chan struct{}, size), size: size, logger: logger}
}

func (p *executionPool) execute(ctx context.Context, hook Hook, event Event) {
	go func() {
		p.workers <- struct{}{}
		defer func() { <-p.workers }()

		start := time.Now()
		err := hook.Execute(ctx, event)
		if err != nil {
			p.logger.Error("hook execution failed", "hook_type", hook.Type(), "hook_id", hook.ID(),
				"event_type", event.Type, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		}
	}()
}

func (p *executionPool) close() {
	for i := 0; i < cap(p.workers); i++ {
		p.workers <- struct{}{}
	}
}
