package hooks

import (
	"context"
	"testing"
	"time"
)

func TestEvent(t *testing.T) {
	event := NewEvent(EventClientJoin).
		WithClientID(7).
		WithRemoteAddr("192.168.1.100:54321").
		WithData("width", 80).
		WithData("height", 24)

	if event.Type != EventClientJoin {
		t.Errorf("expected event type %s, got %s", EventClientJoin, event.Type)
	}
	if event.ClientID != 7 {
		t.Errorf("expected client id 7, got %d", event.ClientID)
	}
	if event.RemoteAddr != "192.168.1.100:54321" {
		t.Errorf("expected remote addr, got %s", event.RemoteAddr)
	}
	if event.Data["width"] != 80 {
		t.Errorf("expected width 80, got %v", event.Data["width"])
	}

	str := event.String()
	if str != "client_join:client7" {
		t.Errorf("expected string 'client_join:client7', got %s", str)
	}
}

func TestShellHook(t *testing.T) {
	hook := NewShellHook("test-hook", "/bin/echo", 10*time.Second)
	if hook.Type() != "shell" {
		t.Errorf("expected hook type 'shell', got %s", hook.Type())
	}
	if hook.ID() != "test-hook" {
		t.Errorf("expected hook ID 'test-hook', got %s", hook.ID())
	}

	custom := NewShellHookWithCommand("custom", "/bin/true", []string{}, 5*time.Second)
	if custom.command != "/bin/true" {
		t.Errorf("expected command '/bin/true', got %s", custom.command)
	}
}

func TestHookManager(t *testing.T) {
	manager := NewHookManager(DefaultConfig(), nil)

	hook := NewShellHook("test", "/bin/true", 10*time.Second)
	if err := manager.RegisterHook(EventClientJoin, hook); err != nil {
		t.Fatalf("failed to register hook: %v", err)
	}

	stats := manager.GetStats()
	if stats["total_hooks"] != 1 {
		t.Errorf("expected 1 total hook, got %v", stats["total_hooks"])
	}

	if !manager.UnregisterHook(EventClientJoin, "test") {
		t.Error("failed to unregister hook")
	}

	event := NewEvent(EventClientJoin)
	manager.TriggerEvent(context.Background(), *event) // must not panic with no hooks

	if err := manager.Close(); err != nil {
		t.Errorf("close returned error: %v", err)
	}
}

func TestStdioHook(t *testing.T) {
	hook := NewStdioHook("stdio-test", "json")
	if hook.Type() != "stdio" {
		t.Errorf("expected hook type 'stdio', got %s", hook.Type())
	}
	if hook.ID() != "stdio-test" {
		t.Errorf("expected hook ID 'stdio-test', got %s", hook.ID())
	}
	if hook.format != "json" {
		t.Errorf("expected format 'json', got %s", hook.format)
	}
}

func TestWebhookHook(t *testing.T) {
	hook := NewWebhookHook("webhook-test", "https://example.com/webhook", 30*time.Second)
	if hook.Type() != "webhook" {
		t.Errorf("expected hook type 'webhook', got %s", hook.Type())
	}
	if hook.url != "https://example.com/webhook" {
		t.Errorf("expected configured URL, got %s", hook.url)
	}

	hook.AddHeader("Authorization", "Bearer token")
	if hook.headers["Authorization"] != "Bearer token" {
		t.Errorf("expected Authorization header, got %s", hook.headers["Authorization"])
	}
}

func TestRegisterHookRejectsNil(t *testing.T) {
	manager := NewHookManager(DefaultConfig(), nil)
	defer manager.Close()

	if err := manager.RegisterHook(EventClientLeave, nil); err == nil {
		t.Error("expected error registering nil hook")
	}
}
