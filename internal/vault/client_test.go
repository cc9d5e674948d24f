package vault

import (
	"context"
	"testing"
)

func TestNewClientDisabledAppliesDefaults(t *testing.T) {
	c, err := NewClient(Config{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.IsEnabled() {
		t.Errorf("expected a disabled client")
	}
	if c.path("foo") != "secret/data/signalforge/foo" {
		t.Errorf("path = %q, want default mount/base applied", c.path("foo"))
	}
}

func TestSeedAndResolveWhenDisabled(t *testing.T) {
	c, err := NewClient(Config{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Seed("telegram_bot_token", "tok-123")

	got, err := c.ResolveNotifierToken(context.Background(), "telegram_bot_token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "tok-123" {
		t.Errorf("resolved value = %q, want %q", got, "tok-123")
	}
}

func TestResolveMissingSecretWhenDisabled(t *testing.T) {
	c, err := NewClient(Config{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.ResolveNotifierToken(context.Background(), "missing"); err == nil {
		t.Errorf("expected an error resolving an unseeded secret while vault is disabled")
	}
}

func TestHealthNoOpWhenDisabled(t *testing.T) {
	c, err := NewClient(Config{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health on a disabled client should always succeed, got %v", err)
	}
}

func TestPathUsesCustomMountAndBase(t *testing.T) {
	c, err := NewClient(Config{Enabled: false, MountPath: "kv", BasePath: "custom"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := c.path("x"), "kv/data/custom/x"; got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}
