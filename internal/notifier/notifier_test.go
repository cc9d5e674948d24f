package notifier

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signalforge/internal/market"
)

func sampleSignal() market.Signal {
	return market.Signal{
		Symbol: "BTCUSDT", Interval: "1h", Direction: market.Long,
		EntryPrice: 100, StopLoss: 95, TakeProfit: 110, TakeProfit2: 115, TakeProfit3: 120,
		Confidence: 0.8, WyckoffPhase: "ACCUMULATION", ElliottWaves: 5,
		Rationale: []string{"tier1: wyckoff+elliott agree"}, CreatedAt: time.Now(),
	}
}

func TestRenderMessageIncludesKeyFields(t *testing.T) {
	title, body := renderMessage(sampleSignal())
	if !strings.Contains(title, "BTCUSDT") || !strings.Contains(title, "LONG") {
		t.Errorf("title = %q, missing symbol or direction", title)
	}
	if !strings.Contains(body, "Entry: 100") || !strings.Contains(body, "tier1") {
		t.Errorf("body = %q, missing entry price or rationale", body)
	}
}

func TestTelegramNotifierDisabledWithoutCredentials(t *testing.T) {
	n := NewTelegramNotifier(TelegramConfig{Enabled: true, BotToken: "", ChatID: "123"})
	if n.IsEnabled() {
		t.Errorf("expected telegram notifier to be disabled without a bot token")
	}
	if err := n.Send(context.Background(), sampleSignal()); err != nil {
		t.Errorf("Send on a disabled notifier should be a no-op, got error: %v", err)
	}
}

func TestTelegramNotifierEnabledRequiresBothFields(t *testing.T) {
	n := NewTelegramNotifier(TelegramConfig{Enabled: true, BotToken: "tok", ChatID: "chat"})
	if !n.IsEnabled() {
		t.Errorf("expected telegram notifier to be enabled with both bot token and chat id set")
	}
}

func TestDiscordNotifierSendsToWebhook(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewDiscordNotifier(DiscordConfig{Enabled: true, WebhookURL: srv.URL})
	if !n.IsEnabled() {
		t.Fatalf("expected discord notifier to be enabled")
	}
	if err := n.Send(context.Background(), sampleSignal()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
}

func TestDiscordNotifierPropagatesNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewDiscordNotifier(DiscordConfig{Enabled: true, WebhookURL: srv.URL})
	if err := n.Send(context.Background(), sampleSignal()); err == nil {
		t.Errorf("expected an error when the webhook returns a 500")
	}
}

type fakeNotifier struct {
	name    string
	enabled bool
	err     error
}

func (f *fakeNotifier) Name() string    { return f.name }
func (f *fakeNotifier) IsEnabled() bool { return f.enabled }
func (f *fakeNotifier) Send(ctx context.Context, s market.Signal) error {
	return f.err
}

func TestManagerSkipsDisabledProviders(t *testing.T) {
	disabled := &fakeNotifier{name: "disabled", enabled: false, err: errors.New("must not be called")}
	enabled := &fakeNotifier{name: "enabled", enabled: true, err: nil}

	m := NewManager(disabled, enabled)
	if err := m.Notify(context.Background(), sampleSignal()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestManagerCollectsAllProviderErrors(t *testing.T) {
	first := &fakeNotifier{name: "telegram", enabled: true, err: errors.New("boom1")}
	second := &fakeNotifier{name: "discord", enabled: true, err: errors.New("boom2")}

	m := NewManager(first, second)
	err := m.Notify(context.Background(), sampleSignal())
	if err == nil {
		t.Fatal("expected a combined error from both failing providers")
	}
	if !strings.Contains(err.Error(), "boom1") || !strings.Contains(err.Error(), "boom2") {
		t.Errorf("error = %q, want both provider failures mentioned", err.Error())
	}
}
