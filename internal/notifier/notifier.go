// Package notifier dispatches emitted signals to Telegram/Discord.
// Adapted from the reference notification manager/provider shape,
// rendering the richer Signal record (entry/SL/TP ladder/confidence/
// rationale) instead of the simpler (symbol, side, reason, price).
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"signalforge/internal/market"
)

// Notifier is a single dispatch provider. Implements fuser.Notifier
// via Manager.
type Notifier interface {
	Send(ctx context.Context, s market.Signal) error
	Name() string
	IsEnabled() bool
}

// Manager fans a signal out to every enabled provider, collecting
// (not short-circuiting on) individual failures.
type Manager struct {
	notifiers []Notifier
}

func NewManager(notifiers ...Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// Notify implements fuser.Notifier.
func (m *Manager) Notify(ctx context.Context, s market.Signal) error {
	var errs []string
	for _, n := range m.notifiers {
		if !n.IsEnabled() {
			continue
		}
		if err := n.Send(ctx, s); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", n.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notifier dispatch failures: %s", strings.Join(errs, "; "))
	}
	return nil
}

func renderMessage(s market.Signal) (title, body string) {
	title = fmt.Sprintf("%s Signal: %s %s", string(s.Direction), s.Symbol, s.Interval)
	body = fmt.Sprintf(
		"Entry: %.6f\nStop: %.6f\nTP1: %.6f  TP2: %.6f  TP3: %.6f\nConfidence: %.2f\nWyckoff: %s  Elliott waves: %d\n%s",
		s.EntryPrice, s.StopLoss, s.TakeProfit, s.TakeProfit2, s.TakeProfit3,
		s.Confidence, s.WyckoffPhase, s.ElliottWaves, strings.Join(s.Rationale, "; "),
	)
	return title, body
}

// TelegramNotifier sends signals via the Telegram bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
	Enabled  bool
}

func NewTelegramNotifier(cfg TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		enabled:  cfg.Enabled && cfg.BotToken != "" && cfg.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string     { return "telegram" }
func (t *TelegramNotifier) IsEnabled() bool  { return t.enabled }

func (t *TelegramNotifier) Send(ctx context.Context, s market.Signal) error {
	if !t.enabled {
		return nil
	}
	title, body := renderMessage(s)
	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       fmt.Sprintf("*%s*\n\n%s", title, body),
		"parse_mode": "Markdown",
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

// DiscordNotifier sends signals via a Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

type DiscordConfig struct {
	WebhookURL string
	Enabled    bool
}

func NewDiscordNotifier(cfg DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: cfg.WebhookURL,
		enabled:    cfg.Enabled && cfg.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string    { return "discord" }
func (d *DiscordNotifier) IsEnabled() bool { return d.enabled }

func (d *DiscordNotifier) Send(ctx context.Context, s market.Signal) error {
	if !d.enabled {
		return nil
	}
	title, body := renderMessage(s)
	color := 0x2ECC71 // green, long
	if s.Direction == market.Short {
		color = 0xE74C3C
	}

	embed := map[string]interface{}{
		"title":       title,
		"description": body,
		"color":       color,
		"timestamp":   s.CreatedAt.Format(time.RFC3339),
		"fields": []map[string]interface{}{
			{"name": "Symbol", "value": s.Symbol, "inline": true},
			{"name": "Interval", "value": s.Interval, "inline": true},
			{"name": "Confidence", "value": fmt.Sprintf("%.2f", s.Confidence), "inline": true},
		},
	}
	payload := map[string]interface{}{"embeds": []map[string]interface{}{embed}}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}
	return nil
}
