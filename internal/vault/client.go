// Package vault resolves secrets (exchange API credentials, notifier
// tokens) from HashiCorp Vault when enabled, or from the in-process
// cache populated straight from configuration otherwise. Trimmed from
// the reference multi-tenant API-key vault down to the handful of
// named secrets this single-tenant engine needs.
package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"
)

// Config mirrors the environment-driven vault settings (VAULT_ENABLED,
// VAULT_ADDR, VAULT_TOKEN per SPEC_FULL §6/§12).
type Config struct {
	Enabled   bool
	Address   string
	Token     string
	MountPath string // default "secret"
	BasePath  string // default "signalforge"
}

// Client wraps the HashiCorp Vault client with an in-process fallback
// cache, so callers never need to branch on whether Vault is enabled.
type Client struct {
	client *api.Client
	cfg    Config

	mu    sync.RWMutex
	cache map[string]string
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.MountPath == "" {
		cfg.MountPath = "secret"
	}
	if cfg.BasePath == "" {
		cfg.BasePath = "signalforge"
	}

	c := &Client{cfg: cfg, cache: make(map[string]string)}
	if !cfg.Enabled {
		return c, nil
	}

	vaultCfg := api.DefaultConfig()
	vaultCfg.Address = cfg.Address
	client, err := api.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	client.SetToken(cfg.Token)
	c.client = client
	return c, nil
}

func (c *Client) IsEnabled() bool { return c.cfg.Enabled }

// Seed preloads a secret from configuration/environment, used when
// Vault is disabled so resolution still has something to return.
func (c *Client) Seed(name, value string) {
	c.mu.Lock()
	c.cache[name] = value
	c.mu.Unlock()
}

func (c *Client) path(name string) string {
	return fmt.Sprintf("%s/data/%s/%s", c.cfg.MountPath, c.cfg.BasePath, name)
}

// resolve fetches a single named secret's "value" field from Vault,
// falling back to the seeded cache on any failure or when disabled.
func (c *Client) resolve(ctx context.Context, name string) (string, error) {
	c.mu.RLock()
	cached, found := c.cache[name]
	c.mu.RUnlock()

	if !c.cfg.Enabled {
		if found {
			return cached, nil
		}
		return "", fmt.Errorf("secret %q not found and vault is disabled", name)
	}

	secret, err := c.client.Logical().ReadWithContext(ctx, c.path(name))
	if err != nil {
		if found {
			return cached, nil
		}
		return "", fmt.Errorf("read secret %q from vault: %w", name, err)
	}
	if secret == nil || secret.Data == nil {
		if found {
			return cached, nil
		}
		return "", fmt.Errorf("secret %q not found in vault", name)
	}
	data, _ := secret.Data["data"].(map[string]interface{})
	value, _ := data["value"].(string)

	c.mu.Lock()
	c.cache[name] = value
	c.mu.Unlock()
	return value, nil
}

// ResolveAPIKey returns the exchange API key/secret pair, read from
// "exchange_api_key"/"exchange_secret_key". The ingress REST client
// sends unsigned requests and does not use it.
func (c *Client) ResolveAPIKey(ctx context.Context) (apiKey, secretKey string, err error) {
	apiKey, err = c.resolve(ctx, "exchange_api_key")
	if err != nil {
		return "", "", err
	}
	secretKey, err = c.resolve(ctx, "exchange_secret_key")
	if err != nil {
		return "", "", err
	}
	return apiKey, secretKey, nil
}

// ResolveNotifierToken returns the named notifier credential (e.g.
// "telegram_bot_token", "discord_webhook_url").
func (c *Client) ResolveNotifierToken(ctx context.Context, name string) (string, error) {
	return c.resolve(ctx, name)
}

// Health reports whether Vault (if enabled) is reachable and unsealed.
func (c *Client) Health(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	health, err := c.client.Sys().Health()
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}
