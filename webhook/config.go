package webhook

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config describes a webhook deployment: the public HTTPS base URL
// Telegram delivers updates to, the local listen port, and the
// registration options forwarded to setWebhook.
type Config struct {
	// URL is the public base URL of the webhook endpoint. The scheme
	// must be https; Telegram rejects plaintext registrations and so
	// does this library, before any network call.
	URL string `yaml:"url"`

	// Host is the local bind address. Empty binds all interfaces;
	// deployments behind a reverse proxy usually want 127.0.0.1.
	Host string `yaml:"host"`

	// Port is the local listen port. Zero falls back to the PORT
	// environment variable, then 3000.
	Port int `yaml:"port"`

	// Path overrides the endpoint path segment. When empty the bot
	// token is used, which keeps the endpoint unguessable without a
	// separate secret scheme at the cost of placing the token in the
	// URL. An Options["path"] entry takes precedence over this field.
	Path string `yaml:"path"`

	// Token is the bot token, used as the default path segment.
	Token string `yaml:"-"`

	// SecretToken, when set, is included in the registration and
	// verified on every delivery via the
	// X-Telegram-Bot-Api-Secret-Token header.
	SecretToken string `yaml:"secret_token"`

	// Options holds additional setWebhook fields forwarded verbatim
	// (allowed_updates, max_connections, drop_pending_updates, ...).
	// A "path" entry is a transport concern, not a registration field:
	// it selects the endpoint path and is removed from the payload.
	Options map[string]any `yaml:"options"`

	// DrainTimeout bounds how long a graceful close waits for in-flight
	// deliveries during teardown.
	DrainTimeout time.Duration `yaml:"drain_timeout"`

	// EnableMetrics mounts a Prometheus /metrics endpoint on the
	// webhook server.
	EnableMetrics bool `yaml:"metrics"`
}

// defaults applies default values to unset fields.
func (c *Config) defaults() {
	if c.Port == 0 {
		if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil && p > 0 {
			c.Port = p
		} else {
			c.Port = 3000
		}
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 5 * time.Second
	}
}

// Validate checks the configuration before any I/O happens. All
// failures are *ConfigError.
func (c *Config) Validate() error {
	if c.URL == "" {
		return &ConfigError{Field: "url", Reason: "required"}
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return &ConfigError{Field: "url", Reason: "not a valid URL: " + err.Error()}
	}
	if u.Scheme != "https" {
		return &ConfigError{Field: "url", Reason: "scheme must be https, got " + strconv.Quote(u.Scheme)}
	}
	if u.Host == "" {
		return &ConfigError{Field: "url", Reason: "missing host"}
	}
	if c.Port < 0 || c.Port > 65535 {
		return &ConfigError{Field: "port", Reason: "out of range: " + strconv.Itoa(c.Port)}
	}
	if c.effectivePath() == "" {
		return &ConfigError{Field: "path", Reason: "no path override and no bot token to derive one from"}
	}
	return nil
}

// effectivePath resolves the endpoint path segment: the Options["path"]
// override when present, then the Path field, then the bot token.
func (c *Config) effectivePath() string {
	if p, ok := c.Options["path"].(string); ok && p != "" {
		return p
	}
	if c.Path != "" {
		return c.Path
	}
	return c.Token
}

// Endpoint returns the public URL Telegram will POST updates to.
func (c *Config) Endpoint() string {
	return strings.TrimSuffix(c.URL, "/") + "/" + strings.TrimPrefix(c.effectivePath(), "/")
}

// routePath returns the local route the server mounts for deliveries.
func (c *Config) routePath() string {
	return "/" + strings.TrimPrefix(c.effectivePath(), "/")
}

// RegistrationPayload builds the setWebhook request body: the full
// endpoint URL plus every option except the "path" transport override.
// Teardown reuses the identical payload for deleteWebhook so both ends
// of the lifecycle refer to the same registration.
func (c *Config) RegistrationPayload() map[string]any {
	payload := make(map[string]any, len(c.Options)+2)
	for k, v := range c.Options {
		if k == "path" {
			continue
		}
		payload[k] = v
	}
	payload["url"] = c.Endpoint()
	if c.SecretToken != "" {
		payload["secret_token"] = c.SecretToken
	}
	return payload
}
