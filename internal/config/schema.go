// Package config handles YAML configuration loading, environment
// variable expansion, and structural validation for yatbl.
package config

import "time"

// Config is the top-level configuration structure.
type Config struct {
	// Token is the bot token. Usually written as ${BOT_TOKEN} and
	// resolved from the environment at load time.
	Token string `yaml:"token"`

	// APIURL overrides the Telegram Bot API base URL, for test doubles
	// and self-hosted Bot API servers. Empty uses the public endpoint.
	APIURL string `yaml:"api_url,omitempty"`

	// Mode selects the update source: "polling" or "webhook".
	// Defaults to polling.
	Mode string `yaml:"mode"`

	Polling   PollingConfig   `yaml:"polling,omitempty"`
	Webhook   WebhookConfig   `yaml:"webhook,omitempty"`
	Sessions  SessionsConfig  `yaml:"sessions,omitempty"`
	Schedule  []ScheduleEntry `yaml:"schedule,omitempty"`
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
	Log       LogConfig       `yaml:"log,omitempty"`

	// Echo enables a built-in handler that echoes every text message
	// back to its chat. Useful when trying out a fresh deployment.
	Echo bool `yaml:"echo,omitempty"`
}

// PollingConfig tunes the getUpdates long-poll loop.
type PollingConfig struct {
	// Timeout is the long-poll timeout in seconds. Defaults to 30.
	Timeout int `yaml:"timeout"`

	// AllowedUpdates restricts which update kinds Telegram delivers.
	AllowedUpdates []string `yaml:"allowed_updates,omitempty"`
}

// WebhookConfig is the YAML form of the webhook lifecycle settings.
// The port defaulting chain (PORT environment variable, then 3000) is
// applied by the webhook layer, not here.
type WebhookConfig struct {
	URL          string         `yaml:"url"`
	Host         string         `yaml:"host,omitempty"`
	Port         int            `yaml:"port,omitempty"`
	Path         string         `yaml:"path,omitempty"`
	SecretToken  string         `yaml:"secret_token,omitempty"`
	Options      map[string]any `yaml:"options,omitempty"`
	DrainTimeout time.Duration  `yaml:"drain_timeout,omitempty"`
	Metrics      bool           `yaml:"metrics,omitempty"`
}

// SessionsConfig selects per-chat state storage.
type SessionsConfig struct {
	// Path is the SQLite database file. Empty keeps sessions in
	// process memory.
	Path string `yaml:"path,omitempty"`
}

// ScheduleEntry describes one recurring broadcast message.
type ScheduleEntry struct {
	Name   string `yaml:"name"`
	Cron   string `yaml:"cron"`
	ChatID int64  `yaml:"chat_id"`
	Text   string `yaml:"text"`
}

// TelemetryConfig controls OTLP trace export.
type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector host:port. Empty disables
	// export entirely.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure switches the exporter to plain HTTP.
	Insecure bool `yaml:"insecure,omitempty"`
}

// LogConfig controls log output.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`

	// Format is "text" or "json". Defaults to text.
	Format string `yaml:"format"`
}

// Defaults fills unset fields in place. Load applies it automatically.
func (c *Config) Defaults() {
	if c.Mode == "" {
		c.Mode = "polling"
	}
	if c.Polling.Timeout == 0 {
		c.Polling.Timeout = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}
