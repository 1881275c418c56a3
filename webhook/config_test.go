package webhook

import (
	"errors"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")

	cfg := Config{URL: "https://example.com", Token: "T"}
	cfg.defaults()

	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.DrainTimeout != 5*time.Second {
		t.Errorf("DrainTimeout = %v, want 5s", cfg.DrainTimeout)
	}
}

func TestConfigDefaultsHonorPortEnv(t *testing.T) {
	t.Setenv("PORT", "8443")

	cfg := Config{URL: "https://example.com", Token: "T"}
	cfg.defaults()

	if cfg.Port != 8443 {
		t.Errorf("Port = %d, want 8443", cfg.Port)
	}
}

func TestConfigDefaultsPreservesValues(t *testing.T) {
	t.Setenv("PORT", "8443")

	cfg := Config{URL: "https://example.com", Token: "T", Port: 9000, DrainTimeout: time.Second}
	cfg.defaults()

	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.DrainTimeout != time.Second {
		t.Errorf("DrainTimeout = %v, want 1s", cfg.DrainTimeout)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantField string
	}{
		{
			name:      "empty url",
			cfg:       Config{Token: "T"},
			wantField: "url",
		},
		{
			name:      "http scheme",
			cfg:       Config{URL: "http://example.com", Token: "T"},
			wantField: "url",
		},
		{
			name:      "ftp scheme",
			cfg:       Config{URL: "ftp://example.com", Token: "T"},
			wantField: "url",
		},
		{
			name:      "missing host",
			cfg:       Config{URL: "https://", Token: "T"},
			wantField: "url",
		},
		{
			name:      "port out of range",
			cfg:       Config{URL: "https://example.com", Token: "T", Port: 70000},
			wantField: "port",
		},
		{
			name:      "no path derivable",
			cfg:       Config{URL: "https://example.com"},
			wantField: "path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %T, want *ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestConfigValidateAccepts(t *testing.T) {
	cfg := Config{URL: "https://example.com/", Token: "123:ABC"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}

	// Path override alone is enough, no token needed.
	cfg = Config{URL: "https://example.com", Path: "hook"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestEffectivePathPrecedence(t *testing.T) {
	cfg := Config{
		Token:   "BOT_TOKEN",
		Path:    "field-path",
		Options: map[string]any{"path": "option-path"},
	}
	if got := cfg.effectivePath(); got != "option-path" {
		t.Errorf("effectivePath() = %q, want %q", got, "option-path")
	}

	cfg.Options = nil
	if got := cfg.effectivePath(); got != "field-path" {
		t.Errorf("effectivePath() = %q, want %q", got, "field-path")
	}

	cfg.Path = ""
	if got := cfg.effectivePath(); got != "BOT_TOKEN" {
		t.Errorf("effectivePath() = %q, want %q", got, "BOT_TOKEN")
	}
}

func TestEndpointJoinsCleanly(t *testing.T) {
	tests := []struct {
		url  string
		path string
		want string
	}{
		{"https://example.com", "tok", "https://example.com/tok"},
		{"https://example.com/", "tok", "https://example.com/tok"},
		{"https://example.com", "/hook", "https://example.com/hook"},
		{"https://example.com/", "/hook", "https://example.com/hook"},
	}

	for _, tt := range tests {
		cfg := Config{URL: tt.url, Path: tt.path}
		if got := cfg.Endpoint(); got != tt.want {
			t.Errorf("Endpoint(%q, %q) = %q, want %q", tt.url, tt.path, got, tt.want)
		}
	}
}

func TestRegistrationPayload(t *testing.T) {
	cfg := Config{
		URL:   "https://example.com/",
		Token: "BOT_TOKEN",
		Options: map[string]any{
			"path":            "custom",
			"max_connections": 40,
			"allowed_updates": []string{"message"},
		},
	}

	payload := cfg.RegistrationPayload()

	if got := payload["url"]; got != "https://example.com/custom" {
		t.Errorf("url = %v, want %q", got, "https://example.com/custom")
	}
	if _, ok := payload["path"]; ok {
		t.Error("payload contains path, want it scrubbed")
	}
	if got := payload["max_connections"]; got != 40 {
		t.Errorf("max_connections = %v, want 40", got)
	}
	if _, ok := payload["allowed_updates"]; !ok {
		t.Error("payload missing allowed_updates")
	}
}

func TestRegistrationPayloadSecretToken(t *testing.T) {
	cfg := Config{URL: "https://example.com", Token: "T", SecretToken: "s3cret"}

	payload := cfg.RegistrationPayload()
	if got := payload["secret_token"]; got != "s3cret" {
		t.Errorf("secret_token = %v, want %q", got, "s3cret")
	}

	cfg.SecretToken = ""
	payload = cfg.RegistrationPayload()
	if _, ok := payload["secret_token"]; ok {
		t.Error("payload contains secret_token, want absent")
	}
}

func TestRegistrationPayloadDoesNotMutateOptions(t *testing.T) {
	opts := map[string]any{"path": "x", "max_connections": 10}
	cfg := Config{URL: "https://example.com", Token: "T", Options: opts}

	_ = cfg.RegistrationPayload()

	if _, ok := opts["path"]; !ok {
		t.Error("caller's options map lost its path entry")
	}
}
