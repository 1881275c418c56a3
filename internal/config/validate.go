package config

import (
	"errors"
	"fmt"
)

// Validate checks the structural validity of a Config. All problems
// are collected and returned together so a broken file can be fixed in
// one pass. The webhook layer re-checks its own settings (https URL,
// port range) before any network call.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Token == "" {
		errs = append(errs, errors.New("config: token is required"))
	}

	switch cfg.Mode {
	case "polling":
	case "webhook":
		if cfg.Webhook.URL == "" {
			errs = append(errs, errors.New("config: webhook.url is required in webhook mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: mode must be \"polling\" or \"webhook\", got %q", cfg.Mode))
	}

	if cfg.Polling.Timeout < 0 || cfg.Polling.Timeout > 50 {
		errs = append(errs, fmt.Errorf("config: polling.timeout must be 0-50, got %d", cfg.Polling.Timeout))
	}

	if cfg.Webhook.Port < 0 || cfg.Webhook.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: webhook.port out of range: %d", cfg.Webhook.Port))
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: log.level must be debug, info, warn, or error, got %q", cfg.Log.Level))
	}

	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format must be \"text\" or \"json\", got %q", cfg.Log.Format))
	}

	errs = append(errs, validateSchedule(cfg.Schedule)...)

	return errors.Join(errs...)
}

func validateSchedule(entries []ScheduleEntry) []error {
	var errs []error
	seen := make(map[string]struct{}, len(entries))

	for i, entry := range entries {
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("config: schedule[%d]: name is required", i))
		} else if _, dup := seen[entry.Name]; dup {
			errs = append(errs, fmt.Errorf("config: schedule[%d]: duplicate name %q", i, entry.Name))
		} else {
			seen[entry.Name] = struct{}{}
		}
		if entry.Cron == "" {
			errs = append(errs, fmt.Errorf("config: schedule[%d]: cron is required", i))
		}
		if entry.ChatID == 0 {
			errs = append(errs, fmt.Errorf("config: schedule[%d]: chat_id is required", i))
		}
		if entry.Text == "" {
			errs = append(errs, fmt.Errorf("config: schedule[%d]: text is required", i))
		}
	}

	return errs
}
