package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Enkel-Digital/yatbl/bot"
	"github.com/Enkel-Digital/yatbl/internal/config"
	"github.com/Enkel-Digital/yatbl/internal/telemetry"
	"github.com/Enkel-Digital/yatbl/schedule"
	"github.com/Enkel-Digital/yatbl/session"
	"github.com/Enkel-Digital/yatbl/webhook"
)

const shutdownTimeout = 10 * time.Second

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the bot with the configured update source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfigFromFlags(cmd)
			if err != nil {
				return err
			}
			return runBot(cmd.Context(), cfg, buildLogger(cfg))
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}

// loadConfigFromFlags loads and validates the configuration named by
// the --config flag, falling back to the standard search path.
func loadConfigFromFlags(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return loadConfigAt(path)
}

func loadConfigAt(path string) (*config.Config, error) {
	// A .env next to the working directory keeps tokens out of the
	// YAML file; ${VAR} references in it resolve during Load.
	_ = godotenv.Load()

	if path == "" {
		resolved, err := resolveConfigPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// runBot assembles the bot from the configuration, starts the update
// source, and blocks until the context is cancelled or a shutdown
// signal arrives. Teardown walks the pieces in reverse start order.
func runBot(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openSessionStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing session store", "error", err)
		}
	}()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.Insecure)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Error("flushing telemetry", "error", err)
		}
	}()

	b, err := bot.New(cfg.Token,
		bot.WithBaseURL(cfg.APIURL),
		bot.WithLogger(logger),
		bot.WithSessionStore(store),
		bot.WithPollTimeout(cfg.Polling.Timeout),
		bot.WithAllowedUpdates(cfg.Polling.AllowedUpdates),
	)
	if err != nil {
		return err
	}

	if cfg.Echo {
		b.OnUpdate(echoHandler)
	}

	switch cfg.Mode {
	case "webhook":
		err = b.StartWebhook(ctx, webhookSettings(cfg))
	default:
		err = b.StartPolling(ctx)
	}
	if err != nil {
		// Registration can fail after the listener came up; Close
		// releases the port before we bail.
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if closeErr := b.Close(closeCtx); closeErr != nil {
			logger.Error("cleanup after failed start", "error", closeErr)
		}
		return err
	}
	logger.Info("bot started", "mode", cfg.Mode)

	sched, err := startScheduler(cfg, b, logger)
	if err != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if closeErr := b.Close(closeCtx); closeErr != nil {
			logger.Error("cleanup after failed start", "error", closeErr)
		}
		return err
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(stopCtx); err != nil {
			logger.Error("stopping scheduler", "error", err)
		}
	}
	if err := b.Close(stopCtx); err != nil {
		logger.Error("stopping bot", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func openSessionStore(cfg *config.Config, logger *slog.Logger) (session.Store, error) {
	if cfg.Sessions.Path == "" {
		return session.NewMemoryStore(), nil
	}
	store, err := session.OpenSQLiteStore(cfg.Sessions.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("session store opened", "path", cfg.Sessions.Path)
	return store, nil
}

// webhookSettings maps the file configuration onto the webhook
// manager's settings. The bot fills in the token.
func webhookSettings(cfg *config.Config) webhook.Config {
	return webhook.Config{
		URL:           cfg.Webhook.URL,
		Host:          cfg.Webhook.Host,
		Port:          cfg.Webhook.Port,
		Path:          cfg.Webhook.Path,
		SecretToken:   cfg.Webhook.SecretToken,
		Options:       cfg.Webhook.Options,
		DrainTimeout:  cfg.Webhook.DrainTimeout,
		EnableMetrics: cfg.Webhook.Metrics,
	}
}

func startScheduler(cfg *config.Config, b *bot.Bot, logger *slog.Logger) (*schedule.Scheduler, error) {
	if len(cfg.Schedule) == 0 {
		return nil, nil
	}

	sched := schedule.NewScheduler(logger)
	for _, entry := range cfg.Schedule {
		job := &schedule.MessageJob{
			Sender:       b.API(),
			ChatID:       entry.ChatID,
			Text:         entry.Text,
			JobName:      entry.Name,
			ScheduleExpr: entry.Cron,
		}
		if err := sched.RegisterJob(job); err != nil {
			return nil, err
		}
	}
	if err := sched.Start(); err != nil {
		return nil, err
	}
	return sched, nil
}

// echoHandler repeats plain text messages back to their chat. Commands
// and non-text updates pass through untouched.
func echoHandler(c *bot.Context) error {
	msg := c.Update().Message
	if msg == nil || msg.Text == "" {
		return nil
	}
	if _, ok := msg.Command(); ok {
		return nil
	}
	_, err := c.Reply(msg.Text)
	return err
}
