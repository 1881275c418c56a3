// Package bot composes a Telegram bot from independent parts: the API
// client, an ordered update handler chain with an explicit per-update
// Context, a shorthand registry for extensions, and interchangeable
// update sources (long polling or the webhook lifecycle manager).
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Enkel-Digital/yatbl/session"
	"github.com/Enkel-Digital/yatbl/tapi"
	"github.com/Enkel-Digital/yatbl/webhook"
)

var tracer = otel.Tracer("github.com/Enkel-Digital/yatbl/bot")

var (
	// ErrPollingActive indicates StartPolling was called while a
	// polling loop is already running.
	ErrPollingActive = errors.New("bot: polling already active")

	// ErrWebhookActive indicates StartWebhook was called while a
	// webhook manager is already running.
	ErrWebhookActive = errors.New("bot: webhook already active")
)

// Bot ties an API client to an update handler chain. Polling and
// webhook delivery are optional capabilities attached to the same
// core; neither is required to use the client directly.
type Bot struct {
	client  *tapi.Client
	baseURL string
	logger  *slog.Logger
	store   session.Store

	shorthands *ShorthandRegistry

	pollTimeout    int
	allowedUpdates []string

	mu       sync.Mutex
	handlers []Handler
	poller   *Poller
	webhook  *webhook.Manager
}

// Option configures a Bot.
type Option func(*Bot)

// WithBaseURL points the bot at a different API server, such as a
// local test double or a self-hosted Bot API instance.
func WithBaseURL(baseURL string) Option {
	return func(b *Bot) { b.baseURL = baseURL }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) { b.logger = logger }
}

// WithSessionStore attaches per-chat session storage. The store stays
// open after Close; its lifecycle belongs to the caller.
func WithSessionStore(store session.Store) Option {
	return func(b *Bot) { b.store = store }
}

// WithPollTimeout sets the long-poll timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(b *Bot) { b.pollTimeout = seconds }
}

// WithAllowedUpdates restricts which update kinds Telegram delivers.
func WithAllowedUpdates(kinds []string) Option {
	return func(b *Bot) { b.allowedUpdates = kinds }
}

// New creates a Bot for the given token and registers the built-in
// "reply" shorthand.
func New(token string, opts ...Option) (*Bot, error) {
	if token == "" {
		return nil, errors.New("bot: token is required")
	}

	b := &Bot{
		logger:      slog.Default(),
		shorthands:  NewShorthandRegistry(),
		pollTimeout: defaultPollTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.client = tapi.NewClient(token, b.baseURL)

	if err := b.shorthands.Register("reply", replyProvider); err != nil {
		return nil, err
	}

	return b, nil
}

// API returns the underlying Telegram API client.
func (b *Bot) API() *tapi.Client { return b.client }

// Shorthands returns the registry extension packages register into.
func (b *Bot) Shorthands() *ShorthandRegistry { return b.shorthands }

// OnUpdate appends a handler to the chain. Handlers run in
// registration order for every update.
func (b *Bot) OnUpdate(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// OnCommand registers a handler that runs only when the update is the
// named bot command. "start" matches "/start" and "/start@MyBot".
func (b *Bot) OnCommand(name string, h Handler) {
	b.OnUpdate(func(c *Context) error {
		msg := c.Update().Message
		if msg == nil {
			return nil
		}
		cmd, ok := msg.Command()
		if !ok || cmd != name {
			return nil
		}
		return h(c)
	})
}

// HandleUpdate runs the handler chain for one update. A handler error
// stops the remaining chain; it is logged and otherwise swallowed, so
// the update source neither retries nor fails on handler bugs.
func (b *Bot) HandleUpdate(ctx context.Context, update *tapi.Update) {
	if update == nil {
		return
	}

	ctx, span := tracer.Start(ctx, "bot.update",
		trace.WithAttributes(attribute.Int("telegram.update_id", update.UpdateID)))
	defer span.End()

	b.mu.Lock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	c := &Context{
		Context:  ctx,
		api:      b.client,
		update:   update,
		logger:   b.logger,
		registry: b.shorthands,
		store:    b.store,
	}

	for _, h := range handlers {
		if err := h(c); err != nil {
			b.logger.Error("update handler failed",
				"update_id", update.UpdateID,
				"error", err)
			span.RecordError(err)
			return
		}
	}
}

// StartPolling validates the token with getMe and begins long polling
// for updates in a background goroutine. The context bounds only the
// getMe call; the loop runs until StopPolling or Close.
func (b *Bot) StartPolling(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.poller != nil {
		return ErrPollingActive
	}

	me, err := b.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("bot: getMe: %w", err)
	}
	b.logger.Info("bot identity confirmed", "username", me.Username, "id", me.ID)

	p := NewPoller(b.client, b.HandleUpdate, b.logger, b.pollTimeout, b.allowedUpdates)
	p.Start()
	b.poller = p
	return nil
}

// StopPolling stops the polling loop and waits for it to drain.
// Stopping an idle bot is a no-op.
func (b *Bot) StopPolling() {
	b.mu.Lock()
	p := b.poller
	b.poller = nil
	b.mu.Unlock()

	if p != nil {
		p.Stop()
	}
}

// StartWebhook brings up webhook delivery: local listener first, then
// registration with Telegram, in that order. When cfg.Token is empty
// the bot's own token fills it, which also makes the token the default
// webhook path. Extra manager options are applied after the bot's own.
func (b *Bot) StartWebhook(ctx context.Context, cfg webhook.Config, opts ...webhook.Option) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.webhook != nil {
		return ErrWebhookActive
	}

	if cfg.Token == "" {
		cfg.Token = b.client.Token()
	}

	mgrOpts := append([]webhook.Option{webhook.WithLogger(b.logger)}, opts...)
	mgr, err := webhook.NewManager(b.client, cfg, b.HandleUpdate, mgrOpts...)
	if err != nil {
		return err
	}

	if err := mgr.StartAndRegister(ctx); err != nil {
		if mgr.State() != webhook.StateUnregistered {
			// Registration failed after the listener came up. There is
			// no rollback; keep the manager so StopWebhook can release
			// the port.
			b.webhook = mgr
		}
		return err
	}

	b.webhook = mgr
	return nil
}

// StopWebhook deregisters the webhook and closes the listener,
// confirming deletion with Telegram before the listener goes away.
func (b *Bot) StopWebhook(ctx context.Context) error {
	b.mu.Lock()
	mgr := b.webhook
	b.mu.Unlock()

	if mgr == nil {
		return webhook.ErrNotStarted
	}

	err := mgr.Teardown(ctx)
	if err == nil || mgr.State() == webhook.StateClosed {
		b.mu.Lock()
		b.webhook = nil
		b.mu.Unlock()
	}
	return err
}

// Webhook returns the running webhook manager, or nil when webhook
// delivery is not active.
func (b *Bot) Webhook() *webhook.Manager {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.webhook
}

// Close shuts down whichever update sources are running. A configured
// session store stays open; the caller owns it.
func (b *Bot) Close(ctx context.Context) error {
	b.StopPolling()

	b.mu.Lock()
	mgr := b.webhook
	b.webhook = nil
	b.mu.Unlock()

	if mgr == nil {
		return nil
	}
	if err := mgr.Teardown(ctx); err != nil && !errors.Is(err, webhook.ErrClosed) {
		return err
	}
	return nil
}
