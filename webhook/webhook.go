// Package webhook manages the lifecycle of a Telegram webhook
// deployment: start a local HTTP listener, register its public URL with
// the Bot API, receive update deliveries, and tear the registration
// down again without losing updates in either direction.
//
// Ordering is the point of the package. On startup the listener accepts
// connections before setWebhook is issued, so Telegram never delivers
// to a dead address. On teardown deleteWebhook is confirmed before the
// listener starts draining, so a live registration never points at a
// closed port.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

// Caller invokes a Bot API method by name with a JSON payload.
// *tapi.Client satisfies it; tests substitute recorders.
type Caller interface {
	Call(ctx context.Context, method string, payload map[string]any) (json.RawMessage, error)
}

// State is the lifecycle phase of a Manager. Transitions are strictly
// sequential: Unregistered, ListenerActive, Registered, Unregistering,
// Closed.
type State int

const (
	StateUnregistered State = iota
	StateListenerActive
	StateRegistered
	StateUnregistering
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateListenerActive:
		return "listener_active"
	case StateRegistered:
		return "registered"
	case StateUnregistering:
		return "unregistering"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Manager owns the relationship between a local HTTP listener and the
// webhook registration held by Telegram, and sequences the two so
// updates are neither lost nor delivered to a closed listener.
//
// Lifecycle operations are administrative: they are meant to be called
// sequentially by the owning process during startup and shutdown, not
// from request handlers. The internal mutex is defense against misuse,
// not a concurrency API.
type Manager struct {
	api       Caller
	cfg       Config
	dispatch  UpdateHandler
	logger    *slog.Logger
	newServer ServerFactory
	metrics   *Metrics

	mu      sync.Mutex
	state   State
	handle  ServerHandle
	payload map[string]any // registration payload, reused by deleteWebhook
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithServerFactory substitutes the listener implementation. The
// default factory builds the package's Server.
func WithServerFactory(f ServerFactory) Option {
	return func(m *Manager) { m.newServer = f }
}

// WithMetrics substitutes the delivery metrics. The default is a fresh
// NewMetrics instance.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager validates cfg and creates a manager in the unregistered
// state. Validation failures are *ConfigError and occur before any
// listener is created or network call made. dispatch receives every
// decoded update delivery; its outcome is not inspected.
func NewManager(api Caller, cfg Config, dispatch UpdateHandler, opts ...Option) (*Manager, error) {
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		api:      api,
		cfg:      cfg,
		dispatch: dispatch,
		state:    StateUnregistered,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.metrics == nil {
		m.metrics = NewMetrics()
	}
	if m.newServer == nil {
		metrics, logger := m.metrics, m.logger
		m.newServer = func(cfg Config, handler http.Handler) ServerHandle {
			if !cfg.EnableMetrics {
				return NewServer(cfg, handler, nil, logger)
			}
			return NewServer(cfg, handler, metrics, logger)
		}
	}
	return m, nil
}

// StartAndRegister starts the listener and then registers the webhook,
// in that order. The listener is accepting connections before the
// setWebhook call is issued, so Telegram cannot deliver into the void.
//
// If registration fails the listener is left running and the error
// returned: a live listener with no remote registration is a safe,
// inert state, and the caller may retry Register or call Teardown.
// There is no automatic rollback.
func (m *Manager) StartAndRegister(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.startListener(); err != nil {
		return err
	}
	return m.register(ctx)
}

// StartListener binds the webhook HTTP listener without registering
// anything remotely. The port is accepting connections when it returns.
func (m *Manager) StartListener() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startListener()
}

func (m *Manager) startListener() error {
	switch m.state {
	case StateClosed:
		return ErrClosed
	case StateUnregistered:
	default:
		return fmt.Errorf("%w (state %s)", ErrAlreadyStarted, m.state)
	}

	receiver := NewReceiver(m.dispatch, m.cfg.SecretToken, m.logger, m.metrics)
	handle := m.newServer(m.cfg, receiver)
	if err := handle.Start(); err != nil {
		return fmt.Errorf("webhook: start listener: %w", err)
	}

	m.handle = handle
	m.state = StateListenerActive
	m.logger.Info("webhook listener active", "addr", handle.Addr())
	return nil
}

// Register announces the listener to Telegram via setWebhook. It
// refuses to run unless the listener is already accepting connections,
// so updates are never routed at a dead address.
func (m *Manager) Register(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.register(ctx)
}

func (m *Manager) register(ctx context.Context) error {
	switch m.state {
	case StateClosed:
		return ErrClosed
	case StateListenerActive:
	default:
		return fmt.Errorf("%w (state %s)", ErrListenerInactive, m.state)
	}

	payload := m.cfg.RegistrationPayload()
	if _, err := m.api.Call(ctx, "setWebhook", payload); err != nil {
		return fmt.Errorf("webhook: setWebhook: %w", err)
	}

	m.payload = payload
	m.state = StateRegistered
	m.logger.Info("webhook registered", "addr", m.handle.Addr())
	return nil
}

// Teardown removes the remote registration and then closes the
// listener, in that order (the reverse of startup). Deleting the
// registration first stops new inbound delivery; only after Telegram
// confirms does the listener stop accepting and drain in-flight
// requests, bounded by the configured drain timeout.
//
// If the delete call fails the listener stays open and the state
// reverts to Registered: Telegram may still be targeting the endpoint,
// and closing it would silently drop those updates. If the delete
// succeeds but the close fails, the state is Closed but the returned
// *ServerCloseError means the port must be treated as unreleased.
// Teardown never reports success unless both steps completed.
func (m *Manager) Teardown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateClosed:
		return ErrClosed
	case StateUnregistered:
		return ErrNotStarted
	case StateListenerActive:
		// Nothing registered remotely; just release the listener.
		return m.closeListener(ctx)
	case StateRegistered:
	default:
		return fmt.Errorf("webhook: teardown in state %s", m.state)
	}

	m.state = StateUnregistering
	if _, err := m.api.Call(ctx, "deleteWebhook", m.payload); err != nil {
		m.state = StateRegistered
		return fmt.Errorf("webhook: deleteWebhook: %w", err)
	}
	m.logger.Info("webhook deregistered")

	return m.closeListener(ctx)
}

// closeListener gracefully closes the handle and moves to Closed. The
// state advances even when the close fails; the typed error carries the
// fact that the port may not have been released.
func (m *Manager) closeListener(ctx context.Context) error {
	m.state = StateClosed

	err := m.handle.Close(ctx)
	if err == nil {
		m.logger.Info("webhook listener closed")
		return nil
	}

	var closeErr *ServerCloseError
	if !errors.As(err, &closeErr) {
		err = &ServerCloseError{Err: err}
	}
	m.logger.Error("webhook listener close failed", "error", err)
	return err
}

// State reports the current lifecycle phase. After a Teardown error it
// distinguishes "nothing happened" (still Registered) from "partially
// torn down" (Closed, with a ServerCloseError returned).
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Addr reports the listener's bound address, or empty before the
// listener starts.
func (m *Manager) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle == nil {
		return ""
	}
	return m.handle.Addr()
}
