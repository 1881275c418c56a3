package webhook

import (
	"errors"
	"fmt"
)

// State-guard sentinels for lifecycle operations invoked out of order.
var (
	// ErrAlreadyStarted is returned by StartListener and StartAndRegister
	// when a listener is already running.
	ErrAlreadyStarted = errors.New("webhook: already started")

	// ErrListenerInactive is returned by Register when no listener is
	// accepting connections yet.
	ErrListenerInactive = errors.New("webhook: listener not active")

	// ErrNotStarted is returned by Teardown when there is nothing to
	// tear down.
	ErrNotStarted = errors.New("webhook: not started")

	// ErrClosed is returned by lifecycle operations after the manager
	// reached its terminal state.
	ErrClosed = errors.New("webhook: closed")
)

// ConfigError reports an invalid webhook configuration. It is returned
// synchronously, before any listener is created or network call made.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("webhook: invalid config field %q: %s", e.Field, e.Reason)
}

// ServerCloseError reports a failed graceful shutdown of the webhook
// listener. The listener state afterwards is unreliable: the port may
// not have been released. Callers should log and escalate rather than
// assume a clean teardown.
type ServerCloseError struct {
	Err error
}

func (e *ServerCloseError) Error() string {
	return "webhook: graceful close failed: " + e.Err.Error()
}

func (e *ServerCloseError) Unwrap() error { return e.Err }
