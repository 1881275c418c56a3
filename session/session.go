// Package session stores small per-chat state between updates.
//
// Handlers reach it through the bot's Context, which binds the
// configured Store to the chat an update came from.
package session

import (
	"context"
	"errors"
)

// ErrNoStore is returned by Scope methods when the bot was built
// without a session store.
var ErrNoStore = errors.New("session: no store configured")

// Store persists string values keyed by chat and name. Implementations
// must be safe for concurrent use.
type Store interface {
	// Get returns the value for key in chatID. The bool reports
	// whether the key was present.
	Get(ctx context.Context, chatID int64, key string) (string, bool, error)

	// Set stores value under key for chatID, replacing any previous
	// value.
	Set(ctx context.Context, chatID int64, key, value string) error

	// Delete removes key from chatID. Deleting an absent key is not
	// an error.
	Delete(ctx context.Context, chatID int64, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// Scope is a Store bound to a single chat.
type Scope struct {
	store  Store
	chatID int64
}

// NewScope binds store to chatID. A nil store yields a Scope whose
// methods return ErrNoStore.
func NewScope(store Store, chatID int64) Scope {
	return Scope{store: store, chatID: chatID}
}

// ChatID returns the chat this scope is bound to.
func (s Scope) ChatID() int64 { return s.chatID }

func (s Scope) Get(ctx context.Context, key string) (string, bool, error) {
	if s.store == nil {
		return "", false, ErrNoStore
	}
	return s.store.Get(ctx, s.chatID, key)
}

func (s Scope) Set(ctx context.Context, key, value string) error {
	if s.store == nil {
		return ErrNoStore
	}
	return s.store.Set(ctx, s.chatID, key, value)
}

func (s Scope) Delete(ctx context.Context, key string) error {
	if s.store == nil {
		return ErrNoStore
	}
	return s.store.Delete(ctx, s.chatID, key)
}
