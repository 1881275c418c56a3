package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Enkel-Digital/yatbl/session"
	"github.com/Enkel-Digital/yatbl/tapi"
)

// Handler processes one update. Returning an error stops the remaining
// handler chain for that update; the error is logged, never propagated
// to the update source.
type Handler func(*Context) error

// ErrNoChat indicates the update carries no chat to act on.
var ErrNoChat = errors.New("bot: update has no chat")

// ErrNoShorthand indicates no provider is registered under a name.
var ErrNoShorthand = errors.New("bot: unknown shorthand")

// ReplyFunc sends a text message to the chat the update came from. It
// is the value of the built-in "reply" shorthand.
type ReplyFunc func(text string) (*tapi.Message, error)

// Context carries everything a handler may need for one update: the
// API client, the update itself, a scratch map shared along the handler
// chain, lazily resolved shorthands, and the session scope for the
// update's chat.
//
// It embeds the request context.Context, so it can be passed directly
// to API calls. A Context is only valid for the duration of the handler
// chain that received it.
type Context struct {
	context.Context

	api    *tapi.Client
	update *tapi.Update
	logger *slog.Logger

	registry *ShorthandRegistry
	resolved map[string]any

	store session.Store

	scratch map[string]any
}

// API returns the bot's API client.
func (c *Context) API() *tapi.Client { return c.api }

// Update returns the update being handled.
func (c *Context) Update() *tapi.Update { return c.update }

// Logger returns the bot's logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Set stores a value in the per-update scratch map. Later handlers in
// the chain observe it via Get.
func (c *Context) Set(key string, value any) {
	if c.scratch == nil {
		c.scratch = make(map[string]any)
	}
	c.scratch[key] = value
}

// Get returns a value a previous handler stored under key.
func (c *Context) Get(key string) (any, bool) {
	value, ok := c.scratch[key]
	return value, ok
}

// Shorthand resolves the named shorthand for this update. The provider
// runs at most once per update; repeated calls return the cached value.
func (c *Context) Shorthand(name string) (any, error) {
	if v, ok := c.resolved[name]; ok {
		return v, nil
	}

	if c.registry == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoShorthand, name)
	}
	p, ok := c.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoShorthand, name)
	}

	v := p(c)
	if c.resolved == nil {
		c.resolved = make(map[string]any)
	}
	c.resolved[name] = v
	return v, nil
}

// Session returns the session scope for the update's chat. Without a
// configured store every scope operation returns session.ErrNoStore.
func (c *Context) Session() (session.Scope, error) {
	chat := c.update.Chat()
	if chat == nil {
		return session.Scope{}, ErrNoChat
	}
	return session.NewScope(c.store, chat.ID), nil
}

// Reply resolves the built-in "reply" shorthand and sends text to the
// update's chat.
func (c *Context) Reply(text string) (*tapi.Message, error) {
	v, err := c.Shorthand("reply")
	if err != nil {
		return nil, err
	}
	fn, ok := v.(ReplyFunc)
	if !ok {
		return nil, fmt.Errorf("bot: shorthand reply: unexpected type %T", v)
	}
	return fn(text)
}

// replyProvider backs the built-in "reply" shorthand.
func replyProvider(c *Context) any {
	return ReplyFunc(func(text string) (*tapi.Message, error) {
		chat := c.update.Chat()
		if chat == nil {
			return nil, ErrNoChat
		}
		return c.api.SendMessage(c, tapi.SendMessageRequest{
			ChatID: chat.ID,
			Text:   text,
		})
	})
}
