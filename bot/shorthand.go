package bot

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrDuplicateShorthand indicates a shorthand name is already taken.
var ErrDuplicateShorthand = errors.New("bot: duplicate shorthand")

// Provider builds a shorthand value for one update. It runs at most
// once per update; the Context caches the result.
type Provider func(*Context) any

// ShorthandRegistry maps names to shorthand providers. Registration is
// explicit and duplicate names are rejected, so two extensions cannot
// silently shadow each other.
type ShorthandRegistry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewShorthandRegistry creates an empty registry.
func NewShorthandRegistry() *ShorthandRegistry {
	return &ShorthandRegistry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider under the given name.
// Returns ErrDuplicateShorthand if the name is already taken.
func (r *ShorthandRegistry) Register(name string, p Provider) error {
	if name == "" {
		return errors.New("bot: shorthand name must not be empty")
	}
	if p == nil {
		return fmt.Errorf("bot: shorthand %s: nil provider", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateShorthand, name)
	}
	r.providers[name] = p
	return nil
}

// Get returns the provider registered under name, or false if none.
func (r *ShorthandRegistry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	return p, ok
}

// Names returns the names of all registered shorthands, sorted.
func (r *ShorthandRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
