package session

import (
	"context"
	"sync"
)

// MemoryStore keeps session state in process memory. State is lost on
// restart; use SQLiteStore when values must survive one.
type MemoryStore struct {
	mu    sync.RWMutex
	chats map[int64]map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chats: make(map[int64]map[string]string)}
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Get(_ context.Context, chatID int64, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.chats[chatID][key]
	return value, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, chatID int64, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatID]
	if !ok {
		chat = make(map[string]string)
		s.chats[chatID] = chat
	}
	chat[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, chatID int64, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chat, ok := s.chats[chatID]; ok {
		delete(chat, key)
		if len(chat) == 0 {
			delete(s.chats, chatID)
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
