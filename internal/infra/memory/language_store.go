package memory

import (
	"context"
	"sync"
)

// LanguageStore keeps language preferences in memory.
type LanguageStore struct {
	mu    sync.RWMutex
	langs map[string]string
}

func NewLanguageStore() *LanguageStore {
	return &LanguageStore{langs: make(map[string]string)}
}

// Seed replaces the store contents.
func (s *LanguageStore) Seed(langs map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.langs = make(map[string]string, len(langs))
	for identity, lang := range langs {
		s.langs[identity] = lang
	}
}

func (s *LanguageStore) Get(_ context.Context, identity string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lang, ok := s.langs[identity]
	return lang, ok
}

func (s *LanguageStore) Set(_ context.Context, identity, lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.langs[identity] = lang
	return nil
}

// All returns a copy of every preference, for snapshot persistence.
func (s *LanguageStore) All(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.langs))
	for identity, lang := range s.langs {
		out[identity] = lang
	}
	return out, nil
}
