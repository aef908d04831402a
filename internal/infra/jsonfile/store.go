// Package jsonfile persists the leaderboard aggregate and the language
// preferences as flat JSON snapshots, the same layout the bot has always
// used on disk: one file mapping identity to points, one mapping identity
// to language tag. Every mutation rewrites the whole file.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"safequiz-bot/internal/domain"
)

// LeaderboardStore is a file-backed app.LeaderboardStore. The in-memory map
// is authoritative; a failed save is reported to the caller but the memory
// state stays consistent so a just-earned score is not lost outright.
type LeaderboardStore struct {
	path string

	mu     sync.RWMutex
	points map[string]int
	order  []string
}

// NewLeaderboardStore loads the snapshot at path. A missing file starts
// empty; a corrupt file is an error.
func NewLeaderboardStore(path string) (*LeaderboardStore, error) {
	s := &LeaderboardStore{path: path, points: make(map[string]int)}
	loaded, err := loadSnapshot[int](path)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard snapshot: %w", err)
	}
	for identity, pts := range loaded {
		s.order = append(s.order, identity)
		s.points[identity] = pts
	}
	return s, nil
}

func (s *LeaderboardStore) Add(_ context.Context, identity string, points int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.points[identity]; !ok {
		s.order = append(s.order, identity)
	}
	s.points[identity] += points
	total := s.points[identity]
	return total, saveSnapshot(s.path, s.points)
}

func (s *LeaderboardStore) Total(_ context.Context, identity string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.points[identity], nil
}

func (s *LeaderboardStore) Snapshot(_ context.Context) ([]domain.ScoreRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]domain.ScoreRow, 0, len(s.order))
	for _, identity := range s.order {
		rows = append(rows, domain.ScoreRow{Identity: identity, Points: s.points[identity]})
	}
	return rows, nil
}

// LanguageStore is a file-backed app.LanguageStore with the same snapshot
// semantics as the leaderboard.
type LanguageStore struct {
	path string

	mu    sync.RWMutex
	langs map[string]string
}

func NewLanguageStore(path string) (*LanguageStore, error) {
	langs, err := loadSnapshot[string](path)
	if err != nil {
		return nil, fmt.Errorf("load language snapshot: %w", err)
	}
	if langs == nil {
		langs = make(map[string]string)
	}
	return &LanguageStore{path: path, langs: langs}, nil
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
	return saveSnapshot(s.path, s.langs)
}

func loadSnapshot[V any](path string) (map[string]V, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]V), nil
		}
		return nil, err
	}
	out := make(map[string]V)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func saveSnapshot[V any](path string, snapshot map[string]V) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
