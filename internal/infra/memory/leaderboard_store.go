package memory

import (
	"context"
	"sync"

	"safequiz-bot/internal/domain"
)

// LeaderboardStore keeps all-time points in memory. It preserves insertion
// order so leaderboard ties render stably. Data is lost on restart; use the
// jsonfile or redis variants for durability.
type LeaderboardStore struct {
	mu     sync.RWMutex
	points map[string]int
	order  []string
}

func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{points: make(map[string]int)}
}

// Seed replaces the store contents, keeping the given row order.
func (s *LeaderboardStore) Seed(rows []domain.ScoreRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = make(map[string]int, len(rows))
	s.order = s.order[:0]
	for _, row := range rows {
		if _, ok := s.points[row.Identity]; !ok {
			s.order = append(s.order, row.Identity)
		}
		s.points[row.Identity] = row.Points
	}
}

func (s *LeaderboardStore) Add(_ context.Context, identity string, points int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(identity, points), nil
}

func (s *LeaderboardStore) addLocked(identity string, points int) int {
	if _, ok := s.points[identity]; !ok {
		s.order = append(s.order, identity)
	}
	s.points[identity] += points
	return s.points[identity]
}

func (s *LeaderboardStore) Total(_ context.Context, identity string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.points[identity], nil
}

func (s *LeaderboardStore) Snapshot(_ context.Context) ([]domain.ScoreRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

func (s *LeaderboardStore) snapshotLocked() []domain.ScoreRow {
	rows := make([]domain.ScoreRow, 0, len(s.order))
	for _, identity := range s.order {
		rows = append(rows, domain.ScoreRow{Identity: identity, Points: s.points[identity]})
	}
	return rows
}
