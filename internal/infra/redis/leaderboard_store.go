// Package redis provides Redis-backed leaderboard and language stores for
// deployments where the bot runs on ephemeral disks. The leaderboard lives
// in a sorted set, so Redis keeps the score ordering; ties come back in
// lexical member order rather than insertion order.
package redis

import (
	"context"
	"errors"

	"safequiz-bot/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	leaderboardKey = "quiz:leaderboard"
	languagesKey   = "quiz:languages"
)

// LeaderboardStore implements app.LeaderboardStore on a Redis sorted set.
type LeaderboardStore struct {
	client *redis.Client
}

func NewLeaderboardStore(client *redis.Client) *LeaderboardStore {
	return &LeaderboardStore{client: client}
}

func (s *LeaderboardStore) Add(ctx context.Context, identity string, points int) (int, error) {
	total, err := s.client.ZIncrBy(ctx, leaderboardKey, float64(points), identity).Result()
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

func (s *LeaderboardStore) Total(ctx context.Context, identity string) (int, error) {
	score, err := s.client.ZScore(ctx, leaderboardKey, identity).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(score), nil
}

func (s *LeaderboardStore) Snapshot(ctx context.Context) ([]domain.ScoreRow, error) {
	members, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	rows := make([]domain.ScoreRow, 0, len(members))
	for _, member := range members {
		identity, ok := member.Member.(string)
		if !ok {
			continue
		}
		rows = append(rows, domain.ScoreRow{Identity: identity, Points: int(member.Score)})
	}
	return rows, nil
}

// LanguageStore implements app.LanguageStore on a Redis hash.
type LanguageStore struct {
	client *redis.Client
}

func NewLanguageStore(client *redis.Client) *LanguageStore {
	return &LanguageStore{client: client}
}

func (s *LanguageStore) Get(ctx context.Context, identity string) (string, bool) {
	lang, err := s.client.HGet(ctx, languagesKey, identity).Result()
	if err != nil {
		return "", false
	}
	return lang, true
}

func (s *LanguageStore) Set(ctx context.Context, identity, lang string) error {
	return s.client.HSet(ctx, languagesKey, identity, lang).Err()
}
