package cache

import (
	"context"
	"errors"

	"github.com/wayfarerhq/impact/internal/domain"
	"github.com/wayfarerhq/impact/internal/infrastructure/logging"
)

// LeaderboardReader serves ranked overall scores, redis first with a
// postgres fallback. the cache holds user ids and scores only, so
// usernames are resolved against the user repository on the hot path.
type LeaderboardReader struct {
	redis   *RedisClient
	records domain.ScoreRecordRepository
	users   domain.UserRepository
	logger  *logging.Logger
}

// NewLeaderboardReader creates a reader. redis may be nil, in which case
// every read goes straight to postgres.
func NewLeaderboardReader(
	redis *RedisClient,
	records domain.ScoreRecordRepository,
	users domain.UserRepository,
	logger *logging.Logger,
) *LeaderboardReader {
	return &LeaderboardReader{
		redis:   redis,
		records: records,
		users:   users,
		logger:  logger.WithComponent("leaderboard"),
	}
}

// Top returns the highest-ranked users by overall score.
func (l *LeaderboardReader) Top(ctx context.Context, limit, offset int) ([]domain.RankedScore, error) {
	if l.redis != nil {
		ranked, err := l.fromRedis(ctx, limit, offset)
		if err == nil {
			return ranked, nil
		}
		if !errors.Is(err, ErrRedisEmpty) && !errors.Is(err, ErrRedisNotConnected) {
			l.logger.Warn("redis leaderboard read failed, falling back to postgres",
				"error", err.Error(),
			)
		}
	}

	return l.records.TopByOverallScore(ctx, limit, offset)
}

func (l *LeaderboardReader) fromRedis(ctx context.Context, limit, offset int) ([]domain.RankedScore, error) {
	entries, err := l.redis.GetTopUsers(ctx, int64(limit), int64(offset))
	if err != nil {
		return nil, err
	}

	ranked := make([]domain.RankedScore, 0, len(entries))
	for _, entry := range entries {
		idStr, ok := entry.Member.(string)
		if !ok {
			continue
		}
		userID, err := domain.ParseUserID(idStr)
		if err != nil {
			// stale or corrupted member, skip rather than fail the page
			l.logger.Warn("skipping corrupted leaderboard member", "member", idStr)
			continue
		}

		username := ""
		if user, err := l.users.FindByID(ctx, userID); err == nil {
			username = user.Username().String()
		}

		ranked = append(ranked, domain.RankedScore{
			UserID:       userID,
			Username:     username,
			OverallScore: entry.Score,
		})
	}

	return ranked, nil
}
