package worker

import (
	"context"
	"sync"
	"time"

	"github.com/wayfarerhq/impact/internal/domain"
	"github.com/wayfarerhq/impact/internal/infrastructure/cache"
	"github.com/wayfarerhq/impact/internal/infrastructure/logging"
)

// LeaderboardRefreshConfig holds configuration for the refresh worker.
type LeaderboardRefreshConfig struct {
	// Interval is how often the full leaderboard is rebuilt from postgres.
	Interval time.Duration

	// PageSize is how many records are pulled per query while paging.
	PageSize int
}

// DefaultLeaderboardRefreshConfig returns sensible defaults.
func DefaultLeaderboardRefreshConfig() LeaderboardRefreshConfig {
	return LeaderboardRefreshConfig{
		Interval: 5 * time.Minute,
		PageSize: 500,
	}
}

// LeaderboardRefreshWorker periodically rebuilds the redis leaderboard
// from the postgres source of truth. heals drift from missed best-effort
// cache writes and cold redis starts.
type LeaderboardRefreshWorker struct {
	records domain.ScoreRecordRepository
	redis   *cache.RedisClient
	config  LeaderboardRefreshConfig
	logger  *logging.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewLeaderboardRefreshWorker creates a new refresh worker.
func NewLeaderboardRefreshWorker(
	records domain.ScoreRecordRepository,
	redis *cache.RedisClient,
	config LeaderboardRefreshConfig,
	logger *logging.Logger,
) *LeaderboardRefreshWorker {
	return &LeaderboardRefreshWorker{
		records:  records,
		redis:    redis,
		config:   config,
		logger:   logger.WithComponent("leaderboard_refresh"),
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic refresh loop. runs one refresh immediately
// so a cold redis is populated without waiting a full interval.
func (w *LeaderboardRefreshWorker) Start(ctx context.Context) {
	w.logger.Info("leaderboard refresh worker starting",
		"interval", w.config.Interval.String(),
		"page_size", w.config.PageSize,
	)

	w.wg.Add(1)
	go w.run(ctx)
}

// Stop gracefully shuts down the worker.
func (w *LeaderboardRefreshWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.wg.Wait()
		w.logger.Info("leaderboard refresh worker stopped")
	})
}

func (w *LeaderboardRefreshWorker) run(ctx context.Context) {
	defer w.wg.Done()

	w.refresh(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.refresh(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// refresh pages the full ranking out of postgres and pushes it to redis.
func (w *LeaderboardRefreshWorker) refresh(ctx context.Context) {
	start := time.Now()
	synced := 0

	for offset := 0; ; offset += w.config.PageSize {
		ranked, err := w.records.TopByOverallScore(ctx, w.config.PageSize, offset)
		if err != nil {
			w.logger.Error("leaderboard refresh query failed",
				"offset", offset,
				"error", err.Error(),
			)
			return
		}
		if len(ranked) == 0 {
			break
		}

		for _, entry := range ranked {
			if err := w.redis.UpdateLeaderboardScore(ctx, entry.UserID.String(), entry.OverallScore); err != nil {
				w.logger.Warn("leaderboard refresh write failed",
					"user_id", entry.UserID.String(),
					"error", err.Error(),
				)
				continue
			}
			synced++
		}

		if len(ranked) < w.config.PageSize {
			break
		}
	}

	w.logger.Info("leaderboard refreshed",
		"synced", synced,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
