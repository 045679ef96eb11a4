package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wayfarerhq/impact/internal/domain"
	"github.com/wayfarerhq/impact/internal/infrastructure/logging"
)

// TimeProvider abstracts time acquisition for testability.
// inject a custom implementation to control time in tests.
type TimeProvider func() time.Time

// RealTime returns the current UTC time.
// use this in production.
func RealTime() time.Time {
	return time.Now().UTC()
}

// defaultMaxAttempts bounds the optimistic-concurrency retry loop.
const defaultMaxAttempts = 5

// LeaderboardUpdater abstracts the cache layer for overall score rankings.
// allows the use case to remain decoupled from redis specifics.
type LeaderboardUpdater interface {
	UpdateLeaderboardScore(ctx context.Context, userID string, overall float64) error
}

// UpdateMetrics abstracts prometheus metrics for the update path.
type UpdateMetrics interface {
	RecordScoreSubmission(dimension string)
	RecordUpdateConflict()
	RecordScoreUpdate(durationSeconds float64)
}

// UpdateScoresInput contains one score submission.
type UpdateScoresInput struct {
	UserID string

	// Scores maps dimension names to raw values. every key must name a
	// recognized dimension and every value must pass validation, or the
	// whole call fails with no write.
	Scores map[string]float64
}

// UpdateScoresOutput contains the result of a score update.
type UpdateScoresOutput struct {
	Message         string
	Updated         bool
	NewScores       map[string]float64
	NewOverallScore float64
	OldOverallScore float64
}

// UpdateScoresUseCase is the transactional update coordinator: it wraps
// validate, history push, average, combine and blend in one atomic
// read-modify-write of the per-user score record, retrying lost races
// against fresh state.
type UpdateScoresUseCase struct {
	records      domain.ScoreRecordRepository
	uow          UnitOfWork
	params       domain.EngineParams
	maxAttempts  int
	leaderboard  LeaderboardUpdater
	notifier     domain.MilestoneNotifier
	metrics      UpdateMetrics
	timeProvider TimeProvider
	logger       *logging.Logger
}

// NewUpdateScoresUseCase creates a new UpdateScoresUseCase.
func NewUpdateScoresUseCase(
	records domain.ScoreRecordRepository,
	uow UnitOfWork,
	params domain.EngineParams,
	logger *logging.Logger,
) *UpdateScoresUseCase {
	return &UpdateScoresUseCase{
		records:      records,
		uow:          uow,
		params:       params,
		maxAttempts:  defaultMaxAttempts,
		timeProvider: RealTime,
		logger:       logger.WithComponent("update_scores"),
	}
}

// WithTimeProvider sets a custom time provider for testing.
func (uc *UpdateScoresUseCase) WithTimeProvider(tp TimeProvider) *UpdateScoresUseCase {
	uc.timeProvider = tp
	return uc
}

// WithMaxAttempts overrides the conflict retry budget.
func (uc *UpdateScoresUseCase) WithMaxAttempts(n int) *UpdateScoresUseCase {
	if n > 0 {
		uc.maxAttempts = n
	}
	return uc
}

// WithLeaderboard sets the leaderboard updater (redis cache).
// when set, overall score updates are also pushed to the cache.
func (uc *UpdateScoresUseCase) WithLeaderboard(lb LeaderboardUpdater) *UpdateScoresUseCase {
	uc.leaderboard = lb
	return uc
}

// WithNotifier sets the milestone notifier (webhook dispatcher).
func (uc *UpdateScoresUseCase) WithNotifier(n domain.MilestoneNotifier) *UpdateScoresUseCase {
	uc.notifier = n
	return uc
}

// WithMetrics sets the metrics recorder for observability.
func (uc *UpdateScoresUseCase) WithMetrics(m UpdateMetrics) *UpdateScoresUseCase {
	uc.metrics = m
	return uc
}

// Execute applies one score submission to a user's record.
func (uc *UpdateScoresUseCase) Execute(ctx context.Context, input UpdateScoresInput) (*UpdateScoresOutput, error) {
	start := time.Now()

	userID, err := domain.ParseUserID(input.UserID)
	if err != nil {
		uc.logger.Warn("update rejected: invalid user id",
			"user_id", input.UserID,
			"reason", err.Error(),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	if len(input.Scores) == 0 {
		uc.logger.Warn("update rejected: no scores supplied",
			"user_id", userID.String(),
		)
		return nil, fmt.Errorf("%w: at least one score is required", domain.ErrInvalidInput)
	}

	// resolve dimension names up front so an unknown key fails before any
	// transaction is opened
	submission := make(domain.Submission, len(input.Scores))
	for name, value := range input.Scores {
		dim, err := domain.ParseDimension(name)
		if err != nil {
			uc.logger.Warn("update rejected: unknown dimension",
				"user_id", userID.String(),
				"dimension", name,
			)
			return nil, err
		}
		submission[dim] = value
	}

	now := uc.timeProvider()

	var result domain.UpdateResult
	var oldOverall float64
	attempt := 0

	err = RunWithConflictRetry(ctx, uc.uow, uc.maxAttempts, func(txCtx context.Context) error {
		attempt++
		if attempt > 1 && uc.metrics != nil {
			uc.metrics.RecordUpdateConflict()
		}

		record, err := uc.records.Find(txCtx, userID)
		if err != nil {
			return err
		}
		oldOverall = record.OverallScore()

		result, err = record.ApplySubmission(submission, uc.params, now)
		if err != nil {
			return err
		}

		if !result.Updated {
			// true no-op: commit no write at all
			return nil
		}

		return uc.records.Update(txCtx, record)
	})

	if err != nil {
		uc.logger.Warn("score update failed",
			"user_id", userID.String(),
			"attempts", attempt,
			"reason", err.Error(),
		)
		return nil, err
	}

	if uc.metrics != nil {
		for dim := range submission {
			uc.metrics.RecordScoreSubmission(dim.String())
		}
		uc.metrics.RecordScoreUpdate(time.Since(start).Seconds())
	}

	if !result.Updated {
		uc.logger.Info("score update was a no-op",
			"user_id", userID.String(),
		)
		return &UpdateScoresOutput{
			Message:         "no scores were updated",
			Updated:         false,
			NewScores:       scoresByName(result.Scores),
			NewOverallScore: result.OverallScore,
			OldOverallScore: oldOverall,
		}, nil
	}

	uc.publishSideEffects(ctx, userID, oldOverall, result.OverallScore, now)

	uc.logger.Info("scores updated",
		"user_id", userID.String(),
		"dimensions", len(submission),
		"old_overall", oldOverall,
		"new_overall", result.OverallScore,
		"attempts", attempt,
	)

	return &UpdateScoresOutput{
		Message:         "user scores updated successfully",
		Updated:         true,
		NewScores:       scoresByName(result.Scores),
		NewOverallScore: result.OverallScore,
		OldOverallScore: oldOverall,
	}, nil
}

// publishSideEffects pushes the committed overall score to the
// leaderboard cache and milestone notifier. both are best-effort: the
// postgres record is the source of truth and the update already
// committed.
func (uc *UpdateScoresUseCase) publishSideEffects(ctx context.Context, userID domain.UserID, oldOverall, newOverall float64, now time.Time) {
	if uc.leaderboard != nil {
		if err := uc.leaderboard.UpdateLeaderboardScore(ctx, userID.String(), newOverall); err != nil {
			uc.logger.Warn("leaderboard sync failed",
				"user_id", userID.String(),
				"overall", newOverall,
				"error", err.Error(),
			)
		}
	}

	if uc.notifier != nil {
		if level, ok := uc.notifier.Thresholds().Crossed(oldOverall, newOverall); ok {
			milestone := domain.ScoreMilestone{
				UserID:     userID,
				Level:      level,
				OldOverall: oldOverall,
				NewOverall: newOverall,
				Timestamp:  now,
			}
			if err := uc.notifier.NotifyMilestone(ctx, milestone); err != nil {
				uc.logger.Warn("milestone notification failed",
					"user_id", userID.String(),
					"level", level,
					"error", err.Error(),
				)
			} else {
				uc.logger.Info("score milestone crossed",
					"user_id", userID.String(),
					"level", level,
					"old_overall", oldOverall,
					"new_overall", newOverall,
				)
			}
		}
	}
}

func scoresByName(scores map[domain.Dimension]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for dim, score := range scores {
		out[dim.String()] = score
	}
	return out
}
