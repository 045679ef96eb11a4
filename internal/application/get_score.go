package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wayfarerhq/impact/internal/domain"
	"github.com/wayfarerhq/impact/internal/infrastructure/logging"
)

// GetScoreInput identifies the user whose scores are read.
type GetScoreInput struct {
	UserID string
}

// GetScoreOutput is the read-only projection of a score record.
type GetScoreOutput struct {
	OverallScore       float64
	CulturalScore      float64
	SocialScore        float64
	EnvironmentalScore float64
	LastUpdated        time.Time
}

// GetScoreUseCase reads a user's current scores. no mutation.
type GetScoreUseCase struct {
	records domain.ScoreRecordRepository
	logger  *logging.Logger
}

// NewGetScoreUseCase creates a new GetScoreUseCase.
func NewGetScoreUseCase(records domain.ScoreRecordRepository, logger *logging.Logger) *GetScoreUseCase {
	return &GetScoreUseCase{
		records: records,
		logger:  logger.WithComponent("get_score"),
	}
}

// Execute returns the score projection for one user.
func (uc *GetScoreUseCase) Execute(ctx context.Context, input GetScoreInput) (*GetScoreOutput, error) {
	userID, err := domain.ParseUserID(input.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	record, err := uc.records.Find(ctx, userID)
	if err != nil {
		uc.logger.Warn("score read failed",
			"user_id", userID.String(),
			"reason", err.Error(),
		)
		return nil, err
	}

	// dimensions without data project as 0, matching the empty record
	cultural, _ := record.Score(domain.DimensionCultural)
	social, _ := record.Score(domain.DimensionSocial)
	environmental, _ := record.Score(domain.DimensionEnvironmental)

	return &GetScoreOutput{
		OverallScore:       record.OverallScore(),
		CulturalScore:      cultural,
		SocialScore:        social,
		EnvironmentalScore: environmental,
		LastUpdated:        record.UpdatedAt(),
	}, nil
}
