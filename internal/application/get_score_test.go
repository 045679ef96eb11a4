package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wayfarerhq/impact/internal/domain"
	"github.com/wayfarerhq/impact/internal/infrastructure/logging"
)

func TestGetScore_Projection(t *testing.T) {
	store := newFakeRecordStore()
	userID := domain.NewUserID()
	updatedAt := time.Now().UTC().Truncate(time.Second)
	store.seed(userID, domain.ReconstructScoreRecord(
		userID,
		map[domain.Dimension]float64{
			domain.DimensionCultural:      7.5,
			domain.DimensionEnvironmental: 3.25,
		},
		map[domain.Dimension][]float64{
			domain.DimensionCultural:      {7.5},
			domain.DimensionEnvironmental: {3.25},
		},
		1.234,
		4,
		updatedAt,
	))

	uc := NewGetScoreUseCase(store, logging.NewNop())
	out, err := uc.Execute(context.Background(), GetScoreInput{UserID: userID.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.OverallScore != 1.234 {
		t.Errorf("expected overall 1.234, got %v", out.OverallScore)
	}
	if out.CulturalScore != 7.5 || out.EnvironmentalScore != 3.25 {
		t.Errorf("unexpected dimension scores: %+v", out)
	}
	// social has no data and projects as 0
	if out.SocialScore != 0 {
		t.Errorf("expected social 0, got %v", out.SocialScore)
	}
	if !out.LastUpdated.Equal(updatedAt) {
		t.Errorf("expected last updated %v, got %v", updatedAt, out.LastUpdated)
	}
}

func TestGetScore_NotFound(t *testing.T) {
	uc := NewGetScoreUseCase(newFakeRecordStore(), logging.NewNop())

	_, err := uc.Execute(context.Background(), GetScoreInput{UserID: domain.NewUserID().String()})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetScore_InvalidUserID(t *testing.T) {
	uc := NewGetScoreUseCase(newFakeRecordStore(), logging.NewNop())

	_, err := uc.Execute(context.Background(), GetScoreInput{UserID: "not-a-uuid"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
