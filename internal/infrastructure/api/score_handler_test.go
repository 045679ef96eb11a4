package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/wayfarerhq/impact/internal/application"
	"github.com/wayfarerhq/impact/internal/domain"
	"github.com/wayfarerhq/impact/internal/infrastructure/logging"
)

func TestMapDomainError_Taxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"wrapped invalid input", fmt.Errorf("%w: bad value", domain.ErrInvalidInput), http.StatusBadRequest},
		{"invalid score value", &domain.InvalidScoreError{Dimension: domain.DimensionSocial, Value: 42}, http.StatusBadRequest},
		{"unknown dimension", &domain.UnknownDimensionError{Name: "wellness"}, http.StatusBadRequest},
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"already exists", domain.ErrAlreadyExists, http.StatusConflict},
		// a submission that cannot land is a server-side failure, not a
		// client error: exhausted retries and raw conflicts both map to 500
		{"retries exhausted", application.ErrRetriesExhausted, http.StatusInternalServerError},
		{"wrapped retries exhausted", fmt.Errorf("%w after 5 attempts", application.ErrRetriesExhausted), http.StatusInternalServerError},
		{"version conflict", domain.ErrConflict, http.StatusInternalServerError},
		{"unknown error", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var he *echo.HTTPError
			if !errors.As(mapDomainError(tc.err), &he) {
				t.Fatalf("expected *echo.HTTPError, got %T", mapDomainError(tc.err))
			}
			if he.Code != tc.code {
				t.Errorf("expected status %d, got %d", tc.code, he.Code)
			}
		})
	}
}

// alwaysConflictStore simulates a record that loses every optimistic
// write race.
type alwaysConflictStore struct {
	userID domain.UserID
}

func (s *alwaysConflictStore) Find(ctx context.Context, userID domain.UserID) (*domain.ScoreRecord, error) {
	if userID != s.userID {
		return nil, domain.ErrNotFound
	}
	return domain.NewScoreRecord(userID), nil
}

func (s *alwaysConflictStore) Create(ctx context.Context, record *domain.ScoreRecord) error {
	return nil
}

func (s *alwaysConflictStore) Update(ctx context.Context, record *domain.ScoreRecord) error {
	return domain.ErrConflict
}

func (s *alwaysConflictStore) TopByOverallScore(ctx context.Context, limit, offset int) ([]domain.RankedScore, error) {
	return nil, nil
}

type passthroughUnitOfWork struct{}

func (passthroughUnitOfWork) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (passthroughUnitOfWork) Commit(ctx context.Context) error                   { return nil }
func (passthroughUnitOfWork) Rollback(ctx context.Context) error                 { return nil }

func TestScoreHandler_UpdateExhaustedRetriesReturns500(t *testing.T) {
	userID := domain.NewUserID()
	uc := application.NewUpdateScoresUseCase(
		&alwaysConflictStore{userID: userID},
		passthroughUnitOfWork{},
		domain.DefaultEngineParams(),
		logging.NewNop(),
	).WithMaxAttempts(3)

	handler := NewScoreHandler(uc, application.NewGetScoreUseCase(&alwaysConflictStore{userID: userID}, logging.NewNop()))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/"+userID.String()+"/scores",
		strings.NewReader(`{"scores": {"cultural": 8}}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/users/:id/scores")
	c.SetParamNames("id")
	c.SetParamValues(userID.String())

	err := handler.Update(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if he.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500 for exhausted retries, got %d", he.Code)
	}
}
