package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wayfarerhq/impact/internal/application"
	"github.com/wayfarerhq/impact/internal/domain"
)

// ScoreHandler handles score submission and retrieval endpoints.
type ScoreHandler struct {
	updateScores *application.UpdateScoresUseCase
	getScore     *application.GetScoreUseCase
}

// NewScoreHandler creates a new ScoreHandler.
func NewScoreHandler(
	updateScores *application.UpdateScoresUseCase,
	getScore *application.GetScoreUseCase,
) *ScoreHandler {
	return &ScoreHandler{
		updateScores: updateScores,
		getScore:     getScore,
	}
}

// RegisterRoutes registers score routes on the given group.
func (h *ScoreHandler) RegisterRoutes(g *echo.Group) {
	users := g.Group("/users")
	users.POST("/:id/scores", h.Update)
	users.GET("/:id/scores", h.Get)
}

// --- Request/Response DTOs ---

// updateScoresRequest is the request body for a score submission.
// @Description One behavioral score submission, values on the 0-10 scale.
type updateScoresRequest struct {
	// Scores maps dimension names (cultural, social, environmental) to
	// raw values. unknown dimensions are rejected.
	Scores map[string]float64 `json:"scores"`
}

// updateScoresResponse is the result of a score submission.
// @Description Updated per-dimension averages and blended overall score.
type updateScoresResponse struct {
	Message      string             `json:"message"`
	Updated      bool               `json:"updated"`
	Scores       map[string]float64 `json:"scores"`
	OverallScore float64            `json:"overall_score"`
}

// scoreResponse is the current score projection for a user.
// @Description Per-dimension averages plus the blended overall score.
type scoreResponse struct {
	UserID             string    `json:"user_id"`
	OverallScore       float64   `json:"overall_score"`
	CulturalScore      float64   `json:"cultural_score"`
	SocialScore        float64   `json:"social_score"`
	EnvironmentalScore float64   `json:"environmental_score"`
	LastUpdated        time.Time `json:"last_updated"`
}

// --- Handlers ---

// Update applies one score submission to the user's record.
// @Summary Submit behavioral scores
// @Description Apply one score submission across one or more dimensions. The whole submission is validated before anything is written.
// @Tags scores
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body updateScoresRequest true "Score submission"
// @Success 200 {object} updateScoresResponse
// @Failure 400 {object} ErrorResponse "Invalid user id, dimension, or score value"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "User not found"
// @Failure 500 {object} ErrorResponse "Update could not be applied (exhausted retries or store failure)"
// @Router /api/v1/users/{id}/scores [post]
// @Security BearerAuth
func (h *ScoreHandler) Update(c echo.Context) error {
	var req updateScoresRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	out, err := h.updateScores.Execute(c.Request().Context(), application.UpdateScoresInput{
		UserID: c.Param("id"),
		Scores: req.Scores,
	})
	if err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, updateScoresResponse{
		Message:      out.Message,
		Updated:      out.Updated,
		Scores:       out.NewScores,
		OverallScore: out.NewOverallScore,
	})
}

// Get returns the current score projection for a user.
// @Summary Get user scores
// @Description Get the per-dimension averages and overall score for a user. Dimensions with no submissions yet read as 0.
// @Tags scores
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} scoreResponse
// @Failure 400 {object} ErrorResponse "Invalid user id"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /api/v1/users/{id}/scores [get]
// @Security BearerAuth
func (h *ScoreHandler) Get(c echo.Context) error {
	out, err := h.getScore.Execute(c.Request().Context(), application.GetScoreInput{
		UserID: c.Param("id"),
	})
	if err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, scoreResponse{
		UserID:             c.Param("id"),
		OverallScore:       out.OverallScore,
		CulturalScore:      out.CulturalScore,
		SocialScore:        out.SocialScore,
		EnvironmentalScore: out.EnvironmentalScore,
		LastUpdated:        out.LastUpdated,
	})
}

// mapDomainError translates domain errors into HTTP status codes.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		// exhausted retries and unresolved version conflicts land here too:
		// the update could not be applied, which is a server-side failure
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
