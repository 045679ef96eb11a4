package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/wayfarerhq/impact/internal/domain"
)

const (
	defaultLeaderboardLimit = 20
	maxLeaderboardLimit     = 100
)

// LeaderboardSource serves ranked overall scores. implemented by the
// redis-backed reader with its postgres fallback.
type LeaderboardSource interface {
	Top(ctx context.Context, limit, offset int) ([]domain.RankedScore, error)
}

// LeaderboardHandler handles the ranking endpoint.
type LeaderboardHandler struct {
	source LeaderboardSource
}

// NewLeaderboardHandler creates a new LeaderboardHandler.
func NewLeaderboardHandler(source LeaderboardSource) *LeaderboardHandler {
	return &LeaderboardHandler{source: source}
}

// RegisterRoutes registers leaderboard routes on the given group.
func (h *LeaderboardHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/leaderboard", h.Top)
}

// rankedScoreResponse is one leaderboard entry.
// @Description One leaderboard entry with rank position.
type rankedScoreResponse struct {
	Rank         int     `json:"rank"`
	UserID       string  `json:"user_id"`
	Username     string  `json:"username"`
	OverallScore float64 `json:"overall_score"`
}

// leaderboardResponse is the paged leaderboard.
// @Description Users ranked by overall impact score, descending.
type leaderboardResponse struct {
	Entries []rankedScoreResponse `json:"entries"`
	Count   int                   `json:"count"`
	Offset  int                   `json:"offset"`
}

// Top returns the highest-ranked users by overall score.
// @Summary Get the impact leaderboard
// @Description Get users ranked by overall impact score, descending. Paged via limit and offset.
// @Tags leaderboard
// @Produce json
// @Param limit query int false "Page size, max 100" default(20)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} leaderboardResponse
// @Router /api/v1/leaderboard [get]
func (h *LeaderboardHandler) Top(c echo.Context) error {
	limit := defaultLeaderboardLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	offset := 0
	if raw := c.QueryParam("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "offset must be a non-negative integer")
		}
		offset = parsed
	}

	ranked, err := h.source.Top(c.Request().Context(), limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch leaderboard")
	}

	response := leaderboardResponse{
		Entries: make([]rankedScoreResponse, 0, len(ranked)),
		Count:   len(ranked),
		Offset:  offset,
	}
	for i, entry := range ranked {
		response.Entries = append(response.Entries, rankedScoreResponse{
			Rank:         offset + i + 1,
			UserID:       entry.UserID.String(),
			Username:     entry.Username,
			OverallScore: entry.OverallScore,
		})
	}

	return c.JSON(http.StatusOK, response)
}
