package api

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wayfarerhq/impact/internal/domain"
)

// SubscriptionHandler handles webhook subscription HTTP endpoints.
type SubscriptionHandler struct {
	repo  domain.WebhookSubscriptionRepository
	users domain.UserRepository
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(repo domain.WebhookSubscriptionRepository, users domain.UserRepository) *SubscriptionHandler {
	return &SubscriptionHandler{repo: repo, users: users}
}

// RegisterRoutes registers subscription routes on the given group.
// all routes require authentication.
func (h *SubscriptionHandler) RegisterRoutes(g *echo.Group) {
	subs := g.Group("/webhooks")
	subs.POST("", h.Create)
	subs.GET("", h.List)
	subs.DELETE("/:id", h.Delete)
}

// --- Request/Response DTOs ---

// createSubscriptionRequest is the request body for creating a subscription.
// @Description Request body for creating a milestone webhook subscription.
type createSubscriptionRequest struct {
	// TargetURL is the webhook endpoint that will receive notifications.
	TargetURL string `json:"target_url"`
	// Secret is used for HMAC-SHA256 signature verification.
	Secret string `json:"secret"`
}

// subscriptionResponse is the API representation of a webhook subscription.
// @Description Webhook subscription details.
type subscriptionResponse struct {
	ID        string    `json:"id"`
	TargetURL string    `json:"target_url"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// listSubscriptionsResponse is the response for listing subscriptions.
// @Description List of webhook subscriptions for the authenticated user.
type listSubscriptionsResponse struct {
	Subscriptions []subscriptionResponse `json:"subscriptions"`
	Count         int                    `json:"count"`
}

// --- Handlers ---

// resolveUser maps the authenticated external ID to the internal user.
func (h *SubscriptionHandler) resolveUser(c echo.Context) (*domain.User, error) {
	externalID := GetUserExternalID(c)
	if externalID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	user, err := h.users.FindByExternalID(c.Request().Context(), externalID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "user not registered")
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve user")
	}
	return user, nil
}

// Create creates a new webhook subscription.
// @Summary Create a webhook subscription
// @Description Subscribe to score milestone notifications for the authenticated user.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param request body createSubscriptionRequest true "Subscription details"
// @Success 201 {object} subscriptionResponse
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /api/v1/webhooks [post]
// @Security BearerAuth
func (h *SubscriptionHandler) Create(c echo.Context) error {
	user, err := h.resolveUser(c)
	if err != nil {
		return err
	}

	var req createSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.TargetURL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "target_url is required")
	}
	if req.Secret == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "secret is required")
	}

	// validate target_url is a valid URL with http/https scheme
	parsedURL, err := url.Parse(req.TargetURL)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "target_url must be a valid HTTP or HTTPS URL")
	}

	subscription, err := domain.NewWebhookSubscription(user.ID(), req.TargetURL, req.Secret)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid subscription data")
	}

	if err := h.repo.Save(c.Request().Context(), subscription); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save subscription")
	}

	return c.JSON(http.StatusCreated, subscriptionResponse{
		ID:        subscription.ID().String(),
		TargetURL: subscription.TargetURL(),
		IsActive:  subscription.IsActive(),
		CreatedAt: subscription.CreatedAt(),
		UpdatedAt: subscription.UpdatedAt(),
	})
}

// List returns all subscriptions for the authenticated user.
// @Summary List webhook subscriptions
// @Description Get all webhook subscriptions for the authenticated user.
// @Tags webhooks
// @Produce json
// @Success 200 {object} listSubscriptionsResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /api/v1/webhooks [get]
// @Security BearerAuth
func (h *SubscriptionHandler) List(c echo.Context) error {
	user, err := h.resolveUser(c)
	if err != nil {
		return err
	}

	subs, err := h.repo.FindByUser(c.Request().Context(), user.ID())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch subscriptions")
	}

	response := listSubscriptionsResponse{
		Subscriptions: make([]subscriptionResponse, 0, len(subs)),
		Count:         len(subs),
	}

	for _, sub := range subs {
		response.Subscriptions = append(response.Subscriptions, subscriptionResponse{
			ID:        sub.ID().String(),
			TargetURL: sub.TargetURL(),
			IsActive:  sub.IsActive(),
			CreatedAt: sub.CreatedAt(),
			UpdatedAt: sub.UpdatedAt(),
		})
	}

	return c.JSON(http.StatusOK, response)
}

// Delete removes a subscription by ID.
// @Summary Delete a webhook subscription
// @Description Delete a webhook subscription. Only the owner can delete their subscription.
// @Tags webhooks
// @Param id path string true "Subscription ID"
// @Success 204 "No Content"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Subscription not found"
// @Router /api/v1/webhooks/{id} [delete]
// @Security BearerAuth
func (h *SubscriptionHandler) Delete(c echo.Context) error {
	user, err := h.resolveUser(c)
	if err != nil {
		return err
	}

	subID, err := domain.ParseSubscriptionID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid subscription id format")
	}

	// ownership check: the id must be among this user's subscriptions.
	// return 404 either way to avoid leaking other users' subscriptions.
	subs, err := h.repo.FindByUser(c.Request().Context(), user.ID())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to verify ownership")
	}

	owned := false
	for _, sub := range subs {
		if sub.ID() == subID {
			owned = true
			break
		}
	}
	if !owned {
		return echo.NewHTTPError(http.StatusNotFound, "subscription not found")
	}

	if err := h.repo.Delete(c.Request().Context(), subID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "subscription not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete subscription")
	}

	return c.NoContent(http.StatusNoContent)
}
