package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wayfarerhq/impact/internal/application"
)

// UserHandler handles user provisioning endpoints.
type UserHandler struct {
	registerUser *application.RegisterUserUseCase
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(registerUser *application.RegisterUserUseCase) *UserHandler {
	return &UserHandler{registerUser: registerUser}
}

// RegisterRoutes registers user routes on the given group.
func (h *UserHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/users", h.Register)
}

// registerUserRequest is the request body for user registration.
// @Description Request body for registering a new user.
type registerUserRequest struct {
	// Username is the public display handle, 3-50 chars, alphanumeric
	// and underscores.
	Username string `json:"username"`
}

// registerUserResponse is returned after successful registration.
// @Description Newly registered user.
type registerUserResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Register provisions a new user with an empty score record.
// @Summary Register a user
// @Description Create the user profile and provision its empty score record in one transaction. The identity comes from the bearer token.
// @Tags users
// @Accept json
// @Produce json
// @Param request body registerUserRequest true "Registration details"
// @Success 201 {object} registerUserResponse
// @Failure 400 {object} ErrorResponse "Invalid username"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 409 {object} ErrorResponse "User already registered"
// @Router /api/v1/users [post]
// @Security BearerAuth
func (h *UserHandler) Register(c echo.Context) error {
	// identity comes from the token, never the body
	externalID := GetUserExternalID(c)
	if externalID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req registerUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	out, err := h.registerUser.Execute(c.Request().Context(), application.RegisterUserInput{
		ExternalID: externalID,
		Username:   req.Username,
	})
	if err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusCreated, registerUserResponse{
		UserID:   out.UserID,
		Username: out.Username,
	})
}
