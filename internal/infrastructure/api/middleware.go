package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wayfarerhq/impact/internal/infrastructure/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user's external ID.
	UserContextKey contextKey = "user_external_id"
)

// AuthConfig holds authentication middleware configuration.
type AuthConfig struct {
	// Validator verifies bearer tokens from the Authorization header.
	Validator *auth.JWTValidator

	// Skipper defines a function to skip auth for certain routes.
	Skipper func(c echo.Context) bool
}

// RequireAuth creates a middleware that validates the bearer token and
// stores the caller's external ID in context. requests without a valid
// token get 401.
func RequireAuth(config AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// check if we should skip auth for this route
			if config.Skipper != nil && config.Skipper(c) {
				return next(c)
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			claims, err := config.Validator.ValidateToken(auth.ExtractBearerToken(header))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			// store in context for downstream handlers
			c.Set(string(UserContextKey), claims.ExternalID())

			return next(c)
		}
	}
}

// OptionalAuth extracts user context if a valid token is present but
// doesn't require it. useful for endpoints that work for both
// authenticated and anonymous callers.
func OptionalAuth(config AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header != "" {
				if claims, err := config.Validator.ValidateToken(auth.ExtractBearerToken(header)); err == nil {
					c.Set(string(UserContextKey), claims.ExternalID())
				}
			}

			return next(c)
		}
	}
}

// GetUserExternalID retrieves the authenticated user's external ID from context.
// returns empty string if not authenticated.
func GetUserExternalID(c echo.Context) string {
	if val := c.Get(string(UserContextKey)); val != nil {
		if externalID, ok := val.(string); ok {
			return externalID
		}
	}
	return ""
}

// PublicRoutesSkipper returns a skipper function that skips auth for public routes.
func PublicRoutesSkipper(publicPaths ...string) func(echo.Context) bool {
	pathSet := make(map[string]bool)
	for _, p := range publicPaths {
		pathSet[p] = true
	}

	return func(c echo.Context) bool {
		return pathSet[c.Path()]
	}
}
