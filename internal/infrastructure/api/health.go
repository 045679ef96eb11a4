package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger checks a backing dependency for readiness.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// RegisterHealthRoutes registers health check endpoints.
// these are public and don't require authentication.
// db may be nil (readiness then only reports process liveness).
func RegisterHealthRoutes(e *echo.Echo, db Pinger) {
	e.GET("/health", healthHandler)
	e.GET("/ready", readyHandler(db))
}

// healthHandler returns the basic health status.
// used for liveness probes.
func healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: "impact",
	})
}

// readyHandler returns the readiness status.
// used for readiness probes, checks database connectivity.
func readyHandler(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
			defer cancel()

			if err := db.HealthCheck(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, HealthResponse{
					Status:  "not ready",
					Service: "impact",
				})
			}
		}

		return c.JSON(http.StatusOK, HealthResponse{
			Status:  "ready",
			Service: "impact",
		})
	}
}
