package handler

import (
	"context"
	"net/http"
	"time"

	"catalog-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Version is reported by the root endpoint
const Version = "1.0.0"

// Pinger checks a dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a HealthHandler
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health reports ok. With ?check=db it also pings the database.
func (h *HealthHandler) Health(c echo.Context) error {
	if c.QueryParam("check") != "db" {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		logger.FromEcho(c).Error("Database health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "database": "down"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "database": "up"})
}

// Root greets API clients
func Root(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Welcome to the catalog API",
		"version": Version,
	})
}
