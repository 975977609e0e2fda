package handler

import (
	"errors"
	"net/http"

	"catalog-service/internal/model"
	"catalog-service/internal/service"
	"catalog-service/internal/upload"
	"catalog-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// respondError maps service and validation errors to HTTP responses
func respondError(c echo.Context, err error) error {
	log := logger.FromEcho(c)

	if fieldErrs := model.ValidationErrors(err); len(fieldErrs) > 0 {
		details := make([]fieldError, len(fieldErrs))
		for i, fe := range fieldErrs {
			details[i] = fieldError{Field: fe.Field, Message: fe.Message}
		}
		log.Info("Request validation failed", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "details": details})
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, upload.ErrUnsupportedExtension):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file type not allowed"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "incorrect email or password"})
	case errors.Is(err, service.ErrAccountDisabled):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "inactive user"})
	case errors.Is(err, service.ErrEmailTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	case errors.Is(err, service.ErrConcurrentUpdate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "resource was modified concurrently, retry the request"})
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) && httpErr.Code < http.StatusInternalServerError {
		return c.JSON(httpErr.Code, echo.Map{"error": httpErr.Message})
	}

	log.Error("Request failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

// ErrorHandler renders errors that reach echo, such as unmatched routes or
// response encoding failures, in the same shape as respondError
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if werr := respondError(c, err); werr != nil {
		logger.FromEcho(c).Error("Failed to write error response", zap.Error(werr))
	}
}

// badRequest wraps a binding failure so respondError reports it as a 400
func badRequest(message string) error {
	return echo.NewHTTPError(http.StatusBadRequest, message)
}
