package middleware

import (
	"context"
	"net/http"
	"strings"

	"catalog-service/internal/model"
	"catalog-service/internal/service"
	"catalog-service/pkg/logger"
	"catalog-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const currentUserKey = "current_user"

// UnauthorizedMessage is the single error message sent for every
// authentication failure.
const UnauthorizedMessage = "could not validate credentials"

// TokenResolver maps a bearer token to a user.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (service.AuthResult, error)
}

// Unauthorized writes the uniform 401 response with a Bearer challenge
func Unauthorized(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": UnauthorizedMessage})
}

// AuthMiddleware requires a bearer token that resolves to an existing user.
// The failure reason is logged and counted but never sent to the client.
func AuthMiddleware(resolver TokenResolver, metrics *prometheus.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)
			metrics.RecordAuthAttempt()

			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				metrics.RecordAuthError("missing_token")
				log.Warn("Missing or malformed Authorization header")
				return Unauthorized(c)
			}

			result, err := resolver.Resolve(c.Request().Context(), token)
			if err != nil {
				log.Error("Failed to resolve bearer token", zap.Error(err))
				return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
			}
			if result.Status != service.AuthOK {
				metrics.RecordAuthError(result.Status.String())
				log.Warn("Rejected bearer token", zap.Stringer("reason", result.Status))
				return Unauthorized(c)
			}

			c.Set(currentUserKey, result.User)
			return next(c)
		}
	}
}

// CurrentUser returns the user resolved by AuthMiddleware
func CurrentUser(c echo.Context) (*model.User, bool) {
	user, ok := c.Get(currentUserKey).(*model.User)
	return user, ok && user != nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
