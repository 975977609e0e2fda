package handler

import (
	"net/http"

	"catalog-service/internal/model"
	"catalog-service/internal/service"

	"github.com/labstack/echo/v4"
)

// AuthHandler serves login and logout
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates an AuthHandler
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login exchanges email and password for an access token
func (h *AuthHandler) Login(c echo.Context) error {
	var req model.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	resp, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout is stateless: tokens stay valid until they expire and clients discard them
func (h *AuthHandler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "Successfully logged out"})
}
