package handler

import (
	"net/http"

	"catalog-service/internal/model"
	"catalog-service/internal/service"
	"catalog-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// UserHandler serves the /users endpoints
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates a UserHandler
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// CreateUser registers a user from a JSON, form or multipart body
func (h *UserHandler) CreateUser(c echo.Context) error {
	log := logger.FromEcho(c)

	var req model.CreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	file, err := readUpload(c)
	if err != nil {
		return respondError(c, err)
	}

	log.Info("User creation request", zap.String("email", req.Email), zap.Bool("has_file", file != nil))
	user, err := h.users.Create(c.Request().Context(), req, file)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

// ListUsers returns a page of users
func (h *UserHandler) ListUsers(c echo.Context) error {
	skip, limit, err := parsePage(c)
	if err != nil {
		return respondError(c, err)
	}
	page, err := h.users.List(c.Request().Context(), skip, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetUser returns a single user
func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.users.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUser applies a partial update from JSON or form fields
func (h *UserHandler) UpdateUser(c echo.Context) error {
	var (
		upd model.UserUpdate
		err error
	)
	if isJSON(c) {
		if err = decodeJSONUpdate(c, &upd); err == nil {
			err = upd.Normalize()
		}
	} else {
		var values map[string][]string
		if values, err = formValues(c); err == nil {
			upd, err = model.ParseUserUpdateForm(values)
		}
	}
	if err != nil {
		return respondError(c, err)
	}

	file, err := readUpload(c)
	if err != nil {
		return respondError(c, err)
	}

	user, err := h.users.Update(c.Request().Context(), c.Param("id"), upd, file)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser removes a user
func (h *UserHandler) DeleteUser(c echo.Context) error {
	if err := h.users.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully"})
}
