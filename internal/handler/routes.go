package handler

import (
	"github.com/labstack/echo/v4"
)

// Handlers groups the API handlers for route registration
type Handlers struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Products *ProductHandler
	Health   *HealthHandler
}

// RegisterRoutes mounts the API on e. auth guards everything except the root,
// health, login and user registration.
func RegisterRoutes(e *echo.Echo, h Handlers, auth echo.MiddlewareFunc) {
	e.GET("/", Root)
	e.GET("/health", h.Health.Health)

	api := e.Group("/api/v1")

	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/logout", h.Auth.Logout, auth)

	// registration is public, the rest of /users is not
	api.POST("/users", h.Users.CreateUser)
	api.GET("/users", h.Users.ListUsers, auth)
	api.GET("/users/:id", h.Users.GetUser, auth)
	api.PUT("/users/:id", h.Users.UpdateUser, auth)
	api.DELETE("/users/:id", h.Users.DeleteUser, auth)

	products := api.Group("/products", auth)
	products.POST("", h.Products.CreateProduct)
	products.GET("", h.Products.ListProducts)
	products.GET("/:id", h.Products.GetProduct)
	products.PUT("/:id", h.Products.UpdateProduct)
	products.DELETE("/:id", h.Products.DeleteProduct)
}
