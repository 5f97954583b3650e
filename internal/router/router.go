// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/parkgrid/parkgrid-api/internal/handler"
	"github.com/parkgrid/parkgrid-api/internal/middleware"
	"github.com/parkgrid/parkgrid-api/internal/repository"
)

// RegisterRoutes registers routes that require no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints.  Login and register
// are public; profile and change-password require a valid session token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, users *repository.UserRepo) {
	g := e.Group("/api/auth")
	g.POST("/login", a.Login)
	g.POST("/register", a.Register)

	p := e.Group("/api/auth")
	p.Use(middleware.JWTAuth(jwtSecret, users))
	p.GET("/profile", a.Profile)
	p.POST("/change-password", a.ChangePassword)
}
