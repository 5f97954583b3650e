package router

import (
	"github.com/labstack/echo/v4"

	"github.com/parkgrid/parkgrid-api/internal/handler"
	"github.com/parkgrid/parkgrid-api/internal/middleware"
	"github.com/parkgrid/parkgrid-api/internal/repository"
)

// RegisterTenantAdmin registers the platform-level tenant administration
// routes.  All of them are restricted to SuperAdmin accounts; /current is
// the exception and returns the caller's resolved tenant.
func RegisterTenantAdmin(e *echo.Echo, t *handler.TenantHandler, jwtSecret string, users *repository.UserRepo, tenants *repository.TenantRepo) {
	g := e.Group("/api/tenants")
	g.Use(middleware.JWTAuth(jwtSecret, users))

	g.GET("/current", t.Current, middleware.ResolveTenant(tenants))

	admin := g.Group("")
	admin.Use(middleware.RequireRole(repository.RoleSuperAdmin))
	admin.POST("", t.Create)
	admin.GET("", t.List)
	admin.GET("/:id", t.Get)
	admin.PUT("/:id", t.Update)
	admin.POST("/:id/rotate-key", t.RotateAPIKey)
	admin.DELETE("/:id", t.Delete)
}
