package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/parkgrid/parkgrid-api/internal/config"
	"github.com/parkgrid/parkgrid-api/internal/handler"
	"github.com/parkgrid/parkgrid-api/internal/middleware"
	"github.com/parkgrid/parkgrid-api/internal/repository"
)

// FacilityHandlers bundles the tenant-scoped handlers so registration stays
// one call in main.
type FacilityHandlers struct {
	Users    *handler.UserHandler
	Vehicles *handler.VehicleHandler
	Parking  *handler.ParkingHandler
	Payments *handler.PaymentHandler
	Reports  *handler.ReportHandler
	Settings *handler.SettingHandler
}

// RegisterFacility registers every tenant-scoped route group.  The chain is
// always JWTAuth then ResolveTenant, so handlers can rely on both the
// identity and the tenant being present.  Read endpoints sit behind the
// Redis response cache when one is configured.
func RegisterFacility(e *echo.Echo, h FacilityHandlers, jwtSecret string,
	users *repository.UserRepo, tenants *repository.TenantRepo,
	cacheCfg config.CacheConfig, rdb *redis.Client) {

	api := e.Group("/api")
	api.Use(middleware.JWTAuth(jwtSecret, users))
	api.Use(middleware.ResolveTenant(tenants))

	cache := middleware.NewRedisCache(cacheCfg, rdb)

	admin := middleware.RequireRole(repository.RoleSuperAdmin, repository.RoleAdmin)
	gate := middleware.RequireRole(repository.RoleSuperAdmin, repository.RoleAdmin, repository.RoleGatekeeper)

	// staff management
	u := api.Group("/users", admin)
	u.POST("", h.Users.Create)
	u.GET("", h.Users.List)
	u.GET("/:id", h.Users.Get)
	u.PUT("/:id", h.Users.Update)
	u.DELETE("/:id", h.Users.Delete)

	// gate operations and vehicle records
	v := api.Group("/vehicles")
	v.POST("/entry", h.Vehicles.RegisterEntry, gate)
	v.POST("/exit", h.Vehicles.RegisterExit, gate)
	v.GET("", h.Vehicles.List, gate)
	v.GET("/:id", h.Vehicles.Get, gate)
	v.GET("/plate/:plate", h.Vehicles.GetByPlate, gate)
	v.PUT("/:id", h.Vehicles.Update, admin)

	// parking inventory
	p := api.Group("/parking")
	p.GET("/sections", h.Parking.ListSections, cache)
	p.GET("/sections/:id", h.Parking.GetSection)
	p.POST("/sections", h.Parking.CreateSection, admin)
	p.PUT("/sections/:id", h.Parking.UpdateSection, admin)
	p.DELETE("/sections/:id", h.Parking.DeleteSection, admin)
	p.GET("/slots", h.Parking.ListSlots)
	p.GET("/slots/:id", h.Parking.GetSlot)
	p.POST("/slots", h.Parking.CreateSlot, admin)
	p.PUT("/slots/:id", h.Parking.UpdateSlot, admin)
	p.DELETE("/slots/:id", h.Parking.DeleteSlot, admin)

	// payments
	pay := api.Group("/payments")
	pay.POST("", h.Payments.Create, gate)
	pay.GET("", h.Payments.List, gate)
	pay.GET("/:id", h.Payments.Get, gate)
	pay.GET("/:id/receipt", h.Payments.Receipt, gate)
	pay.PUT("/:id/status", h.Payments.UpdateStatus, admin)

	// reporting requires at least the Basic plan
	r := api.Group("/reports", admin, middleware.RequirePlan("Basic"))
	r.POST("", h.Reports.Create)
	r.POST("/occupancy", h.Reports.CreateOccupancy)
	r.POST("/revenue", h.Reports.CreateRevenue)
	r.GET("", h.Reports.List)
	r.GET("/:id", h.Reports.Get)
	r.PUT("/:id/schedule", h.Reports.UpdateSchedule)
	r.DELETE("/:id", h.Reports.Delete)

	// per-tenant settings
	s := api.Group("/settings")
	s.GET("", h.Settings.Get)
	s.PUT("", h.Settings.Update, admin)
}
