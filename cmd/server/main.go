package main

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parkgrid/parkgrid-api/internal/config"
	"github.com/parkgrid/parkgrid-api/internal/database"
	"github.com/parkgrid/parkgrid-api/internal/handler"
	"github.com/parkgrid/parkgrid-api/internal/logger"
	"github.com/parkgrid/parkgrid-api/internal/middleware"
	"github.com/parkgrid/parkgrid-api/internal/queue"
	"github.com/parkgrid/parkgrid-api/internal/repository"
	"github.com/parkgrid/parkgrid-api/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load()
	logger.Init(cfg.Env)
	defer logger.Sync()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.S().Fatalw("database connection failed", "err", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()

	tenants := repository.NewTenantRepo(db)
	users := repository.NewUserRepo(db)
	sections := repository.NewSectionRepo(db)
	slots := repository.NewSlotRepo(db)
	vehicles := repository.NewVehicleRepo(db)
	payments := repository.NewPaymentRepo(db)
	reports := repository.NewReportRepo(db)
	settings := repository.NewSettingRepo(db)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Use(echomw.Recover())
	e.Use(middleware.Metrics())
	e.Use(middleware.NewTokenBucket(rateCfg, rdb))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tenants, settings), cfg.JWTSecret, users)
	router.RegisterTenantAdmin(e, handler.NewTenantHandler(tenants, settings), cfg.JWTSecret, users, tenants)
	router.RegisterFacility(e, router.FacilityHandlers{
		Users:    handler.NewUserHandler(cfg, users),
		Vehicles: handler.NewVehicleHandler(vehicles, slots, sections),
		Parking:  handler.NewParkingHandler(sections, slots),
		Payments: handler.NewPaymentHandler(payments, vehicles, settings),
		Reports:  handler.NewReportHandler(reports, vehicles, payments, sections),
		Settings: handler.NewSettingHandler(settings),
	}, cfg.JWTSecret, users, tenants, cacheCfg, rdb)

	go func() {
		if err := queue.StartActivityConsumer(); err != nil {
			logger.S().Warnw("activity consumer stopped", "err", err)
		}
	}()

	addr := ":" + cfg.Port
	logger.S().Infow("listening", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil {
		logger.S().Fatalw("server stopped", "err", err)
	}
}
