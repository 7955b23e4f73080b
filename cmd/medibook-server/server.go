package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/config"
	"github.com/medibook/medibook/internal/domain/booking"
	"github.com/medibook/medibook/internal/domain/doctor"
	"github.com/medibook/medibook/internal/domain/identity"
	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/internal/platform/db"
	"github.com/medibook/medibook/internal/platform/middleware"
	"github.com/medibook/medibook/internal/platform/telemetry"
	"github.com/medibook/medibook/internal/platform/validation"
)

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	tp := telemetry.NewTelemetryProvider(telemetry.TelemetryConfig{
		ServiceVersion: version,
		Environment:    cfg.Env,
		RuntimeMetrics: true,
	})
	tp.ObservePool(func() *db.PoolStats { return db.GetPoolStats(pool) })

	e := newServer(cfg, logger, pool, tp)

	go func() {
		logger.Info().Str("addr", cfg.Addr()).Str("version", version).Msg("starting server")
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer assembles the echo instance: middleware chain, public endpoints
// and the /api/v1 domain routes.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, tp *telemetry.TelemetryProvider) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)
	e.Validator = validation.New()

	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}

	// Logger renders errors itself, so Recovery must run inside it.
	e.Use(middleware.RequestID())
	e.Use(tp.MetricsMiddleware())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, auth.HeaderRefreshToken, middleware.RequestIDHeader},
		ExposeHeaders: []string{echo.HeaderAuthorization, auth.HeaderRefreshToken, middleware.RequestIDHeader},
	}))
	e.Use(middleware.RateLimit(rl))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(pool, func() *db.PoolStats { return db.GetPoolStats(pool) }))
	e.GET("/metrics", tp.PrometheusHandler())

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	hasher := auth.NewPasswordHasher(cfg.SaltRounds)

	api := e.Group("/api/v1", auth.JWTMiddleware(auth.JWTConfig{
		Tokens:  tokens,
		Skipper: auth.AuthSkipper,
	}))
	api.GET("", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "medibook API v1"})
	})

	identitySvc := identity.NewService(identity.NewUserRepoPG(pool), hasher, tokens, logger, tp)
	identity.NewHandler(identitySvc).RegisterRoutes(api)

	doctorSvc := doctor.NewService(doctor.NewRepoPG(pool), logger)
	doctor.NewHandler(doctorSvc).RegisterRoutes(api)

	bookingSvc := booking.NewService(booking.NewStorePG(pool), logger, tp)
	booking.NewHandler(bookingSvc).RegisterRoutes(api)

	return e
}
