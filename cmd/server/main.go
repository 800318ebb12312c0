package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"bus_ticketing/internal/config"
	"bus_ticketing/internal/controllers"
	"bus_ticketing/internal/fares"
	"bus_ticketing/internal/logger"
	"bus_ticketing/internal/middleware"
	"bus_ticketing/internal/routes"
	"bus_ticketing/internal/store"
	"bus_ticketing/internal/telemetry"
	"bus_ticketing/internal/tickets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	// Initialize structured logging to file
	logger.Setup(cfg.LogFile, cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		MetricsEnabled: cfg.OtelMetrics,
		TracingEnabled: cfg.OtelTracing,
		Endpoint:       cfg.OtelEndpoint,
		Insecure:       cfg.OtelInsecure,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to start telemetry")
	}

	// Connect to the database
	db, err := config.OpenDB(cfg.DB)
	if err != nil {
		logrus.WithError(err).Fatal("Database unavailable")
	}

	st := store.New(db)
	var cache *fares.LedgerCache
	if cfg.LedgerCacheSize > 0 {
		cache = fares.NewLedgerCache(cfg.LedgerCacheSize, cfg.LedgerCacheTTL)
	}
	auth := middleware.NewAuth(cfg.JWTSecret, cfg.TokenTTL)
	hub := controllers.NewBookingHub()
	defer hub.Close()
	limiter := middleware.NewRateLimiter(cfg.FareRateLimit)
	defer limiter.Stop()

	r := routes.SetupRouter(routes.Deps{
		Controller:     controllers.New(st, fares.NewCalculator(st, cache), auth, tickets.NewSigner(cfg.TicketSecret), hub),
		Auth:           auth,
		FareLimiter:    limiter,
		TrustedProxies: cfg.TrustedProxies,
		LogWriter:      logger.Writer(),
	})

	// Wrap with CORS, compression and tracing
	var handler http.Handler = middleware.EnableCORS(r, cfg.CORSOrigins)
	handler = middleware.Compress(handler, cfg.CompressionMinSize)
	handler = otelhttp.NewHandler(handler, telemetry.ServiceName)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("addr", cfg.Addr).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Telemetry shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
