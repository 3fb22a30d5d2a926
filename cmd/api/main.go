package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"fsyportal/internal/account"
	"fsyportal/internal/api"
	"fsyportal/internal/attendance"
	"fsyportal/internal/auth"
	"fsyportal/internal/cache"
	"fsyportal/internal/cloudinary"
	"fsyportal/internal/config"
	"fsyportal/internal/event"
	"fsyportal/internal/httpmiddleware"
	"fsyportal/internal/logging"
	"fsyportal/internal/metrics"
	"fsyportal/internal/notes"
	"fsyportal/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Error("http server failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	db, err := store.NewDB(ctx, cfg.DatabaseURL, store.Options{
		MaxConns:   cfg.DBMaxConns,
		QueueLimit: cfg.DBQueueLimit,
		MaxRetries: cfg.DBMaxRetries,
		RetryBase:  cfg.DBRetryBase,
		VenueTZ:    cfg.VenueTZ,
		Logger:     logger,
		Metrics:    m,
	})
	if err != nil {
		if db == nil {
			return err
		}
		// The pool reconnects on demand; /healthz reports the outage.
		logger.Warn("database not reachable at startup", zap.Error(err))
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := db.RunMigrations(ctx); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}

	rdb := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = rdb.Close() }()

	loc, err := time.LoadLocation(cfg.VenueTZ)
	if err != nil {
		return err
	}

	sessions := auth.NewIssuer(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.SessionTTL)

	events := event.NewService(event.NewRepository(db), event.Caches{
		All:     newCache[[]event.Event](cfg, rdb, "events", m, logger),
		Current: newCache[event.Event](cfg, rdb, "current_event", m, logger),
		Next:    newCache[event.Event](cfg, rdb, "next_event", m, logger),
	}, event.NewClock(loc, nil), logger)
	accounts := account.NewService(account.NewRepository(db), sessions,
		newCache[account.UserInfo](cfg, rdb, "user_info", m, logger), logger)
	roster := attendance.NewService(attendance.NewRepository(db), cfg.SearchLimit, m, logger)
	notebook := notes.NewService(notes.NewRepository(db), accounts, logger)

	var uploader api.Uploader
	if cfg.CloudinaryConfigured() {
		uploader = cloudinary.New(cloudinary.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		})
		logger.Info("cloudinary configured", zap.String("cloud", cfg.CloudinaryCloudName))
	} else {
		logger.Warn("cloudinary not configured, photo uploads disabled")
	}

	checks := map[string]api.HealthChecker{"db": db}
	if cfg.CacheBackend == "redis" {
		checks["redis"] = rdb
	}
	handler := api.New(api.Deps{
		Events:     events,
		Attendance: roster,
		Accounts:   accounts,
		Notes:      notebook,
		Uploader:   uploader,
		Sessions:   sessions,
		Cookie:     api.Cookie{Name: cfg.SessionCookie, Secure: cfg.CookieSecure},
		Checks:     checks,
		Log:        logger,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.Logger(logger, "/healthz", "/metrics"))
	r.Use(httpmiddleware.Metrics(m))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewIPLimiter(cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}

// newCache picks the configured backend for one named cache.
func newCache[V any](cfg config.App, rdb *store.Redis, name string, m *metrics.Metrics, log *zap.Logger) cache.Cache[V] {
	if cfg.CacheBackend == "redis" {
		return cache.NewRedis[V](rdb.Client, name, cfg.CacheTTL, m, log)
	}
	return cache.NewMemory[V](name, cfg.CacheTTL, m)
}
