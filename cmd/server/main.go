package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/task-assignment-api/internal/config"
	"github.com/yukikurage/task-assignment-api/internal/database"
	"github.com/yukikurage/task-assignment-api/internal/middleware"
	"github.com/yukikurage/task-assignment-api/internal/observability"
	"github.com/yukikurage/task-assignment-api/internal/repository"
	"github.com/yukikurage/task-assignment-api/internal/security"
	"github.com/yukikurage/task-assignment-api/internal/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: cfg.OTelServiceName,
		Environment: cfg.Env,
		Endpoint:    cfg.OTelEndpoint,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			log.Warn("tracer shutdown failed", "err", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close(db)

	// Run migrations
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// Seed the administrator before accepting requests
	hasher := security.NewBcryptHasher()
	seed, err := database.EnsureAdminUser(ctx, repository.NewUserRepository(db, prom), hasher, database.AdminSeed{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Name:     cfg.AdminName,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	switch {
	case seed.Created && seed.GeneratedPassword != "":
		log.Warn("admin account created with a generated password; change it after first login",
			"username", seed.Username, "password", seed.GeneratedPassword)
	case seed.Created:
		log.Info("admin account created", "username", seed.Username)
	default:
		log.Info("admin seed skipped", "reason", seed.Reason)
	}

	store, err := server.NewSessionStore(cfg)
	if err != nil {
		return err
	}

	var limiter middleware.Limiter = middleware.NewMemoryLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
	if cfg.SessionStore == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()
		limiter = middleware.NewRedisLimiter(rdb, cfg.LoginRateLimit, cfg.LoginRateWindow)
	}

	router := server.NewRouter(server.Deps{
		DB:           db,
		SessionStore: store,
		Logger:       log,
		Prom:         prom,
		Gatherer:     reg,
		LoginLimiter: limiter,
		Hasher:       hasher,
		ServiceName:  cfg.OTelServiceName,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "db_driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-stop:
	}

	log.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
