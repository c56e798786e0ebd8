package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/adevav/adevav-api/internal/app"
	"github.com/adevav/adevav-api/internal/auth"
	"github.com/adevav/adevav-api/internal/observability"
	"github.com/adevav/adevav-api/internal/platform/cache"
	"github.com/adevav/adevav-api/internal/platform/db"
	"github.com/adevav/adevav-api/internal/policy"
	"github.com/adevav/adevav-api/internal/posts"
	"github.com/adevav/adevav-api/internal/token"
	"github.com/adevav/adevav-api/internal/users"
	"github.com/adevav/adevav-api/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tokenManager, err := token.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Error("init token manager", slog.Any("error", err))
		os.Exit(1)
	}
	resolver := token.NewResolver(tokenManager)

	metrics := observability.NewMetrics()

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	auditEvents := &jobs.AuditEvents{Client: jobClient, Logger: logger}

	registry := policy.NewRegistry()
	guard := policy.NewGuard(registry, logger, metrics, auditEvents.PolicyDenied)

	userCache := cache.NewStore(redisClient, cfg.UserCacheTTL)
	userRepo := users.NewRepository(dbpool)
	userService := users.NewService(userRepo, userCache, logger)
	userHandler := users.NewHandler(logger, userService, guard)

	postRepo := posts.NewRepository(dbpool)
	postService := posts.NewService(postRepo, registry)
	postHandler := posts.NewHandler(logger, postService, guard)

	authService := auth.NewService(userService, tokenManager)
	authHandler := auth.NewHandler(logger, authService, guard, auditEvents)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		Resolver:     resolver,
		AuthHandler:  authHandler,
		UsersHandler: userHandler,
		PostsHandler: postHandler,
		JobHandler:   jobHandler,
		Metrics:      metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
