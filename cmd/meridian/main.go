package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-campus/meridian-campus/internal/app"
	"github.com/meridian-campus/meridian-campus/internal/assignments"
	"github.com/meridian-campus/meridian-campus/internal/authz"
	"github.com/meridian-campus/meridian-campus/internal/platform/cache"
	"github.com/meridian-campus/meridian-campus/internal/platform/db"
	"github.com/meridian-campus/meridian-campus/internal/roles"
	"github.com/meridian-campus/meridian-campus/internal/shared"
	"github.com/meridian-campus/meridian-campus/internal/users"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, permission cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	permCache := authz.NewCache(redisClient, cfg.PermissionCacheTTL)

	roleService := roles.NewService(roles.NewRepository(pool), permCache, logger)
	userRepo := users.NewRepository(pool)
	assignmentService := assignments.NewService(assignments.NewRepository(pool), roleService, userRepo, permCache, logger)

	if err := roleService.EnsureSystemRoles(ctx, "startup"); err != nil {
		logger.Error("ensure system roles", slog.Any("error", err))
		os.Exit(1)
	}

	guard := authz.Middleware{Source: assignmentService, Permissions: assignmentService, Logger: logger}

	// Upstream auth terminates before this service and forwards the caller
	// identity; anything unparsable is treated as anonymous.
	principal := func(r *http.Request) (shared.Principal, bool) {
		id, err := uuid.Parse(r.Header.Get("X-User-ID"))
		if err != nil {
			return shared.Principal{}, false
		}
		return shared.Principal{UserID: id}, true
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Principal:          principal,
		RolesHandler:       roles.NewHandler(logger, roleService, guard),
		AssignmentsHandler: assignments.NewHandler(logger, assignmentService, guard),
		PermissionsHandler: authz.NewPermissionsHandler(guard),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
