package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/meridian-campus/meridian-campus/internal/app"
	"github.com/meridian-campus/meridian-campus/internal/assignments"
	"github.com/meridian-campus/meridian-campus/internal/authz"
	"github.com/meridian-campus/meridian-campus/internal/platform/cache"
	"github.com/meridian-campus/meridian-campus/internal/platform/db"
	"github.com/meridian-campus/meridian-campus/internal/roles"
	"github.com/meridian-campus/meridian-campus/internal/users"
	"github.com/meridian-campus/meridian-campus/jobs"
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

	permCache := authz.NewCache(redisClient, cfg.PermissionCacheTTL)
	roleService := roles.NewService(roles.NewRepository(pool), permCache, logger)
	assignmentService := assignments.NewService(
		assignments.NewRepository(pool), roleService, users.NewRepository(pool), permCache, logger)

	sweepTask, err := jobs.NewAssignmentSweepTask(jobs.SweepPayload{Limit: cfg.SweepBatch})
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAssignmentSweep, Handler: jobs.NewAssignmentSweepHandler(assignmentService, logger)},
			{Type: jobs.TaskEnsureSystemRoles, Handler: jobs.NewEnsureSystemRolesHandler(roleService)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SweepCron, Task: sweepTask},
			{Spec: "@every 6h", Task: jobs.NewEnsureSystemRolesTask()},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
}
