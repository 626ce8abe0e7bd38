// Command seed provisions a local development database: system roles for
// every role type and a handful of demo users with automatic assignments.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/meridian-campus/meridian-campus/internal/app"
	"github.com/meridian-campus/meridian-campus/internal/assignments"
	"github.com/meridian-campus/meridian-campus/internal/authz"
	"github.com/meridian-campus/meridian-campus/internal/platform/db"
	"github.com/meridian-campus/meridian-campus/internal/roles"
	"github.com/meridian-campus/meridian-campus/internal/users"
)

type demoUser struct {
	classification string
	department     string
}

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := app.LoadConfig()
	if err != nil {
		logger.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	roleService := roles.NewService(roles.NewRepository(pool), nil, logger)
	assignmentService := assignments.NewService(
		assignments.NewRepository(pool), roleService, users.NewRepository(pool), nil, logger)

	if err := roleService.EnsureSystemRoles(ctx, "seed"); err != nil {
		logger.Error("ensure system roles", slog.Any("error", err))
		os.Exit(1)
	}

	demo := []demoUser{
		{authz.ClassificationStudent, "Mathematics"},
		{authz.ClassificationFaculty, "Mathematics"},
		{authz.ClassificationChair, "Physics"},
		{authz.ClassificationStaff, ""},
	}
	for _, d := range demo {
		id := uuid.New()
		_, err := pool.Exec(ctx,
			`INSERT INTO users (id, is_active, classification, department)
			 VALUES ($1, true, $2, $3)`, id, d.classification, d.department)
		if err != nil {
			logger.Error("insert demo user", slog.Any("error", err))
			os.Exit(1)
		}
		if err := assignmentService.AssignAutomaticRoles(ctx, id); err != nil {
			logger.Error("assign automatic roles", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("seeded user",
			slog.String("id", id.String()),
			slog.String("classification", d.classification))
	}
}
