package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/lostfound/community/pkg/logging"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// gooseLogger routes goose output through zap
type gooseLogger struct {
	sugar *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.sugar.Fatalf(format, v...)
}

func prepareGoose() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{sugar: logging.WithComponent("migrate").Sugar()})
	return goose.SetDialect("postgres")
}

// MigrateUp applies every pending migration on sqlDB
func MigrateUp(ctx context.Context, sqlDB *sql.DB) error {
	if err := prepareGoose(); err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration
func MigrateDown(ctx context.Context, sqlDB *sql.DB) error {
	if err := prepareGoose(); err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	if err := goose.DownContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return nil
}

// MigrationStatus logs the state of every migration
func MigrationStatus(ctx context.Context, sqlDB *sql.DB) error {
	if err := prepareGoose(); err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	return goose.StatusContext(ctx, sqlDB, migrationsDir)
}

// MigrationVersion returns the current schema version
func MigrationVersion(ctx context.Context, sqlDB *sql.DB) (int64, error) {
	if err := prepareGoose(); err != nil {
		return 0, fmt.Errorf("failed to prepare migrations: %w", err)
	}
	return goose.GetDBVersionContext(ctx, sqlDB)
}
