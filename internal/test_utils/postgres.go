package test_utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/buildledger/buildledger/internal/config"
	"github.com/buildledger/buildledger/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	testDbName     = "buildledger"
	testDbUser     = "test_buildledger"
	testDbPassword = "test_buildledger"
	snapshotName   = "buildledger-migrated"
)

func preparePostgresContainer(ctx context.Context) (*postgres.PostgresContainer, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}

	return postgres.Run(
		ctx, "postgres:18.1-alpine",
		postgres.WithInitScripts(filepath.Join(projectRoot, "dev", "init.sql")),
		postgres.WithDatabase(testDbName),
		postgres.WithUsername(testDbUser),
		postgres.WithPassword(testDbPassword),
		postgres.BasicWaitStrategies(),
	)
}

// TestWithDB starts Postgres, applies all migrations and snapshots the migrated state
// so that tests can Restore between cases. It returns an error instead of exiting so
// that callers can skip when no container runtime is available.
func TestWithDB() (*postgres.PostgresContainer, func() *pgxpool.Pool, error) {
	ctx := context.Background()

	container, err := preparePostgresContainer(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return container, nil, err
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return container, nil, err
	}
	log.Infof("Postgres container started at %s:%d", host, port.Int())

	cfg := config.Database{
		Host:     host,
		Port:     port.Int(),
		User:     testDbUser,
		Pass:     testDbPassword,
		Name:     testDbName,
		Schema:   "buildledger",
		MaxConns: 4,
		MinConns: 1,
	}

	if err := database.Migrate(cfg); err != nil {
		return container, nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	if err := container.Snapshot(ctx, postgres.WithSnapshotName(snapshotName)); err != nil {
		return container, nil, fmt.Errorf("failed to snapshot postgres container: %w", err)
	}

	return container, func() *pgxpool.Pool {
		pool, err := database.Open(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to open database connection: %v", err)
		}
		return pool
	}, nil
}

// findProjectRoot walks up until it finds go.mod or .git.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if fileExists(filepath.Join(dir, "go.mod")) || fileExists(filepath.Join(dir, ".git")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root")
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
