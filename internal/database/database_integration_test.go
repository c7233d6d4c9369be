//go:build integration

package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mamadbah2/farmdesk/internal/config"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
)

func TestOpenAndMigratePostgres(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("farmdesk"),
		tcpostgres.WithUsername("farm"),
		tcpostgres.WithPassword("farm"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, config.DatabaseConfig{
		DSN:             dsn,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		LogLevel:        "silent",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, Migrate(ctx, db))
	// Migrating twice must be a no-op.
	require.NoError(t, Migrate(ctx, db))

	farm := models.Farm{Code: "F-01", Name: "North", Status: models.StatusActive}
	require.NoError(t, db.Create(&farm).Error)

	var count int64
	require.NoError(t, db.Model(&models.Farm{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}
