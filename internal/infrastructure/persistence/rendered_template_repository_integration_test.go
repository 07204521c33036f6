//go:build integration

package persistence

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/alexclassroom/woocommerce/internal/domain/shared"
	"github.com/alexclassroom/woocommerce/internal/domain/templating"
	"github.com/alexclassroom/woocommerce/internal/infrastructure/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func migrationsDir(t *testing.T) string {
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(filename), "..", "..", "..", "migrations")
}

func newPostgresTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("woocommerce_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	migrator, err := migration.New(sqlDB, migrationsDir(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, migrator.Up())

	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	return db
}

func TestGormRenderedTemplateRepository_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := newPostgresTestDB(t)
	repo := NewGormRenderedTemplateRepository(db)
	ctx := context.Background()

	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expired := &templating.RenderedTemplate{
		FileName:       "expired",
		DateCreated:    asOf.Add(-48 * time.Hour),
		ExpirationDate: asOf.Add(-time.Hour),
	}
	live := &templating.RenderedTemplate{
		FileName:       "live",
		DateCreated:    asOf,
		ExpirationDate: asOf.Add(time.Hour),
		IsPublic:       true,
	}
	require.NoError(t, repo.Create(ctx, expired))
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.CreateMetadata(ctx, expired.ID, map[string]string{"order_id": "42"}))

	records, err := repo.FindExpired(ctx, asOf, 1000)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, expired.ID, records[0].ID)

	require.NoError(t, repo.DeleteMetadataByRecordIDs(ctx, []int64{expired.ID}))
	affected, err := repo.DeleteByIDs(ctx, []int64{expired.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	_, err = repo.FindByID(ctx, expired.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	found, err := repo.FindByFileName(ctx, "live")
	require.NoError(t, err)
	assert.True(t, found.IsPublic)
	assert.Equal(t, asOf.Add(time.Hour), found.ExpirationDate)
}
