package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alexclassroom/woocommerce/internal/domain/shared"
	"github.com/alexclassroom/woocommerce/internal/domain/templating"
	"github.com/alexclassroom/woocommerce/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupRenderedTemplateTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// every pooled connection would otherwise get its own empty :memory: database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.RenderedTemplateModel{}, &models.RenderedTemplateMetaModel{})
	require.NoError(t, err)

	return db
}

func newMockRenderedTemplateRepository(t *testing.T) (*GormRenderedTemplateRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormRenderedTemplateRepository(gormDB), mock, mockDB
}

func createRecord(t *testing.T, repo *GormRenderedTemplateRepository, name string, created, expires time.Time) *templating.RenderedTemplate {
	t.Helper()
	record := &templating.RenderedTemplate{
		FileName:       name,
		DateCreated:    created,
		ExpirationDate: expires,
	}
	require.NoError(t, repo.Create(context.Background(), record))
	return record
}

func TestGormRenderedTemplateRepository_Create(t *testing.T) {
	db := setupRenderedTemplateTestDB(t)
	repo := NewGormRenderedTemplateRepository(db)
	ctx := context.Background()

	created := time.Date(2026, 1, 15, 10, 30, 45, 500_000_000, time.FixedZone("CET", 3600))
	record := &templating.RenderedTemplate{
		FileName:       "3f2a9c0d1e4b5a6978f0e1d2c3b4a596",
		DateCreated:    created,
		ExpirationDate: created.Add(7 * 24 * time.Hour),
		IsPublic:       true,
	}

	err := repo.Create(ctx, record)
	require.NoError(t, err)
	assert.Positive(t, record.ID)

	found, err := repo.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.FileName, found.FileName)
	assert.True(t, found.IsPublic)
	assert.Equal(t, time.Date(2026, 1, 15, 9, 30, 45, 0, time.UTC), found.DateCreated)
	assert.Equal(t, time.UTC, found.ExpirationDate.Location())
	assert.Nil(t, found.Metadata)
}

func TestGormRenderedTemplateRepository_Create_DuplicateFileName(t *testing.T) {
	db := setupRenderedTemplateTestDB(t)
	repo := NewGormRenderedTemplateRepository(db)
	now := time.Now()

	createRecord(t, repo, "duplicate", now, now.Add(time.Hour))

	err := repo.Create(context.Background(), &templating.RenderedTemplate{
		FileName:       "duplicate",
		DateCreated:    now,
		ExpirationDate: now.Add(time.Hour),
	})
	assert.Error(t, err)
}

func TestGormRenderedTemplateRepository_FindByID_NotFound(t *testing.T) {
	db := setupRenderedTemplateTestDB(t)
	repo := NewGormRenderedTemplateRepository(db)

	record, err := repo.FindByID(context.Background(), 999999)
	assert.Nil(t, record)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormRenderedTemplateRepository_FindByFileName(t *testing.T) {
	db := setupRenderedTemplateTestDB(t)
	repo := NewGormRenderedTemplateRepository(db)
	now := time.Now()

	record := createRecord(t, repo, "invoice-42", now, now.Add(time.Hour))

	t.Run("finds existing record", func(t *testing.T) {
		found, err := repo.FindByFileName(context.Background(), "invoice-42")
		require.NoError(t, err)
		assert.Equal(t, record.ID, found.ID)
	})

	t.Run("returns not found for unknown name", func(t *testing.T) {
		found, err := repo.FindByFileName(context.Background(), "missing")
		assert.Nil(t, found)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormRenderedTemplateRepository_Metadata(t *testing.T) {
	db := setupRenderedTemplateTestDB(t)
	repo := NewGormRenderedTemplateRepository(db)
	ctx := context.Background()
	now := time.Now()

	record := createRecord(t, repo, "with-meta", now, now.Add(time.Hour))
	other := createRecord(t, repo, "other", now, now.Add(time.Hour))

	require.NoError(t, repo.CreateMetadata(ctx, record.ID, map[string]string{
		"order_id": "42",
		"customer": "jane",
	}))
	require.NoError(t, repo.CreateMetadata(ctx, other.ID, map[string]string{"order_id": "7"}))

	t.Run("empty metadata is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.CreateMetadata(ctx, record.ID, nil))
	})

	t.Run("finds metadata of one record", func(t *testing.T) {
		metadata, err := repo.FindMetadata(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"order_id": "42", "customer": "jane"}, metadata)
	})

	t.Run("returns empty map for record without metadata", func(t *testing.T) {
		metadata, err := repo.FindMetadata(ctx, 999999)
		require.NoError(t, err)
		assert.Empty(t, metadata)
	})

	t.Run("deletes metadata of one record only", func(t *testing.T) {
		require.NoError(t, repo.DeleteMetadata(ctx, record.ID))

		metadata, err := repo.FindMetadata(ctx, record.ID)
		require.NoError(t, err)
		assert.Empty(t, metadata)

		metadata, err = repo.FindMetadata(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, "7", metadata["order_id"])
	})
}

func TestGormRenderedTemplateRepository_Delete(t *testing.T) {
	db := setupRenderedTemplateTestDB(t)
	repo := NewGormRenderedTemplateRepository(db)
	ctx := context.Background()
	now := time.Now()

	record := createRecord(t, repo, "to-delete", now, now.Add(time.Hour))

	affected, err := repo.Delete(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.Delete(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestGormRenderedTemplateRepository_FindExpired(t *testing.T) {
	db := setupRenderedTemplateTestDB(t)
	repo := NewGormRenderedTemplateRepository(db)
	ctx := context.Background()

	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	created := asOf.Add(-30 * 24 * time.Hour)

	newest := createRecord(t, repo, "expired-newest", created, asOf.Add(-time.Minute))
	oldest := createRecord(t, repo, "expired-oldest", created, asOf.Add(-48*time.Hour))
	middle := createRecord(t, repo, "expired-middle", created, asOf.Add(-time.Hour))
	createRecord(t, repo, "boundary", created, asOf)
	createRecord(t, repo, "live", created, asOf.Add(time.Hour))

	t.Run("returns expired records oldest first", func(t *testing.T) {
		records, err := repo.FindExpired(ctx, asOf, 1000)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, oldest.ID, records[0].ID)
		assert.Equal(t, middle.ID, records[1].ID)
		assert.Equal(t, newest.ID, records[2].ID)
	})

	t.Run("honors limit", func(t *testing.T) {
		records, err := repo.FindExpired(ctx, asOf, 2)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, oldest.ID, records[0].ID)
	})

	t.Run("accepts non-UTC asOf", func(t *testing.T) {
		records, err := repo.FindExpired(ctx, asOf.In(time.FixedZone("PST", -8*3600)), 1000)
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})
}

func TestGormRenderedTemplateRepository_BatchDelete(t *testing.T) {
	db := setupRenderedTemplateTestDB(t)
	repo := NewGormRenderedTemplateRepository(db)
	ctx := context.Background()
	now := time.Now()

	first := createRecord(t, repo, "batch-1", now, now)
	second := createRecord(t, repo, "batch-2", now, now)
	keep := createRecord(t, repo, "batch-keep", now, now)
	require.NoError(t, repo.CreateMetadata(ctx, first.ID, map[string]string{"k": "v"}))
	require.NoError(t, repo.CreateMetadata(ctx, keep.ID, map[string]string{"k": "v"}))

	ids := []int64{first.ID, second.ID}
	require.NoError(t, repo.DeleteMetadataByRecordIDs(ctx, ids))
	affected, err := repo.DeleteByIDs(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	_, err = repo.FindByID(ctx, first.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	metadata, err := repo.FindMetadata(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, "v", metadata["k"])

	t.Run("empty id lists are no-ops", func(t *testing.T) {
		assert.NoError(t, repo.DeleteMetadataByRecordIDs(ctx, nil))
		affected, err := repo.DeleteByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, affected)
	})
}

func TestGormRenderedTemplateRepository_DatabaseErrors(t *testing.T) {
	t.Run("FindByID propagates query errors", func(t *testing.T) {
		repo, mock, mockDB := newMockRenderedTemplateRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "rendered_templates"`).
			WillReturnError(errors.New("connection reset"))

		record, err := repo.FindByID(context.Background(), 1)
		assert.Nil(t, record)
		assert.EqualError(t, err, "connection reset")
		assert.NotErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CreateMetadata propagates insert errors", func(t *testing.T) {
		repo, mock, mockDB := newMockRenderedTemplateRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`INSERT INTO "rendered_templates_meta"`).
			WillReturnError(errors.New("disk full"))

		err := repo.CreateMetadata(context.Background(), 1, map[string]string{"k": "v"})
		assert.EqualError(t, err, "disk full")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DeleteByIDs reports rows affected", func(t *testing.T) {
		repo, mock, mockDB := newMockRenderedTemplateRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`DELETE FROM "rendered_templates" WHERE id IN \(\$1,\$2\)`).
			WithArgs(int64(1), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 2))

		affected, err := repo.DeleteByIDs(context.Background(), []int64{1, 2})
		require.NoError(t, err)
		assert.Equal(t, int64(2), affected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
