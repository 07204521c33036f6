package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/alexclassroom/woocommerce/internal/domain/shared"
	"github.com/alexclassroom/woocommerce/internal/domain/templating"
	"github.com/alexclassroom/woocommerce/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRenderedTemplateRepository implements RenderedTemplateRepository using GORM
type GormRenderedTemplateRepository struct {
	db *gorm.DB
}

// NewGormRenderedTemplateRepository creates a new GormRenderedTemplateRepository
func NewGormRenderedTemplateRepository(db *gorm.DB) *GormRenderedTemplateRepository {
	return &GormRenderedTemplateRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormRenderedTemplateRepository) WithTx(tx *gorm.DB) *GormRenderedTemplateRepository {
	return &GormRenderedTemplateRepository{db: tx}
}

// Create inserts the record and sets its ID
func (r *GormRenderedTemplateRepository) Create(ctx context.Context, record *templating.RenderedTemplate) error {
	model := models.RenderedTemplateModelFromDomain(record)
	model.ID = 0
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	record.ID = model.ID
	record.DateCreated = model.DateCreatedGMT
	record.ExpirationDate = model.ExpirationDateGMT
	return nil
}

// CreateMetadata inserts all entries for a record in one statement
func (r *GormRenderedTemplateRepository) CreateMetadata(ctx context.Context, recordID int64, metadata map[string]string) error {
	if len(metadata) == 0 {
		return nil
	}
	rows := models.RenderedTemplateMetaModelsFromMap(recordID, metadata)
	return r.db.WithContext(ctx).Create(&rows).Error
}

// FindByID finds a record by ID
func (r *GormRenderedTemplateRepository) FindByID(ctx context.Context, id int64) (*templating.RenderedTemplate, error) {
	var model models.RenderedTemplateModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByFileName finds a record by file name
func (r *GormRenderedTemplateRepository) FindByFileName(ctx context.Context, fileName string) (*templating.RenderedTemplate, error) {
	var model models.RenderedTemplateModel
	if err := r.db.WithContext(ctx).First(&model, "file_name = ?", fileName).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindMetadata returns all metadata entries of a record. Later rows win on
// duplicate keys.
func (r *GormRenderedTemplateRepository) FindMetadata(ctx context.Context, recordID int64) (map[string]string, error) {
	var rows []models.RenderedTemplateMetaModel
	if err := r.db.WithContext(ctx).
		Where("rendered_template_id = ?", recordID).
		Order("meta_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	metadata := make(map[string]string, len(rows))
	for _, row := range rows {
		metadata[row.MetaKey] = row.MetaValue
	}
	return metadata, nil
}

// Delete deletes a record by ID and reports the number of rows removed
func (r *GormRenderedTemplateRepository) Delete(ctx context.Context, id int64) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.RenderedTemplateModel{})
	return result.RowsAffected, result.Error
}

// DeleteMetadata deletes all metadata entries of a record
func (r *GormRenderedTemplateRepository) DeleteMetadata(ctx context.Context, recordID int64) error {
	return r.db.WithContext(ctx).
		Where("rendered_template_id = ?", recordID).
		Delete(&models.RenderedTemplateMetaModel{}).Error
}

// FindExpired returns up to limit records whose expiration date is before
// asOf, oldest expiration first
func (r *GormRenderedTemplateRepository) FindExpired(ctx context.Context, asOf time.Time, limit int) ([]templating.RenderedTemplate, error) {
	var rows []models.RenderedTemplateModel
	query := r.db.WithContext(ctx).
		Where("expiration_date_gmt < ?", asOf.UTC()).
		Order("expiration_date_gmt ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]templating.RenderedTemplate, len(rows))
	for i, model := range rows {
		records[i] = *model.ToDomain()
	}
	return records, nil
}

// DeleteMetadataByRecordIDs deletes the metadata entries of several records
func (r *GormRenderedTemplateRepository) DeleteMetadataByRecordIDs(ctx context.Context, recordIDs []int64) error {
	if len(recordIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("rendered_template_id IN ?", recordIDs).
		Delete(&models.RenderedTemplateMetaModel{}).Error
}

// DeleteByIDs deletes several records and reports the number of rows removed
func (r *GormRenderedTemplateRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.RenderedTemplateModel{})
	return result.RowsAffected, result.Error
}

// Ensure GormRenderedTemplateRepository implements the interface
var _ templating.RenderedTemplateRepository = (*GormRenderedTemplateRepository)(nil)
