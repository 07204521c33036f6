package templating

import (
	"context"
	"time"
)

// RenderedTemplateRepository defines the interface for rendered template persistence.
// Finders return shared.ErrNotFound when no row matches.
type RenderedTemplateRepository interface {
	// Create inserts the record and sets its ID
	Create(ctx context.Context, record *RenderedTemplate) error

	// CreateMetadata inserts all entries for a record in one statement
	CreateMetadata(ctx context.Context, recordID int64, metadata map[string]string) error

	// FindByID finds a record by ID
	FindByID(ctx context.Context, id int64) (*RenderedTemplate, error)

	// FindByFileName finds a record by file name
	FindByFileName(ctx context.Context, fileName string) (*RenderedTemplate, error)

	// FindMetadata returns all metadata entries of a record
	FindMetadata(ctx context.Context, recordID int64) (map[string]string, error)

	// Delete deletes a record by ID and reports the number of rows removed
	Delete(ctx context.Context, id int64) (int64, error)

	// DeleteMetadata deletes all metadata entries of a record
	DeleteMetadata(ctx context.Context, recordID int64) error

	// FindExpired returns up to limit records whose expiration date is before
	// asOf, oldest expiration first
	FindExpired(ctx context.Context, asOf time.Time, limit int) ([]RenderedTemplate, error)

	// DeleteMetadataByRecordIDs deletes the metadata entries of several records
	DeleteMetadataByRecordIDs(ctx context.Context, recordIDs []int64) error

	// DeleteByIDs deletes several records and reports the number of rows removed
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
}
