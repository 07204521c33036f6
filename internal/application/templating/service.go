package templating

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"maps"
	"time"

	"github.com/alexclassroom/woocommerce/internal/domain/shared"
	domain "github.com/alexclassroom/woocommerce/internal/domain/templating"
	infra "github.com/alexclassroom/woocommerce/internal/infrastructure/templating"
	"github.com/alexclassroom/woocommerce/internal/infrastructure/logger"
	"github.com/alexclassroom/woocommerce/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultSweepLimit is the batch size used when SweepExpired gets a non-positive limit
const DefaultSweepLimit = 1000

const tokenBytes = 16

// Renderer renders templates by name
type Renderer interface {
	RenderString(ctx context.Context, name string, variables map[string]any) (string, error)
	RenderToSink(ctx context.Context, name string, variables map[string]any, sink infra.Sink) error
}

// FileStore keeps rendered files under per-month directories
type FileStore interface {
	Create(ctx context.Context, createdAt time.Time, fileName string) (*infra.FileSink, error)
	Path(createdAt time.Time, fileName string) (string, error)
	Open(createdAt time.Time, fileName string) (io.ReadCloser, error)
	Remove(createdAt time.Time, fileName string) error
}

// ServiceOption configures a TemplatingService
type ServiceOption func(*TemplatingService)

// WithClock replaces the time source
func WithClock(now func() time.Time) ServiceOption {
	return func(s *TemplatingService) {
		s.now = now
	}
}

// WithTokenGenerator replaces the rendered file name generator
func WithTokenGenerator(gen func() (string, error)) ServiceOption {
	return func(s *TemplatingService) {
		s.newToken = gen
	}
}

// WithMetrics records render, delete and sweep counters
func WithMetrics(metrics *telemetry.TemplatingMetrics) ServiceOption {
	return func(s *TemplatingService) {
		s.metrics = metrics
	}
}

// TemplatingService renders templates and manages the rendered file registry
type TemplatingService struct {
	renderer Renderer
	store    FileStore
	repo     domain.RenderedTemplateRepository
	hooks    domain.Hooks
	logger   *zap.Logger
	metrics  *telemetry.TemplatingMetrics
	now      func() time.Time
	newToken func() (string, error)
}

// NewTemplatingService creates a new TemplatingService
func NewTemplatingService(
	renderer Renderer,
	store FileStore,
	repo domain.RenderedTemplateRepository,
	hooks domain.Hooks,
	logger *zap.Logger,
	opts ...ServiceOption,
) *TemplatingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &TemplatingService{
		renderer: renderer,
		store:    store,
		repo:     repo,
		hooks:    hooks,
		logger:   logger,
		now:      time.Now,
		newToken: GenerateToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateToken returns 16 random bytes as 32 lowercase hex characters
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Render renders a template. With nil metadata the output is returned and
// nothing is written. Otherwise the output is stored as a rendered file,
// registered in the database together with the extra metadata, and the
// generated file name is returned.
func (s *TemplatingService) Render(ctx context.Context, name string, variables, metadata map[string]any) (string, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "templating", "render",
		telemetry.WithAttribute(telemetry.SpanAttrTemplateName, name),
		telemetry.WithAttribute(telemetry.SpanAttrPersisted, metadata != nil),
	)
	defer span.End()

	start := time.Now()
	if metadata == nil {
		output, err := s.renderer.RenderString(ctx, name, variables)
		s.metrics.RecordRender(ctx, telemetry.RenderModeInMemory, time.Since(start), metricResult(err))
		if err != nil {
			telemetry.RecordError(span, err)
			return "", err
		}
		return output, nil
	}

	fileName, err := s.renderToFile(ctx, name, variables, metadata)
	s.metrics.RecordRender(ctx, telemetry.RenderModePersisted, time.Since(start), metricResult(err))
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrFileName, fileName)
	return fileName, nil
}

// metricResult labels an outcome by its templating error code
func metricResult(err error) string {
	if err == nil {
		return telemetry.ResultSuccess
	}
	if code := domain.CodeOf(err); code != "" {
		return code
	}
	return "UNKNOWN"
}

func (s *TemplatingService) renderToFile(ctx context.Context, name string, variables, metadata map[string]any) (string, error) {
	log := logger.L(ctx, s.logger)

	filtered := s.hooks.FilterMetadata(maps.Clone(metadata), name, variables)
	now := s.now()
	opts, err := domain.ParseRenderOptions(filtered, now)
	if err != nil {
		return "", err
	}

	token, err := s.newToken()
	if err != nil {
		return "", domain.NewError(domain.ErrCodeStorageFailed, "failed to generate rendered file name", err)
	}
	fileName := s.hooks.FilterFileName(token, name, variables, opts.Extra)

	record := domain.NewRenderedTemplate(fileName, now, opts)

	sink, err := s.store.Create(ctx, record.DateCreated, fileName)
	if err != nil {
		return "", err
	}
	if err := s.renderer.RenderToSink(ctx, name, variables, sink); err != nil {
		return "", err
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.removeFile(log, record)
		return "", domain.NewError(domain.ErrCodeStorageFailed, "Error inserting rendered template info in the database", err)
	}

	if len(opts.Extra) > 0 {
		if err := s.repo.CreateMetadata(ctx, record.ID, opts.Extra); err != nil {
			if _, delErr := s.repo.Delete(ctx, record.ID); delErr != nil {
				log.Error("Failed to roll back rendered template record",
					zap.Int64("id", record.ID),
					zap.Error(delErr),
				)
			}
			s.removeFile(log, record)
			return "", domain.NewError(domain.ErrCodeStorageFailed, "Error inserting rendered template info in the database", err)
		}
	}

	log.Info("Template rendered to file",
		zap.String("template", name),
		zap.String("file_name", fileName),
		zap.Int64("id", record.ID),
		zap.Time("expiration_date_gmt", record.ExpirationDate),
		zap.Bool("is_public", record.IsPublic),
	)
	return fileName, nil
}

// GetByID returns the rendered file with the given id, or nil when there is none
func (s *TemplatingService) GetByID(ctx context.Context, id int64, includeMetadata bool) (*RenderedFile, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "templating", "get_by_id",
		telemetry.WithAttribute(telemetry.SpanAttrRecordID, id))
	defer span.End()

	record, err := s.repo.FindByID(ctx, id)
	file, err := s.toRenderedFile(ctx, record, err, includeMetadata)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return file, err
}

// GetByName returns the rendered file with the given file name, or nil when there is none
func (s *TemplatingService) GetByName(ctx context.Context, name string, includeMetadata bool) (*RenderedFile, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "templating", "get_by_name",
		telemetry.WithAttribute(telemetry.SpanAttrFileName, name))
	defer span.End()

	record, err := s.repo.FindByFileName(ctx, name)
	file, err := s.toRenderedFile(ctx, record, err, includeMetadata)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return file, err
}

func (s *TemplatingService) toRenderedFile(ctx context.Context, record *domain.RenderedTemplate, findErr error, includeMetadata bool) (*RenderedFile, error) {
	if findErr != nil {
		if errors.Is(findErr, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, domain.NewError(domain.ErrCodeStorageFailed, "Error reading rendered template info from the database", findErr)
	}

	path, err := s.store.Path(record.DateCreated, record.FileName)
	if err != nil {
		return nil, err
	}

	file := &RenderedFile{
		ID:                record.ID,
		FileName:          record.FileName,
		FilePath:          path,
		DateCreatedGMT:    record.DateCreated,
		ExpirationDateGMT: record.ExpirationDate,
		IsPublic:          record.IsPublic,
		HasExpired:        record.HasExpired(s.now()),
	}

	if includeMetadata {
		metadata, err := s.repo.FindMetadata(ctx, record.ID)
		if err != nil {
			return nil, domain.NewError(domain.ErrCodeStorageFailed,
				fmt.Sprintf("Error reading metadata for template with id %d", record.ID), err)
		}
		file.Metadata = metadata
	}
	return file, nil
}

// OpenPublic opens a public, unexpired rendered file for download.
// Files that are missing, private or expired yield shared.ErrNotFound.
func (s *TemplatingService) OpenPublic(ctx context.Context, name string) (*RenderedFile, io.ReadCloser, error) {
	file, err := s.GetByName(ctx, name, false)
	if err != nil {
		return nil, nil, err
	}
	if file == nil || !file.IsPublic || file.HasExpired {
		return nil, nil, shared.ErrNotFound
	}

	rc, err := s.store.Open(file.DateCreatedGMT, file.FileName)
	if err != nil {
		return nil, nil, err
	}
	return file, rc, nil
}

// DeleteByID deletes a rendered file, its metadata and its backing file.
// It reports false when no record has the given id.
func (s *TemplatingService) DeleteByID(ctx context.Context, id int64) (bool, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "templating", "delete_by_id",
		telemetry.WithAttribute(telemetry.SpanAttrRecordID, id))
	defer span.End()

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		err = domain.NewError(domain.ErrCodeStorageFailed, fmt.Sprintf("Error deleting template with id %d", id), err)
		telemetry.RecordError(span, err)
		return false, err
	}

	deleted, err := s.deleteRecord(ctx, record)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return deleted, err
}

// DeleteByName deletes the rendered file with the given file name.
// It reports false when no record has that name.
func (s *TemplatingService) DeleteByName(ctx context.Context, name string) (bool, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "templating", "delete_by_name",
		telemetry.WithAttribute(telemetry.SpanAttrFileName, name))
	defer span.End()

	record, err := s.repo.FindByFileName(ctx, name)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		err = domain.NewError(domain.ErrCodeStorageFailed, "Error deleting template "+name, err)
		telemetry.RecordError(span, err)
		return false, err
	}

	deleted, err := s.deleteRecord(ctx, record)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return deleted, err
}

func (s *TemplatingService) deleteRecord(ctx context.Context, record *domain.RenderedTemplate) (bool, error) {
	if err := s.repo.DeleteMetadata(ctx, record.ID); err != nil {
		return false, domain.NewError(domain.ErrCodeStorageFailed,
			fmt.Sprintf("Error deleting metadata for template with id %d", record.ID), err)
	}

	affected, err := s.repo.Delete(ctx, record.ID)
	if err != nil {
		return false, domain.NewError(domain.ErrCodeStorageFailed,
			fmt.Sprintf("Error deleting template with id %d", record.ID), err)
	}

	s.metrics.RecordDeleted(ctx, telemetry.DeleteReasonExplicit, affected)

	log := logger.L(ctx, s.logger)
	s.removeFile(log, record)
	log.Info("Rendered file deleted",
		zap.Int64("id", record.ID),
		zap.String("file_name", record.FileName),
	)
	return affected > 0, nil
}

// SweepExpired deletes up to limit rendered files whose expiration date is
// before asOf, oldest first, and returns how many records were removed.
// A zero asOf means now and a non-positive limit means DefaultSweepLimit.
func (s *TemplatingService) SweepExpired(ctx context.Context, asOf time.Time, limit int) (int64, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	asOf = domain.NormalizeTime(asOf)
	if limit <= 0 {
		limit = DefaultSweepLimit
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "templating", "sweep_expired",
		telemetry.WithAttribute(telemetry.SpanAttrSweepAsOf, asOf.Format(time.RFC3339)),
		telemetry.WithAttribute(telemetry.SpanAttrSweepLimit, limit),
	)
	defer span.End()

	deleted, err := s.sweep(ctx, asOf, limit)
	s.metrics.RecordSweep(ctx, metricResult(err))
	s.metrics.RecordDeleted(ctx, telemetry.DeleteReasonExpired, deleted)
	if err != nil {
		telemetry.RecordError(span, err)
		return deleted, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrSweepDeleted, deleted)
	return deleted, nil
}

func (s *TemplatingService) sweep(ctx context.Context, asOf time.Time, limit int) (int64, error) {
	stamp := asOf.Format(time.DateTime)

	records, err := s.repo.FindExpired(ctx, asOf, limit)
	if err != nil {
		return 0, domain.NewError(domain.ErrCodeStorageFailed,
			fmt.Sprintf("Error selecting templates expired as of %s GMT", stamp), err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(records))
	for i, record := range records {
		ids[i] = record.ID
	}

	if err := s.repo.DeleteMetadataByRecordIDs(ctx, ids); err != nil {
		return 0, domain.NewError(domain.ErrCodeStorageFailed,
			fmt.Sprintf("Error deleting metadata for templates expired as of %s GMT", stamp), err)
	}
	deleted, err := s.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, domain.NewError(domain.ErrCodeStorageFailed,
			fmt.Sprintf("Error deleting templates expired as of %s GMT", stamp), err)
	}

	log := logger.L(ctx, s.logger)
	for i := range records {
		s.removeFile(log, &records[i])
	}
	log.Info("Expired rendered templates deleted",
		zap.Int64("deleted", deleted),
		zap.String("as_of", stamp),
		zap.Int("limit", limit),
	)
	return deleted, nil
}

// removeFile deletes the backing file of a record. Failures are logged only.
func (s *TemplatingService) removeFile(log *zap.Logger, record *domain.RenderedTemplate) {
	if err := s.store.Remove(record.DateCreated, record.FileName); err != nil {
		log.Warn("Failed to remove rendered file",
			zap.Int64("id", record.ID),
			zap.String("file_name", record.FileName),
			zap.Error(err),
		)
	}
}
