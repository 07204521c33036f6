package models

import (
	"time"

	"github.com/alexclassroom/woocommerce/internal/domain/templating"
)

// RenderedTemplateModel is the GORM model for rendered_templates table
type RenderedTemplateModel struct {
	ID                int64     `gorm:"primaryKey;autoIncrement"`
	FileName          string    `gorm:"column:file_name;type:varchar(64);not null;uniqueIndex:uq_rendered_templates_file_name"`
	DateCreatedGMT    time.Time `gorm:"column:date_created_gmt;not null"`
	ExpirationDateGMT time.Time `gorm:"column:expiration_date_gmt;not null;index:idx_rendered_templates_expiration_date_gmt"`
	IsPublic          bool      `gorm:"column:is_public;not null;default:false"`
}

// TableName returns the table name for RenderedTemplateModel
func (RenderedTemplateModel) TableName() string {
	return "rendered_templates"
}

// ToDomain converts RenderedTemplateModel to domain RenderedTemplate.
// Metadata is left nil.
func (m *RenderedTemplateModel) ToDomain() *templating.RenderedTemplate {
	return &templating.RenderedTemplate{
		ID:             m.ID,
		FileName:       m.FileName,
		DateCreated:    m.DateCreatedGMT.UTC(),
		ExpirationDate: m.ExpirationDateGMT.UTC(),
		IsPublic:       m.IsPublic,
	}
}

// RenderedTemplateModelFromDomain creates a RenderedTemplateModel from domain RenderedTemplate
func RenderedTemplateModelFromDomain(t *templating.RenderedTemplate) *RenderedTemplateModel {
	return &RenderedTemplateModel{
		ID:                t.ID,
		FileName:          t.FileName,
		DateCreatedGMT:    templating.NormalizeTime(t.DateCreated),
		ExpirationDateGMT: templating.NormalizeTime(t.ExpirationDate),
		IsPublic:          t.IsPublic,
	}
}

// RenderedTemplateMetaModel is the GORM model for rendered_templates_meta table
type RenderedTemplateMetaModel struct {
	MetaID             int64  `gorm:"column:meta_id;primaryKey;autoIncrement"`
	RenderedTemplateID int64  `gorm:"column:rendered_template_id;not null;index:idx_rendered_templates_meta_rendered_template_id"`
	MetaKey            string `gorm:"column:meta_key;type:varchar(255);not null"`
	MetaValue          string `gorm:"column:meta_value;type:text"`
}

// TableName returns the table name for RenderedTemplateMetaModel
func (RenderedTemplateMetaModel) TableName() string {
	return "rendered_templates_meta"
}

// RenderedTemplateMetaModelsFromMap builds one row per metadata entry
func RenderedTemplateMetaModelsFromMap(recordID int64, metadata map[string]string) []RenderedTemplateMetaModel {
	rows := make([]RenderedTemplateMetaModel, 0, len(metadata))
	for key, value := range metadata {
		rows = append(rows, RenderedTemplateMetaModel{
			RenderedTemplateID: recordID,
			MetaKey:            key,
			MetaValue:          value,
		})
	}
	return rows
}
