// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
//   - rendered_template.go: rendered_templates and rendered_templates_meta
package models
