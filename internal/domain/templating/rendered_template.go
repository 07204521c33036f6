package templating

import (
	"time"
)

// PeriodLayout is the layout of the per-month directory rendered files live in
const PeriodLayout = "2006-01"

// RenderedTemplate is a registry entry for a rendered file persisted to disk
type RenderedTemplate struct {
	ID             int64
	FileName       string    // Generated token, possibly rewritten by a FileNameFilter
	DateCreated    time.Time // UTC
	ExpirationDate time.Time // UTC
	IsPublic       bool
	Metadata       map[string]string // Nil unless loaded
}

// NewRenderedTemplate creates a registry entry for a file created at createdAt
func NewRenderedTemplate(fileName string, createdAt time.Time, opts *RenderOptions) *RenderedTemplate {
	return &RenderedTemplate{
		FileName:       fileName,
		DateCreated:    NormalizeTime(createdAt),
		ExpirationDate: opts.ExpiresAt,
		IsPublic:       opts.IsPublic,
	}
}

// HasExpired reports whether the expiration date is strictly before now
func (t *RenderedTemplate) HasExpired(now time.Time) bool {
	return t.ExpirationDate.Before(now)
}

// Period returns the YYYY-MM directory name the file is stored under
func (t *RenderedTemplate) Period() string {
	return PeriodOf(t.DateCreated)
}

// PeriodOf returns the YYYY-MM directory name for a creation time
func PeriodOf(createdAt time.Time) string {
	return createdAt.UTC().Format(PeriodLayout)
}

// NormalizeTime converts t to UTC with second precision, the precision the
// registry stores.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
