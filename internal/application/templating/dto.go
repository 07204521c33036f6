package templating

import "time"

// RenderRequest represents a request to render a template
type RenderRequest struct {
	Template  string         `json:"template" binding:"required,min=1,max=255"`
	Variables map[string]any `json:"variables"`
	// Metadata switches to a persisted render when present
	Metadata map[string]any `json:"metadata"`
}

// RenderResponse carries the output of an in-memory render or the file
// name of a persisted one
type RenderResponse struct {
	Output   *string `json:"output,omitempty"`
	FileName *string `json:"file_name,omitempty"`
}

// SweepRequest represents a request to delete expired rendered files
type SweepRequest struct {
	AsOf  *time.Time `json:"as_of"`
	Limit int        `json:"limit" binding:"omitempty,min=1,max=10000"`
}

// SweepResponse reports how many rendered files were deleted
type SweepResponse struct {
	Deleted int64      `json:"deleted"`
	AsOf    *time.Time `json:"as_of,omitempty"` // Echoes the request; absent means now
}

// RenderedFile is the external view of a rendered file registry entry
type RenderedFile struct {
	ID                int64             `json:"id"`
	FileName          string            `json:"file_name"`
	FilePath          string            `json:"file_path"`
	DateCreatedGMT    time.Time         `json:"date_created_gmt"`
	ExpirationDateGMT time.Time         `json:"expiration_date_gmt"`
	IsPublic          bool              `json:"is_public"`
	HasExpired        bool              `json:"has_expired"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}
