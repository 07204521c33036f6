package templating

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRenderOptions(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		metadata    map[string]any
		expectError bool
		wantExpires time.Time
		wantPublic  bool
		wantExtra   map[string]string
	}{
		{
			name:        "expiration seconds",
			metadata:    map[string]any{"expiration_seconds": 3600},
			wantExpires: now.Add(time.Hour),
			wantExtra:   map[string]string{},
		},
		{
			name:        "expiration seconds as numeric string",
			metadata:    map[string]any{"expiration_seconds": "120"},
			wantExpires: now.Add(2 * time.Minute),
			wantExtra:   map[string]string{},
		},
		{
			name:        "expiration seconds as json number",
			metadata:    map[string]any{"expiration_seconds": json.Number("60")},
			wantExpires: now.Add(time.Minute),
			wantExtra:   map[string]string{},
		},
		{
			name:        "expiration seconds below minimum",
			metadata:    map[string]any{"expiration_seconds": 59},
			expectError: true,
		},
		{
			name:        "expiration seconds not a number",
			metadata:    map[string]any{"expiration_seconds": "soon"},
			expectError: true,
		},
		{
			name:        "expiration seconds at maximum",
			metadata:    map[string]any{"expiration_seconds": MaxExpirationSeconds},
			wantExpires: now.Add(time.Duration(MaxExpirationSeconds) * time.Second),
			wantExtra:   map[string]string{},
		},
		{
			name:        "expiration seconds overflowing a duration",
			metadata:    map[string]any{"expiration_seconds": int64(10_000_000_000)},
			expectError: true,
		},
		{
			name:        "expiration seconds as huge float",
			metadata:    map[string]any{"expiration_seconds": 1e19},
			expectError: true,
		},
		{
			name:        "expiration seconds beyond int64 as uint64",
			metadata:    map[string]any{"expiration_seconds": uint64(math.MaxUint64)},
			expectError: true,
		},
		{
			name:        "expiration seconds as huge numeric string",
			metadata:    map[string]any{"expiration_seconds": "99999999999999999999"},
			expectError: true,
		},
		{
			name:        "expiration date string",
			metadata:    map[string]any{"expiration_date": "2024-12-31 23:59:59"},
			wantExpires: time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC),
			wantExtra:   map[string]string{},
		},
		{
			name:        "expiration date unix timestamp",
			metadata:    map[string]any{"expiration_date": int64(1735689599)},
			wantExpires: time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC),
			wantExtra:   map[string]string{},
		},
		{
			name:        "expiration date time value is normalized",
			metadata:    map[string]any{"expiration_date": time.Date(2025, 1, 1, 8, 0, 0, 500, time.FixedZone("CST", 8*3600))},
			wantExpires: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			wantExtra:   map[string]string{},
		},
		{
			name:        "invalid expiration date",
			metadata:    map[string]any{"expiration_date": "not a date"},
			expectError: true,
		},
		{
			name:        "invalid expiration date type",
			metadata:    map[string]any{"expiration_date": []string{"2024-01-01"}},
			expectError: true,
		},
		{
			name:        "both expiration keys",
			metadata:    map[string]any{"expiration_date": "2024-12-31 23:59:59", "expiration_seconds": 3600},
			expectError: true,
		},
		{
			name:        "no expiration key",
			metadata:    map[string]any{"is_public": true},
			expectError: true,
		},
		{
			name: "public flag and extra metadata",
			metadata: map[string]any{
				"expiration_seconds": 600,
				"is_public":          true,
				"invoice_type":       "final",
				"order_id":           42,
			},
			wantExpires: now.Add(10 * time.Minute),
			wantPublic:  true,
			wantExtra:   map[string]string{"invoice_type": "final", "order_id": "42"},
		},
		{
			name:        "public flag as string",
			metadata:    map[string]any{"expiration_seconds": 600, "is_public": "1"},
			wantExpires: now.Add(10 * time.Minute),
			wantPublic:  true,
			wantExtra:   map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseRenderOptions(tt.metadata, now)
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, IsCode(err, ErrCodeInvalidMetadata))
				assert.Nil(t, opts)
				return
			}

			require.NoError(t, err)
			assert.True(t, tt.wantExpires.Equal(opts.ExpiresAt), "expires %s, want %s", opts.ExpiresAt, tt.wantExpires)
			assert.Equal(t, time.UTC, opts.ExpiresAt.Location())
			assert.Equal(t, tt.wantPublic, opts.IsPublic)
			assert.Equal(t, tt.wantExtra, opts.Extra)
		})
	}
}

func TestRenderedTemplate_HasExpired(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	record := &RenderedTemplate{ExpirationDate: now}

	assert.False(t, record.HasExpired(now))
	assert.True(t, record.HasExpired(now.Add(time.Second)))
	assert.False(t, record.HasExpired(now.Add(-time.Second)))
}

func TestNewRenderedTemplate(t *testing.T) {
	createdAt := time.Date(2024, 3, 31, 23, 30, 0, 999, time.FixedZone("EST", -5*3600))
	opts := &RenderOptions{ExpiresAt: createdAt.Add(time.Hour).UTC(), IsPublic: true}

	record := NewRenderedTemplate("abc", createdAt, opts)

	assert.Equal(t, "abc", record.FileName)
	assert.Equal(t, time.UTC, record.DateCreated.Location())
	assert.Equal(t, 0, record.DateCreated.Nanosecond())
	assert.True(t, record.IsPublic)
	assert.Equal(t, "2024-04", record.Period())
}

func TestHooks_NilIsIdentity(t *testing.T) {
	var hooks Hooks
	metadata := map[string]any{"a": 1}

	assert.Equal(t, metadata, hooks.FilterMetadata(metadata, "t", nil))
	assert.Equal(t, "name", hooks.FilterFileName("name", "t", nil, nil))
	assert.Equal(t, "/p", hooks.FilterTemplatePath("/p", "t", ""))
	assert.Equal(t, "/d", hooks.FilterDirectory("/d"))
}

func TestError_CodeOf(t *testing.T) {
	err := NewError(ErrCodeStorageFailed, "insert failed", assert.AnError)

	assert.Equal(t, ErrCodeStorageFailed, CodeOf(err))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "insert failed")
	assert.Equal(t, "", CodeOf(assert.AnError))
}
