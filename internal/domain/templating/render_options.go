package templating

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Reserved metadata keys
const (
	MetaExpirationDate    = "expiration_date"
	MetaExpirationSeconds = "expiration_seconds"
	MetaIsPublic          = "is_public"
)

// Accepted expiration_seconds range. The upper bound keeps now+seconds
// representable as a time.Duration.
const (
	MinExpirationSeconds = 60
	MaxExpirationSeconds = math.MaxInt64 / int64(time.Second)
)

// Accepted layouts for string expiration dates, interpreted as UTC when no
// zone is given.
var expirationDateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// RenderOptions holds the validated persistence metadata of a render
type RenderOptions struct {
	ExpiresAt time.Time         // UTC, second precision
	IsPublic  bool              // Defaults to false
	Extra     map[string]string // Remaining caller keys, stored as metadata rows
}

// ParseRenderOptions validates caller supplied metadata. Exactly one of
// expiration_date or expiration_seconds must be present.
func ParseRenderOptions(metadata map[string]any, now time.Time) (*RenderOptions, error) {
	rawDate, hasDate := metadata[MetaExpirationDate]
	rawSeconds, hasSeconds := metadata[MetaExpirationSeconds]

	opts := &RenderOptions{Extra: make(map[string]string)}

	switch {
	case hasDate && hasSeconds:
		return nil, Errorf(ErrCodeInvalidMetadata,
			"The metadata must have either an %s key or an %s key, not both", MetaExpirationDate, MetaExpirationSeconds)
	case hasDate:
		expiresAt, err := parseExpirationDate(rawDate)
		if err != nil {
			return nil, err
		}
		opts.ExpiresAt = expiresAt
	case hasSeconds:
		seconds, ok := toInt64(rawSeconds)
		if !ok || seconds < MinExpirationSeconds {
			return nil, Errorf(ErrCodeInvalidMetadata,
				"%s must be a number and have a minimum value of %d", MetaExpirationSeconds, MinExpirationSeconds)
		}
		if seconds > MaxExpirationSeconds {
			return nil, Errorf(ErrCodeInvalidMetadata,
				"%s must not exceed %d", MetaExpirationSeconds, MaxExpirationSeconds)
		}
		opts.ExpiresAt = NormalizeTime(now.Add(time.Duration(seconds) * time.Second))
	default:
		return nil, Errorf(ErrCodeInvalidMetadata,
			"The metadata must have either an %s key or an %s key", MetaExpirationDate, MetaExpirationSeconds)
	}

	if raw, ok := metadata[MetaIsPublic]; ok {
		opts.IsPublic = toBool(raw)
	}

	for key, value := range metadata {
		switch key {
		case MetaExpirationDate, MetaExpirationSeconds, MetaIsPublic:
			continue
		}
		opts.Extra[key] = stringify(value)
	}

	return opts, nil
}

func parseExpirationDate(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return NormalizeTime(v), nil
	case *time.Time:
		if v != nil {
			return NormalizeTime(*v), nil
		}
	case string:
		trimmed := strings.TrimSpace(v)
		if ts, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return NormalizeTime(time.Unix(ts, 0)), nil
		}
		for _, layout := range expirationDateLayouts {
			if t, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
				return NormalizeTime(t), nil
			}
		}
	default:
		if ts, ok := toInt64(raw); ok {
			return NormalizeTime(time.Unix(ts, 0)), nil
		}
	}
	return time.Time{}, Errorf(ErrCodeInvalidMetadata,
		"%v is not a valid date, expected format: year-month-day hour:minute:second", raw)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uintToInt64(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uintToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return floatToInt64(f)
		}
	case string:
		s := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt64(f)
		}
	}
	return 0, false
}

func uintToInt64(n uint64) (int64, bool) {
	if n > math.MaxInt64 {
		return 0, false
	}
	return int64(n), true
}

// floatToInt64 truncates f and rejects NaN and values outside the int64 range
func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func toBool(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	default:
		n, ok := toInt64(v)
		return ok && n != 0
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case bool:
		if s {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(v)
	}
}
