package templating

import (
	"encoding/json"
	"html/template"
	"reflect"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultCurrencySymbol is used by formatMoney when none is configured
const DefaultCurrencySymbol = "$"

var ugcPolicy = bluemonday.UGCPolicy()

// helperFuncs returns the formatting helpers shared by every template file
func helperFuncs(currencySymbol string) template.FuncMap {
	if currencySymbol == "" {
		currencySymbol = DefaultCurrencySymbol
	}

	return template.FuncMap{
		// Money and numbers
		"formatMoney": func(v any) string {
			return formatMoney(currencySymbol, v)
		},
		"formatMoneyRaw": formatMoneyRaw,
		"formatDecimal":  formatDecimal,
		"formatPercent":  formatPercent,

		// Dates
		"formatDate":     formatDate,
		"formatDateTime": formatDateTime,

		// Strings
		"truncate": truncate,
		"padLeft":  padLeft,
		"padRight": padRight,
		"join":     strings.Join,
		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
		"title":    titleCase,
		"trim":     strings.TrimSpace,
		"replace":  strings.ReplaceAll,
		"split":    strings.Split,
		"contains": strings.Contains,

		// Arithmetic
		"add":      add,
		"sub":      sub,
		"mul":      mul,
		"div":      div,
		"mod":      mod,
		"round":    roundFunc,
		"sum":      sum,
		"sumField": sumField,

		// Collections and conditionals
		"dict":     dict,
		"list":     list,
		"first":    first,
		"last":     last,
		"seq":      seq,
		"empty":    empty,
		"default":  defaultFunc,
		"ternary":  ternary,
		"coalesce": coalesce,

		// HTML. safeHTML and safeURL bypass escaping and must only receive
		// trusted content; sanitize is for user supplied rich text.
		"safeHTML": safeHTML,
		"safeURL":  safeURL,
		"sanitize": sanitize,
	}
}

// formatMoney formats a value as currency: 1234.5 -> "$1,234.50"
func formatMoney(symbol string, v any) string {
	raw := formatMoneyRaw(v)
	if strings.HasPrefix(raw, "-") {
		return "-" + symbol + raw[1:]
	}
	return symbol + raw
}

// formatMoneyRaw formats a value with thousand separators and two decimals
func formatMoneyRaw(v any) string {
	d := toDecimal(v)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	intPart, decPart, _ := strings.Cut(d.StringFixed(2), ".")

	var result strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}

	return sign + result.String() + "." + decPart
}

func formatDecimal(v any, precision int) string {
	return toDecimal(v).StringFixed(int32(precision))
}

// formatPercent formats a ratio as a percentage: 0.15 -> "15%"
func formatPercent(v any, precision int) string {
	return toDecimal(v).Mul(decimal.NewFromInt(100)).StringFixed(int32(precision)) + "%"
}

func formatDate(v any) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDateTime(v any) string {
	t := toTime(v)
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

// truncate shortens s to max runes including the suffix
func truncate(s string, max int, suffix ...string) string {
	suf := "..."
	if len(suffix) > 0 {
		suf = suffix[0]
	}
	runes := []rune(s)
	sufRunes := []rune(suf)
	if len(runes) <= max {
		return s
	}
	if max <= len(sufRunes) {
		return string(sufRunes[:max])
	}
	return string(runes[:max-len(sufRunes)]) + suf
}

func padLeft(s string, length int, pad string) string {
	if len(s) >= length || pad == "" {
		return s
	}
	padLen := length - len(s)
	return strings.Repeat(pad, padLen/len(pad)+1)[:padLen] + s
}

func padRight(s string, length int, pad string) string {
	if len(s) >= length || pad == "" {
		return s
	}
	padLen := length - len(s)
	return s + strings.Repeat(pad, padLen/len(pad)+1)[:padLen]
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func add(a, b any) decimal.Decimal {
	return toDecimal(a).Add(toDecimal(b))
}

func sub(a, b any) decimal.Decimal {
	return toDecimal(a).Sub(toDecimal(b))
}

func mul(a, b any) decimal.Decimal {
	return toDecimal(a).Mul(toDecimal(b))
}

func div(a, b any) decimal.Decimal {
	d := toDecimal(b)
	if d.IsZero() {
		return decimal.Zero
	}
	return toDecimal(a).Div(d)
}

func mod(a, b any) decimal.Decimal {
	d := toDecimal(b)
	if d.IsZero() {
		return decimal.Zero
	}
	return toDecimal(a).Mod(d)
}

func roundFunc(v any, places int) decimal.Decimal {
	return toDecimal(v).Round(int32(places))
}

func sum(vals ...any) decimal.Decimal {
	result := decimal.Zero
	for _, v := range vals {
		result = result.Add(toDecimal(v))
	}
	return result
}

// sumField sums a field over a slice of structs or maps:
// {{ sumField .items "total" }}
func sumField(slice any, field string) decimal.Decimal {
	result := decimal.Zero
	rv := reflect.ValueOf(slice)
	if rv.Kind() != reflect.Slice {
		return result
	}
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i)
		for elem.Kind() == reflect.Pointer || elem.Kind() == reflect.Interface {
			elem = elem.Elem()
		}
		var fieldVal reflect.Value
		switch elem.Kind() {
		case reflect.Struct:
			fieldVal = elem.FieldByName(field)
		case reflect.Map:
			fieldVal = elem.MapIndex(reflect.ValueOf(field))
		}
		if fieldVal.IsValid() && fieldVal.CanInterface() {
			result = result.Add(toDecimal(fieldVal.Interface()))
		}
	}
	return result
}

func dict(pairs ...any) map[string]any {
	result := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		if key, ok := pairs[i].(string); ok {
			result[key] = pairs[i+1]
		}
	}
	return result
}

func list(vals ...any) []any {
	return vals
}

func first(v any) any {
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Len() > 0 {
		return rv.Index(0).Interface()
	}
	return nil
}

func last(v any) any {
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Len() > 0 {
		return rv.Index(rv.Len() - 1).Interface()
	}
	return nil
}

// seq returns 0..n-1
func seq(n int) []int {
	if n <= 0 {
		return []int{}
	}
	result := make([]int, n)
	for i := range result {
		result[i] = i
	}
	return result
}

func empty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func defaultFunc(val, def any) any {
	if empty(val) {
		return def
	}
	return val
}

func ternary(condition bool, trueVal, falseVal any) any {
	if condition {
		return trueVal
	}
	return falseVal
}

func coalesce(vals ...any) any {
	for _, v := range vals {
		if !empty(v) {
			return v
		}
	}
	return nil
}

func safeHTML(s string) template.HTML {
	return template.HTML(s)
}

func safeURL(s string) template.URL {
	return template.URL(s)
}

// sanitize strips everything but a safe subset of HTML
func sanitize(s string) template.HTML {
	return template.HTML(ugcPolicy.Sanitize(s))
}

func toDecimal(v any) decimal.Decimal {
	switch val := v.(type) {
	case decimal.Decimal:
		return val
	case *decimal.Decimal:
		if val == nil {
			return decimal.Zero
		}
		return *val
	case int:
		return decimal.NewFromInt(int64(val))
	case int32:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case float32:
		return decimal.NewFromFloat32(val)
	case float64:
		return decimal.NewFromFloat(val)
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

func toTime(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case *time.Time:
		if val == nil {
			return time.Time{}
		}
		return *val
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, val); err == nil {
				return t
			}
		}
	case int64:
		return time.Unix(val, 0).UTC()
	case float64:
		return time.Unix(int64(val), 0).UTC()
	}
	return time.Time{}
}
