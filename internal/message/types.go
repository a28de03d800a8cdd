package message

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/sanspareilsmyn/profilelens/internal/value"
)

// DynamicMessage represents a telemetry message with arbitrary key-value pairs,
// typically parsed from JSON. It can be used directly as expression variables.
type DynamicMessage map[string]interface{}

// Lookup returns a field as a value. Fields holding types that have no value
// representation are treated as absent.
func (dm DynamicMessage) Lookup(name string) (value.Value, bool) {
	raw, exists := dm[name]
	if !exists {
		return value.Null(), false
	}
	v, err := value.FromAny(raw)
	if err != nil {
		return value.Null(), false
	}
	return v, true
}

// Names returns the field names in sorted order.
func (dm DynamicMessage) Names() []string {
	names := make([]string, 0, len(dm))
	for k := range dm {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// HasNonNull checks if a key exists and its value is not explicitly null.
func (dm DynamicMessage) HasNonNull(key string) bool {
	val, exists := dm[key]
	return exists && val != nil
}

// TimestampMillis reads an event timestamp in epoch milliseconds. Numeric
// fields are taken as milliseconds; string fields may also be formatted
// dates (see GetTime).
func (dm DynamicMessage) TimestampMillis(key string) (int64, bool) {
	if !dm.HasNonNull(key) {
		return 0, false
	}

	switch v := dm[key].(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		if f, err := v.Float64(); err == nil {
			return floatMillis(f)
		}
		return 0, false
	case float64:
		return floatMillis(v)
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i, true
		}
		if t, ok := dm.GetTime(key); ok {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

func floatMillis(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// GetTime attempts to retrieve a time.Time value for a given key.
// Assumes the timestamp is stored as a string parsable by common formats.
// Returns the time pointer and true if successful, otherwise (nil, false).
func (dm DynamicMessage) GetTime(key string) (*time.Time, bool) {
	if !dm.HasNonNull(key) {
		return nil, false
	}

	timeStr, ok := dm[key].(string)
	if !ok {
		return nil, false
	}

	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05", // no zone, read as UTC
	}

	for _, format := range formats {
		if t, err := time.Parse(format, timeStr); err == nil {
			return &t, true
		}
	}

	return nil, false
}

// FieldSnippet renders a field's value for log context, cut to at most
// maxRunes runes.
func (dm DynamicMessage) FieldSnippet(key string, maxRunes int) string {
	val, exists := dm[key]
	switch {
	case !exists:
		return "<missing>"
	case val == nil:
		return "<null>"
	}

	runes := []rune(fmt.Sprint(val))
	if maxRunes <= 0 {
		return "..."
	}
	if len(runes) > maxRunes {
		return string(runes[:maxRunes]) + "..."
	}
	return string(runes)
}
