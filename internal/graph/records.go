package graph

import "time"

// Typed accessors for the map records returned by the gateway. The driver
// hands back interface values; these helpers centralize the type switches so
// repositories stay flat. Missing keys and wrong types yield zero values.

// StringValue returns the string stored under key, or "".
func StringValue(record map[string]any, key string) string {
	if v, ok := record[key].(string); ok {
		return v
	}
	return ""
}

// Int64Value returns the integer stored under key, or 0.
func Int64Value(record map[string]any, key string) int64 {
	switch v := record[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// TimeValue returns the timestamp stored under key, or the zero time. Neo4j
// temporal values arrive as time.Time from the driver; string timestamps are
// parsed as RFC 3339 for properties written by other clients.
func TimeValue(record map[string]any, key string) time.Time {
	switch v := record[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// TimePtrValue returns the timestamp stored under key, or nil when absent.
func TimePtrValue(record map[string]any, key string) *time.Time {
	t := TimeValue(record, key)
	if t.IsZero() {
		return nil
	}
	return &t
}

// StringSliceValue returns the list of strings stored under key. Collected
// values arrive as []any from the driver; non-string elements are skipped.
func StringSliceValue(record map[string]any, key string) []string {
	raw, ok := record[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
