// Package redact masks sensitive values in arbitrary JSON structures before
// they are returned to callers. The key pattern lives here and nowhere else;
// adding a new sensitive field name is a one-place change. Stored data is
// never mutated — redaction happens only on the read path.
package redact

import "regexp"

// Mask replaces the value of any key matching the sensitive pattern
const Mask = "[REDACTED]"

var sensitiveKey = regexp.MustCompile(`(?i)password|token|refresh|secret|login`)

// SensitiveKey reports whether an object key names a sensitive field
func SensitiveKey(key string) bool {
	return sensitiveKey.MatchString(key)
}

// Value walks an unmarshalled JSON value and returns a copy with every
// sensitive key's value replaced by Mask at any nesting depth. Structure and
// non-matching leaves are untouched; the operation is idempotent.
func Value(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return Map(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = Value(item)
		}
		return out
	default:
		return v
	}
}

// Map redacts a JSON object, recursing into nested objects and arrays
func Map(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if SensitiveKey(k) {
			out[k] = Mask
			continue
		}
		out[k] = Value(v)
	}
	return out
}
