package classifier

import (
	"encoding/json"
	"strings"
)

// Result is the decoded classifier object.
type Result map[string]any

// String returns the trimmed string at key, or "" when absent or not a string.
// A list of strings is joined with ", ".
func (r Result) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

// StringOr returns String(key), or def when that is empty.
func (r Result) StringOr(key, def string) string {
	if s := r.String(key); s != "" {
		return s
	}
	return def
}

// Object returns the nested object at key.
func (r Result) Object(key string) (map[string]any, bool) {
	m, ok := r[key].(map[string]any)
	return m, ok
}

// Clone returns a shallow copy so callers can enrich without touching the original.
func (r Result) Clone() Result {
	out := make(Result, len(r)+8)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// MarshalJSON keeps nil results encoding as {}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(r))
}
