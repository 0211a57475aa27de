package domain

import "fmt"

// FlatMetadata is a flat string-keyed map whose values are constrained to
// scalar (string | int | float64 | bool) or []string. Nested maps and
// arrays-of-non-strings are forbidden by construction: every setter either
// accepts one of the allowed shapes or stringifies it.
type FlatMetadata map[string]any

// NewFlatMetadata returns an empty, ready-to-populate metadata map.
func NewFlatMetadata() FlatMetadata {
	return make(FlatMetadata)
}

// SetString sets a string value, dropping the key if s is empty — per the
// spec's "drop keys whose value is empty string" rule.
func (m FlatMetadata) SetString(key, s string) {
	if s == "" {
		return
	}
	m[key] = s
}

// SetBool sets a boolean value verbatim. Booleans are never stringified and
// are never dropped, even when false.
func (m FlatMetadata) SetBool(key string, b bool) {
	m[key] = b
}

// SetInt sets an integer value.
func (m FlatMetadata) SetInt(key string, n int) {
	m[key] = n
}

// SetFloat sets a float value.
func (m FlatMetadata) SetFloat(key string, f float64) {
	m[key] = f
}

// SetStringList sets a []string value, dropping the key if the list is
// empty.
func (m FlatMetadata) SetStringList(key string, vals []string) {
	if len(vals) == 0 {
		return
	}
	cp := make([]string, len(vals))
	copy(cp, vals)
	m[key] = cp
}

// Merge copies every key from other into m, overwriting on collision. The
// last writer wins, matching the adapter's merge order (chunk metadata,
// then landmark metadata, then required/derived fields).
func (m FlatMetadata) Merge(other FlatMetadata) {
	for k, v := range other {
		m[k] = v
	}
}

// Clone returns a shallow copy safe to mutate independently of m.
func (m FlatMetadata) Clone() FlatMetadata {
	cp := make(FlatMetadata, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Validate checks that every value is one of the allowed scalar/list shapes
// — the "metadata is a flat mapping" invariant enforced at the boundary
// before a record is ever handed to the vector store.
func (m FlatMetadata) Validate() error {
	for k, v := range m {
		switch vv := v.(type) {
		case string, int, int64, float64, bool:
			// scalar, fine
		case []string:
			// list of strings, fine
		case []any:
			for _, e := range vv {
				if _, ok := e.(string); !ok {
					return fmt.Errorf("metadata key %q: list contains non-string element %T", k, e)
				}
			}
		default:
			return fmt.Errorf("metadata key %q: unsupported value type %T (nested maps/objects are forbidden)", k, v)
		}
	}
	return nil
}

// RequiredKeysPresent reports whether every key in required is present
// (non-missing; a present-but-empty value was already dropped at write
// time and so counts as missing).
func (m FlatMetadata) RequiredKeysPresent(required []string) []string {
	var missing []string
	for _, k := range required {
		if _, ok := m[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

// StringsToAPI renders every value for API output: booleans and strings are
// preserved, []string values are copied as a string list, and everything
// else is stringified.
func (m FlatMetadata) StringsToAPI() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch vv := v.(type) {
		case bool:
			out[k] = vv
		case []string:
			cp := make([]string, len(vv))
			copy(cp, vv)
			out[k] = cp
		case string:
			out[k] = vv
		default:
			out[k] = fmt.Sprintf("%v", vv)
		}
	}
	return out
}

// RequiredKeysShared are the metadata keys every record must carry;
// RequiredKeysWikipedia are the additional keys a Wikipedia record must carry.
var (
	RequiredKeysShared = []string{
		"landmark_id", "source_type", "chunk_index", "total_chunks",
		"processing_date", "text",
	}
	RequiredKeysWikipedia = []string{
		"article_title", "article_url", "article_revision_id",
	}
)
