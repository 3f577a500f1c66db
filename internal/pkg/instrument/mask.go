package instrument

import (
	"encoding/json"
	"strings"
)

// Masked replaces the value of every masked field.
const Masked = "***"

// MaskKeys is a case-insensitive set of field names whose values are redacted.
type MaskKeys map[string]struct{}

// NewMaskKeys normalises fields into a MaskKeys set, skipping blanks.
func NewMaskKeys(fields []string) MaskKeys {
	keys := make(MaskKeys, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(strings.ToLower(field))
		if field == "" {
			continue
		}
		keys[field] = struct{}{}
	}
	return keys
}

// Has reports whether key is masked.
func (m MaskKeys) Has(key string) bool {
	_, ok := m[strings.ToLower(key)]
	return ok
}

// Mask walks decoded JSON (maps and slices) and redacts masked keys at any depth.
func (m MaskKeys) Mask(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			if m.Has(k) {
				out[k] = Masked
				continue
			}
			out[k] = m.Mask(v2)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			if m.Has(k) {
				out[k] = Masked
				continue
			}
			out[k] = v2
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v2 := range val {
			out[i] = m.Mask(v2)
		}
		return out
	default:
		return v
	}
}

// MaskJSON redacts a JSON document. ok is false when payload is not a JSON
// object or array.
func (m MaskKeys) MaskJSON(payload []byte) (masked string, ok bool) {
	if len(payload) == 0 || (payload[0] != '{' && payload[0] != '[') {
		return "", false
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return "", false
	}

	out, err := json.Marshal(m.Mask(doc))
	if err != nil {
		return "", false
	}

	return string(out), true
}
