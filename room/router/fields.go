package router

import (
	"encoding/json"
	"math"
	"strconv"
)

// fields gives best-effort access to a JSON object payload. Missing or
// mistyped fields read as zero values instead of failing the whole payload.
type fields map[string]any

func decodeFields(data json.RawMessage) fields {
	var f map[string]any
	if err := json.Unmarshal(data, &f); err != nil {
		return fields{}
	}
	return f
}

// str returns the first of keys holding a string or a number.
func (f fields) str(keys ...string) string {
	for _, k := range keys {
		if s, ok := scalarString(f[k]); ok && s != "" {
			return s
		}
	}
	return ""
}

// integer returns the first of keys holding an integral number.
func (f fields) integer(keys ...string) (int, bool) {
	for _, k := range keys {
		n, ok := f[k].(float64)
		if !ok || n != math.Trunc(n) || math.IsInf(n, 0) {
			continue
		}
		if n > math.MaxInt32 || n < math.MinInt32 {
			continue
		}
		return int(n), true
	}
	return 0, false
}

func (f fields) boolean(key string) bool {
	b, _ := f[key].(bool)
	return b
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

// localIDFrom accepts a bare string or number, or an object with localId.
func localIDFrom(data json.RawMessage) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return ""
	}
	if s, ok := scalarString(v); ok {
		return s
	}
	if m, ok := v.(map[string]any); ok {
		return fields(m).str("localId", "id")
	}
	return ""
}
