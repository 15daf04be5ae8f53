package outfilter

import "strings"

// sensitiveKeySubstrings mark a JSON key whose value is redacted wholesale,
// whatever its type or content.
var sensitiveKeySubstrings = []string{
	"password", "token", "secret", "key", "credential", "auth", "cookie", "session",
}

const redactedValue = "[REDACTED]"

// FilterJSON walks decoded JSON (maps, slices, scalars) and redacts it.
// Values under sensitive-named keys are replaced wholesale; other leaf
// strings go through the text filter. Returns the filtered structure and
// every leak found along the way.
func (f *Filter) FilterJSON(v any) (any, []Leak) {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		var leaks []Leak
		for k, inner := range val {
			if sensitiveKey(k) {
				out[k] = redactedValue
				leaks = append(leaks, Leak{Type: "sensitive_key: " + k, Severity: SeverityCritical})
				continue
			}
			filtered, innerLeaks := f.FilterJSON(inner)
			out[k] = filtered
			leaks = append(leaks, innerLeaks...)
		}
		return out, leaks

	case []any:
		out := make([]any, len(val))
		var leaks []Leak
		for i, inner := range val {
			filtered, innerLeaks := f.FilterJSON(inner)
			out[i] = filtered
			leaks = append(leaks, innerLeaks...)
		}
		return out, leaks

	case string:
		res := f.Filter(val)
		return res.Filtered, res.Leaks

	default:
		// Numbers, bools, nil: nothing to scan.
		return v, nil
	}
}

func sensitiveKey(key string) bool {
	lowered := strings.ToLower(key)
	for _, s := range sensitiveKeySubstrings {
		if strings.Contains(lowered, s) {
			return true
		}
	}
	return false
}
