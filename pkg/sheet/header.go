package sheet

import "strings"

// Normalize folds a header name so that "Trip ID", "trip_id" and "TRIP  ID"
// compare equal: lower-cased, trimmed, underscores as spaces and inner
// whitespace collapsed.
func Normalize(name string) string {
	raw := strings.TrimSpace(strings.ToLower(name))
	raw = strings.ReplaceAll(raw, "_", " ")
	return strings.Join(strings.Fields(raw), " ")
}

// BuildIndex maps every non-empty normalized header to its column. When two
// headers normalize to the same name the later column wins.
func BuildIndex(headers []string) map[string]int {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if n := Normalize(h); n != "" {
			index[n] = i
		}
	}
	return index
}

// Resolve returns the column of the first candidate present in index.
func Resolve(index map[string]int, candidates []string) (int, bool) {
	for _, c := range candidates {
		if i, ok := index[Normalize(c)]; ok {
			return i, true
		}
	}
	return -1, false
}
