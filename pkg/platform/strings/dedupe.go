// Package strings holds small helpers for list-valued settings.
package strings

import "strings"

// DedupeAndTrim trims each entry and drops blanks and repeats, keeping the
// first occurrence. Comparison is case sensitive, so "Hub" and "hub" are
// distinct container types.
//
//	DedupeAndTrim([]string{" Hub", "Depot", "Hub", ""}) // [Hub Depot]
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
