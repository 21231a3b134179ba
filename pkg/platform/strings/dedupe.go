// Package strings provides helpers for the sorted, lower-cased string sets
// used by domain policy documents.
package strings

import (
	"slices"
	"strings"
)

// NormalizedSet trims and lower-cases each element, drops empties and
// duplicates, and returns the result sorted.
//
//	NormalizedSet([]string{"  Acme.COM ", "beta.io", "acme.com", ""})
//	// Returns: []string{"acme.com", "beta.io"}
func NormalizedSet(values []string) []string {
	result := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		n := strings.ToLower(strings.TrimSpace(v))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		result = append(result, n)
	}
	slices.Sort(result)
	return result
}

// SetContains reports whether the sorted set holds v.
func SetContains(set []string, v string) bool {
	_, found := slices.BinarySearch(set, v)
	return found
}

// SetAdd inserts v into the sorted set. The second return is false when v was
// already present.
func SetAdd(set []string, v string) ([]string, bool) {
	i, found := slices.BinarySearch(set, v)
	if found {
		return set, false
	}
	return slices.Insert(slices.Clone(set), i, v), true
}

// SetRemove deletes v from the sorted set. The second return is false when v
// was absent.
func SetRemove(set []string, v string) ([]string, bool) {
	i, found := slices.BinarySearch(set, v)
	if !found {
		return set, false
	}
	return slices.Delete(slices.Clone(set), i, i+1), true
}
