// Package normalize cleans user-supplied strings before they are stored or
// compared.
package normalize

import "strings"

// Email trims and lower-cases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses inner runs of whitespace.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// QueryParam trims a search term. Case is preserved.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// ID trims an external identifier (uid, book id, hex ObjectID).
func ID(s string) string {
	return strings.TrimSpace(s)
}

// Tags trims each tag, drops blanks and removes case-insensitive duplicates,
// keeping the first spelling seen. Returns a non-nil slice.
func Tags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = Name(t)
		if t == "" {
			continue
		}
		k := strings.ToLower(t)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}
