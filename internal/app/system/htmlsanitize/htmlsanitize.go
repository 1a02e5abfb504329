// Package htmlsanitize strips markup from user-authored text.
//
// Messages, names and descriptions are stored as plain text; clients render
// them as text. Markup is removed with bluemonday's strict policy and the
// escaped entities it produces are decoded again.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes all tags (dropping script and style bodies) and trims
// the result.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// PlainTexts applies PlainText to each element and drops empty results.
func PlainTexts(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = PlainText(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
