// internal/app/system/search/search.go
package search

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Contains matches term literally and case-insensitively anywhere in a
// string field. Regex metacharacters in term have no special meaning.
func Contains(term string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}
}

// LooksLikeEmail reports whether a user search is clearly by email, in
// which case results are better ordered by email than by name.
//
//	sortField := "name_ci"
//	if search.LooksLikeEmail(term) {
//	    sortField = "email"
//	}
func LooksLikeEmail(term string) bool {
	return strings.Contains(term, "@")
}

// UserSortField returns the field a user search should sort on.
func UserSortField(term string) string {
	if LooksLikeEmail(term) {
		return "email"
	}
	return "name_ci"
}
