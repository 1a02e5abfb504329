// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"
	"sync"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Defaults for message windows and discovery lists.
const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
	ListLimit           = 20
)

var (
	mu         sync.RWMutex
	msgDefault = DefaultMessageLimit
	msgMax     = MaxMessageLimit
)

// ConfigureMessages overrides the message window default and ceiling.
// Non-positive values are ignored; def is capped at max.
func ConfigureMessages(def, max int) {
	mu.Lock()
	defer mu.Unlock()
	if max > 0 {
		msgMax = max
	}
	if def > 0 {
		msgDefault = def
	}
	if msgDefault > msgMax {
		msgDefault = msgMax
	}
}

// ResetMessages restores the built-in message limits. Used by tests.
func ResetMessages() {
	mu.Lock()
	defer mu.Unlock()
	msgDefault, msgMax = DefaultMessageLimit, MaxMessageLimit
}

// MessageLimit clamps a requested message window: n <= 0 means the default,
// anything above the ceiling is cut to the ceiling.
func MessageLimit(n int) int {
	mu.RLock()
	defer mu.RUnlock()
	return Clamp(n, msgDefault, msgMax)
}

// Clamp returns def when n <= 0 and max when n > max.
func Clamp(n, def, max int) int {
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// ParseLimit reads the "limit" query parameter. Missing or malformed values
// yield 0, which the clamps above turn into the default.
func ParseLimit(r *http.Request) int {
	s := query.Get(r, "limit")
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Tail returns the last n elements of rows, keeping their order.
func Tail[T any](rows []T, n int) []T {
	if n <= 0 || len(rows) == 0 {
		return []T{}
	}
	if len(rows) <= n {
		out := make([]T, len(rows))
		copy(out, rows)
		return out
	}
	out := make([]T, n)
	copy(out, rows[len(rows)-n:])
	return out
}

// After returns the keyset condition for rows sorted ascending by
// (sortField, _id) that come after the encoded cursor, or nil when the
// cursor is empty or malformed.
func After(sortField, cursor string) bson.M {
	if cursor == "" {
		return nil
	}
	c, ok := wafflemongo.DecodeCursor(cursor)
	if !ok {
		return nil
	}
	return bson.M{"$or": []bson.M{
		{sortField: bson.M{"$gt": c.CI}},
		{sortField: c.CI, "_id": bson.M{"$gt": c.ID}},
	}}
}

// TrimNext trims a slice fetched with limit+1 rows to limit and returns the
// cursor for the following page ("" when there is none).
func TrimNext[T any](rows *[]T, limit int, keyFn func(T) string, idFn func(T) primitive.ObjectID) string {
	if len(*rows) <= limit {
		return ""
	}
	*rows = (*rows)[:limit]
	last := (*rows)[limit-1]
	return wafflemongo.EncodeCursor(keyFn(last), idFn(last))
}
