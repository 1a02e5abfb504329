// Package names resolves display names that are snapshotted into chats and
// messages at write time.
package names

import (
	"context"
	"errors"
	"strings"

	userstore "github.com/dalemusser/bookclub/internal/app/store/users"
	"github.com/dalemusser/bookclub/internal/app/system/apperr"
	"github.com/dalemusser/bookclub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fallback is the name used when a user has neither name nor email.
const Fallback = "User"

// Choose picks the display name for u: name, then email, then Fallback.
func Choose(u models.User) string {
	if n := strings.TrimSpace(u.Name); n != "" {
		return n
	}
	if e := strings.TrimSpace(u.Email); e != "" {
		return e
	}
	return Fallback
}

type Resolver struct {
	users *userstore.Store
}

func New(users *userstore.Store) *Resolver {
	return &Resolver{users: users}
}

// Resolve returns uid's display name. An absent user resolves to Fallback;
// other store failures are returned.
func (r *Resolver) Resolve(ctx context.Context, uid string) (string, error) {
	u, err := r.users.GetByUID(ctx, uid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Fallback, nil
	}
	if err != nil {
		return "", apperr.FromStore(err, "resolve user name")
	}
	return Choose(u), nil
}

// ResolveMany resolves every uid with one query. The result has an entry
// for each uid.
func (r *Resolver) ResolveMany(ctx context.Context, uids []string) (map[string]string, error) {
	found, err := r.users.GetManyByUID(ctx, uids)
	if err != nil {
		return nil, apperr.FromStore(err, "resolve user names")
	}
	out := make(map[string]string, len(uids))
	for _, uid := range uids {
		if u, ok := found[uid]; ok {
			out[uid] = Choose(u)
		} else {
			out[uid] = Fallback
		}
	}
	return out, nil
}
