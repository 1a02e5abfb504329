// internal/domain/models/space.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Space types.
const (
	SpaceTypeCommunity = "community"
	SpaceTypeGroup     = "group"
)

// Space is a multi-party message container: a public, discoverable
// community or a private group.
//
// NOTE:
//   - Admins is always a subset of Members. Every write that removes a
//     member pulls it from both arrays in the same update.
//   - There is no per-member unread tracking for spaces.
type Space struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type        string             `bson:"type" json:"type"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description" json:"description"`
	CreatedBy   string             `bson:"created_by" json:"created_by"`
	Members     []string           `bson:"members" json:"members"`
	Admins      []string           `bson:"admins" json:"admins"`
	IsPublic    bool               `bson:"is_public" json:"is_public"`
	Tags        []string           `bson:"tags" json:"tags"`
	ImageURL    string             `bson:"image_url,omitempty" json:"image_url,omitempty"`

	Messages     []Message `bson:"messages" json:"-"`
	LastMessage  *string   `bson:"last_message" json:"last_message"`
	LastActivity time.Time `bson:"last_activity" json:"last_activity"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsMember reports whether uid is in Members.
func (s Space) IsMember(uid string) bool { return contains(s.Members, uid) }

// IsAdmin reports whether uid is in Admins.
func (s Space) IsAdmin(uid string) bool { return contains(s.Admins, uid) }

// MembershipField names the User field that caches membership in a space of
// this type ("communities" or "groups").
func (s Space) MembershipField() string {
	if s.Type == SpaceTypeGroup {
		return "groups"
	}
	return "communities"
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
