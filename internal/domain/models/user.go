// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reading status values recorded in User.Books.
const (
	StatusWantToRead       = "want-to-read"
	StatusCurrentlyReading = "currently-reading"
	StatusRead             = "read"
)

// ReadingStatuses lists the accepted reading status values in display order.
var ReadingStatuses = []string{StatusWantToRead, StatusCurrentlyReading, StatusRead}

// BookStatus is one entry of a user's reading list, keyed by book id.
type BookStatus struct {
	Title     string    `bson:"title" json:"title"`
	Author    string    `bson:"author" json:"author"`
	Status    string    `bson:"status" json:"status"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// User is an account known to the identity provider.
//
// NOTE:
//   - UID is the identity provider's stable id and is what every other
//     document refers to. The ObjectID stays internal to the users collection.
//   - Communities and Groups are a denormalized cache of spaces.members.
//     The membership reconciler rebuilds them from the space documents.
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UID      string             `bson:"uid" json:"id"`
	Name     string             `bson:"name" json:"name"`
	NameCI   string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Email    string             `bson:"email,omitempty" json:"email,omitempty"`
	PhotoURL string             `bson:"photo_url,omitempty" json:"photo_url,omitempty"`

	Communities []string `bson:"communities" json:"communities"`
	Groups      []string `bson:"groups" json:"groups"`
	Following   []string `bson:"following" json:"following"`
	Followers   []string `bson:"followers" json:"followers"`

	Books map[string]BookStatus `bson:"books,omitempty" json:"books,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
