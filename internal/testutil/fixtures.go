package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	chatstore "github.com/dalemusser/bookclub/internal/app/store/chats"
	"github.com/dalemusser/bookclub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that call handlers without the router.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user with the given uid, name and email. Empty
// email leaves the field unset.
func (f *Fixtures) CreateUser(ctx context.Context, uid, name, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:          primitive.NewObjectID(),
		UID:         uid,
		Name:        name,
		NameCI:      text.Fold(name),
		Email:       email,
		Communities: []string{},
		Groups:      []string{},
		Following:   []string{},
		Followers:   []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("CreateUser(%s): %v", uid, err)
	}
	return u
}

// CreateSpace inserts a space created by creator. Members and admins both
// start as {creator}; creator's membership list is updated too.
func (f *Fixtures) CreateSpace(ctx context.Context, creator, name, spaceType string, public bool) models.Space {
	f.t.Helper()

	now := time.Now().UTC()
	s := models.Space{
		ID:           primitive.NewObjectID(),
		Type:         spaceType,
		Name:         name,
		NameCI:       text.Fold(name),
		CreatedBy:    creator,
		Members:      []string{creator},
		Admins:       []string{creator},
		IsPublic:     public,
		Tags:         []string{},
		Messages:     []models.Message{},
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("spaces").InsertOne(ctx, s); err != nil {
		f.t.Fatalf("CreateSpace(%s): %v", name, err)
	}
	_, err := f.db.Collection("users").UpdateOne(ctx,
		bson.M{"uid": creator},
		bson.M{"$addToSet": bson.M{s.MembershipField(): s.ID.Hex()}},
	)
	if err != nil {
		f.t.Fatalf("CreateSpace(%s) membership: %v", name, err)
	}
	return s
}

// AddSpaceMember appends uid to a space's members (and admins when admin is
// true) without touching the user's membership list. Use it to seed drift.
func (f *Fixtures) AddSpaceMember(ctx context.Context, spaceID primitive.ObjectID, uid string, admin bool) {
	f.t.Helper()

	add := bson.M{"members": uid}
	if admin {
		add["admins"] = uid
	}
	if _, err := f.db.Collection("spaces").UpdateOne(ctx, bson.M{"_id": spaceID}, bson.M{"$addToSet": add}); err != nil {
		f.t.Fatalf("AddSpaceMember: %v", err)
	}
}

// CreateChat inserts an empty personal chat between a and b.
func (f *Fixtures) CreateChat(ctx context.Context, a, b string) models.Chat {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Chat{
		ID:               primitive.NewObjectID(),
		Type:             models.ChatTypePersonal,
		Participants:     []string{a, b},
		ParticipantKey:   chatstore.Key(a, b),
		ParticipantNames: map[string]string{},
		Messages:         []models.Message{},
		LastMessageTime:  now,
		UnreadCount:      map[string]int{a: 0, b: 0},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := f.db.Collection("chats").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("CreateChat(%s, %s): %v", a, b, err)
	}
	return c
}

// User reloads a user by uid.
func (f *Fixtures) User(ctx context.Context, uid string) models.User {
	f.t.Helper()

	var u models.User
	if err := f.db.Collection("users").FindOne(ctx, bson.M{"uid": uid}).Decode(&u); err != nil {
		f.t.Fatalf("User(%s): %v", uid, err)
	}
	return u
}

// Space reloads a space by id.
func (f *Fixtures) Space(ctx context.Context, id primitive.ObjectID) models.Space {
	f.t.Helper()

	var s models.Space
	if err := f.db.Collection("spaces").FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		f.t.Fatalf("Space(%s): %v", id.Hex(), err)
	}
	return s
}

// Chat reloads a chat by id.
func (f *Fixtures) Chat(ctx context.Context, id primitive.ObjectID) models.Chat {
	f.t.Helper()

	var c models.Chat
	if err := f.db.Collection("chats").FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		f.t.Fatalf("Chat(%s): %v", id.Hex(), err)
	}
	return c
}
