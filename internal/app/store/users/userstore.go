package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/bookclub/internal/app/system/normalize"
	"github.com/dalemusser/bookclub/internal/app/system/search"
	"github.com/dalemusser/bookclub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Membership list fields on the user document.
const (
	FieldCommunities = "communities"
	FieldGroups      = "groups"
)

// ErrDuplicateEmail is returned when another user already owns the email.
var ErrDuplicateEmail = errors.New("email is already used by another account")

var errBadField = errors.New(`membership field must be "communities" or "groups"`)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// summaryProjection leaves out the reading list and social lists.
var summaryProjection = bson.M{"uid": 1, "name": 1, "email": 1, "photo_url": 1}

// GetByUID loads a user by external id.
func (s *Store) GetByUID(ctx context.Context, uid string) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"uid": uid}).Decode(&u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Exists reports whether a user record with uid exists.
func (s *Store) Exists(ctx context.Context, uid string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"uid": uid}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetManyByUID loads uid/name/email/photo for every uid that exists, in one
// query. Missing uids are simply absent from the result.
func (s *Store) GetManyByUID(ctx context.Context, uids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(uids))
	if len(uids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"uid": bson.M{"$in": uids}}, options.Find().SetProjection(summaryProjection))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.UID] = u
	}
	return out, cur.Err()
}

// Profile carries identity-provider fields. Empty fields leave the stored
// value untouched.
type Profile struct {
	UID      string
	Name     string
	Email    string
	PhotoURL string
}

// UpsertProfile creates the user on first sight and refreshes profile
// fields afterwards. Returns the stored document.
func (s *Store) UpsertProfile(ctx context.Context, p Profile) (models.User, error) {
	now := time.Now().UTC()
	set := bson.M{"updated_at": now}
	if name := normalize.Name(p.Name); name != "" {
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if email := normalize.Email(p.Email); email != "" {
		set["email"] = email
	}
	if p.PhotoURL != "" {
		set["photo_url"] = strings.TrimSpace(p.PhotoURL)
	}
	setOnInsert := bson.M{
		"uid":         p.UID,
		"communities": bson.A{},
		"groups":      bson.A{},
		"following":   bson.A{},
		"followers":   bson.A{},
		"created_at":  now,
	}
	if _, ok := set["name"]; !ok {
		setOnInsert["name"] = ""
		setOnInsert["name_ci"] = ""
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{"$set": set, "$setOnInsert": setOnInsert}

	var u models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"uid": p.UID}, update, opts).Decode(&u)
	if err != nil && wafflemongo.IsDup(err) {
		if isEmailDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		// Concurrent first sign-in inserted the same uid; the retry matches it.
		err = s.c.FindOneAndUpdate(ctx, bson.M{"uid": p.UID}, update, opts).Decode(&u)
		if err != nil && wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Search matches term as a case-insensitive substring of name or email,
// ordered by folded name, or by email when term looks like one.
func (s *Store) Search(ctx context.Context, term string, limit int64) ([]models.User, error) {
	re := search.Contains(term)
	filter := bson.M{"$or": bson.A{
		bson.M{"name": re},
		bson.M{"email": re},
	}}
	opts := options.Find().
		SetProjection(summaryProjection).
		SetSort(bson.D{{Key: search.UserSortField(term), Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Suggestion is a user summary with its follower count.
type Suggestion struct {
	User           models.User `bson:",inline"`
	FollowersCount int         `bson:"followers_count"`
}

// Suggested returns users whose uid is not in exclude, most followed first,
// ties by folded name.
func (s *Store) Suggested(ctx context.Context, exclude []string, limit int64) ([]Suggestion, error) {
	if exclude == nil {
		exclude = []string{}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"uid": bson.M{"$nin": exclude}}}},
		{{Key: "$addFields", Value: bson.M{
			"followers_count": bson.M{"$size": bson.M{"$ifNull": bson.A{"$followers", bson.A{}}}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "followers_count", Value: -1},
			{Key: "name_ci", Value: 1},
			{Key: "_id", Value: 1},
		}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.M{"uid": 1, "name": 1, "email": 1, "photo_url": 1, "followers_count": 1}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []Suggestion{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func isEmailDup(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "uniq_users_email") || strings.Contains(msg, "dup key: { email")
}

// SetBookStatus writes books.<bookID>. Returns mongo.ErrNoDocuments when the
// user does not exist.
func (s *Store) SetBookStatus(ctx context.Context, uid, bookID string, b models.BookStatus) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"uid": uid},
		bson.M{"$set": bson.M{
			"books." + bookID: b,
			"updated_at":      b.UpdatedAt,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func checkField(field string) error {
	if field != FieldCommunities && field != FieldGroups {
		return errBadField
	}
	return nil
}

// AddMembership adds spaceID to the user's communities or groups list.
// A missing user is not an error.
func (s *Store) AddMembership(ctx context.Context, uid, field, spaceID string) error {
	if err := checkField(field); err != nil {
		return err
	}
	_, err := s.c.UpdateOne(ctx,
		bson.M{"uid": uid},
		bson.M{
			"$addToSet": bson.M{field: spaceID},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	return err
}

// RemoveMembership pulls spaceID from the user's communities or groups list.
func (s *Store) RemoveMembership(ctx context.Context, uid, field, spaceID string) error {
	if err := checkField(field); err != nil {
		return err
	}
	_, err := s.c.UpdateOne(ctx,
		bson.M{"uid": uid},
		bson.M{
			"$pull": bson.M{field: spaceID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	return err
}

// MembershipLists groups space ids by membership field.
type MembershipLists struct {
	Communities []string
	Groups      []string
}

func (m MembershipLists) empty() bool {
	return len(m.Communities) == 0 && len(m.Groups) == 0
}

// PatchMemberships adds and removes individual space ids from both lists.
// Ids not named are left alone, so joins and leaves that land concurrently
// are not undone.
func (s *Store) PatchMemberships(ctx context.Context, uid string, add, remove MembershipLists) error {
	now := time.Now().UTC()
	if !add.empty() {
		if _, err := s.c.UpdateOne(ctx, bson.M{"uid": uid}, bson.M{
			"$addToSet": bson.M{
				FieldCommunities: bson.M{"$each": nonNil(add.Communities)},
				FieldGroups:      bson.M{"$each": nonNil(add.Groups)},
			},
			"$set": bson.M{"updated_at": now},
		}); err != nil {
			return err
		}
	}
	if !remove.empty() {
		if _, err := s.c.UpdateOne(ctx, bson.M{"uid": uid}, bson.M{
			"$pull": bson.M{
				FieldCommunities: bson.M{"$in": nonNil(remove.Communities)},
				FieldGroups:      bson.M{"$in": nonNil(remove.Groups)},
			},
			"$set": bson.M{"updated_at": now},
		}); err != nil {
			return err
		}
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// MembershipRow is the projection ForEachMembership yields.
type MembershipRow struct {
	UID         string   `bson:"uid"`
	Communities []string `bson:"communities"`
	Groups      []string `bson:"groups"`
}

// ForEachMembership streams every user's membership lists to fn.
func (s *Store) ForEachMembership(ctx context.Context, fn func(MembershipRow) error) error {
	cur, err := s.c.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"uid": 1, "communities": 1, "groups": 1}).SetBatchSize(500))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row MembershipRow
		if err := cur.Decode(&row); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return cur.Err()
}

// Link records follower -> target on both documents.
func (s *Store) Link(ctx context.Context, follower, target string) error {
	now := time.Now().UTC()
	if _, err := s.c.UpdateOne(ctx, bson.M{"uid": follower},
		bson.M{"$addToSet": bson.M{"following": target}, "$set": bson.M{"updated_at": now}}); err != nil {
		return err
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"uid": target},
		bson.M{"$addToSet": bson.M{"followers": follower}, "$set": bson.M{"updated_at": now}})
	return err
}

// Unlink removes follower -> target from both documents.
func (s *Store) Unlink(ctx context.Context, follower, target string) error {
	now := time.Now().UTC()
	if _, err := s.c.UpdateOne(ctx, bson.M{"uid": follower},
		bson.M{"$pull": bson.M{"following": target}, "$set": bson.M{"updated_at": now}}); err != nil {
		return err
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"uid": target},
		bson.M{"$pull": bson.M{"followers": follower}, "$set": bson.M{"updated_at": now}})
	return err
}
