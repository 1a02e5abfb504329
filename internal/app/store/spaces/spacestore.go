// internal/app/store/spaces/spacestore.go
package spacestore

import (
	"context"
	"time"

	"github.com/dalemusser/bookclub/internal/app/system/paging"
	"github.com/dalemusser/bookclub/internal/app/system/search"
	"github.com/dalemusser/bookclub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("spaces")}
}

var withoutMessages = bson.M{"messages": 0}

// Create inserts s with an empty message log and returns it with its new id.
func (s *Store) Create(ctx context.Context, sp models.Space) (models.Space, error) {
	if sp.ID.IsZero() {
		sp.ID = primitive.NewObjectID()
	}
	if sp.Messages == nil {
		sp.Messages = []models.Message{}
	}
	if sp.Tags == nil {
		sp.Tags = []string{}
	}
	if _, err := s.c.InsertOne(ctx, sp); err != nil {
		return models.Space{}, err
	}
	return sp, nil
}

// GetByID loads a space without its message log.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Space, error) {
	var sp models.Space
	err := s.c.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(withoutMessages)).Decode(&sp)
	if err != nil {
		return models.Space{}, err
	}
	return sp, nil
}

// GetWithRecentMessages loads a space with only its last limit messages.
func (s *Store) GetWithRecentMessages(ctx context.Context, id primitive.ObjectID, limit int) (models.Space, error) {
	var sp models.Space
	proj := bson.M{"messages": bson.M{"$slice": -limit}}
	if err := s.c.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(proj)).Decode(&sp); err != nil {
		return models.Space{}, err
	}
	return sp, nil
}

// AddMember adds uid to members, and to admins when admin is true.
// Returns mongo.ErrNoDocuments when the space does not exist.
func (s *Store) AddMember(ctx context.Context, id primitive.ObjectID, uid string, admin bool) error {
	add := bson.M{"members": uid}
	if admin {
		add["admins"] = uid
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$addToSet": add,
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// RemoveMember pulls uid from members and admins in a single update.
// Returns mongo.ErrNoDocuments when the space does not exist.
func (s *Store) RemoveMember(ctx context.Context, id primitive.ObjectID, uid string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$pull": bson.M{"members": uid, "admins": uid},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// AppendMessage pushes msg and updates last_message/last_activity in one
// update. The filter requires the sender to be a member; matched is false
// otherwise (or when the space does not exist).
func (s *Store) AppendMessage(ctx context.Context, id primitive.ObjectID, msg models.Message) (matched bool, err error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "members": msg.SenderID},
		bson.M{
			"$push": bson.M{"messages": msg},
			"$set": bson.M{
				"last_message":  msg.Text,
				"last_activity": msg.Timestamp,
				"updated_at":    msg.Timestamp,
			},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Space, error) {
	opts.SetProjection(withoutMessages)
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Space{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func publicCommunities() bson.M {
	return bson.M{"type": models.SpaceTypeCommunity, "is_public": true}
}

// ListPublic returns public communities, newest first.
func (s *Store) ListPublic(ctx context.Context, limit int64) ([]models.Space, error) {
	return s.find(ctx, publicCommunities(), options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit))
}

// Search returns public communities whose name, description or any tag
// contains term case-insensitively, ordered by folded name. after is the
// cursor from a previous page; next is "" on the last page.
func (s *Store) Search(ctx context.Context, term, after string, limit int) (rows []models.Space, next string, err error) {
	re := search.Contains(term)
	filter := publicCommunities()
	clauses := bson.A{
		bson.M{"$or": bson.A{
			bson.M{"name": re},
			bson.M{"description": re},
			bson.M{"tags": re},
		}},
	}
	if window := paging.After("name_ci", after); window != nil {
		clauses = append(clauses, window)
	}
	filter["$and"] = clauses

	rows, err = s.find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)+1))
	if err != nil {
		return nil, "", err
	}
	next = paging.TrimNext(&rows, limit,
		func(sp models.Space) string { return sp.NameCI },
		func(sp models.Space) primitive.ObjectID { return sp.ID })
	return rows, next, nil
}

// ListForMember returns spaces of spaceType that uid belongs to, most recent
// activity first.
func (s *Store) ListForMember(ctx context.Context, uid, spaceType string) ([]models.Space, error) {
	return s.find(ctx, bson.M{"members": uid, "type": spaceType}, options.Find().
		SetSort(bson.D{{Key: "last_activity", Value: -1}, {Key: "_id", Value: -1}}))
}

// MembershipsOf reads the ids of every space uid currently belongs to,
// split by space type.
func (s *Store) MembershipsOf(ctx context.Context, uid string) (communities, groups []string, err error) {
	cur, err := s.c.Find(ctx, bson.M{"members": uid},
		options.Find().SetProjection(bson.M{"type": 1}))
	if err != nil {
		return nil, nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row MemberRow
		if err := cur.Decode(&row); err != nil {
			return nil, nil, err
		}
		if row.Type == models.SpaceTypeGroup {
			groups = append(groups, row.ID.Hex())
		} else {
			communities = append(communities, row.ID.Hex())
		}
	}
	return communities, groups, cur.Err()
}

// MemberRow is the projection ForEachMembers yields.
type MemberRow struct {
	ID      primitive.ObjectID `bson:"_id"`
	Type    string             `bson:"type"`
	Members []string           `bson:"members"`
}

// ForEachMembers streams every space's type and member list to fn.
func (s *Store) ForEachMembers(ctx context.Context, fn func(MemberRow) error) error {
	cur, err := s.c.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"type": 1, "members": 1}).SetBatchSize(500))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row MemberRow
		if err := cur.Decode(&row); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return cur.Err()
}
