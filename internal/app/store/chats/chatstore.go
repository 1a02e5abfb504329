// internal/app/store/chats/chatstore.go
package chatstore

import (
	"context"
	"strconv"
	"time"

	"github.com/dalemusser/bookclub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("chats")}
}

// Key returns the unordered-pair identity of a chat between a and b. The
// first id is length-prefixed so no two pairs share a key, whatever
// characters the ids contain.
func Key(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return strconv.Itoa(len(a)) + ":" + a + "|" + b
}

var withoutMessages = bson.M{"messages": 0}

// GetOrCreate returns the personal chat between a and b, creating it when
// absent. names is the participant name snapshot stored on creation.
// created reports whether this call inserted the document.
func (s *Store) GetOrCreate(ctx context.Context, a, b string, names map[string]string) (chat models.Chat, created bool, err error) {
	key := Key(a, b)
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"participant_key": key},
		bson.M{"$setOnInsert": bson.M{
			"type":              models.ChatTypePersonal,
			"participants":      bson.A{a, b},
			"participant_names": names,
			"messages":          bson.A{},
			"last_message":      nil,
			"last_message_time": now,
			"unread_count":      bson.M{a: 0, b: 0},
			"created_at":        now,
			"updated_at":        now,
		}},
		options.Update().SetUpsert(true),
	)
	// A concurrent caller won the insert; the unique index rejected ours.
	if err != nil && !wafflemongo.IsDup(err) {
		return models.Chat{}, false, err
	}
	created = err == nil && res.UpsertedCount == 1

	err = s.c.FindOne(ctx, bson.M{"participant_key": key},
		options.FindOne().SetProjection(withoutMessages)).Decode(&chat)
	if err != nil {
		return models.Chat{}, false, err
	}
	return chat, created, nil
}

// GetByID loads a chat without its message log.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Chat, error) {
	var c models.Chat
	err := s.c.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(withoutMessages)).Decode(&c)
	if err != nil {
		return models.Chat{}, err
	}
	return c, nil
}

// GetWithRecentMessages loads a chat with only its last limit messages,
// still in append order.
func (s *Store) GetWithRecentMessages(ctx context.Context, id primitive.ObjectID, limit int) (models.Chat, error) {
	var c models.Chat
	proj := bson.M{"messages": bson.M{"$slice": -limit}}
	if err := s.c.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(proj)).Decode(&c); err != nil {
		return models.Chat{}, err
	}
	return c, nil
}

// AppendMessage pushes msg, updates the last-message fields and increments
// the unread counter of every recipient, all in one update. The filter
// requires the sender to still be a participant; matched is false otherwise
// (or when the chat does not exist).
func (s *Store) AppendMessage(ctx context.Context, id primitive.ObjectID, msg models.Message, recipients []string) (matched bool, err error) {
	inc := bson.M{}
	for _, r := range recipients {
		inc["unread_count."+r] = 1
	}
	update := bson.M{
		"$push": bson.M{"messages": msg},
		"$set": bson.M{
			"last_message":      msg.Text,
			"last_message_time": msg.Timestamp,
			"updated_at":        msg.Timestamp,
		},
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "participants": msg.SenderID}, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// ResetUnread sets uid's unread counter to zero. matched is false when the
// chat is absent or uid is not a participant.
func (s *Store) ResetUnread(ctx context.Context, id primitive.ObjectID, uid string) (matched bool, err error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "participants": uid},
		bson.M{"$set": bson.M{"unread_count." + uid: 0}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// ListForUser returns uid's personal chats without messages, most recent
// activity first.
func (s *Store) ListForUser(ctx context.Context, uid string) ([]models.Chat, error) {
	opts := options.Find().
		SetProjection(withoutMessages).
		SetSort(bson.D{{Key: "last_message_time", Value: -1}, {Key: "_id", Value: -1}})

	cur, err := s.c.Find(ctx, bson.M{"participants": uid, "type": models.ChatTypePersonal}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	chats := []models.Chat{}
	if err := cur.All(ctx, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}
