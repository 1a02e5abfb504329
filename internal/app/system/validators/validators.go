// Package validators attaches JSON-Schema validators to the collections the
// service writes. Application code already enforces these rules; the
// validators catch writes that bypass it (scripts, manual fixes).
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/bookclub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators we log and
// skip.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("chats", chatsSchema())
	ensure("spaces", spacesSchema())
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		// Lost a creation race with another instance.
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 48 {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 59 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 115 {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	// nil slices encode as null
	strList = bson.M{"bsonType": bson.A{"array", "null"}, "items": bson.M{"bsonType": "string"}}
)

func messageSchema() bson.M {
	return bson.M{
		"bsonType": "object",
		"required": bson.A{"_id", "sender_id", "text", "timestamp"},
		"properties": bson.M{
			"_id":         bson.M{"bsonType": "objectId"},
			"sender_id":   nonBlank,
			"sender_name": bson.M{"bsonType": "string"},
			"text":        nonBlank,
			"timestamp":   bson.M{"bsonType": "date"},
			"attachments": strList,
		},
	}
}

func usersSchema() bson.M {
	statusEnum := bson.A{}
	for _, s := range models.ReadingStatuses {
		statusEnum = append(statusEnum, s)
	}

	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"uid", "created_at"},
			"properties": bson.M{
				"uid":         nonBlank,
				"name":        bson.M{"bsonType": "string"},
				"name_ci":     bson.M{"bsonType": "string"},
				"email":       bson.M{"bsonType": bson.A{"string", "null"}},
				"communities": strList,
				"groups":      strList,
				"following":   strList,
				"followers":   strList,
				"books": bson.M{
					"bsonType": "object",
					"additionalProperties": bson.M{
						"bsonType": "object",
						"required": bson.A{"status", "updated_at"},
						"properties": bson.M{
							"status":     bson.M{"bsonType": "string"},
							"title":      bson.M{"bsonType": "string"},
							"author":     bson.M{"bsonType": "string"},
							"updated_at": bson.M{"bsonType": "date"},
						},
					},
				},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func chatsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"type", "participants", "participant_key", "messages", "unread_count"},
			"properties": bson.M{
				"type": bson.M{"enum": bson.A{models.ChatTypePersonal}},
				"participants": bson.M{
					"bsonType":    "array",
					"minItems":    2,
					"maxItems":    2,
					"uniqueItems": true,
					"items":       nonBlank,
				},
				"participant_key":   nonBlank,
				"participant_names": bson.M{"bsonType": "object"},
				"messages":          bson.M{"bsonType": bson.A{"array", "null"}, "items": messageSchema()},
				"last_message":      bson.M{"bsonType": bson.A{"string", "null"}},
				"last_message_time": bson.M{"bsonType": "date"},
				"unread_count": bson.M{
					"bsonType":             "object",
					"additionalProperties": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				},
			},
		},
	}
}

func spacesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"type", "name", "name_ci", "created_by", "members", "admins", "is_public"},
			"properties": bson.M{
				"type":          bson.M{"enum": bson.A{models.SpaceTypeCommunity, models.SpaceTypeGroup}},
				"name":          nonBlank,
				"name_ci":       nonBlank,
				"description":   bson.M{"bsonType": "string"},
				"created_by":    nonBlank,
				"members":       strList,
				"admins":        strList,
				"is_public":     bson.M{"bsonType": "bool"},
				"tags":          strList,
				"image_url":     bson.M{"bsonType": "string"},
				"messages":      bson.M{"bsonType": bson.A{"array", "null"}, "items": messageSchema()},
				"last_message":  bson.M{"bsonType": bson.A{"string", "null"}},
				"last_activity": bson.M{"bsonType": "date"},
			},
		},
	}
}
