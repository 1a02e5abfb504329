// internal/domain/models/message.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is embedded in a Chat or Space message log and never modified
// once appended. SenderName is a snapshot taken at send time.
type Message struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	SenderID    string             `bson:"sender_id" json:"sender_id"`
	SenderName  string             `bson:"sender_name" json:"sender_name"`
	Text        string             `bson:"text" json:"text"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
	Attachments []string           `bson:"attachments" json:"attachments"`
}
