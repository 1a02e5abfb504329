// internal/domain/models/chat.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatTypePersonal is the only chat type stored in the chats collection.
// Multi-party conversations live in the spaces collection.
const ChatTypePersonal = "personal"

// Chat is a two-party conversation.
//
// ParticipantKey is the sorted participant pair and carries a unique index,
// which is what makes get-or-create idempotent under concurrent callers.
type Chat struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type             string             `bson:"type" json:"type"`
	Participants     []string           `bson:"participants" json:"participants"`
	ParticipantKey   string             `bson:"participant_key" json:"-"`
	ParticipantNames map[string]string  `bson:"participant_names,omitempty" json:"participant_names,omitempty"`

	Messages        []Message      `bson:"messages" json:"-"`
	LastMessage     *string        `bson:"last_message" json:"last_message"`
	LastMessageTime time.Time      `bson:"last_message_time" json:"last_message_time"`
	UnreadCount     map[string]int `bson:"unread_count" json:"unread_count"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether uid is one of the chat's two participants.
func (c Chat) HasParticipant(uid string) bool {
	for _, p := range c.Participants {
		if p == uid {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not uid, or "" if uid is
// not in the chat.
func (c Chat) OtherParticipant(uid string) string {
	if !c.HasParticipant(uid) {
		return ""
	}
	for _, p := range c.Participants {
		if p != uid {
			return p
		}
	}
	return ""
}
