// Package messages composes and windows the message logs embedded in chats
// and spaces.
package messages

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/bookclub/internal/app/system/apperr"
	"github.com/dalemusser/bookclub/internal/app/system/limits"
	"github.com/dalemusser/bookclub/internal/app/system/paging"
	"github.com/dalemusser/bookclub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compose builds a message from sender with a server timestamp. Text is
// kept as sent apart from surrounding whitespace; clients render it as text.
func Compose(senderID, senderName, text string, attachments []string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, apperr.Validation("Message text is required.")
	}
	if utf8.RuneCountInString(text) > limits.MaxMessageText {
		return models.Message{}, apperr.Validation(fmt.Sprintf("Message text must be at most %d characters.", limits.MaxMessageText))
	}
	att := make([]string, 0, len(attachments))
	for _, a := range attachments {
		if a = strings.TrimSpace(a); a != "" {
			att = append(att, a)
		}
	}
	if len(att) > limits.MaxAttachments {
		return models.Message{}, apperr.Validation(fmt.Sprintf("A message can have at most %d attachments.", limits.MaxAttachments))
	}
	return models.Message{
		ID:          primitive.NewObjectID(),
		SenderID:    senderID,
		SenderName:  senderName,
		Text:        text,
		Timestamp:   time.Now().UTC(),
		Attachments: att,
	}, nil
}

// Window returns the most recent limit messages, oldest first. Messages
// with equal timestamps keep log order.
func Window(log []models.Message, limit int) []models.Message {
	out := paging.Tail(log, paging.MessageLimit(limit))
	for i := range out {
		if out[i].Attachments == nil {
			out[i].Attachments = []string{}
		}
	}
	return out
}
