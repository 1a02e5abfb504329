// Package chats holds the access functions for two-party personal chats.
package chats

import (
	"context"
	"time"

	"github.com/dalemusser/bookclub/internal/app/services/messages"
	"github.com/dalemusser/bookclub/internal/app/services/names"
	chatstore "github.com/dalemusser/bookclub/internal/app/store/chats"
	userstore "github.com/dalemusser/bookclub/internal/app/store/users"
	"github.com/dalemusser/bookclub/internal/app/system/apperr"
	"github.com/dalemusser/bookclub/internal/app/system/inputval"
	"github.com/dalemusser/bookclub/internal/app/system/paging"
	"github.com/dalemusser/bookclub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Chat is the full projection of a chat, as returned on creation.
type Chat struct {
	ID               string            `json:"id"`
	Participants     []string          `json:"participants"`
	ParticipantNames map[string]string `json:"participant_names"`
	LastMessage      *string           `json:"last_message"`
	LastMessageTime  time.Time         `json:"last_message_time"`
	UnreadCount      map[string]int    `json:"unread_count"`
	CreatedAt        time.Time         `json:"created_at"`
}

// Summary is a chat as seen by one participant.
type Summary struct {
	ID              string    `json:"id"`
	OtherUserID     string    `json:"other_user_id"`
	OtherUserName   string    `json:"other_user_name"`
	LastMessage     *string   `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	UnreadCount     int       `json:"unread_count"`
}

type Service struct {
	chats *chatstore.Store
	names *names.Resolver
	log   *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Service {
	return &Service{
		chats: chatstore.New(db),
		names: names.New(userstore.New(db)),
		log:   log,
	}
}

func project(c models.Chat) Chat {
	pn := c.ParticipantNames
	if pn == nil {
		pn = map[string]string{}
	}
	uc := c.UnreadCount
	if uc == nil {
		uc = map[string]int{}
	}
	return Chat{
		ID:               c.ID.Hex(),
		Participants:     c.Participants,
		ParticipantNames: pn,
		LastMessage:      c.LastMessage,
		LastMessageTime:  c.LastMessageTime,
		UnreadCount:      uc,
		CreatedAt:        c.CreatedAt,
	}
}

func summarize(c models.Chat, viewer, otherName string) Summary {
	return Summary{
		ID:              c.ID.Hex(),
		OtherUserID:     c.OtherParticipant(viewer),
		OtherUserName:   otherName,
		LastMessage:     c.LastMessage,
		LastMessageTime: c.LastMessageTime,
		UnreadCount:     c.UnreadCount[viewer],
	}
}

// GetOrCreate returns the chat between a and b, creating it on first use.
// Calls with the pair in either order return the same chat.
func (s *Service) GetOrCreate(ctx context.Context, a, b string) (Chat, error) {
	const op = "chats.get_or_create"
	fields := []zap.Field{zap.String("user_a", a), zap.String("user_b", b)}
	if !inputval.IsValidDocID(a) || !inputval.IsValidDocID(b) {
		return Chat{}, apperr.Log(s.log, op, apperr.Validation("Two valid user ids are required."), fields...)
	}
	if a == b {
		return Chat{}, apperr.Log(s.log, op, apperr.Validation("A chat needs two different users."), fields...)
	}

	pn, err := s.names.ResolveMany(ctx, []string{a, b})
	if err != nil {
		return Chat{}, apperr.Log(s.log, op, err, fields...)
	}
	c, created, err := s.chats.GetOrCreate(ctx, a, b, pn)
	if err != nil {
		return Chat{}, apperr.Log(s.log, op, apperr.FromStore(err, "create chat"), fields...)
	}
	if created {
		s.log.Debug("chat created", zap.String("chat_id", c.ID.Hex()), zap.String("user_a", a), zap.String("user_b", b))
	}
	return project(c), nil
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound("chat not found")
	}
	return oid, nil
}

// load fetches the chat and checks that uid takes part in it.
func (s *Service) load(ctx context.Context, chatID, uid string) (models.Chat, error) {
	oid, err := parseID(chatID)
	if err != nil {
		return models.Chat{}, err
	}
	c, err := s.chats.GetByID(ctx, oid)
	if err != nil {
		return models.Chat{}, apperr.FromStore(err, "chat not found")
	}
	if !c.HasParticipant(uid) {
		return models.Chat{}, apperr.Forbidden("You are not a participant in this chat.")
	}
	return c, nil
}

// SendMessage appends a message from sender. The message, the last-message
// fields and every recipient's unread counter change in one update.
func (s *Service) SendMessage(ctx context.Context, chatID, sender, text string, attachments []string) (models.Message, error) {
	const op = "chats.send_message"
	fields := []zap.Field{zap.String("chat_id", chatID), zap.String("sender", sender)}

	c, err := s.load(ctx, chatID, sender)
	if err != nil {
		return models.Message{}, apperr.Log(s.log, op, err, fields...)
	}
	name, err := s.names.Resolve(ctx, sender)
	if err != nil {
		return models.Message{}, apperr.Log(s.log, op, err, fields...)
	}
	msg, err := messages.Compose(sender, name, text, attachments)
	if err != nil {
		return models.Message{}, apperr.Log(s.log, op, err, fields...)
	}

	var recipients []string
	for _, p := range c.Participants {
		if p != sender {
			recipients = append(recipients, p)
		}
	}
	matched, err := s.chats.AppendMessage(ctx, c.ID, msg, recipients)
	if err != nil {
		return models.Message{}, apperr.Log(s.log, op, apperr.FromStore(err, "send message"), fields...)
	}
	if !matched {
		return models.Message{}, apperr.Log(s.log, op, apperr.NotFound("chat not found"), fields...)
	}
	return msg, nil
}

// ListMessages returns the chat's most recent limit messages, oldest first.
func (s *Service) ListMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	const op = "chats.list_messages"
	oid, err := parseID(chatID)
	if err != nil {
		return nil, apperr.Log(s.log, op, err, zap.String("chat_id", chatID))
	}
	limit = paging.MessageLimit(limit)
	c, err := s.chats.GetWithRecentMessages(ctx, oid, limit)
	if err != nil {
		return nil, apperr.Log(s.log, op, apperr.FromStore(err, "chat not found"), zap.String("chat_id", chatID))
	}
	return messages.Window(c.Messages, limit), nil
}

// ListMessagesFor is ListMessages restricted to participants.
func (s *Service) ListMessagesFor(ctx context.Context, viewer, chatID string, limit int) ([]models.Message, error) {
	if _, err := s.load(ctx, chatID, viewer); err != nil {
		return nil, apperr.Log(s.log, "chats.list_messages", err, zap.String("chat_id", chatID), zap.String("viewer", viewer))
	}
	return s.ListMessages(ctx, chatID, limit)
}

// MarkRead resets uid's unread counter.
func (s *Service) MarkRead(ctx context.Context, chatID, uid string) error {
	const op = "chats.mark_read"
	fields := []zap.Field{zap.String("chat_id", chatID), zap.String("uid", uid)}

	c, err := s.load(ctx, chatID, uid)
	if err != nil {
		return apperr.Log(s.log, op, err, fields...)
	}
	if c.UnreadCount[uid] == 0 {
		return nil
	}
	matched, err := s.chats.ResetUnread(ctx, c.ID, uid)
	if err != nil {
		return apperr.Log(s.log, op, apperr.FromStore(err, "mark read"), fields...)
	}
	if !matched {
		return apperr.Log(s.log, op, apperr.NotFound("chat not found"), fields...)
	}
	return nil
}

// ListForUser returns uid's chats, most recent message first, each with the
// other participant's current name and uid's unread count.
func (s *Service) ListForUser(ctx context.Context, uid string) ([]Summary, error) {
	const op = "chats.list_for_user"
	rows, err := s.chats.ListForUser(ctx, uid)
	if err != nil {
		return nil, apperr.Log(s.log, op, apperr.FromStore(err, "list chats"), zap.String("uid", uid))
	}

	others := make([]string, 0, len(rows))
	for _, c := range rows {
		others = append(others, c.OtherParticipant(uid))
	}
	nm, err := s.names.ResolveMany(ctx, others)
	if err != nil {
		return nil, apperr.Log(s.log, op, err, zap.String("uid", uid))
	}

	out := make([]Summary, 0, len(rows))
	for _, c := range rows {
		out = append(out, summarize(c, uid, nm[c.OtherParticipant(uid)]))
	}
	return out, nil
}

// Get returns the chat as seen by viewer.
func (s *Service) Get(ctx context.Context, chatID, viewer string) (Summary, error) {
	const op = "chats.get"
	c, err := s.load(ctx, chatID, viewer)
	if err != nil {
		return Summary{}, apperr.Log(s.log, op, err, zap.String("chat_id", chatID), zap.String("viewer", viewer))
	}
	other := c.OtherParticipant(viewer)
	name, err := s.names.Resolve(ctx, other)
	if err != nil {
		return Summary{}, apperr.Log(s.log, op, err, zap.String("chat_id", chatID))
	}
	return summarize(c, viewer, name), nil
}
