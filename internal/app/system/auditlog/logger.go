// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"strconv"

	"github.com/dalemusser/bookclub/internal/app/store/audit"
	"github.com/dalemusser/bookclub/internal/app/system/httpjson"
	"go.uber.org/zap"
)

// Destination settings for a category.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	// Membership controls space created/joined/left and member-added events.
	Membership string
	// Social controls follow and unfollow events.
	Social string
}

// Logger provides convenience methods for logging audit events.
// It logs to MongoDB (via audit.Store) and/or structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.UserUID != "" {
		fields = append(fields, zap.String("user_uid", event.UserUID))
	}
	if event.ActorUID != "" {
		fields = append(fields, zap.String("actor_uid", event.ActorUID))
	}
	if event.SpaceID != "" {
		fields = append(fields, zap.String("space_id", event.SpaceID))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) setting(category string) string {
	var s string
	switch category {
	case audit.CategoryMembership:
		s = l.config.Membership
	case audit.CategorySocial:
		s = l.config.Social
	}
	if s == "" {
		return ModeAll
	}
	return s
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so services can run without auditing.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := l.setting(event.Category)
	if setting == ModeOff {
		return
	}
	if event.RequestID == "" {
		event.RequestID = httpjson.RequestIDFrom(ctx)
	}

	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}

	if setting == ModeAll || setting == ModeDB {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Membership Events ---

// SpaceCreated logs the creation of a community or group.
func (l *Logger) SpaceCreated(ctx context.Context, actorUID, spaceID, spaceType, name string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMembership,
		EventType: audit.EventSpaceCreated,
		UserUID:   actorUID,
		ActorUID:  actorUID,
		SpaceID:   spaceID,
		Success:   true,
		Details: map[string]string{
			"space_type": spaceType,
			"name":       name,
		},
	})
}

// SpaceJoined logs a user joining a space on their own.
func (l *Logger) SpaceJoined(ctx context.Context, uid, spaceID, spaceType string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMembership,
		EventType: audit.EventSpaceJoined,
		UserUID:   uid,
		ActorUID:  uid,
		SpaceID:   spaceID,
		Success:   true,
		Details:   map[string]string{"space_type": spaceType},
	})
}

// SpaceLeft logs a user leaving a space. wasLastAdmin marks a departure
// that left the space without admins.
func (l *Logger) SpaceLeft(ctx context.Context, uid, spaceID, spaceType string, wasLastAdmin bool) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMembership,
		EventType: audit.EventSpaceLeft,
		UserUID:   uid,
		ActorUID:  uid,
		SpaceID:   spaceID,
		Success:   true,
		Details: map[string]string{
			"space_type":     spaceType,
			"was_last_admin": strconv.FormatBool(wasLastAdmin),
		},
	})
}

// MemberAdded logs an admin adding another user to a space.
func (l *Logger) MemberAdded(ctx context.Context, actorUID, uid, spaceID, spaceType string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMembership,
		EventType: audit.EventMemberAdded,
		UserUID:   uid,
		ActorUID:  actorUID,
		SpaceID:   spaceID,
		Success:   true,
		Details:   map[string]string{"space_type": spaceType},
	})
}

// --- Social Events ---

// UserFollowed logs follower starting to follow target.
func (l *Logger) UserFollowed(ctx context.Context, follower, target string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategorySocial,
		EventType: audit.EventUserFollowed,
		UserUID:   target,
		ActorUID:  follower,
		Success:   true,
	})
}

// UserUnfollowed logs follower no longer following target.
func (l *Logger) UserUnfollowed(ctx context.Context, follower, target string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategorySocial,
		EventType: audit.EventUserUnfollowed,
		UserUID:   target,
		ActorUID:  follower,
		Success:   true,
	})
}
