// Package spaces holds the access functions for communities and groups.
//
// Writes that touch both a space and a user's membership list run through
// txn.Run. On deployments without transactions they run sequentially and
// the membership reconciler repairs any drift.
package spaces

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/bookclub/internal/app/services/messages"
	"github.com/dalemusser/bookclub/internal/app/services/names"
	spacestore "github.com/dalemusser/bookclub/internal/app/store/spaces"
	userstore "github.com/dalemusser/bookclub/internal/app/store/users"
	"github.com/dalemusser/bookclub/internal/app/system/apperr"
	"github.com/dalemusser/bookclub/internal/app/system/auditlog"
	"github.com/dalemusser/bookclub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/bookclub/internal/app/system/inputval"
	"github.com/dalemusser/bookclub/internal/app/system/normalize"
	"github.com/dalemusser/bookclub/internal/app/system/paging"
	"github.com/dalemusser/bookclub/internal/app/system/txn"
	"github.com/dalemusser/bookclub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// maxListLimit caps ListPublic and search pages.
const maxListLimit = 100

// Space is the projection of a community or group.
type Space struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	CreatedBy    string    `json:"created_by"`
	Members      []string  `json:"members"`
	Admins       []string  `json:"admins"`
	MemberCount  int       `json:"member_count"`
	IsPublic     bool      `json:"is_public"`
	Tags         []string  `json:"tags"`
	ImageURL     string    `json:"image_url,omitempty"`
	LastMessage  *string   `json:"last_message"`
	LastActivity time.Time `json:"last_activity"`
	UnreadCount  int       `json:"unread_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// SearchPage is one page of community search results.
type SearchPage struct {
	Spaces []Space `json:"spaces"`
	Next   string  `json:"next,omitempty"`
}

// CreateInput describes a new space. A nil IsPublic means the default for
// the type.
type CreateInput struct {
	Name        string
	Description string
	Type        string
	IsPublic    *bool
	Tags        []string
	ImageURL    string
}

type Service struct {
	db     *mongo.Database
	spaces *spacestore.Store
	users  *userstore.Store
	names  *names.Resolver
	audit  *auditlog.Logger
	log    *zap.Logger
}

func New(db *mongo.Database, audit *auditlog.Logger, log *zap.Logger) *Service {
	users := userstore.New(db)
	return &Service{
		db:     db,
		spaces: spacestore.New(db),
		users:  users,
		names:  names.New(users),
		audit:  audit,
		log:    log,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func project(sp models.Space) Space {
	return Space{
		ID:           sp.ID.Hex(),
		Type:         sp.Type,
		Name:         sp.Name,
		Description:  sp.Description,
		CreatedBy:    sp.CreatedBy,
		Members:      nonNil(sp.Members),
		Admins:       nonNil(sp.Admins),
		MemberCount:  len(sp.Members),
		IsPublic:     sp.IsPublic,
		Tags:         nonNil(sp.Tags),
		ImageURL:     sp.ImageURL,
		LastMessage:  sp.LastMessage,
		LastActivity: sp.LastActivity,
		CreatedAt:    sp.CreatedAt,
	}
}

func projectAll(rows []models.Space) []Space {
	out := make([]Space, 0, len(rows))
	for _, sp := range rows {
		out = append(out, project(sp))
	}
	return out
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound("space not found")
	}
	return oid, nil
}

func (s *Service) load(ctx context.Context, spaceID string) (models.Space, error) {
	oid, err := parseID(spaceID)
	if err != nil {
		return models.Space{}, err
	}
	sp, err := s.spaces.GetByID(ctx, oid)
	if err != nil {
		return models.Space{}, apperr.FromStore(err, "space not found")
	}
	return sp, nil
}

// Create makes a new community or group with creator as its only member
// and admin.
func (s *Service) Create(ctx context.Context, creator string, in CreateInput) (Space, error) {
	const op = "spaces.create"
	fields := []zap.Field{zap.String("creator", creator), zap.String("type", in.Type)}

	if !inputval.IsValidDocID(creator) {
		return Space{}, apperr.Log(s.log, op, apperr.Validation("A valid user id is required."), fields...)
	}
	name := normalize.Name(htmlsanitize.PlainText(in.Name))
	if name == "" {
		return Space{}, apperr.Log(s.log, op, apperr.Validation("Name is required."), fields...)
	}
	if in.Type != models.SpaceTypeCommunity && in.Type != models.SpaceTypeGroup {
		return Space{}, apperr.Log(s.log, op, apperr.Validation("Type must be one of: community, group."), fields...)
	}

	now := time.Now().UTC()
	sp := models.Space{
		ID:           primitive.NewObjectID(),
		Type:         in.Type,
		Name:         name,
		NameCI:       text.Fold(name),
		Description:  htmlsanitize.PlainText(in.Description),
		CreatedBy:    creator,
		Members:      []string{creator},
		Admins:       []string{creator},
		ImageURL:     strings.TrimSpace(in.ImageURL),
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Type == models.SpaceTypeCommunity {
		sp.IsPublic = in.IsPublic == nil || *in.IsPublic
		sp.Tags = normalize.Tags(htmlsanitize.PlainTexts(in.Tags))
	} else {
		sp.IsPublic = false
		sp.Tags = []string{}
	}

	var created models.Space
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var err error
		if created, err = s.spaces.Create(ctx, sp); err != nil {
			return err
		}
		return s.users.AddMembership(ctx, creator, sp.MembershipField(), sp.ID.Hex())
	})
	if err != nil {
		return Space{}, apperr.Log(s.log, op, apperr.FromStore(err, "create space"), fields...)
	}

	s.audit.SpaceCreated(ctx, creator, created.ID.Hex(), created.Type, created.Name)
	return project(created), nil
}

// addMember puts uid in the space and the space in uid's list.
func (s *Service) addMember(ctx context.Context, sp models.Space, uid string) error {
	return txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if err := s.spaces.AddMember(ctx, sp.ID, uid, false); err != nil {
			return err
		}
		return s.users.AddMembership(ctx, uid, sp.MembershipField(), sp.ID.Hex())
	})
}

// Join adds uid to a space. Communities are open; a group can only be
// "joined" by someone already in it. Joining twice changes nothing.
func (s *Service) Join(ctx context.Context, uid, spaceID string) (Space, error) {
	const op = "spaces.join"
	fields := []zap.Field{zap.String("uid", uid), zap.String("space_id", spaceID)}

	if !inputval.IsValidDocID(uid) {
		return Space{}, apperr.Log(s.log, op, apperr.Validation("A valid user id is required."), fields...)
	}
	sp, err := s.load(ctx, spaceID)
	if err != nil {
		return Space{}, apperr.Log(s.log, op, err, fields...)
	}
	if sp.IsMember(uid) {
		return project(sp), nil
	}
	if sp.Type == models.SpaceTypeGroup {
		return Space{}, apperr.Log(s.log, op, apperr.Forbidden("Groups can only be joined when an admin adds you."), fields...)
	}

	if err := s.addMember(ctx, sp, uid); err != nil {
		return Space{}, apperr.Log(s.log, op, apperr.FromStore(err, "join space"), fields...)
	}
	s.audit.SpaceJoined(ctx, uid, sp.ID.Hex(), sp.Type)
	return s.reload(ctx, op, sp.ID, fields)
}

// AddMember lets an admin of the space add uid. Adding an existing member
// changes nothing.
func (s *Service) AddMember(ctx context.Context, actor, spaceID, uid string) (Space, error) {
	const op = "spaces.add_member"
	fields := []zap.Field{zap.String("actor", actor), zap.String("uid", uid), zap.String("space_id", spaceID)}

	if !inputval.IsValidDocID(uid) {
		return Space{}, apperr.Log(s.log, op, apperr.Validation("A valid user id is required."), fields...)
	}
	sp, err := s.load(ctx, spaceID)
	if err != nil {
		return Space{}, apperr.Log(s.log, op, err, fields...)
	}
	if !sp.IsAdmin(actor) {
		return Space{}, apperr.Log(s.log, op, apperr.Forbidden("Only admins can add members."), fields...)
	}
	if sp.IsMember(uid) {
		return project(sp), nil
	}
	ok, err := s.users.Exists(ctx, uid)
	if err != nil {
		return Space{}, apperr.Log(s.log, op, apperr.FromStore(err, "load user"), fields...)
	}
	if !ok {
		return Space{}, apperr.Log(s.log, op, apperr.NotFound("user not found"), fields...)
	}

	if err := s.addMember(ctx, sp, uid); err != nil {
		return Space{}, apperr.Log(s.log, op, apperr.FromStore(err, "add member"), fields...)
	}
	s.audit.MemberAdded(ctx, actor, uid, sp.ID.Hex(), sp.Type)
	return s.reload(ctx, op, sp.ID, fields)
}

// Leave removes uid from the space's members and admins and drops the space
// from uid's list. Leaving a space one is not in changes nothing. The last
// admin may leave; the space then has no admins.
func (s *Service) Leave(ctx context.Context, uid, spaceID string) error {
	const op = "spaces.leave"
	fields := []zap.Field{zap.String("uid", uid), zap.String("space_id", spaceID)}

	sp, err := s.load(ctx, spaceID)
	if err != nil {
		return apperr.Log(s.log, op, err, fields...)
	}
	if !sp.IsMember(uid) {
		return nil
	}
	lastAdmin := sp.IsAdmin(uid) && len(sp.Admins) == 1

	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if err := s.spaces.RemoveMember(ctx, sp.ID, uid); err != nil {
			return err
		}
		return s.users.RemoveMembership(ctx, uid, sp.MembershipField(), sp.ID.Hex())
	})
	if err != nil {
		return apperr.Log(s.log, op, apperr.FromStore(err, "leave space"), fields...)
	}

	if lastAdmin {
		s.log.Warn("last admin left space; it has no admins now", fields...)
	}
	s.audit.SpaceLeft(ctx, uid, sp.ID.Hex(), sp.Type, lastAdmin)
	return nil
}

func (s *Service) reload(ctx context.Context, op string, id primitive.ObjectID, fields []zap.Field) (Space, error) {
	sp, err := s.spaces.GetByID(ctx, id)
	if err != nil {
		return Space{}, apperr.Log(s.log, op, apperr.FromStore(err, "space not found"), fields...)
	}
	return project(sp), nil
}

// PostMessage appends a message from a member and updates the space's
// last-message fields in the same update.
func (s *Service) PostMessage(ctx context.Context, spaceID, uid, text string, attachments []string) (models.Message, error) {
	const op = "spaces.post_message"
	fields := []zap.Field{zap.String("uid", uid), zap.String("space_id", spaceID)}

	sp, err := s.load(ctx, spaceID)
	if err != nil {
		return models.Message{}, apperr.Log(s.log, op, err, fields...)
	}
	if !sp.IsMember(uid) {
		return models.Message{}, apperr.Log(s.log, op, apperr.Forbidden("You are not a member of this space."), fields...)
	}
	name, err := s.names.Resolve(ctx, uid)
	if err != nil {
		return models.Message{}, apperr.Log(s.log, op, err, fields...)
	}
	msg, err := messages.Compose(uid, name, text, attachments)
	if err != nil {
		return models.Message{}, apperr.Log(s.log, op, err, fields...)
	}

	matched, err := s.spaces.AppendMessage(ctx, sp.ID, msg)
	if err != nil {
		return models.Message{}, apperr.Log(s.log, op, apperr.FromStore(err, "post message"), fields...)
	}
	if !matched {
		// Left between the membership check and the write.
		return models.Message{}, apperr.Log(s.log, op, apperr.Forbidden("You are not a member of this space."), fields...)
	}
	return msg, nil
}

// ListPublic returns public communities, newest first.
func (s *Service) ListPublic(ctx context.Context, limit int) ([]Space, error) {
	limit = paging.Clamp(limit, paging.ListLimit, maxListLimit)
	rows, err := s.spaces.ListPublic(ctx, int64(limit))
	if err != nil {
		return nil, apperr.Log(s.log, "spaces.list_public", apperr.FromStore(err, "list communities"))
	}
	return projectAll(rows), nil
}

// Search returns the first page of public communities matching term.
func (s *Service) Search(ctx context.Context, term string) ([]Space, error) {
	page, err := s.SearchPage(ctx, term, "", paging.ListLimit)
	if err != nil {
		return nil, err
	}
	return page.Spaces, nil
}

// SearchPage returns public communities whose name, description or a tag
// contains term, ignoring case. after is the Next value of the previous page.
func (s *Service) SearchPage(ctx context.Context, term, after string, limit int) (SearchPage, error) {
	term = normalize.QueryParam(term)
	limit = paging.Clamp(limit, paging.ListLimit, maxListLimit)
	rows, next, err := s.spaces.Search(ctx, term, after, limit)
	if err != nil {
		return SearchPage{}, apperr.Log(s.log, "spaces.search", apperr.FromStore(err, "search communities"), zap.String("term", term))
	}
	return SearchPage{Spaces: projectAll(rows), Next: next}, nil
}

// ListMessages returns the space's most recent limit messages, oldest first.
func (s *Service) ListMessages(ctx context.Context, spaceID string, limit int) ([]models.Message, error) {
	const op = "spaces.list_messages"
	oid, err := parseID(spaceID)
	if err != nil {
		return nil, apperr.Log(s.log, op, err, zap.String("space_id", spaceID))
	}
	limit = paging.MessageLimit(limit)
	sp, err := s.spaces.GetWithRecentMessages(ctx, oid, limit)
	if err != nil {
		return nil, apperr.Log(s.log, op, apperr.FromStore(err, "space not found"), zap.String("space_id", spaceID))
	}
	return messages.Window(sp.Messages, limit), nil
}

// ListMessagesFor is ListMessages for viewer: anyone may read a community,
// only members may read a group.
func (s *Service) ListMessagesFor(ctx context.Context, viewer, spaceID string, limit int) ([]models.Message, error) {
	sp, err := s.load(ctx, spaceID)
	if err != nil {
		return nil, apperr.Log(s.log, "spaces.list_messages", err, zap.String("space_id", spaceID))
	}
	if sp.Type == models.SpaceTypeGroup && !sp.IsMember(viewer) {
		return nil, apperr.Log(s.log, "spaces.list_messages", apperr.Forbidden("You are not a member of this group."),
			zap.String("space_id", spaceID), zap.String("viewer", viewer))
	}
	return s.ListMessages(ctx, spaceID, limit)
}

// Get returns one space.
func (s *Service) Get(ctx context.Context, spaceID string) (Space, error) {
	sp, err := s.load(ctx, spaceID)
	if err != nil {
		return Space{}, apperr.Log(s.log, "spaces.get", err, zap.String("space_id", spaceID))
	}
	return project(sp), nil
}

func (s *Service) listFor(ctx context.Context, uid, spaceType string) ([]Space, error) {
	rows, err := s.spaces.ListForMember(ctx, uid, spaceType)
	if err != nil {
		return nil, apperr.Log(s.log, "spaces.list_for_member", apperr.FromStore(err, "list spaces"),
			zap.String("uid", uid), zap.String("type", spaceType))
	}
	return projectAll(rows), nil
}

// ListUserCommunities returns the communities uid belongs to, most recent
// activity first.
func (s *Service) ListUserCommunities(ctx context.Context, uid string) ([]Space, error) {
	return s.listFor(ctx, uid, models.SpaceTypeCommunity)
}

// ListUserGroups returns the groups uid belongs to, most recent activity
// first.
func (s *Service) ListUserGroups(ctx context.Context, uid string) ([]Space, error) {
	return s.listFor(ctx, uid, models.SpaceTypeGroup)
}
