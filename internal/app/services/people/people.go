// Package people holds the user-facing access functions: profile sync,
// user search, follows and the reading-status tracker.
package people

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/bookclub/internal/app/services/names"
	userstore "github.com/dalemusser/bookclub/internal/app/store/users"
	"github.com/dalemusser/bookclub/internal/app/system/apperr"
	"github.com/dalemusser/bookclub/internal/app/system/auditlog"
	"github.com/dalemusser/bookclub/internal/app/system/inputval"
	"github.com/dalemusser/bookclub/internal/app/system/normalize"
	"github.com/dalemusser/bookclub/internal/app/system/paging"
	"github.com/dalemusser/bookclub/internal/app/system/txn"
	"github.com/dalemusser/bookclub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// UserSummary is the search-result projection of a user.
type UserSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// Profile is the full projection of a user record, without the reading list.
// IsFollowing is relative to the viewer the profile was loaded for.
type Profile struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	PhotoURL       string    `json:"photo_url,omitempty"`
	Communities    []string  `json:"communities"`
	Groups         []string  `json:"groups"`
	Following      []string  `json:"following"`
	Followers      []string  `json:"followers"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	BooksCount     int       `json:"books_count"`
	IsFollowing    bool      `json:"is_following"`
	CreatedAt      time.Time `json:"created_at"`
}

// Suggestion is a user the viewer might follow.
type Suggestion struct {
	UserSummary
	FollowersCount int  `json:"followers_count"`
	IsFollowing    bool `json:"is_following"`
}

// ReadingEntry is one book on a reading list.
type ReadingEntry struct {
	BookID    string    `json:"book_id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookInfo carries the descriptive fields stored with a reading status.
type BookInfo struct {
	Title  string
	Author string
}

// Identity is the identity-provider profile of a signed-in user.
type Identity struct {
	UID      string
	Name     string
	Email    string
	PhotoURL string
}

type Service struct {
	db    *mongo.Database
	users *userstore.Store
	audit *auditlog.Logger
	log   *zap.Logger
}

func New(db *mongo.Database, audit *auditlog.Logger, log *zap.Logger) *Service {
	return &Service{
		db:    db,
		users: userstore.New(db),
		audit: audit,
		log:   log,
	}
}

func summary(u models.User) UserSummary {
	return UserSummary{ID: u.UID, Name: names.Choose(u), Email: u.Email, PhotoURL: u.PhotoURL}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func profile(u models.User, viewer string) Profile {
	return Profile{
		ID:             u.UID,
		Name:           names.Choose(u),
		Email:          u.Email,
		PhotoURL:       u.PhotoURL,
		Communities:    nonNil(u.Communities),
		Groups:         nonNil(u.Groups),
		Following:      nonNil(u.Following),
		Followers:      nonNil(u.Followers),
		FollowersCount: len(u.Followers),
		FollowingCount: len(u.Following),
		BooksCount:     len(u.Books),
		IsFollowing:    viewer != u.UID && slices.Contains(u.Followers, viewer),
		CreatedAt:      u.CreatedAt,
	}
}

func checkUID(uid string) error {
	if !inputval.IsValidDocID(uid) {
		return apperr.Validation("A valid user id is required.")
	}
	return nil
}

// SyncProfile creates the caller's user record on first sight and refreshes
// the identity-provider fields afterwards.
func (s *Service) SyncProfile(ctx context.Context, id Identity) (Profile, error) {
	const op = "people.sync_profile"
	if err := checkUID(id.UID); err != nil {
		return Profile{}, apperr.Log(s.log, op, err)
	}
	if e := normalize.Email(id.Email); e != "" && !inputval.IsValidEmail(e) {
		return Profile{}, apperr.Log(s.log, op, apperr.Validation("A valid email address is required."))
	}

	u, err := s.users.UpsertProfile(ctx, userstore.Profile{
		UID:      id.UID,
		Name:     id.Name,
		Email:    id.Email,
		PhotoURL: id.PhotoURL,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		return Profile{}, apperr.Log(s.log, op, apperr.Conflict("That email address is already used by another account."), zap.String("uid", id.UID))
	}
	if err != nil {
		return Profile{}, apperr.Log(s.log, op, apperr.FromStore(err, "save profile"), zap.String("uid", id.UID))
	}
	return profile(u, id.UID), nil
}

// SearchUsers matches term against name and email, case-insensitively.
// A blank term returns no users.
func (s *Service) SearchUsers(ctx context.Context, term string) ([]UserSummary, error) {
	term = normalize.QueryParam(term)
	out := []UserSummary{}
	if term == "" {
		return out, nil
	}
	users, err := s.users.Search(ctx, term, paging.ListLimit)
	if err != nil {
		return nil, apperr.Log(s.log, "people.search", apperr.FromStore(err, "search users"), zap.String("term", term))
	}
	for _, u := range users {
		out = append(out, summary(u))
	}
	return out, nil
}

// GetProfile returns uid's profile as seen by viewer.
func (s *Service) GetProfile(ctx context.Context, viewer, uid string) (Profile, error) {
	u, err := s.users.GetByUID(ctx, uid)
	if err != nil {
		return Profile{}, apperr.Log(s.log, "people.get_profile", apperr.FromStore(err, "user not found"), zap.String("uid", uid))
	}
	return profile(u, viewer), nil
}

// Suggested returns users viewer does not follow yet, most followed first.
// A viewer without a user record follows nobody.
func (s *Service) Suggested(ctx context.Context, viewer string) ([]Suggestion, error) {
	const op = "people.suggested"
	if err := checkUID(viewer); err != nil {
		return nil, apperr.Log(s.log, op, err)
	}
	exclude := []string{viewer}
	u, err := s.users.GetByUID(ctx, viewer)
	switch {
	case err == nil:
		exclude = append(exclude, u.Following...)
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, apperr.Log(s.log, op, apperr.FromStore(err, "load viewer"), zap.String("uid", viewer))
	}

	rows, err := s.users.Suggested(ctx, exclude, paging.ListLimit)
	if err != nil {
		return nil, apperr.Log(s.log, op, apperr.FromStore(err, "suggest users"), zap.String("uid", viewer))
	}
	out := make([]Suggestion, 0, len(rows))
	for _, r := range rows {
		out = append(out, Suggestion{UserSummary: summary(r.User), FollowersCount: r.FollowersCount})
	}
	return out, nil
}

func (s *Service) checkFollow(ctx context.Context, follower, target string) error {
	if err := checkUID(follower); err != nil {
		return err
	}
	if err := checkUID(target); err != nil {
		return err
	}
	if follower == target {
		return apperr.Validation("You cannot follow yourself.")
	}
	ok, err := s.users.Exists(ctx, target)
	if err != nil {
		return apperr.FromStore(err, "load user")
	}
	if !ok {
		return apperr.NotFound("user not found")
	}
	return nil
}

// Follow records follower -> target on both user documents. Idempotent.
func (s *Service) Follow(ctx context.Context, follower, target string) error {
	const op = "people.follow"
	fields := []zap.Field{zap.String("follower", follower), zap.String("target", target)}
	if err := s.checkFollow(ctx, follower, target); err != nil {
		return apperr.Log(s.log, op, err, fields...)
	}
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		return s.users.Link(ctx, follower, target)
	})
	if err != nil {
		return apperr.Log(s.log, op, apperr.FromStore(err, "follow user"), fields...)
	}
	s.audit.UserFollowed(ctx, follower, target)
	return nil
}

// Unfollow removes follower -> target from both user documents. Idempotent.
func (s *Service) Unfollow(ctx context.Context, follower, target string) error {
	const op = "people.unfollow"
	fields := []zap.Field{zap.String("follower", follower), zap.String("target", target)}
	if err := s.checkFollow(ctx, follower, target); err != nil {
		return apperr.Log(s.log, op, err, fields...)
	}
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		return s.users.Unlink(ctx, follower, target)
	})
	if err != nil {
		return apperr.Log(s.log, op, apperr.FromStore(err, "unfollow user"), fields...)
	}
	s.audit.UserUnfollowed(ctx, follower, target)
	return nil
}

// SetStatus records status for bookID on uid's reading list, replacing any
// previous entry. status is stored as given.
func (s *Service) SetStatus(ctx context.Context, uid, bookID, status string, info BookInfo) (ReadingEntry, error) {
	const op = "people.set_status"
	fields := []zap.Field{zap.String("uid", uid), zap.String("book_id", bookID)}
	if err := checkUID(uid); err != nil {
		return ReadingEntry{}, apperr.Log(s.log, op, err, fields...)
	}
	if !inputval.IsValidDocID(bookID) {
		return ReadingEntry{}, apperr.Log(s.log, op, apperr.Validation("A valid book id is required."), fields...)
	}

	b := models.BookStatus{
		Title:     strings.TrimSpace(info.Title),
		Author:    strings.TrimSpace(info.Author),
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.users.SetBookStatus(ctx, uid, bookID, b); err != nil {
		return ReadingEntry{}, apperr.Log(s.log, op, apperr.FromStore(err, "user not found"), fields...)
	}
	return ReadingEntry{BookID: bookID, Title: b.Title, Author: b.Author, Status: b.Status, UpdatedAt: b.UpdatedAt}, nil
}

// ReadingList returns uid's books, most recently updated first.
func (s *Service) ReadingList(ctx context.Context, uid string) ([]ReadingEntry, error) {
	u, err := s.users.GetByUID(ctx, uid)
	if err != nil {
		return nil, apperr.Log(s.log, "people.reading_list", apperr.FromStore(err, "user not found"), zap.String("uid", uid))
	}
	out := make([]ReadingEntry, 0, len(u.Books))
	for id, b := range u.Books {
		out = append(out, ReadingEntry{BookID: id, Title: b.Title, Author: b.Author, Status: b.Status, UpdatedAt: b.UpdatedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].BookID < out[j].BookID
	})
	return out, nil
}
