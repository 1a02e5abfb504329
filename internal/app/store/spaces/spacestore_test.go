package spacestore_test

import (
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	spacestore "github.com/dalemusser/bookclub/internal/app/store/spaces"
	"github.com/dalemusser/bookclub/internal/domain/models"
	"github.com/dalemusser/bookclub/internal/testutil"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func newSpace(name, spaceType string, public bool, created time.Time, tags ...string) models.Space {
	return models.Space{
		Type:         spaceType,
		Name:         name,
		NameCI:       text.Fold(name),
		Description:  "about " + name,
		CreatedBy:    "owner",
		Members:      []string{"owner"},
		Admins:       []string{"owner"},
		IsPublic:     public,
		Tags:         tags,
		LastActivity: created,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := spacestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sp, err := store.Create(ctx, newSpace("Mystery Lovers", models.SpaceTypeCommunity, true, time.Now().UTC()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sp.ID.IsZero() {
		t.Fatal("expected an id")
	}

	got, err := store.GetByID(ctx, sp.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Mystery Lovers" || !got.IsAdmin("owner") || got.Tags == nil {
		t.Errorf("unexpected space: %+v", got)
	}

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("err = %v, want ErrNoDocuments", err)
	}
}

func TestStore_AddRemoveMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := spacestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sp := fx.CreateSpace(ctx, "owner", "Readers", models.SpaceTypeCommunity, true)

	for i := 0; i < 2; i++ {
		if err := store.AddMember(ctx, sp.ID, "u1", false); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}
	}
	if err := store.AddMember(ctx, sp.ID, "u2", true); err != nil {
		t.Fatalf("AddMember(admin) failed: %v", err)
	}
	got := fx.Space(ctx, sp.ID)
	if !reflect.DeepEqual(got.Members, []string{"owner", "u1", "u2"}) {
		t.Errorf("Members = %v", got.Members)
	}
	if !reflect.DeepEqual(got.Admins, []string{"owner", "u2"}) {
		t.Errorf("Admins = %v", got.Admins)
	}

	if err := store.RemoveMember(ctx, sp.ID, "u2"); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	got = fx.Space(ctx, sp.ID)
	if got.IsMember("u2") || got.IsAdmin("u2") {
		t.Error("u2 should be gone from members and admins")
	}

	if err := store.AddMember(ctx, primitive.NewObjectID(), "u1", false); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("AddMember(missing) err = %v", err)
	}
	if err := store.RemoveMember(ctx, primitive.NewObjectID(), "u1"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("RemoveMember(missing) err = %v", err)
	}
}

func TestStore_AppendMessage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := spacestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sp := fx.CreateSpace(ctx, "owner", "Readers", models.SpaceTypeGroup, false)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, txt := range []string{"first", "second", "third"} {
		msg := models.Message{ID: primitive.NewObjectID(), SenderID: "owner", SenderName: "Owner", Text: txt, Timestamp: base.Add(time.Duration(i) * time.Second)}
		matched, err := store.AppendMessage(ctx, sp.ID, msg)
		if err != nil || !matched {
			t.Fatalf("AppendMessage(%s) = %v, %v", txt, matched, err)
		}
	}

	got, err := store.GetWithRecentMessages(ctx, sp.ID, 2)
	if err != nil {
		t.Fatalf("GetWithRecentMessages failed: %v", err)
	}
	if len(got.Messages) != 2 || got.Messages[0].Text != "second" || got.Messages[1].Text != "third" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.LastMessage == nil || *got.LastMessage != "third" {
		t.Errorf("LastMessage = %v", got.LastMessage)
	}
	if !got.LastActivity.Equal(base.Add(2 * time.Second)) {
		t.Errorf("LastActivity = %v", got.LastActivity)
	}

	msg := models.Message{ID: primitive.NewObjectID(), SenderID: "stranger", Text: "hi", Timestamp: base}
	matched, err := store.AppendMessage(ctx, sp.ID, msg)
	if err != nil {
		t.Fatalf("AppendMessage(stranger) error: %v", err)
	}
	if matched {
		t.Error("non-member append should not match")
	}
}

func TestStore_ListPublic(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := spacestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC()
	for _, sp := range []models.Space{
		newSpace("Old", models.SpaceTypeCommunity, true, base.Add(-2*time.Hour)),
		newSpace("New", models.SpaceTypeCommunity, true, base),
		newSpace("Hidden", models.SpaceTypeCommunity, false, base),
		newSpace("Group", models.SpaceTypeGroup, false, base),
	} {
		if _, err := store.Create(ctx, sp); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	got, err := store.ListPublic(ctx, 20)
	if err != nil {
		t.Fatalf("ListPublic failed: %v", err)
	}
	if len(got) != 2 || got[0].Name != "New" || got[1].Name != "Old" {
		t.Errorf("ListPublic = %+v", got)
	}

	got, err = store.ListPublic(ctx, 1)
	if err != nil {
		t.Fatalf("ListPublic(1) failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}

func TestStore_Search(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := spacestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	for _, sp := range []models.Space{
		newSpace("Fantasy Readers", models.SpaceTypeCommunity, true, now, "dragons"),
		newSpace("Sci-Fi Club", models.SpaceTypeCommunity, true, now, "space opera"),
		newSpace("Private Fantasy", models.SpaceTypeCommunity, false, now),
		newSpace("Fantasy Group", models.SpaceTypeGroup, false, now),
	} {
		if _, err := store.Create(ctx, sp); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	tests := []struct {
		term string
		want []string
	}{
		{"fantasy", []string{"Fantasy Readers"}},
		{"DRAGON", []string{"Fantasy Readers"}},
		{"opera", []string{"Sci-Fi Club"}},
		{"about", []string{"Fantasy Readers", "Sci-Fi Club"}},
		{"(", nil},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			rows, next, err := store.Search(ctx, tt.term, "", 20)
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if next != "" {
				t.Errorf("next = %q, want empty", next)
			}
			var names []string
			for _, r := range rows {
				names = append(names, r.Name)
			}
			sort.Strings(names)
			if !reflect.DeepEqual(names, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.term, names, tt.want)
			}
		})
	}
}

func TestStore_Search_Pages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := spacestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	for _, name := range []string{"Club A", "Club B", "Club C"} {
		if _, err := store.Create(ctx, newSpace(name, models.SpaceTypeCommunity, true, now)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	page1, next, err := store.Search(ctx, "club", "", 2)
	if err != nil {
		t.Fatalf("Search page 1 failed: %v", err)
	}
	if len(page1) != 2 || page1[0].Name != "Club A" || page1[1].Name != "Club B" || next == "" {
		t.Fatalf("page 1 = %+v, next %q", page1, next)
	}

	page2, next, err := store.Search(ctx, "club", next, 2)
	if err != nil {
		t.Fatalf("Search page 2 failed: %v", err)
	}
	if len(page2) != 1 || page2[0].Name != "Club C" || next != "" {
		t.Errorf("page 2 = %+v, next %q", page2, next)
	}
}

func TestStore_ListForMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := spacestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	quiet := fx.CreateSpace(ctx, "u", "Quiet", models.SpaceTypeCommunity, true)
	busy := fx.CreateSpace(ctx, "u", "Busy", models.SpaceTypeCommunity, true)
	fx.CreateSpace(ctx, "u", "Circle", models.SpaceTypeGroup, false)
	fx.CreateSpace(ctx, "other", "Elsewhere", models.SpaceTypeCommunity, true)

	msg := models.Message{ID: primitive.NewObjectID(), SenderID: "u", Text: "ping", Timestamp: time.Now().UTC().Add(time.Minute)}
	if _, err := store.AppendMessage(ctx, busy.ID, msg); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	got, err := store.ListForMember(ctx, "u", models.SpaceTypeCommunity)
	if err != nil {
		t.Fatalf("ListForMember failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != busy.ID || got[1].ID != quiet.ID {
		t.Errorf("ListForMember = %+v", got)
	}

	groups, err := store.ListForMember(ctx, "u", models.SpaceTypeGroup)
	if err != nil {
		t.Fatalf("ListForMember(group) failed: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "Circle" {
		t.Errorf("groups = %+v", groups)
	}
}

func TestStore_ForEachMembers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := spacestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	sp := fx.CreateSpace(ctx, "a", "One", models.SpaceTypeGroup, false)
	fx.AddSpaceMember(ctx, sp.ID, "b", false)

	var rows []spacestore.MemberRow
	if err := store.ForEachMembers(ctx, func(r spacestore.MemberRow) error {
		rows = append(rows, r)
		return nil
	}); err != nil {
		t.Fatalf("ForEachMembers failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Type != models.SpaceTypeGroup || !reflect.DeepEqual(rows[0].Members, []string{"a", "b"}) {
		t.Errorf("rows = %+v", rows)
	}
}

func TestStore_MembershipsOf(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	store := spacestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	community := fx.CreateSpace(ctx, "a", "Readers", models.SpaceTypeCommunity, true)
	group := fx.CreateSpace(ctx, "a", "Circle", models.SpaceTypeGroup, false)
	fx.CreateSpace(ctx, "b", "Elsewhere", models.SpaceTypeCommunity, true)

	communities, groups, err := store.MembershipsOf(ctx, "a")
	if err != nil {
		t.Fatalf("MembershipsOf failed: %v", err)
	}
	if !reflect.DeepEqual(communities, []string{community.ID.Hex()}) || !reflect.DeepEqual(groups, []string{group.ID.Hex()}) {
		t.Errorf("MembershipsOf(a) = %v / %v", communities, groups)
	}

	communities, groups, err = store.MembershipsOf(ctx, "nobody")
	if err != nil {
		t.Fatalf("MembershipsOf(nobody) failed: %v", err)
	}
	if len(communities) != 0 || len(groups) != 0 {
		t.Errorf("MembershipsOf(nobody) = %v / %v", communities, groups)
	}
}
