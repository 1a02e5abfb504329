package chats_test

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/dalemusser/bookclub/internal/app/services/chats"
	"github.com/dalemusser/bookclub/internal/app/system/apperr"
	"github.com/dalemusser/bookclub/internal/app/system/indexes"
	"github.com/dalemusser/bookclub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*chats.Service, *testutil.Fixtures, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	fx := testutil.NewFixtures(t, db)
	fx.CreateUser(ctx, "a", "Alice", "alice@example.com")
	fx.CreateUser(ctx, "b", "", "bob@example.com")
	return chats.New(db, zap.NewNop()), fx, db
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	svc, _, db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, err := svc.GetOrCreate(ctx, "a", "b")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	second, err := svc.GetOrCreate(ctx, "b", "a")
	if err != nil {
		t.Fatalf("second GetOrCreate failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("ids differ: %s vs %s", first.ID, second.ID)
	}
	if first.LastMessage != nil {
		t.Error("new chat should have null last message")
	}
	if first.UnreadCount["a"] != 0 || first.UnreadCount["b"] != 0 {
		t.Errorf("UnreadCount = %v", first.UnreadCount)
	}
	if first.ParticipantNames["a"] != "Alice" || first.ParticipantNames["b"] != "bob@example.com" {
		t.Errorf("ParticipantNames = %v", first.ParticipantNames)
	}

	n, err := db.Collection("chats").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if n != 1 {
		t.Errorf("chat documents = %d, want 1", n)
	}
}

func TestGetOrCreate_ConcurrentCallers(t *testing.T) {
	svc, _, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	const n = 6
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := svc.GetOrCreate(ctx, "a", "b")
			ids[i], errs[i] = c.ID, err
		}(i)
	}
	wg.Wait()
	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("call %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("call %d returned %s, want %s", i, ids[i], ids[0])
		}
	}
}

func TestGetOrCreate_Validation(t *testing.T) {
	svc, _, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, pair := range [][2]string{{"a", "a"}, {"", "b"}, {"a", "x.y"}} {
		if _, err := svc.GetOrCreate(ctx, pair[0], pair[1]); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("GetOrCreate(%q, %q) err = %v, want Validation", pair[0], pair[1], err)
		}
	}
}

func TestGetOrCreate_SeparatorInIDs(t *testing.T) {
	svc, _, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	existing, err := svc.GetOrCreate(ctx, "a|b", "c")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	other, err := svc.GetOrCreate(ctx, "a", "b|c")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if other.ID == existing.ID {
		t.Fatal("different pairs returned the same chat")
	}
	if !slices.Contains(other.Participants, "a") || !slices.Contains(other.Participants, "b|c") {
		t.Errorf("Participants = %v, want a and b|c", other.Participants)
	}
}

func TestUnreadCounters(t *testing.T) {
	svc, fx, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c, err := svc.GetOrCreate(ctx, "a", "b")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	const n = 4
	for i := 0; i < n; i++ {
		msg, err := svc.SendMessage(ctx, c.ID, "a", "hello", nil)
		if err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
		if msg.SenderName != "Alice" {
			t.Errorf("SenderName = %q", msg.SenderName)
		}
	}

	oid, _ := primitive.ObjectIDFromHex(c.ID)
	got := fx.Chat(ctx, oid)
	if got.UnreadCount["b"] != n || got.UnreadCount["a"] != 0 {
		t.Errorf("UnreadCount = %v, want b=%d a=0", got.UnreadCount, n)
	}

	summaries, err := svc.ListForUser(ctx, "b")
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(summaries) != 1 || summaries[0].UnreadCount != n || summaries[0].OtherUserName != "Alice" {
		t.Errorf("summaries = %+v", summaries)
	}

	if err := svc.MarkRead(ctx, c.ID, "b"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if err := svc.MarkRead(ctx, c.ID, "b"); err != nil {
		t.Fatalf("repeat MarkRead failed: %v", err)
	}
	if got := fx.Chat(ctx, oid).UnreadCount; got["b"] != 0 {
		t.Errorf("UnreadCount after read = %v", got)
	}
}

func TestForbiddenLeavesChatUntouched(t *testing.T) {
	svc, fx, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c, err := svc.GetOrCreate(ctx, "a", "b")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if _, err := svc.SendMessage(ctx, c.ID, "a", "hi", nil); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	oid, _ := primitive.ObjectIDFromHex(c.ID)
	before := fx.Chat(ctx, oid)

	if _, err := svc.SendMessage(ctx, c.ID, "mallory", "intrude", nil); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("outsider send err = %v, want Forbidden", err)
	}
	if err := svc.MarkRead(ctx, c.ID, "mallory"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("outsider mark read err = %v, want Forbidden", err)
	}
	if _, err := svc.ListMessagesFor(ctx, "mallory", c.ID, 10); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("outsider list err = %v, want Forbidden", err)
	}

	after := fx.Chat(ctx, oid)
	if len(after.Messages) != len(before.Messages) || after.UnreadCount["b"] != before.UnreadCount["b"] {
		t.Error("forbidden calls must not change the chat")
	}
}

func TestSendMessage_Errors(t *testing.T) {
	svc, _, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := svc.SendMessage(ctx, primitive.NewObjectID().Hex(), "a", "hi", nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing chat err = %v, want NotFound", err)
	}
	if _, err := svc.SendMessage(ctx, "not-an-id", "a", "hi", nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("malformed id err = %v, want NotFound", err)
	}

	c, err := svc.GetOrCreate(ctx, "a", "b")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if _, err := svc.SendMessage(ctx, c.ID, "a", "  <p></p> ", nil); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty text err = %v, want Validation", err)
	}
}

func TestListMessages_Order(t *testing.T) {
	svc, _, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c, err := svc.GetOrCreate(ctx, "a", "b")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	for _, text := range []string{"t1", "t2", "t3"} {
		if _, err := svc.SendMessage(ctx, c.ID, "b", text, nil); err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
	}

	msgs, err := svc.ListMessages(ctx, c.ID, 3)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	for i, want := range []string{"t1", "t2", "t3"} {
		if msgs[i].Text != want {
			t.Errorf("msgs[%d] = %q, want %q", i, msgs[i].Text, want)
		}
	}
	if msgs[0].SenderName != "bob@example.com" {
		t.Errorf("SenderName = %q, want email fallback", msgs[0].SenderName)
	}

	msgs, err = svc.ListMessages(ctx, c.ID, 2)
	if err != nil {
		t.Fatalf("ListMessages(2) failed: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Text != "t2" {
		t.Errorf("ListMessages(2) = %+v", msgs)
	}
}

func TestListForUser_Order(t *testing.T) {
	svc, fx, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateUser(ctx, "c", "Cara", "")

	ab, err := svc.GetOrCreate(ctx, "a", "b")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	ac, err := svc.GetOrCreate(ctx, "a", "c")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if _, err := svc.SendMessage(ctx, ab.ID, "b", "newest", nil); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	list, err := svc.ListForUser(ctx, "a")
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != ab.ID || list[1].ID != ac.ID {
		t.Fatalf("order = %+v", list)
	}
	if list[0].OtherUserID != "b" || list[1].OtherUserName != "Cara" {
		t.Errorf("summaries = %+v", list)
	}
	if list[0].LastMessage == nil || *list[0].LastMessage != "newest" {
		t.Errorf("LastMessage = %v", list[0].LastMessage)
	}

	got, err := svc.Get(ctx, ab.ID, "b")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.OtherUserID != "a" || got.OtherUserName != "Alice" {
		t.Errorf("Get = %+v", got)
	}
}
