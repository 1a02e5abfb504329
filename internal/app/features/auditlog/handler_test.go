package auditlog_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/bookclub/internal/app/features/auditlog"
	"github.com/dalemusser/bookclub/internal/app/store/audit"
	"github.com/dalemusser/bookclub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type listBody struct {
	Items []struct {
		EventType string `json:"event_type"`
		UserUID   string `json:"user_uid"`
		UserName  string `json:"user_name"`
		ActorName string `json:"actor_name"`
	} `json:"items"`
	Page       int   `json:"page"`
	TotalPages int   `json:"total_pages"`
	Total      int64 `json:"total"`
}

func newRouter(t *testing.T) (http.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	r := chi.NewRouter()
	r.Mount("/api/audit", auditlog.Routes(auditlog.NewHandler(db, zap.NewNop())))
	return r, testutil.NewFixtures(t, db)
}

func TestNewHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)
	if auditlog.NewHandler(db, zap.NewNop()) == nil {
		t.Fatal("NewHandler() returned nil")
	}
}

func TestServeList_Unauthenticated(t *testing.T) {
	router, _ := newRouter(t)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/api/audit?space_id=000000000000000000000000", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestServeList_BadSpaceID(t *testing.T) {
	router, _ := newRouter(t)

	for _, target := range []string{"/api/audit", "/api/audit?space_id=nope"} {
		rec := testutil.NewRecorder()
		router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, target, "ann", nil))
		rec.AssertStatus(t, http.StatusBadRequest)
		rec.AssertErrorCode(t, "VALIDATION")
	}
}

func TestServeList_UnknownSpace(t *testing.T) {
	router, _ := newRouter(t)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/api/audit?space_id=000000000000000000000000", "ann", nil))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestServeList_AdminOnly(t *testing.T) {
	router, fx := newRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateUser(ctx, "ann", "Ann", "")
	fx.CreateUser(ctx, "ben", "Ben", "")
	sp := fx.CreateSpace(ctx, "ann", "Mystery Club", "community", true)
	fx.AddSpaceMember(ctx, sp.ID, "ben", false)

	store := audit.New(fx.DB())
	events := []audit.Event{
		{Category: audit.CategoryMembership, EventType: audit.EventSpaceCreated, ActorUID: "ann", UserUID: "ann", SpaceID: sp.ID.Hex(), Success: true},
		{Category: audit.CategoryMembership, EventType: audit.EventSpaceJoined, ActorUID: "ben", UserUID: "ben", SpaceID: sp.ID.Hex(), Success: true},
		{Category: audit.CategoryMembership, EventType: audit.EventSpaceJoined, ActorUID: "ben", UserUID: "ben", SpaceID: "other", Success: true},
		{Category: audit.CategorySocial, EventType: audit.EventUserFollowed, ActorUID: "ben", UserUID: "ann", SpaceID: sp.ID.Hex(), Success: true},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	target := "/api/audit?space_id=" + sp.ID.Hex()

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, target, "ben", nil))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, target, "ann", nil))
	rec.AssertStatus(t, http.StatusOK)
	var body listBody
	rec.DecodeJSON(t, &body)
	if body.Total != 2 || len(body.Items) != 2 {
		t.Fatalf("total = %d, items = %d, want 2", body.Total, len(body.Items))
	}
	if body.Page != 1 || body.TotalPages != 1 {
		t.Errorf("page = %d/%d, want 1/1", body.Page, body.TotalPages)
	}
	for _, it := range body.Items {
		if it.UserUID == "ben" && it.UserName != "Ben" {
			t.Errorf("user_name = %q, want Ben", it.UserName)
		}
	}

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, target+"&event_type="+audit.EventSpaceJoined, "ann", nil))
	rec.AssertStatus(t, http.StatusOK)
	body = listBody{}
	rec.DecodeJSON(t, &body)
	if body.Total != 1 || body.Items[0].ActorName != "Ben" {
		t.Errorf("filtered = %+v", body)
	}
}

func TestServeList_BadDate(t *testing.T) {
	router, fx := newRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateUser(ctx, "ann", "Ann", "")
	sp := fx.CreateSpace(ctx, "ann", "Mystery Club", "community", true)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet,
		"/api/audit?space_id="+sp.ID.Hex()+"&start_date=yesterday", "ann", nil))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestServeMine(t *testing.T) {
	router, fx := newRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateUser(ctx, "ann", "Ann", "")
	fx.CreateUser(ctx, "ben", "Ben", "")

	store := audit.New(fx.DB())
	events := []audit.Event{
		{Category: audit.CategoryMembership, EventType: audit.EventSpaceJoined, ActorUID: "ben", UserUID: "ben", SpaceID: "s1", Success: true},
		{Category: audit.CategorySocial, EventType: audit.EventUserFollowed, ActorUID: "ann", UserUID: "ben", Success: true},
		{Category: audit.CategoryMembership, EventType: audit.EventSpaceJoined, ActorUID: "ann", UserUID: "ann", SpaceID: "s1", Success: true},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/api/audit/mine", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/api/audit/mine", "ben", nil))
	rec.AssertStatus(t, http.StatusOK)
	var items []struct {
		Category  string `json:"category"`
		EventType string `json:"event_type"`
		ActorName string `json:"actor_name"`
		UserUID   string `json:"user_uid"`
	}
	rec.DecodeJSON(t, &items)
	if len(items) != 2 {
		t.Fatalf("items = %+v, want 2", items)
	}
	for _, it := range items {
		if it.UserUID != "ben" {
			t.Errorf("event for %q leaked into ben's history", it.UserUID)
		}
		if it.Category == audit.CategorySocial && it.ActorName != "Ann" {
			t.Errorf("actor_name = %q, want Ann", it.ActorName)
		}
	}
}
