// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/bookclub/internal/app/services/names"
	"github.com/dalemusser/bookclub/internal/app/store/audit"
	spacestore "github.com/dalemusser/bookclub/internal/app/store/spaces"
	userstore "github.com/dalemusser/bookclub/internal/app/store/users"
	"github.com/dalemusser/bookclub/internal/app/system/apperr"
	"github.com/dalemusser/bookclub/internal/app/system/auth"
	"github.com/dalemusser/bookclub/internal/app/system/httpjson"
	"github.com/dalemusser/bookclub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const pageSize = 50

// listItem is one audit event with names resolved for display.
type listItem struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Category  string            `json:"category"`
	EventType string            `json:"event_type"`
	SpaceID   string            `json:"space_id,omitempty"`
	ActorUID  string            `json:"actor_uid,omitempty"`
	ActorName string            `json:"actor_name,omitempty"`
	UserUID   string            `json:"user_uid,omitempty"`
	UserName  string            `json:"user_name,omitempty"`
	Success   bool              `json:"success"`
	Details   map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Items      []listItem `json:"items"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	Total      int64      `json:"total"`
}

// ServeList handles GET /api/audit?space_id=&event_type=&start_date=&end_date=&page=.
// Dates are YYYY-MM-DD in UTC; end_date includes the whole day.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	const op = "auditlog.list"
	id, ok := auth.CurrentIdentity(r)
	if !ok || id.UID == "" {
		h.errs.Write(w, r, op, apperr.Unauthorized("sign in required"))
		return
	}

	spaceID := strings.TrimSpace(query.Get(r, "space_id"))
	oid, err := primitive.ObjectIDFromHex(spaceID)
	if err != nil {
		h.errs.Write(w, r, op, apperr.Validation("A valid space_id is required."))
		return
	}

	page := 1
	if p, err := strconv.Atoi(query.Get(r, "page")); err == nil && p > 0 {
		page = p
	}

	filter := audit.QueryFilter{
		SpaceID:   spaceID,
		Category:  audit.CategoryMembership,
		EventType: strings.TrimSpace(query.Get(r, "event_type")),
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}
	if s := query.Get(r, "start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			h.errs.Write(w, r, op, apperr.Validation("start_date must be YYYY-MM-DD."))
			return
		}
		filter.StartTime = &t
	}
	if s := query.Get(r, "end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			h.errs.Write(w, r, op, apperr.Validation("end_date must be YYYY-MM-DD."))
			return
		}
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		filter.EndTime = &endOfDay
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, op)
	defer cancel()

	sp, err := spacestore.New(h.DB).GetByID(ctx, oid)
	if err != nil {
		h.errs.Write(w, r, op, apperr.FromStore(err, "space not found"))
		return
	}
	if !sp.IsAdmin(id.UID) {
		h.errs.Write(w, r, op, apperr.Forbidden("Only admins can view this space's history."))
		return
	}

	store := audit.New(h.DB)
	events, err := store.Query(ctx, filter)
	if err != nil {
		h.errs.Write(w, r, op, apperr.FromStore(err, "query audit events"))
		return
	}
	total, err := store.CountByFilter(ctx, filter)
	if err != nil {
		h.errs.Write(w, r, op, apperr.FromStore(err, "count audit events"))
		return
	}

	items := h.items(ctx, events)

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}
	httpjson.OK(w, listResponse{Items: items, Page: page, TotalPages: totalPages, Total: total})
}

// ServeMine handles GET /api/audit/mine: the most recent events that
// affected the caller, in any space or category.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	const op = "auditlog.mine"
	id, ok := auth.CurrentIdentity(r)
	if !ok || id.UID == "" {
		h.errs.Write(w, r, op, apperr.Unauthorized("sign in required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	events, err := audit.New(h.DB).GetByUser(ctx, id.UID, pageSize)
	if err != nil {
		h.errs.Write(w, r, op, apperr.FromStore(err, "query audit events"))
		return
	}
	httpjson.OK(w, h.items(ctx, events))
}

// items projects events for display. Actor and target names are resolved in
// one batch; a failed lookup leaves them blank.
func (h *Handler) items(ctx context.Context, events []audit.Event) []listItem {
	uids := make([]string, 0, 2*len(events))
	for _, e := range events {
		if e.ActorUID != "" {
			uids = append(uids, e.ActorUID)
		}
		if e.UserUID != "" {
			uids = append(uids, e.UserUID)
		}
	}
	nm, err := names.New(userstore.New(h.DB)).ResolveMany(ctx, uids)
	if err != nil {
		h.Log.Warn("failed to resolve names for audit log", zap.Error(err))
		nm = map[string]string{}
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, listItem{
			ID:        e.ID.Hex(),
			Timestamp: e.Timestamp,
			Category:  e.Category,
			EventType: e.EventType,
			SpaceID:   e.SpaceID,
			ActorUID:  e.ActorUID,
			ActorName: nm[e.ActorUID],
			UserUID:   e.UserUID,
			UserName:  nm[e.UserUID],
			Success:   e.Success,
			Details:   e.Details,
		})
	}
	return items
}
