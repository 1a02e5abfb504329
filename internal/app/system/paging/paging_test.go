package paging

import (
	"net/http/httptest"
	"reflect"
	"testing"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		n, def, max, want int
	}{
		{0, 50, 200, 50},
		{-3, 50, 200, 50},
		{10, 50, 200, 10},
		{200, 50, 200, 200},
		{500, 50, 200, 200},
	}
	for _, tt := range tests {
		if got := Clamp(tt.n, tt.def, tt.max); got != tt.want {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tt.n, tt.def, tt.max, got, tt.want)
		}
	}
}

func TestMessageLimit_Configure(t *testing.T) {
	t.Cleanup(ResetMessages)

	if got := MessageLimit(0); got != DefaultMessageLimit {
		t.Errorf("MessageLimit(0) = %d, want %d", got, DefaultMessageLimit)
	}

	ConfigureMessages(30, 100)
	if got := MessageLimit(0); got != 30 {
		t.Errorf("MessageLimit(0) = %d, want 30", got)
	}
	if got := MessageLimit(1000); got != 100 {
		t.Errorf("MessageLimit(1000) = %d, want 100", got)
	}

	ConfigureMessages(500, 0)
	if got := MessageLimit(0); got != 100 {
		t.Errorf("default above max should be capped, got %d", got)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		url  string
		want int
	}{
		{"/x", 0},
		{"/x?limit=25", 25},
		{"/x?limit=abc", 0},
		{"/x?limit=-5", 0},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", tt.url, nil)
		if got := ParseLimit(r); got != tt.want {
			t.Errorf("ParseLimit(%s) = %d, want %d", tt.url, got, tt.want)
		}
	}
}

func TestTail(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}

	tests := []struct {
		n    int
		want []int
	}{
		{3, []int{3, 4, 5}},
		{5, []int{1, 2, 3, 4, 5}},
		{10, []int{1, 2, 3, 4, 5}},
		{0, []int{}},
	}
	for _, tt := range tests {
		if got := Tail(rows, tt.n); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tail(%v, %d) = %v, want %v", rows, tt.n, got, tt.want)
		}
	}

	got := Tail(rows, 2)
	got[0] = 99
	if rows[3] != 4 {
		t.Error("Tail must not alias the input slice")
	}
}

func TestTrimNextAndAfter(t *testing.T) {
	type row struct {
		id   primitive.ObjectID
		name string
	}
	rows := []row{
		{primitive.NewObjectID(), "alpha"},
		{primitive.NewObjectID(), "beta"},
		{primitive.NewObjectID(), "gamma"},
	}

	next := TrimNext(&rows, 2, func(r row) string { return r.name }, func(r row) primitive.ObjectID { return r.id })
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if next == "" {
		t.Fatal("expected a next cursor")
	}
	c, ok := wafflemongo.DecodeCursor(next)
	if !ok || c.CI != "beta" || c.ID != rows[1].id {
		t.Errorf("cursor decodes to %+v, want beta/%s", c, rows[1].id.Hex())
	}
	if After("name_ci", next) == nil {
		t.Error("After should return a window for a valid cursor")
	}

	short := rows[:1]
	if TrimNext(&short, 2, func(r row) string { return r.name }, func(r row) primitive.ObjectID { return r.id }) != "" {
		t.Error("no next cursor expected when fewer rows than limit")
	}
	if After("name_ci", "") != nil {
		t.Error("empty cursor should produce no window")
	}
}
