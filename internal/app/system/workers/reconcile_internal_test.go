package workers

import (
	"reflect"
	"testing"

	spacestore "github.com/dalemusser/bookclub/internal/app/store/spaces"
	userstore "github.com/dalemusser/bookclub/internal/app/store/users"
	"github.com/dalemusser/bookclub/internal/domain/models"
	"github.com/dalemusser/bookclub/internal/testutil"
	"go.uber.org/zap"
)

// Rows handed to repair may be older than the spaces collection. Whatever
// they say, a membership present on both sides must survive.
func TestRepair_KeepsMembershipsThatLandedAfterTheSnapshot(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateUser(ctx, "a", "Alice", "")
	fx.CreateUser(ctx, "b", "Bob", "")
	community := fx.CreateSpace(ctx, "a", "Readers", models.SpaceTypeCommunity, true)
	group := fx.CreateSpace(ctx, "a", "Circle", models.SpaceTypeGroup, false)
	left := fx.CreateSpace(ctx, "a", "Gone", models.SpaceTypeCommunity, true)

	// b's join of both spaces completed on both documents.
	fx.AddSpaceMember(ctx, community.ID, "b", true)
	fx.AddSpaceMember(ctx, group.ID, "b", false)
	users := userstore.New(db)
	if err := users.AddMembership(ctx, "b", userstore.FieldCommunities, community.ID.Hex()); err != nil {
		t.Fatalf("AddMembership failed: %v", err)
	}
	if err := users.AddMembership(ctx, "b", userstore.FieldGroups, group.ID.Hex()); err != nil {
		t.Fatalf("AddMembership failed: %v", err)
	}

	w := NewMembershipReconciler(users, spacestore.New(db), zap.NewNop(), 0)

	tests := []struct {
		name    string
		row     userstore.MembershipRow
		changed bool
	}{
		{"current row", userstore.MembershipRow{UID: "b",
			Communities: []string{community.ID.Hex()}, Groups: []string{group.ID.Hex()}}, false},
		{"row read before the joins", userstore.MembershipRow{UID: "b"}, true},
		{"row read before a leave", userstore.MembershipRow{UID: "b",
			Communities: []string{community.ID.Hex(), left.ID.Hex()}, Groups: []string{group.ID.Hex()}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, err := w.repair(ctx, tt.row)
			if err != nil {
				t.Fatalf("repair failed: %v", err)
			}
			if changed != tt.changed {
				t.Errorf("changed = %v, want %v", changed, tt.changed)
			}
			b := fx.User(ctx, "b")
			if !reflect.DeepEqual(b.Communities, []string{community.ID.Hex()}) || !reflect.DeepEqual(b.Groups, []string{group.ID.Hex()}) {
				t.Errorf("b lists = %v / %v", b.Communities, b.Groups)
			}
		})
	}
}

func TestMinus(t *testing.T) {
	tests := []struct {
		a, b, want []string
	}{
		{nil, nil, nil},
		{[]string{"y", "x"}, nil, []string{"x", "y"}},
		{[]string{"x", "y", "x"}, []string{"y"}, []string{"x"}},
		{[]string{"x"}, []string{"x", "z"}, nil},
	}
	for _, tt := range tests {
		if got := minus(tt.a, tt.b); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("minus(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
