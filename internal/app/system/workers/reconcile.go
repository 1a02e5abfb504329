// internal/app/system/workers/reconcile.go
package workers

import (
	"context"
	"sort"
	"sync"
	"time"

	spacestore "github.com/dalemusser/bookclub/internal/app/store/spaces"
	userstore "github.com/dalemusser/bookclub/internal/app/store/users"
	"github.com/dalemusser/bookclub/internal/domain/models"
	"go.uber.org/zap"
)

// MembershipReconciler is a background worker that rebuilds each user's
// communities and groups lists from the member arrays of the spaces
// collection, rewriting only users whose lists drifted.
type MembershipReconciler struct {
	users    *userstore.Store
	spaces   *spacestore.Store
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewMembershipReconciler creates a reconciler that runs every interval.
// A zero interval disables the loop; ReconcileOnce still works.
func NewMembershipReconciler(users *userstore.Store, spaces *spacestore.Store, logger *zap.Logger, interval time.Duration) *MembershipReconciler {
	return &MembershipReconciler{
		users:    users,
		spaces:   spaces,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *MembershipReconciler) Start() {
	if w.interval <= 0 {
		w.log.Info("membership reconciler disabled")
		return
	}
	w.wg.Add(1)
	go w.run()
	w.log.Info("membership reconciler started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *MembershipReconciler) Stop() {
	if w.interval <= 0 {
		return
	}
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("membership reconciler stopped")
}

func (w *MembershipReconciler) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *MembershipReconciler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	n, err := w.ReconcileOnce(ctx)
	if err != nil {
		w.log.Error("membership reconciliation failed", zap.Error(err))
		return
	}
	if n > 0 {
		w.log.Info("repaired membership lists", zap.Int("users", n))
	}
}

type memberships struct {
	communities []string
	groups      []string
}

// ReconcileOnce performs one full pass and returns the number of users
// whose lists were patched. The spaces snapshot only flags candidates;
// each flagged user is re-read against live space membership before any
// write, and only the differing ids are added or pulled.
func (w *MembershipReconciler) ReconcileOnce(ctx context.Context) (int, error) {
	want := make(map[string]*memberships)
	err := w.spaces.ForEachMembers(ctx, func(row spacestore.MemberRow) error {
		id := row.ID.Hex()
		for _, uid := range row.Members {
			m := want[uid]
			if m == nil {
				m = &memberships{}
				want[uid] = m
			}
			if row.Type == models.SpaceTypeGroup {
				m.groups = append(m.groups, id)
			} else {
				m.communities = append(m.communities, id)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	var drifted []userstore.MembershipRow
	err = w.users.ForEachMembership(ctx, func(row userstore.MembershipRow) error {
		m := want[row.UID]
		if m == nil {
			m = &memberships{}
		}
		if !sameSet(row.Communities, m.communities) || !sameSet(row.Groups, m.groups) {
			drifted = append(drifted, row)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, row := range drifted {
		ok, err := w.repair(ctx, row)
		if err != nil {
			return repaired, err
		}
		if ok {
			repaired++
		}
	}
	return repaired, nil
}

// repair patches one user's lists toward the spaces that list them right
// now. Ids that agree on both sides are never touched.
func (w *MembershipReconciler) repair(ctx context.Context, row userstore.MembershipRow) (bool, error) {
	communities, groups, err := w.spaces.MembershipsOf(ctx, row.UID)
	if err != nil {
		return false, err
	}
	add := userstore.MembershipLists{
		Communities: minus(communities, row.Communities),
		Groups:      minus(groups, row.Groups),
	}
	remove := userstore.MembershipLists{
		Communities: minus(row.Communities, communities),
		Groups:      minus(row.Groups, groups),
	}
	if len(add.Communities)+len(add.Groups)+len(remove.Communities)+len(remove.Groups) == 0 {
		return false, nil
	}
	if err := w.users.PatchMemberships(ctx, row.UID, add, remove); err != nil {
		return false, err
	}
	w.log.Debug("membership drift repaired",
		zap.String("uid", row.UID),
		zap.Strings("added", append(add.Communities, add.Groups...)),
		zap.Strings("removed", append(remove.Communities, remove.Groups...)))
	return true, nil
}

// minus returns the sorted ids in a that are not in b.
func minus(a, b []string) []string {
	skip := make(map[string]bool, len(b))
	for _, v := range b {
		skip[v] = true
	}
	var out []string
	for _, v := range a {
		if !skip[v] {
			skip[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func sameSet(a, b []string) bool {
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		seen[v] = true
	}
	if len(seen) != len(b) {
		return false
	}
	for _, v := range b {
		if !seen[v] {
			return false
		}
	}
	return true
}
