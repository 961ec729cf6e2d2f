package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"caritauyuk.id/catalog/internal/domain"
)

func driftedStore() *memoryStore {
	a := row("1", "A", domain.CategoryFilm, "", time.Hour)
	a.Likes = 5
	b := row("2", "B", domain.CategoryFilm, "", time.Hour)
	b.Likes = 1
	c := row("3", "C", domain.CategoryHealth, "", time.Hour)
	store := newMemoryStore(a, b, c)
	store.likes["1"] = map[string]bool{"s1": true, "s2": true}
	store.likes["2"] = map[string]bool{"s1": true}
	store.likes["3"] = map[string]bool{"s3": true}
	return store
}

func newReconciler(t *testing.T, store *memoryStore, dryRun bool) ReconcileService {
	t.Helper()
	svc, err := NewReconcileService(ReconcileServiceDeps{
		Content:  store.content(),
		Likes:    store.likeRepo(),
		Counters: store.counters(),
		Clock:    func() time.Time { return baseTime },
		DryRun:   dryRun,
	})
	if err != nil {
		t.Fatalf("NewReconcileService: %v", err)
	}
	return svc
}

func TestReconcileRepairsDrift(t *testing.T) {
	store := driftedStore()
	report, err := newReconciler(t, store, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Checked != 3 || report.Repaired != 2 || report.Failed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.Drift) != 2 || report.Drift[0] != (domain.LikeDrift{ContentID: "1", Stored: 5, Actual: 2}) {
		t.Fatalf("unexpected drift %+v", report.Drift)
	}
	for _, r := range store.rows {
		if want := int64(len(store.likes[r.ID])); r.Likes != want {
			t.Fatalf("row %s: likes %d, want %d", r.ID, r.Likes, want)
		}
	}
}

func TestReconcileDryRunLeavesCounters(t *testing.T) {
	store := driftedStore()
	report, err := newReconciler(t, store, true).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Drift) != 2 || report.Repaired != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if store.callCount("counters.set") != 0 {
		t.Fatalf("dry run must not write counters")
	}
}

func TestReconcileCountsFailures(t *testing.T) {
	store := driftedStore()
	store.failures["counters.set"] = errors.New("locked")
	report, err := newReconciler(t, store, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed != 2 || report.Repaired != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestReconcileSkipsCounterMovedByToggle(t *testing.T) {
	store := driftedStore()
	store.beforeSet = func(id string) {
		if id != "1" {
			return
		}
		// a visitor likes row 1 between the read and the rewrite
		store.likes["1"]["s9"] = true
		store.rows[store.index("1")].Likes++
	}
	report, err := newReconciler(t, store, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Repaired != 1 || report.Skipped != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if got := store.rows[store.index("1")].Likes; got != 6 {
		t.Fatalf("row 1 likes = %d, want the toggled 6 left alone", got)
	}
	if got := store.rows[store.index("2")].Likes; got != 1 {
		t.Fatalf("row 2 likes = %d, want 1", got)
	}
}

func TestReconcileStopsOnListFailure(t *testing.T) {
	store := driftedStore()
	store.failures["likes.count"] = errors.New("unavailable")
	if _, err := newReconciler(t, store, false).Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
