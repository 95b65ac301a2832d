package learning

import (
	"context"
	"testing"
	"time"

	"github.com/benvon/trip-planner/internal/database"
	"github.com/benvon/trip-planner/internal/models"
)

func TestSessionTracker_RecordAndMerge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker := NewSessionTracker(database.NewMemoryKV(), nil)

	tracker.Record("s1", "generate_route", 2*time.Second, true)
	tracker.Record("s1", "generate_route", 3*time.Second, true)
	tracker.Record("s1", "refine_route", time.Second, false)

	patterns := tracker.SessionPatterns("s1")
	if len(patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(patterns))
	}
	if patterns[0].Action != "generate_route" || patterns[0].Frequency != 2 {
		t.Errorf("unexpected first pattern: %+v", patterns[0])
	}
	if patterns[0].TimeSpent != 5*time.Second {
		t.Errorf("expected cumulative time 5s, got %v", patterns[0].TimeSpent)
	}

	tracker.MergeSession(ctx, "s1")

	global := tracker.GlobalPatterns()
	if global["generate_route"].Frequency != 2 {
		t.Errorf("expected global frequency 2, got %d", global["generate_route"].Frequency)
	}
	if len(tracker.SessionPatterns("s1")) != 0 {
		t.Error("expected session state discarded after merge")
	}
}

func TestSessionTracker_FrequencyMonotonic(t *testing.T) {
	t.Parallel()

	tracker := NewSessionTracker(database.NewMemoryKV(), nil)

	last := 0
	for i := 0; i < 20; i++ {
		tracker.Record("s1", "chat", 0, i%2 == 0)
		got := tracker.SessionPatterns("s1")[0].Frequency
		if got < last {
			t.Fatalf("frequency decreased from %d to %d", last, got)
		}
		last = got
	}
}

func TestSessionTracker_GlobalTablePersists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := database.NewMemoryKV()

	tracker := NewSessionTracker(kv, nil)
	tracker.Record("s1", "chat", time.Second, true)
	tracker.MergeSession(ctx, "s1")

	reloaded := NewSessionTracker(kv, nil)
	if reloaded.GlobalPatterns()["chat"].Frequency != 1 {
		t.Error("expected global patterns to survive reload")
	}
}

func TestSessionTracker_Traits(t *testing.T) {
	t.Parallel()

	tracker := NewSessionTracker(database.NewMemoryKV(), nil)

	tracker.ObservePreferences("s1", models.TravelPreferences{
		Interests:   []models.Interest{{Name: "history", Weight: 0.9}},
		TravelStyle: models.TravelStyleRelaxed,
	})
	tracker.ObservePreferences("s1", models.TravelPreferences{
		Interests:   []models.Interest{{Name: "food", Weight: 0.5}},
		BudgetRange: &models.BudgetRange{Min: 800, Max: 1200},
	})

	traits := tracker.Traits("s1")
	if traits.TravelStyle != models.TravelStyleRelaxed {
		t.Errorf("expected style to persist across turns, got %q", traits.TravelStyle)
	}
	if traits.BudgetBucket != BudgetBucketMedium {
		t.Errorf("expected medium budget bucket, got %q", traits.BudgetBucket)
	}
	if len(traits.FavoriteInterests) != 2 {
		t.Errorf("expected accumulated interests, got %v", traits.FavoriteInterests)
	}
}

func TestSessionTracker_Reset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker := NewSessionTracker(database.NewMemoryKV(), nil)

	tracker.Record("s1", "chat", 0, true)
	tracker.MergeSession(ctx, "s1")
	tracker.Reset(ctx)

	if len(tracker.GlobalPatterns()) != 0 {
		t.Error("expected empty global table after reset")
	}
}

func TestSessionTracker_SharedKVMergesAcrossTrackers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := database.NewMemoryKV()

	a := NewSessionTracker(kv, nil)
	b := NewSessionTracker(kv, nil)

	a.Record("s1", "generate_route", time.Second, true)
	a.MergeSession(ctx, "s1")

	b.Record("s2", "generate_route", 2*time.Second, true)
	b.MergeSession(ctx, "s2")

	// b merged after a persisted, so the global counter must fold both
	// sessions, not overwrite a's with a stale startup snapshot.
	global := b.GlobalPatterns()
	p, ok := global["generate_route"]
	if !ok {
		t.Fatal("expected generate_route in global table")
	}
	if p.Frequency != 2 {
		t.Errorf("global frequency = %d, want 2", p.Frequency)
	}
	if p.TimeSpent != 3*time.Second {
		t.Errorf("global time spent = %v, want 3s", p.TimeSpent)
	}

	// a observes b's merge through the shared key
	if got := a.GlobalPatterns()["generate_route"].Frequency; got != 2 {
		t.Errorf("first tracker sees frequency %d, want 2", got)
	}
}
