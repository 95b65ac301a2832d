package learning

import (
	"context"
	"testing"
	"time"

	"github.com/benvon/trip-planner/internal/database"
	"github.com/benvon/trip-planner/internal/models"
)

func newTestEngine(t *testing.T) (*Engine, *InteractionStore, *WeightStore) {
	t.Helper()
	kv := database.NewMemoryKV()
	store := NewInteractionStore(kv, 100, nil)
	weights := NewWeightStore(kv, nil)
	return NewEngine(store, weights, kv, nil, DefaultOptions()), store, weights
}

func prefsWithKey() models.TravelPreferences {
	return models.TravelPreferences{
		Interests:   []models.Interest{{Name: "history", Weight: 0.9}},
		TravelStyle: models.TravelStyleRelaxed,
		BudgetRange: &models.BudgetRange{Min: 800, Max: 1200},
	}
}

func TestEngine_RecordFeedback_HighRating(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store, weights := newTestEngine(t)

	prefs := prefsWithKey()
	store.Append(ctx, models.TrainingDataPoint{
		MessageID:    "msg-1",
		QualityScore: 0.5,
		Timestamp:    time.Now(),
		Input:        models.TrainingInput{Preferences: prefs, Message: "hi"},
	})

	engine.RecordFeedback(ctx, models.UserFeedback{MessageID: "msg-1", Rating: 5})

	key := PatternKey(prefs)
	if got := weights.Get(key); got != 1.05 {
		t.Errorf("expected weight 1.05 after rating 5, got %v", got)
	}
	if got := store.All()[0].QualityScore; got != 0.6 {
		t.Errorf("expected quality 0.6 after rating 5, got %v", got)
	}
}

func TestEngine_RecordFeedback_LowRating(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store, weights := newTestEngine(t)

	prefs := prefsWithKey()
	store.Append(ctx, models.TrainingDataPoint{
		MessageID:    "msg-1",
		QualityScore: 0.5,
		Timestamp:    time.Now(),
		Input:        models.TrainingInput{Preferences: prefs, Message: "hi"},
	})

	engine.RecordFeedback(ctx, models.UserFeedback{MessageID: "msg-1", Rating: 1})

	key := PatternKey(prefs)
	if got := weights.Get(key); got != 0.9 {
		t.Errorf("expected weight 0.9 after rating 1, got %v", got)
	}
	if diff := store.All()[0].QualityScore - 0.3; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected quality 0.3 after rating 1, got %v", store.All()[0].QualityScore)
	}
}

func TestEngine_RecordFeedback_NeutralRatingNoWeightChange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store, weights := newTestEngine(t)

	prefs := prefsWithKey()
	store.Append(ctx, models.TrainingDataPoint{
		MessageID:    "msg-1",
		QualityScore: 0.5,
		Timestamp:    time.Now(),
		Input:        models.TrainingInput{Preferences: prefs, Message: "hi"},
	})

	engine.RecordFeedback(ctx, models.UserFeedback{MessageID: "msg-1", Rating: 3})

	if got := weights.Get(PatternKey(prefs)); got != models.PatternWeightDefault {
		t.Errorf("rating 3 should not change weights, got %v", got)
	}
}

func TestEngine_RecordFeedback_UnmatchedIsHarmless(t *testing.T) {
	t.Parallel()

	engine, _, weights := newTestEngine(t)
	engine.RecordFeedback(context.Background(), models.UserFeedback{MessageID: "nothing", Rating: 5})

	if len(weights.Weights()) != 0 {
		t.Error("unmatched feedback must not create weights")
	}
}

func TestEngine_InteractionBatchPass(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _, weights := newTestEngine(t)

	prefs := prefsWithKey()
	// Nine high-quality interactions do not arm the batch pass yet
	for i := 0; i < 9; i++ {
		engine.RecordInteraction(ctx, models.TrainingDataPoint{
			QualityScore: 0.9,
			Input:        models.TrainingInput{Preferences: prefs},
		})
	}
	if len(weights.Weights()) != 0 {
		t.Fatal("batch pass must not run below the interaction minimum")
	}

	// The tenth interaction arms the pass: >=3 high-quality points share
	// the pattern key, so its weight is nudged up
	engine.RecordInteraction(ctx, models.TrainingDataPoint{
		QualityScore: 0.9,
		Input:        models.TrainingInput{Preferences: prefs},
	})

	key := PatternKey(prefs)
	if got := weights.Get(key); got != 1.1 {
		t.Errorf("expected weight 1.1 after high-quality batch pass, got %v", got)
	}
}

func TestEngine_RouteBatchPass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		accepted []bool
		want     float64
	}{
		{
			name:     "high acceptance nudges up",
			accepted: []bool{true, true, true, true, true},
			want:     1.1,
		},
		{
			name:     "low acceptance nudges down",
			accepted: []bool{false, false, false, false, true},
			want:     0.9,
		},
		{
			name:     "middling acceptance leaves weight alone",
			accepted: []bool{true, true, false, false, true},
			want:     models.PatternWeightDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			engine, _, weights := newTestEngine(t)
			prefs := prefsWithKey()

			for _, accepted := range tt.accepted {
				engine.RecordRouteFeedback(ctx, models.RouteFeedback{
					RouteID:     "route-1",
					Accepted:    accepted,
					Preferences: prefs,
				})
			}

			if got := weights.Get(PatternKey(prefs)); got != tt.want {
				t.Errorf("expected weight %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEngine_WeightBoundsUnderFeedbackStorm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, store, weights := newTestEngine(t)

	prefs := prefsWithKey()
	store.Append(ctx, models.TrainingDataPoint{
		MessageID:    "msg-1",
		QualityScore: 0.5,
		Timestamp:    time.Now(),
		Input:        models.TrainingInput{Preferences: prefs},
	})

	ratings := []int{5, 5, 5, 1, 1, 5, 2, 4, 1, 5, 5, 5, 5, 5, 5, 5, 1, 1, 1, 1}
	for _, r := range ratings {
		engine.RecordFeedback(ctx, models.UserFeedback{MessageID: "msg-1", Rating: r})
	}

	for key, w := range weights.Weights() {
		if w < models.PatternWeightMin || w > models.PatternWeightMax {
			t.Errorf("weight for %q out of bounds: %v", key, w)
		}
	}
	if score := store.All()[0].QualityScore; score < 0 || score > 1 {
		t.Errorf("quality score out of bounds: %v", score)
	}
}
