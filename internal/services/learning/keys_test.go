package learning

import (
	"testing"

	"github.com/benvon/trip-planner/internal/models"
)

func TestPatternKey_Deterministic(t *testing.T) {
	t.Parallel()

	prefs := models.TravelPreferences{
		Interests: []models.Interest{
			{Name: "History", Weight: 0.9},
			{Name: "Food", Weight: 0.7},
		},
		TravelStyle: models.TravelStyleRelaxed,
		BudgetRange: &models.BudgetRange{Min: 800, Max: 1200},
	}

	first := PatternKey(prefs)
	for i := 0; i < 10; i++ {
		if got := PatternKey(prefs); got != first {
			t.Fatalf("PatternKey not deterministic: %q vs %q", got, first)
		}
	}
}

func TestPatternKey_OrderIndependent(t *testing.T) {
	t.Parallel()

	a := models.TravelPreferences{
		Interests: []models.Interest{
			{Name: "history", Weight: 0.5},
			{Name: "food", Weight: 0.5},
		},
	}
	b := models.TravelPreferences{
		Interests: []models.Interest{
			{Name: "food", Weight: 0.5},
			{Name: "history", Weight: 0.5},
		},
	}

	if PatternKey(a) != PatternKey(b) {
		t.Errorf("equal-weight interests should produce the same key regardless of order: %q vs %q", PatternKey(a), PatternKey(b))
	}
}

func TestPatternKey_Components(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		prefs models.TravelPreferences
		want  string
	}{
		{
			name:  "empty preferences",
			prefs: models.TravelPreferences{},
			want:  "none|unspecified|any",
		},
		{
			name: "full preferences",
			prefs: models.TravelPreferences{
				Interests: []models.Interest{
					{Name: "Culture", Weight: 0.9},
					{Name: "Hiking", Weight: 0.4},
				},
				TravelStyle: models.TravelStyleActive,
				BudgetRange: &models.BudgetRange{Min: 2000, Max: 3000},
			},
			want: "culture,hiking|active|high",
		},
		{
			name: "interests capped at three",
			prefs: models.TravelPreferences{
				Interests: []models.Interest{
					{Name: "a", Weight: 0.9},
					{Name: "b", Weight: 0.8},
					{Name: "c", Weight: 0.7},
					{Name: "d", Weight: 0.6},
				},
			},
			want: "a,b,c|unspecified|any",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := PatternKey(tt.prefs); got != tt.want {
				t.Errorf("PatternKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBudgetBucket(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		r     *models.BudgetRange
		want  string
	}{
		{"nil range", nil, BudgetBucketAny},
		{"zero range", &models.BudgetRange{}, BudgetBucketAny},
		{"low", &models.BudgetRange{Min: 100, Max: 400}, BudgetBucketLow},
		{"medium", &models.BudgetRange{Min: 800, Max: 1200}, BudgetBucketMedium},
		{"high", &models.BudgetRange{Min: 2000, Max: 4000}, BudgetBucketHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := BudgetBucket(tt.r); got != tt.want {
				t.Errorf("BudgetBucket() = %q, want %q", got, tt.want)
			}
		})
	}
}
