package learning

import (
	"sort"
	"strings"

	"github.com/benvon/trip-planner/internal/models"
)

// Budget buckets used inside pattern keys
const (
	BudgetBucketLow    = "low"
	BudgetBucketMedium = "medium"
	BudgetBucketHigh   = "high"
	BudgetBucketAny    = "any"
)

// maxKeyInterests bounds how many interests participate in a pattern key so
// that users with long interest lists still map to a small key space
const maxKeyInterests = 3

// PatternKey derives a stable string key from a preference set. The key
// groups historical interactions and indexes the weight table, so it must be
// deterministic: same preferences in, same key out.
func PatternKey(prefs models.TravelPreferences) string {
	interests := topInterests(prefs.Interests, maxKeyInterests)

	style := string(prefs.TravelStyle)
	if style == "" {
		style = "unspecified"
	}

	parts := []string{
		strings.Join(interests, ","),
		style,
		BudgetBucket(prefs.BudgetRange),
	}
	return strings.Join(parts, "|")
}

// BudgetBucket maps a budget range to a coarse bucket by its midpoint
func BudgetBucket(r *models.BudgetRange) string {
	if r == nil || (r.Min == 0 && r.Max == 0) {
		return BudgetBucketAny
	}
	mid := (r.Min + r.Max) / 2
	switch {
	case mid < 500:
		return BudgetBucketLow
	case mid < 1500:
		return BudgetBucketMedium
	default:
		return BudgetBucketHigh
	}
}

// topInterests returns up to n interest names, highest weight first, with
// name as tie-breaker so ordering is stable
func topInterests(interests []models.Interest, n int) []string {
	if len(interests) == 0 {
		return []string{"none"}
	}

	sorted := make([]models.Interest, len(interests))
	copy(sorted, interests)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Weight != sorted[j].Weight {
			return sorted[i].Weight > sorted[j].Weight
		}
		return sorted[i].Name < sorted[j].Name
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}

	names := make([]string, 0, len(sorted))
	for _, i := range sorted {
		names = append(names, strings.ToLower(strings.TrimSpace(i.Name)))
	}
	return names
}
