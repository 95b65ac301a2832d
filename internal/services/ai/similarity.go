package ai

import (
	"math"
	"sort"
	"strings"

	"github.com/benvon/trip-planner/internal/models"
)

// RetrieverOptions holds the retrieval tuning constants. Defaults are the
// values the system was tuned with.
type RetrieverOptions struct {
	TopK                int
	PreferenceThreshold float64
	ContextThreshold    float64
}

// DefaultRetrieverOptions returns the tuned defaults
func DefaultRetrieverOptions() RetrieverOptions {
	return RetrieverOptions{
		TopK:                5,
		PreferenceThreshold: 0.6,
		ContextThreshold:    0.5,
	}
}

// InteractionSource yields the historical interactions to retrieve from
type InteractionSource interface {
	All() []models.TrainingDataPoint
}

// Retriever scores stored interactions by preference and context similarity
// and returns the highest quality-score matches
type Retriever struct {
	source InteractionSource
	opts   RetrieverOptions
}

// NewRetriever creates a retriever over the given source
func NewRetriever(source InteractionSource, opts RetrieverOptions) *Retriever {
	if opts.TopK <= 0 {
		opts = DefaultRetrieverOptions()
	}
	return &Retriever{source: source, opts: opts}
}

// FindSimilar returns up to k stored interactions whose preferences and
// context resemble the request's, sorted by quality score descending.
// k <= 0 selects the configured default.
func (r *Retriever) FindSimilar(req models.ChatRequest, k int) []models.TrainingDataPoint {
	if k <= 0 {
		k = r.opts.TopK
	}

	var matches []models.TrainingDataPoint
	for _, p := range r.source.All() {
		prefSim := PreferenceSimilarity(req.Preferences, p.Input.Preferences)
		ctxSim := ContextSimilarity(req.Context, p.Input.Context)
		if prefSim > r.opts.PreferenceThreshold && ctxSim > r.opts.ContextThreshold {
			matches = append(matches, p)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].QualityScore > matches[j].QualityScore
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// PreferenceSimilarity computes a weighted similarity of two preference
// sets in [0,1]. Fields absent on either side are skipped, not counted as
// zero: the score is divided by the sum of the weights actually evaluated.
// Symmetric by construction.
func PreferenceSimilarity(a, b models.TravelPreferences) float64 {
	var score, weights float64

	if len(a.Interests) > 0 && len(b.Interests) > 0 {
		score += 0.3 * interestOverlap(a.Interests, b.Interests)
		weights += 0.3
	}

	if a.TravelStyle != "" && b.TravelStyle != "" {
		if a.TravelStyle == b.TravelStyle {
			score += 0.2
		}
		weights += 0.2
	}

	if a.BudgetRange != nil && b.BudgetRange != nil {
		score += 0.3 * budgetOverlap(a.BudgetRange, b.BudgetRange)
		weights += 0.3
	}

	if a.GroupSize > 0 && b.GroupSize > 0 {
		if a.GroupSize == b.GroupSize {
			score += 0.2
		}
		weights += 0.2
	}

	if weights == 0 {
		return 0
	}
	return score / weights
}

// ContextSimilarity computes a weighted similarity of two conversation
// contexts in [0,1]: trip length (0.5), total budget (0.3, only when both
// sides carry one), and phase match (0.2). Skipped terms drop out of the
// normalization. Symmetric by construction.
func ContextSimilarity(a, b models.ConversationContext) float64 {
	var score, weights float64

	score += 0.5 * (1 - normalizedDiff(float64(a.TripLengthDays()), float64(b.TripLengthDays())))
	weights += 0.5

	if a.Budget != nil && b.Budget != nil && a.Budget.Total > 0 && b.Budget.Total > 0 {
		score += 0.3 * (1 - normalizedDiff(a.Budget.Total, b.Budget.Total))
		weights += 0.3
	}

	if a.CurrentPhase == b.CurrentPhase {
		score += 0.2
	}
	weights += 0.2

	return score / weights
}

// interestOverlap is the Jaccard overlap of lower-cased interest name sets
func interestOverlap(a, b []models.Interest) float64 {
	setA := make(map[string]bool, len(a))
	for _, i := range a {
		setA[strings.ToLower(i.Name)] = true
	}
	setB := make(map[string]bool, len(b))
	for _, i := range b {
		setB[strings.ToLower(i.Name)] = true
	}

	intersection := 0
	for name := range setA {
		if setB[name] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// budgetOverlap is the ratio of the overlapping span of two budget ranges
// to their combined span
func budgetOverlap(a, b *models.BudgetRange) float64 {
	low := math.Max(a.Min, b.Min)
	high := math.Min(a.Max, b.Max)
	if high <= low {
		return 0
	}
	span := math.Max(a.Max, b.Max) - math.Min(a.Min, b.Min)
	if span == 0 {
		return 1
	}
	return (high - low) / span
}

// normalizedDiff is |a-b| / max(a,b), 0 when both are 0
func normalizedDiff(a, b float64) float64 {
	maxVal := math.Max(math.Abs(a), math.Abs(b))
	if maxVal == 0 {
		return 0
	}
	return math.Abs(a-b) / maxVal
}
