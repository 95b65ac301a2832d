package ai

import (
	"context"

	"github.com/benvon/trip-planner/internal/models"
)

// Confidence constants. Fallback confidence is a deliberate reproducible
// constant, not a measurement.
const (
	LiveConfidence     = 0.8
	FallbackConfidence = 0.85
)

// ModelResult is the outcome of one completion invocation, live or fallback
type ModelResult struct {
	Text         string
	TokensUsed   int
	Confidence   float64
	ModelUsed    string
	QuickActions []models.QuickAction
	Route        *models.GeneratedRoute
}

// ResponseProvider produces a response for a composed prompt. The gateway
// selects between the live provider and the fallback bank; both implement
// this interface so phase-indexed content is defined once and shared.
type ResponseProvider interface {
	Generate(ctx context.Context, prompt string, phase models.Phase) (*ModelResult, error)
}

// ProviderFactory creates a live response provider from configuration
type ProviderFactory func(config map[string]string) (ResponseProvider, error)

// ProviderRegistry stores available live providers by name
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (ResponseProvider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
