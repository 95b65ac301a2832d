package ai

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/benvon/trip-planner/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var fallbackBankYAML []byte

// FallbackModelName is reported as the model when the bank answers a turn
const FallbackModelName = "fallback-bank"

type fallbackStop struct {
	Time        string  `yaml:"time"`
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	DurationMin int     `yaml:"duration_min"`
	Cost        float64 `yaml:"cost"`
}

type fallbackDay struct {
	Day   int            `yaml:"day"`
	Title string         `yaml:"title"`
	Stops []fallbackStop `yaml:"stops"`
}

type fallbackRoute struct {
	ID            string        `yaml:"id"`
	Destination   string        `yaml:"destination"`
	Currency      string        `yaml:"currency"`
	EstimatedCost float64       `yaml:"estimated_cost"`
	Summary       string        `yaml:"summary"`
	Days          []fallbackDay `yaml:"days"`
}

type fallbackAction struct {
	ID     string `yaml:"id"`
	Label  string `yaml:"label"`
	Action string `yaml:"action"`
}

type fallbackEntry struct {
	Message      string           `yaml:"message"`
	QuickActions []fallbackAction `yaml:"quick_actions"`
	Route        *fallbackRoute   `yaml:"route"`
}

type fallbackBank struct {
	Phases map[string]fallbackEntry `yaml:"phases"`
}

// FallbackBankProvider serves canned per-phase responses without any
// network dependency. It always answers.
type FallbackBankProvider struct {
	entries map[models.Phase]fallbackEntry
}

// NewFallbackBankProvider parses the embedded response bank
func NewFallbackBankProvider() (*FallbackBankProvider, error) {
	var bank fallbackBank
	if err := yaml.Unmarshal(fallbackBankYAML, &bank); err != nil {
		return nil, fmt.Errorf("failed to parse fallback bank: %w", err)
	}

	entries := make(map[models.Phase]fallbackEntry, len(bank.Phases))
	for name, entry := range bank.Phases {
		phase := models.Phase(name)
		if !phase.IsValid() {
			return nil, fmt.Errorf("fallback bank references unknown phase %q", name)
		}
		if entry.Message == "" {
			return nil, fmt.Errorf("fallback bank entry for phase %q has no message", name)
		}
		entries[phase] = entry
	}
	for _, phase := range models.AllPhases {
		if _, ok := entries[phase]; !ok {
			return nil, fmt.Errorf("fallback bank is missing phase %q", phase)
		}
	}

	return &FallbackBankProvider{entries: entries}, nil
}

// Generate returns the canned response for the phase. Unknown phases get
// the welcome entry so a caller always receives something usable.
func (p *FallbackBankProvider) Generate(_ context.Context, _ string, phase models.Phase) (*ModelResult, error) {
	entry, ok := p.entries[phase]
	if !ok {
		entry = p.entries[models.PhaseWelcome]
	}

	return &ModelResult{
		Text:         entry.Message,
		Confidence:   FallbackConfidence,
		ModelUsed:    FallbackModelName,
		QuickActions: convertActions(entry.QuickActions),
		Route:        convertRoute(entry.Route),
	}, nil
}

// QuickActions exposes the bank's per-phase suggestions so live responses
// can reuse them.
func (p *FallbackBankProvider) QuickActions(phase models.Phase) []models.QuickAction {
	entry, ok := p.entries[phase]
	if !ok {
		entry = p.entries[models.PhaseWelcome]
	}
	return convertActions(entry.QuickActions)
}

func convertActions(in []fallbackAction) []models.QuickAction {
	out := make([]models.QuickAction, 0, len(in))
	for _, a := range in {
		out = append(out, models.QuickAction{ID: a.ID, Label: a.Label, Action: a.Action})
	}
	return out
}

func convertRoute(in *fallbackRoute) *models.GeneratedRoute {
	if in == nil {
		return nil
	}
	route := &models.GeneratedRoute{
		ID:            in.ID,
		Destination:   in.Destination,
		Currency:      in.Currency,
		EstimatedCost: in.EstimatedCost,
		Summary:       in.Summary,
	}
	for _, d := range in.Days {
		day := models.RouteDay{Day: d.Day, Title: d.Title}
		for _, s := range d.Stops {
			day.Stops = append(day.Stops, models.RouteStop{
				Time:        s.Time,
				Title:       s.Title,
				Description: s.Description,
				DurationMin: s.DurationMin,
				Cost:        s.Cost,
			})
		}
		route.Days = append(route.Days, day)
	}
	return route
}

var _ ResponseProvider = (*FallbackBankProvider)(nil)
