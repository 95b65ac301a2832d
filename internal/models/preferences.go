package models

// TravelStyle represents the pace a user wants for their trip
type TravelStyle string

const (
	TravelStyleRelaxed  TravelStyle = "relaxed"
	TravelStyleModerate TravelStyle = "moderate"
	TravelStyleActive   TravelStyle = "active"
)

// IsValid reports whether s is a known travel style
func (s TravelStyle) IsValid() bool {
	switch s {
	case TravelStyleRelaxed, TravelStyleModerate, TravelStyleActive:
		return true
	default:
		return false
	}
}

// Interest is a single weighted interest declared or inferred for a user
type Interest struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// BudgetRange represents the acceptable spend for a trip
type BudgetRange struct {
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Currency    string  `json:"currency,omitempty"`
	Flexibility float64 `json:"flexibility,omitempty"`
}

// TravelPreferences represents declared or inferred user preferences.
// Fields are built incrementally across turns; absent fields mean the user
// has not expressed that preference yet.
type TravelPreferences struct {
	Interests       []Interest   `json:"interests,omitempty"`
	BudgetRange     *BudgetRange `json:"budget_range,omitempty"`
	TravelStyle     TravelStyle  `json:"travel_style,omitempty"`
	Accommodation   []string     `json:"accommodation,omitempty"`
	Transport       []string     `json:"transport,omitempty"`
	GroupSize       int          `json:"group_size,omitempty"`
	PriorityFactors []string     `json:"priority_factors,omitempty"`
}

// InterestNames returns the interest names in declaration order
func (p *TravelPreferences) InterestNames() []string {
	if len(p.Interests) == 0 {
		return nil
	}
	names := make([]string, 0, len(p.Interests))
	for _, i := range p.Interests {
		names = append(names, i.Name)
	}
	return names
}
