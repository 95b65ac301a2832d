package models

// RouteStop is a single visit within a day of a generated route
type RouteStop struct {
	Time        string  `json:"time"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	DurationMin int     `json:"duration_min,omitempty"`
	Cost        float64 `json:"cost,omitempty"`
}

// RouteDay is one day of a generated route
type RouteDay struct {
	Day   int         `json:"day"`
	Title string      `json:"title,omitempty"`
	Stops []RouteStop `json:"stops"`
}

// GeneratedRoute is a complete trip proposal produced for the user
type GeneratedRoute struct {
	ID            string     `json:"id"`
	Destination   string     `json:"destination"`
	Days          []RouteDay `json:"days"`
	EstimatedCost float64    `json:"estimated_cost,omitempty"`
	Currency      string     `json:"currency,omitempty"`
	Summary       string     `json:"summary,omitempty"`
}
