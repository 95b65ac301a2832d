package ai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/benvon/trip-planner/internal/models"
	"github.com/benvon/trip-planner/internal/services/learning"
)

const (
	// MaxHistoryTurns bounds how many recent turns go into the prompt
	MaxHistoryTurns = 8
	// MaxHistoryAITurnLength truncates assistant turns in the history block
	MaxHistoryAITurnLength = 200
	// MaxExcerptLength truncates retrieved interaction excerpts
	MaxExcerptLength = 100
	// MaxExcerpts bounds how many retrieved interactions are quoted
	MaxExcerpts = 2
	// ExcerptQualityThreshold gates which retrieved interactions get quoted
	ExcerptQualityThreshold = 0.7
)

// phaseInstructions holds the per-phase instruction block
var phaseInstructions = map[models.Phase]string{
	models.PhaseWelcome: "Greet the user warmly and ask where they would like to " +
		"travel. If they already named a destination, acknowledge it and move on to " +
		"asking about their interests and budget.",
	models.PhasePreferencesCollection: "Collect the user's travel preferences: " +
		"interests, budget range, travel style, group size, accommodation and " +
		"transport wishes. Ask about at most two missing preferences per turn. When " +
		"enough preferences are known, offer to generate a route.",
	models.PhaseRouteGeneration: "Generate a concrete day-by-day route proposal for " +
		"the destination, matched to the stated preferences and budget. Each day " +
		"gets two to four activities with rough timing and cost. End by asking " +
		"whether the plan fits or what should change.",
	models.PhaseRouteRefinement: "Adjust the previously proposed route according to " +
		"the user's change requests. Change only what was asked, keep the rest " +
		"stable, and summarize what changed. Ask whether the revised plan fits.",
	models.PhaseFinalization: "Confirm the final route with the user. Summarize the " +
		"full plan compactly, mention estimated total cost, and offer practical " +
		"next steps like bookings or a packing list.",
	models.PhaseCompleted: "The trip planning is complete. Answer follow-up " +
		"questions about the finalized plan and offer to start planning a new trip.",
}

// PromptComposer assembles the full prompt for a chat turn
type PromptComposer struct {
	retriever *Retriever
	tracker   *learning.SessionTracker
}

// NewPromptComposer creates a composer; retriever and tracker may be nil
func NewPromptComposer(retriever *Retriever, tracker *learning.SessionTracker) *PromptComposer {
	return &PromptComposer{
		retriever: retriever,
		tracker:   tracker,
	}
}

// Compose builds the prompt from instruction, personalization, context,
// history and the raw user message, in that order.
func (c *PromptComposer) Compose(req *models.ChatRequest, phase models.Phase) string {
	var b strings.Builder

	instruction, ok := phaseInstructions[phase]
	if !ok {
		instruction = phaseInstructions[models.PhaseWelcome]
	}
	b.WriteString(instruction)
	b.WriteString("\n\n")

	if personalization := c.personalizationBlock(req); personalization != "" {
		b.WriteString(personalization)
		b.WriteString("\n\n")
	}

	if contextBlock := c.contextBlock(req); contextBlock != "" {
		b.WriteString(contextBlock)
		b.WriteString("\n\n")
	}

	if history := historyBlock(req.Context.Summary, req.MessageHistory); history != "" {
		b.WriteString(history)
		b.WriteString("\n\n")
	}

	b.WriteString("User message: ")
	b.WriteString(req.Message)

	return b.String()
}

// personalizationBlock renders learned traits and excerpts from similar
// past interactions. Empty when nothing is known yet.
func (c *PromptComposer) personalizationBlock(req *models.ChatRequest) string {
	var lines []string

	if c.tracker != nil {
		traits := c.tracker.Traits(req.SessionID)
		if traits.TravelStyle != "" {
			lines = append(lines, fmt.Sprintf("The user usually prefers a %s travel style.", traits.TravelStyle))
		}
		if traits.BudgetBucket != "" && traits.BudgetBucket != "any" {
			lines = append(lines, fmt.Sprintf("The user's budget has typically been %s.", traits.BudgetBucket))
		}
		if len(traits.FavoriteInterests) > 0 {
			lines = append(lines, fmt.Sprintf("Recurring interests: %s.", strings.Join(traits.FavoriteInterests, ", ")))
		}
	}

	if c.retriever != nil {
		similar := c.retriever.FindSimilar(*req, 0)
		excerpts := selectExcerpts(similar)
		for _, e := range excerpts {
			lines = append(lines, fmt.Sprintf("A similar past conversation went well with: %q", e))
		}
	}

	if len(lines) == 0 {
		return ""
	}
	return "What is known about this user:\n" + strings.Join(lines, "\n")
}

// selectExcerpts picks up to MaxExcerpts high quality response excerpts
func selectExcerpts(points []models.TrainingDataPoint) []string {
	var out []string
	for _, p := range points {
		if p.QualityScore <= ExcerptQualityThreshold {
			continue
		}
		text := strings.TrimSpace(p.Output.Response)
		if text == "" {
			continue
		}
		out = append(out, TruncateString(text, MaxExcerptLength))
		if len(out) >= MaxExcerpts {
			break
		}
	}
	return out
}

// contextBlock renders the trip context. A destination mentioned in the
// current message fills in a missing context destination.
func (c *PromptComposer) contextBlock(req *models.ChatRequest) string {
	ctx := req.Context

	destination := ctx.Destination
	if destination == "" {
		destination = ExtractDestination(req.Message)
	}

	var lines []string
	if destination != "" {
		lines = append(lines, "Destination: "+destination)
	}
	if ctx.HomeBase != "" {
		lines = append(lines, "Home base: "+ctx.HomeBase)
	}
	if !ctx.StartDate.IsZero() && !ctx.EndDate.IsZero() {
		lines = append(lines, fmt.Sprintf("Travel dates: %s to %s (%d days)",
			ctx.StartDate.Format("2006-01-02"), ctx.EndDate.Format("2006-01-02"), ctx.TripLengthDays()))
	}
	if ctx.Budget != nil && ctx.Budget.Total > 0 {
		lines = append(lines, fmt.Sprintf("Budget: %.0f %s total", ctx.Budget.Total, ctx.Budget.Currency))
	}
	if names := req.Preferences.InterestNames(); len(names) > 0 {
		sorted := append([]string(nil), names...)
		sort.Strings(sorted)
		lines = append(lines, "Interests: "+strings.Join(sorted, ", "))
	}
	if req.Preferences.TravelStyle != "" {
		lines = append(lines, "Travel style: "+string(req.Preferences.TravelStyle))
	}
	if req.Preferences.GroupSize > 1 {
		lines = append(lines, fmt.Sprintf("Group size: %d", req.Preferences.GroupSize))
	}

	if len(lines) == 0 {
		return ""
	}
	return "Trip context:\n" + strings.Join(lines, "\n")
}

// historyBlock renders the most recent turns, oldest first. Assistant
// turns are truncated so the prompt stays bounded, and turns that fall
// outside the window are represented by the session summary.
func historyBlock(summary string, history []models.ChatMessage) string {
	if len(history) == 0 {
		return ""
	}

	var lines []string
	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
		if summary != "" {
			lines = append(lines, "Earlier turns, summarized: "+summary)
		}
	}
	for _, msg := range history {
		role := "User"
		text := msg.Content
		if msg.Role == "assistant" || msg.Role == "ai" {
			role = "Assistant"
			text = TruncateString(text, MaxHistoryAITurnLength)
		}
		lines = append(lines, role+": "+text)
	}
	return "Conversation so far:\n" + strings.Join(lines, "\n")
}
