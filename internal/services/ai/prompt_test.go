package ai

import (
	"strings"
	"testing"
	"time"

	"github.com/benvon/trip-planner/internal/models"
)

func TestPromptComposer_BlockOrder(t *testing.T) {
	t.Parallel()

	c := NewPromptComposer(nil, nil)
	req := &models.ChatRequest{
		Message:   "what about day two?",
		SessionID: "s1",
		Context: models.ConversationContext{
			Destination:  "Lisbon",
			CurrentPhase: models.PhaseRouteGeneration,
		},
		MessageHistory: []models.ChatMessage{
			{Role: "user", Content: "plan me a trip"},
			{Role: "assistant", Content: "here is a plan"},
		},
	}

	prompt := c.Compose(req, models.PhaseRouteGeneration)

	instrIdx := strings.Index(prompt, phaseInstructions[models.PhaseRouteGeneration])
	ctxIdx := strings.Index(prompt, "Trip context:")
	histIdx := strings.Index(prompt, "Conversation so far:")
	msgIdx := strings.Index(prompt, "User message: what about day two?")

	if instrIdx != 0 {
		t.Errorf("instruction block not first (index %d)", instrIdx)
	}
	for name, idx := range map[string]int{"context": ctxIdx, "history": histIdx, "message": msgIdx} {
		if idx < 0 {
			t.Fatalf("%s block missing from prompt:\n%s", name, prompt)
		}
	}
	if !(instrIdx < ctxIdx && ctxIdx < histIdx && histIdx < msgIdx) {
		t.Errorf("blocks out of order: instr=%d ctx=%d hist=%d msg=%d", instrIdx, ctxIdx, histIdx, msgIdx)
	}
}

func TestPromptComposer_UnknownPhaseGetsWelcomeInstruction(t *testing.T) {
	t.Parallel()

	c := NewPromptComposer(nil, nil)
	prompt := c.Compose(&models.ChatRequest{Message: "hi"}, models.Phase("bogus"))
	if !strings.Contains(prompt, phaseInstructions[models.PhaseWelcome]) {
		t.Error("unknown phase did not use the welcome instruction")
	}
}

func TestPromptComposer_HistoryCapAndTruncation(t *testing.T) {
	t.Parallel()

	var history []models.ChatMessage
	for i := 0; i < 12; i++ {
		history = append(history,
			models.ChatMessage{Role: "user", Content: "user turn"},
			models.ChatMessage{Role: "assistant", Content: strings.Repeat("x", 400)},
		)
	}

	c := NewPromptComposer(nil, nil)
	prompt := c.Compose(&models.ChatRequest{Message: "ok", MessageHistory: history}, models.PhaseRouteRefinement)

	if got := strings.Count(prompt, "Assistant: "); got != MaxHistoryTurns/2 {
		t.Errorf("assistant turns in prompt = %d, want %d", got, MaxHistoryTurns/2)
	}
	if strings.Contains(prompt, strings.Repeat("x", MaxHistoryAITurnLength+1)) {
		t.Error("assistant turn not truncated")
	}
}

func TestPromptComposer_ContextDestinationFromMessage(t *testing.T) {
	t.Parallel()

	c := NewPromptComposer(nil, nil)
	prompt := c.Compose(&models.ChatRequest{Message: "I want to go to Paris"}, models.PhaseWelcome)
	if !strings.Contains(prompt, "Destination: Paris") {
		t.Errorf("destination not extracted into context block:\n%s", prompt)
	}
}

func TestPromptComposer_PersonalizationExcerpts(t *testing.T) {
	t.Parallel()

	prefs := models.TravelPreferences{
		Interests:   []models.Interest{{Name: "culture"}},
		TravelStyle: models.TravelStyleActive,
	}
	source := staticSource{
		{
			Input:        models.TrainingInput{Preferences: prefs},
			Output:       models.TrainingOutput{Response: "a well rated past answer"},
			QualityScore: 0.9,
		},
		{
			Input:        models.TrainingInput{Preferences: prefs},
			Output:       models.TrainingOutput{Response: "a mediocre past answer"},
			QualityScore: 0.5,
		},
	}

	c := NewPromptComposer(NewRetriever(source, DefaultRetrieverOptions()), nil)
	req := &models.ChatRequest{
		Message:     "plan something",
		SessionID:   "s1",
		Preferences: prefs,
	}
	prompt := c.Compose(req, models.PhaseRouteGeneration)

	if !strings.Contains(prompt, "a well rated past answer") {
		t.Error("high quality excerpt missing")
	}
	if strings.Contains(prompt, "a mediocre past answer") {
		t.Error("low quality excerpt included")
	}
}

func TestPromptComposer_ExcerptLimit(t *testing.T) {
	t.Parallel()

	prefs := models.TravelPreferences{TravelStyle: models.TravelStyleRelaxed}
	var source staticSource
	for i := 0; i < 5; i++ {
		source = append(source, models.TrainingDataPoint{
			Input:        models.TrainingInput{Preferences: prefs},
			Output:       models.TrainingOutput{Response: "excerpt candidate"},
			QualityScore: 0.95,
			Timestamp:    time.Now(),
		})
	}

	c := NewPromptComposer(NewRetriever(source, DefaultRetrieverOptions()), nil)
	prompt := c.Compose(&models.ChatRequest{Message: "go", Preferences: prefs}, models.PhaseWelcome)

	if got := strings.Count(prompt, "excerpt candidate"); got > MaxExcerpts {
		t.Errorf("%d excerpts in prompt, want at most %d", got, MaxExcerpts)
	}
}

func TestPromptComposer_SummaryCoversOverflowingHistory(t *testing.T) {
	t.Parallel()

	var history []models.ChatMessage
	for i := 0; i < 12; i++ {
		history = append(history,
			models.ChatMessage{Role: "user", Content: "user turn"},
			models.ChatMessage{Role: "assistant", Content: "assistant turn"},
		)
	}

	c := NewPromptComposer(nil, nil)
	req := &models.ChatRequest{
		Message:        "ok",
		MessageHistory: history,
		Context: models.ConversationContext{
			Summary: "planning a trip to Kyoto; currently in the route_refinement phase; 24 turns so far",
		},
	}
	prompt := c.Compose(req, models.PhaseRouteRefinement)

	if !strings.Contains(prompt, "Earlier turns, summarized: planning a trip to Kyoto") {
		t.Errorf("prompt missing the summary of dropped turns:\n%s", prompt)
	}
}

func TestPromptComposer_NoSummaryLineWhenHistoryFits(t *testing.T) {
	t.Parallel()

	c := NewPromptComposer(nil, nil)
	req := &models.ChatRequest{
		Message:        "ok",
		MessageHistory: []models.ChatMessage{{Role: "user", Content: "short history"}},
		Context: models.ConversationContext{
			Summary: "planning a trip to Kyoto; currently in the welcome phase; 2 turns so far",
		},
	}
	prompt := c.Compose(req, models.PhaseWelcome)

	if strings.Contains(prompt, "Earlier turns, summarized") {
		t.Error("summary line rendered although no turns were dropped")
	}
}
