package ai

import (
	"strings"
	"unicode"

	"github.com/benvon/trip-planner/internal/models"
)

// Signal is one keyword-level observation about a user message
type Signal string

const (
	SignalRouteRequest       Signal = "route_request"
	SignalPreferenceTalk     Signal = "preference_talk"
	SignalRestart            Signal = "restart"
	SignalNewTrip            Signal = "new_trip"
	SignalModification       Signal = "modification"
	SignalAcceptance         Signal = "acceptance"
	SignalDetailRequest      Signal = "detail_request"
	SignalConcretePreference Signal = "concrete_preference"
)

// Intent is the classified reading of one user message. JumpTo carries a
// direct phase override when the message expresses one; Signals carries
// everything the phase-local transition rules consume.
type Intent struct {
	JumpTo  *models.Phase
	Signals map[Signal]bool
}

// Has reports whether the intent carries a signal
func (i Intent) Has(s Signal) bool {
	return i.Signals[s]
}

// IntentClassifier turns a raw user message into an Intent. The default
// implementation is keyword-driven; the interface exists so it can be
// swapped for a trained classifier without touching the transition table.
type IntentClassifier interface {
	Classify(message string) Intent
}

// Keyword tables. The consumer app is German-facing, so each table carries
// both English and German tokens. Single-word tokens match whole words (or
// word prefixes for stems of 4+ characters); tokens with spaces match as
// substrings.
var (
	routeTokens = []string{
		"route", "itinerary", "plan", "generate",
		"reiseplan", "reiseroute", "vorschlag", "erstelle", "plane",
	}
	preferenceTokens = []string{
		"preference", "budget", "interest", "detail",
		"präferenz", "interesse", "wünsche",
	}
	restartTokens = []string{
		"restart", "start over", "reset",
		"neustart", "von vorne", "neu starten",
	}
	newTripTokens = []string{
		"new trip", "another trip", "next trip",
		"neue reise", "nächste reise", "noch eine reise",
	}
	modificationTokens = []string{
		"change", "modify", "instead", "don't", "dont", "not", "different", "remove", "replace",
		"ändern", "ändere", "anders", "nicht", "kein", "lieber", "statt", "weniger", "ohne",
	}
	acceptanceTokens = []string{
		"accept", "perfect", "great", "looks good", "sounds good", "take it", "book",
		"passt", "perfekt", "super", "nehmen", "gefällt", "einverstanden", "buchen",
	}
	detailTokens = []string{
		"more detail", "tell me more", "alternative", "other option", "what about",
		"mehr details", "alternativen", "andere option", "was ist mit",
	}
	styleTokens = []string{
		"relaxed", "moderate", "active", "slow", "busy",
		"entspannt", "gemütlich", "moderat", "aktiv", "sportlich",
	}
	affirmationTokens = []string{
		"yes", "yeah", "sure", "ok", "okay", "exactly",
		"ja", "genau", "gerne", "klar", "stimmt",
	}
	currencyRunes = "€$£¥"
)

// KeywordClassifier is the keyword-table-backed IntentClassifier
type KeywordClassifier struct{}

// NewKeywordClassifier creates the default classifier
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify derives the intent of a raw user message. Override priority is
// authoritative: route tokens win over preference tokens, which win over
// restart tokens.
func (c *KeywordClassifier) Classify(message string) Intent {
	msg := strings.ToLower(message)
	words := tokenizeWords(msg)

	signals := make(map[Signal]bool)
	if matchesAny(msg, words, routeTokens) {
		signals[SignalRouteRequest] = true
	}
	if matchesAny(msg, words, preferenceTokens) {
		signals[SignalPreferenceTalk] = true
	}
	if matchesAny(msg, words, restartTokens) {
		signals[SignalRestart] = true
	}
	if matchesAny(msg, words, newTripTokens) {
		signals[SignalNewTrip] = true
	}
	if matchesAny(msg, words, modificationTokens) {
		signals[SignalModification] = true
	}
	if matchesAny(msg, words, acceptanceTokens) {
		signals[SignalAcceptance] = true
	}
	if matchesAny(msg, words, detailTokens) {
		signals[SignalDetailRequest] = true
	}
	if hasConcretePreference(msg, words) {
		signals[SignalConcretePreference] = true
	}

	intent := Intent{Signals: signals}
	switch {
	case signals[SignalRouteRequest]:
		intent.JumpTo = phasePtr(models.PhaseRouteGeneration)
	case signals[SignalPreferenceTalk]:
		intent.JumpTo = phasePtr(models.PhasePreferencesCollection)
	case signals[SignalRestart]:
		intent.JumpTo = phasePtr(models.PhaseWelcome)
	}
	return intent
}

// hasConcretePreference reports whether the message states something
// concrete enough to generate a first proposal: a currency symbol, a travel
// style word, an affirmation, or a numeric budget.
func hasConcretePreference(msg string, words []string) bool {
	if strings.ContainsAny(msg, currencyRunes) {
		return true
	}
	if matchesAny(msg, words, styleTokens) {
		return true
	}
	if matchesAny(msg, words, affirmationTokens) {
		return true
	}
	for _, r := range msg {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// PhaseManager owns the dialogue phase transition table. NextPhase is a
// pure function: it never errors and defaults to the current phase on
// unmatched input.
type PhaseManager struct {
	classifier IntentClassifier
}

// NewPhaseManager creates a phase manager; a nil classifier selects the
// keyword default.
func NewPhaseManager(classifier IntentClassifier) *PhaseManager {
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}
	return &PhaseManager{classifier: classifier}
}

// NextPhase maps (current phase, raw user message) to the next phase.
// Direct intent overrides apply regardless of the current phase; an
// override targeting the phase the dialogue is already in falls through to
// the phase-local rules so the conversation can advance.
func (m *PhaseManager) NextPhase(current models.Phase, message string) models.Phase {
	if !current.IsValid() {
		current = models.PhaseWelcome
	}

	intent := m.classifier.Classify(message)
	if intent.JumpTo != nil && *intent.JumpTo != current {
		return *intent.JumpTo
	}

	switch current {
	case models.PhaseWelcome:
		if countNonWhitespace(message) > 3 {
			return models.PhasePreferencesCollection
		}
		return current

	case models.PhasePreferencesCollection:
		// Intentionally eager: one informative utterance is enough to
		// generate a first concrete proposal instead of interrogating
		// the user further
		if intent.Has(SignalConcretePreference) {
			return models.PhaseRouteGeneration
		}
		return current

	case models.PhaseRouteGeneration:
		if intent.Has(SignalModification) {
			return models.PhaseRouteRefinement
		}
		if intent.Has(SignalAcceptance) {
			return models.PhaseFinalization
		}
		// Detail/alternative requests regenerate content, not phase
		return current

	case models.PhaseRouteRefinement:
		if intent.Has(SignalAcceptance) {
			return models.PhaseFinalization
		}
		return current

	case models.PhaseFinalization:
		if intent.Has(SignalNewTrip) {
			return models.PhaseWelcome
		}
		return models.PhaseCompleted

	case models.PhaseCompleted:
		if intent.Has(SignalRestart) {
			return models.PhaseWelcome
		}
		return current
	}

	return current
}

func phasePtr(p models.Phase) *models.Phase {
	return &p
}

// tokenizeWords splits a lower-cased message into letter/digit words
func tokenizeWords(msg string) []string {
	return strings.FieldsFunc(msg, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matchesAny reports whether any token matches the message. Multi-word
// tokens match as substrings; single words match whole words, or word
// prefixes when the token is a stem of at least 4 characters (so
// "interesse" matches "interessiere").
func matchesAny(msg string, words []string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(token, " ") {
			if strings.Contains(msg, token) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == token {
				return true
			}
			if len([]rune(token)) >= 4 && strings.HasPrefix(w, token) {
				return true
			}
		}
	}
	return false
}

func countNonWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
