package ai

import (
	"strings"
	"unicode"
)

// gazetteer is the closed set of destination names recognized anywhere in a
// message, without a leading preposition. Lower-cased.
var gazetteer = []string{
	"italy", "italien", "france", "frankreich", "spain", "spanien",
	"portugal", "greece", "griechenland", "germany", "deutschland",
	"austria", "österreich", "switzerland", "schweiz", "netherlands",
	"croatia", "kroatien", "norway", "norwegen", "sweden", "schweden",
	"japan", "thailand", "vietnam", "iceland", "island", "ireland", "irland",
	"paris", "rome", "rom", "barcelona", "madrid", "lisbon", "lissabon",
	"amsterdam", "berlin", "munich", "münchen", "hamburg", "vienna", "wien",
	"prague", "prag", "budapest", "athens", "athen", "london", "dublin",
	"venice", "venedig", "florence", "florenz", "porto", "sevilla",
	"kopenhagen", "copenhagen", "stockholm", "oslo", "zürich", "tokyo", "kyoto",
}

// prepositions that introduce a destination phrase ("to <place>", "nach <place>")
var destinationPrepositions = []string{"to", "in", "at", "nach", "auf"}

// trailing words that mark the preceding word as a destination
// ("<place> trip", "<place> reise")
var destinationSuffixes = []string{"trip", "vacation", "holiday", "reise", "urlaub"}

// words that can follow a preposition without naming a place
var destinationStopwords = []string{
	"go", "going", "travel", "traveling", "visit", "see", "stay", "be",
	"the", "a", "an", "my", "our", "this", "that", "general", "order",
	"die", "der", "das", "dem", "den", "ein", "eine", "einen", "einem",
	"meine", "meinem", "unserem", "dieser", "diesem", "urlaub", "reise",
}

// ExtractDestination applies ordered best-effort pattern rules over a raw
// message: preposition-led phrases first, then trailing domain words, then
// the gazetteer. Returns "" when nothing matches; callers must not guess.
func ExtractDestination(message string) string {
	words := tokenizeWords(strings.ToLower(message))
	if len(words) == 0 {
		return ""
	}

	// "to/in/at <place>"
	for i := 0; i+1 < len(words); i++ {
		if !containsWord(destinationPrepositions, words[i]) {
			continue
		}
		candidate := words[i+1]
		if containsWord(destinationStopwords, candidate) || containsWord(destinationPrepositions, candidate) {
			continue
		}
		if place := normalizePlace(candidate); place != "" {
			return place
		}
	}

	// "<place> trip/vacation"
	for i := 1; i < len(words); i++ {
		if !containsWord(destinationSuffixes, words[i]) {
			continue
		}
		candidate := words[i-1]
		if containsWord(destinationStopwords, candidate) || containsWord(destinationPrepositions, candidate) {
			continue
		}
		if place := normalizePlace(candidate); place != "" {
			return place
		}
	}

	// Bare gazetteer mention
	for _, w := range words {
		if containsWord(gazetteer, w) {
			return normalizePlace(w)
		}
	}

	return ""
}

// normalizePlace capitalizes each word of a candidate place name; "" when
// the candidate is too short to be one.
func normalizePlace(candidate string) string {
	if len([]rune(candidate)) < 2 {
		return ""
	}
	runes := []rune(candidate)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func containsWord(list []string, w string) bool {
	for _, item := range list {
		if item == w {
			return true
		}
	}
	return false
}
