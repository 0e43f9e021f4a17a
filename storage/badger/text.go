package badger

import (
	"strings"
	"unicode"
)

// stopWords per text-search configuration. Configurations without a list
// (such as "simple") keep every token.
var stopWords = map[string]map[string]bool{
	"english": set(
		"the", "a", "an", "be", "is", "are", "was", "to", "of", "and", "in", "that",
		"have", "it", "for", "not", "on", "with", "as", "you", "do", "at", "this",
		"but", "by", "from",
	),
	"german": set(
		"der", "die", "das", "den", "dem", "des", "ein", "eine", "einer", "eines",
		"einem", "einen", "und", "oder", "ist", "sind", "war", "zu", "von", "mit",
		"auf", "für", "im", "in", "an", "es", "nicht", "dass", "bei", "als", "wie",
		"auch", "sich", "wird", "werden",
	),
}

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// tokenizeAndFilter lowercases text, strips surrounding punctuation and drops
// the stop words of the given configuration.
func tokenizeAndFilter(text, config string) []string {
	stop := stopWords[config]
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))
	for _, word := range words {
		cleaned := strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		}))
		if cleaned != "" && !stop[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}
	return filtered
}

// lexicalScore scores document against query terms. Every query term must
// occur; the score is the share of document tokens that are query terms.
// Returns 0 when the document does not match.
func lexicalScore(queryTerms []string, document, config string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	docTerms := tokenizeAndFilter(document, config)
	if len(docTerms) == 0 {
		return 0
	}

	counts := make(map[string]int, len(docTerms))
	for _, term := range docTerms {
		counts[term]++
	}

	hits := 0
	seen := make(map[string]bool, len(queryTerms))
	for _, term := range queryTerms {
		if counts[term] == 0 {
			return 0
		}
		if !seen[term] {
			seen[term] = true
			hits += counts[term]
		}
	}
	return float64(hits) / float64(len(docTerms))
}
