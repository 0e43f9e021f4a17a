package chunking

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

func isSpace(r rune) bool {
	return unicode.IsSpace(r)
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// splitSentences breaks text after every '.', '!' or '?' that is followed by
// whitespace. The whitespace run between sentences is dropped; everything else,
// including line breaks inside a sentence, is kept.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if !isTerminator(r) || i >= len(text) {
			continue
		}
		next, _ := utf8.DecodeRuneInString(text[i:])
		if !isSpace(next) {
			continue
		}
		end := i
		for i < len(text) {
			r, size := utf8.DecodeRuneInString(text[i:])
			if !isSpace(r) {
				break
			}
			i += size
		}
		if s := strings.TrimSpace(text[start:end]); s != "" {
			sentences = append(sentences, s)
		}
		start = i
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
