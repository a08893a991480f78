// Package textnorm canonicalizes free text for phrase and catalog matching.
// This is part of the platform layer and contains no business logic.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// genderedForms maps feminine adjective forms to the canonical masculine one,
// so "gorra negra" and "gorro negro" share the adjective token.
var genderedForms = map[string]string{
	"negra":     "negro",
	"blanca":    "blanco",
	"roja":      "rojo",
	"amarilla":  "amarillo",
	"morada":    "morado",
	"dorada":    "dorado",
	"plateada":  "plateado",
	"rosada":    "rosado",
	"oscura":    "oscuro",
	"clara":     "claro",
	"pequena":   "pequeno",
	"nueva":     "nuevo",
	"usada":     "usado",
	"larga":     "largo",
	"corta":     "corto",
	"negras":    "negros",
	"blancas":   "blancos",
	"rojas":     "rojos",
	"amarillas": "amarillos",
	"moradas":   "morados",
	"doradas":   "dorados",
}

// Normalize lower-cases s, strips diacritics, collapses gendered adjectives
// and squeezes whitespace. It never fails.
func Normalize(s string) string {
	folded := StripDiacritics(strings.ToLower(s))
	fields := strings.Fields(folded)
	for i, field := range fields {
		word, trail := splitTrailingPunct(field)
		if canonical, ok := genderedForms[word]; ok {
			fields[i] = canonical + trail
		}
	}
	return strings.Join(fields, " ")
}

// StripDiacritics removes combining marks after canonical decomposition.
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ContainsBounded reports whether phrase occurs in text delimited by
// non-alphanumeric characters or the text boundaries. Both inputs are
// expected to be normalized already.
func ContainsBounded(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	offset := 0
	for {
		idx := strings.Index(text[offset:], phrase)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(phrase)
		if isBoundary(text, start-1) && isBoundary(text, end) {
			return true
		}
		offset = start + 1
		if offset >= len(text) {
			return false
		}
	}
}

func isBoundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	var r rune
	if text[i] < utf8.RuneSelf {
		r = rune(text[i])
	} else {
		// i may point into the middle of a multi-byte rune; walk back to its start.
		start := i
		for start > 0 && !utf8.RuneStart(text[start]) {
			start--
		}
		r, _ = utf8.DecodeRuneInString(text[start:])
	}
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func splitTrailingPunct(word string) (string, string) {
	end := len(word)
	for end > 0 {
		r, size := utf8.DecodeLastRuneInString(word[:end])
		if isWordRune(r) {
			break
		}
		end -= size
	}
	return word[:end], word[end:]
}
