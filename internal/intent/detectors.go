package intent

import (
	"strings"
	"unicode"

	"salesbot_backend/platform/textnorm"
)

// Answer is the outcome of a yes/no classification.
type Answer int

const (
	AnswerUnknown Answer = iota
	AnswerYes
	AnswerNo
)

func (a Answer) String() string {
	switch a {
	case AnswerYes:
		return "yes"
	case AnswerNo:
		return "no"
	default:
		return "unknown"
	}
}

// IsPurchaseConfirmation reports whether the customer states they want to buy.
func IsPurchaseConfirmation(text string) bool {
	_, ok := purchaseRules.Match(text)
	return ok
}

// IsPhotoRequest reports whether the customer explicitly asks to see a photo.
func IsPhotoRequest(text string) bool {
	_, ok := photoRules.Match(text)
	return ok
}

// Confirmation classifies a reply to a yes/no question. Only exact or bounded
// matches count, and a negative anywhere wins over a positive. Affirmative
// idioms such as "no hay problema" are taken out before looking for a
// negative, so their own "no" does not count.
func Confirmation(text string) Answer {
	if r, ok := noRules.Exact(text); ok {
		return answerFor(r.Intent)
	}
	if r, ok := yesRules.Exact(text); ok {
		return answerFor(r.Intent)
	}
	rest, idiom := withoutIdioms(text)
	if _, ok := noRules.Match(rest); ok {
		return AnswerNo
	}
	if idiom {
		return AnswerYes
	}
	if _, ok := yesRules.Match(text); ok {
		return AnswerYes
	}
	return AnswerUnknown
}

// withoutIdioms returns the normalized words of text with every affirmative
// idiom removed, and whether any was found.
func withoutIdioms(text string) (string, bool) {
	words := strings.FieldsFunc(textnorm.Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	padded := " " + strings.Join(words, " ") + " "
	found := false
	for _, r := range affirmativeIdioms {
		needle := " " + r.Phrase + " "
		for strings.Contains(padded, needle) {
			padded = strings.Replace(padded, needle, " ", 1)
			found = true
		}
	}
	return strings.TrimSpace(padded), found
}

func answerFor(i Intent) Answer {
	switch i {
	case IntentYes:
		return AnswerYes
	case IntentNo:
		return AnswerNo
	default:
		return AnswerUnknown
	}
}

// IsAnyone reports whether the customer leaves the staff choice to us.
func IsAnyone(text string) bool {
	_, ok := anyoneRules.Match(text)
	return ok
}

// IsCancel reports an explicit request to abandon the current flow.
func IsCancel(text string) bool {
	_, ok := cancelRules.Match(text)
	return ok
}

// IsBookingQuestion reports whether an assistant message asks the customer
// whether they want to book.
func IsBookingQuestion(assistantText string) bool {
	if !strings.Contains(assistantText, "?") {
		return false
	}
	_, ok := bookingQuestionRules.Match(assistantText)
	return ok
}

// MentionsPortfolio reports whether an assistant message pointed the customer
// at external links (web, social networks).
func MentionsPortfolio(assistantText string) bool {
	_, ok := portfolioRules.Match(assistantText)
	return ok
}

var nameLeadIns = [][]string{
	{"mi", "nombre", "es"},
	{"me", "llamo"},
	{"my", "name", "is"},
	{"i", "am"},
	{"soy"},
	{"im"},
	{"habla"},
}

var greetingWords = map[string]bool{
	"hola": true, "buenas": true, "buenos": true, "buen": true, "dia": true, "dias": true,
	"tardes": true, "noches": true, "hello": true, "hi": true, "hey": true, "que": true,
	"tal": true, "saludos": true,
}

var notNameWords = map[string]bool{
	"quiero": true, "precio": true, "precios": true, "cuanto": true, "cuesta": true, "tienen": true,
	"tienes": true, "ver": true, "info": true, "informacion": true, "necesito": true, "gracias": true,
	"si": true, "no": true, "ok": true, "donde": true, "como": true, "cual": true, "busco": true,
	"me": true, "interesa": true, "puedo": true, "quisiera": true, "want": true, "price": true,
}

// ExtractName pulls a customer name from a reply to "what's your name?".
// It accepts lead-ins like "me llamo" or "soy" and bare one to three word
// answers, and refuses text that reads like a question about the catalog.
func ExtractName(text string) (string, bool) {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	keys := make([]string, len(words))
	for i, w := range words {
		keys[i] = strings.ReplaceAll(textnorm.Normalize(w), "'", "")
	}

	i := 0
	for i < len(keys) && greetingWords[keys[i]] {
		i++
	}

	ledIn := false
	for _, lead := range nameLeadIns {
		if hasPrefixWords(keys[i:], lead) {
			i += len(lead)
			ledIn = true
			break
		}
	}

	rest := words[i:]
	restKeys := keys[i:]
	if len(rest) == 0 {
		return "", false
	}
	if !ledIn {
		if len(rest) > 3 {
			return "", false
		}
		for _, k := range restKeys {
			if notNameWords[k] || greetingWords[k] {
				return "", false
			}
		}
	}

	n := min(len(rest), 2)
	parts := make([]string, 0, n)
	for _, w := range rest[:n] {
		if notNameWords[textnorm.Normalize(w)] {
			break
		}
		parts = append(parts, capitalize(w))
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

func hasPrefixWords(words, prefix []string) bool {
	if len(words) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if words[i] != p {
			return false
		}
	}
	return true
}

func capitalize(w string) string {
	runes := []rune(strings.ToLower(w))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
