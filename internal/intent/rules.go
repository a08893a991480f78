// Package intent classifies customer and assistant text with explicit phrase
// tables. Detectors are pure: no side effects, no panics, no errors.
package intent

import (
	"strings"

	"salesbot_backend/platform/textnorm"
)

// Intent names what a matched phrase means.
type Intent string

const (
	IntentPurchase        Intent = "purchase"
	IntentPhotoRequest    Intent = "photo_request"
	IntentYes             Intent = "yes"
	IntentNo              Intent = "no"
	IntentAnyone          Intent = "anyone"
	IntentBookingQuestion Intent = "booking_question"
	IntentPortfolio       Intent = "portfolio"
	IntentCancel          Intent = "cancel"
)

// Rule maps a normalized phrase to an intent. Bounded rules only match when
// the phrase is delimited by whitespace, punctuation or the text edges.
type Rule struct {
	Phrase  string
	Intent  Intent
	Bounded bool
}

// Table is an ordered rule list; the first matching rule wins.
type Table []Rule

// Match returns the first rule matching text. text is normalized here, so
// callers may pass raw input.
func (t Table) Match(text string) (Rule, bool) {
	norm := textnorm.Normalize(text)
	if norm == "" {
		return Rule{}, false
	}
	for _, r := range t {
		if r.matches(norm) {
			return r, true
		}
	}
	return Rule{}, false
}

// Exact returns the rule whose phrase equals the whole text once edge
// punctuation is removed.
func (t Table) Exact(text string) (Rule, bool) {
	norm := strings.TrimFunc(textnorm.Normalize(text), isEdgePunct)
	if norm == "" {
		return Rule{}, false
	}
	for _, r := range t {
		if r.Phrase == norm {
			return r, true
		}
	}
	return Rule{}, false
}

func (r Rule) matches(norm string) bool {
	if r.Bounded {
		return textnorm.ContainsBounded(norm, r.Phrase)
	}
	return strings.Contains(norm, r.Phrase)
}

func isEdgePunct(r rune) bool {
	switch r {
	case ' ', '.', ',', '!', '?', '¡', '¿', ';', ':', '-', '"', '\'', '(', ')':
		return true
	}
	return false
}

func phrases(intent Intent, bounded bool, list ...string) Table {
	t := make(Table, 0, len(list))
	for _, p := range list {
		t = append(t, Rule{Phrase: p, Intent: intent, Bounded: bounded})
	}
	return t
}

func concat(tables ...Table) Table {
	var out Table
	for _, t := range tables {
		out = append(out, t...)
	}
	return out
}

var purchaseRules = concat(
	phrases(IntentPurchase, false,
		"quiero comprar", "quiero pagar", "manda cuenta", "mandame la cuenta", "pasame la cuenta",
		"pagar ya", "como pago", "donde pago", "me lo llevo", "me la llevo", "lo compro", "la compro",
		"hagamos el pedido", "hacer el pedido", "quiero hacer un pedido", "quiero pedir",
		"i want to buy", "i'll take it", "i will take it", "how do i pay",
	),
	phrases(IntentPurchase, true, "lo quiero", "la quiero", "comprar", "comprarlo", "comprarla", "pagar", "buy", "checkout"),
)

var photoRules = concat(
	phrases(IntentPhotoRequest, false,
		"foto", "imagen", "imagenes", "muestrame", "mostrarme", "ensename", "ensenar",
		"como se ve", "quiero ver", "puedo ver", "me mandas una", "photo", "picture",
	),
	phrases(IntentPhotoRequest, true, "pic", "pics"),
)

// noRules come first so a negative anywhere beats a positive.
var noRules = phrases(IntentNo, true,
	"no", "nop", "nope", "nah", "mejor no", "ahora no", "no gracias", "despues",
	"cancelar", "cancela", "not now", "no thanks",
)

var yesRules = phrases(IntentYes, true,
	"si", "sii", "sip", "dale", "de una", "claro", "ok", "okay", "listo", "perfecto", "confirmo",
	"confirmar", "confirmado", "hagamoslo", "va", "vale", "por favor", "me parece bien",
	"esta bien", "agendame", "agenda", "reserva", "yes", "yep", "sure", "of course", "please",
	"bueno", "de acuerdo", "obvio", "por supuesto", "sin problema", "no hay problema",
)

// affirmativeIdioms mean yes even though some contain "no".
var affirmativeIdioms = phrases(IntentYes, true,
	"no hay problema", "no hay lio", "no problem", "sin problema", "de acuerdo", "por supuesto",
	"obvio", "claro que si",
)

var anyoneRules = phrases(IntentAnyone, true,
	"cualquiera", "cualquier", "me da igual", "da igual", "el que sea", "la que sea", "quien sea",
	"no importa", "anyone", "any", "whoever", "whichever",
)

var cancelRules = phrases(IntentCancel, true, "cancelar", "cancela", "cancel", "olvidalo", "ya no")

var bookingQuestionRules = phrases(IntentBookingQuestion, false,
	"agendar", "agendamos", "agende", "reservar", "reservamos", "reserva", "cita", "turno",
	"book", "appointment",
)

var portfolioRules = phrases(IntentPortfolio, false,
	"instagram", "facebook", "portafolio", "portfolio", "pagina web", "nuestra web", "sitio web",
	"redes", "http://", "https://", "www.",
)
