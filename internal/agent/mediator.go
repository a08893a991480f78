package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"salesbot_backend/internal/business"
	"salesbot_backend/internal/catalog"
	"salesbot_backend/internal/conversation"
	"salesbot_backend/internal/intent"
	"salesbot_backend/internal/scheduling"
	"salesbot_backend/platform/apperr"
	"salesbot_backend/platform/logger"
	"salesbot_backend/platform/phone"
	"salesbot_backend/platform/sanitize"
)

// Customer-facing replies owned by the mediator.
const (
	SaleHandoffReply    = "✅ Entendido. Estoy conectándote con un asesor humano para finalizar. Te escribirán en breve. 👤📲"
	clarifySaleReply    = "¡Genial! 🙌 ¿Qué producto (y variante) te gustaría llevar exactamente? Así te conecto con un asesor."
	defaultPhotoCaption = "Aquí tienes 📸"
	emptyGenerationMsg  = "Entendido."
)

// Turn is the context the mediator needs for one customer message.
type Turn struct {
	Business      *business.Business
	SystemPrompt  string
	History       []conversation.Message
	Text          string
	CustomerName  string
	Focus         *catalog.Item
	LastAssistant string
}

// Outcome is the validated result of a turn. Action is set only for accepted
// proposals; Reply is always deliverable text unless the accepted action is
// a reservation intent, whose prompt comes from the booking sub-flow.
type Outcome struct {
	Reply     string
	MediaURL  string
	Action    Action
	Recovered bool
}

// Mediator validates model proposals against catalog and conversation facts.
type Mediator struct {
	gen Generator
	log *logger.Logger
}

// NewMediator creates a mediator over gen.
func NewMediator(gen Generator, log *logger.Logger) *Mediator {
	return &Mediator{gen: gen, log: log}
}

type rejection string

const (
	rejectNotRequested rejection = "not_requested"
	rejectNoFocus      rejection = "no_focus"
	rejectNoPhoto      rejection = "no_photo"
	rejectForeignPhoto rejection = "foreign_photo"
	rejectPortfolio    rejection = "after_portfolio"
	rejectMalformed    rejection = "malformed"
)

var correctiveInstructions = map[rejection]string{
	rejectNotRequested: "CORRECCIÓN: El cliente NO pidió ver una foto. Responde solo con texto a lo que preguntó.",
	rejectNoFocus:      "CORRECCIÓN: No está claro de qué producto habla el cliente. Pregúntale amablemente cuál producto quiere ver. Solo texto.",
	rejectNoPhoto:      "CORRECCIÓN: El producto en conversación NO tiene foto disponible. Dilo amablemente y ofrece describirlo. No inventes enlaces. Solo texto.",
	rejectForeignPhoto: "CORRECCIÓN: Esa foto no corresponde al producto en conversación. Responde solo con texto.",
	rejectPortfolio:    "CORRECCIÓN: Acabas de compartir los enlaces del portafolio. No envíes fotos; responde solo con texto.",
	rejectMalformed:    "CORRECCIÓN: Responde al cliente solo con texto.",
}

var fallbackReplies = map[rejection]string{
	rejectNotRequested: "¿En qué más te puedo ayudar? 😊",
	rejectNoFocus:      "¿De cuál producto te gustaría ver la foto? 😊",
	rejectNoPhoto:      "Por ahora no tengo una foto disponible de ese producto, pero con gusto te cuento más detalles. 😊",
	rejectForeignPhoto: "Por ahora no tengo una foto disponible de ese producto, pero con gusto te cuento más detalles. 😊",
	rejectPortfolio:    "En los enlaces que te compartí puedes ver más ejemplos. ¿Te ayudo con algo más? 😊",
	rejectMalformed:    "¿En qué más te puedo ayudar? 😊",
}

// Respond runs one generation and validates whatever it proposes. The only
// error it returns is a failed first generation call; every rejection is
// recovered locally.
func (m *Mediator) Respond(ctx context.Context, t Turn) (Outcome, error) {
	if t.SystemPrompt == "" {
		t.SystemPrompt = BuildSystemPrompt(t.Business)
	}
	history := m.history(t)

	gen, err := m.gen.Generate(ctx, Request{
		SystemPrompt: t.SystemPrompt + turnContext(t),
		History:      history,
		AllowActions: true,
	})
	if err != nil {
		if apperr.Is(err, apperr.KindValidation) {
			m.log.Warn("agent: malformed action proposal", "error", err)
			return m.recover(ctx, t, history, rejectMalformed), nil
		}
		return Outcome{}, err
	}

	switch a := gen.Action.(type) {
	case nil:
		return Outcome{Reply: m.postprocess(t.Business, gen.Text)}, nil
	case SendPhoto:
		return m.sendPhoto(ctx, t, history, a), nil
	case RegisterSale:
		return m.registerSale(t, a), nil
	case RegisterReservationIntent:
		return m.reservationIntent(ctx, t, history, a), nil
	}
	return m.recover(ctx, t, history, rejectMalformed), nil
}

func (m *Mediator) sendPhoto(ctx context.Context, t Turn, history []conversation.Message, a SendPhoto) Outcome {
	url, reason := checkPhoto(t, a)
	if reason != "" {
		m.log.Info("agent: photo proposal rejected", "reason", string(reason), "photo", a.PhotoURL)
		return m.recover(ctx, t, history, reason)
	}
	caption := m.postprocess(t.Business, a.Caption)
	if a.Caption == "" {
		caption = defaultPhotoCaption
	}
	a.PhotoURL = url
	return Outcome{Reply: caption, MediaURL: url, Action: a}
}

// checkPhoto returns the URL to send, or why the proposal must be refused.
func checkPhoto(t Turn, a SendPhoto) (string, rejection) {
	if !intent.IsPhotoRequest(t.Text) {
		return "", rejectNotRequested
	}
	if t.Focus == nil {
		return "", rejectNoFocus
	}
	if !catalog.HasPhoto(t.Focus) {
		return "", rejectNoPhoto
	}
	if intent.MentionsPortfolio(t.LastAssistant) {
		return "", rejectPortfolio
	}
	if a.PhotoURL == "" {
		return catalog.FirstPhoto(t.Focus), ""
	}
	if !catalog.OwnsPhoto(t.Focus, a.PhotoURL) {
		return "", rejectForeignPhoto
	}
	return a.PhotoURL, ""
}

func (m *Mediator) registerSale(t Turn, a RegisterSale) Outcome {
	if a.Summary == "" && t.Focus != nil {
		a.Summary = t.Focus.Name
	}
	// A customer asking for a person is handed off even when nothing was
	// picked; only a purchase needs to know what is being bought.
	if a.Kind == SaleAdvisor {
		return Outcome{Reply: SaleHandoffReply, Action: a}
	}
	if a.Summary == "" {
		return Outcome{Reply: clarifySaleReply, Recovered: true}
	}
	if a.Total == 0 && t.Focus != nil && t.Focus.Price != nil && strings.Contains(strings.ToLower(a.Summary), strings.ToLower(t.Focus.Name)) {
		a.Total = *t.Focus.Price
	}
	return Outcome{Reply: SaleHandoffReply, Action: a}
}

func (m *Mediator) reservationIntent(ctx context.Context, t Turn, history []conversation.Message, a RegisterReservationIntent) Outcome {
	eligible := t.Business.AcceptsReservations && t.Focus != nil && t.Focus.RequiresReservation
	if eligible && intent.IsBookingQuestion(t.LastAssistant) && intent.Confirmation(t.Text) == intent.AnswerYes {
		return Outcome{Action: RegisterReservationIntent{Service: t.Focus.Name}}
	}

	// Not a confirmed "yes": present the service and ask the canonical question.
	instruction := "CORRECCIÓN: Aún no se agenda nada. Presenta brevemente el servicio en conversación. No hagas preguntas al final. Solo texto."
	if !eligible {
		instruction = "CORRECCIÓN: No se puede agendar este pedido. Responde solo con texto."
	}
	text := m.requery(ctx, t, history, instruction)
	if text == "" && t.Focus != nil {
		text = fmt.Sprintf("%s: %s.", t.Focus.Name, t.Focus.PriceLabel())
	}
	if eligible {
		text = strings.TrimSpace(text + "\n\n" + scheduling.BookingQuestion(t.Focus.Name))
	}
	if text == "" {
		text = fallbackReplies[rejectMalformed]
	}
	return Outcome{Reply: text, Recovered: true}
}

func (m *Mediator) recover(ctx context.Context, t Turn, history []conversation.Message, reason rejection) Outcome {
	text := m.requery(ctx, t, history, correctiveInstructions[reason])
	if text == "" {
		text = fallbackReplies[reason]
	}
	return Outcome{Reply: text, Recovered: true}
}

// requery asks for a text-only answer. Failures degrade to "".
func (m *Mediator) requery(ctx context.Context, t Turn, history []conversation.Message, instruction string) string {
	gen, err := m.gen.Generate(ctx, Request{
		SystemPrompt: t.SystemPrompt + turnContext(t) + "\n\n" + instruction,
		History:      history,
	})
	if err != nil {
		m.log.Warn("agent: recovery generation failed", "error", err)
		return ""
	}
	if strings.TrimSpace(sanitize.StripAnnotations(gen.Text)) == "" {
		return ""
	}
	return m.postprocess(t.Business, gen.Text)
}

func (m *Mediator) history(t Turn) []conversation.Message {
	out := make([]conversation.Message, 0, len(t.History)+1)
	out = append(out, t.History...)
	return append(out, conversation.Message{Role: conversation.RoleCustomer, Content: t.Text})
}

func (m *Mediator) postprocess(b *business.Business, text string) string {
	text = sanitize.StripAnnotations(text)
	text = RedactAdmin(text, b)
	if strings.TrimSpace(text) == "" {
		return emptyGenerationMsg
	}
	return text
}

var phoneLike = regexp.MustCompile(`\+?\d[\d\s().-]{5,}\d`)

// RedactAdmin replaces every spelling of the admin phone with the public
// support line. Numbers written next to it are left alone.
func RedactAdmin(text string, b *business.Business) string {
	if b == nil || b.AdminPhone == "" {
		return text
	}
	admin := phone.Digits(phone.CanonicalID(b.AdminPhone))
	if len(admin) < 7 {
		return text
	}
	return phoneLike.ReplaceAllStringFunc(text, func(match string) string {
		return redactWithin(match, admin, b.SupportLine())
	})
}

// redactWithin also handles a match that ran several numbers together, e.g.
// "3001112233 3015550000". Each occurrence of the admin's subscriber digits
// that starts and ends on a digit-group boundary is replaced, along with the
// admin's country code and a leading '+' when they are written in front.
func redactWithin(match, admin, support string) string {
	key, prefix := admin, ""
	if len(admin) > 10 {
		key, prefix = admin[len(admin)-10:], admin[:len(admin)-10]
	}

	var pos []int
	for i := 0; i < len(match); i++ {
		if match[i] >= '0' && match[i] <= '9' {
			pos = append(pos, i)
		}
	}
	digits := phone.Digits(match)
	// groupEdge reports whether digit i starts a new group, i.e. is not
	// written directly after digit i-1.
	groupEdge := func(i int) bool {
		return i == 0 || i == len(pos) || pos[i] != pos[i-1]+1
	}

	var sb strings.Builder
	written := 0
	for from := 0; from+len(key) <= len(digits); {
		k := strings.Index(digits[from:], key)
		if k < 0 {
			break
		}
		start, end := from+k, from+k+len(key)
		from = start + 1
		if prefix != "" && start >= len(prefix) && digits[start-len(prefix):start] == prefix && groupEdge(start-len(prefix)) {
			start -= len(prefix)
		}
		if !groupEdge(start) || !groupEdge(end) || pos[start] < written {
			continue
		}
		lo := pos[start]
		if lo > 0 && match[lo-1] == '+' {
			lo--
		}
		sb.WriteString(match[written:lo])
		sb.WriteString(support)
		written = pos[end-1] + 1
		from = end
	}
	if written == 0 {
		return match
	}
	sb.WriteString(match[written:])
	return sb.String()
}

func turnContext(t Turn) string {
	var sb strings.Builder
	sb.WriteString("\n\n--- 🧭 CONTEXTO DEL TURNO ---\n")
	if t.CustomerName != "" {
		fmt.Fprintf(&sb, "NOMBRE DEL CLIENTE: %s\n", t.CustomerName)
	}
	if t.Focus != nil {
		photo := "no"
		if catalog.HasPhoto(t.Focus) {
			photo = "sí (" + strings.Join(t.Focus.Photos(), ", ") + ")"
		}
		fmt.Fprintf(&sb, "PRODUCTO EN CONVERSACIÓN: %s. Fotos: %s\n", t.Focus.Name, photo)
	}
	if intent.IsPurchaseConfirmation(t.Text) {
		sb.WriteString("SEÑAL DE COMPRA: el cliente confirma que quiere comprar. Usa registerSale.\n")
	}
	return sb.String()
}
