package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"salesbot_backend/internal/agent"
	"salesbot_backend/internal/bookings"
	"salesbot_backend/internal/business"
	"salesbot_backend/internal/conversation"
	"salesbot_backend/platform/apperr"
	"salesbot_backend/platform/logger"
	"salesbot_backend/platform/phone"
	"salesbot_backend/platform/textnorm"
)

const (
	ownerPrompt        = "Eres una interfaz de base de datos hablando con el DUEÑO del negocio. Responde brevemente."
	ownerFallback      = "Entendido."
	ownerSearchLimit   = 10
	ownerSalesScan     = 50
	lastMessagePreview = 50
)

var (
	reportKeywords = []string{"ventas", "resumen", "reporte", "hoy", "como vamos", "dinero"}
	searchKeywords = []string{
		"buscar", "busca", "cliente", "datos", "quien", "info", "numero", "telefono", "celular",
		"contacto", "dame", "tienes", "ver", "necesito", "pasame", "pasa", "envia", "compro", "pago", "valor",
	}
	lastReferences = map[string]bool{
		"ese": true, "este": true, "esa": true, "esta": true,
		"ultimo": true, "ultima": true, "anterior": true,
	}
	fillerWords = map[string]bool{
		"de": true, "del": true, "el": true, "la": true, "los": true, "las": true, "un": true,
		"una": true, "a": true, "al": true, "me": true, "mi": true, "su": true, "sus": true,
		"que": true, "por": true, "favor": true, "porfa": true, "y": true, "o": true, "con": true,
		"para": true, "lo": true, "le": true, "se": true, "hola": true,
	}
)

func init() {
	for _, k := range searchKeywords {
		fillerWords[k] = true
	}
}

// handleOwner answers the business owner: daily report, customer lookup, or
// a short free-form answer. The exchange is kept in the owner's own
// conversation.
func (o *Orchestrator) handleOwner(ctx context.Context, biz *business.Business, conv conversation.Conversation, ev InboundEvent, now time.Time, log *logger.Logger) (Result, error) {
	p := newPlan(ev, now)
	p.patch.Append[0].Unread = false
	p.patch.Unread = conversation.Ptr(false)

	p.say(o.ownerReply(ctx, biz, conv, ev.Body, now, log), "")
	return o.apply(ctx, conv.Key, p, now, log)
}

func (o *Orchestrator) ownerReply(ctx context.Context, biz *business.Business, conv conversation.Conversation, text string, now time.Time, log *logger.Logger) string {
	norm := strings.Trim(textnorm.Normalize(text), "?¿!¡. ")
	switch {
	case containsAny(norm, reportKeywords):
		return o.dailyReport(ctx, biz, now, log)
	case containsAny(norm, searchKeywords):
		return o.customerLookup(ctx, biz, norm, log)
	}

	gen, err := o.generator.Generate(ctx, agent.Request{
		SystemPrompt: ownerPrompt,
		History: append(conv.Recent(o.opts.HistoryWindow), conversation.Message{
			Role:      conversation.RoleCustomer,
			Content:   text,
			Timestamp: now,
		}),
	})
	if err != nil {
		log.GenerationError("agent", err)
		return ownerFallback
	}
	if reply := strings.TrimSpace(agent.RedactAdmin(gen.Text, biz)); reply != "" {
		return reply
	}
	return ownerFallback
}

func containsAny(norm string, phrases []string) bool {
	for _, ph := range phrases {
		if textnorm.ContainsBounded(norm, ph) {
			return true
		}
	}
	return false
}

func (o *Orchestrator) dailyReport(ctx context.Context, biz *business.Business, now time.Time, log *logger.Logger) string {
	loc := biz.Location(o.opts.DefaultTimezone)
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	records, err := o.ledger.ListSince(ctx, biz.ChannelID, start)
	if err != nil {
		log.DatabaseError("ledger list since", err)
		return "⚠️ No pude consultar las ventas en este momento."
	}
	sum := bookings.Summarize(records)

	var sb strings.Builder
	sb.WriteString("📊 *REPORTE DIARIO*\n\n")
	fmt.Fprintf(&sb, "💰 *Ventas:* %d\n", sum.Count)
	fmt.Fprintf(&sb, "💵 *Total:* $%s\n\n", bookings.FormatAmount(sum.Total))
	sb.WriteString("📝 *Detalle:*\n")
	if len(sum.Sales) == 0 {
		sb.WriteString("• No hay ventas hoy.")
		return sb.String()
	}
	for _, s := range sum.Sales {
		fmt.Fprintf(&sb, "• %s: %s ($%s)\n", s.CustomerName, s.Description, bookings.FormatAmount(s.Total))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// searchTerm drops command and filler words, keeping what the owner is
// looking for.
func searchTerm(norm string) (term string, last bool) {
	var kept []string
	for _, w := range strings.Fields(norm) {
		w = strings.Trim(w, "?¿!¡.,:;\"'")
		if lastReferences[w] {
			last = true
			continue
		}
		if w == "" || fillerWords[w] {
			continue
		}
		kept = append(kept, w)
	}
	term = strings.Join(kept, " ")
	return term, last || len([]rune(term)) < 2
}

func (o *Orchestrator) customerLookup(ctx context.Context, biz *business.Business, norm string, log *logger.Logger) string {
	term, last := searchTerm(norm)
	if last {
		return o.lastCustomer(ctx, biz, log)
	}

	var sb strings.Builder
	found := false

	convs, err := o.conversations.Search(ctx, biz.ChannelID, term, ownerSearchLimit+1)
	if err != nil {
		log.DatabaseError("conversation search", err)
	}
	var chats []conversation.Conversation
	for _, c := range convs {
		if !biz.IsAdmin(c.CustomerID) && len(chats) < ownerSearchLimit {
			chats = append(chats, c)
		}
	}
	if len(chats) > 0 {
		found = true
		sb.WriteString("📂 *CHATS:*\n")
		for _, c := range chats {
			digits := phone.Digits(c.CustomerID)
			fmt.Fprintf(&sb, "👤 *%s*\n📱 +%s\n🔗 wa.me/%s\n\n", c.DisplayName(), digits, digits)
		}
	}

	recent, err := o.ledger.Recent(ctx, biz.ChannelID, ownerSalesScan)
	if err != nil {
		log.DatabaseError("ledger recent", err)
	}
	loc := biz.Location(o.opts.DefaultTimezone)
	var sales []bookings.Record
	for _, r := range recent {
		if r.Type == bookings.TypeSale && saleMatches(r, term) {
			sales = append(sales, r)
		}
	}
	if len(sales) > 0 {
		found = true
		sb.WriteString("🛒 *VENTAS:*\n")
		for _, r := range sales {
			digits := phone.Digits(r.CustomerID)
			fmt.Fprintf(&sb, "💰 %s: %s\n📱 +%s\n🔗 wa.me/%s\n\n",
				r.CreatedAt.In(loc).Format("02/01/2006"), r.CustomerName, digits, digits)
		}
	}

	if !found {
		return fmt.Sprintf("❌ No encontré datos para \"%s\".", term)
	}
	return strings.TrimRight(fmt.Sprintf("🔍 *Resultados para: \"%s\"*\n\n", term)+sb.String(), "\n")
}

func saleMatches(r bookings.Record, term string) bool {
	if textnorm.ContainsBounded(textnorm.Normalize(r.CustomerName), term) ||
		strings.Contains(textnorm.Normalize(r.Description), term) {
		return true
	}
	if d := phone.Digits(term); d != "" {
		return strings.Contains(phone.Digits(r.CustomerID), d) || strconv.FormatInt(r.Total, 10) == d
	}
	return false
}

// lastCustomer resolves "ese cliente": the latest sale, else the most
// recently active chat that is not the owner's.
func (o *Orchestrator) lastCustomer(ctx context.Context, biz *business.Business, log *logger.Logger) string {
	sale, err := o.ledger.LatestSale(ctx, biz.ChannelID)
	switch {
	case err == nil:
		digits := phone.Digits(sale.CustomerID)
		return fmt.Sprintf("📌 *ÚLTIMO CLIENTE (Venta Reciente):*\n\n👤 %s\n📱 +%s\n🔗 wa.me/%s\n📦 %s ($%s)",
			sale.CustomerName, digits, digits, sale.Description, bookings.FormatAmount(sale.Total))
	case !apperr.Is(err, apperr.KindNotFound):
		log.DatabaseError("ledger latest sale", err)
	}

	convs, err := o.conversations.List(ctx, biz.ChannelID, ownerSearchLimit)
	if err != nil {
		log.DatabaseError("conversation list", err)
	}
	for _, c := range convs {
		if biz.IsAdmin(c.CustomerID) {
			continue
		}
		digits := phone.Digits(c.CustomerID)
		return fmt.Sprintf("📌 *ÚLTIMO CHAT ACTIVO:*\n\n👤 %s\n📱 +%s\n🔗 wa.me/%s\n💬 \"%s\"",
			c.DisplayName(), digits, digits, preview(c.LastMessage, lastMessagePreview))
	}
	return "❌ No encontré registros recientes de clientes (solo el tuyo)."
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
