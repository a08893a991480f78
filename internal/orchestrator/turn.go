package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"salesbot_backend/internal/agent"
	"salesbot_backend/internal/bookings"
	"salesbot_backend/internal/business"
	"salesbot_backend/internal/catalog"
	"salesbot_backend/internal/conversation"
	"salesbot_backend/internal/events"
	"salesbot_backend/internal/intent"
	"salesbot_backend/internal/scheduling"
	"salesbot_backend/platform/logger"
)

const (
	mediaPlaceholder = "(archivo adjunto)"
	focusWindow      = 4
	unnamedCustomer  = "Sin nombre"
)

type reply struct {
	body  string
	media string
}

// plan is everything one turn wants to change. Nothing is written until
// apply runs it.
type plan struct {
	patch    conversation.Patch
	replies  []reply
	record   *bookings.Record
	events   []events.Event
	silenced bool
}

// newPlan starts from the patch every turn writes: the customer message and
// the unread marker.
func newPlan(ev InboundEvent, now time.Time) *plan {
	content := ev.Body
	if content == "" && ev.MediaURL != "" {
		content = mediaPlaceholder
	}
	p := &plan{
		patch: conversation.Patch{
			Append: []conversation.Message{{
				Role:      conversation.RoleCustomer,
				Content:   content,
				Timestamp: now,
				MediaURL:  ev.MediaURL,
				MediaType: ev.MediaType,
				Unread:    true,
			}},
			Unread:      conversation.Ptr(true),
			LastMessage: conversation.Ptr("📩 " + content),
		},
	}
	if ev.ProfileName != "" {
		p.patch.ProfileName = conversation.Ptr(ev.ProfileName)
	}
	return p
}

func (p *plan) say(body, media string) {
	p.replies = append(p.replies, reply{body: body, media: media})
}

// handoff silences the bot until a human releases it. Automatic overrides
// never time out.
func (p *plan) handoff(lock bool) {
	p.patch.HumanOverride = conversation.Ptr(true)
	p.patch.HumanOverrideManual = conversation.Ptr(false)
	if lock {
		p.patch.SaleLocked = conversation.Ptr(true)
	}
}

// dropEffects undoes everything a turn planned except storing the customer
// message. Reservation scratch data stays as it was so the customer can
// confirm again.
func (p *plan) dropEffects() {
	p.replies = nil
	p.record = nil
	p.events = nil
	p.patch.HumanOverride = nil
	p.patch.HumanOverrideManual = nil
	p.patch.SaleLocked = nil
	p.patch.Reservation = nil
	p.patch.ClearReservation = false
}

// turn is the per-message view the planner works on.
type turn struct {
	biz   *business.Business
	conv  conversation.Conversation
	ev    InboundEvent
	text  string
	index *catalog.Index
	now   time.Time
	log   *logger.Logger
}

func (t *turn) knownName() string {
	if t.conv.CustomerName != "" {
		return t.conv.CustomerName
	}
	if t.ev.ProfileName != "" {
		return t.ev.ProfileName
	}
	return t.conv.ProfileName
}

func (t *turn) recordName() string {
	if n := t.knownName(); n != "" {
		return n
	}
	return unnamedCustomer
}

func (o *Orchestrator) plan(ctx context.Context, biz *business.Business, conv conversation.Conversation, ev InboundEvent, now time.Time, log *logger.Logger) (*plan, error) {
	p := newPlan(ev, now)
	timeout := o.opts.OverrideTimeout

	if conv.OverrideActive(now, timeout) {
		log.Info("orchestrator: conversation silenced", "saleLocked", conv.SaleLocked)
		p.silenced = true
		return p, nil
	}
	if conv.OverrideExpired(now, timeout) {
		log.Info("orchestrator: manual override expired, bot resumes")
		p.patch.HumanOverride = conversation.Ptr(false)
		p.patch.HumanOverrideManual = conversation.Ptr(false)
		conv.HumanOverride = false
		conv.HumanOverrideManual = false
	}

	t := &turn{
		biz:   biz,
		conv:  conv,
		ev:    ev,
		text:  p.patch.Append[0].Content,
		index: catalog.NewIndex(biz.Catalog),
		now:   now,
		log:   log,
	}

	state := conv.State(now, timeout)
	switch {
	case state.IsReservation():
		handled, err := o.reservationTurn(ctx, t, p)
		if err != nil || handled {
			return p, err
		}
		t.conv.Reservation = nil
	case state == conversation.StateNew:
		o.greet(t, p)
		return p, nil
	case state == conversation.StateAwaitingName:
		if o.nameTurn(t, p) {
			return p, nil
		}
	}

	return p, o.activeTurn(ctx, t, p)
}

func (o *Orchestrator) step(t *turn, r conversation.Reservation) scheduling.Step {
	duration := 0
	if item := t.index.Lookup(r.CandidateService); item != nil {
		duration = item.DurationMinutes
	}
	return scheduling.Step{
		BusinessID:      t.conv.BusinessID,
		CustomerID:      t.conv.CustomerID,
		CustomerName:    t.recordName(),
		Text:            t.text,
		Reservation:     r,
		Staff:           t.biz.Staff,
		DurationMinutes: duration,
		Location:        t.biz.Location(o.opts.DefaultTimezone),
	}
}

// reservationTurn feeds the message to the booking sub-flow. It reports false
// when the message was not an answer, in which case the scratch data is
// dropped and the message becomes a normal turn.
func (o *Orchestrator) reservationTurn(ctx context.Context, t *turn, p *plan) (bool, error) {
	res, err := o.flow.Advance(ctx, o.step(t, *t.conv.Reservation))
	if err != nil {
		return false, err
	}
	if res.Unhandled {
		t.log.Info("orchestrator: reservation answer not understood, continuing as dialogue",
			"step", string(t.conv.Reservation.Step))
		p.patch.ClearReservation = true
		return false, nil
	}
	applyFlow(p, res)
	return true, nil
}

func applyFlow(p *plan, res scheduling.Result) {
	if res.Next != nil {
		next := *res.Next
		p.patch.Reservation = &next
		p.patch.ClearReservation = false
	} else {
		p.patch.Reservation = nil
		p.patch.ClearReservation = true
	}
	if res.Booking != nil {
		p.record = res.Booking
		p.handoff(false)
	}
	if res.Reply != "" {
		p.say(res.Reply, "")
	}
}

func (o *Orchestrator) greet(t *turn, p *plan) {
	p.patch.Phase = conversation.Ptr(conversation.PhaseAwaitingName)
	if m := intent.MatchCampaign(t.text, t.biz.Campaigns); m != nil {
		p.patch.CampaignPending = &conversation.CampaignPending{
			Keyword: m.Campaign.Keyword,
			Offer:   m.Campaign.Offer,
			Expired: m.Expired,
		}
	}
	p.say(greeting(t.biz), "")
}

func greeting(b *business.Business) string {
	welcome := strings.TrimSpace(b.WelcomeMessage)
	if welcome == "" {
		return fmt.Sprintf("¡Hola! 👋 Bienvenido a %s. ¿Con quién tengo el gusto?", b.Name)
	}
	if !strings.Contains(welcome, "?") {
		welcome += " ¿Con quién tengo el gusto? 😊"
	}
	return welcome
}

// nameTurn handles the answer to the greeting. Whatever happens the
// conversation leaves the greeting phase; a message without a name is
// answered as normal dialogue.
func (o *Orchestrator) nameTurn(t *turn, p *plan) bool {
	p.patch.Phase = conversation.Ptr(conversation.PhaseActive)
	name, ok := intent.ExtractName(t.text)
	if !ok {
		return false
	}
	p.patch.CustomerName = conversation.Ptr(name)
	t.conv.CustomerName = name

	if pending := campaignFor(t); pending != nil {
		p.patch.ClearCampaignPending = true
		p.say(campaignReply(name, *pending), "")
		return true
	}
	p.say(fmt.Sprintf("¡Un gusto, %s! 😊 ¿En qué te puedo ayudar hoy?", name), "")
	return true
}

// campaignFor prefers a keyword in the current message over one remembered
// from the greeting.
func campaignFor(t *turn) *conversation.CampaignPending {
	if m := intent.MatchCampaign(t.text, t.biz.Campaigns); m != nil {
		return &conversation.CampaignPending{Keyword: m.Campaign.Keyword, Offer: m.Campaign.Offer, Expired: m.Expired}
	}
	return t.conv.CampaignPending
}

func campaignReply(name string, c conversation.CampaignPending) string {
	greet := ""
	if name != "" {
		greet = ", " + name
	}
	keyword := strings.ToUpper(strings.TrimSpace(c.Keyword))
	if c.Expired {
		return fmt.Sprintf("😔 Lo siento%s, la promoción *%s* ya no está vigente. ¿Te puedo ayudar con algo más de nuestro catálogo?", greet, keyword)
	}
	return fmt.Sprintf("🎉 ¡Excelente%s! Tu código *%s* está activo: %s. ¿Te gustaría aprovecharlo?", greet, keyword, c.Offer)
}

func (o *Orchestrator) activeTurn(ctx context.Context, t *turn, p *plan) error {
	if pending := campaignFor(t); pending != nil {
		p.patch.ClearCampaignPending = true
		p.say(campaignReply(t.conv.CustomerName, *pending), "")
		return nil
	}

	history := make([]conversation.Message, 0, o.opts.HistoryWindow+1)
	history = append(history, t.conv.Recent(o.opts.HistoryWindow)...)
	history = append(history, p.patch.Append[0])

	texts := make([]string, 0, len(t.conv.Messages))
	for _, m := range t.conv.Messages {
		texts = append(texts, m.Content)
	}
	focus := t.index.InFocus(catalog.RecentText(texts, focusWindow, t.text))

	lastAssistant := ""
	if m, ok := t.conv.LastAssistant(); ok {
		lastAssistant = m.Content
	}

	out, err := o.mediator.Respond(ctx, agent.Turn{
		Business:      t.biz,
		History:       history,
		Text:          t.text,
		CustomerName:  t.knownName(),
		Focus:         focus,
		LastAssistant: lastAssistant,
	})
	if err != nil {
		t.log.GenerationError("agent", err)
		p.say(apologyReply, "")
		return nil
	}

	switch a := out.Action.(type) {
	case agent.RegisterSale:
		o.registerSale(t, p, a)
		p.say(out.Reply, "")
	case agent.RegisterReservationIntent:
		res, err := o.flow.Advance(ctx, o.step(t, scheduling.Begin(a.Service)))
		if err != nil {
			return err
		}
		if res.Unhandled {
			p.patch.Reservation = conversation.Ptr(scheduling.Begin(a.Service))
			p.say(scheduling.BookingQuestion(a.Service), "")
			return nil
		}
		applyFlow(p, res)
	case agent.SendPhoto:
		p.say(out.Reply, out.MediaURL)
	default:
		p.say(out.Reply, "")
		if t.biz.AcceptsReservations && focus != nil && focus.RequiresReservation && intent.IsBookingQuestion(out.Reply) {
			p.patch.Reservation = conversation.Ptr(scheduling.Begin(focus.Name))
			p.patch.ClearReservation = false
		}
	}
	return nil
}

// registerSale hands the customer to a human. A purchase is written to the
// ledger and locks the conversation; an advisor request only silences it.
func (o *Orchestrator) registerSale(t *turn, p *plan, a agent.RegisterSale) {
	if a.Kind == agent.SaleAdvisor {
		p.handoff(false)
		p.events = append(p.events, events.SaleRegistered{
			BaseEvent:    events.NewBaseEventAt(t.now),
			RecordID:     uuid.Nil,
			BusinessID:   t.conv.BusinessID,
			CustomerID:   t.conv.CustomerID,
			CustomerName: t.recordName(),
			Summary:      a.Summary,
			Advisor:      true,
		})
		return
	}
	p.record = &bookings.Record{
		BusinessID:   t.conv.BusinessID,
		Type:         bookings.TypeSale,
		CustomerID:   t.conv.CustomerID,
		CustomerName: t.recordName(),
		Description:  a.Summary,
		Total:        a.Total,
		Status:       bookings.StatusConfirmed,
	}
	p.handoff(true)
}
