// Package orchestrator runs one conversation turn per inbound message: it
// loads state, decides what to say or record, and applies the plan.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"salesbot_backend/internal/agent"
	"salesbot_backend/internal/bookings"
	"salesbot_backend/internal/business"
	"salesbot_backend/internal/conversation"
	"salesbot_backend/internal/events"
	"salesbot_backend/internal/scheduling"
	"salesbot_backend/internal/whatsapp"
	"salesbot_backend/platform/apperr"
	"salesbot_backend/platform/logger"
	"salesbot_backend/platform/phone"
)

const (
	defaultOverrideTimeout = 30 * time.Minute
	defaultHistoryWindow   = 10

	apologyReply = "Lo siento, tuve un problema técnico 🙏. ¿Me escribes de nuevo en un momento?"
)

// Sender delivers outbound channel messages.
type Sender interface {
	Send(ctx context.Context, msg whatsapp.OutboundMessage) error
}

// InboundEvent is one customer message as received from the channel.
type InboundEvent struct {
	MessageID   string
	BusinessID  string
	CustomerID  string
	Body        string
	MediaURL    string
	MediaType   string
	ProfileName string
}

// Result describes what a turn did.
type Result struct {
	Dropped   bool
	Duplicate bool
	Owner     bool
	Silenced  bool
	Replies   int
}

// Options are the engine tunables.
type Options struct {
	OverrideTimeout time.Duration
	HistoryWindow   int
	DefaultTimezone string
}

// Deps are the collaborators of the orchestrator. Dedupe may be nil.
type Deps struct {
	Businesses    business.Source
	Conversations conversation.Repository
	Ledger        bookings.Ledger
	Mediator      *agent.Mediator
	Generator     agent.Generator
	Flow          *scheduling.Flow
	Sender        Sender
	Bus           events.Bus
	Dedupe        Deduper
	Log           *logger.Logger
}

// Orchestrator is the per-turn engine.
type Orchestrator struct {
	businesses    business.Source
	conversations conversation.Repository
	ledger        bookings.Ledger
	mediator      *agent.Mediator
	generator     agent.Generator
	flow          *scheduling.Flow
	sender        Sender
	bus           events.Bus
	dedupe        Deduper
	opts          Options
	log           *logger.Logger
	now           func() time.Time
}

// New wires an orchestrator.
func New(d Deps, opts Options) *Orchestrator {
	if opts.OverrideTimeout <= 0 {
		opts.OverrideTimeout = defaultOverrideTimeout
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = defaultHistoryWindow
	}
	return &Orchestrator{
		businesses:    d.Businesses,
		conversations: d.Conversations,
		ledger:        d.Ledger,
		mediator:      d.Mediator,
		generator:     d.Generator,
		flow:          d.Flow,
		sender:        d.Sender,
		bus:           d.Bus,
		dedupe:        d.Dedupe,
		opts:          opts,
		log:           d.Log,
		now:           time.Now,
	}
}

// WithClock overrides the time source of the engine and its booking flow.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	o.flow.WithClock(now)
	return o
}

// HandleInbound processes one inbound message. Unknown channels and
// duplicates are dropped without error. Generation and channel failures are
// answered with an apology rather than returned.
func (o *Orchestrator) HandleInbound(ctx context.Context, ev InboundEvent) (Result, error) {
	ev.BusinessID = phone.CanonicalID(ev.BusinessID)
	ev.CustomerID = phone.CanonicalID(ev.CustomerID)
	ev.Body = strings.TrimSpace(ev.Body)
	log := o.log.WithConversation(ev.BusinessID, ev.CustomerID)

	if o.isDuplicate(ctx, ev.MessageID, log) {
		log.Info("orchestrator: duplicate delivery ignored", "messageId", ev.MessageID)
		return Result{Duplicate: true}, nil
	}

	key := conversation.Key{BusinessID: ev.BusinessID, CustomerID: ev.CustomerID}
	biz, conv, err := o.load(ctx, key)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			log.Info("orchestrator: no business for channel, dropping")
			return Result{Dropped: true}, nil
		}
		return Result{}, err
	}

	now := o.now()
	if biz.IsAdmin(ev.CustomerID) {
		res, err := o.handleOwner(ctx, &biz, conv, ev, now, log)
		res.Owner = true
		return res, err
	}

	p, err := o.plan(ctx, &biz, conv, ev, now, log)
	if err != nil {
		log.Error("orchestrator: turn failed, apologising", "error", err)
		p = newPlan(ev, now)
		p.say(apologyReply, "")
	}
	return o.apply(ctx, key, p, now, log)
}

func (o *Orchestrator) isDuplicate(ctx context.Context, messageID string, log *logger.Logger) bool {
	if o.dedupe == nil || messageID == "" {
		return false
	}
	first, err := o.dedupe.Claim(ctx, messageID)
	if err != nil {
		log.Warn("orchestrator: dedupe unavailable", "error", err)
		return false
	}
	return !first
}

func (o *Orchestrator) load(ctx context.Context, key conversation.Key) (business.Business, conversation.Conversation, error) {
	var biz business.Business
	var conv conversation.Conversation

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := o.businesses.Get(gctx, key.BusinessID)
		if err != nil {
			return err
		}
		biz = b
		return nil
	})
	g.Go(func() error {
		c, err := o.conversations.Get(gctx, key)
		if apperr.Is(err, apperr.KindNotFound) {
			c, err = conversation.New(key), nil
		}
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "load conversation", err)
		}
		conv = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return business.Business{}, conversation.Conversation{}, err
	}
	conv.Key = key
	return biz, conv, nil
}

// apply executes a plan in a fixed order: ledger, conversation, channel,
// events. A failed ledger write downgrades the turn to an apology so that no
// handoff is announced without its record. Once a record exists the turn is
// carried through: the lock is retried on its own, and the reply and owner
// alert go out even if the conversation could not be stored.
func (o *Orchestrator) apply(ctx context.Context, key conversation.Key, p *plan, now time.Time, log *logger.Logger) (Result, error) {
	// A dropped webhook request must not cut a turn between its writes.
	ctx = context.WithoutCancel(ctx)

	recorded := false
	if p.record != nil {
		rec, err := o.ledger.Append(ctx, *p.record)
		if err != nil {
			log.DatabaseError("ledger append", err)
			p.dropEffects()
			p.say(apologyReply, "")
		} else {
			recorded = true
			p.events = append(p.events, recordEvent(rec, now))
		}
	}

	for _, r := range p.replies {
		p.patch.Append = append(p.patch.Append, conversation.Message{
			Role:      conversation.RoleAssistant,
			Content:   r.body,
			Timestamp: now,
			MediaURL:  r.media,
		})
	}
	if n := len(p.replies); n > 0 {
		p.patch.LastMessage = conversation.Ptr("🤖 " + p.replies[n-1].body)
	}

	saveErr := o.conversations.Save(ctx, key, p.patch)
	if saveErr != nil {
		log.DatabaseError("conversation save", saveErr)
		if !recorded {
			return Result{}, saveErr
		}
		if err := o.conversations.Save(ctx, key, handoffPatch(p.patch)); err != nil {
			log.DatabaseError("conversation handoff retry", err)
		} else {
			saveErr = nil
		}
	}

	sent := 0
	for _, r := range p.replies {
		msg := whatsapp.OutboundMessage{From: key.BusinessID, To: key.CustomerID, Body: r.body, MediaURL: r.media}
		if err := o.sender.Send(ctx, msg); err != nil {
			log.ChannelError(key.CustomerID, err)
			if r.body != apologyReply {
				_ = o.sender.Send(ctx, whatsapp.OutboundMessage{From: key.BusinessID, To: key.CustomerID, Body: apologyReply})
			}
			break
		}
		sent++
	}

	for _, e := range p.events {
		o.bus.Publish(ctx, e)
	}
	return Result{Silenced: p.silenced, Replies: sent}, saveErr
}

// handoffPatch keeps only the override and reservation fields of patch, the
// part that must follow a ledger record.
func handoffPatch(patch conversation.Patch) conversation.Patch {
	return conversation.Patch{
		HumanOverride:       patch.HumanOverride,
		HumanOverrideManual: patch.HumanOverrideManual,
		SaleLocked:          patch.SaleLocked,
		Reservation:         patch.Reservation,
		ClearReservation:    patch.ClearReservation,
	}
}

func recordEvent(rec bookings.Record, now time.Time) events.Event {
	if rec.Type == bookings.TypeReservation {
		var at time.Time
		if rec.ScheduledAt != nil {
			at = *rec.ScheduledAt
		}
		return events.ReservationBooked{
			BaseEvent:       events.NewBaseEventAt(now),
			RecordID:        rec.ID,
			BusinessID:      rec.BusinessID,
			CustomerID:      rec.CustomerID,
			CustomerName:    rec.CustomerName,
			Service:         rec.Description,
			Staff:           rec.Staff,
			ScheduledAt:     at,
			DurationMinutes: rec.DurationMinutes,
		}
	}
	return events.SaleRegistered{
		BaseEvent:    events.NewBaseEventAt(now),
		RecordID:     rec.ID,
		BusinessID:   rec.BusinessID,
		CustomerID:   rec.CustomerID,
		CustomerName: rec.CustomerName,
		Summary:      rec.Description,
		Total:        rec.Total,
	}
}
