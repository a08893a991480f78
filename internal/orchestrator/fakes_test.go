package orchestrator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
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
	"salesbot_backend/internal/whatsapp"
	"salesbot_backend/platform/apperr"
	"salesbot_backend/platform/logger"
)

const (
	testChannel  = "+14155238886"
	testCustomer = "+573105550000"
	testAdmin    = "+573001112233"
)

type staticBusinesses map[string]business.Business

func (s staticBusinesses) Get(_ context.Context, channelID string) (business.Business, error) {
	b, ok := s[channelID]
	if !ok {
		return business.Business{}, apperr.NotFound("business not found")
	}
	return b, nil
}

// memConversations applies patches the same way the Postgres repository
// merges them.
type memConversations struct {
	mu    sync.Mutex
	now   func() time.Time
	convs map[conversation.Key]conversation.Conversation
	err   error
	// failSaves makes the next n Save calls fail.
	failSaves int
}

func newMemConversations(now func() time.Time) *memConversations {
	return &memConversations{now: now, convs: map[conversation.Key]conversation.Conversation{}}
}

func (m *memConversations) put(c conversation.Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs[c.Key] = c
}

func (m *memConversations) get(key conversation.Key) conversation.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.convs[key]
}

func (m *memConversations) Get(_ context.Context, key conversation.Key) (conversation.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convs[key]
	if !ok {
		return conversation.Conversation{}, apperr.NotFound("conversation not found")
	}
	return c, nil
}

func (m *memConversations) Save(_ context.Context, key conversation.Key, patch conversation.Patch) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaves > 0 {
		m.failSaves--
		return errors.New("write timeout")
	}
	c, ok := m.convs[key]
	if !ok {
		c = conversation.New(key)
	}
	out, err := conversation.Apply(c, patch, m.now())
	if err != nil {
		return err
	}
	m.convs[key] = out
	return nil
}

func (m *memConversations) List(_ context.Context, businessID string, limit int) ([]conversation.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []conversation.Conversation
	for k, c := range m.convs {
		if k.BusinessID == businessID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memConversations) Search(ctx context.Context, businessID, term string, limit int) ([]conversation.Conversation, error) {
	all, err := m.List(ctx, businessID, 0)
	if err != nil {
		return nil, err
	}
	return conversation.Filter(all, term, limit), nil
}

type memLedger struct {
	mu        sync.Mutex
	now       func() time.Time
	records   []bookings.Record
	appendErr error
}

func (l *memLedger) Append(_ context.Context, rec bookings.Record) (bookings.Record, error) {
	if l.appendErr != nil {
		return bookings.Record{}, l.appendErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	rec.ID = uuid.New()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = l.now()
	}
	l.records = append(l.records, rec)
	return rec, nil
}

func (l *memLedger) ReservationsBetween(_ context.Context, businessID string, from, to time.Time) ([]bookings.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []bookings.Record
	for _, r := range l.records {
		if r.BusinessID == businessID && r.Type == bookings.TypeReservation && r.ScheduledAt != nil &&
			!r.ScheduledAt.Before(from) && r.ScheduledAt.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *memLedger) ListSince(_ context.Context, businessID string, since time.Time) ([]bookings.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []bookings.Record
	for _, r := range l.records {
		if r.BusinessID == businessID && !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *memLedger) LatestSale(_ context.Context, businessID string) (bookings.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.records) - 1; i >= 0; i-- {
		if r := l.records[i]; r.BusinessID == businessID && r.Type == bookings.TypeSale {
			return r, nil
		}
	}
	return bookings.Record{}, apperr.NotFound("no sales recorded")
}

func (l *memLedger) Recent(_ context.Context, businessID string, limit int) ([]bookings.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []bookings.Record
	for i := len(l.records) - 1; i >= 0 && len(out) < limit; i-- {
		if l.records[i].BusinessID == businessID {
			out = append(out, l.records[i])
		}
	}
	return out, nil
}

func (l *memLedger) sales() []bookings.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]bookings.Record(nil), l.records...)
}

type recordingSender struct {
	mu   sync.Mutex
	sent []whatsapp.OutboundMessage
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg whatsapp.OutboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *recordingSender) reset() []whatsapp.OutboundMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sent
	s.sent = nil
	return out
}

type scriptedGenerator struct {
	mu        sync.Mutex
	responses []agent.Generation
	errs      []error
	requests  []agent.Request
}

func (g *scriptedGenerator) queue(gen agent.Generation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses = append(g.responses, gen)
	g.errs = append(g.errs, nil)
}

func (g *scriptedGenerator) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses = append(g.responses, agent.Generation{})
	g.errs = append(g.errs, err)
}

func (g *scriptedGenerator) Generate(_ context.Context, req agent.Request) (agent.Generation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if len(g.responses) == 0 {
		return agent.Generation{}, errors.New("no scripted response")
	}
	gen, err := g.responses[0], g.errs[0]
	g.responses, g.errs = g.responses[1:], g.errs[1:]
	return gen, err
}

func price(v int64) *int64 { return &v }

func testBusiness() business.Business {
	return business.Business{
		ChannelID:           testChannel,
		Name:                "Spa Sol",
		Persona:             business.PersonaFriendly,
		AdminPhone:          testAdmin,
		SupportContact:      "+57 601 555 0000",
		AcceptsReservations: true,
		Timezone:            "UTC",
		Catalog: []catalog.Category{{
			Name: "General",
			Items: []catalog.Item{
				{Name: "Masaje", Price: price(80000), RequiresReservation: true, DurationMinutes: 60},
				{Name: "Camisa", Price: price(45000)},
				{Name: "Gorra", Price: price(30000), Photo: "https://cdn.example.com/gorra.jpg"},
			},
		}},
		Staff: []scheduling.StaffMember{{
			Name:        "Laura",
			WorkingDays: []string{"lun", "mar", "mie", "jue", "vie", "sab"},
			DayStart:    "09:00",
			DayEnd:      "18:00",
		}},
		Campaigns: []intent.Campaign{{Keyword: "RELAX", Offer: "10% en masajes", Status: intent.CampaignActive}},
	}
}

type harness struct {
	o      *Orchestrator
	convs  *memConversations
	ledger *memLedger
	sender *recordingSender
	gen    *scriptedGenerator
	bus    *events.InMemoryBus
	now    time.Time

	mu        sync.Mutex
	published []events.Event
}

func newHarness(t *testing.T, biz business.Business) *harness {
	t.Helper()
	h := &harness{
		sender: &recordingSender{},
		gen:    &scriptedGenerator{},
		bus:    events.NewInMemoryBus(logger.Discard()),
		// Tuesday.
		now: time.Date(2026, time.March, 10, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }
	h.convs = newMemConversations(clock)
	h.ledger = &memLedger{now: clock}

	collect := events.HandlerFunc(func(_ context.Context, e events.Event) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.published = append(h.published, e)
		return nil
	})
	h.bus.Subscribe(events.SaleRegistered{}.EventName(), collect)
	h.bus.Subscribe(events.ReservationBooked{}.EventName(), collect)

	h.o = New(Deps{
		Businesses:    staticBusinesses{biz.ChannelID: biz},
		Conversations: h.convs,
		Ledger:        h.ledger,
		Mediator:      agent.NewMediator(h.gen, logger.Discard()),
		Generator:     h.gen,
		Flow:          scheduling.NewFlow(h.ledger),
		Sender:        h.sender,
		Bus:           h.bus,
		Log:           logger.Discard(),
	}, Options{}).WithClock(clock)
	return h
}

func (h *harness) key() conversation.Key {
	return conversation.Key{BusinessID: testChannel, CustomerID: testCustomer}
}

func (h *harness) receive(t *testing.T, from, body string) Result {
	t.Helper()
	res, err := h.o.HandleInbound(context.Background(), InboundEvent{
		MessageID:  uuid.NewString(),
		BusinessID: testChannel,
		CustomerID: from,
		Body:       body,
	})
	if err != nil {
		t.Fatalf("unexpected error handling %q: %v", body, err)
	}
	return res
}

func (h *harness) publishedEvents() []events.Event {
	h.bus.Wait()
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]events.Event(nil), h.published...)
}

func (h *harness) activeConversation(name string) {
	h.convs.put(conversation.Conversation{
		Key:          h.key(),
		CustomerName: name,
		Phase:        conversation.PhaseActive,
		Messages: []conversation.Message{
			{Role: conversation.RoleCustomer, Content: "Hola", Timestamp: h.now.Add(-time.Hour)},
			{Role: conversation.RoleAssistant, Content: "¡Un gusto! ¿En qué te ayudo?", Timestamp: h.now.Add(-time.Hour)},
		},
		CreatedAt: h.now.Add(-time.Hour),
		UpdatedAt: h.now.Add(-time.Hour),
	})
}
