package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"salesbot_backend/internal/agent"
	"salesbot_backend/internal/bookings"
	"salesbot_backend/internal/conversation"
	"salesbot_backend/internal/events"

	"github.com/google/uuid"
)

func lastBody(t *testing.T, h *harness) string {
	t.Helper()
	sent := h.sender.reset()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one outbound message, got %d: %+v", len(sent), sent)
	}
	return sent[0].Body
}

func TestReservationConversationEndToEnd(t *testing.T) {
	h := newHarness(t, testBusiness())

	h.receive(t, testCustomer, "Hola")
	if body := lastBody(t, h); !strings.Contains(body, "¿Con quién tengo el gusto?") {
		t.Fatalf("expected greeting asking for a name, got %q", body)
	}

	h.receive(t, testCustomer, "Me llamo Ana")
	if body := lastBody(t, h); body != "¡Un gusto, Ana! 😊 ¿En qué te puedo ayudar hoy?" {
		t.Fatalf("unexpected name acknowledgement %q", body)
	}

	h.gen.queue(agent.Generation{Text: "El Masaje cuesta $80000 y dura una hora. ¿Te gustaría agendar una cita? 📅"})
	h.receive(t, testCustomer, "Quiero un masaje")
	lastBody(t, h)
	conv := h.convs.get(h.key())
	if conv.State(h.now, time.Hour) != conversation.StateAwaitingConfirmation {
		t.Fatalf("expected AWAITING_CONFIRMATION after booking question, got %s", conv.State(h.now, time.Hour))
	}

	h.receive(t, testCustomer, "sí")
	if body := lastBody(t, h); !strings.Contains(body, "¿Para qué día") {
		t.Fatalf("expected date question, got %q", body)
	}

	h.receive(t, testCustomer, "mañana a las 15:00")
	if body := lastBody(t, h); !strings.Contains(body, "Te confirmo: Masaje") || !strings.Contains(body, "con Laura") {
		t.Fatalf("expected summary with staff, got %q", body)
	}

	h.receive(t, testCustomer, "sí")
	if body := lastBody(t, h); !strings.HasPrefix(body, "✅ ¡Listo!") {
		t.Fatalf("expected booking confirmation, got %q", body)
	}

	records := h.ledger.sales()
	if len(records) != 1 || records[0].Type != bookings.TypeReservation {
		t.Fatalf("expected one reservation in the ledger, got %+v", records)
	}
	rec := records[0]
	want := time.Date(2026, time.March, 11, 15, 0, 0, 0, time.UTC)
	if rec.CustomerName != "Ana" || rec.Staff != "Laura" || rec.DurationMinutes != 60 || !rec.ScheduledAt.Equal(want) {
		t.Fatalf("unexpected reservation %+v", rec)
	}

	conv = h.convs.get(h.key())
	if !conv.HumanOverride || conv.HumanOverrideManual || conv.Reservation != nil {
		t.Fatalf("expected automatic override and cleared scratch data, got %+v", conv)
	}

	evs := h.publishedEvents()
	if len(evs) != 1 {
		t.Fatalf("expected one event, got %d", len(evs))
	}
	if booked, ok := evs[0].(events.ReservationBooked); !ok || booked.Service != "Masaje" {
		t.Fatalf("expected reservation event, got %+v", evs[0])
	}

	res := h.receive(t, testCustomer, "gracias")
	if !res.Silenced || len(h.sender.reset()) != 0 {
		t.Fatalf("expected bot to stay silent after booking")
	}
	if len(h.gen.requests) != 1 {
		t.Fatalf("expected a single generation call, got %d", len(h.gen.requests))
	}
}

func TestCampaignKeywordBeforeName(t *testing.T) {
	h := newHarness(t, testBusiness())

	h.receive(t, testCustomer, "Hola, vengo por RELAX")
	lastBody(t, h)
	if cp := h.convs.get(h.key()).CampaignPending; cp == nil || cp.Keyword != "RELAX" {
		t.Fatalf("expected pending campaign, got %+v", cp)
	}

	h.receive(t, testCustomer, "Ana")
	body := lastBody(t, h)
	if !strings.Contains(body, "*RELAX* está activo") || !strings.Contains(body, "Ana") {
		t.Fatalf("expected campaign reply addressed to Ana, got %q", body)
	}
	conv := h.convs.get(h.key())
	if conv.CampaignPending != nil || conv.CustomerName != "Ana" || conv.Phase != conversation.PhaseActive {
		t.Fatalf("unexpected conversation after name %+v", conv)
	}
}

func TestExpiredCampaign(t *testing.T) {
	biz := testBusiness()
	biz.Campaigns[0].Status = "expired"
	h := newHarness(t, biz)
	h.activeConversation("Ana")

	h.receive(t, testCustomer, "tengo el código relax")
	if body := lastBody(t, h); !strings.Contains(body, "ya no está vigente") {
		t.Fatalf("expected expired campaign reply, got %q", body)
	}
}

func TestPurchaseLocksConversation(t *testing.T) {
	h := newHarness(t, testBusiness())
	h.activeConversation("Ana")

	h.gen.queue(agent.Generation{Action: agent.RegisterSale{Kind: agent.SalePurchase, Summary: "Camisa talla M"}})
	h.receive(t, testCustomer, "quiero comprar la camisa")
	if body := lastBody(t, h); body != agent.SaleHandoffReply {
		t.Fatalf("expected handoff reply, got %q", body)
	}

	records := h.ledger.sales()
	if len(records) != 1 || records[0].Total != 45000 || records[0].CustomerName != "Ana" {
		t.Fatalf("expected sale with catalog price, got %+v", records)
	}
	conv := h.convs.get(h.key())
	if !conv.SaleLocked || !conv.HumanOverride {
		t.Fatalf("expected sale lock, got %+v", conv)
	}
	evs := h.publishedEvents()
	if len(evs) != 1 {
		t.Fatalf("expected one event, got %d", len(evs))
	}
	if sale, ok := evs[0].(events.SaleRegistered); !ok || sale.RecordID != records[0].ID {
		t.Fatalf("expected sale event for the ledger record, got %+v", evs[0])
	}

	// Even hours later nothing is sent.
	h.now = h.now.Add(6 * time.Hour)
	res := h.receive(t, testCustomer, "hola? sigues ahí?")
	if !res.Silenced || len(h.sender.reset()) != 0 {
		t.Fatalf("expected zero outbound messages on a locked conversation")
	}
	if n := len(h.convs.get(h.key()).Messages); n != 5 {
		t.Fatalf("expected inbound message to be stored while silenced, got %d messages", n)
	}
}

func TestPurchaseLockRetriedAfterSaveFailure(t *testing.T) {
	h := newHarness(t, testBusiness())
	h.activeConversation("Ana")
	h.convs.failSaves = 1

	h.gen.queue(agent.Generation{Action: agent.RegisterSale{Kind: agent.SalePurchase, Summary: "Camisa talla M"}})
	h.receive(t, testCustomer, "quiero comprar la camisa")
	if body := lastBody(t, h); body != agent.SaleHandoffReply {
		t.Fatalf("expected handoff reply, got %q", body)
	}
	if n := len(h.ledger.sales()); n != 1 {
		t.Fatalf("expected one ledger record, got %d", n)
	}
	conv := h.convs.get(h.key())
	if !conv.SaleLocked || !conv.HumanOverride {
		t.Fatalf("expected sale lock after retry, got %+v", conv)
	}
	if evs := h.publishedEvents(); len(evs) != 1 {
		t.Fatalf("expected sale event, got %d events", len(evs))
	}
}

func TestRecordedSaleStillAnnouncedWhenSavesFail(t *testing.T) {
	h := newHarness(t, testBusiness())
	h.activeConversation("Ana")
	h.convs.err = errors.New("write timeout")

	h.gen.queue(agent.Generation{Action: agent.RegisterSale{Kind: agent.SalePurchase, Summary: "Camisa talla M"}})
	_, err := h.o.HandleInbound(context.Background(), InboundEvent{
		MessageID:  uuid.NewString(),
		BusinessID: testChannel,
		CustomerID: testCustomer,
		Body:       "quiero comprar la camisa",
	})
	if err == nil {
		t.Fatalf("expected save error to surface")
	}
	if n := len(h.ledger.sales()); n != 1 {
		t.Fatalf("expected one ledger record, got %d", n)
	}
	sent := h.sender.reset()
	if len(sent) != 1 || sent[0].Body != agent.SaleHandoffReply {
		t.Fatalf("expected handoff reply to be sent, got %+v", sent)
	}
	evs := h.publishedEvents()
	if len(evs) != 1 {
		t.Fatalf("expected sale event, got %d events", len(evs))
	}
	if _, ok := evs[0].(events.SaleRegistered); !ok {
		t.Fatalf("expected SaleRegistered, got %T", evs[0])
	}
}

func TestAdvisorRequestSilencesWithoutLedger(t *testing.T) {
	h := newHarness(t, testBusiness())
	h.activeConversation("Ana")

	h.gen.queue(agent.Generation{Action: agent.RegisterSale{Kind: agent.SaleAdvisor, Summary: "Quiere hablar con un asesor"}})
	h.receive(t, testCustomer, "quiero hablar con una persona")
	lastBody(t, h)

	if len(h.ledger.sales()) != 0 {
		t.Fatalf("expected no ledger record for an advisor request")
	}
	conv := h.convs.get(h.key())
	if !conv.HumanOverride || conv.HumanOverrideManual || conv.SaleLocked {
		t.Fatalf("expected automatic override without lock, got %+v", conv)
	}
	evs := h.publishedEvents()
	if len(evs) != 1 || !evs[0].(events.SaleRegistered).Advisor {
		t.Fatalf("expected advisor event, got %+v", evs)
	}
}

func TestLedgerFailureApologises(t *testing.T) {
	h := newHarness(t, testBusiness())
	h.activeConversation("Ana")
	h.ledger.appendErr = errors.New("db down")

	h.gen.queue(agent.Generation{Action: agent.RegisterSale{Kind: agent.SalePurchase, Summary: "Camisa"}})
	h.receive(t, testCustomer, "me la llevo, la camisa")
	if body := lastBody(t, h); body != apologyReply {
		t.Fatalf("expected apology, got %q", body)
	}
	conv := h.convs.get(h.key())
	if conv.SaleLocked || conv.HumanOverride {
		t.Fatalf("expected no handoff without a ledger record, got %+v", conv)
	}
	if len(h.publishedEvents()) != 0 {
		t.Fatalf("expected no events")
	}
}

func TestManualOverrideTimeout(t *testing.T) {
	tests := []struct {
		name      string
		age       time.Duration
		wantReply bool
	}{
		{name: "still silenced", age: 29 * time.Minute, wantReply: false},
		{name: "expired", age: 31 * time.Minute, wantReply: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testBusiness())
			h.convs.put(conversation.Conversation{
				Key:                 h.key(),
				CustomerName:        "Ana",
				Phase:               conversation.PhaseActive,
				HumanOverride:       true,
				HumanOverrideManual: true,
				UpdatedAt:           h.now.Add(-tt.age),
			})
			h.gen.queue(agent.Generation{Text: "¡Hola de nuevo, Ana!"})

			res := h.receive(t, testCustomer, "hola")
			sent := h.sender.reset()
			if tt.wantReply != (len(sent) == 1) {
				t.Fatalf("expected reply=%v, got %d messages", tt.wantReply, len(sent))
			}
			if res.Silenced == tt.wantReply {
				t.Fatalf("expected silenced=%v", !tt.wantReply)
			}
			if conv := h.convs.get(h.key()); conv.HumanOverride == tt.wantReply {
				t.Fatalf("expected override=%v after turn", !tt.wantReply)
			}
		})
	}
}

func TestPhotoGuard(t *testing.T) {
	h := newHarness(t, testBusiness())
	h.activeConversation("Ana")

	h.gen.queue(agent.Generation{Action: agent.SendPhoto{PhotoURL: "https://cdn.example.com/gorra.jpg"}})
	h.gen.queue(agent.Generation{Text: ""})
	h.receive(t, testCustomer, "muéstrame una foto de la camisa")

	sent := h.sender.reset()
	if len(sent) != 1 || sent[0].MediaURL != "" {
		t.Fatalf("expected a text-only reply, got %+v", sent)
	}
	if !strings.Contains(sent[0].Body, "no tengo una foto") {
		t.Fatalf("expected no-photo fallback, got %q", sent[0].Body)
	}

	h.gen.queue(agent.Generation{Action: agent.SendPhoto{}})
	h.receive(t, testCustomer, "y me mandas una foto de la gorra?")
	sent = h.sender.reset()
	if len(sent) != 1 || sent[0].MediaURL != "https://cdn.example.com/gorra.jpg" {
		t.Fatalf("expected gorra photo, got %+v", sent)
	}
	conv := h.convs.get(h.key())
	if last := conv.Messages[len(conv.Messages)-1]; last.MediaURL != "https://cdn.example.com/gorra.jpg" {
		t.Fatalf("expected stored assistant message to carry the photo, got %+v", last)
	}
}

func TestGenerationFailureApologises(t *testing.T) {
	h := newHarness(t, testBusiness())
	h.activeConversation("Ana")
	h.gen.fail(errors.New("upstream timeout"))

	h.receive(t, testCustomer, "¿qué precio tiene la gorra?")
	if body := lastBody(t, h); body != apologyReply {
		t.Fatalf("expected apology, got %q", body)
	}
	if n := len(h.convs.get(h.key()).Messages); n != 4 {
		t.Fatalf("expected both messages stored, got %d", n)
	}
}

func TestSendFailureTriesApology(t *testing.T) {
	h := newHarness(t, testBusiness())
	h.activeConversation("Ana")
	h.sender.err = errors.New("channel down")
	h.gen.queue(agent.Generation{Text: "La gorra cuesta $30000."})

	res := h.receive(t, testCustomer, "precio de la gorra")
	sent := h.sender.reset()
	if len(sent) != 2 || sent[1].Body != apologyReply {
		t.Fatalf("expected one apology attempt after the failure, got %+v", sent)
	}
	if res.Replies != 0 {
		t.Fatalf("expected no delivered replies, got %d", res.Replies)
	}
}

func TestUnknownBusinessIsDropped(t *testing.T) {
	h := newHarness(t, testBusiness())

	res, err := h.o.HandleInbound(context.Background(), InboundEvent{
		BusinessID: "+15550001111",
		CustomerID: testCustomer,
		Body:       "hola",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Dropped || len(h.sender.reset()) != 0 {
		t.Fatalf("expected silent drop, got %+v", res)
	}
}

func TestMediaOnlyMessageIsStored(t *testing.T) {
	h := newHarness(t, testBusiness())
	h.activeConversation("Ana")
	h.gen.queue(agent.Generation{Text: "¡Gracias por la imagen!"})

	_, err := h.o.HandleInbound(context.Background(), InboundEvent{
		BusinessID: testChannel,
		CustomerID: testCustomer,
		MediaURL:   "https://api.twilio.com/media/1",
		MediaType:  "image/jpeg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conv := h.convs.get(h.key())
	in := conv.Messages[2]
	if in.Content != mediaPlaceholder || in.MediaType != "image/jpeg" || !in.Unread {
		t.Fatalf("unexpected stored inbound %+v", in)
	}
}
