package operator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"salesbot_backend/internal/bookings"
	"salesbot_backend/internal/conversation"
	apphttp "salesbot_backend/internal/http"
	"salesbot_backend/internal/operator/transport"
	"salesbot_backend/internal/whatsapp"
	"salesbot_backend/platform/apperr"
	"salesbot_backend/platform/httpkit"
	"salesbot_backend/platform/logger"
	"salesbot_backend/platform/validator"
)

const (
	testSecret       = "operator-secret"
	businessID       = "+14155238886"
	customerID       = "+573105550000"
	conversationPath = "/api/v1/operator/businesses/" + businessID + "/chats/" + customerID
)

type testJWTConfig struct{}

func (testJWTConfig) GetJWTAccessSecret() string { return testSecret }

type memConversations struct {
	mu    sync.Mutex
	now   time.Time
	items map[conversation.Key]conversation.Conversation
}

func (m *memConversations) Get(_ context.Context, key conversation.Key) (conversation.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[key]
	if !ok {
		return conversation.Conversation{}, apperr.NotFound("conversation not found")
	}
	return c, nil
}

func (m *memConversations) Save(_ context.Context, key conversation.Key, patch conversation.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.items[key]
	if !ok {
		current = conversation.New(key)
	}
	next, err := conversation.Apply(current, patch, m.now)
	if err != nil {
		return err
	}
	m.items[key] = next
	return nil
}

func (m *memConversations) List(_ context.Context, businessID string, limit int) ([]conversation.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []conversation.Conversation
	for k, c := range m.items {
		if k.BusinessID == businessID {
			out = append(out, c)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memConversations) Search(ctx context.Context, businessID, term string, limit int) ([]conversation.Conversation, error) {
	all, err := m.List(ctx, businessID, 1000)
	if err != nil {
		return nil, err
	}
	return conversation.Filter(all, term, limit), nil
}

type memLedger struct {
	records []bookings.Record
	since   time.Time
}

func (l *memLedger) Append(_ context.Context, rec bookings.Record) (bookings.Record, error) {
	l.records = append(l.records, rec)
	return rec, nil
}

func (l *memLedger) ReservationsBetween(context.Context, string, time.Time, time.Time) ([]bookings.Record, error) {
	return nil, nil
}

func (l *memLedger) ListSince(_ context.Context, _ string, since time.Time) ([]bookings.Record, error) {
	l.since = since
	var out []bookings.Record
	for _, r := range l.records {
		if !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *memLedger) LatestSale(context.Context, string) (bookings.Record, error) {
	return bookings.Record{}, apperr.NotFound("no sales")
}

func (l *memLedger) Recent(context.Context, string, int) ([]bookings.Record, error) {
	return l.records, nil
}

type recordingSender struct {
	sent []whatsapp.OutboundMessage
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg whatsapp.OutboundMessage) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type harness struct {
	engine *gin.Engine
	convs  *memConversations
	ledger *memLedger
	sender *recordingSender
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	h := &harness{
		convs:  &memConversations{now: now, items: map[conversation.Key]conversation.Conversation{}},
		ledger: &memLedger{},
		sender: &recordingSender{},
		now:    now,
	}

	key := conversation.Key{BusinessID: businessID, CustomerID: customerID}
	if err := h.convs.Save(context.Background(), key, conversation.Patch{
		Append: []conversation.Message{{
			Role: conversation.RoleCustomer, Content: "Quiero la camisa", Timestamp: now, Unread: true,
		}},
		CustomerName: conversation.Ptr("Ana"),
		Phase:        conversation.Ptr(conversation.PhaseActive),
		LastMessage:  conversation.Ptr("📩 Quiero la camisa"),
		Unread:       conversation.Ptr(true),
	}); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	m := NewModule(h.convs, h.ledger, h.sender, 30*time.Minute, validator.New(), logger.Discard())
	m.Service.WithClock(func() time.Time { return h.now })

	engine := gin.New()
	console := engine.Group("/api/v1/operator")
	console.Use(httpkit.AuthRequired(testJWTConfig{}))
	m.RegisterRoutes(&apphttp.RouterContext{Operator: console})
	h.engine = engine
	return h
}

func token(t *testing.T, businesses ...string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        "op-1",
		"type":       "access",
		"businesses": businesses,
		"exp":        time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (h *harness) do(t *testing.T, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func (h *harness) stored(t *testing.T) conversation.Conversation {
	t.Helper()
	c, err := h.convs.Get(context.Background(), conversation.Key{BusinessID: businessID, CustomerID: customerID})
	if err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	return c
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestAccessControl(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		bearer string
		want   int
	}{
		{name: "no token", bearer: "", want: http.StatusUnauthorized},
		{name: "other business", bearer: token(t, "+15550001111"), want: http.StatusForbidden},
		{name: "managed business", bearer: token(t, "4155238886"), want: http.StatusOK},
		{name: "wildcard", bearer: token(t, "*"), want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodGet, "/api/v1/operator/businesses/"+businessID+"/chats", "", tt.bearer)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestListConversations(t *testing.T) {
	h := newHarness(t)
	bearer := token(t, businessID)

	rec := h.do(t, http.MethodGet, "/api/v1/operator/businesses/"+businessID+"/chats", "", bearer)
	list := decode[transport.ConversationListResponse](t, rec)
	if len(list.Items) != 1 {
		t.Fatalf("expected one conversation, got %d", len(list.Items))
	}
	item := list.Items[0]
	if item.Name != "Ana" || !item.Unread || item.State != conversation.StateActive {
		t.Fatalf("unexpected summary %+v", item)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/operator/businesses/"+businessID+"/chats?q=pedro", "", bearer)
	if list := decode[transport.ConversationListResponse](t, rec); len(list.Items) != 0 {
		t.Fatalf("expected no match for pedro, got %d", len(list.Items))
	}

	rec = h.do(t, http.MethodGet, "/api/v1/operator/businesses/"+businessID+"/chats?limit=0&q=ana", "", bearer)
	if list := decode[transport.ConversationListResponse](t, rec); len(list.Items) != 1 {
		t.Fatalf("expected search hit for ana, got %d", len(list.Items))
	}

	rec = h.do(t, http.MethodGet, "/api/v1/operator/businesses/"+businessID+"/chats?limit=500", "", bearer)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized limit, got %d", rec.Code)
	}
}

func TestGetConversationNotFound(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/v1/operator/businesses/"+businessID+"/chats/+570000000000", "", token(t, "*"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSilenceAndReactivate(t *testing.T) {
	h := newHarness(t)
	bearer := token(t, businessID)

	rec := h.do(t, http.MethodPost, conversationPath+"/silence", "", bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[transport.ConversationResponse](t, rec); got.State != conversation.StateHumanOverride || !got.Manual {
		t.Fatalf("expected manual override, got state %s manual %v", got.State, got.Manual)
	}

	// A manual takeover lapses after the timeout.
	h.now = h.now.Add(31 * time.Minute)
	rec = h.do(t, http.MethodGet, conversationPath, "", bearer)
	if got := decode[transport.ConversationResponse](t, rec); got.State != conversation.StateActive {
		t.Fatalf("expected expired override to read as ACTIVE, got %s", got.State)
	}

	rec = h.do(t, http.MethodPost, conversationPath+"/reactivate", "", bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	c := h.stored(t)
	if c.HumanOverride || c.HumanOverrideManual || c.SaleLocked {
		t.Fatalf("expected all override flags cleared, got %+v", c)
	}
}

func TestReactivateReleasesSaleLock(t *testing.T) {
	h := newHarness(t)
	key := conversation.Key{BusinessID: businessID, CustomerID: customerID}
	if err := h.convs.Save(context.Background(), key, conversation.Patch{
		HumanOverride: conversation.Ptr(true),
		SaleLocked:    conversation.Ptr(true),
	}); err != nil {
		t.Fatalf("lock: %v", err)
	}

	rec := h.do(t, http.MethodPost, conversationPath+"/reactivate", "", token(t, businessID))
	if got := decode[transport.ConversationResponse](t, rec); got.State != conversation.StateActive || got.SaleLocked {
		t.Fatalf("expected released conversation, got state %s locked %v", got.State, got.SaleLocked)
	}
}

func TestSendMessage(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, conversationPath+"/messages", `{"body":"  Hola Ana, soy Laura  "}`, token(t, businessID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(h.sender.sent) != 1 {
		t.Fatalf("expected one outbound message, got %d", len(h.sender.sent))
	}
	out := h.sender.sent[0]
	if out.From != businessID || out.To != customerID || out.Body != "Hola Ana, soy Laura" {
		t.Fatalf("unexpected outbound %+v", out)
	}

	c := h.stored(t)
	last := c.Messages[len(c.Messages)-1]
	if last.Role != conversation.RoleAssistant || !last.Human {
		t.Fatalf("expected human assistant message, got %+v", last)
	}
	if !c.HumanOverride || !c.HumanOverrideManual || c.Unread {
		t.Fatalf("expected manual takeover and read inbox, got %+v", c)
	}
	if c.LastMessage != "👤 Hola Ana, soy Laura" {
		t.Fatalf("unexpected preview %q", c.LastMessage)
	}
}

func TestSendMessageFailures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		sendErr error
		want    int
	}{
		{name: "empty body", body: `{"body":""}`, want: http.StatusBadRequest},
		{name: "blank body", body: `{"body":"   "}`, want: http.StatusBadRequest},
		{name: "bad media", body: `{"body":"hola","mediaUrl":"not a url"}`, want: http.StatusBadRequest},
		{name: "channel down", body: `{"body":"hola"}`, sendErr: errors.New("twilio 500"), want: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.sender.err = tt.sendErr
			before := len(h.stored(t).Messages)

			rec := h.do(t, http.MethodPost, conversationPath+"/messages", tt.body, token(t, businessID))
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if got := len(h.stored(t).Messages); got != before {
				t.Fatalf("expected log untouched, got %d messages", got)
			}
		})
	}
}

func TestMarkRead(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, conversationPath+"/read", "", token(t, businessID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if h.stored(t).Unread {
		t.Fatalf("expected conversation marked read")
	}
}

func TestListBookings(t *testing.T) {
	h := newHarness(t)
	h.ledger.records = []bookings.Record{
		{BusinessID: businessID, Type: bookings.TypeSale, Description: "Camisa", Total: 45000, Status: bookings.StatusConfirmed, CreatedAt: h.now.Add(-time.Hour)},
		{BusinessID: businessID, Type: bookings.TypeReservation, Description: "Masaje", Status: bookings.StatusConfirmed, CreatedAt: h.now.Add(-2 * time.Hour)},
		{BusinessID: businessID, Type: bookings.TypeSale, Description: "Gorra", Total: 20000, Status: bookings.StatusConfirmed, CreatedAt: h.now.AddDate(0, 0, -30)},
	}
	bearer := token(t, businessID)

	rec := h.do(t, http.MethodGet, "/api/v1/operator/businesses/"+businessID+"/bookings", "", bearer)
	got := decode[transport.BookingListResponse](t, rec)
	if len(got.Items) != 2 || got.SalesCount != 1 || got.SalesTotal != 45000 {
		t.Fatalf("unexpected default window result %+v", got)
	}
	if want := h.now.Add(-7 * 24 * time.Hour); !h.ledger.since.Equal(want) {
		t.Fatalf("expected default since %v, got %v", want, h.ledger.since)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/operator/businesses/"+businessID+"/bookings?since=2026-01-01", "", bearer)
	if got := decode[transport.BookingListResponse](t, rec); len(got.Items) != 3 || got.SalesTotal != 65000 {
		t.Fatalf("unexpected explicit window result %+v", got)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/operator/businesses/"+businessID+"/bookings?since=yesterday", "", bearer)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unparseable since, got %d", rec.Code)
	}
}
