// Package service implements the operator console: inbox listing, takeover
// and release of the bot, and messages typed by a human.
package service

import (
	"context"
	"strings"
	"time"

	"salesbot_backend/internal/bookings"
	"salesbot_backend/internal/conversation"
	"salesbot_backend/internal/operator/transport"
	"salesbot_backend/internal/whatsapp"
	"salesbot_backend/platform/apperr"
	"salesbot_backend/platform/logger"
	"salesbot_backend/platform/phone"
)

const (
	dateFormat           = "2006-01-02"
	defaultListLimit     = 20
	defaultBookingWindow = 7 * 24 * time.Hour
	humanPreviewPrefix   = "👤 "
	errInvalidSince      = "since must be RFC 3339 or YYYY-MM-DD"
)

// Sender delivers operator messages on the channel.
type Sender interface {
	Send(ctx context.Context, msg whatsapp.OutboundMessage) error
}

// Service provides the operator console use cases.
type Service struct {
	convs           conversation.Repository
	ledger          bookings.Ledger
	sender          Sender
	overrideTimeout time.Duration
	now             func() time.Time
	log             *logger.Logger
}

// New creates the operator service. overrideTimeout is the lifetime of a
// manual takeover and is only used to report the derived state.
func New(convs conversation.Repository, ledger bookings.Ledger, sender Sender, overrideTimeout time.Duration, log *logger.Logger) *Service {
	return &Service{
		convs:           convs,
		ledger:          ledger,
		sender:          sender,
		overrideTimeout: overrideTimeout,
		now:             time.Now,
		log:             log,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListConversations returns the inbox, most recently updated first.
func (s *Service) ListConversations(ctx context.Context, businessID string, req transport.ListConversationsRequest) (transport.ConversationListResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	businessID = phone.CanonicalID(businessID)

	var (
		convs []conversation.Conversation
		err   error
	)
	if q := strings.TrimSpace(req.Q); q != "" {
		convs, err = s.convs.Search(ctx, businessID, q, limit)
	} else {
		convs, err = s.convs.List(ctx, businessID, limit)
	}
	if err != nil {
		return transport.ConversationListResponse{}, err
	}

	now := s.now()
	items := make([]transport.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		items = append(items, s.summary(c, now))
	}
	return transport.ConversationListResponse{Items: items}, nil
}

// GetConversation returns one conversation with its full log.
func (s *Service) GetConversation(ctx context.Context, key conversation.Key) (transport.ConversationResponse, error) {
	c, err := s.convs.Get(ctx, canonical(key))
	if err != nil {
		return transport.ConversationResponse{}, err
	}
	return s.detail(c, s.now()), nil
}

// Silence takes the conversation over manually. The bot stays quiet until the
// manual override lapses or the operator reactivates it.
func (s *Service) Silence(ctx context.Context, key conversation.Key) (transport.ConversationResponse, error) {
	return s.update(ctx, key, conversation.Patch{
		HumanOverride:       conversation.Ptr(true),
		HumanOverrideManual: conversation.Ptr(true),
	})
}

// Reactivate hands the conversation back to the bot, releasing a sale lock
// as well.
func (s *Service) Reactivate(ctx context.Context, key conversation.Key) (transport.ConversationResponse, error) {
	return s.update(ctx, key, conversation.Patch{
		HumanOverride:       conversation.Ptr(false),
		HumanOverrideManual: conversation.Ptr(false),
		SaleLocked:          conversation.Ptr(false),
	})
}

// MarkRead clears the unread flag.
func (s *Service) MarkRead(ctx context.Context, key conversation.Key) (transport.ConversationResponse, error) {
	return s.update(ctx, key, conversation.Patch{Unread: conversation.Ptr(false)})
}

// SendMessage delivers a human-typed message and records it. Writing to the
// customer implies a manual takeover; a sale lock already in place is kept.
func (s *Service) SendMessage(ctx context.Context, key conversation.Key, req transport.SendMessageRequest) (transport.ConversationResponse, error) {
	key = canonical(key)
	if _, err := s.convs.Get(ctx, key); err != nil {
		return transport.ConversationResponse{}, err
	}

	body := strings.TrimSpace(req.Body)
	if body == "" {
		return transport.ConversationResponse{}, apperr.Validation("body is required")
	}

	err := s.sender.Send(ctx, whatsapp.OutboundMessage{
		From:     key.BusinessID,
		To:       key.CustomerID,
		Body:     body,
		MediaURL: req.MediaURL,
	})
	if err != nil {
		s.log.ChannelError(key.CustomerID, err)
		return transport.ConversationResponse{}, apperr.Unavailable("message could not be delivered", err)
	}

	now := s.now()
	return s.update(ctx, key, conversation.Patch{
		Append: []conversation.Message{{
			Role:      conversation.RoleAssistant,
			Content:   body,
			Timestamp: now,
			MediaURL:  req.MediaURL,
			Human:     true,
		}},
		LastMessage:         conversation.Ptr(humanPreviewPrefix + body),
		HumanOverride:       conversation.Ptr(true),
		HumanOverrideManual: conversation.Ptr(true),
		Unread:              conversation.Ptr(false),
	})
}

// ListBookings returns ledger entries created since the requested instant,
// defaulting to the last seven days.
func (s *Service) ListBookings(ctx context.Context, businessID string, req transport.ListBookingsRequest) (transport.BookingListResponse, error) {
	since, err := parseSince(req.Since, s.now())
	if err != nil {
		return transport.BookingListResponse{}, err
	}

	records, err := s.ledger.ListSince(ctx, phone.CanonicalID(businessID), since)
	if err != nil {
		return transport.BookingListResponse{}, err
	}
	if records == nil {
		records = []bookings.Record{}
	}

	sum := bookings.Summarize(records)
	return transport.BookingListResponse{
		Items:      records,
		SalesCount: sum.Count,
		SalesTotal: sum.Total,
	}, nil
}

// update requires the conversation to exist, so operators never create
// records for customers who have not written.
func (s *Service) update(ctx context.Context, key conversation.Key, patch conversation.Patch) (transport.ConversationResponse, error) {
	key = canonical(key)
	if _, err := s.convs.Get(ctx, key); err != nil {
		return transport.ConversationResponse{}, err
	}
	if err := s.convs.Save(ctx, key, patch); err != nil {
		s.log.DatabaseError("save conversation", err)
		return transport.ConversationResponse{}, err
	}
	return s.GetConversation(ctx, key)
}

func (s *Service) summary(c conversation.Conversation, now time.Time) transport.ConversationSummary {
	return transport.ConversationSummary{
		CustomerID:  c.CustomerID,
		Name:        c.DisplayName(),
		LastMessage: c.LastMessage,
		Unread:      c.Unread,
		State:       c.State(now, s.overrideTimeout),
		SaleLocked:  c.SaleLocked,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (s *Service) detail(c conversation.Conversation, now time.Time) transport.ConversationResponse {
	messages := c.Messages
	if messages == nil {
		messages = []conversation.Message{}
	}
	return transport.ConversationResponse{
		ConversationSummary: s.summary(c, now),
		ProfileName:         c.ProfileName,
		CustomerName:        c.CustomerName,
		HumanOverride:       c.HumanOverride,
		Manual:              c.HumanOverrideManual,
		Reservation:         c.Reservation,
		Messages:            messages,
	}
}

func canonical(key conversation.Key) conversation.Key {
	return conversation.Key{
		BusinessID: phone.CanonicalID(key.BusinessID),
		CustomerID: phone.CanonicalID(key.CustomerID),
	}
}

func parseSince(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Add(-defaultBookingWindow), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateFormat, raw); err == nil {
		return t, nil
	}
	return time.Time{}, apperr.Validation(errInvalidSince)
}
