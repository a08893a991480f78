// Package transport holds the request and response shapes of the operator
// console API.
package transport

import (
	"time"

	"salesbot_backend/internal/bookings"
	"salesbot_backend/internal/conversation"
)

// ListConversationsRequest filters the inbox. Q matches names, phone and the
// last message.
type ListConversationsRequest struct {
	Q     string `form:"q" validate:"max=100"`
	Limit int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

// ListBookingsRequest selects ledger entries created at or after Since,
// given as RFC 3339 or YYYY-MM-DD.
type ListBookingsRequest struct {
	Since string `form:"since" validate:"max=40"`
}

// SendMessageRequest is a message typed by an operator.
type SendMessageRequest struct {
	Body     string `json:"body" validate:"required,max=1600"`
	MediaURL string `json:"mediaUrl" validate:"omitempty,url"`
}

// ConversationSummary is one inbox row.
type ConversationSummary struct {
	CustomerID  string             `json:"customerId"`
	Name        string             `json:"name"`
	LastMessage string             `json:"lastMessage"`
	Unread      bool               `json:"unread"`
	State       conversation.State `json:"state"`
	SaleLocked  bool               `json:"saleLocked"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// ConversationResponse is the full record with its derived state.
type ConversationResponse struct {
	ConversationSummary
	ProfileName   string                    `json:"profileName"`
	CustomerName  string                    `json:"customerName"`
	HumanOverride bool                      `json:"humanOverride"`
	Manual        bool                      `json:"humanOverrideManual"`
	Reservation   *conversation.Reservation `json:"reservation,omitempty"`
	Messages      []conversation.Message    `json:"messages"`
}

// ConversationListResponse wraps inbox rows.
type ConversationListResponse struct {
	Items []ConversationSummary `json:"items"`
}

// BookingListResponse wraps ledger entries with the sales aggregate.
type BookingListResponse struct {
	Items      []bookings.Record `json:"items"`
	SalesCount int               `json:"salesCount"`
	SalesTotal int64             `json:"salesTotal"`
}
