// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"github.com/google/uuid"

	"salesbot_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// =============================================================================
// Sales Domain Events
// =============================================================================

// SaleRegistered is published when a customer is handed to a human, either
// after confirming a purchase or after asking for an advisor.
type SaleRegistered struct {
	BaseEvent
	RecordID     uuid.UUID `json:"recordId"`
	BusinessID   string    `json:"businessId"`
	CustomerID   string    `json:"customerId"`
	CustomerName string    `json:"customerName"`
	Summary      string    `json:"summary"`
	Total        int64     `json:"total"`
	Advisor      bool      `json:"advisor"`
}

func (e SaleRegistered) EventName() string { return "sales.sale.registered" }

// =============================================================================
// Scheduling Domain Events
// =============================================================================

// ReservationBooked is published after a reservation was appended to the
// ledger.
type ReservationBooked struct {
	BaseEvent
	RecordID        uuid.UUID `json:"recordId"`
	BusinessID      string    `json:"businessId"`
	CustomerID      string    `json:"customerId"`
	CustomerName    string    `json:"customerName"`
	Service         string    `json:"service"`
	Staff           string    `json:"staff"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	DurationMinutes int       `json:"durationMinutes"`
}

func (e ReservationBooked) EventName() string { return "scheduling.reservation.booked" }
