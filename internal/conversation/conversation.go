// Package conversation holds the persisted per-customer conversation record,
// its derived state and the repository that merge-writes it.
package conversation

import (
	"time"
)

// Role of a message author.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the append-only log. Human marks assistant
// messages typed by an operator.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	MediaURL  string    `json:"mediaUrl,omitempty"`
	MediaType string    `json:"mediaType,omitempty"`
	Human     bool      `json:"human,omitempty"`
	Unread    bool      `json:"unread,omitempty"`
}

// Phase tracks the greeting stage before normal dialogue.
type Phase string

const (
	PhaseNew          Phase = "NEW"
	PhaseAwaitingName Phase = "AWAITING_NAME"
	PhaseActive       Phase = "ACTIVE"
)

// State is the derived state of a conversation.
type State string

const (
	StateNew                       State = "NEW"
	StateAwaitingName              State = "AWAITING_NAME"
	StateActive                    State = "ACTIVE"
	StateAwaitingConfirmation      State = "AWAITING_CONFIRMATION"
	StateAwaitingDate              State = "AWAITING_DATE"
	StateAwaitingTime              State = "AWAITING_TIME"
	StateAwaitingStaffChoice       State = "AWAITING_STAFF_CHOICE"
	StateAwaitingFinalConfirmation State = "AWAITING_FINAL_CONFIRMATION"
	StateHumanOverride             State = "HUMAN_OVERRIDE"
	StateSaleLocked                State = "SALE_LOCKED"
)

// IsReservation reports whether s is one of the reservation sub-states.
func (s State) IsReservation() bool {
	switch s {
	case StateAwaitingConfirmation, StateAwaitingDate, StateAwaitingTime,
		StateAwaitingStaffChoice, StateAwaitingFinalConfirmation:
		return true
	}
	return false
}

// Reservation is the scratch data of the reservation sub-flow.
// CandidateDate is "2006-01-02", CandidateTime is "15:04".
type Reservation struct {
	Step             State    `json:"step"`
	CandidateService string   `json:"candidateService,omitempty"`
	CandidateDate    string   `json:"candidateDate,omitempty"`
	CandidateTime    string   `json:"candidateTime,omitempty"`
	CandidateStaff   string   `json:"candidateStaff,omitempty"`
	AvailableStaff   []string `json:"availableStaff,omitempty"`
}

// CampaignPending is a campaign keyword seen before the customer gave a name.
type CampaignPending struct {
	Keyword string `json:"keyword"`
	Offer   string `json:"offer"`
	Expired bool   `json:"expired,omitempty"`
}

// Key identifies a conversation.
type Key struct {
	BusinessID string `json:"businessId"`
	CustomerID string `json:"customerId"`
}

// Conversation is the persisted record.
type Conversation struct {
	Key
	ProfileName         string           `json:"profileName"`
	CustomerName        string           `json:"customerName"`
	Phase               Phase            `json:"phase"`
	Messages            []Message        `json:"messages"`
	HumanOverride       bool             `json:"humanOverride"`
	HumanOverrideManual bool             `json:"humanOverrideManual"`
	SaleLocked          bool             `json:"saleLocked"`
	CampaignPending     *CampaignPending `json:"campaignPending,omitempty"`
	Reservation         *Reservation     `json:"reservation,omitempty"`
	LastMessage         string           `json:"lastMessage"`
	Unread              bool             `json:"unread"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

// New returns an empty conversation for key.
func New(key Key) Conversation {
	return Conversation{Key: key, Phase: PhaseNew}
}

// OverrideActive reports whether the bot is silenced at now. Automatic
// overrides (sale or booking) and sale locks never expire; a manual one
// lapses once more than timeout has passed since the last update.
func (c Conversation) OverrideActive(now time.Time, timeout time.Duration) bool {
	if c.SaleLocked {
		return true
	}
	if !c.HumanOverride {
		return false
	}
	if !c.HumanOverrideManual {
		return true
	}
	return now.Sub(c.UpdatedAt) <= timeout
}

// OverrideExpired reports whether a manual override is set but has lapsed.
func (c Conversation) OverrideExpired(now time.Time, timeout time.Duration) bool {
	return c.HumanOverride && !c.OverrideActive(now, timeout)
}

// State derives the current state. Sale lock and override take precedence
// over any reservation scratch data.
func (c Conversation) State(now time.Time, timeout time.Duration) State {
	switch {
	case c.SaleLocked:
		return StateSaleLocked
	case c.OverrideActive(now, timeout):
		return StateHumanOverride
	case c.Reservation != nil && c.Reservation.Step.IsReservation():
		return c.Reservation.Step
	}
	switch c.Phase {
	case PhaseAwaitingName:
		return StateAwaitingName
	case PhaseActive:
		return StateActive
	}
	if len(c.Messages) == 0 {
		return StateNew
	}
	return StateActive
}

// LastAssistant returns the most recent assistant message, if any.
func (c Conversation) LastAssistant() (Message, bool) {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			return c.Messages[i], true
		}
	}
	return Message{}, false
}

// Recent returns at most n trailing messages.
func (c Conversation) Recent(n int) []Message {
	if n <= 0 || len(c.Messages) <= n {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}

// DisplayName prefers the name the customer gave over the channel profile.
func (c Conversation) DisplayName() string {
	if c.CustomerName != "" {
		return c.CustomerName
	}
	if c.ProfileName != "" {
		return c.ProfileName
	}
	return "Sin nombre"
}
