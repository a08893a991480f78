// Package business provides the read-only configuration snapshot of a
// business: persona, catalog, staff, campaigns and contact data.
package business

import (
	"time"

	"salesbot_backend/internal/catalog"
	"salesbot_backend/internal/intent"
	"salesbot_backend/internal/scheduling"
	"salesbot_backend/platform/phone"
)

// Persona selects the assistant's tone.
type Persona string

const (
	PersonaSell     Persona = "sell"
	PersonaFriendly Persona = "friendly"
	PersonaFormal   Persona = "formal"
)

// Portfolio holds public links the assistant may share.
type Portfolio struct {
	Web       string `json:"web,omitempty" yaml:"web,omitempty"`
	Instagram string `json:"instagram,omitempty" yaml:"instagram,omitempty"`
	Facebook  string `json:"facebook,omitempty" yaml:"facebook,omitempty"`
}

// FAQ is a canned question and answer.
type FAQ struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Business is the configuration snapshot. ChannelID is the canonical
// WhatsApp number the customers write to.
type Business struct {
	ChannelID           string                   `json:"channelId" yaml:"channelId" validate:"required"`
	Name                string                   `json:"name" yaml:"name" validate:"required"`
	Persona             Persona                  `json:"persona" yaml:"persona" validate:"omitempty,oneof=sell friendly formal"`
	OwnerNotes          string                   `json:"ownerNotes,omitempty" yaml:"ownerNotes,omitempty"`
	AdminPhone          string                   `json:"adminPhone,omitempty" yaml:"adminPhone,omitempty"`
	AdminEmail          string                   `json:"adminEmail,omitempty" yaml:"adminEmail,omitempty" validate:"omitempty,email"`
	SupportContact      string                   `json:"supportContact,omitempty" yaml:"supportContact,omitempty"`
	AcceptsReservations bool                     `json:"acceptsReservations" yaml:"acceptsReservations"`
	ReservationMethod   string                   `json:"reservationMethod,omitempty" yaml:"reservationMethod,omitempty"`
	PaymentMethods      []string                 `json:"paymentMethods,omitempty" yaml:"paymentMethods,omitempty"`
	PaymentInstructions string                   `json:"paymentInstructions,omitempty" yaml:"paymentInstructions,omitempty"`
	Terms               string                   `json:"terms,omitempty" yaml:"terms,omitempty"`
	Portfolio           Portfolio                `json:"portfolio" yaml:"portfolio"`
	FAQs                []FAQ                    `json:"faqs,omitempty" yaml:"faqs,omitempty"`
	WelcomeMessage      string                   `json:"welcomeMessage,omitempty" yaml:"welcomeMessage,omitempty"`
	Timezone            string                   `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Catalog             []catalog.Category       `json:"catalog" yaml:"catalog"`
	Staff               []scheduling.StaffMember `json:"staff,omitempty" yaml:"staff,omitempty"`
	Campaigns           []intent.Campaign        `json:"campaigns,omitempty" yaml:"campaigns,omitempty"`
}

// IsAdmin reports whether id is the owner's phone.
func (b *Business) IsAdmin(id string) bool {
	return b.AdminPhone != "" && phone.SameID(b.AdminPhone, id)
}

// Location resolves the business timezone, falling back to fallback and then
// UTC.
func (b *Business) Location(fallback string) *time.Location {
	for _, name := range []string{b.Timezone, fallback} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}

// SupportLine is what replaces the admin number in replies.
func (b *Business) SupportLine() string {
	if b.SupportContact != "" {
		return b.SupportContact
	}
	return "Solicitar contacto por este chat"
}
