// Package email delivers owner alerts by mail.
package email

import (
	"context"

	"salesbot_backend/platform/config"
)

// AlertKind selects the subject line of an owner alert.
type AlertKind string

const (
	AlertSale        AlertKind = "sale"
	AlertAdvisor     AlertKind = "advisor"
	AlertReservation AlertKind = "reservation"
)

// OwnerAlert is the content of a lead, sale or reservation alert.
type OwnerAlert struct {
	Kind         AlertKind
	BusinessName string
	CustomerName string
	CustomerTel  string
	Interest     string
	Value        string
}

// Sender sends owner alerts.
type Sender interface {
	SendOwnerAlert(ctx context.Context, toEmail string, alert OwnerAlert) error
}

// NoopSender drops every message; used when SMTP is not configured.
type NoopSender struct{}

// SendOwnerAlert implements Sender.
func (NoopSender) SendOwnerAlert(context.Context, string, OwnerAlert) error { return nil }

// NewSender returns an SMTP sender when SMTP is configured, otherwise a
// NoopSender.
func NewSender(cfg config.SMTPConfig) Sender {
	if !cfg.IsSMTPEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg)
}
