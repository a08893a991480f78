package email

import (
	"strings"
	"testing"
)

func TestRenderOwnerAlert(t *testing.T) {
	tests := []struct {
		kind    AlertKind
		subject string
	}{
		{kind: AlertSale, subject: "🚨 Nueva venta en Spa Sol"},
		{kind: AlertAdvisor, subject: "🙋 Cliente pide asesor en Spa Sol"},
		{kind: AlertReservation, subject: "📅 Nueva reserva en Spa Sol"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			subject, content, err := renderOwnerAlert(OwnerAlert{
				Kind:         tt.kind,
				BusinessName: "Spa Sol",
				CustomerName: "Ana <script>",
				CustomerTel:  "+573105550000",
				Interest:     "Camisa",
				Value:        "$45.000",
			})
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if subject != tt.subject {
				t.Fatalf("expected subject %q, got %q", tt.subject, subject)
			}
			if strings.Contains(content, "<script>") {
				t.Fatalf("expected customer name to be escaped")
			}
			if !strings.Contains(content, "$45.000") || !strings.Contains(content, "+573105550000") {
				t.Fatalf("expected value and phone in body, got %s", content)
			}
		})
	}
}

type smtpConfig struct{ user string }

func (smtpConfig) GetSMTPHost() string       { return "mail.example.com" }
func (smtpConfig) GetSMTPPort() int          { return 587 }
func (c smtpConfig) GetSMTPUsername() string { return c.user }
func (smtpConfig) GetSMTPPassword() string   { return "secret" }
func (smtpConfig) GetSMTPFromEmail() string  { return "bot@example.com" }
func (smtpConfig) GetSMTPFromName() string   { return "Salesbot" }
func (smtpConfig) IsSMTPEnabled() bool       { return true }

func TestNewSMTPSenderAuthOnlyWithUsername(t *testing.T) {
	anonymous := NewSMTPSender(smtpConfig{})
	authed := NewSMTPSender(smtpConfig{user: "bot"})
	if len(authed.options) != len(anonymous.options)+3 {
		t.Fatalf("expected auth options only with a username, got %d vs %d", len(authed.options), len(anonymous.options))
	}

	msg, err := authed.message("dueno@spasol.co", "asunto", "<p>hola</p>")
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if to := msg.GetToString(); len(to) != 1 || !strings.Contains(to[0], "dueno@spasol.co") {
		t.Fatalf("expected recipient, got %v", to)
	}
}
