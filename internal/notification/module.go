// Package notification provides event handlers that alert the business owner
// when a conversation produces a sale, an advisor request or a reservation.
// Domain modules only publish events; this module knows about the channels.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"salesbot_backend/internal/bookings"
	"salesbot_backend/internal/business"
	"salesbot_backend/internal/email"
	"salesbot_backend/internal/events"
	"salesbot_backend/internal/scheduler"
	"salesbot_backend/internal/whatsapp"
	"salesbot_backend/platform/logger"
	"salesbot_backend/platform/phone"
)

const (
	alertHeader   = "🚨 *NUEVO LEAD / VENTA* 🚨"
	missingValue  = "N/A"
	reservationAt = "02/01/2006 15:04"
)

var alertActions = map[string]string{
	scheduler.AlertSale:        "Compra confirmada",
	scheduler.AlertAdvisor:     "Solicita asesor",
	scheduler.AlertReservation: "Reserva confirmada",
}

var emailKinds = map[string]email.AlertKind{
	scheduler.AlertSale:        email.AlertSale,
	scheduler.AlertAdvisor:     email.AlertAdvisor,
	scheduler.AlertReservation: email.AlertReservation,
}

// WhatsAppSender delivers the WhatsApp copy of an alert.
type WhatsAppSender interface {
	Send(ctx context.Context, msg whatsapp.OutboundMessage) error
}

// Module turns domain events into owner alerts.
type Module struct {
	businesses business.Source
	whatsapp   WhatsAppSender
	mail       email.Sender
	alerts     scheduler.AlertScheduler
	log        *logger.Logger
}

// New creates the notification module. Without a scheduler, alerts are
// delivered inline from the event handler.
func New(businesses business.Source, wa WhatsAppSender, mail email.Sender, log *logger.Logger) *Module {
	if mail == nil {
		mail = email.NoopSender{}
	}
	return &Module{
		businesses: businesses,
		whatsapp:   wa,
		mail:       mail,
		log:        log,
	}
}

// SetScheduler routes alerts through the background queue.
func (m *Module) SetScheduler(alerts scheduler.AlertScheduler) {
	m.alerts = alerts
}

// RegisterHandlers subscribes the module to the events it alerts on.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.SaleRegistered{}.EventName(), m)
	bus.Subscribe(events.ReservationBooked{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the alert pipeline.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.SaleRegistered:
		return m.dispatch(ctx, salePayload(e))
	case events.ReservationBooked:
		return m.dispatch(ctx, reservationPayload(e))
	default:
		return nil
	}
}

func (m *Module) dispatch(ctx context.Context, payload scheduler.OwnerAlertPayload) error {
	if m.alerts != nil {
		err := m.alerts.EnqueueOwnerAlert(ctx, payload)
		if err == nil {
			return nil
		}
		m.log.Warn("notification: enqueue failed, delivering inline", "business", payload.BusinessID, "error", err)
	}
	return m.DeliverOwnerAlert(ctx, payload)
}

// DeliverOwnerAlert sends the alert to the admin phone and, when the business
// has one, the admin email. Both channels are attempted even if one fails.
func (m *Module) DeliverOwnerAlert(ctx context.Context, payload scheduler.OwnerAlertPayload) error {
	biz, err := m.businesses.Get(ctx, payload.BusinessID)
	if err != nil {
		return fmt.Errorf("load business %s: %w", payload.BusinessID, err)
	}

	alert := buildAlert(&biz, payload)
	var errs []error

	if biz.AdminPhone != "" && m.whatsapp != nil {
		err := m.whatsapp.Send(ctx, whatsapp.OutboundMessage{
			From: biz.ChannelID,
			To:   biz.AdminPhone,
			Body: alertText(alert, payload.Kind),
		})
		if err != nil {
			m.log.ChannelError(biz.AdminPhone, err)
			errs = append(errs, fmt.Errorf("whatsapp alert: %w", err))
		}
	}

	if biz.AdminEmail != "" {
		if err := m.mail.SendOwnerAlert(ctx, biz.AdminEmail, alert); err != nil {
			m.log.Warn("notification: email alert failed", "business", biz.ChannelID, "error", err)
			errs = append(errs, fmt.Errorf("email alert: %w", err))
		}
	}

	return errors.Join(errs...)
}

func salePayload(e events.SaleRegistered) scheduler.OwnerAlertPayload {
	kind := scheduler.AlertSale
	if e.Advisor {
		kind = scheduler.AlertAdvisor
	}
	p := scheduler.OwnerAlertPayload{
		Kind:         kind,
		BusinessID:   e.BusinessID,
		CustomerID:   e.CustomerID,
		CustomerName: e.CustomerName,
		Summary:      e.Summary,
		Total:        e.Total,
	}
	if !e.Advisor {
		p.RecordID = e.RecordID.String()
	}
	return p
}

func reservationPayload(e events.ReservationBooked) scheduler.OwnerAlertPayload {
	at := e.ScheduledAt
	return scheduler.OwnerAlertPayload{
		Kind:            scheduler.AlertReservation,
		RecordID:        e.RecordID.String(),
		BusinessID:      e.BusinessID,
		CustomerID:      e.CustomerID,
		CustomerName:    e.CustomerName,
		Summary:         e.Service,
		Staff:           e.Staff,
		ScheduledAt:     &at,
		DurationMinutes: e.DurationMinutes,
	}
}

func buildAlert(biz *business.Business, p scheduler.OwnerAlertPayload) email.OwnerAlert {
	interest := strings.TrimSpace(p.Summary)
	if interest == "" {
		interest = missingValue
	}
	if p.Kind == scheduler.AlertReservation && p.ScheduledAt != nil {
		interest = fmt.Sprintf("%s el %s", interest, p.ScheduledAt.In(biz.Location("")).Format(reservationAt))
		if p.Staff != "" {
			interest += " con " + p.Staff
		}
	}

	value := missingValue
	if p.Total > 0 {
		value = "$" + bookings.FormatAmount(p.Total)
	}

	name := strings.TrimSpace(p.CustomerName)
	if name == "" {
		name = "Sin nombre"
	}

	return email.OwnerAlert{
		Kind:         emailKinds[p.Kind],
		BusinessName: biz.Name,
		CustomerName: name,
		CustomerTel:  "+" + phone.Digits(p.CustomerID),
		Interest:     interest,
		Value:        value,
	}
}

func alertText(a email.OwnerAlert, kind string) string {
	action, ok := alertActions[kind]
	if !ok {
		action = kind
	}
	return fmt.Sprintf("%s\n\n👤 *Cliente:* %s\n📱 *Tel:* %s\n📦 *Interés:* %s\n💰 *Valor:* %s\n🔔 *Acción:* %s",
		alertHeader, a.CustomerName, a.CustomerTel, a.Interest, a.Value, action)
}
