package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salesbot_backend/internal/bookings"
	"salesbot_backend/internal/conversation"
	"salesbot_backend/internal/intent"
	"salesbot_backend/platform/textnorm"
)

const defaultDurationMinutes = 60

// ReservationReader is the ledger query the flow needs for conflict checks.
type ReservationReader interface {
	ReservationsBetween(ctx context.Context, businessID string, from, to time.Time) ([]bookings.Record, error)
}

// Flow drives the reservation sub-flow one customer message at a time. It
// never writes: the booking to create is returned to the caller.
type Flow struct {
	ledger ReservationReader
	now    func() time.Time
}

// NewFlow creates a flow reading existing reservations from ledger.
func NewFlow(ledger ReservationReader) *Flow {
	return &Flow{ledger: ledger, now: time.Now}
}

// WithClock overrides the time source.
func (f *Flow) WithClock(now func() time.Time) *Flow {
	f.now = now
	return f
}

// Step is the input of one transition.
type Step struct {
	BusinessID      string
	CustomerID      string
	CustomerName    string
	Text            string
	Reservation     conversation.Reservation
	Staff           []StaffMember
	DurationMinutes int
	Location        *time.Location
}

// Result of one transition. A nil Next clears the scratch state. Unhandled
// means the message was not an answer to the pending question and should be
// processed as a normal turn.
type Result struct {
	Reply     string
	Next      *conversation.Reservation
	Booking   *bookings.Record
	Unhandled bool
}

// Begin opens the sub-flow after the customer was asked whether they want to
// book service.
func Begin(service string) conversation.Reservation {
	return conversation.Reservation{Step: conversation.StateAwaitingConfirmation, CandidateService: service}
}

// BookingQuestion is the canonical "do you want to book?" prompt.
func BookingQuestion(service string) string {
	return fmt.Sprintf("¿Te gustaría agendar una cita para %s? 📅", service)
}

// Advance applies the customer's message to the current sub-state.
func (f *Flow) Advance(ctx context.Context, s Step) (Result, error) {
	if s.Location == nil {
		s.Location = time.UTC
	}
	if s.DurationMinutes <= 0 {
		s.DurationMinutes = defaultDurationMinutes
	}
	now := f.now().In(s.Location)
	r := s.Reservation

	if r.Step != conversation.StateAwaitingConfirmation && r.Step != conversation.StateAwaitingFinalConfirmation && intent.IsCancel(s.Text) {
		return cancelled(), nil
	}

	switch r.Step {
	case conversation.StateAwaitingConfirmation:
		return f.confirm(ctx, s, now)
	case conversation.StateAwaitingDate:
		return f.chooseDate(ctx, s, r, now)
	case conversation.StateAwaitingTime:
		return f.chooseTime(ctx, s, r, now)
	case conversation.StateAwaitingStaffChoice:
		return f.chooseStaff(s, r), nil
	case conversation.StateAwaitingFinalConfirmation:
		return f.finalize(ctx, s, r, now)
	}
	return Result{Unhandled: true}, nil
}

func (f *Flow) confirm(ctx context.Context, s Step, now time.Time) (Result, error) {
	switch intent.Confirmation(s.Text) {
	case intent.AnswerYes:
		next := s.Reservation
		next.Step = conversation.StateAwaitingDate
		// "sí, mañana a las 3" answers the next two questions too.
		if _, ok := ResolveDate(s.Text, now); ok {
			return f.chooseDate(ctx, s, next, now)
		}
		return Result{
			Reply: fmt.Sprintf("¡Perfecto! ¿Para qué día quieres tu cita de %s? 📅 (por ejemplo: mañana, el viernes o 15/03)", next.CandidateService),
			Next:  &next,
		}, nil
	case intent.AnswerNo:
		return cancelled(), nil
	}
	return Result{Unhandled: true}, nil
}

func (f *Flow) chooseDate(ctx context.Context, s Step, r conversation.Reservation, now time.Time) (Result, error) {
	d, ok := ResolveDate(s.Text, now)
	if !ok {
		return Result{
			Reply: "No logré entender la fecha 🤔. ¿Me la indicas como \"mañana\", \"el viernes\" o \"15/03\"?",
			Next:  &r,
		}, nil
	}
	if len(s.Staff) > 0 && !anyoneWorks(s.Staff, d.Weekday()) {
		return Result{
			Reply: fmt.Sprintf("😕 El %s no tenemos atención. ¿Qué otro día te sirve?", d.Label()),
			Next:  &r,
		}, nil
	}

	r.CandidateDate = d.String()
	r.CandidateTime = ""
	if c, ok := ResolveTime(s.Text); ok {
		return f.slot(ctx, s, r, d, c, now)
	}
	r.Step = conversation.StateAwaitingTime
	return Result{
		Reply: fmt.Sprintf("¿A qué hora te queda bien el %s? ⏰", d.Label()),
		Next:  &r,
	}, nil
}

func (f *Flow) chooseTime(ctx context.Context, s Step, r conversation.Reservation, now time.Time) (Result, error) {
	d, err := ParseDate(r.CandidateDate)
	if err != nil {
		r.Step = conversation.StateAwaitingDate
		r.CandidateDate = ""
		return Result{Reply: "¿Para qué día quieres tu cita? 📅", Next: &r}, nil
	}
	c, ok := ResolveTime(s.Text)
	if !ok {
		return Result{
			Reply: "No logré entender la hora 🤔. ¿Me la indicas como \"a las 3pm\" o \"15:30\"?",
			Next:  &r,
		}, nil
	}
	return f.slot(ctx, s, r, d, c, now)
}

func (f *Flow) slot(ctx context.Context, s Step, r conversation.Reservation, d Date, c Clock, now time.Time) (Result, error) {
	start := d.At(c, s.Location)
	if !start.After(now) {
		r.Step = conversation.StateAwaitingTime
		return Result{Reply: "Esa hora ya pasó ⏰. ¿A qué otra hora te queda bien?", Next: &r}, nil
	}
	r.CandidateTime = c.String()
	r.CandidateStaff = ""
	r.AvailableStaff = nil

	if len(s.Staff) == 0 {
		r.Step = conversation.StateAwaitingFinalConfirmation
		return Result{Reply: summary(r, d, c), Next: &r}, nil
	}

	duration := time.Duration(s.DurationMinutes) * time.Minute
	existing, err := f.existing(ctx, s.BusinessID, start, duration)
	if err != nil {
		return Result{}, err
	}

	free := FreeStaff(s.Staff, start, duration, existing)
	switch len(free) {
	case 0:
		r.Step = conversation.StateAwaitingDate
		r.CandidateDate = ""
		r.CandidateTime = ""
		return Result{
			Reply: fmt.Sprintf("😕 No tenemos disponibilidad el %s a las %s. ¿Qué otro día te sirve?", d.Label(), c),
			Next:  &r,
		}, nil
	case 1:
		r.CandidateStaff = free[0].Name
		r.Step = conversation.StateAwaitingFinalConfirmation
		return Result{Reply: summary(r, d, c), Next: &r}, nil
	}

	for _, m := range free {
		r.AvailableStaff = append(r.AvailableStaff, m.Name)
	}
	r.Step = conversation.StateAwaitingStaffChoice
	return Result{
		Reply: fmt.Sprintf("Ese horario está disponible con: %s. ¿Con quién prefieres? (o dime \"cualquiera\") 🙂", strings.Join(r.AvailableStaff, ", ")),
		Next:  &r,
	}, nil
}

func (f *Flow) chooseStaff(s Step, r conversation.Reservation) Result {
	chosen := ""
	if intent.IsAnyone(s.Text) && len(r.AvailableStaff) > 0 {
		chosen = r.AvailableStaff[0]
	} else {
		norm := textnorm.Normalize(s.Text)
		for _, name := range r.AvailableStaff {
			if textnorm.ContainsBounded(norm, textnorm.Normalize(name)) {
				chosen = name
				break
			}
		}
	}
	if chosen == "" {
		return Result{
			Reply: fmt.Sprintf("¿Con quién prefieres tu cita? Disponibles: %s (o dime \"cualquiera\")", strings.Join(r.AvailableStaff, ", ")),
			Next:  &r,
		}
	}

	r.CandidateStaff = chosen
	r.AvailableStaff = nil
	r.Step = conversation.StateAwaitingFinalConfirmation
	d, errD := ParseDate(r.CandidateDate)
	c, errC := ParseClock(r.CandidateTime)
	if errD != nil || errC != nil {
		r.Step = conversation.StateAwaitingDate
		return Result{Reply: "¿Para qué día quieres tu cita? 📅", Next: &r}
	}
	return Result{Reply: summary(r, d, c), Next: &r}
}

func (f *Flow) finalize(ctx context.Context, s Step, r conversation.Reservation, now time.Time) (Result, error) {
	switch intent.Confirmation(s.Text) {
	case intent.AnswerNo:
		return cancelled(), nil
	case intent.AnswerUnknown:
		return Result{Reply: "¿Confirmamos la cita? Responde sí o no 🙂", Next: &r}, nil
	}

	d, errD := ParseDate(r.CandidateDate)
	c, errC := ParseClock(r.CandidateTime)
	if errD != nil || errC != nil {
		r.Step = conversation.StateAwaitingDate
		return Result{Reply: "¿Para qué día quieres tu cita? 📅", Next: &r}, nil
	}
	start := d.At(c, s.Location)
	duration := time.Duration(s.DurationMinutes) * time.Minute

	if member, ok := findStaff(s.Staff, r.CandidateStaff); ok {
		// Re-check right before booking. Two customers confirming the same
		// slot concurrently can still both pass.
		existing, err := f.existing(ctx, s.BusinessID, start, duration)
		if err != nil {
			return Result{}, err
		}
		if free, _ := Available(member, start, duration, existing); !free || !start.After(now) {
			r.Step = conversation.StateAwaitingDate
			r.CandidateDate = ""
			r.CandidateTime = ""
			r.CandidateStaff = ""
			return Result{
				Reply: "😕 Ese horario se acaba de ocupar. ¿Qué otro día te sirve?",
				Next:  &r,
			}, nil
		}
	}

	at := start
	rec := &bookings.Record{
		BusinessID:      s.BusinessID,
		Type:            bookings.TypeReservation,
		CustomerID:      s.CustomerID,
		CustomerName:    s.CustomerName,
		Description:     r.CandidateService,
		Staff:           r.CandidateStaff,
		ScheduledAt:     &at,
		DurationMinutes: s.DurationMinutes,
		Status:          bookings.StatusConfirmed,
	}

	reply := fmt.Sprintf("✅ ¡Listo! Tu cita de %s quedó agendada para el %s a las %s", r.CandidateService, d.Label(), c)
	if r.CandidateStaff != "" {
		reply += " con " + r.CandidateStaff
	}
	reply += ". Un asesor te escribirá para cualquier detalle. 🙌"
	return Result{Reply: reply, Booking: rec}, nil
}

func (f *Flow) existing(ctx context.Context, businessID string, start time.Time, duration time.Duration) ([]bookings.Record, error) {
	// Reservations starting up to a day earlier can still run into the slot.
	existing, err := f.ledger.ReservationsBetween(ctx, businessID, start.Add(-24*time.Hour), start.Add(duration))
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	return existing, nil
}

func cancelled() Result {
	return Result{Reply: "Entendido, no hay problema. ¿Te puedo ayudar con algo más? 😊"}
}

func summary(r conversation.Reservation, d Date, c Clock) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Te confirmo: %s el %s a las %s", r.CandidateService, d.Label(), c)
	if r.CandidateStaff != "" {
		fmt.Fprintf(&b, " con %s", r.CandidateStaff)
	}
	b.WriteString(". ¿Confirmamos? ✅")
	return b.String()
}

func anyoneWorks(staff []StaffMember, wd time.Weekday) bool {
	for _, s := range staff {
		if s.WorksOn(wd) {
			return true
		}
	}
	return false
}

func findStaff(staff []StaffMember, name string) (StaffMember, bool) {
	for _, s := range staff {
		if name != "" && sameStaff(s.Name, name) {
			return s, true
		}
	}
	return StaffMember{}, false
}
