package scheduling

import (
	"strings"
	"time"

	"salesbot_backend/internal/bookings"
)

// Reason explains why a staff member is not available.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonDayOff       Reason = "day_off"
	ReasonOutsideHours Reason = "outside_hours"
	ReasonBreak        Reason = "break"
	ReasonConflict     Reason = "conflict"
)

// overlaps is the half-open interval test [aStart, aEnd) ∩ [bStart, bEnd).
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Available runs the four checks in order: working day, working hours,
// breaks, then existing non-cancelled reservations assigned to the same
// staff member. Times are interpreted in start's location.
func Available(staff StaffMember, start time.Time, duration time.Duration, existing []bookings.Record) (bool, Reason) {
	end := start.Add(duration)
	day := DateOf(start)
	loc := start.Location()

	if !staff.WorksOn(start.Weekday()) {
		return false, ReasonDayOff
	}

	dayStart, errStart := ParseClock(staff.DayStart)
	dayEnd, errEnd := ParseClock(staff.DayEnd)
	if errStart != nil || errEnd != nil {
		return false, ReasonOutsideHours
	}
	open := day.At(dayStart, loc)
	closing := day.At(dayEnd, loc)
	if start.Before(open) || end.After(closing) {
		return false, ReasonOutsideHours
	}

	for _, b := range staff.Breaks {
		bs, err1 := ParseClock(b.Start)
		be, err2 := ParseClock(b.End)
		if err1 != nil || err2 != nil {
			continue
		}
		if overlaps(day.At(bs, loc), day.At(be, loc), start, end) {
			return false, ReasonBreak
		}
	}

	for _, rec := range existing {
		if !rec.Blocking() || !sameStaff(rec.Staff, staff.Name) {
			continue
		}
		rs, re, ok := rec.Interval()
		if !ok {
			continue
		}
		if overlaps(rs, re, start, end) {
			return false, ReasonConflict
		}
	}

	return true, ReasonNone
}

// FreeStaff returns the staff members available for the slot, in configured
// order.
func FreeStaff(staff []StaffMember, start time.Time, duration time.Duration, existing []bookings.Record) []StaffMember {
	var free []StaffMember
	for _, s := range staff {
		if ok, _ := Available(s, start, duration, existing); ok {
			free = append(free, s)
		}
	}
	return free
}

func sameStaff(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
