// Package scheduling resolves natural-language dates and times, checks staff
// availability and drives the reservation sub-flow.
package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"salesbot_backend/platform/textnorm"
)

// StaffMember is a person who can be booked. WorkingDays accepts English or
// Spanish weekday names or their three letter abbreviations.
type StaffMember struct {
	Name        string   `json:"name" yaml:"name"`
	WorkingDays []string `json:"workingDays" yaml:"workingDays"`
	DayStart    string   `json:"dayStart" yaml:"dayStart"`
	DayEnd      string   `json:"dayEnd" yaml:"dayEnd"`
	Breaks      []Break  `json:"breaks,omitempty" yaml:"breaks,omitempty"`
}

// Break is a daily pause in "HH:MM" form.
type Break struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday, "domingo": time.Sunday, "dom": time.Sunday,
	"monday": time.Monday, "mon": time.Monday, "lunes": time.Monday, "lun": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "martes": time.Tuesday, "mar": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "miercoles": time.Wednesday, "mie": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "jueves": time.Thursday, "jue": time.Thursday,
	"friday": time.Friday, "fri": time.Friday, "viernes": time.Friday, "vie": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday, "sabado": time.Saturday, "sab": time.Saturday,
}

// WorksOn reports whether d is one of the configured working days.
func (s StaffMember) WorksOn(d time.Weekday) bool {
	for _, name := range s.WorkingDays {
		if wd, ok := weekdayNames[textnorm.Normalize(name)]; ok && wd == d {
			return true
		}
	}
	return false
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" in 24-hour form.
func ParseClock(s string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Clock{}, fmt.Errorf("invalid clock %q", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	c := Clock{Hour: hour, Minute: minute}
	if !c.valid() && !(hour == 24 && minute == 0) {
		return Clock{}, fmt.Errorf("invalid clock %q", s)
	}
	return c, nil
}

func (c Clock) valid() bool {
	return c.Hour >= 0 && c.Hour < 24 && c.Minute >= 0 && c.Minute < 60
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Date is a calendar day without a location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// At combines the day with a clock in loc.
func (d Date) At(c Clock, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, loc)
}

// Weekday of the date.
func (d Date) Weekday() time.Weekday {
	return d.At(Clock{}, time.UTC).Weekday()
}

// Before reports whether d is an earlier day than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

var spanishWeekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

// Label renders the date for customers, e.g. "jueves 16/10".
func (d Date) Label() string {
	return fmt.Sprintf("%s %d/%02d", spanishWeekdays[d.Weekday()], d.Day, int(d.Month))
}
