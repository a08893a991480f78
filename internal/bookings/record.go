// Package bookings is the append-only ledger of sales and reservations.
package bookings

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Type distinguishes sales from reservations.
type Type string

const (
	TypeSale        Type = "sale"
	TypeReservation Type = "reservation"
)

// Status of a ledger entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Record is one ledger entry. Staff, ScheduledAt and DurationMinutes are only
// set for reservations; Total only for sales.
type Record struct {
	ID              uuid.UUID  `json:"id"`
	BusinessID      string     `json:"businessId"`
	Type            Type       `json:"type"`
	CustomerID      string     `json:"customerId"`
	CustomerName    string     `json:"customerName"`
	Description     string     `json:"description"`
	Staff           string     `json:"staff,omitempty"`
	ScheduledAt     *time.Time `json:"scheduledAt,omitempty"`
	DurationMinutes int        `json:"durationMinutes,omitempty"`
	Total           int64      `json:"total,omitempty"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Interval returns the half-open reservation window. ok is false for
// records that carry no schedule.
func (r Record) Interval() (start, end time.Time, ok bool) {
	if r.ScheduledAt == nil || r.DurationMinutes <= 0 {
		return time.Time{}, time.Time{}, false
	}
	start = *r.ScheduledAt
	return start, start.Add(time.Duration(r.DurationMinutes) * time.Minute), true
}

// Blocking reports whether the record occupies its staff member's time.
func (r Record) Blocking() bool {
	return r.Type == TypeReservation && r.Status != StatusCancelled
}

// ParseAmount keeps only the digits of a free-form money string such as
// "$45.000 COP". Unparseable input yields 0.
func ParseAmount(s string) int64 {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FormatAmount renders 1234567 as "1.234.567".
func FormatAmount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Summary aggregates sale records for a report.
type Summary struct {
	Count int
	Total int64
	Sales []Record
}

// Summarize counts sales and sums their totals. Reservations and cancelled
// entries are ignored.
func Summarize(records []Record) Summary {
	var s Summary
	for _, r := range records {
		if r.Type != TypeSale || r.Status == StatusCancelled {
			continue
		}
		s.Count++
		s.Total += r.Total
		s.Sales = append(s.Sales, r)
	}
	return s
}
