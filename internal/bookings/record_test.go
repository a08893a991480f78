package bookings

import (
	"testing"
	"time"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"$45.000", 45000},
		{"45000 COP", 45000},
		{"N/A", 0},
		{"", 0},
		{"١٢", 0},
	}
	for _, tt := range tests {
		if got := ParseAmount(tt.in); got != tt.want {
			t.Fatalf("ParseAmount(%q): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestSummarizeCountsOnlyLiveSales(t *testing.T) {
	at := time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)
	records := []Record{
		{Type: TypeSale, Total: 30000, Status: StatusPending},
		{Type: TypeSale, Total: 20000, Status: StatusCancelled},
		{Type: TypeReservation, ScheduledAt: &at, DurationMinutes: 60, Status: StatusConfirmed},
		{Type: TypeSale, Total: 15000, Status: StatusConfirmed},
	}

	s := Summarize(records)
	if s.Count != 2 || s.Total != 45000 {
		t.Fatalf("expected 2 sales totalling 45000, got %d / %d", s.Count, s.Total)
	}
}

func TestRecordInterval(t *testing.T) {
	at := time.Date(2026, 3, 4, 14, 30, 0, 0, time.UTC)
	rec := Record{Type: TypeReservation, ScheduledAt: &at, DurationMinutes: 60, Status: StatusConfirmed}

	start, end, ok := rec.Interval()
	if !ok || !start.Equal(at) || !end.Equal(at.Add(time.Hour)) {
		t.Fatalf("unexpected interval %v-%v (%v)", start, end, ok)
	}
	if !rec.Blocking() {
		t.Fatalf("expected confirmed reservation to block")
	}

	rec.Status = StatusCancelled
	if rec.Blocking() {
		t.Fatalf("expected cancelled reservation not to block")
	}
	if _, _, ok := (Record{Type: TypeSale}).Interval(); ok {
		t.Fatalf("expected sale to have no interval")
	}
}

func TestFormatAmount(t *testing.T) {
	tests := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1.000",
		125000:   "125.000",
		1234567:  "1.234.567",
		-45000:   "-45.000",
	}
	for in, want := range tests {
		if got := FormatAmount(in); got != want {
			t.Fatalf("FormatAmount(%d) expected %q, got %q", in, want, got)
		}
	}
}
