package conversation

import (
	"testing"
	"time"

	"salesbot_backend/platform/apperr"
)

func TestManualOverrideTimeout(t *testing.T) {
	t0 := time.Date(2026, 5, 6, 10, 0, 0, 0, time.UTC)
	timeout := 30 * time.Minute
	c := Conversation{Phase: PhaseActive, HumanOverride: true, HumanOverrideManual: true, UpdatedAt: t0}

	tests := []struct {
		name  string
		at    time.Time
		want  bool
		state State
	}{
		{"just set", t0, true, StateHumanOverride},
		{"29 minutes", t0.Add(29 * time.Minute), true, StateHumanOverride},
		{"31 minutes", t0.Add(31 * time.Minute), false, StateActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				if got := c.OverrideActive(tt.at, timeout); got != tt.want {
					t.Fatalf("read %d: expected active=%v, got %v", i, tt.want, got)
				}
			}
			if got := c.State(tt.at, timeout); got != tt.state {
				t.Fatalf("expected state %s, got %s", tt.state, got)
			}
		})
	}
}

func TestAutomaticOverrideNeverExpires(t *testing.T) {
	t0 := time.Date(2026, 5, 6, 10, 0, 0, 0, time.UTC)
	c := Conversation{HumanOverride: true, UpdatedAt: t0}
	if !c.OverrideActive(t0.Add(48*time.Hour), 30*time.Minute) {
		t.Fatalf("expected automatic override to stay active")
	}

	c.SaleLocked = true
	c.HumanOverrideManual = true
	if got := c.State(t0.Add(48*time.Hour), 30*time.Minute); got != StateSaleLocked {
		t.Fatalf("expected sale lock to win, got %s", got)
	}
}

func TestStateDerivation(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		conv Conversation
		want State
	}{
		{"empty", New(Key{}), StateNew},
		{"awaiting name", Conversation{Phase: PhaseAwaitingName}, StateAwaitingName},
		{"active", Conversation{Phase: PhaseActive}, StateActive},
		{"reservation step", Conversation{Phase: PhaseActive, Reservation: &Reservation{Step: StateAwaitingTime}}, StateAwaitingTime},
		{"override beats reservation", Conversation{
			HumanOverride: true,
			Reservation:   &Reservation{Step: StateAwaitingDate},
			UpdatedAt:     now,
		}, StateHumanOverride},
	}
	for _, tt := range tests {
		if got := tt.conv.State(now, 30*time.Minute); got != tt.want {
			t.Fatalf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
}

func TestApplyEnforcesSaleLockInvariant(t *testing.T) {
	now := time.Now()
	base := Conversation{Messages: []Message{{Role: RoleCustomer, Content: "hola"}}}

	if _, err := Apply(base, Patch{SaleLocked: Ptr(true)}, now); !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected invariant error, got %v", err)
	}

	locked, err := Apply(base, Patch{SaleLocked: Ptr(true), HumanOverride: Ptr(true)}, now)
	if err != nil {
		t.Fatalf("expected lock to apply, got %v", err)
	}

	if _, err := Apply(locked, Patch{HumanOverride: Ptr(false)}, now); err == nil {
		t.Fatalf("expected clearing override on a locked conversation to fail")
	}

	reactivated, err := Apply(locked, Patch{HumanOverride: Ptr(false), SaleLocked: Ptr(false)}, now)
	if err != nil || reactivated.HumanOverride || reactivated.SaleLocked {
		t.Fatalf("expected full reactivation, got %+v (%v)", reactivated, err)
	}
}

func TestApplyAppendsWithoutRewriting(t *testing.T) {
	now := time.Now()
	original := []Message{{Role: RoleCustomer, Content: "hola"}}
	base := Conversation{Messages: original, Reservation: &Reservation{Step: StateAwaitingDate}}

	out, err := Apply(base, Patch{
		Append:           []Message{{Role: RoleAssistant, Content: "¡Hola!"}},
		ClearReservation: true,
	}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Messages) != 2 || out.Messages[0].Content != "hola" {
		t.Fatalf("expected appended log, got %+v", out.Messages)
	}
	if len(base.Messages) != 1 {
		t.Fatalf("expected input conversation to be untouched")
	}
	if out.Reservation != nil {
		t.Fatalf("expected reservation to be cleared")
	}
	if !out.UpdatedAt.Equal(now) {
		t.Fatalf("expected UpdatedAt to be refreshed")
	}
}

func TestFilterIgnoresAccents(t *testing.T) {
	convs := []Conversation{
		{Key: Key{CustomerID: "+573001112233"}, ProfileName: "José Pérez"},
		{Key: Key{CustomerID: "+573004445566"}, ProfileName: "Ana", LastMessage: "quiero la camisa"},
	}
	if got := Filter(convs, "perez", 10); len(got) != 1 || got[0].ProfileName != "José Pérez" {
		t.Fatalf("expected accent-insensitive match, got %+v", got)
	}
	if got := Filter(convs, "4445566", 10); len(got) != 1 {
		t.Fatalf("expected phone match, got %+v", got)
	}
	if got := Filter(convs, "", 10); got != nil {
		t.Fatalf("expected empty term to match nothing")
	}
}
