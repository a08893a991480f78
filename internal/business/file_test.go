package business

import (
	"context"
	"errors"
	"testing"

	"salesbot_backend/platform/apperr"
)

const sampleYAML = `
businesses:
  - channelId: "whatsapp:+1 415 523 8886"
    name: Spa Serena
    persona: friendly
    adminPhone: "+57 300 111 2233"
    supportContact: "+57 601 555 0000"
    acceptsReservations: true
    timezone: America/Bogota
    catalog:
      - name: Spa
        items:
          - name: Masaje
            price: 120000
            requiresReservation: true
            durationMinutes: 60
            photo: spa/masaje.jpg
    staff:
      - name: Ana
        workingDays: [mon, tue, wed, thu, fri]
        dayStart: "08:00"
        dayEnd: "18:00"
    campaigns:
      - keyword: RELAX
        offer: 10% en masajes
        status: active
`

type recordingUpserter struct {
	saved []Business
	fail  bool
}

func (r *recordingUpserter) Upsert(_ context.Context, b Business) error {
	if r.fail {
		return errors.New("boom")
	}
	r.saved = append(r.saved, b)
	return nil
}

func TestParseYAML(t *testing.T) {
	src, err := ParseYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	b, err := src.Get(context.Background(), "whatsapp:+14155238886")
	if err != nil {
		t.Fatalf("expected business, got %v", err)
	}
	if b.Name != "Spa Serena" || b.Persona != PersonaFriendly {
		t.Fatalf("unexpected business %+v", b)
	}
	if len(b.Catalog) != 1 || b.Catalog[0].Items[0].Price == nil || *b.Catalog[0].Items[0].Price != 120000 {
		t.Fatalf("unexpected catalog %+v", b.Catalog)
	}
	if !b.IsAdmin("whatsapp:+573001112233") || b.IsAdmin("+573009999999") {
		t.Fatalf("unexpected admin detection")
	}
	if b.Location("UTC").String() != "America/Bogota" {
		t.Fatalf("expected business timezone, got %s", b.Location("UTC"))
	}

	if _, err := src.Get(context.Background(), "+15550000000"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestParseYAMLRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"missing name":  "businesses:\n  - channelId: \"+1\"\n",
		"bad persona":   "businesses:\n  - channelId: \"+1\"\n    name: X\n    persona: pushy\n",
		"duplicate id":  "businesses:\n  - channelId: \"+1\"\n    name: X\n  - channelId: \"whatsapp:+1\"\n    name: Y\n",
		"malformed doc": "businesses: [",
	}
	for name, doc := range tests {
		if _, err := ParseYAML([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestSeed(t *testing.T) {
	src, err := ParseYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	dst := &recordingUpserter{}
	n, err := Seed(context.Background(), src, dst)
	if err != nil || n != 1 || len(dst.saved) != 1 {
		t.Fatalf("expected one seeded business, got %d (%v)", n, err)
	}

	if _, err := Seed(context.Background(), src, &recordingUpserter{fail: true}); err == nil {
		t.Fatalf("expected seed error")
	}
}

func TestSupportLineFallback(t *testing.T) {
	b := Business{}
	if b.SupportLine() == "" {
		t.Fatalf("expected default support line")
	}
	b.SupportContact = "+57 601 555 0000"
	if b.SupportLine() != "+57 601 555 0000" {
		t.Fatalf("expected configured support line")
	}
}
