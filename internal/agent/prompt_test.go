package agent

import (
	"strings"
	"testing"

	"salesbot_backend/internal/business"
	"salesbot_backend/internal/intent"
)

func TestBuildSystemPrompt(t *testing.T) {
	b := testBusiness()
	b.OwnerNotes = "No dar descuentos"
	b.Campaigns = []intent.Campaign{
		{Keyword: "RELAX", Offer: "10% en masajes", Status: intent.CampaignActive, Validity: "31/12"},
	}
	b.FAQs = []business.FAQ{{Question: "¿Hacen envíos?", Answer: "Sí, a todo el país."}}

	prompt := BuildSystemPrompt(b)
	for _, want := range []string{
		`ERES EL ASISTENTE INTELIGENTE DE "Tienda Sol"`,
		"ERES UN AMIGO CONOCEDOR",
		"máx 40 palabras",
		"NOTA DEL JEFE: No dar descuentos",
		`🔑 PALABRA CLAVE: "RELAX" -> OFERTA: 10% en masajes (Vence: 31/12)`,
		"• Camisa -> Precio: $45000",
		"[RESERVA 60 min]",
		"P: ¿Hacen envíos?\nR: Sí, a todo el país.",
		"📞 CONTACTO SOPORTE: +57 601 555 0000",
		"✅ Permitido",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected prompt to contain %q", want)
		}
	}
	if strings.Contains(prompt, "300 111 2233") {
		t.Fatalf("admin phone must never reach the prompt")
	}
}

func TestBuildSystemPromptWithoutReservations(t *testing.T) {
	b := testBusiness()
	b.AcceptsReservations = false
	b.Persona = business.PersonaFormal

	prompt := BuildSystemPrompt(b)
	if !strings.Contains(prompt, "JAMÁS preguntes") || !strings.Contains(prompt, "🚫 NO gestionas agenda") {
		t.Fatalf("expected booking prohibition in prompt")
	}
	if !strings.Contains(prompt, "FORMAL y DIRECTO") {
		t.Fatalf("expected formal tone")
	}
}
