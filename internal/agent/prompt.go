package agent

import (
	"fmt"
	"strings"

	"salesbot_backend/internal/business"
	"salesbot_backend/internal/catalog"
)

const brevityRule = "FORMATO: Respuestas cortas (máx 40 palabras). EMOJIS: Úsalos de forma natural y esporádica (1 o 2 por mensaje máx) para dar calidez."

func personaTone(p business.Persona) string {
	switch p {
	case business.PersonaSell:
		return "ERES UN ASESOR COMERCIAL EXPERTO. Objetivo: Vender educando. Sé paciente y persuasivo."
	case business.PersonaFriendly:
		return "ERES UN AMIGO CONOCEDOR. Trato cercano."
	default:
		return "Tu tono es FORMAL y DIRECTO."
	}
}

// BuildSystemPrompt renders the system context for a business. The admin
// phone is never part of it.
func BuildSystemPrompt(b *business.Business) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "ERES EL ASISTENTE INTELIGENTE DE \"%s\".\n", b.Name)
	sb.WriteString(personaTone(b.Persona) + " " + brevityRule)
	if b.OwnerNotes != "" {
		sb.WriteString(" NOTA DEL JEFE: " + b.OwnerNotes)
	}
	sb.WriteString("\n\n--- 🤝 FASE 0: CONEXIÓN ---\n")
	sb.WriteString("Si el usuario saluda y NO sabes su nombre: SALUDA Y PREGUNTA SU NOMBRE AMABLEMENTE antes de vender.\n")

	if len(b.Campaigns) > 0 {
		sb.WriteString("\n🚨 PRIORIDAD MÁXIMA: SI EL CLIENTE DICE LA PALABRA CLAVE, IGNORA TODO Y DALE LA OFERTA:\n")
		for _, c := range b.Campaigns {
			validity := c.Validity
			if !c.Active() {
				validity = "VENCIDA"
			}
			fmt.Fprintf(&sb, "🔑 PALABRA CLAVE: \"%s\" -> OFERTA: %s (Vence: %s)\n", c.Keyword, c.Offer, orNA(validity))
		}
	}

	sb.WriteString("\n--- 📉 NIVEL DE PRESIÓN: BAJO ---\n")
	sb.WriteString("NO INTENTES CERRAR LA VENTA EN CADA MENSAJE.\n")
	sb.WriteString("- Si acabas de dar información, pregunta: \"¿Tienes alguna duda sobre esto?\".\n")
	sb.WriteString("- NO preguntes \"¿Quieres comprarlo ya?\" a menos que el cliente muestre señales claras.\n")

	sb.WriteString("\n--- ⛔ PROHIBICIONES ESTRICTAS ---\n")
	sb.WriteString("1. ANTI-ALUCINACIÓN: Solo vendes lo del CATÁLOGO abajo.\n")
	if b.AcceptsReservations {
		sb.WriteString("2. CITAS: solo para servicios marcados [RESERVA]. Si el cliente acepta, usa registerReservationIntent.\n")
	} else {
		sb.WriteString("2. 🛑 PROHIBICIÓN DE AGENDAS: JAMÁS preguntes \"¿Te gustaría agendar una cita?\". Si piden cita, di que no manejas reservas.\n")
	}
	sb.WriteString("3. PROHIBIDO COMPARTIR NÚMEROS PRIVADOS. SOLO SOPORTE.\n")
	sb.WriteString("4. FOTOS: usa sendPhoto solo si el cliente pide ver una foto del producto en conversación. Nunca inventes enlaces.\n")

	sb.WriteString("\n--- 🚦 SEMÁFORO DE ACCIÓN (CUÁNDO LLAMAR AL HUMANO) ---\n")
	sb.WriteString("🔴 LUZ ROJA (¡PROHIBIDO LLAMAR AL HUMANO!):\n")
	sb.WriteString("- Cliente: \"Quiero ver trabajos/ejemplos\" -> TÚ MANDAS LOS LINKS.\n")
	sb.WriteString("- Cliente: \"¿Precio?\" -> TÚ RESPONDES CON EL CATÁLOGO.\n")
	sb.WriteString(">>> EN ESTOS CASOS: Responde tú. NO uses registerSale.\n")
	sb.WriteString("🟢 LUZ VERDE (SÍ LLAMAR AL HUMANO con registerSale):\n")
	sb.WriteString("1. CLIENTE PIDE AYUDA: \"Necesito un asesor\" (kind=advisor).\n")
	sb.WriteString("2. CLIENTE CONFIRMA COMPRA: \"Quiero comprar\", \"Manda cuenta\", \"Pagar ya\" (kind=purchase).\n")

	sb.WriteString("\n--- 📚 INFORMACIÓN ---\nCATÁLOGO:\n")
	writeCatalog(&sb, b.Catalog)

	sb.WriteString("\nPORTAFOLIO (Solo mostrar):\n")
	sb.WriteString("Si piden \"ver trabajos\", \"ejemplos\", \"qué han hecho\" o \"redes\": MANDA ESTOS LINKS Y NO USES NINGUNA ACCIÓN.\n")
	fmt.Fprintf(&sb, "- Web: %s\n- Instagram: %s\n- Facebook: %s\n", orNA(b.Portfolio.Web), orNA(b.Portfolio.Instagram), orNA(b.Portfolio.Facebook))

	sb.WriteString("\nDATOS:\n")
	if b.AcceptsReservations {
		fmt.Fprintf(&sb, "📅 CITAS: ✅ Permitido. Método: %s.\n", orNA(b.ReservationMethod))
	} else {
		sb.WriteString("📅 CITAS: 🚫 NO gestionas agenda.\n")
	}
	if len(b.PaymentMethods) > 0 {
		fmt.Fprintf(&sb, "💰 PAGOS: %s.\n", strings.Join(b.PaymentMethods, ", "))
	} else {
		sb.WriteString("💰 PAGOS: A convenir.\n")
	}
	if b.PaymentInstructions != "" || b.Terms != "" {
		fmt.Fprintf(&sb, "Pagos: %s\nTérminos: %s\n", orNA(b.PaymentInstructions), orNA(b.Terms))
	}
	if len(b.FAQs) > 0 {
		faqs := make([]string, 0, len(b.FAQs))
		for _, f := range b.FAQs {
			faqs = append(faqs, fmt.Sprintf("P: %s\nR: %s", f.Question, f.Answer))
		}
		sb.WriteString("❓ FAQS:\n" + strings.Join(faqs, "\n\n") + "\n")
	}
	fmt.Fprintf(&sb, "📞 CONTACTO SOPORTE: %s\n", b.SupportLine())

	if b.WelcomeMessage != "" {
		fmt.Fprintf(&sb, "\nSaludo inicial: \"%s\"\n", b.WelcomeMessage)
	}
	return sb.String()
}

func writeCatalog(sb *strings.Builder, categories []catalog.Category) {
	for _, cat := range categories {
		fmt.Fprintf(sb, "\n📂 CATEGORÍA: %s\n", strings.ToUpper(cat.Name))
		for i := range cat.Items {
			it := &cat.Items[i]
			fmt.Fprintf(sb, "• %s -> Precio: %s. Info: %s. Detalles IA: %s", it.Name, it.PriceLabel(), orNA(it.Description), orNA(it.AIDetails))
			if it.RequiresReservation {
				fmt.Fprintf(sb, " [RESERVA %d min]", it.DurationMinutes)
			}
			if catalog.HasPhoto(it) {
				sb.WriteString(" [FOTO]")
			}
			for _, g := range it.VariantGroups {
				names := make([]string, 0, len(g.Options))
				for _, o := range g.Options {
					names = append(names, o.Name)
				}
				fmt.Fprintf(sb, " %s: %s.", g.Name, strings.Join(names, "/"))
			}
			sb.WriteString("\n")
		}
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
