// Package agent mediates the text-generation capability: it declares the
// actions the model may propose, decodes and validates proposals, and turns
// every generation into an outcome that respects business invariants.
package agent

import (
	"fmt"
	"strings"

	"salesbot_backend/internal/bookings"
	"salesbot_backend/platform/apperr"
)

// Action names as declared to the model.
const (
	ActionRegisterSale              = "registerSale"
	ActionRegisterReservationIntent = "registerReservationIntent"
	ActionSendPhoto                 = "sendPhoto"
)

// Action is the closed set of proposals the model can make.
type Action interface {
	Name() string
	isAction()
}

// SaleKind tells a confirmed purchase apart from a plain request for a human.
type SaleKind string

const (
	SalePurchase SaleKind = "purchase"
	SaleAdvisor  SaleKind = "advisor"
)

// RegisterSale hands the customer to a human. A purchase also locks the chat.
type RegisterSale struct {
	Kind    SaleKind
	Summary string
	Total   int64
}

// RegisterReservationIntent asks to start the booking sub-flow for Service.
type RegisterReservationIntent struct {
	Service string
}

// SendPhoto attaches a catalog photo. An empty PhotoURL means "the item's
// first photo".
type SendPhoto struct {
	PhotoURL string
	Caption  string
}

func (RegisterSale) Name() string              { return ActionRegisterSale }
func (RegisterReservationIntent) Name() string { return ActionRegisterReservationIntent }
func (SendPhoto) Name() string                 { return ActionSendPhoto }

func (RegisterSale) isAction()              {}
func (RegisterReservationIntent) isAction() {}
func (SendPhoto) isAction()                 {}

// DecodeAction turns a raw function call into a typed Action. Unknown names
// and ill-typed arguments are validation errors.
func DecodeAction(name string, args map[string]any) (Action, error) {
	switch name {
	case ActionRegisterSale:
		kind, err := stringArg(args, "kind")
		if err != nil {
			return nil, err
		}
		switch SaleKind(strings.ToLower(kind)) {
		case "", SalePurchase:
			kind = string(SalePurchase)
		case SaleAdvisor:
			kind = string(SaleAdvisor)
		default:
			return nil, apperr.Validation(fmt.Sprintf("registerSale: unknown kind %q", kind))
		}
		summary, err := stringArg(args, "summary")
		if err != nil {
			return nil, err
		}
		total, err := amountArg(args, "total")
		if err != nil {
			return nil, err
		}
		return RegisterSale{Kind: SaleKind(kind), Summary: strings.TrimSpace(summary), Total: total}, nil

	case ActionRegisterReservationIntent:
		service, err := stringArg(args, "service")
		if err != nil {
			return nil, err
		}
		return RegisterReservationIntent{Service: strings.TrimSpace(service)}, nil

	case ActionSendPhoto:
		url, err := stringArg(args, "photoUrl")
		if err != nil {
			return nil, err
		}
		caption, err := stringArg(args, "caption")
		if err != nil {
			return nil, err
		}
		return SendPhoto{PhotoURL: strings.TrimSpace(url), Caption: strings.TrimSpace(caption)}, nil
	}
	return nil, apperr.Validation(fmt.Sprintf("unknown action %q", name))
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", apperr.Validation(fmt.Sprintf("argument %s must be a string", key))
	}
	return s, nil
}

// amountArg accepts either a JSON number or a formatted string like "$45.000".
func amountArg(args map[string]any, key string) (int64, error) {
	switch v := args[key].(type) {
	case nil:
		return 0, nil
	case string:
		return bookings.ParseAmount(v), nil
	case float64:
		if v < 0 {
			return 0, apperr.Validation(fmt.Sprintf("argument %s must not be negative", key))
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	}
	return 0, apperr.Validation(fmt.Sprintf("argument %s must be a number", key))
}

// declarations is the JSON schema of the action set in the shape
// chat-completions backends expect.
func declarations() []actionDeclaration {
	return []actionDeclaration{
		{
			Name: ActionRegisterSale,
			Description: "USAR SOLO SI: 1. El cliente dice explícitamente 'Quiero comprar', 'Pagar', 'Manda cuenta'. " +
				"2. El cliente pide un asesor o un humano. PROHIBIDO SI: pregunta info, precios o quiere ver ejemplos.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"kind":    map[string]any{"type": "string", "enum": []string{string(SalePurchase), string(SaleAdvisor)}},
					"summary": map[string]any{"type": "string", "description": "Producto y variante que el cliente quiere."},
					"total":   map[string]any{"type": "string", "description": "Valor numérico."},
				},
				"required": []string{"kind", "summary", "total"},
			},
		},
		{
			Name:        ActionRegisterReservationIntent,
			Description: "USAR SOLO cuando el cliente acaba de aceptar agendar una cita para un servicio que requiere reserva.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"service": map[string]any{"type": "string", "description": "Nombre exacto del servicio del catálogo."},
				},
				"required": []string{"service"},
			},
		},
		{
			Name:        ActionSendPhoto,
			Description: "USAR SOLO si el cliente pidió ver una foto del producto del que se está hablando.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"photoUrl": map[string]any{"type": "string", "description": "Foto del catálogo del producto en conversación."},
					"caption":  map[string]any{"type": "string"},
				},
				"required": []string{"photoUrl"},
			},
		},
	}
}

type actionDeclaration struct {
	Name        string
	Description string
	Parameters  map[string]any
}
