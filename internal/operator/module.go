// Package operator provides the operator console module: the authenticated
// API a human uses to follow conversations and take over from the bot.
package operator

import (
	"time"

	"salesbot_backend/internal/bookings"
	"salesbot_backend/internal/conversation"
	apphttp "salesbot_backend/internal/http"
	"salesbot_backend/internal/operator/handler"
	"salesbot_backend/internal/operator/service"
	"salesbot_backend/platform/logger"
	"salesbot_backend/platform/validator"
)

// Module represents the operator console module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates the operator module with all dependencies wired
func NewModule(convs conversation.Repository, ledger bookings.Ledger, sender service.Sender, overrideTimeout time.Duration, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(convs, ledger, sender, overrideTimeout, log)
	return &Module{
		handler: handler.New(svc, val),
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "operator"
}

// RegisterRoutes registers the console routes under /api/v1/operator/businesses/:businessId
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	businesses := ctx.Operator.Group("/businesses/:businessId")
	m.handler.RegisterRoutes(businesses)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
