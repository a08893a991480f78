// Package webhook receives the WhatsApp channel callbacks and hands each
// inbound message to the conversation engine.
package webhook

import (
	"golang.org/x/time/rate"

	apphttp "salesbot_backend/internal/http"
	"salesbot_backend/platform/config"
	"salesbot_backend/platform/httpkit"
	"salesbot_backend/platform/logger"
)

const defaultRateLimit = 5

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	limiter *httpkit.IPRateLimiter
	cfg     config.WebhookConfig
	log     *logger.Logger
}

// NewModule creates the webhook module.
func NewModule(turns Processor, cfg config.WebhookConfig, log *logger.Logger) *Module {
	perSecond := cfg.GetWebhookRateLimit()
	if perSecond <= 0 {
		perSecond = defaultRateLimit
	}
	burst := int(perSecond * 2)
	if burst < 1 {
		burst = 1
	}
	return &Module{
		handler: NewHandler(turns, log),
		limiter: httpkit.NewIPRateLimiter(rate.Limit(perSecond), burst, log),
		cfg:     cfg,
		log:     log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the public channel callbacks. They are signed by the
// channel, not authenticated with operator tokens.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Channel.Use(m.limiter.RateLimit(), SignatureRequired(m.cfg, m.log))
	ctx.Channel.POST("/inbound", m.handler.HandleInbound)
	ctx.Channel.POST("/status", m.handler.HandleStatus)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
