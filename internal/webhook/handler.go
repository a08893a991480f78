package webhook

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"salesbot_backend/internal/orchestrator"
	"salesbot_backend/internal/whatsapp"
	"salesbot_backend/platform/httpkit"
	"salesbot_backend/platform/logger"
)

// emptyTwiML acknowledges a webhook without replying inline. Replies are
// sent through the Messages API.
const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// Processor runs a conversation turn.
type Processor interface {
	HandleInbound(ctx context.Context, ev orchestrator.InboundEvent) (orchestrator.Result, error)
}

// Handler handles channel webhooks.
type Handler struct {
	turns Processor
	log   *logger.Logger
}

// NewHandler creates a webhook handler.
func NewHandler(turns Processor, log *logger.Logger) *Handler {
	return &Handler{turns: turns, log: log}
}

// HandleInbound processes one inbound WhatsApp message.
// POST /api/v1/whatsapp/inbound
func (h *Handler) HandleInbound(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid form body", nil)
		return
	}
	in, err := whatsapp.ParseInbound(c.Request.PostForm)
	if httpkit.HandleError(c, err) {
		return
	}

	res, err := h.turns.HandleInbound(c.Request.Context(), orchestrator.InboundEvent{
		MessageID:   in.MessageSID,
		BusinessID:  in.To,
		CustomerID:  in.From,
		Body:        in.Body,
		MediaURL:    in.MediaURL,
		MediaType:   in.MediaType,
		ProfileName: in.ProfileName,
	})
	if err != nil {
		// The message is already claimed; a retry would be dropped, so the
		// channel gets a 200 either way.
		h.log.Error("webhook: turn failed", "messageSid", in.MessageSID, "error", err)
	} else {
		h.log.Info("webhook: turn handled",
			"messageSid", in.MessageSID,
			"replies", res.Replies,
			"silenced", res.Silenced,
			"owner", res.Owner,
			"dropped", res.Dropped,
			"duplicate", res.Duplicate,
		)
	}

	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(emptyTwiML))
}

// HandleStatus records delivery callbacks for outbound messages.
// POST /api/v1/whatsapp/status
func (h *Handler) HandleStatus(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid form body", nil)
		return
	}
	form := c.Request.PostForm
	status := form.Get("MessageStatus")
	attrs := []any{"messageSid", form.Get("MessageSid"), "status", status, "to", form.Get("To")}
	if code := form.Get("ErrorCode"); code != "" {
		h.log.Warn("webhook: delivery failed", append(attrs, "errorCode", code)...)
	} else {
		h.log.Info("webhook: delivery status", attrs...)
	}
	c.Status(http.StatusNoContent)
}
