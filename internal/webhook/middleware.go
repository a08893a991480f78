package webhook

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"salesbot_backend/internal/whatsapp"
	"salesbot_backend/platform/config"
	"salesbot_backend/platform/logger"
)

const signatureHeader = "X-Twilio-Signature"

// SignatureRequired rejects requests whose X-Twilio-Signature does not match
// the public URL the channel posts to. The path of the request is appended
// to the configured base so one setting covers every webhook route.
func SignatureRequired(cfg config.WebhookConfig, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.GetTwilioValidateSignature() {
			c.Next()
			return
		}
		if err := c.Request.ParseForm(); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form body"})
			return
		}

		fullURL := publicURL(cfg.GetPublicWebhookURL(), c.Request.URL.Path)
		if !whatsapp.ValidSignature(cfg.GetTwilioAuthToken(), fullURL, c.Request.PostForm, c.GetHeader(signatureHeader)) {
			log.Warn("webhook: invalid signature", "path", c.Request.URL.Path, "clientIP", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return
		}
		c.Next()
	}
}

// publicURL joins the public base with the request path unless the base
// already names the full endpoint.
func publicURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, path) {
		return base
	}
	return base + path
}
