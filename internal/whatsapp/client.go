// Package whatsapp talks to the Twilio WhatsApp channel: outbound messages
// through the Messages API and parsing of inbound webhook payloads.
package whatsapp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"salesbot_backend/platform/apperr"
	"salesbot_backend/platform/config"
	"salesbot_backend/platform/logger"
	"salesbot_backend/platform/phone"
)

const defaultAPIBaseURL = "https://api.twilio.com"

// OutboundMessage is a text with at most one attached media reference.
type OutboundMessage struct {
	From     string
	To       string
	Body     string
	MediaURL string
}

// PhotoResolver turns a stored photo reference into a fetchable URL.
type PhotoResolver interface {
	ResolvePhotoURL(ctx context.Context, ref string) (string, error)
}

// Client sends messages through Twilio. A nil *Client drops messages, which
// keeps local runs without credentials working.
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	region     string
	photos     PhotoResolver
	http       *http.Client
	log        *logger.Logger
}

// NewClient returns nil when no Twilio account is configured.
func NewClient(cfg config.WhatsAppConfig, photos PhotoResolver, log *logger.Logger) *Client {
	if cfg.GetTwilioAccountSID() == "" || cfg.GetTwilioAuthToken() == "" {
		return nil
	}
	base := cfg.GetTwilioAPIBaseURL()
	if base == "" {
		base = defaultAPIBaseURL
	}

	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		accountSID: cfg.GetTwilioAccountSID(),
		authToken:  cfg.GetTwilioAuthToken(),
		region:     cfg.GetDefaultPhoneRegion(),
		photos:     photos,
		http:       &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// Send delivers msg with a single attempt.
func (c *Client) Send(ctx context.Context, msg OutboundMessage) error {
	if c == nil {
		return nil
	}

	form := url.Values{}
	form.Set("From", phone.ChannelAddress(msg.From, c.region))
	form.Set("To", phone.ChannelAddress(msg.To, c.region))
	form.Set("Body", msg.Body)
	if msg.MediaURL != "" {
		media := msg.MediaURL
		if c.photos != nil {
			resolved, err := c.photos.ResolvePhotoURL(ctx, media)
			if err != nil {
				return apperr.Unavailable("resolve photo", err)
			}
			media = resolved
		}
		form.Set("MediaUrl", media)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Unavailable("whatsapp request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperr.Unavailable("whatsapp send failed",
			fmt.Errorf("twilio returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	c.log.Info("whatsapp: message sent", "to", form.Get("To"), "media", msg.MediaURL != "")
	return nil
}
