package whatsapp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"sort"
	"strings"

	"salesbot_backend/platform/apperr"
	"salesbot_backend/platform/phone"
)

// Inbound is the subset of a Twilio webhook payload the bot consumes.
type Inbound struct {
	MessageSID  string
	From        string
	To          string
	Body        string
	ProfileName string
	MediaURL    string
	MediaType   string
}

// ParseInbound reads a form-encoded webhook. From and To are canonicalised.
func ParseInbound(form url.Values) (Inbound, error) {
	in := Inbound{
		MessageSID:  strings.TrimSpace(form.Get("MessageSid")),
		From:        phone.CanonicalID(form.Get("From")),
		To:          phone.CanonicalID(form.Get("To")),
		Body:        strings.TrimSpace(form.Get("Body")),
		ProfileName: strings.TrimSpace(form.Get("ProfileName")),
		MediaURL:    strings.TrimSpace(form.Get("MediaUrl0")),
		MediaType:   strings.TrimSpace(form.Get("MediaContentType0")),
	}
	if in.From == "" || in.To == "" {
		return Inbound{}, apperr.BadRequest("From and To are required")
	}
	if in.Body == "" && in.MediaURL == "" {
		return Inbound{}, apperr.BadRequest("empty message")
	}
	return in, nil
}

// Signature computes the X-Twilio-Signature for a POST to fullURL: the URL
// followed by every parameter name and value in name order, HMAC-SHA1 with
// the auth token, base64 encoded.
func Signature(authToken, fullURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidSignature reports whether got matches the expected signature.
func ValidSignature(authToken, fullURL string, params url.Values, got string) bool {
	if got == "" {
		return false
	}
	want := Signature(authToken, fullURL, params)
	return hmac.Equal([]byte(want), []byte(got))
}
