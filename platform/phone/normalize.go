// Package phone provides channel identifier utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

const (
	channelPrefix = "whatsapp:"
	// significantDigits is how many trailing digits identify a subscriber
	// regardless of how the country code was written.
	significantDigits = 10
)

// CanonicalID strips the channel prefix and all whitespace from an identifier.
func CanonicalID(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) >= len(channelPrefix) && strings.EqualFold(trimmed[:len(channelPrefix)], channelPrefix) {
		trimmed = trimmed[len(channelPrefix):]
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, trimmed)
}

// Digits returns only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SameID reports whether two identifiers refer to the same subscriber:
// their last 10 digits match. Shorter numbers must match in full.
func SameID(a, b string) bool {
	da, db := Digits(CanonicalID(a)), Digits(CanonicalID(b))
	if da == "" || db == "" {
		return false
	}
	return lastDigits(da) == lastDigits(db)
}

func lastDigits(d string) string {
	if len(d) <= significantDigits {
		return d
	}
	return d[len(d)-significantDigits:]
}

// NormalizeE164 formats a phone number to E.164 using region as the default
// country. If parsing fails, it returns the canonical input.
func NormalizeE164(input, region string) string {
	trimmed := CanonicalID(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, strings.ToUpper(region))
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// ChannelAddress renders an identifier in the channel's addressing form.
func ChannelAddress(input, region string) string {
	return channelPrefix + NormalizeE164(input, region)
}
