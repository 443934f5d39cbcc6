package messaging

import "strings"

// DefaultCountryCode is the dialling prefix assumed when a number lacks one.
const DefaultCountryCode = "7"

const (
	canonicalKeyLen = 10
	chatSuffix      = "@c.us"
)

// Digits strips every non-digit character from value.
func Digits(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CanonicalKey reduces a free-form phone number to the key bookings are
// matched on: digits only, the country code prepended when missing, then the
// last ten digits. "+7 (701) 777-77-77", "87017777777" and "7017777777" all
// yield "7017777777".
func CanonicalKey(value, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	digits := Digits(StripChatSuffix(value))
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, countryCode) {
		digits = countryCode + digits
	}
	if len(digits) > canonicalKeyLen {
		digits = digits[len(digits)-canonicalKeyLen:]
	}
	return digits
}

// ChatID builds the Green API chat id ("77017777777@c.us") for a phone number.
func ChatID(value, countryCode string) string {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	key := CanonicalKey(value, countryCode)
	if key == "" {
		return ""
	}
	if len(key) == canonicalKeyLen {
		return countryCode + key + chatSuffix
	}
	return key + chatSuffix
}

// StripChatSuffix removes the "@c.us" suffix Green API appends to senders.
func StripChatSuffix(value string) string {
	return strings.TrimSuffix(strings.TrimSpace(value), chatSuffix)
}
