package privacy

import (
	"strings"

	"takeoutmerge/internal/constants"
)

// MaskPhoneNumber masks a phone number showing only the last 4 digits
// Example: "+1234567890" -> "+******7890"
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	keep := constants.DefaultPhoneMaskLength

	// Handle + prefix numbers specially
	if strings.HasPrefix(phone, "+") {
		if len(phone) == 1 {
			return phone
		}
		if len(phone) <= keep+1 {
			return "+" + strings.Repeat("*", len(phone)-1)
		}
		return "+" + strings.Repeat("*", len(phone)-keep-1) + phone[len(phone)-keep:]
	}

	if len(phone) <= keep {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-keep) + phone[len(phone)-keep:]
}

// MaskConversationKey masks every number of a comma-joined conversation key.
// Group conversation directory names carry no number and pass through.
func MaskConversationKey(key string) string {
	if key == "" || strings.HasPrefix(key, constants.GroupConversationPrefix) {
		return key
	}

	parts := strings.Split(key, ",")
	for i, part := range parts {
		parts[i] = MaskPhoneNumber(part)
	}
	return strings.Join(parts, ",")
}

// Masker masks numbers for log output unless verbose logging was requested
type Masker struct {
	Verbose bool
}

// Number masks a single phone number
func (m Masker) Number(phone string) string {
	if m.Verbose {
		return phone
	}
	return MaskPhoneNumber(phone)
}

// Key masks a conversation key
func (m Masker) Key(key string) string {
	if m.Verbose {
		return key
	}
	return MaskConversationKey(key)
}
