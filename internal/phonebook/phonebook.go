// Package phonebook resolves raw phone numbers from an export into canonical
// numbers, conversation keys and display names.
package phonebook

import (
	"sort"
	"strings"

	"takeoutmerge/internal/constants"
	"takeoutmerge/internal/models"
	"takeoutmerge/internal/validation"
)

// MatchStrategy selects how two phone numbers are considered equal
type MatchStrategy int

const (
	// Exact matches literal numbers only
	Exact MatchStrategy = iota
	// Suffix matches numbers sharing a long enough trailing run of digits
	Suffix
)

func (s MatchStrategy) String() string {
	switch s {
	case Suffix:
		return models.MatchSuffix
	default:
		return models.MatchExact
	}
}

// Contact is one canonical address book entry
type Contact struct {
	Name         string
	PhoneNumbers []string
}

// PhoneBook is the identity resolver. It is immutable after construction
// except for Observe, which must be called for every number of a run before
// the first Resolve so that keys do not depend on processing order.
type PhoneBook struct {
	strategy     MatchStrategy
	suffixLength int
	names        map[string]string
	contacts     []string
	observed     []string
}

// New creates a phone book. A suffix strategy with a non-positive length
// falls back to exact matching.
func New(cfg models.MatchingConfig, contacts []Contact) *PhoneBook {
	pb := &PhoneBook{
		strategy: Exact,
		names:    make(map[string]string),
	}
	if cfg.Strategy == models.MatchSuffix && cfg.SuffixLength > 0 {
		pb.strategy = Suffix
		pb.suffixLength = cfg.SuffixLength
	}

	for _, contact := range contacts {
		for _, raw := range contact.PhoneNumbers {
			number := validation.NormalizePhoneNumber(raw)
			if !validation.IsPhoneNumber(number) {
				continue
			}
			// First contact listing a number owns it
			if _, exists := pb.names[number]; exists {
				continue
			}
			pb.names[number] = contact.Name
			pb.contacts = append(pb.contacts, number)
		}
	}
	sort.Strings(pb.contacts)

	return pb
}

// Strategy returns the active matching strategy
func (pb *PhoneBook) Strategy() MatchStrategy {
	return pb.strategy
}

// Len returns the number of contact numbers known
func (pb *PhoneBook) Len() int {
	return len(pb.contacts)
}

// Observe registers numbers seen in the export as secondary canonical targets
func (pb *PhoneBook) Observe(numbers ...string) {
	seen := make(map[string]bool, len(pb.observed))
	for _, n := range pb.observed {
		seen[n] = true
	}
	for _, n := range numbers {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		pb.observed = append(pb.observed, n)
	}
	sort.Strings(pb.observed)
}

// Match reports whether two numbers identify the same party under the active strategy
func (pb *PhoneBook) Match(a, b string) bool {
	if a == b {
		return true
	}
	if pb.strategy != Suffix {
		return false
	}
	return commonSuffix(validation.Digits(a), validation.Digits(b)) >= pb.suffixLength
}

// Canonical maps a raw number onto its canonical spelling.
//
// With suffix matching, contact numbers win over observed numbers. Among
// contacts the longest common suffix wins, then the lexicographically smallest
// number. Among observed numbers the one with the most digits wins, then the
// lexicographically smallest number.
func (pb *PhoneBook) Canonical(number string) string {
	if pb.strategy != Suffix || number == constants.UnknownPhoneNumber {
		return number
	}

	digits := validation.Digits(number)

	best, bestLen := "", 0
	for _, candidate := range pb.contacts {
		l := commonSuffix(digits, validation.Digits(candidate))
		if l >= pb.suffixLength && l > bestLen {
			best, bestLen = candidate, l
		}
	}
	if best != "" {
		return best
	}

	best, bestDigits := number, len(digits)
	for _, candidate := range pb.observed {
		if candidate == constants.UnknownPhoneNumber {
			continue
		}
		candidateDigits := validation.Digits(candidate)
		if commonSuffix(digits, candidateDigits) < pb.suffixLength {
			continue
		}
		if len(candidateDigits) > bestDigits || (len(candidateDigits) == bestDigits && candidate < best) {
			best, bestDigits = candidate, len(candidateDigits)
		}
	}
	return best
}

// CanonicalSet canonicalizes, de-duplicates and sorts a participant set
func (pb *PhoneBook) CanonicalSet(numbers []string) []string {
	seen := make(map[string]bool, len(numbers))
	out := make([]string, 0, len(numbers))
	for _, n := range numbers {
		c := pb.Canonical(n)
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the conversation key of a participant set
func (pb *PhoneBook) Resolve(numbers []string) string {
	return strings.Join(pb.CanonicalSet(numbers), ",")
}

// DisplayName looks up the contact name of a number
func (pb *PhoneBook) DisplayName(number string) (string, bool) {
	name, ok := pb.names[pb.Canonical(number)]
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

func commonSuffix(a, b string) int {
	n := 0
	for i, j := len(a)-1, len(b)-1; i >= 0 && j >= 0 && a[i] == b[j]; i, j = i-1, j-1 {
		n++
	}
	return n
}
