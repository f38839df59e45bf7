package phonebook

import (
	"fmt"
	"io"
	"os"
	"strings"

	"takeoutmerge/internal/security"

	"github.com/emersion/go-vcard"
	"golang.org/x/text/unicode/norm"
)

// LoadVCF reads every card of a VCF address book
func LoadVCF(path string) ([]Contact, error) {
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid contacts path: %w", err)
	}

	f, err := os.Open(path) // #nosec G304 - Path validated by security.ValidateFilePath above
	if err != nil {
		return nil, fmt.Errorf("failed to open contacts file: %w", err)
	}
	defer f.Close()

	return ReadVCF(f)
}

// ReadVCF decodes contacts from a VCF stream. Cards without a name or
// without a telephone number are skipped.
func ReadVCF(r io.Reader) ([]Contact, error) {
	dec := vcard.NewDecoder(r)

	var contacts []Contact
	for {
		card, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode contact card: %w", err)
		}

		name := cardName(card)
		if name == "" {
			continue
		}

		numbers := card.Values(vcard.FieldTelephone)
		if len(numbers) == 0 {
			continue
		}

		contacts = append(contacts, Contact{Name: name, PhoneNumbers: numbers})
	}

	return contacts, nil
}

func cardName(card vcard.Card) string {
	name := strings.TrimSpace(card.PreferredValue(vcard.FieldFormattedName))
	if name == "" {
		if n := card.Name(); n != nil {
			name = strings.TrimSpace(strings.Join(strings.Fields(n.GivenName+" "+n.FamilyName), " "))
		}
	}
	return norm.NFC.String(name)
}
