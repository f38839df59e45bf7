package validation

import (
	"testing"

	"takeoutmerge/internal/errors"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhoneNumber(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		wantErr bool
	}{
		{"international", "+15551234567", false},
		{"national", "5551234567", false},
		{"short code", "611", false},
		{"unknown sentinel", "+00000000000", false},
		{"empty", "", true},
		{"too short", "+12", true},
		{"too long", "+123456789012345678901", true},
		{"letters", "John Doe", true},
		{"punctuation", "+1 555 123", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePhoneNumber(tt.phone)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizePhoneNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"+1 (555) 123-4567", "+15551234567"},
		{"tel:+15551234567", "+15551234567"},
		{" 555.123.4567 ", "5551234567"},
		{"1+555", "1555"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizePhoneNumber(tt.input), tt.input)
	}
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "15551234567", Digits("+15551234567"))
	assert.Equal(t, "", Digits("+"))
}
