package enrichment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	v := NewContactValidator(stubMX{missing: map[string]bool{"leer.de": true}}, nil, "DE", nil)
	tests := []struct {
		name    string
		email   string
		website string
		want    Verdict
	}{
		{"valid same site", "Max@Firma.de", "https://www.firma.de", Verdict{OK: true}},
		{"cross domain flagged", "max@gmail.com", "https://firma.de", Verdict{OK: true, DomainMismatch: true}},
		{"no website", "max@gmail.com", "", Verdict{OK: true}},
		{"generic", "kontakt@firma.de", "", Verdict{Reason: ReasonGeneric}},
		{"no mx", "max@leer.de", "", Verdict{Reason: ReasonNoMX}},
		{"invalid", "max@", "", Verdict{Reason: ReasonInvalid}},
		{"bad label", "max@-firma.de", "", Verdict{Reason: ReasonInvalid}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.ValidateEmail(context.Background(), tt.email, tt.website))
		})
	}
}

func TestIsMobile(t *testing.T) {
	de := NewContactValidator(nil, nil, "", nil)
	assert.True(t, de.IsMobile("+4915112345678"))
	assert.True(t, de.IsMobile("01711234567"))
	assert.True(t, de.IsMobile("00491711234567"))
	assert.False(t, de.IsMobile("0301234567"))
	assert.False(t, de.IsMobile("+49301234567"))

	at := NewContactValidator(nil, nil, "at", nil)
	assert.True(t, at.IsMobile("06641234567"))
}

func TestIsValidPhone(t *testing.T) {
	v := NewContactValidator(nil, nil, "DE", nil)
	assert.True(t, v.IsValidPhone("0301234567"))
	assert.True(t, v.IsValidPhone("+49891234567"))
	assert.False(t, v.IsValidPhone("12"))
	assert.False(t, v.IsValidPhone("+49 30 12"))
	assert.False(t, v.IsValidPhone("0301234"))
}
