package auth

import (
	"errors"
	"testing"

	"github.com/tendant/simple-org-slim/pkg/domain"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain name",
			input: "Acme Inc",
			want:  "Acme Inc",
		},
		{
			name:  "trim spaces",
			input: "  Acme Inc  ",
			want:  "Acme Inc",
		},
		{
			name:  "control characters",
			input: "Acme\x00 Inc\n",
			want:  "Acme Inc",
		},
		{
			name:  "tab between words kept",
			input: "My\tCo",
			want:  "My\tCo",
		},
		{
			name:  "newline between words kept",
			input: " North\nWind \t",
			want:  "North\nWind",
		},
		{
			name:  "non-space controls dropped",
			input: "Bell\x07Co\x7f",
			want:  "BellCo",
		},
		{
			name:  "information separators trimmed",
			input: "\x1fAcme\x1c",
			want:  "Acme",
		},
		{
			name:  "unicode name",
			input: "Café García",
			want:  "Café García",
		},
		{
			name:  "markup is kept verbatim",
			input: "R&D <Labs>",
			want:  "R&D <Labs>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeName(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateStringLength(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   string
		min     int
		max     int
		wantErr bool
	}{
		{
			name:    "valid - within range",
			field:   "organization_name",
			value:   "acme",
			min:     3,
			max:     10,
			wantErr: false,
		},
		{
			name:    "too short",
			field:   "organization_name",
			value:   "ab",
			min:     3,
			max:     10,
			wantErr: true,
		},
		{
			name:    "too long",
			field:   "organization_name",
			value:   "verylongorganization",
			min:     3,
			max:     10,
			wantErr: true,
		},
		{
			name:    "no min requirement",
			field:   "organization_name",
			value:   "",
			min:     0,
			max:     10,
			wantErr: false,
		},
		{
			name:    "no max requirement",
			field:   "organization_name",
			value:   "verylongorganization",
			min:     3,
			max:     0,
			wantErr: false,
		},
		{
			name:    "multibyte counts as one character",
			field:   "organization_name",
			value:   "ééé",
			min:     1,
			max:     3,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStringLength(tt.field, tt.value, tt.min, tt.max)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStringLength() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrValidation) {
				t.Errorf("ValidateStringLength() error = %v, want ErrValidation", err)
			}
		})
	}
}
