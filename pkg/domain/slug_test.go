package domain

import (
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "spaces become underscores",
			raw:  "Acme Inc",
			want: "acme_inc",
		},
		{
			name: "surrounding whitespace trimmed",
			raw:  "  My Co  ",
			want: "my_co",
		},
		{
			name: "whitespace run collapsed",
			raw:  "My \t\n Co 2",
			want: "my_co_2",
		},
		{
			name: "tab separates words",
			raw:  "My\tCo",
			want: "my_co",
		},
		{
			name: "newline and carriage return separate words",
			raw:  "My\r\nCo",
			want: "my_co",
		},
		{
			name: "information separators treated as whitespace",
			raw:  "\x1eA\x1cB\x1fC\x1d",
			want: "a_b_c",
		},
		{
			name: "no-break space",
			raw:  "Acme\u00a0Inc",
			want: "acme_inc",
		},
		{
			name: "punctuation stripped",
			raw:  "Acme, Inc.",
			want: "acme_inc",
		},
		{
			name: "hyphen stripped",
			raw:  "north-east",
			want: "northeast",
		},
		{
			name: "non-ascii letters stripped",
			raw:  "Café Zürich",
			want: "caf_zrich",
		},
		{
			name: "only symbols",
			raw:  "!!!",
			want: "",
		},
		{
			name: "empty",
			raw:  "",
			want: "",
		},
		{
			name: "existing underscores kept",
			raw:  "already_normal_1",
			want: "already_normal_1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.raw); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeName_Idempotent(t *testing.T) {
	inputs := []string{"Acme Inc", "  My   Co 2 ", "Ünïcödé Name", "a-b c_d", "", "___", "X"}
	for _, in := range inputs {
		once := NormalizeName(in)
		twice := NormalizeName(once)
		if once != twice {
			t.Errorf("NormalizeName not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeName_CaseAndWhitespaceInsensitive(t *testing.T) {
	if NormalizeName("Acme Inc") != NormalizeName("acme   inc ") {
		t.Error("names differing only in case and whitespace should share a slug")
	}
}

func TestIsNameSpace(t *testing.T) {
	for _, r := range []rune{' ', '\t', '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x1f, 0x85, 0xa0, 0x3000} {
		if !IsNameSpace(r) {
			t.Errorf("IsNameSpace(%U) = false, want true", r)
		}
	}
	for _, r := range []rune{'a', '_', 0x00, 0x07, 0x1b, 0x7f} {
		if IsNameSpace(r) {
			t.Errorf("IsNameSpace(%U) = true, want false", r)
		}
	}
}

func TestCollectionName(t *testing.T) {
	if got := CollectionName("acme_inc"); got != "org_acme_inc" {
		t.Errorf("CollectionName = %q, want %q", got, "org_acme_inc")
	}
}

func TestIsTenantCollection(t *testing.T) {
	tests := map[string]bool{
		"org_acme":      true,
		"org_":          false,
		"organizations": false,
		"admins":        false,
	}
	for name, want := range tests {
		if got := IsTenantCollection(name); got != want {
			t.Errorf("IsTenantCollection(%q) = %v, want %v", name, got, want)
		}
	}
}
