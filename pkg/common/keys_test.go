package common

import "testing"

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple name", "John Smith", "john-smith"},
		{"already normalized", "john-smith", "john-smith"},
		{"extra whitespace", "John  Smith", "john-smith"},
		{"mixed punctuation", "Acme, Inc.", "acme-inc"},
		{"leading and trailing junk", "  --Acme--  ", "acme"},
		{"digits kept", "Account 4711", "account-4711"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"literal null", "null", ""},
		{"literal null upper", "NULL", ""},
		{"non-ascii stripped", "Zoë Müller", "zo-m-ller"},
		{"only symbols", "$$$", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeKey(tt.in); got != tt.want {
				t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeKeyIsStable(t *testing.T) {
	in := "J. Smith & Sons, Ltd."
	first := NormalizeKey(in)
	for i := 0; i < 10; i++ {
		if got := NormalizeKey(in); got != first {
			t.Fatalf("NormalizeKey not deterministic: %q != %q", got, first)
		}
	}
	if got := NormalizeKey(first); got != first {
		t.Errorf("NormalizeKey not idempotent: %q -> %q", first, got)
	}
}

func TestNormalizeClaimText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"case folded", "John is the CFO", "john is the cfo"},
		{"whitespace collapsed", "  john   is\tthe \n CFO ", "john is the cfo"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeClaimText(tt.in); got != tt.want {
				t.Errorf("NormalizeClaimText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
