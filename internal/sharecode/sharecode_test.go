package sharecode

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare code", "AB12", "AB12"},
		{"bare code with spaces", "  AB12  ", "AB12"},
		{"full link", "https://promptdeck.app/s/AB12", "AB12"},
		{"link with trailing slash", "https://promptdeck.app/s/AB12/", "AB12"},
		{"relative link", "/s/XYZW2345", "XYZW2345"},
		{"link without share segment is literal", "https://promptdeck.app/f/AB12", "https://promptdeck.app/f/AB12"},
		{"share segment with bad code is literal", "/s/not-a-code!", "/s/not-a-code!"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.raw); got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := New()
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		if len(code) != length {
			t.Fatalf("New() length = %d, want %d", len(code), length)
		}
		for _, c := range code {
			if !strings.ContainsRune(alphabet, c) {
				t.Fatalf("New() produced %q with character outside alphabet", code)
			}
		}
		// Round-trips through its own link format.
		if got := Parse("/s/" + code); got != code {
			t.Fatalf("Parse round trip = %q, want %q", got, code)
		}
		seen[code] = true
	}
	if len(seen) < 90 {
		t.Errorf("only %d distinct codes in 100 draws", len(seen))
	}
}
