package lang

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"es", "es", true},
		{"Spanish", "es", true},
		{"ESPAÑOL", "es", true},
		{"fr", "fr", true},
		{"français", "fr", true},
		{"es-MX", "es", true},
		{"pt_BR", "pt", true},
		{" en ", "en", true},
		{"", "", false},
		{"klingon", "", false},
	}
	for _, tc := range cases {
		got, ok := Normalize(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Fatalf("Normalize(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName(""); got != "English" {
		t.Fatalf("DisplayName(\"\") = %q, want English", got)
	}
	if got := DisplayName("es"); got != "Spanish" {
		t.Fatalf("DisplayName(es) = %q, want Spanish", got)
	}
	if got := DisplayName("Esperanto"); got != "Esperanto" {
		t.Fatalf("DisplayName(Esperanto) = %q, want passthrough", got)
	}
}
