package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Quiero la CAMISA   Azul ", "quiero la camisa azul"},
		{"¿Mañana a las 3?", "¿manana a las 3?"},
		{"Gorra Negra", "gorra negro"},
		{"gorra negra, por favor", "gorra negro, por favor"},
		{"Pequeña y Rosada", "pequeno y rosado"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Fatalf("Normalize(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestGenderedPairsCollapseToSameForm(t *testing.T) {
	if Normalize("camiseta blanca") != Normalize("camiseta blanco") {
		t.Fatalf("expected feminine and masculine forms to normalize equally")
	}
}

func TestContainsBounded(t *testing.T) {
	tests := []struct {
		text, phrase string
		want         bool
	}{
		{"si, dale", "si", true},
		{"¿si?", "si", true},
		{"casi lo tengo", "si", false},
		{"dale!", "dale", true},
		{"vale la pena", "dale", false},
		{"ok", "ok", true},
		{"bookstore", "ok", false},
		{"quiero agendar ya", "agendar", true},
		{"", "si", false},
		{"si", "", false},
	}
	for _, tt := range tests {
		if got := ContainsBounded(tt.text, tt.phrase); got != tt.want {
			t.Fatalf("ContainsBounded(%q, %q): expected %v, got %v", tt.text, tt.phrase, tt.want, got)
		}
	}
}
