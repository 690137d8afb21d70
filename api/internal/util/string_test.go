package util

import "testing"

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"001", "1"},
		{"1", "1"},
		{"1.0", "1"},
		{"1102345678.000", "1102345678"},
		{" 0011023456 ", "11023456"},
		{"1.5", "1.5"}, // дробная часть не нулевая — не трогаем
		{"0", "0"},
		{"000", "0"},
		{"", "0"},
	}
	for _, tt := range tests {
		if got := NormalizeID(tt.in); got != tt.want {
			t.Errorf("NormalizeID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  P.Perez@UTPL.edu.ec "); got != "p.perez@utpl.edu.ec" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Cedula", "CEDULA"},
		{"TITULACIÓN QUE\nOBTIENE", "TITULACIÓN QUE OBTIENE"},
		{"  correo   del\r\nevaluador ", "CORREO DEL EVALUADOR"},
	}
	for _, tt := range tests {
		if got := NormalizeHeader(tt.in); got != tt.want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
