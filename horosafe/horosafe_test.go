package horosafe

import (
	"errors"
	"strings"
	"testing"
)

func TestSafePath(t *testing.T) {
	tests := []struct {
		base, input string
		wantErr     bool
	}{
		{"/data/reports", "lease.json", false},
		{"/data/reports", "../etc/passwd", true},
		{"/data/reports", "a/../b.json", true},
		{"/data/reports", "rpt_123.json", false},
	}
	for _, tt := range tests {
		_, err := SafePath(tt.base, tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("SafePath(%q, %q) error=%v, wantErr=%v", tt.base, tt.input, err, tt.wantErr)
		}
	}
}

func TestSafeFileName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"lease.pdf", "lease.pdf"},
		{"../../etc/passwd", "passwd"},
		{"C:\\docs\\contrat été.docx", "contrat__t_.docx"},
		{"pasted text", "pasted_text"},
		{"..", "document"},
		{"", "document"},
	}
	for _, tt := range tests {
		if got := SafeFileName(tt.in); got != tt.want {
			t.Errorf("SafeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		url          string
		allowPrivate bool
		wantErr      bool
	}{
		{"https://api.anthropic.com", false, false},
		{"ftp://example.com", false, true},
		{"http://127.0.0.1:11434", false, true},
		{"http://localhost:11434", false, true},
		{"http://localhost:11434", true, false},
		{"http://10.0.0.8/v1", false, true},
		{"https://", false, true},
	}
	for _, tt := range tests {
		err := ValidateEndpoint(tt.url, tt.allowPrivate)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateEndpoint(%q, %v) error=%v, wantErr=%v", tt.url, tt.allowPrivate, err, tt.wantErr)
		}
	}
}

func TestLimitedReadAll(t *testing.T) {
	data := strings.Repeat("x", 100)
	got, err := LimitedReadAll(strings.NewReader(data), 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 100 {
		t.Fatalf("expected 100 bytes, got %d", len(got))
	}

	_, err = LimitedReadAll(strings.NewReader(data), 50)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}
