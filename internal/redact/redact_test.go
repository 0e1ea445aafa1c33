package redact

import "testing"

func TestScrub(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"no pii", "Returns are due by 30 September.", "Returns are due by 30 September."},
		{"email", "Write to help.desk@registry.gov.uk for forms.", "Write to [REDACTED_EMAIL] for forms."},
		{"phone international", "Call +44 20 7946 0958 today", "Call [REDACTED_PHONE] today"},
		{"phone dashed", "Hotline 0800-123-4567.", "Hotline [REDACTED_PHONE]."},
		{"short number kept", "Section 12345 applies", "Section 12345 applies"},
		{"year kept", "From 2024 onwards", "From 2024 onwards"},
		{"both", "a@b.io or 555 123 4567", "[REDACTED_EMAIL] or [REDACTED_PHONE]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Scrub(tt.in); got != tt.want {
				t.Errorf("Scrub(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
