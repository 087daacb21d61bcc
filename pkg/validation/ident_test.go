package validation

import (
	"strings"
	"testing"
)

func TestValidateTraceID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		// Valid ids
		{"canonical uuid", "3b241101-e2bb-4255-8caf-4136c566a962", false},
		{"all zeros", "00000000-0000-0000-0000-000000000000", false},

		// Invalid ids - key injection attempts
		{"empty", "", true},
		{"uppercase", "3B241101-E2BB-4255-8CAF-4136C566A962", true},
		{"missing hyphens", "3b241101e2bb42558caf4136c566a962", true},
		{"prefix scan pollution", "trace:3b241101-e2bb-4255-8caf-4136c566a962", true},
		{"newline injection", "3b241101-e2bb-4255-8caf-4136c566a962\nlog", true},
		{"too short", "3b241101-e2bb", true},
		{"trailing garbage", "3b241101-e2bb-4255-8caf-4136c566a962x", true},
		{"path traversal", "../3b241101-e2bb-4255-8caf-4136c566a962", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTraceID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTraceID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		// Valid ids
		{"simple", "session-1", false},
		{"single char", "a", false},
		{"uuid shaped", "3b241101-e2bb-4255-8caf-4136c566a962", false},
		{"dotted", "svc.worker.7", false},
		{"underscored", "run_42", false},
		{"max length", strings.Repeat("a", 64), false},

		// Invalid ids - injection attempts
		{"empty", "", true},
		{"leading dot", ".hidden", true},
		{"leading hyphen", "-flag", true},
		{"spaces", "se ssion", true},
		{"newline injection", "session\nERROR forged line", true},
		{"colon", "session:1", true},
		{"slash", "a/b", true},
		{"too long", strings.Repeat("a", 65), true},
		{"unicode", "sessiön", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSessionID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeSessionID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		want    string
		wantErr bool
	}{
		{"passthrough", "session-1", "session-1", false},
		{"spaces trimmed", "  session-1  ", "session-1", false},
		{"invalid rejected", "bad id!", "", true},
		{"empty rejected", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeSessionID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("SanitizeSessionID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("SanitizeSessionID(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}
