package locale

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "en"},
		{"zh", "zh"},
		{"fr", Fallback},
		{"", Fallback},
		{"EN", Fallback},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Validate(tt.in); got != tt.want {
				t.Errorf("Validate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestT_FallbackLocale(t *testing.T) {
	en := T("en", KeyNoIssues)
	got := T("de", KeyNoIssues)
	if got != en {
		t.Errorf("unknown locale should fall back to English, got %q", got)
	}
}

func TestT_UnknownKeyReturnsKey(t *testing.T) {
	if got := T("en", "security.nope"); got != "security.nope" {
		t.Errorf("unknown key should echo the key, got %q", got)
	}
}

func TestT_Formatting(t *testing.T) {
	got := T("en", KeyHardTriggerIssue, "Root filesystem deletion", "install.sh", 3, "rm -rf targeting the root filesystem")
	if !strings.Contains(got, "install.sh") || !strings.Contains(got, "line 3") {
		t.Errorf("formatted message missing fields: %q", got)
	}
}

// Every key present in the fallback table must exist in every other
// locale so no language silently drops a message.
func TestCatalogsComplete(t *testing.T) {
	for code, table := range messages {
		if code == Fallback {
			continue
		}
		for key := range messages[Fallback] {
			if _, ok := table[key]; !ok {
				t.Errorf("locale %s missing key %s", code, key)
			}
		}
		for key := range table {
			if _, ok := messages[Fallback][key]; !ok {
				t.Errorf("locale %s has extra key %s", code, key)
			}
		}
	}
}
