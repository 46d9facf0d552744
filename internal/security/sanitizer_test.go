// internal/security/sanitizer_test.go
package security

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeValue_StripControlChars(t *testing.T) {
	input := "alice\r\nlevel=ERROR msg=forged\x00\x1b[31m"
	result := SanitizeValue(input)

	for _, r := range result {
		if r < 0x20 || r == 0x7f {
			t.Errorf("result contains control character 0x%02x", r)
		}
	}
	if !strings.HasPrefix(result, "alicelevel=ERROR") {
		t.Errorf("readable content should be preserved: %q", result)
	}
}

func TestSanitizeValue_StripsTabs(t *testing.T) {
	if got := SanitizeValue("a\tb"); got != "ab" {
		t.Errorf("SanitizeValue() = %q, want %q", got, "ab")
	}
}

func TestSanitizeValue_Truncates(t *testing.T) {
	result := SanitizeValue(strings.Repeat("x", 2000))
	if len(result) != MaxLogValueLength {
		t.Errorf("result length = %d, want %d", len(result), MaxLogValueLength)
	}
}

func TestSanitizeValue_TruncatesOnCharBoundary(t *testing.T) {
	result := SanitizeValue(strings.Repeat("é", 400)) // 800 bytes
	if !utf8.ValidString(result) {
		t.Fatal("truncation split a character")
	}
	if len(result) > MaxLogValueLength {
		t.Errorf("result length = %d, want <= %d", len(result), MaxLogValueLength)
	}
}

func TestSanitizeValue_Unchanged(t *testing.T) {
	for _, input := range []string{"", "short string", `CORP\alice`, "$U-$P"} {
		if got := SanitizeValue(input); got != input {
			t.Errorf("SanitizeValue(%q) = %q", input, got)
		}
	}
}
