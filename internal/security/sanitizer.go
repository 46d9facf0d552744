// internal/security/sanitizer.go
package security

import "strings"

// MaxLogValueLength caps a single sanitized value.
const MaxLogValueLength = 512

// SanitizeValue prepares a caller-supplied string (identity names, header
// values, rules) for a log line:
// - strips control characters, including CR, LF and tab
// - truncates to MaxLogValueLength bytes without splitting a character
func SanitizeValue(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		if b.Len()+len(string(r)) > MaxLogValueLength {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}
