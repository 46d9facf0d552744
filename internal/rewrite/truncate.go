// internal/rewrite/truncate.go
package rewrite

import "unicode/utf8"

// MaxClientNameLength is the longest client name, in characters, a rewrite
// may produce.
const MaxClientNameLength = 20

// Truncate keeps the first MaxClientNameLength characters of s.
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxClientNameLength {
		return s
	}
	return string([]rune(s)[:MaxClientNameLength])
}
