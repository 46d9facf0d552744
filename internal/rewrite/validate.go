// internal/rewrite/validate.go
package rewrite

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// IllegalChars may not appear anywhere in a client name rule.
const IllegalChars = `"/\[]:;|=,+*?<>`

var (
	// ErrNoRule means no rule is configured, or the configured rule is empty.
	ErrNoRule = errors.New("no client name rewrite rule supplied")
	// ErrIllegalChars means the rule contains a character from IllegalChars.
	ErrIllegalChars = errors.New("client name rule contains illegal characters")
)

// Validate reports whether rule can be used for rewriting. The returned error
// wraps ErrNoRule or ErrIllegalChars.
func Validate(rule string) error {
	if rule == "" {
		return ErrNoRule
	}
	if i := strings.IndexAny(rule, IllegalChars); i >= 0 {
		r, _ := utf8.DecodeRuneInString(rule[i:])
		return fmt.Errorf("rule %q has %q at offset %d: %w", rule, r, i, ErrIllegalChars)
	}
	return nil
}
