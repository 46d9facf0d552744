// internal/template/template.go
package template

import (
	"iter"
	"unicode/utf8"
)

// Marker introduces a directive: the rune following it names the value.
const Marker = '$'

// Kind classifies a scanned token.
type Kind int

const (
	// Literal is a run of text copied as-is.
	Literal Kind = iota
	// Directive is Marker followed by a single letter.
	Directive
	// Dangling is a Marker at the very end of the template.
	Dangling
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Directive:
		return "directive"
	case Dangling:
		return "dangling"
	default:
		return "unknown"
	}
}

// Token is one piece of a template. Text is the exact source text, so
// concatenating every Text reproduces the template.
type Token struct {
	Kind   Kind
	Text   string
	Letter rune // set for Directive only
}

// Tokens scans tmpl left to right. The sequence is lazy and can be ranged
// over any number of times.
func Tokens(tmpl string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		start := 0
		i := 0
		for i < len(tmpl) {
			if tmpl[i] != Marker {
				i++
				continue
			}
			if start < i {
				if !yield(Token{Kind: Literal, Text: tmpl[start:i]}) {
					return
				}
			}
			if i+1 >= len(tmpl) {
				yield(Token{Kind: Dangling, Text: tmpl[i:]})
				return
			}
			r, size := utf8.DecodeRuneInString(tmpl[i+1:])
			end := i + 1 + size
			if !yield(Token{Kind: Directive, Text: tmpl[i:end], Letter: r}) {
				return
			}
			i = end
			start = end
		}
		if start < len(tmpl) {
			yield(Token{Kind: Literal, Text: tmpl[start:]})
		}
	}
}

// Letters returns the directive letters used in tmpl, in order of first use.
func Letters(tmpl string) []rune {
	var letters []rune
	seen := make(map[rune]bool)
	for tok := range Tokens(tmpl) {
		if tok.Kind != Directive || seen[tok.Letter] {
			continue
		}
		seen[tok.Letter] = true
		letters = append(letters, tok.Letter)
	}
	return letters
}
