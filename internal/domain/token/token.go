// Package token splits log records into classified tokens and interns them.
package token

import "strings"

// Kind classifies a token.
type Kind int

const (
	// Word is a purely alphabetic token.
	Word Kind = iota
	// Hybrid mixes letters, digits or punctuation; its text is normalized.
	Hybrid
	// Number is a decimal, signed, fractional or 0x-prefixed hex number.
	Number
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case Word:
		return "word"
	case Hybrid:
		return "hybrid"
	case Number:
		return "number"
	default:
		return "unknown"
	}
}

// ParseKind converts a kind name back to a Kind. Unknown names map to Word.
func ParseKind(s string) Kind {
	switch s {
	case "number":
		return Number
	case "hybrid":
		return Hybrid
	default:
		return Word
	}
}

// Token is an immutable classified piece of a log line. Two tokens are the
// same token when their texts are equal; Kind does not take part in equality.
type Token struct {
	Text string
	Kind Kind
}

// Wildcard markers used by templates.
var (
	// Star stands for a variable word.
	Star = Token{Text: "*", Kind: Word}
	// Digit stands for a variable number.
	Digit = Token{Text: "+d", Kind: Number}
	// Tail marks that lines diverge in length from this position on.
	Tail = Token{Text: "+n", Kind: Word}
)

// Same reports whether t and o carry the same text.
func (t Token) Same(o Token) bool { return t.Text == o.Text }

// IsWildcard reports whether t is one of the reserved markers.
func (t Token) IsWildcard() bool {
	return t.Text == Star.Text || t.Text == Digit.Text || t.Text == Tail.Text
}

// IsTail reports whether t is the +n marker.
func (t Token) IsTail() bool { return t.Text == Tail.Text }

// Line is one tokenized record.
type Line []Token

// String joins token texts with single spaces.
func (l Line) String() string {
	parts := make([]string, len(l))
	for i, t := range l {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

// Clone returns a copy of l that shares no backing array with it.
func (l Line) Clone() Line {
	if l == nil {
		return nil
	}
	out := make(Line, len(l))
	copy(out, l)
	return out
}

// Parse rebuilds a line from its space-separated text form. Wildcard markers
// get their fixed kinds; every other piece is classified again.
func Parse(text string) Line {
	fields := strings.Fields(text)
	line := make(Line, 0, len(fields))
	for _, f := range fields {
		switch f {
		case Star.Text:
			line = append(line, Star)
		case Digit.Text:
			line = append(line, Digit)
		case Tail.Text:
			line = append(line, Tail)
		default:
			kind, _ := Classify(f)
			line = append(line, Token{Text: f, Kind: kind})
		}
	}
	return line
}
