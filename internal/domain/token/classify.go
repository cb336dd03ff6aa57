package token

import "unicode"

// Classify decides the kind of a raw token and returns the text to keep for it.
// Word and Number tokens keep their text; Hybrid tokens are reduced to their
// first run of letters, which may be empty when the token has no letters.
func Classify(raw string) (Kind, string) {
	r := []rune(raw)
	if len(r) == 0 {
		return Word, ""
	}

	kind := Word
	if unicode.IsDigit(r[0]) || r[0] == '-' || r[0] == '+' {
		kind = Number
	}
	if !isAlnum(r[0]) && kind != Number {
		return Hybrid, normalizeHybrid(r)
	}

	i := 1
	hex := false
	if len(r) > 1 && r[0] == '0' && r[1] == 'x' {
		kind = Number
		hex = true
		i = 2
	}

	separatorSeen := false
	for ; i < len(r); i++ {
		c := r[i]
		if i == len(r)-1 && c == '\n' {
			return kind, string(r[:i])
		}

		switch {
		case hex:
			if !isHexDigit(c) {
				return Hybrid, normalizeHybrid(r)
			}
		case kind == Number && unicode.IsLetter(c):
			return Hybrid, normalizeHybrid(r)
		case kind == Word && unicode.IsDigit(c):
			return Hybrid, normalizeHybrid(r)
		case !isAlnum(c):
			if kind == Number && !separatorSeen && (c == '.' || c == ',') {
				separatorSeen = true
				continue
			}
			return Hybrid, normalizeHybrid(r)
		}
	}

	return kind, raw
}

// normalizeHybrid keeps the first contiguous run of letters. A run that reaches
// the end of the token is kept whole.
func normalizeHybrid(r []rune) string {
	start := -1
	for i, c := range r {
		if start < 0 {
			if unicode.IsLetter(c) {
				start = i
			}
			continue
		}
		if !unicode.IsLetter(c) {
			return string(r[start:i])
		}
	}
	if start < 0 {
		return ""
	}
	return string(r[start:])
}

func isAlnum(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c)
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
