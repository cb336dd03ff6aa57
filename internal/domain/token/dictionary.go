package token

import "sync"

// Dictionary interns token texts so that every line derived from the same
// input shares one copy of each distinct string. The wildcard markers are
// always present. Safe for concurrent use.
type Dictionary struct {
	mu     sync.RWMutex
	tokens map[string]Token
}

// NewDictionary returns a dictionary seeded with the wildcard markers.
func NewDictionary() *Dictionary {
	d := &Dictionary{tokens: make(map[string]Token, 1024)}
	for _, w := range []Token{Star, Digit, Tail} {
		d.tokens[w.Text] = w
	}
	return d
}

// Intern returns the stored token for text, inserting it with kind when it is
// not known yet. Lookup is by text only, so the first kind recorded wins.
func (d *Dictionary) Intern(text string, kind Kind) Token {
	d.mu.RLock()
	t, ok := d.tokens[text]
	d.mu.RUnlock()
	if ok {
		return t
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.tokens[text]; ok {
		return t
	}
	t = Token{Text: text, Kind: kind}
	d.tokens[text] = t
	return t
}

// Lookup returns the stored token for text.
func (d *Dictionary) Lookup(text string) (Token, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tokens[text]
	return t, ok
}

// Len returns the number of distinct tokens, wildcards included.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.tokens)
}
