package token

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultSeparator splits on runs of whitespace.
const DefaultSeparator = `[\s]+`

// Tokenizer turns raw records into lines. The header prefix (timestamp, host
// and similar syslog fields) is dropped before splitting on the separator.
type Tokenizer struct {
	headerLen int
	sep       *regexp.Regexp
	dict      *Dictionary
}

// NewTokenizer compiles the separator pattern. An empty pattern means
// DefaultSeparator.
func NewTokenizer(headerLen int, separator string, dict *Dictionary) (*Tokenizer, error) {
	if headerLen < 0 {
		return nil, fmt.Errorf("header length must be >= 0, got %d", headerLen)
	}
	if separator == "" {
		separator = DefaultSeparator
	}
	sep, err := regexp.Compile(separator)
	if err != nil {
		return nil, fmt.Errorf("compile separator %q: %w", separator, err)
	}
	if dict == nil {
		dict = NewDictionary()
	}
	return &Tokenizer{headerLen: headerLen, sep: sep, dict: dict}, nil
}

// WithoutInterning makes Tokenize build tokens by value instead of interning
// them. A long-running stream sees an unbounded set of ports, pids and ids,
// and templates keep their own tokens anyway.
func (t *Tokenizer) WithoutInterning() *Tokenizer {
	t.dict = nil
	return t
}

// Dictionary returns the dictionary tokens are interned into, or nil when
// interning is off.
func (t *Tokenizer) Dictionary() *Dictionary { return t.dict }

// Tokenize returns the record body without its header and the classified
// tokens of that body. Tokens that normalize to nothing are dropped, so line
// may be empty even when msg is not.
func (t *Tokenizer) Tokenize(raw string) (msg string, line Line) {
	raw = norm.NFC.String(strings.TrimRight(raw, "\r\n"))

	fields := strings.Fields(raw)
	if len(fields) <= t.headerLen {
		return "", nil
	}
	msg = strings.Join(fields[t.headerLen:], " ")

	pieces := t.sep.Split(msg, -1)
	line = make(Line, 0, len(pieces))
	for _, p := range pieces {
		if p == "" {
			continue
		}
		kind, text := Classify(p)
		if text == "" {
			continue
		}
		if t.dict == nil {
			line = append(line, Token{Text: text, Kind: kind})
			continue
		}
		line = append(line, t.dict.Intern(text, kind))
	}
	return msg, line
}
