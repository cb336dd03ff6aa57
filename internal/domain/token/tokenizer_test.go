package token

import "testing"

func TestTokenize_DropsHeader(t *testing.T) {
	tok, err := NewTokenizer(4, "", nil)
	if err != nil {
		t.Fatalf("NewTokenizer: %v", err)
	}

	msg, line := tok.Tokenize("Oct 19 12:00:01 host sshd accepted key for root port 22\n")
	if msg != "sshd accepted key for root port 22" {
		t.Errorf("unexpected msg %q", msg)
	}
	if got := line.String(); got != "sshd accepted key for root port 22" {
		t.Errorf("unexpected line %q", got)
	}
	if line[len(line)-1].Kind != Number {
		t.Errorf("expected trailing number, got %v", line[len(line)-1].Kind)
	}
}

func TestTokenize_HeaderOnly(t *testing.T) {
	tok, _ := NewTokenizer(4, "", nil)
	msg, line := tok.Tokenize("a b c d")
	if msg != "" || len(line) != 0 {
		t.Errorf("expected empty result, got %q %v", msg, line)
	}
}

func TestTokenize_CustomSeparator(t *testing.T) {
	tok, err := NewTokenizer(0, `[\s=,]+`, nil)
	if err != nil {
		t.Fatalf("NewTokenizer: %v", err)
	}
	_, line := tok.Tokenize("user=alice,attempts=3")
	if got := line.String(); got != "user alice attempts 3" {
		t.Errorf("unexpected line %q", got)
	}
}

func TestTokenize_DropsEmptyHybrids(t *testing.T) {
	tok, _ := NewTokenizer(0, "", nil)
	_, line := tok.Tokenize("value -- #42 [ok]")
	if got := line.String(); got != "value ok" {
		t.Errorf("unexpected line %q", got)
	}
}

func TestTokenize_InternsIntoDictionary(t *testing.T) {
	dict := NewDictionary()
	tok, _ := NewTokenizer(0, "", dict)
	before := dict.Len()

	tok.Tokenize("alpha beta alpha")
	tok.Tokenize("beta gamma")

	if got := dict.Len() - before; got != 3 {
		t.Errorf("expected 3 new tokens, got %d", got)
	}
}

func TestTokenize_NormalizesUnicode(t *testing.T) {
	tok, _ := NewTokenizer(0, "", nil)
	_, a := tok.Tokenize("caf\u00e9")
	_, b := tok.Tokenize("cafe\u0301")
	if !a[0].Same(b[0]) {
		t.Errorf("expected NFC forms to match: %q vs %q", a[0].Text, b[0].Text)
	}
}

func TestNewTokenizer_InvalidSeparator(t *testing.T) {
	if _, err := NewTokenizer(0, "[", nil); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
	if _, err := NewTokenizer(-1, "", nil); err == nil {
		t.Fatal("expected error for negative header length")
	}
}

func TestTokenize_WithoutInterning(t *testing.T) {
	d := NewDictionary()
	tok, err := NewTokenizer(0, "", d)
	if err != nil {
		t.Fatalf("NewTokenizer: %v", err)
	}
	tok = tok.WithoutInterning()

	_, line := tok.Tokenize("accepted port 2201 from 0x1f")
	if got := line.String(); got != "accepted port 2201 from 0x1f" {
		t.Errorf("unexpected line %q", got)
	}
	if line[2].Kind != Number || line[4].Kind != Number {
		t.Errorf("expected numbers to stay classified, got %v %v", line[2].Kind, line[4].Kind)
	}
	if d.Len() != 3 {
		t.Errorf("expected only the wildcards in the dictionary, got %d entries", d.Len())
	}
	if tok.Dictionary() != nil {
		t.Error("expected no dictionary once interning is off")
	}
}
