package token

import "testing"

func TestClassify_Kinds(t *testing.T) {
	tests := []struct {
		raw  string
		want Kind
	}{
		{"WordTrial", Word},
		{"1234567890", Number},
		{"-1234567890", Number},
		{"3.141592654", Number},
		{"3,141592654", Number},
		{"0x1234567890ABCDEF", Number},
		{"0xabcdef1234567890", Number},
		{"0x123fg", Hybrid},
		{"#ThisIsHybrid123", Hybrid},
		{"ThisIs&Hybrid123", Hybrid},
		{"ThisIsHybrid123!", Hybrid},
		{"123xc456", Hybrid},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, _ := Classify(tc.raw)
			if got != tc.want {
				t.Errorf("Classify(%q) kind = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestClassify_HybridNormalization(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"#ThisIsHybrid123", "ThisIsHybrid"},
		{"ThisIs&Hybrid123", "ThisIs"},
		{"ThisIsHybrid123!", "ThisIsHybrid"},
		{"123xc456", "xc"},
		{"0x123fg", "x"},
		{"[error]", "error"},
		{"#tail", "tail"},
		{"#123", ""},
		{"*", ""},
	}
	for _, tc := range tests {
		kind, got := Classify(tc.raw)
		if kind != Hybrid {
			t.Errorf("Classify(%q) kind = %v, want hybrid", tc.raw, kind)
		}
		if got != tc.want {
			t.Errorf("Classify(%q) text = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestClassify_KeepsTextForWordsAndNumbers(t *testing.T) {
	for _, raw := range []string{"connection", "42", "-7", "1.5", "0xFF"} {
		_, got := Classify(raw)
		if got != raw {
			t.Errorf("Classify(%q) text = %q, want unchanged", raw, got)
		}
	}
}

func TestClassify_EdgeCases(t *testing.T) {
	tests := []struct {
		raw      string
		wantKind Kind
		wantText string
	}{
		{"", Word, ""},
		{"0", Number, "0"},
		{"0x", Number, "0x"},
		{"-", Number, "-"},
		{"1.2.3", Hybrid, ""},
		{"1,5.0", Hybrid, ""},
		{"42\n", Number, "42"},
		{"héllo", Word, "héllo"},
		{"ab1", Hybrid, "ab"},
	}
	for _, tc := range tests {
		kind, text := Classify(tc.raw)
		if kind != tc.wantKind || text != tc.wantText {
			t.Errorf("Classify(%q) = (%v, %q), want (%v, %q)", tc.raw, kind, text, tc.wantKind, tc.wantText)
		}
	}
}

func TestKind_StringRoundTrip(t *testing.T) {
	for _, k := range []Kind{Word, Hybrid, Number} {
		if got := ParseKind(k.String()); got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}
	if got := ParseKind("garbage"); got != Word {
		t.Errorf("ParseKind(garbage) = %v, want word", got)
	}
}
