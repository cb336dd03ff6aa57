package token

// Merge combines two template lines position by position. Equal tokens pass
// through, differing numbers become +d and any other difference becomes *.
// A +n on either side ends the result with +n, and so does a length mismatch.
// Merge(a, b) and Merge(b, a) produce the same text.
func Merge(a, b Line) Line {
	n := min(len(a), len(b))
	out := make(Line, 0, max(len(a), len(b)))

	for i := 0; i < n; i++ {
		x, y := a[i], b[i]
		if x.IsTail() || y.IsTail() {
			return append(out, Tail)
		}
		switch {
		case x.Same(y):
			out = append(out, x)
		case x.Kind == Number && y.Kind == Number:
			out = append(out, Digit)
		default:
			out = append(out, Star)
		}
	}

	if len(a) != len(b) {
		out = append(out, Tail)
	}
	return out
}
