// Package template holds the condensed cluster summary used in streaming mode.
// A Template keeps no raw lines, only its token pattern and running scores.
package template

import (
	"fmt"

	"github.com/kailas-cloud/logtmpl/internal/domain"
	"github.com/kailas-cloud/logtmpl/internal/domain/token"
)

// Template is a live cluster summary.
type Template struct {
	id       int64
	tokens   token.Line
	goodness float64
	avgLen   float64
}

// New creates a template from its first line: goodness 1 and the line length
// as average length.
func New(line token.Line) Template {
	return Template{
		tokens:   line.Clone(),
		goodness: 1,
		avgLen:   float64(len(line)),
	}
}

// Reconstruct restores a persisted template from its text form.
func Reconstruct(id int64, text string, goodness, avgLen float64) (Template, error) {
	line := token.Parse(text)
	if len(line) == 0 {
		return Template{}, fmt.Errorf("template %d has no tokens: %w", id, domain.ErrInvalidTemplate)
	}
	return Template{id: id, tokens: line, goodness: goodness, avgLen: avgLen}, nil
}

// Match reports whether line fits the template: * takes any token, +d takes a
// number, +n accepts whatever follows, literals must be equal. Without a +n
// the lengths must agree.
func (t *Template) Match(line token.Line) bool {
	for i := 0; i < len(line) && i < len(t.tokens); i++ {
		tt := t.tokens[i]
		switch {
		case tt.Text == token.Star.Text:
		case tt.Text == token.Digit.Text && line[i].Kind == token.Number:
		case tt.IsTail():
			return true
		case !tt.Same(line[i]):
			return false
		}
	}
	return len(line) == len(t.tokens)
}

// ProjectedGoodness returns the goodness the template would have after
// joining line, without changing it. Positions count when the texts are equal
// or a +d meets a number; counting stops at +n.
func (t *Template) ProjectedGoodness(line token.Line) float64 {
	newAvg := (t.avgLen + float64(len(line))) / 2
	if newAvg == 0 {
		return 0
	}

	common := 0
	for i := 0; i < len(line) && i < len(t.tokens); i++ {
		tt := t.tokens[i]
		if tt.IsTail() {
			break
		}
		if tt.Same(line[i]) || (tt.Text == token.Digit.Text && line[i].Kind == token.Number) {
			common++
		}
	}
	return float64(common) / newAvg
}

// Join folds line into the template. avgLen becomes the pairwise average of
// the old value and the line length, not a mean over every joined line.
func (t *Template) Join(line token.Line, goodness float64) {
	t.goodness = goodness
	t.avgLen = (t.avgLen + float64(len(line))) / 2
	t.tokens = token.Merge(t.tokens, line)
}

// ID returns the store id, 0 until persisted.
func (t *Template) ID() int64 { return t.id }

// SetID assigns the store id.
func (t *Template) SetID(id int64) { t.id = id }

// Tokens returns the template pattern. Callers must not modify it.
func (t *Template) Tokens() token.Line { return t.tokens }

// Text returns the space-separated pattern.
func (t *Template) Text() string { return t.tokens.String() }

// Goodness returns the last goodness assigned.
func (t *Template) Goodness() float64 { return t.goodness }

// AvgLen returns the running average line length.
func (t *Template) AvgLen() float64 { return t.avgLen }

// Clone returns a deep copy.
func (t *Template) Clone() Template {
	c := *t
	c.tokens = t.tokens.Clone()
	return c
}
