// Package cluster implements the batch clustering engine: a set of raw lines
// with per-column statistics that is split recursively until its lines are
// homogeneous, then compressed to a single template line.
package cluster

import (
	"sort"

	"github.com/kailas-cloud/logtmpl/internal/domain"
	"github.com/kailas-cloud/logtmpl/internal/domain/token"
)

// fillThreshold is the share of lines that must carry a non-number token in a
// column before the column may be split on.
const fillThreshold = 0.5

// Cluster holds lines plus the statistics derived from them. A cluster owns
// its lines; Split moves them into the children and Join consumes the other
// cluster. Not safe for concurrent use.
type Cluster struct {
	id   int
	dict *token.Dictionary

	lines     []token.Line
	templated bool

	values       []map[string]struct{}
	filled       []int
	filledNonNum []int
	maxLineLen   int
	goodness     float64

	totalLines  int
	totalTokens int
}

// New creates a cluster that takes ownership of lines and computes its
// statistics.
func New(lines []token.Line, dict *token.Dictionary) *Cluster {
	if dict == nil {
		dict = token.NewDictionary()
	}
	c := &Cluster{dict: dict, lines: lines, totalLines: len(lines)}
	for _, l := range lines {
		c.totalTokens += len(l)
	}
	c.CalcStatistics()
	return c
}

// CalcStatistics recomputes the per-column statistics and the goodness.
// Goodness is the number of columns that are filled in every line with one
// single value, divided by the average line length. An empty cluster has
// goodness 1.
//
// For a compressed cluster the column statistics describe the template line
// while goodness keeps describing the raw lines the template summarizes.
func (c *Cluster) CalcStatistics() {
	c.maxLineLen = 0
	for _, l := range c.lines {
		c.maxLineLen = max(c.maxLineLen, len(l))
	}

	c.values = make([]map[string]struct{}, c.maxLineLen)
	c.filled = make([]int, c.maxLineLen)
	c.filledNonNum = make([]int, c.maxLineLen)
	for i := range c.values {
		c.values[i] = make(map[string]struct{})
	}

	sumLen := 0
	for _, l := range c.lines {
		sumLen += len(l)
		for col, t := range l {
			c.values[col][t.Text] = struct{}{}
			c.filled[col]++
			if t.Kind != token.Number {
				c.filledNonNum[col]++
			}
		}
	}

	if c.templated {
		return
	}
	if len(c.lines) == 0 || c.maxLineLen == 0 {
		c.goodness = 1
		return
	}

	common := 0
	for col := range c.values {
		if len(c.values[col]) == 1 && c.filled[col] == len(c.lines) {
			common++
		}
	}
	avgLen := float64(sumLen) / float64(len(c.lines))
	c.goodness = float64(common) / avgLen
}

// SplitColumn returns the column to split on. A column qualifies when it holds
// more than one distinct value and more than half of the lines carry a
// non-number token there; among those the column with the highest ratio of
// non-number fills to distinct values wins, the earliest one on ties.
func (c *Cluster) SplitColumn() (int, bool) {
	if len(c.lines) == 0 {
		return -1, false
	}

	n := float64(len(c.lines))
	best, pos := -1.0, -1
	for col := 0; col < c.maxLineLen; col++ {
		distinct := len(c.values[col])
		if distinct <= 1 {
			continue
		}
		nonNum := float64(c.filledNonNum[col])
		if nonNum/n <= fillThreshold {
			continue
		}
		if score := nonNum / float64(distinct); score > best {
			best, pos = score, col
		}
	}
	return pos, pos >= 0
}

// Split partitions the lines by their token at the split column: numbers go
// to a +d bucket, lines too short to reach the column go to a +n bucket and
// everything else groups by token text. Children come back ordered by bucket
// text. The lines move into the children and c is left empty.
func (c *Cluster) Split() ([]*Cluster, error) {
	col, ok := c.SplitColumn()
	if !ok {
		return nil, domain.ErrNotSplittable
	}

	buckets := make(map[string][]token.Line)
	for _, l := range c.lines {
		key := token.Tail.Text
		if col < len(l) {
			key = l[col].Text
			if l[col].Kind == token.Number {
				key = token.Digit.Text
			}
		}
		buckets[key] = append(buckets[key], l)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	children := make([]*Cluster, 0, len(keys))
	for _, k := range keys {
		children = append(children, New(buckets[k], c.dict))
	}

	c.lines = nil
	c.totalLines, c.totalTokens = 0, 0
	c.CalcStatistics()
	return children, nil
}

// Compare scores how close the first lines of two clusters are: the number of
// equal tokens at equal positions divided by the average of the two lengths.
// Meant for compressed clusters, where the first line is the template.
func (c *Cluster) Compare(other *Cluster) float64 {
	if len(c.lines) == 0 || len(other.lines) == 0 {
		return 0
	}
	a, b := c.lines[0], other.lines[0]
	avg := float64(len(a)+len(b)) / 2
	if avg == 0 {
		return 0
	}

	common := 0
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i].Same(b[i]) {
			common++
		}
	}
	return float64(common) / avg
}

// Template builds the line describing every line of the cluster. A column
// missing from some line ends the template with +n; a column with several
// values becomes +d when all of them are numbers and * otherwise; a column
// with a single value keeps it.
func (c *Cluster) Template() token.Line {
	if len(c.lines) == 0 {
		return nil
	}

	first := c.lines[0]
	tpl := make(token.Line, 0, c.maxLineLen)
	for col := 0; col < c.maxLineLen; col++ {
		switch {
		case c.filled[col] != len(c.lines):
			return append(tpl, c.wildcard(token.Tail))
		case len(c.values[col]) > 1 && c.filledNonNum[col] == 0:
			tpl = append(tpl, c.wildcard(token.Digit))
		case len(c.values[col]) > 1:
			tpl = append(tpl, c.wildcard(token.Star))
		default:
			tpl = append(tpl, first[col])
		}
	}
	return tpl
}

// CompressToTemplate replaces the lines with their template. The raw lines
// are discarded for good.
func (c *Cluster) CompressToTemplate() {
	if c.templated {
		return
	}
	tpl := c.Template()
	c.templated = true
	if tpl == nil {
		c.lines = nil
	} else {
		c.lines = []token.Line{tpl}
	}
	c.CalcStatistics()
}

// Join merges other into c. Both are compressed first if needed; the merged
// template follows token.Merge. other is left empty.
func (c *Cluster) Join(other *Cluster) {
	c.CompressToTemplate()
	other.CompressToTemplate()

	switch {
	case len(other.lines) == 0:
	case len(c.lines) == 0:
		c.lines = other.lines
	default:
		c.lines = []token.Line{token.Merge(c.lines[0], other.lines[0])}
	}
	c.totalLines += other.totalLines
	c.totalTokens += other.totalTokens
	c.CalcStatistics()

	other.lines = nil
	other.totalLines, other.totalTokens = 0, 0
	other.CalcStatistics()
}

func (c *Cluster) wildcard(w token.Token) token.Token {
	return c.dict.Intern(w.Text, w.Kind)
}

// ID returns the cluster id (0 until assigned).
func (c *Cluster) ID() int { return c.id }

// SetID assigns the cluster id.
func (c *Cluster) SetID(id int) { c.id = id }

// Lines returns the cluster lines. Callers must not modify them.
func (c *Cluster) Lines() []token.Line { return c.lines }

// LineCount returns the number of lines currently held.
func (c *Cluster) LineCount() int { return len(c.lines) }

// TotalLines returns the number of raw lines the cluster summarizes.
func (c *Cluster) TotalLines() int { return c.totalLines }

// MaxLineLen returns the length of the longest line.
func (c *Cluster) MaxLineLen() int { return c.maxLineLen }

// Goodness returns the last computed goodness.
func (c *Cluster) Goodness() float64 { return c.goodness }

// IsTemplate reports whether the cluster was compressed.
func (c *Cluster) IsTemplate() bool { return c.templated }

// Dictionary returns the dictionary shared by clusters of one input.
func (c *Cluster) Dictionary() *token.Dictionary { return c.dict }

// AvgLen returns the mean length in tokens of the raw lines summarized.
func (c *Cluster) AvgLen() float64 {
	if c.totalLines == 0 {
		return 0
	}
	return float64(c.totalTokens) / float64(c.totalLines)
}
