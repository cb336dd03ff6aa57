package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/logtmpl/internal/domain"
	"github.com/kailas-cloud/logtmpl/internal/domain/cluster"
	"github.com/kailas-cloud/logtmpl/internal/domain/token"
)

func compressed(t *testing.T, id int, raw ...string) *cluster.Cluster {
	t.Helper()
	lines := make([]token.Line, len(raw))
	for i, r := range raw {
		lines[i] = token.Parse(r)
	}
	c := cluster.New(lines, nil)
	c.CompressToTemplate()
	c.SetID(id)
	return c
}

func TestWrite_Shape(t *testing.T) {
	doc := FromClusters([]*cluster.Cluster{
		compressed(t, 1, "port 22 open", "port 23 open"),
	})

	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"templates:",
		"id: 1",
		"goodness: 0.6666666666666666",
		"avg_len: 3",
		"lines: 2",
		"template: port +d open",
		"value: +d",
		"type: number",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("document lacks %q:\n%s", want, out)
		}
	}

	back, err := Read(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(back.Templates[0].Tokens) != 3 || back.Templates[0].Tokens[1].Type != "number" {
		t.Errorf("unexpected tokens: %+v", back.Templates[0].Tokens)
	}
}

func TestRead_FeedsDomain(t *testing.T) {
	input := `templates:
  - id: 3
    goodness: 0.5
    avg_len: 4.5
    lines: 10
    template: user * logged in +n
`
	doc, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Templates) != 1 {
		t.Fatalf("expected 1 template, got %d", len(doc.Templates))
	}

	tpl, err := doc.Templates[0].Domain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tpl.Text() != "user * logged in +n" || tpl.Goodness() != 0.5 || tpl.AvgLen() != 4.5 {
		t.Errorf("unexpected template: %q %v %v", tpl.Text(), tpl.Goodness(), tpl.AvgLen())
	}
}

func TestRead_Empty(t *testing.T) {
	doc, err := Read(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Templates) != 0 {
		t.Errorf("expected no templates, got %d", len(doc.Templates))
	}
}

func TestDomain_EmptyTemplate(t *testing.T) {
	_, err := Template{ID: 9}.Domain()
	if !errors.Is(err, domain.ErrInvalidTemplate) {
		t.Fatalf("expected ErrInvalidTemplate, got %v", err)
	}
}
