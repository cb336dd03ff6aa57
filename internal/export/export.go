// Package export reads and writes the batch result as a YAML document.
package export

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/logtmpl/internal/domain/cluster"
	domtpl "github.com/kailas-cloud/logtmpl/internal/domain/template"
)

// Document is the top-level artifact.
type Document struct {
	Templates []Template `yaml:"templates"`
}

// Template is one mined template with its metadata.
type Template struct {
	ID       int     `yaml:"id"`
	Goodness float64 `yaml:"goodness"`
	AvgLen   float64 `yaml:"avg_len"`
	Lines    int     `yaml:"lines"`
	Template string  `yaml:"template"`
	Tokens   []Token `yaml:"tokens"`
}

// Token is one template position.
type Token struct {
	Value string `yaml:"value"`
	Type  string `yaml:"type"`
}

// FromClusters builds a document from compressed clusters, keeping their ids.
func FromClusters(clusters []*cluster.Cluster) Document {
	doc := Document{Templates: make([]Template, 0, len(clusters))}
	for _, c := range clusters {
		line := c.Template()
		toks := make([]Token, len(line))
		for i, t := range line {
			toks[i] = Token{Value: t.Text, Type: t.Kind.String()}
		}
		doc.Templates = append(doc.Templates, Template{
			ID:       c.ID(),
			Goodness: c.Goodness(),
			AvgLen:   c.AvgLen(),
			Lines:    c.TotalLines(),
			Template: line.String(),
			Tokens:   toks,
		})
	}
	return doc
}

// Write encodes doc as YAML.
func Write(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode templates: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush templates: %w", err)
	}
	return nil
}

// Read decodes a document written by Write.
func Read(r io.Reader) (Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, nil
		}
		return Document{}, fmt.Errorf("decode templates: %w", err)
	}
	return doc, nil
}

// Domain converts an artifact entry into a streaming template without an id.
func (t Template) Domain() (domtpl.Template, error) {
	tpl, err := domtpl.Reconstruct(0, t.Template, t.Goodness, t.AvgLen)
	if err != nil {
		return domtpl.Template{}, fmt.Errorf("template %d: %w", t.ID, err)
	}
	return tpl, nil
}
