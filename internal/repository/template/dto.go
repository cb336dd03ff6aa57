package template

import (
	"fmt"
	"strconv"

	domtpl "github.com/kailas-cloud/logtmpl/internal/domain/template"
)

const (
	fieldID       = "id"
	fieldTemplate = "template"
	fieldGoodness = "goodness"
	fieldAvgLen   = "avg_len"
)

// templateToHash converts a domain Template to a map for HSET.
func templateToHash(t domtpl.Template) map[string]string {
	return map[string]string{
		fieldID:       strconv.FormatInt(t.ID(), 10),
		fieldTemplate: t.Text(),
		fieldGoodness: strconv.FormatFloat(t.Goodness(), 'g', -1, 64),
		fieldAvgLen:   strconv.FormatFloat(t.AvgLen(), 'g', -1, 64),
	}
}

// templateFromHash hydrates a domain Template from an HGETALL result map.
func templateFromHash(m map[string]string) (domtpl.Template, error) {
	id, err := strconv.ParseInt(m[fieldID], 10, 64)
	if err != nil {
		return domtpl.Template{}, fmt.Errorf("invalid id: %w", err)
	}
	goodness, err := strconv.ParseFloat(m[fieldGoodness], 64)
	if err != nil {
		return domtpl.Template{}, fmt.Errorf("invalid goodness: %w", err)
	}
	avgLen, err := strconv.ParseFloat(m[fieldAvgLen], 64)
	if err != nil {
		return domtpl.Template{}, fmt.Errorf("invalid avg_len: %w", err)
	}
	return domtpl.Reconstruct(id, m[fieldTemplate], goodness, avgLen)
}
