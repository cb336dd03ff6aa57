package batch

import (
	"context"

	domtpl "github.com/kailas-cloud/logtmpl/internal/domain/template"
)

// TemplateSeeder stores mined templates so a streaming server can start from
// them.
type TemplateSeeder interface {
	Insert(ctx context.Context, t domtpl.Template, rawMsg string) (int64, error)
}
