package stream

import (
	"context"

	domtpl "github.com/kailas-cloud/logtmpl/internal/domain/template"
)

// TemplateStore persists templates and the raw messages assigned to them.
// Insert and Update write the template and its message in one transaction.
type TemplateStore interface {
	LoadAll(ctx context.Context) ([]domtpl.Template, error)
	Insert(ctx context.Context, t domtpl.Template, rawMsg string) (int64, error)
	Update(ctx context.Context, t domtpl.Template, rawMsg string) error
	AppendMessage(ctx context.Context, id int64, rawMsg string) error
}
