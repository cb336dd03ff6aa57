// Package template persists streaming templates and their raw message logs.
package template

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/logtmpl/internal/db"
	"github.com/kailas-cloud/logtmpl/internal/domain"
	domtpl "github.com/kailas-cloud/logtmpl/internal/domain/template"
)

// store is the consumer interface for templates (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LLen(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
	Exec(ctx context.Context, cmds []db.TxCommand) error
}

// Repo implements usecase/stream.TemplateStore.
type Repo struct {
	store       store
	prefix      string
	maxMessages int64
}

// New creates a template repository. maxMessages caps each template's message
// log; 0 keeps everything.
func New(s store, prefix string, maxMessages int) *Repo {
	return &Repo{store: s, prefix: prefix, maxMessages: int64(maxMessages)}
}

// LoadAll returns every stored template in insertion order.
func (r *Repo) LoadAll(ctx context.Context) ([]domtpl.Template, error) {
	ids, err := r.store.LRange(ctx, r.idsKey(), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("lrange template ids: %w", err)
	}
	if len(ids) == 0 {
		return []domtpl.Template{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.prefix + "template:" + id
	}

	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi templates: %w", err)
	}

	out := make([]domtpl.Template, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue
		}
		t, err := templateFromHash(m)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", keys[i], err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Get returns one template by id.
func (r *Repo) Get(ctx context.Context, id int64) (domtpl.Template, error) {
	m, err := r.store.HGetAll(ctx, r.templateKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domtpl.Template{}, domain.ErrNotFound
		}
		return domtpl.Template{}, fmt.Errorf("hgetall template %d: %w", id, err)
	}
	return templateFromHash(m)
}

// Insert allocates an id, then writes the template, its id list entry and
// the first raw message in one transaction. An empty rawMsg writes no
// message entry.
func (r *Repo) Insert(ctx context.Context, t domtpl.Template, rawMsg string) (int64, error) {
	id, err := r.store.Incr(ctx, r.seqKey())
	if err != nil {
		return 0, fmt.Errorf("allocate template id: %w", err)
	}
	t.SetID(id)

	cmds := []db.TxCommand{
		db.HSetCmd(r.templateKey(id), templateToHash(t)),
		db.RPushCmd(r.idsKey(), strconv.FormatInt(id, 10)),
	}
	cmds = append(cmds, r.messageCmds(id, rawMsg)...)

	if err := r.store.Exec(ctx, cmds); err != nil {
		return 0, fmt.Errorf("insert template %d: %w", id, err)
	}
	return id, nil
}

// Update rewrites the template record and appends rawMsg in one transaction.
func (r *Repo) Update(ctx context.Context, t domtpl.Template, rawMsg string) error {
	if t.ID() == 0 {
		return fmt.Errorf("update template: %w", domain.ErrInvalidTemplate)
	}
	cmds := []db.TxCommand{db.HSetCmd(r.templateKey(t.ID()), templateToHash(t))}
	cmds = append(cmds, r.messageCmds(t.ID(), rawMsg)...)

	if err := r.store.Exec(ctx, cmds); err != nil {
		return fmt.Errorf("update template %d: %w", t.ID(), err)
	}
	return nil
}

// AppendMessage records rawMsg against an existing template.
func (r *Repo) AppendMessage(ctx context.Context, id int64, rawMsg string) error {
	cmds := r.messageCmds(id, rawMsg)
	if len(cmds) == 0 {
		return nil
	}
	if err := r.store.Exec(ctx, cmds); err != nil {
		return fmt.Errorf("append message to template %d: %w", id, err)
	}
	return nil
}

// Messages returns up to limit most recent raw messages of a template, oldest
// first, plus the total stored count. limit <= 0 returns all of them. An
// unknown template yields domain.ErrNotFound.
func (r *Repo) Messages(ctx context.Context, id int64, limit int) ([]string, int64, error) {
	key := r.messagesKey(id)
	total, err := r.store.LLen(ctx, key)
	if err != nil {
		return nil, 0, fmt.Errorf("llen messages %d: %w", id, err)
	}
	if total == 0 {
		// seeded templates have no messages
		if _, err := r.Get(ctx, id); err != nil {
			return nil, 0, err
		}
		return []string{}, 0, nil
	}
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	msgs, err := r.store.LRange(ctx, key, start, -1)
	if err != nil {
		return nil, 0, fmt.Errorf("lrange messages %d: %w", id, err)
	}
	return msgs, total, nil
}

func (r *Repo) messageCmds(id int64, rawMsg string) []db.TxCommand {
	if rawMsg == "" {
		return nil
	}
	key := r.messagesKey(id)
	cmds := []db.TxCommand{db.RPushCmd(key, rawMsg)}
	if r.maxMessages > 0 {
		cmds = append(cmds, db.LTrimCmd(key, -r.maxMessages, -1))
	}
	return cmds
}

func (r *Repo) seqKey() string { return r.prefix + "template:seq" }
func (r *Repo) idsKey() string { return r.prefix + "template:ids" }

func (r *Repo) templateKey(id int64) string {
	return r.prefix + "template:" + strconv.FormatInt(id, 10)
}

func (r *Repo) messagesKey(id int64) string {
	return r.prefix + "messages:" + strconv.FormatInt(id, 10)
}
