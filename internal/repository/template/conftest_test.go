package template

import (
	"context"
	"testing"

	"github.com/kailas-cloud/logtmpl/internal/db"
	domtpl "github.com/kailas-cloud/logtmpl/internal/domain/template"
)

const testPrefix = "logtmpl:"

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	lrangeFn       func(ctx context.Context, key string, start, stop int64) ([]string, error)
	llenFn         func(ctx context.Context, key string) (int64, error)
	incrFn         func(ctx context.Context, key string) (int64, error)
	execFn         func(ctx context.Context, cmds []db.TxCommand) error
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return nil, nil
}

func (m *mockStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if m.lrangeFn != nil {
		return m.lrangeFn(ctx, key, start, stop)
	}
	return nil, nil
}

func (m *mockStore) LLen(ctx context.Context, key string) (int64, error) {
	if m.llenFn != nil {
		return m.llenFn(ctx, key)
	}
	return 0, nil
}

func (m *mockStore) Incr(ctx context.Context, key string) (int64, error) {
	if m.incrFn != nil {
		return m.incrFn(ctx, key)
	}
	return 1, nil
}

func (m *mockStore) Exec(ctx context.Context, cmds []db.TxCommand) error {
	if m.execFn != nil {
		return m.execFn(ctx, cmds)
	}
	return nil
}

func newTestRepo(t *testing.T, maxMessages int) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, testPrefix, maxMessages), ms
}

func testTemplate(t *testing.T, id int64, text string) domtpl.Template {
	t.Helper()
	tpl, err := domtpl.Reconstruct(id, text, 0.75, 4)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	return tpl
}
