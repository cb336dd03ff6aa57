// Package stream is the incremental template engine: every record either
// matches a live template, widens the closest one, or starts a new one.
package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	domtpl "github.com/kailas-cloud/logtmpl/internal/domain/template"
	"github.com/kailas-cloud/logtmpl/internal/domain/token"
	"github.com/kailas-cloud/logtmpl/internal/logger"
	"github.com/kailas-cloud/logtmpl/internal/metrics"
)

// Action tells what ProcessMessage did with a record.
type Action string

// Actions.
const (
	Matched Action = "matched"
	Joined  Action = "joined"
	Created Action = "created"
	Skipped Action = "skipped"
)

// Outcome describes one processed record.
type Outcome struct {
	TemplateID int64
	Action     Action
	Goodness   float64
}

// Service holds the live templates. All template state is guarded by one
// mutex held across the scan, the decision, the mutation and the store write.
type Service struct {
	store          TemplateStore
	tok            *token.Tokenizer
	mergeThreshold float64

	mu        sync.Mutex
	templates []domtpl.Template
	loaded    bool
}

// New creates a streaming engine. It turns interning off on tok: the engine
// runs for the life of the process and templates own their tokens.
func New(store TemplateStore, tok *token.Tokenizer, mergeThreshold float64) *Service {
	return &Service{store: store, tok: tok.WithoutInterning(), mergeThreshold: mergeThreshold}
}

// Load replaces the in-memory templates with the stored ones, keeping their
// stored order.
func (s *Service) Load(ctx context.Context) error {
	ts, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates = ts
	s.loaded = true
	metrics.TemplatesLive.Set(float64(len(ts)))
	return nil
}

// ProcessMessage tokenizes raw and assigns it to a template. A store failure
// is returned after the in-memory decision: a failed insert leaves the new
// template out of memory, a failed update keeps the widened template in
// memory.
func (s *Service) ProcessMessage(ctx context.Context, raw string) (Outcome, error) {
	msg, line := s.tok.Tokenize(raw)
	if len(line) == 0 {
		metrics.MessagesTotal.WithLabelValues(string(Skipped)).Inc()
		return Outcome{Action: Skipped}, nil
	}

	start := time.Now()
	defer func() { metrics.ProcessDuration.Observe(time.Since(start).Seconds()) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	best, bestIdx := -1.0, -1
	for i := range s.templates {
		t := &s.templates[i]
		if t.Match(line) {
			return s.matched(ctx, t, msg)
		}
		if g := t.ProjectedGoodness(line); g > best {
			best, bestIdx = g, i
		}
	}

	if bestIdx >= 0 && best >= s.mergeThreshold {
		return s.joined(ctx, &s.templates[bestIdx], line, msg, best)
	}
	return s.created(ctx, line, msg)
}

func (s *Service) matched(ctx context.Context, t *domtpl.Template, msg string) (Outcome, error) {
	metrics.MessagesTotal.WithLabelValues(string(Matched)).Inc()
	out := Outcome{TemplateID: t.ID(), Action: Matched, Goodness: t.Goodness()}
	if err := s.store.AppendMessage(ctx, t.ID(), msg); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("append").Inc()
		return out, fmt.Errorf("append message: %w", err)
	}
	return out, nil
}

func (s *Service) joined(
	ctx context.Context, t *domtpl.Template, line token.Line, msg string, goodness float64,
) (Outcome, error) {
	before := t.Text()
	t.Join(line, goodness)
	metrics.MessagesTotal.WithLabelValues(string(Joined)).Inc()

	logger.FromContext(ctx).Debug("template widened",
		zap.Int64("template_id", t.ID()),
		zap.String("from", before),
		zap.String("to", t.Text()),
		zap.Float64("goodness", goodness),
	)

	out := Outcome{TemplateID: t.ID(), Action: Joined, Goodness: goodness}
	if err := s.store.Update(ctx, *t, msg); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("update").Inc()
		return out, fmt.Errorf("update template %d: %w", t.ID(), err)
	}
	return out, nil
}

func (s *Service) created(ctx context.Context, line token.Line, msg string) (Outcome, error) {
	t := domtpl.New(line)
	id, err := s.store.Insert(ctx, t, msg)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("insert").Inc()
		return Outcome{Action: Created, Goodness: t.Goodness()}, fmt.Errorf("insert template: %w", err)
	}
	t.SetID(id)
	s.templates = append(s.templates, t)
	metrics.MessagesTotal.WithLabelValues(string(Created)).Inc()
	metrics.TemplatesLive.Set(float64(len(s.templates)))

	logger.FromContext(ctx).Debug("template created",
		zap.Int64("template_id", id),
		zap.String("template", t.Text()),
	)
	return Outcome{TemplateID: id, Action: Created, Goodness: t.Goodness()}, nil
}

// Snapshot returns copies of the live templates in scan order.
func (s *Service) Snapshot() []domtpl.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domtpl.Template, len(s.templates))
	for i := range s.templates {
		out[i] = s.templates[i].Clone()
	}
	return out
}

// Len returns the number of live templates.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.templates)
}

// Loaded reports whether Load has completed.
func (s *Service) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}
