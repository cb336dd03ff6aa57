// Package batch mines templates from a whole log file: split the records into
// homogeneous clusters, compress every cluster to a template, then merge
// near-duplicate templates.
package batch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/logtmpl/internal/domain/cluster"
	domtpl "github.com/kailas-cloud/logtmpl/internal/domain/template"
	"github.com/kailas-cloud/logtmpl/internal/domain/token"
	"github.com/kailas-cloud/logtmpl/internal/metrics"
)

// DefaultMaxLineBytes caps a single input record.
const DefaultMaxLineBytes = 1 << 20

// Result is the outcome of one mining run.
type Result struct {
	Clusters []*cluster.Cluster
	Records  int // records read
	Skipped  int // records with nothing left after the header
}

// Service runs the batch pipeline.
type Service struct {
	tok            *token.Tokenizer
	pool           *Pool
	mergeThreshold float64
	maxLineBytes   int
	logger         *zap.Logger
}

// New creates a batch service.
func New(tok *token.Tokenizer, pool *Pool, mergeThreshold float64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tok: tok, pool: pool,
		mergeThreshold: mergeThreshold,
		maxLineBytes:   DefaultMaxLineBytes,
		logger:         logger,
	}
}

// WithMaxLineBytes configures the longest accepted input record.
func (s *Service) WithMaxLineBytes(n int) *Service {
	if n > 0 {
		s.maxLineBytes = n
	}
	return s
}

// Mine reads every record from r and returns the merged templates with ids
// 1..n in output order.
func (s *Service) Mine(ctx context.Context, r io.Reader) (Result, error) {
	lines, res, err := s.read(r)
	if err != nil {
		return Result{}, err
	}
	if len(lines) == 0 {
		return res, nil
	}

	s.logger.Info("records loaded",
		zap.Int("records", res.Records),
		zap.Int("skipped", res.Skipped),
		zap.Int("dictionary", s.tok.Dictionary().Len()),
	)

	root := cluster.New(lines, s.tok.Dictionary())
	clusters, err := s.pool.Run(ctx, root)
	if err != nil {
		return Result{}, fmt.Errorf("split clusters: %w", err)
	}
	s.logger.Info("split done", zap.Int("clusters", len(clusters)))

	for _, c := range clusters {
		c.CompressToTemplate()
	}
	// worker scheduling decides output order; fix it before merging
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Template().String() < clusters[j].Template().String()
	})

	res.Clusters = s.Merge(clusters)
	for i, c := range res.Clusters {
		c.SetID(i + 1)
	}
	s.logger.Info("merge done", zap.Int("templates", len(res.Clusters)))
	return res, nil
}

func (s *Service) read(r io.Reader) ([]token.Line, Result, error) {
	var (
		res   Result
		lines []token.Line
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(64*1024, s.maxLineBytes)), s.maxLineBytes)
	for sc.Scan() {
		res.Records++
		_, line := s.tok.Tokenize(sc.Text())
		if len(line) == 0 {
			res.Skipped++
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, Result{}, fmt.Errorf("read input: %w", err)
	}
	return lines, res, nil
}

// Merge joins every pair of compressed clusters whose similarity reaches the
// merge threshold. Each surviving cluster absorbs all later matches in turn,
// so the pass is quadratic in the number of clusters.
func (s *Service) Merge(clusters []*cluster.Cluster) []*cluster.Cluster {
	alive := make([]bool, len(clusters))
	for i := range alive {
		alive[i] = true
	}

	for i, outer := range clusters {
		if !alive[i] {
			continue
		}
		for j, inner := range clusters {
			if i == j || !alive[j] {
				continue
			}
			if outer.Compare(inner) >= s.mergeThreshold {
				outer.Join(inner)
				alive[j] = false
				metrics.MergesTotal.Inc()
			}
		}
	}

	out := make([]*cluster.Cluster, 0, len(clusters))
	for i, c := range clusters {
		if alive[i] {
			out = append(out, c)
		}
	}
	return out
}

// Seed stores every cluster as a streaming template without a raw message.
// It stops at the first failure and reports how many were stored.
func (s *Service) Seed(ctx context.Context, seeder TemplateSeeder, clusters []*cluster.Cluster) (int, error) {
	ts := make([]domtpl.Template, 0, len(clusters))
	for _, c := range clusters {
		t, err := domtpl.Reconstruct(0, c.Template().String(), c.Goodness(), c.AvgLen())
		if err != nil {
			return 0, fmt.Errorf("cluster %d: %w", c.ID(), err)
		}
		ts = append(ts, t)
	}
	return s.SeedTemplates(ctx, seeder, ts)
}

// SeedTemplates stores templates in order, as Seed does for clusters.
func (s *Service) SeedTemplates(ctx context.Context, seeder TemplateSeeder, ts []domtpl.Template) (int, error) {
	for i, t := range ts {
		id, err := seeder.Insert(ctx, t, "")
		if err != nil {
			return i, fmt.Errorf("seed template %d %q: %w", i+1, t.Text(), err)
		}
		s.logger.Debug("template seeded", zap.Int64("id", id), zap.String("template", t.Text()))
	}
	s.logger.Info("seed done", zap.Int("templates", len(ts)))
	return len(ts), nil
}
