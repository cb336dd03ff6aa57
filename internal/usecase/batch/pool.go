package batch

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/logtmpl/internal/domain"
	"github.com/kailas-cloud/logtmpl/internal/domain/cluster"
	"github.com/kailas-cloud/logtmpl/internal/metrics"
)

// Pool splits clusters on a fixed set of workers until every cluster reaches
// the goodness limit or cannot be split further.
type Pool struct {
	workers int
	lim     float64
	logger  *zap.Logger
}

// NewPool creates a split pool. workers below 1 are raised to 1.
func NewPool(workers int, lim float64, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{workers: max(workers, 1), lim: lim, logger: logger}
}

// Run splits root and its descendants and returns the final clusters. The
// root is always split once, even if it already meets the limit. Run returns
// when no work is queued or in flight, or with ctx.Err() once ctx is done.
func (p *Pool) Run(ctx context.Context, root *cluster.Cluster) ([]*cluster.Cluster, error) {
	q := newWorkQueue()
	q.push(root)

	out := &outputSet{}
	stop := context.AfterFunc(ctx, q.close)
	defer stop()

	var wg sync.WaitGroup
	for i := range p.workers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.work(q, out, p.logger.With(zap.Int("worker", id)))
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out.items, nil
}

func (p *Pool) work(q *workQueue, out *outputSet, log *zap.Logger) {
	for {
		c, ok := q.pop()
		if !ok {
			return
		}

		children, err := c.Split()
		switch {
		case errors.Is(err, domain.ErrNotSplittable):
			log.Debug("cluster not splittable, emitting as is",
				zap.Int("lines", c.LineCount()),
				zap.Float64("goodness", c.Goodness()),
			)
			metrics.SplitsTotal.WithLabelValues("unsplittable").Inc()
			out.add(c)
		case err != nil:
			log.Warn("split failed, emitting as is", zap.Error(err))
			out.add(c)
		default:
			metrics.SplitsTotal.WithLabelValues("split").Inc()
			for _, child := range children {
				if child.Goodness() >= p.lim {
					out.add(child)
				} else {
					q.push(child)
				}
			}
		}

		q.done()
	}
}

// workQueue is a FIFO of clusters with a pending counter covering queued and
// in-flight items. It closes itself when pending drops to zero.
type workQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []*cluster.Cluster
	pending int
	closed  bool
}

func newWorkQueue() *workQueue {
	q := &workQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *workQueue) push(c *cluster.Cluster) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, c)
	q.pending++
	metrics.QueueDepth.Set(float64(len(q.items)))
	q.cond.Signal()
}

// pop blocks until an item is available or the queue is closed.
func (q *workQueue) pop() (*cluster.Cluster, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	c := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	metrics.QueueDepth.Set(float64(len(q.items)))
	return c, true
}

// done marks one popped item as finished. Children must be pushed first.
func (q *workQueue) done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending--
	if q.pending == 0 {
		q.closed = true
		q.cond.Broadcast()
	}
}

// close drops queued items and wakes every waiter.
func (q *workQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
	metrics.QueueDepth.Set(0)
	q.cond.Broadcast()
}

type outputSet struct {
	mu    sync.Mutex
	items []*cluster.Cluster
}

func (o *outputSet) add(c *cluster.Cluster) {
	o.mu.Lock()
	o.items = append(o.items, c)
	o.mu.Unlock()
	metrics.ClustersEmittedTotal.Inc()
}
