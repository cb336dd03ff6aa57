// Package tcp accepts newline-terminated log records over TCP and hands each
// one to the streaming engine.
package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/logtmpl/internal/logger"
	"github.com/kailas-cloud/logtmpl/internal/metrics"
	"github.com/kailas-cloud/logtmpl/internal/usecase/stream"
)

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = errors.New("tcp: server closed")

// DefaultMaxLineBytes caps a record when no limit is configured.
const DefaultMaxLineBytes = 64 * 1024

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Processor consumes one record.
type Processor interface {
	ProcessMessage(ctx context.Context, raw string) (stream.Outcome, error)
}

// Server is a line-oriented TCP listener with one goroutine per connection.
type Server struct {
	addr         string
	maxLineBytes int
	proc         Processor
	logger       *zap.Logger

	mu     sync.Mutex
	ln     net.Listener
	closed bool
	conns  sync.WaitGroup
}

// NewServer creates a TCP ingest server.
func NewServer(addr string, maxLineBytes int, proc Processor, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}
	return &Server{addr: addr, maxLineBytes: maxLineBytes, proc: proc, logger: logger}
}

// ListenAndServe binds the configured address and serves until Shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until Shutdown. Connection handlers keep
// the values of ctx but not its cancellation: a connection ends at EOF only.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.mu.Unlock()

	base := context.WithoutCancel(ctx)
	s.logger.Info("tcp listener started", zap.String("addr", ln.Addr().String()))

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			if !isTemporary(err) {
				return fmt.Errorf("accept: %w", err)
			}
			delay = nextAcceptDelay(delay)
			s.logger.Warn("accept failed, retrying", zap.Error(err), zap.Duration("delay", delay))
			time.Sleep(delay)
			continue
		}
		delay = 0

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handle(base, conn)
		}()
	}
}

// Addr returns the bound address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown closes the listener and waits for open connections to reach EOF
// or for ctx to end, whichever comes first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("close listener", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connections still open: %w", ctx.Err())
	}
}

// nextAcceptDelay doubles from 5ms up to one second, as net/http does.
func nextAcceptDelay(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptDelay
	}
	return min(d*2, maxAcceptDelay)
}

// isTemporary reports errors such as EMFILE or ECONNABORTED that leave the
// listener usable.
func isTemporary(err error) bool {
	var te interface{ Temporary() bool }
	return errors.As(err, &te) && te.Temporary()
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	metrics.ConnectionsActive.Inc()
	defer metrics.ConnectionsActive.Dec()

	ctx = logger.ContextWithLogger(ctx, s.logger.With(
		zap.String("conn_id", uuid.NewString()),
		zap.String("remote_addr", conn.RemoteAddr().String()),
	))
	log := logger.FromContext(ctx)
	log.Debug("connection opened")

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, min(4096, s.maxLineBytes)), s.maxLineBytes)

	records := 0
	for sc.Scan() {
		records++
		out, err := s.proc.ProcessMessage(ctx, sc.Text())
		if err != nil {
			log.Error("process record",
				zap.Error(err),
				zap.String("action", string(out.Action)),
				zap.Int64("template_id", out.TemplateID),
			)
		}
	}

	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			log.Warn("record exceeds max size, closing connection", zap.Int("max_line_bytes", s.maxLineBytes))
		} else {
			log.Warn("read failed", zap.Error(err))
		}
	}
	log.Debug("connection closed", zap.Int("records", records))
}
