package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/logtmpl/internal/config"
	"github.com/kailas-cloud/logtmpl/internal/db"
	dbRedis "github.com/kailas-cloud/logtmpl/internal/db/redis"
	"github.com/kailas-cloud/logtmpl/internal/domain/token"
	logpkg "github.com/kailas-cloud/logtmpl/internal/logger"
	"github.com/kailas-cloud/logtmpl/internal/metrics"
	templaterepo "github.com/kailas-cloud/logtmpl/internal/repository/template"
	chiTransport "github.com/kailas-cloud/logtmpl/internal/transport/chi"
	"github.com/kailas-cloud/logtmpl/internal/transport/tcp"
	healthuc "github.com/kailas-cloud/logtmpl/internal/usecase/health"
	streamuc "github.com/kailas-cloud/logtmpl/internal/usecase/stream"
	"github.com/kailas-cloud/logtmpl/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting logtmpl server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("listen_addr", cfg.Stream.ListenAddr),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := mustStore(ctx, cfg.Database, logger)
	defer store.Close()

	metrics.RegisterEngineMetrics()

	tok, err := token.NewTokenizer(cfg.Tokenizer.HeaderLenOrDefault(), cfg.Tokenizer.Separator, nil)
	if err != nil {
		logger.Fatal("Invalid tokenizer config", zap.Error(err))
	}

	repo := templaterepo.New(store, cfg.Database.KeyPrefix, cfg.Stream.MaxMessagesPerTemplate)
	engine := streamuc.New(repo, tok, cfg.Stream.MergeThreshold)

	loadCtx := logpkg.ContextWithLogger(ctx, logger)
	if err := engine.Load(loadCtx); err != nil {
		logger.Fatal("Failed to restore templates", zap.Error(err))
	}
	logger.Info("Templates restored", zap.Int("templates", engine.Len()))

	healthSvc := healthuc.New(store, engine)
	admin := chiTransport.NewServer(healthSvc, engine, repo, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      admin.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}
	go func() {
		logger.Info("Starting admin HTTP server", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	tcpSrv := tcp.NewServer(cfg.Stream.ListenAddr, cfg.Stream.MaxLineBytes, engine, logger)
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting record listener", zap.String("addr", cfg.Stream.ListenAddr))
		serveErr <- tcpSrv.ListenAndServe(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serveErr:
		if !errors.Is(err, tcp.ErrServerClosed) {
			logger.Fatal("Record listener error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := tcpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Open connections did not finish", zap.Error(err))
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during HTTP shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully", zap.Int("templates", engine.Len()))
}

func mustStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) db.Store {
	if cfg.Driver != "redis" {
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Driver))
	}
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")
	return store
}
