package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/logtmpl/internal/config"
	"github.com/kailas-cloud/logtmpl/internal/db"
	dbRedis "github.com/kailas-cloud/logtmpl/internal/db/redis"
	"github.com/kailas-cloud/logtmpl/internal/domain/template"
	"github.com/kailas-cloud/logtmpl/internal/domain/token"
	"github.com/kailas-cloud/logtmpl/internal/export"
	logpkg "github.com/kailas-cloud/logtmpl/internal/logger"
	"github.com/kailas-cloud/logtmpl/internal/metrics"
	templaterepo "github.com/kailas-cloud/logtmpl/internal/repository/template"
	batchuc "github.com/kailas-cloud/logtmpl/internal/usecase/batch"
	"github.com/kailas-cloud/logtmpl/internal/version"
)

type options struct {
	in, out    string
	importPath string
	seed       bool
	workers    int
	header     int
	split      float64
	merge      float64
	showVer    bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("logtmpl-batch", flag.ContinueOnError)
	fs.StringVar(&o.in, "in", "-", "input log file, - for stdin")
	fs.StringVar(&o.out, "out", "-", "output YAML file, - for stdout")
	fs.StringVar(&o.importPath, "import", "", "store the templates of an existing YAML file instead of mining")
	fs.BoolVar(&o.seed, "seed", false, "store the mined templates for the streaming server")
	fs.IntVar(&o.workers, "workers", 0, "split workers (default from config)")
	fs.IntVar(&o.header, "header", -1, "leading header tokens to drop (default from config)")
	fs.Float64Var(&o.split, "st", 0, "split threshold (default from config)")
	fs.Float64Var(&o.merge, "mt", 0, "merge threshold (default from config)")
	fs.BoolVar(&o.showVer, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, fmt.Errorf("parse flags: %w", err)
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

// apply overrides cfg with the flags that were set, then validates it again.
func (o options) apply(cfg *config.Config) error {
	if o.workers > 0 {
		cfg.Batch.Workers = o.workers
	}
	if o.header >= 0 {
		h := o.header
		cfg.Tokenizer.HeaderLen = &h
	}
	if o.split != 0 {
		cfg.Batch.SplitThreshold = o.split
	}
	if o.merge != 0 {
		cfg.Batch.MergeThreshold = o.merge
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	return nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if opts.showVer {
		fmt.Println("logtmpl-batch", version.String())
		return
	}

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if err := opts.apply(&cfg); err != nil {
		panic("invalid options: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logpkg.ContextWithLogger(ctx, logger)

	metrics.RegisterEngineMetrics()

	tok, err := token.NewTokenizer(cfg.Tokenizer.HeaderLenOrDefault(), cfg.Tokenizer.Separator, nil)
	if err != nil {
		logger.Fatal("Invalid tokenizer config", zap.Error(err))
	}
	pool := batchuc.NewPool(cfg.Batch.Workers, cfg.Batch.SplitThreshold, logger)
	svc := batchuc.New(tok, pool, cfg.Batch.MergeThreshold, logger).
		WithMaxLineBytes(cfg.Batch.MaxLineBytes)

	if opts.importPath != "" {
		runImport(ctx, svc, cfg, opts.importPath, logger)
		return
	}

	logger.Info("Starting batch mining",
		zap.String("version", version.Version),
		zap.String("input", opts.in),
		zap.Int("workers", cfg.Batch.Workers),
		zap.Float64("split_threshold", cfg.Batch.SplitThreshold),
		zap.Float64("merge_threshold", cfg.Batch.MergeThreshold),
		zap.Int("header_len", cfg.Tokenizer.HeaderLenOrDefault()),
	)

	in, closeIn, err := openInput(opts.in)
	if err != nil {
		logger.Fatal("Cannot open input", zap.Error(err))
	}
	defer closeIn()

	start := time.Now()
	res, err := svc.Mine(ctx, in)
	if err != nil {
		logger.Fatal("Mining failed", zap.Error(err))
	}
	logger.Info("Mining done",
		zap.Int("records", res.Records),
		zap.Int("skipped", res.Skipped),
		zap.Int("templates", len(res.Clusters)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err := writeOutput(opts.out, export.FromClusters(res.Clusters)); err != nil {
		logger.Fatal("Cannot write output", zap.Error(err))
	}

	if opts.seed {
		store := mustStore(ctx, cfg.Database, logger)
		defer store.Close()
		repo := templaterepo.New(store, cfg.Database.KeyPrefix, cfg.Stream.MaxMessagesPerTemplate)
		n, err := svc.Seed(ctx, repo, res.Clusters)
		if err != nil {
			logger.Error("Seeding stopped", zap.Int("seeded", n), zap.Error(err))
			return
		}
		logger.Info("Templates seeded", zap.Int("templates", n))
	}
}

func runImport(ctx context.Context, svc *batchuc.Service, cfg config.Config, path string, logger *zap.Logger) {
	f, err := os.Open(path)
	if err != nil {
		logger.Fatal("Cannot open import file", zap.Error(err))
	}
	doc, err := export.Read(f)
	_ = f.Close()
	if err != nil {
		logger.Fatal("Cannot read import file", zap.Error(err))
	}

	ts := make([]template.Template, 0, len(doc.Templates))
	for _, t := range doc.Templates {
		tpl, err := t.Domain()
		if err != nil {
			logger.Fatal("Invalid template in import file", zap.Error(err))
		}
		ts = append(ts, tpl)
	}

	store := mustStore(ctx, cfg.Database, logger)
	defer store.Close()
	repo := templaterepo.New(store, cfg.Database.KeyPrefix, cfg.Stream.MaxMessagesPerTemplate)

	n, err := svc.SeedTemplates(ctx, repo, ts)
	if err != nil {
		logger.Error("Import stopped", zap.Int("imported", n), zap.Error(err))
		return
	}
	logger.Info("Templates imported", zap.String("file", path), zap.Int("templates", n))
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeOutput(path string, doc export.Document) error {
	if path == "-" {
		return export.Write(os.Stdout, doc)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.Write(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
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
