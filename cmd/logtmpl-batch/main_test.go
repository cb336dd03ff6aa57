package main

import (
	"testing"

	"github.com/kailas-cloud/logtmpl/internal/config"
)

func baseConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("database:\n  driver: redis\n  addrs: [\"localhost:6379\"]\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cfg
}

func TestParseFlags_Defaults(t *testing.T) {
	o, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.in != "-" || o.out != "-" || o.seed || o.header != -1 {
		t.Errorf("unexpected defaults: %+v", o)
	}

	cfg := baseConfig(t)
	want := cfg
	if err := o.apply(&cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Batch.SplitThreshold != want.Batch.SplitThreshold || cfg.Batch.Workers != want.Batch.Workers {
		t.Errorf("defaults must not override config: %+v", cfg.Batch)
	}
}

func TestParseFlags_Overrides(t *testing.T) {
	o, err := parseFlags([]string{"-in", "app.log", "-out", "t.yaml", "-seed",
		"-workers", "3", "-header", "0", "-st", "0.6", "-mt", "0.9"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := baseConfig(t)
	if err := o.apply(&cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if o.in != "app.log" || o.out != "t.yaml" || !o.seed {
		t.Errorf("unexpected options: %+v", o)
	}
	if cfg.Batch.Workers != 3 || cfg.Batch.SplitThreshold != 0.6 || cfg.Batch.MergeThreshold != 0.9 {
		t.Errorf("unexpected batch config: %+v", cfg.Batch)
	}
	if cfg.Tokenizer.HeaderLenOrDefault() != 0 {
		t.Errorf("expected header 0, got %d", cfg.Tokenizer.HeaderLenOrDefault())
	}
}

func TestParseFlags_Errors(t *testing.T) {
	if _, err := parseFlags([]string{"extra"}); err == nil {
		t.Error("expected error for positional argument")
	}
	if _, err := parseFlags([]string{"-nope"}); err == nil {
		t.Error("expected error for unknown flag")
	}

	o, err := parseFlags([]string{"-st", "1.5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := baseConfig(t)
	if err := o.apply(&cfg); err == nil {
		t.Error("expected threshold out of range to fail validation")
	}
}
