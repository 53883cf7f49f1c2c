package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/linchengweiii/crypto-dashboard/internal/config"
	"github.com/linchengweiii/crypto-dashboard/internal/dashboard"
	"github.com/linchengweiii/crypto-dashboard/internal/kv"
	"github.com/linchengweiii/crypto-dashboard/internal/market"
	"github.com/linchengweiii/crypto-dashboard/internal/portfolio"
	"github.com/linchengweiii/crypto-dashboard/internal/render"
	"github.com/linchengweiii/crypto-dashboard/internal/stream"
)

// stdout is where commands print their results.
var stdout io.Writer = os.Stdout

// app is everything a command needs, wired from the environment.
type app struct {
	cfg   *config.Config
	hub   *stream.Hub
	cache *market.Cache
	svc   *dashboard.Service

	closers []func()
}

// newApp loads configuration, sets up logging to console and the log file,
// and wires source, cache, repository and service.
func newApp(ctx context.Context, console io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := setupLogger(cfg.SlogLevel(), cfg.LogFile, console); err != nil {
		return nil, fmt.Errorf("logger setup failed: %w", err)
	}
	return wire(ctx, cfg)
}

func wire(ctx context.Context, cfg *config.Config) (*app, error) {
	src, err := newSource(cfg)
	if err != nil {
		return nil, err
	}
	repo, closeRepo, err := newRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, hub: stream.NewHub(stream.DefaultBuffer)}
	if closeRepo != nil {
		a.closers = append(a.closers, closeRepo)
	}
	a.cache = market.NewCache(src, cfg.RefreshTimeout)
	a.svc = dashboard.NewService(a.cache, portfolio.NewLedger(repo), a.hub)

	slog.Debug("dashboard wired",
		"source", src.Name(),
		"repo_kind", cfg.RepoKind,
		"data_dir", cfg.DataDir,
		"refresh_interval", cfg.RefreshInterval,
		"refresh_timeout", cfg.RefreshTimeout,
	)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newSource(cfg *config.Config) (market.Source, error) {
	switch cfg.DataSource {
	case "http":
		src, err := market.NewHTTPSource(market.HTTPConfig{
			URL:        cfg.MarketAPIURL,
			APIKey:     cfg.MarketAPIKey,
			HistoryURL: cfg.MarketHistory,
			ItemsPath:  cfg.MarketItemsPath,
			HistoryTTL: cfg.HistoryTTL,
		})
		if err != nil {
			slog.Warn("http market source not configured; falling back to mock data", "error", err)
			return newMockSource(cfg), nil
		}
		return src, nil
	case "mock", "":
		return newMockSource(cfg), nil
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}
}

func newMockSource(cfg *config.Config) *market.MockSource {
	return market.NewMockSource(cfg.MockAssetCount, cfg.MockDelay, cfg.MockSeed)
}

// newRepository returns the configured portfolio store and an optional
// close function.
func newRepository(ctx context.Context, cfg *config.Config) (portfolio.Repository, func(), error) {
	switch cfg.RepoKind {
	case "memory":
		return portfolio.NewMemoryRepo(), nil, nil
	case "csv":
		r, err := portfolio.NewCSVRepo(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("init csv store: %w", err)
		}
		return r, nil, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		r := portfolio.NewPGRepo(pool)
		if err := r.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres schema: %w", err)
		}
		return r, pool.Close, nil
	case "kv", "":
		store, err := kv.Open(cfg.KVPath())
		if err != nil {
			return nil, nil, fmt.Errorf("init kv store: %w", err)
		}
		closeStore := func() {
			if err := store.Close(); err != nil {
				slog.Warn("kv store close failed", "error", err)
			}
		}
		return portfolio.NewKVRepo(store), closeStore, nil
	default:
		return nil, nil, fmt.Errorf("unknown repository kind %q", cfg.RepoKind)
	}
}

func setupLogger(level slog.Level, filename string, console io.Writer) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	h := slog.NewTextHandler(io.MultiWriter(console, logWriter), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
	return nil
}

// printMarkdown renders md for the terminal, falling back to the raw text.
func printMarkdown(md string) {
	out, err := render.Terminal(md, *style, render.DefaultWidth)
	if err != nil {
		slog.Debug("terminal render failed", "error", err)
		out = md
	}
	fmt.Fprint(stdout, out)
}
