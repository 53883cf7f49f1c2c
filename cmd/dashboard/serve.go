package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"

	"github.com/linchengweiii/crypto-dashboard/internal/api"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP API, WebSocket stream and refresh loop" }
func (*serveCmd) Usage() string {
	return `dashboard serve [-addr <host:port>]

  Refreshes market data on REFRESH_INTERVAL and serves the dashboard API
  until interrupted.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address (defaults to DASHBOARD_ADDR)")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, os.Stdout)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	addr := a.cfg.Addr
	if c.addr != "" {
		addr = c.addr
	}

	slog.Info("dashboard config loaded",
		"addr", addr,
		"data_source", a.cfg.DataSource,
		"repo_kind", a.cfg.RepoKind,
		"refresh_interval", a.cfg.RefreshInterval,
		"log_level", a.cfg.LogLevel,
		"log_file", a.cfg.LogFile,
	)

	go a.svc.Run(ctx, a.cfg.RefreshInterval)

	srv := &http.Server{Addr: addr, Handler: api.NewServer(a.svc, a.hub)}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("dashboard listening", "addr", addr, "docs", "http://"+addr+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		slog.Error("dashboard server failed", "error", err)
		return subcommands.ExitFailure
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("dashboard shutdown failed", "error", err)
		return subcommands.ExitFailure
	}
	slog.Info("dashboard stopped")
	return subcommands.ExitSuccess
}
