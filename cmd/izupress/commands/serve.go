package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/izupress/internal/config"
	"git.home.luguber.info/inful/izupress/internal/daemon"
	"git.home.luguber.info/inful/izupress/internal/logfields"
	"git.home.luguber.info/inful/izupress/internal/metrics"
	"git.home.luguber.info/inful/izupress/internal/publish"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Listen string `help:"Address for /metrics and /status (overrides metrics.listen)"`
	Commit bool   `help:"Commit the output directory after every run"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	logger := root.Logger()
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	commit := s.Commit || cfg.Deploy.GitCommit
	run := func(ctx context.Context, trigger string) error {
		_, err := rt.run(ctx, publish.Options{Trigger: trigger, Commit: commit})
		return err
	}
	opts := []daemon.Option{daemon.WithLogger(logger)}
	if cfg.Source.Kind == config.SourceDir {
		opts = append(opts, daemon.WithSourceDir(cfg.Source.Dir))
	}
	d, err := daemon.New(cfg.Daemon, run, opts...)
	if err != nil {
		return err
	}

	listen := s.Listen
	if listen == "" {
		listen = cfg.Metrics.Listen
	}
	if listen != "" {
		srv := &http.Server{
			Addr:              listen,
			Handler:           statusMux(rt, d),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go serveHTTP(srv, logger)
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			_ = srv.Shutdown(stopCtx)
		}()
	}

	logger.Info("Daemon started, waiting for shutdown signal...")
	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("daemon error: %w", err)
	}
	logger.Info("Daemon stopped")
	return nil
}

// statusMux serves the daemon status as JSON and, with metrics enabled, /metrics.
func statusMux(rt *runtime, d *daemon.Daemon) *http.ServeMux {
	mux := http.NewServeMux()
	if rt.registry != nil {
		mux.Handle("/metrics", metrics.HTTPHandler(rt.registry))
	}
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(d.Status())
	})
	mux.HandleFunc("/trigger", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		d.Trigger("http")
		w.WriteHeader(http.StatusAccepted)
	})
	return mux
}

func serveHTTP(srv *http.Server, logger *slog.Logger) {
	logger.Info("Status server listening", logfields.URL("http://"+srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Status server failed", logfields.Error(err))
	}
}
