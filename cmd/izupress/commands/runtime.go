package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/izupress/internal/config"
	"git.home.luguber.info/inful/izupress/internal/eventstore"
	"git.home.luguber.info/inful/izupress/internal/logfields"
	"git.home.luguber.info/inful/izupress/internal/metrics"
	"git.home.luguber.info/inful/izupress/internal/notify"
	"git.home.luguber.info/inful/izupress/internal/publish"
	"git.home.luguber.info/inful/izupress/internal/storage"
)

// runtime holds the long-lived collaborators of publish and serve.
type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     storage.Store
	registry  *prom.Registry
	history   *eventstore.SQLiteStore
	notifier  notify.Publisher
	publisher *publish.Publisher
}

// newRuntime opens the cache store and the optional history, metrics and
// notification backends selected by cfg, then builds the Publisher over them.
func newRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger}
	if err := rt.open(ctx); err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) open(ctx context.Context) error {
	cfg, logger := rt.cfg, rt.logger
	store, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open cache store: %w", err)
	}
	rt.store = store
	logger.Debug("Cache store opened", logfields.Backend(string(cfg.Store.Backend)))

	opts := []publish.Option{publish.WithLogger(logger)}
	if cfg.Metrics.Enabled {
		rt.registry = prom.NewRegistry()
		opts = append(opts, publish.WithRecorder(metrics.NewPrometheusRecorder(rt.registry)))
	}
	if cfg.History.Enabled {
		history, err := eventstore.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return err
		}
		rt.history = history
		opts = append(opts, publish.WithHistory(history))
	}
	if cfg.Notify.NATSURL != "" {
		notifier, err := notify.NewNATSPublisher(ctx, cfg.Notify.NATSURL, cfg.Notify.Subject, logger)
		if err != nil {
			return err
		}
		rt.notifier = notifier
		opts = append(opts, publish.WithNotifier(notifier))
	}

	rt.publisher, err = publish.New(cfg, rt.store, opts...)
	return err
}

// run publishes once and exports the metrics textfile when one is configured.
func (rt *runtime) run(ctx context.Context, opts publish.Options) (*publish.Summary, error) {
	sum, err := rt.publisher.Run(ctx, opts)
	rt.writeTextfile()
	return sum, err
}

func (rt *runtime) writeTextfile() {
	if rt.registry == nil || rt.cfg.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(rt.registry, rt.cfg.Metrics.Textfile); err != nil {
		rt.logger.Warn("Metrics textfile not written",
			logfields.Path(rt.cfg.Metrics.Textfile), logfields.Error(err))
	}
}

// Close releases everything newRuntime opened.
func (rt *runtime) Close() error {
	var errs []error
	if rt.notifier != nil {
		errs = append(errs, rt.notifier.Close())
	}
	if rt.history != nil {
		errs = append(errs, rt.history.Close())
	}
	if rt.store != nil {
		errs = append(errs, rt.store.Close())
	}
	return errors.Join(errs...)
}
