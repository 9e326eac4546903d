// Package daemon keeps a site published: it runs the publish pipeline on a schedule
// and, for directory sources, shortly after exported documents change.
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/izupress/internal/config"
	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
	"git.home.luguber.info/inful/izupress/internal/logfields"
)

// Trigger names passed to RunFunc.
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerWatch    = "watch"
)

// RunFunc performs one publish run.
type RunFunc func(ctx context.Context, trigger string) error

// Status is a snapshot of the daemon's run history.
type Status struct {
	Running     bool      `json:"running"`
	Runs        int       `json:"runs"`
	Failures    int       `json:"failures"`
	LastTrigger string    `json:"last_trigger,omitempty"`
	LastStart   time.Time `json:"last_start,omitempty"`
	LastEnd     time.Time `json:"last_end,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	NextRun     time.Time `json:"next_run,omitempty"`
}

// Daemon serializes publish runs coming from the scheduler and the source watcher.
// Triggers that arrive during a run collapse into a single follow-up run.
type Daemon struct {
	cfg       config.DaemonConfig
	sourceDir string
	run       RunFunc
	logger    *slog.Logger
	trigger   chan string
	scheduler *Scheduler

	mu     sync.Mutex
	status Status
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Daemon) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithSourceDir enables watching dir when cfg.Watch is set.
func WithSourceDir(dir string) Option {
	return func(d *Daemon) { d.sourceDir = dir }
}

const scheduleJob = "publish"

// New creates a Daemon.
func New(cfg config.DaemonConfig, run RunFunc, opts ...Option) (*Daemon, error) {
	if run == nil {
		return nil, ferrors.ValidationError("run function is required").Build()
	}
	d := &Daemon{cfg: cfg, run: run, logger: slog.Default(), trigger: make(chan string, 1)}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Trigger requests a run. It never blocks.
func (d *Daemon) Trigger(reason string) {
	select {
	case d.trigger <- reason:
	default:
		d.logger.Debug("Run already pending", slog.String("trigger", reason))
	}
}

// Status returns a copy of the current status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	st := d.status
	sched := d.scheduler
	d.mu.Unlock()
	if sched != nil {
		if next, ok := sched.NextRun(scheduleJob); ok {
			st.NextRun = next
		}
	}
	return st
}

// Run blocks until ctx is done. Failed runs are logged and recorded; they do not stop
// the daemon.
func (d *Daemon) Run(ctx context.Context) error {
	sched, err := NewScheduler()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "start scheduler").Build()
	}
	sched.logger = d.logger
	task := func() { d.Trigger(TriggerSchedule) }
	if d.cfg.Cron != "" {
		_, err = sched.ScheduleCron(scheduleJob, d.cfg.Cron, task)
	} else {
		_, err = sched.ScheduleEvery(scheduleJob, d.cfg.Interval.Duration(), task)
	}
	if err != nil {
		_ = sched.Stop(ctx)
		return err
	}
	d.mu.Lock()
	d.scheduler = sched
	d.mu.Unlock()
	sched.Start()
	defer func() {
		if err := sched.Stop(context.Background()); err != nil {
			d.logger.Warn("Scheduler shutdown failed", logfields.Error(err))
		}
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	if d.cfg.Watch && d.sourceDir != "" {
		deb, err := NewDebouncer(DebouncerConfig{QuietWindow: d.cfg.Debounce.Duration()}, func(reason string, count int) {
			d.logger.Info("Source changed", slog.String("file", reason), slog.Int("events", count))
			d.Trigger(TriggerWatch)
		})
		if err != nil {
			return err
		}
		watcher, err := NewSourceWatcher(d.sourceDir, deb.Request, d.logger)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryDaemon, "watch source directory").
				WithContext("dir", d.sourceDir).
				Build()
		}
		wg.Add(2)
		go func() { defer wg.Done(); deb.Run(ctx) }()
		go func() { defer wg.Done(); watcher.Run(ctx) }()
	}

	d.Trigger(TriggerStartup)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Daemon stopping")
			return nil
		case reason := <-d.trigger:
			d.runOnce(ctx, reason)
		}
	}
}

func (d *Daemon) runOnce(ctx context.Context, reason string) {
	start := time.Now()
	d.mu.Lock()
	d.status.Running = true
	d.status.LastTrigger = reason
	d.status.LastStart = start
	d.mu.Unlock()

	err := d.run(ctx, reason)

	d.mu.Lock()
	d.status.Running = false
	d.status.Runs++
	d.status.LastEnd = time.Now()
	d.status.LastError = ""
	if err != nil {
		d.status.Failures++
		d.status.LastError = err.Error()
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.Error("Publish run failed",
			slog.String("trigger", reason),
			logfields.Error(err))
		return
	}
	d.logger.Info("Publish run finished",
		slog.String("trigger", reason),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
}
