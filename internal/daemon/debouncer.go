package daemon

import (
	"context"
	"time"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
)

// DebouncerConfig sets the debounce windows.
type DebouncerConfig struct {
	QuietWindow time.Duration
	// MaxDelay bounds how long a steady stream of requests can postpone a trigger.
	MaxDelay time.Duration
}

// Debouncer coalesces bursts of change notifications into a single trigger.
type Debouncer struct {
	cfg      DebouncerConfig
	requests chan string
	fire     func(reason string, count int)
}

// NewDebouncer returns a Debouncer calling fire once per burst.
func NewDebouncer(cfg DebouncerConfig, fire func(reason string, count int)) (*Debouncer, error) {
	if cfg.QuietWindow <= 0 {
		return nil, ferrors.ValidationError("quiet window must be > 0").Build()
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * cfg.QuietWindow
	}
	if fire == nil {
		return nil, ferrors.ValidationError("fire callback is required").Build()
	}
	return &Debouncer{cfg: cfg, requests: make(chan string, 64), fire: fire}, nil
}

// Request records a change. It never blocks; overflow is folded into the pending burst.
func (d *Debouncer) Request(reason string) {
	select {
	case d.requests <- reason:
	default:
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// Run processes requests until ctx is done.
func (d *Debouncer) Run(ctx context.Context) {
	quietTimer := time.NewTimer(time.Hour)
	stopTimer(quietTimer)
	maxTimer := time.NewTimer(time.Hour)
	stopTimer(maxTimer)

	var (
		quietC <-chan time.Time
		maxC   <-chan time.Time
		count  int
		reason string
	)
	emit := func() {
		stopTimer(quietTimer)
		stopTimer(maxTimer)
		quietC, maxC = nil, nil
		d.fire(reason, count)
		count = 0
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer(quietTimer)
			stopTimer(maxTimer)
			return
		case r := <-d.requests:
			count++
			reason = r
			stopTimer(quietTimer)
			quietTimer.Reset(d.cfg.QuietWindow)
			quietC = quietTimer.C
			if count == 1 {
				maxTimer.Reset(d.cfg.MaxDelay)
				maxC = maxTimer.C
			}
		case <-quietC:
			emit()
		case <-maxC:
			emit()
		}
	}
}
