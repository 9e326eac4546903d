package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func TestSchedulerCronExpressions(t *testing.T) {
	for _, tc := range []struct {
		expr string
		ok   bool
	}{
		{"0 */4 * * *", true},
		{"30 6 * * 1-5", true},
		{"@hourly", true},
		{"every morning", false},
		{"61 * * * *", false},
	} {
		t.Run(tc.expr, func(t *testing.T) {
			s := newTestScheduler(t)
			id, err := s.ScheduleCron(scheduleJob, tc.expr, func() {})
			if !tc.ok {
				require.Error(t, err)
				assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, id)
		})
	}
}

func TestSchedulerIntervalFiresAndReportsNextRun(t *testing.T) {
	s := newTestScheduler(t)
	fired := make(chan struct{}, 1)
	_, err := s.ScheduleEvery(scheduleJob, 20*time.Millisecond, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	s.Start()

	next, ok := s.NextRun(scheduleJob)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), next, time.Second)
	_, ok = s.NextRun("unknown")
	assert.False(t, ok)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("interval job never fired")
	}
}

func TestSchedulerRejectsNonPositiveInterval(t *testing.T) {
	s := newTestScheduler(t)
	for _, d := range []time.Duration{0, -time.Minute} {
		_, err := s.ScheduleEvery(scheduleJob, d, func() {})
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	}
}
