package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/izupress/internal/config"
)

func TestExampleConfigMatchesExportFetchLoop(t *testing.T) {
	p := FromConfig(config.Example().Retry)
	require.NoError(t, p.Validate())

	assert.Equal(t, config.RetryBackoffFixed, p.Mode)
	assert.Equal(t, 3, p.MaxRetries)
	// half the first timeout between attempts
	for retry := 1; retry <= p.MaxRetries; retry++ {
		assert.Equal(t, 15*time.Second, p.Delay(retry))
	}
	var timeouts []time.Duration
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		timeouts = append(timeouts, p.AttemptTimeout(attempt))
	}
	assert.Equal(t, []time.Duration{30 * time.Second, time.Minute, 2 * time.Minute, 4 * time.Minute}, timeouts)
}

func TestDelayByMode(t *testing.T) {
	ms := time.Millisecond
	for _, tc := range []struct {
		name string
		p    Policy
		want []time.Duration // retries 1..n
	}{
		{"fixed", NewPolicy(config.RetryBackoffFixed, 100*ms, 500*ms, 3), []time.Duration{100 * ms, 100 * ms, 100 * ms}},
		{"linear capped", NewPolicy(config.RetryBackoffLinear, 100*ms, 250*ms, 4), []time.Duration{100 * ms, 200 * ms, 250 * ms, 250 * ms}},
		{"exponential capped", NewPolicy(config.RetryBackoffExponential, 50*ms, 160*ms, 4), []time.Duration{50 * ms, 100 * ms, 160 * ms, 160 * ms}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for i, want := range tc.want {
				assert.Equal(t, want, tc.p.Delay(i+1), "retry %d", i+1)
			}
			assert.Zero(t, tc.p.Delay(0))
			assert.Zero(t, tc.p.Delay(-2))
		})
	}

	// large shifts overflow to the cap instead of going negative
	p := NewPolicy(config.RetryBackoffExponential, time.Second, time.Hour, 100)
	assert.Equal(t, time.Hour, p.Delay(80))
}

func TestNewPolicyFallbacks(t *testing.T) {
	p := NewPolicy("weird", 0, 0, -1)
	assert.Equal(t, DefaultPolicy(), p)

	clamped := NewPolicy(config.RetryBackoffFixed, 5*time.Second, 2*time.Second, 5)
	assert.Equal(t, 2*time.Second, clamped.Initial)
	assert.Equal(t, 5, clamped.MaxRetries)

	fromYAML := FromConfig(config.RetryConfig{Backoff: "Exponential", MaxRetries: 4, Timeout: config.Duration(5 * time.Second)})
	assert.Equal(t, config.RetryBackoffExponential, fromYAML.Mode)
	assert.Equal(t, 4, fromYAML.MaxRetries)
	assert.Equal(t, 5*time.Second, fromYAML.Timeout)
}

func TestAttemptTimeoutBounds(t *testing.T) {
	assert.Zero(t, Policy{}.AttemptTimeout(3))
	p := Policy{Timeout: time.Second}
	assert.Equal(t, time.Second, p.AttemptTimeout(-1))
	assert.Equal(t, p.AttemptTimeout(16), p.AttemptTimeout(40))
}

func TestValidate(t *testing.T) {
	good := Policy{Mode: config.RetryBackoffLinear, Initial: time.Second, Max: 2 * time.Second}
	require.NoError(t, good.Validate())

	for name, mutate := range map[string]func(*Policy){
		"zero initial":     func(p *Policy) { p.Initial = 0 },
		"zero max":         func(p *Policy) { p.Max = 0 },
		"negative retries": func(p *Policy) { p.MaxRetries = -1 },
		"negative timeout": func(p *Policy) { p.Timeout = -time.Second },
	} {
		p := good
		mutate(&p)
		assert.Error(t, p.Validate(), name)
	}
}
