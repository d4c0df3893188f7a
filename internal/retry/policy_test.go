package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolvinglmms-lab/docsync/internal/config"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, config.RetryBackoffLinear, p.Mode)
	assert.Equal(t, time.Second, p.Initial)
	assert.Equal(t, 30*time.Second, p.Max)
	assert.Equal(t, 2, p.MaxRetries)
	require.NoError(t, p.Validate())
}

func TestFromConfig(t *testing.T) {
	got, err := FromConfig(config.RetryConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), got)

	zero := 0
	p, err := FromConfig(config.RetryConfig{Mode: config.RetryBackoffExponential, Initial: 10 * time.Millisecond, MaxRetries: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0, p.MaxRetries)
	assert.Equal(t, config.RetryBackoffExponential, p.Mode)
	assert.Equal(t, 10*time.Millisecond, p.Initial)
}

func TestFromConfig_RejectsImpossiblePolicy(t *testing.T) {
	neg := -1
	cases := map[string]config.RetryConfig{
		"negative initial": {Initial: -time.Second},
		"negative max":     {Max: -time.Second},
		"negative retries": {MaxRetries: &neg},
		"unknown mode":     {Mode: "jittered"},
	}
	for name, rc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromConfig(rc)
			assert.Error(t, err)
		})
	}
}

func TestFromConfig_ClampsInitialToMax(t *testing.T) {
	p, err := FromConfig(config.RetryConfig{Initial: 5 * time.Second, Max: 2 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, p.Initial)
}

func TestDelayModes(t *testing.T) {
	fixed := Policy{Mode: config.RetryBackoffFixed, Initial: 100 * time.Millisecond, Max: 500 * time.Millisecond, MaxRetries: 3}
	for i := 1; i <= 3; i++ {
		assert.Equal(t, 100*time.Millisecond, fixed.Delay(i))
	}

	linear := Policy{Mode: config.RetryBackoffLinear, Initial: 100 * time.Millisecond, Max: 250 * time.Millisecond, MaxRetries: 5}
	exp := Policy{Mode: config.RetryBackoffExponential, Initial: 50 * time.Millisecond, Max: 160 * time.Millisecond, MaxRetries: 5}
	cases := []struct {
		name    string
		p       Policy
		attempt int
		want    time.Duration
	}{
		{"linear 1", linear, 1, 100 * time.Millisecond},
		{"linear 2", linear, 2, 200 * time.Millisecond},
		{"linear capped", linear, 3, 250 * time.Millisecond},
		{"exp 1", exp, 1, 50 * time.Millisecond},
		{"exp 2", exp, 2, 100 * time.Millisecond},
		{"exp capped", exp, 3, 160 * time.Millisecond},
		{"exp overflow", exp, 80, 160 * time.Millisecond},
		{"no retry", linear, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.p.Delay(tc.attempt))
		})
	}
}

func TestValidateErrors(t *testing.T) {
	fixed := config.RetryBackoffFixed
	assert.Error(t, Policy{Mode: fixed, Initial: 0, Max: time.Second}.Validate())
	assert.Error(t, Policy{Mode: fixed, Initial: time.Second, Max: 0}.Validate())
	assert.Error(t, Policy{Mode: fixed, Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
	assert.Error(t, Policy{Initial: time.Second, Max: time.Second}.Validate())
	assert.NoError(t, Policy{Mode: fixed, Initial: time.Second, Max: time.Second}.Validate())
}

var errTransient = stderrors.New("connection reset")

func TestDo_RetriesUntilSuccess(t *testing.T) {
	p := Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 3}
	calls := 0
	err := p.Do(t.Context(), nil, func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	p := Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 2}
	calls := 0
	err := p.Do(t.Context(), nil, func() error {
		calls++
		return errTransient
	})
	require.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

func TestDo_ZeroPolicyCallsOnce(t *testing.T) {
	calls := 0
	err := Policy{}.Do(t.Context(), nil, func() error {
		calls++
		return errTransient
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	permanent := stderrors.New("404")
	p := Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 5}
	calls := 0
	err := p.Do(t.Context(), func(err error) bool { return err == errTransient }, func() error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	p := Policy{Mode: config.RetryBackoffFixed, Initial: time.Hour, Max: time.Hour, MaxRetries: 5}
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, nil, func() error {
			calls++
			return errTransient
		})
	}()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, errTransient)
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	assert.Equal(t, 1, calls)
}
