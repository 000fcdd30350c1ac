package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Keksclan/goRawrRetry/jitter"
	"github.com/Keksclan/goRawrRetry/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	s, err := FromLookup("RETRY", lookup(nil))
	require.NoError(t, err)

	assert.Equal(t, retry.DefaultMaxAttempts, s.MaxAttempts)
	assert.Equal(t, retry.DefaultDelay, s.Delay)
	assert.Equal(t, "exponential", s.Backoff)
	assert.Nil(t, s.JitterConfig())
}

func TestFromLookup_AllVariables(t *testing.T) {
	s, err := FromLookup("APP", lookup(map[string]string{
		"APP_MAX_ATTEMPTS":     "5",
		"APP_DELAY":            "250ms",
		"APP_BACKOFF":          "linear",
		"APP_JITTER":           " Full ",
		"APP_JITTER_MIN":       "100ms",
		"APP_JITTER_MAX":       "400ms",
		"APP_JITTER_FRACTION":  "0.25",
		"APP_JITTER_MAX_DELAY": "10s",
	}))
	require.NoError(t, err)

	assert.Equal(t, 5, s.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, s.Delay)
	assert.Equal(t, "linear", s.Backoff)
	assert.Equal(t, jitter.Full{Min: 100 * time.Millisecond, Max: 400 * time.Millisecond}, s.JitterConfig())
	assert.Equal(t, 0.25, s.Jitter.Fraction)
	assert.Equal(t, 10*time.Second, s.Jitter.MaxDelay)
}

func TestJitterConfig_Variants(t *testing.T) {
	j := JitterSettings{
		Min:      time.Millisecond,
		Max:      2 * time.Millisecond,
		Amount:   3 * time.Millisecond,
		Fraction: 0.5,
		MaxDelay: time.Minute,
	}
	tests := map[string]jitter.Config{
		"":             nil,
		"none":         nil,
		"equal":        jitter.Equal{},
		"full":         jitter.Full{Min: time.Millisecond, Max: 2 * time.Millisecond},
		"fixed":        jitter.Fixed{Amount: 3 * time.Millisecond},
		"random":       jitter.Random{Fraction: 0.5},
		"decorrelated": jitter.Decorrelated{MaxDelay: time.Minute},
	}
	for kind, want := range tests {
		j.Kind = kind
		got := Settings{Jitter: j}.JitterConfig()
		assert.Equal(t, want, got, "kind %q", kind)
	}
}

func TestFromLookup_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"attempts not a number": {"R_MAX_ATTEMPTS": "many"},
		"zero attempts":         {"R_MAX_ATTEMPTS": "0"},
		"bad delay":             {"R_DELAY": "soon"},
		"negative delay":        {"R_DELAY": "-1s"},
		"unknown jitter":        {"R_JITTER": "gaussian"},
		"fraction above one":    {"R_JITTER_FRACTION": "1.5"},
		"fraction not a number": {"R_JITTER_FRACTION": "half"},
		"negative amount":       {"R_JITTER_AMOUNT": "-5ms"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromLookup("R", lookup(vars))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config:")
		})
	}
}

func TestFromLookup_UnknownBackoffIsKept(t *testing.T) {
	s, err := FromLookup("R", lookup(map[string]string{"R_BACKOFF": "fibonacci"}))
	require.NoError(t, err)
	assert.Equal(t, "fibonacci", s.Backoff)
}

func TestOptions_DriveRetry(t *testing.T) {
	s, err := FromLookup("R", lookup(map[string]string{
		"R_MAX_ATTEMPTS":  "4",
		"R_DELAY":         "10ms",
		"R_BACKOFF":       "linear",
		"R_JITTER":        "fixed",
		"R_JITTER_AMOUNT": "5ms",
	}))
	require.NoError(t, err)

	var waits []time.Duration
	opts := append(s.Options(), retry.WithSleep(func(d time.Duration) { waits = append(waits, d) }))

	calls := 0
	_, err = retry.Do(func() (int, error) {
		calls++
		return 0, assert.AnError
	}, opts...)

	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{15 * time.Millisecond, 35 * time.Millisecond, 55 * time.Millisecond}, waits)
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DOTENV_MAX_ATTEMPTS=7\nDOTENV_DELAY=2s\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("DOTENV_DELAY", "3s")

	t.Cleanup(func() { _ = os.Unsetenv("DOTENV_MAX_ATTEMPTS") })

	s, err := Load("DOTENV")
	require.NoError(t, err)

	assert.Equal(t, 7, s.MaxAttempts)
	assert.Equal(t, 3*time.Second, s.Delay, "process environment wins over .env")
}
