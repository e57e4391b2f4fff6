package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
signals:
  api_url: "http://localhost:8080"
exchange:
  api_key: "key"
  api_secret: "secret"
`

func TestLoad_DefaultsApplied(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Loop.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Loop.PollInterval())
	assert.Equal(t, 10*time.Second, cfg.Loop.HeartbeatInterval())
	assert.Equal(t, 20, cfg.Guard.ThresholdPercent)
	assert.Equal(t, 30*time.Second, cfg.Guard.CheckInterval())
	assert.Equal(t, 0, cfg.Guard.RecoveryBufferPercent)
	assert.Equal(t, "0.001", cfg.Exchange.OrderQuantity)
	assert.False(t, cfg.Store.Enabled)

	p := cfg.Retry.Policy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, p.BaseDelay)
	assert.Equal(t, 2.0, p.Multiplier)
	assert.Equal(t, 0.1, p.JitterFraction)
	assert.Equal(t, 10*time.Second, p.MaxDelay)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
loop:
  batch_size: 25
  poll_interval_seconds: 2
guard:
  threshold_percent: 15
  recovery_buffer_percent: 3
signals:
  api_url: "http://signals.internal"
  api_token: "tok"
exchange:
  api_key: "key"
  api_secret: "secret"
  order_quantity: "0.01"
store:
  enabled: true
  path: /tmp/sigrun-test.db
`))
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Loop.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Loop.PollInterval())
	assert.Equal(t, 15, cfg.Guard.ThresholdPercent)
	assert.Equal(t, 3, cfg.Guard.RecoveryBufferPercent)
	assert.Equal(t, "tok", cfg.Signals.APIToken)
	assert.Equal(t, "0.01", cfg.Exchange.OrderQuantity)
	assert.True(t, cfg.Store.Enabled)
	assert.Equal(t, "/tmp/sigrun-test.db", cfg.Store.Path)
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing api_url", `
exchange:
  api_key: "key"
  api_secret: "secret"
`},
		{"missing exchange credentials", `
signals:
  api_url: "http://localhost:8080"
`},
		{"threshold too low", minimalConfig + `
guard:
  threshold_percent: 0
`},
		{"threshold too high", minimalConfig + `
guard:
  threshold_percent: 100
`},
		{"batch size zero", minimalConfig + `
loop:
  batch_size: 0
`},
		{"bad order quantity", `
signals:
  api_url: "http://localhost:8080"
exchange:
  api_key: "key"
  api_secret: "secret"
  order_quantity: "-1"
`},
		{"telegram enabled without token", minimalConfig + `
notify:
  telegram:
    enabled: true
`},
		{"store enabled without path", minimalConfig + `
store:
  enabled: true
  path: ""
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}
