package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/tradewire/config"
)

func TestDefaultSettings(t *testing.T) {
	cfg := config.Default()
	require.Equal(t, config.AccountDemo, cfg.DefaultAccount)
	require.Equal(t, 10*time.Second, cfg.Timeouts.Call)
	require.NotEmpty(t, cfg.Platform.WebsocketURL)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("TRADEWIRE_WS_URL", "wss://sandbox.example/ws")
	t.Setenv("TRADEWIRE_IDENTIFIER", "trader@example.com")
	t.Setenv("TRADEWIRE_CALL_TIMEOUT", "3s")
	t.Setenv("TRADEWIRE_ACCOUNT", "REAL")

	cfg := config.FromEnv()
	require.Equal(t, "wss://sandbox.example/ws", cfg.Platform.WebsocketURL)
	require.Equal(t, "trader@example.com", cfg.Credentials.Identifier)
	require.Equal(t, 3*time.Second, cfg.Timeouts.Call)
	require.Equal(t, config.AccountReal, cfg.DefaultAccount)
}

func TestFromEnvIgnoresInvalidDuration(t *testing.T) {
	t.Setenv("TRADEWIRE_CALL_TIMEOUT", "not-a-duration")
	cfg := config.FromEnv()
	require.Equal(t, config.Default().Timeouts.Call, cfg.Timeouts.Call)
}

func TestFromYAMLOverlaysDefaults(t *testing.T) {
	doc := []byte(`
platform:
  websocketUrl: wss://staging.example/ws
timeouts:
  call: 5s
pacing:
  controlInterval: 100ms
defaultAccount: real
`)
	cfg, err := config.FromYAML(doc)
	require.NoError(t, err)
	require.Equal(t, "wss://staging.example/ws", cfg.Platform.WebsocketURL)
	require.Equal(t, 5*time.Second, cfg.Timeouts.Call)
	require.Equal(t, 100*time.Millisecond, cfg.Pacing.ControlInterval)
	require.Equal(t, config.Default().Timeouts.Handshake, cfg.Timeouts.Handshake)
	require.Equal(t, config.AccountReal, cfg.DefaultAccount)
	// Untouched fields keep defaults.
	require.Equal(t, config.Default().Platform.LoginURL, cfg.Platform.LoginURL)
}

func TestFromYAMLRejectsBadAccount(t *testing.T) {
	_, err := config.FromYAML([]byte("defaultAccount: tournament\n"))
	require.Error(t, err)
}
