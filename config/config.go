// Package config centralises runtime configuration for the tradewire client.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AccountType selects which platform balance the client activates after login.
type AccountType string

const (
	// AccountDemo selects the practice balance.
	AccountDemo AccountType = "demo"
	// AccountReal selects the live balance.
	AccountReal AccountType = "real"
)

// Credentials captures the platform login identity.
type Credentials struct {
	Identifier string `yaml:"identifier"`
	Password   string `yaml:"password"`
}

// PlatformSettings holds the endpoints of the trading platform.
type PlatformSettings struct {
	LoginURL     string `yaml:"loginUrl"`
	LogoutURL    string `yaml:"logoutUrl"`
	WebsocketURL string `yaml:"websocketUrl"`
}

// TimeoutSettings groups the client-side deadlines.
type TimeoutSettings struct {
	// HTTP bounds the login/logout round trips.
	HTTP time.Duration `yaml:"http"`
	// Handshake bounds each stage of connection bring-up: socket dial, first
	// inbound frame, and the profile push that confirms authentication.
	Handshake time.Duration `yaml:"handshake"`
	// Call is the default deadline for correlated request/response exchanges.
	Call time.Duration `yaml:"call"`
}

// UnmarshalYAML accepts Go duration strings ("5s", "250ms") for the timeout
// fields, leaving absent fields at their prior values.
func (t *TimeoutSettings) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		HTTP      string `yaml:"http"`
		Handshake string `yaml:"handshake"`
		Call      string `yaml:"call"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if err := assignDuration(&t.HTTP, raw.HTTP); err != nil {
		return err
	}
	if err := assignDuration(&t.Handshake, raw.Handshake); err != nil {
		return err
	}
	return assignDuration(&t.Call, raw.Call)
}

// PacingSettings throttles outbound control traffic. The platform drops
// connections that burst subscribe/unsubscribe messages.
type PacingSettings struct {
	ControlInterval time.Duration `yaml:"controlInterval"`
	ControlBurst    int           `yaml:"controlBurst"`
}

// UnmarshalYAML accepts a Go duration string for the control interval.
func (p *PacingSettings) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		ControlInterval string `yaml:"controlInterval"`
		ControlBurst    *int   `yaml:"controlBurst"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.ControlBurst != nil {
		p.ControlBurst = *raw.ControlBurst
	}
	return assignDuration(&p.ControlInterval, raw.ControlInterval)
}

func assignDuration(dst *time.Duration, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	parsed, err := time.ParseDuration(trimmed)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", trimmed, err)
	}
	*dst = parsed
	return nil
}

// TelemetryConfig configures the OpenTelemetry metrics exporter.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
}

// Settings contains the tradewire configuration tree loaded from defaults and
// overrides.
type Settings struct {
	Platform       PlatformSettings `yaml:"platform"`
	Credentials    Credentials      `yaml:"credentials"`
	Timeouts       TimeoutSettings  `yaml:"timeouts"`
	Pacing         PacingSettings   `yaml:"pacing"`
	DefaultAccount AccountType      `yaml:"defaultAccount"`
	Telemetry      TelemetryConfig  `yaml:"telemetry"`
}

// Default returns the default tradewire configuration.
func Default() Settings {
	return Settings{
		Platform: PlatformSettings{
			LoginURL:     "https://api.tradewire.dev/v2/login",
			LogoutURL:    "https://auth.tradewire.dev/api/v1.0/logout",
			WebsocketURL: "wss://ws.tradewire.dev/echo/websocket",
		},
		Credentials: Credentials{Identifier: "", Password: ""},
		Timeouts: TimeoutSettings{
			HTTP:      10 * time.Second,
			Handshake: 10 * time.Second,
			Call:      10 * time.Second,
		},
		Pacing: PacingSettings{
			ControlInterval: 250 * time.Millisecond,
			ControlBurst:    1,
		},
		DefaultAccount: AccountDemo,
		Telemetry:      TelemetryConfig{OTLPEndpoint: "", ServiceName: "tradewire"},
	}
}

// FromEnv loads configuration values from environment variables, overriding
// defaults.
func FromEnv() Settings {
	cfg := Default()

	if v := strings.TrimSpace(os.Getenv("TRADEWIRE_LOGIN_URL")); v != "" {
		cfg.Platform.LoginURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TRADEWIRE_LOGOUT_URL")); v != "" {
		cfg.Platform.LogoutURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TRADEWIRE_WS_URL")); v != "" {
		cfg.Platform.WebsocketURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TRADEWIRE_IDENTIFIER")); v != "" {
		cfg.Credentials.Identifier = v
	}
	if v := os.Getenv("TRADEWIRE_PASSWORD"); v != "" {
		cfg.Credentials.Password = v
	}
	if v := strings.TrimSpace(os.Getenv("TRADEWIRE_HTTP_TIMEOUT")); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			cfg.Timeouts.HTTP = dur
		}
	}
	if v := strings.TrimSpace(os.Getenv("TRADEWIRE_HANDSHAKE_TIMEOUT")); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			cfg.Timeouts.Handshake = dur
		}
	}
	if v := strings.TrimSpace(os.Getenv("TRADEWIRE_CALL_TIMEOUT")); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			cfg.Timeouts.Call = dur
		}
	}
	if v := strings.TrimSpace(os.Getenv("TRADEWIRE_ACCOUNT")); v != "" {
		cfg.DefaultAccount = AccountType(strings.ToLower(v))
	}
	if v := strings.TrimSpace(os.Getenv("TRADEWIRE_OTLP_ENDPOINT")); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("TRADEWIRE_SERVICE_NAME")); v != "" {
		cfg.Telemetry.ServiceName = v
	}

	return cfg
}

// FromYAML loads configuration overrides from a YAML document on top of the
// defaults.
func FromYAML(data []byte) (Settings, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Settings{}, fmt.Errorf("parse config yaml: %w", err)
	}
	return cfg, cfg.Validate()
}

// FromYAMLFile reads the file at path and parses it with FromYAML.
func FromYAMLFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read config file: %w", err)
	}
	return FromYAML(data)
}

// Validate checks structural invariants of the configuration.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Platform.WebsocketURL) == "" {
		return fmt.Errorf("config: websocket url required")
	}
	switch s.DefaultAccount {
	case AccountDemo, AccountReal:
	default:
		return fmt.Errorf("config: unknown account type %q", s.DefaultAccount)
	}
	if s.Timeouts.Call <= 0 || s.Timeouts.Handshake <= 0 {
		return fmt.Errorf("config: timeouts must be positive")
	}
	return nil
}
