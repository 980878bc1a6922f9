// Package config loads the bridge configuration from the environment.
//
// Sources, lowest precedence first: built-in defaults, a .env file,
// process environment, command-line flags bound by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Keys double as environment variable names (upper-cased by viper).
const (
	KeyToken                 = "github_token"
	KeyOwner                 = "github_owner"
	KeyAPIURL                = "github_api_url"
	KeyHost                  = "host"
	KeyPort                  = "port"
	KeyBuildURLPrefix        = "build_url_prefix"
	KeyUpstreamTimeout       = "upstream_timeout"
	KeyMaxConcurrentUpstream = "max_concurrent_upstream"
	KeyIdleTimeout           = "idle_timeout"
	KeyHeartbeatInterval     = "heartbeat_interval"
	KeyLogLevel              = "log_level"
	KeyLogPretty             = "log_pretty"
)

// Defaults.
const (
	DefaultAPIURL                = "https://api.github.com"
	DefaultHost                  = "0.0.0.0"
	DefaultPort                  = 3000
	DefaultBuildURLPrefix        = "https://lovable.dev/?autosubmit=true#prompt="
	DefaultUpstreamTimeout       = 30 * time.Second
	DefaultMaxConcurrentUpstream = 8
	DefaultIdleTimeout           = 30 * time.Minute
	DefaultHeartbeatInterval     = 30 * time.Second
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the validated process configuration.
type Config struct {
	Token                 string
	Owner                 string
	APIURL                string
	Host                  string
	Port                  int
	BuildURLPrefix        string
	UpstreamTimeout       time.Duration
	MaxConcurrentUpstream int
	IdleTimeout           time.Duration
	HeartbeatInterval     time.Duration
	LogLevel              string
	LogPretty             bool
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIURL, DefaultAPIURL)
	v.SetDefault(KeyHost, DefaultHost)
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyBuildURLPrefix, DefaultBuildURLPrefix)
	v.SetDefault(KeyUpstreamTimeout, DefaultUpstreamTimeout)
	v.SetDefault(KeyMaxConcurrentUpstream, DefaultMaxConcurrentUpstream)
	v.SetDefault(KeyIdleTimeout, DefaultIdleTimeout)
	v.SetDefault(KeyHeartbeatInterval, DefaultHeartbeatInterval)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogPretty, false)
}

// Load reads envFiles (missing files are skipped), then resolves every key
// through v. A nil v gets a fresh viper instance.
func Load(v *viper.Viper, envFiles ...string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	SetDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Token:                 strings.TrimSpace(v.GetString(KeyToken)),
		Owner:                 strings.TrimSpace(v.GetString(KeyOwner)),
		APIURL:                strings.TrimRight(v.GetString(KeyAPIURL), "/"),
		Host:                  v.GetString(KeyHost),
		Port:                  v.GetInt(KeyPort),
		BuildURLPrefix:        v.GetString(KeyBuildURLPrefix),
		UpstreamTimeout:       v.GetDuration(KeyUpstreamTimeout),
		MaxConcurrentUpstream: v.GetInt(KeyMaxConcurrentUpstream),
		IdleTimeout:           v.GetDuration(KeyIdleTimeout),
		HeartbeatInterval:     v.GetDuration(KeyHeartbeatInterval),
		LogLevel:              v.GetString(KeyLogLevel),
		LogPretty:             v.GetBool(KeyLogPretty),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can start a server.
func (c *Config) Validate() error {
	var problems []string

	if c.Token == "" {
		problems = append(problems, "GITHUB_TOKEN is required")
	}
	if c.Owner == "" {
		problems = append(problems, "GITHUB_OWNER is required")
	}
	if c.APIURL == "" {
		problems = append(problems, "GITHUB_API_URL must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT %d out of range", c.Port))
	}
	if c.MaxConcurrentUpstream < 1 {
		problems = append(problems, "MAX_CONCURRENT_UPSTREAM must be at least 1")
	}
	if c.UpstreamTimeout < 0 {
		problems = append(problems, "UPSTREAM_TIMEOUT must not be negative")
	}
	if c.IdleTimeout < 0 {
		problems = append(problems, "IDLE_TIMEOUT must not be negative")
	}
	if c.HeartbeatInterval <= 0 {
		problems = append(problems, "HEARTBEAT_INTERVAL must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
