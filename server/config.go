// ABOUTME: Server configuration loaded from NODEWIRE_* environment variables via envconfig.
// ABOUTME: Enforces security constraint: remote access requires auth token.
package server

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/2389-research/nodewire/store"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix namespaces every variable read by LoadConfig.
const envPrefix = "NODEWIRE"

var (
	ErrRemoteWithoutToken = errors.New(
		"NODEWIRE_ALLOW_REMOTE is true but NODEWIRE_AUTH_TOKEN is not set; refusing to start without authentication",
	)
	ErrNonLoopbackBind = errors.New(
		"NODEWIRE_BIND is a non-loopback address but NODEWIRE_ALLOW_REMOTE is not true; set NODEWIRE_ALLOW_REMOTE=true and NODEWIRE_AUTH_TOKEN to allow remote access",
	)
)

// Config holds server configuration loaded from environment variables.
type Config struct {
	Home        string        `split_words:"true"`                   // data directory for file backends
	Bind        string        `default:"127.0.0.1:5000"`             // listen address
	AllowRemote bool          `split_words:"true" default:"false"`   // permit non-loopback binds
	AuthToken   string        `split_words:"true"`                   // bearer token for /api and /sessions
	Backend     string        `default:"sqlite"`                     // sqlite, redis, or jsonl
	RedisURL    string        `split_words:"true"`                   // required when Backend is redis
	SessionTTL  time.Duration `split_words:"true" default:"1h"`      // idle editor session lifetime
	MaxSessions int           `split_words:"true" default:"100"`     // live editor session cap
	LogLevel    string        `split_words:"true" default:"info"`    // zerolog level name
	LogFormat   string        `split_words:"true" default:"console"` // console or json
}

// LoadConfig reads NODEWIRE_* variables. defaultHome is used when
// NODEWIRE_HOME is unset.
func LoadConfig(defaultHome string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("process environment configuration: %w", err)
	}
	if cfg.Home == "" {
		cfg.Home = defaultHome
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate applies the security and backend rules.
func (c *Config) Validate() error {
	// Security: remote access requires auth token
	if c.AllowRemote && c.AuthToken == "" {
		return ErrRemoteWithoutToken
	}

	// Only 127.0.0.0/8, ::1, and "localhost" count as loopback.
	if !c.AllowRemote {
		if host, _, err := net.SplitHostPort(c.Bind); err == nil && host != "" {
			ip := net.ParseIP(host)
			switch {
			case ip != nil && ip.IsLoopback():
			case ip != nil:
				return fmt.Errorf("%w: NODEWIRE_BIND=%s", ErrNonLoopbackBind, c.Bind)
			case host == "localhost":
			default:
				return fmt.Errorf("%w: NODEWIRE_BIND=%s", ErrNonLoopbackBind, c.Bind)
			}
		}
	}

	switch c.Backend {
	case store.BackendSqlite, store.BackendJsonl:
		if c.Home == "" {
			return fmt.Errorf("backend %s needs NODEWIRE_HOME", c.Backend)
		}
	case store.BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("backend redis needs NODEWIRE_REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown NODEWIRE_BACKEND %q", c.Backend)
	}

	if c.MaxSessions < 1 {
		return fmt.Errorf("NODEWIRE_MAX_SESSIONS must be positive, got %d", c.MaxSessions)
	}
	return nil
}
