// ABOUTME: Tests for environment-driven server configuration and its security rules.
// ABOUTME: Uses t.Setenv so each case sees an isolated NODEWIRE_* environment.
package server

import (
	"errors"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("/tmp/nodewire-home")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Home != "/tmp/nodewire-home" {
		t.Errorf("Home = %q", cfg.Home)
	}
	if cfg.Bind != "127.0.0.1:5000" {
		t.Errorf("Bind = %q", cfg.Bind)
	}
	if cfg.Backend != "sqlite" {
		t.Errorf("Backend = %q", cfg.Backend)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.MaxSessions != 100 {
		t.Errorf("MaxSessions = %d", cfg.MaxSessions)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("log settings = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.AllowRemote || cfg.AuthToken != "" {
		t.Error("expected remote access off by default")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("NODEWIRE_HOME", "/data/nw")
	t.Setenv("NODEWIRE_BIND", "localhost:9000")
	t.Setenv("NODEWIRE_BACKEND", "jsonl")
	t.Setenv("NODEWIRE_SESSION_TTL", "15m")
	t.Setenv("NODEWIRE_MAX_SESSIONS", "7")
	t.Setenv("NODEWIRE_LOG_FORMAT", "json")

	cfg, err := LoadConfig("/ignored")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Home != "/data/nw" || cfg.Bind != "localhost:9000" || cfg.Backend != "jsonl" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.SessionTTL != 15*time.Minute || cfg.MaxSessions != 7 || cfg.LogFormat != "json" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadConfigSecurityRules(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{
			name:    "remote without token",
			env:     map[string]string{"NODEWIRE_ALLOW_REMOTE": "true"},
			wantErr: ErrRemoteWithoutToken,
		},
		{
			name:    "wildcard bind without remote",
			env:     map[string]string{"NODEWIRE_BIND": "0.0.0.0:5000"},
			wantErr: ErrNonLoopbackBind,
		},
		{
			name:    "hostname bind without remote",
			env:     map[string]string{"NODEWIRE_BIND": "example.com:5000"},
			wantErr: ErrNonLoopbackBind,
		},
		{
			name: "remote with token",
			env: map[string]string{
				"NODEWIRE_ALLOW_REMOTE": "true",
				"NODEWIRE_AUTH_TOKEN":   "secret",
				"NODEWIRE_BIND":         "0.0.0.0:5000",
			},
		},
		{
			name: "ipv6 loopback",
			env:  map[string]string{"NODEWIRE_BIND": "[::1]:5000"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(t.TempDir())
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigBackendRules(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("NODEWIRE_BACKEND", "mongo")
		if _, err := LoadConfig(t.TempDir()); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("redis without url", func(t *testing.T) {
		t.Setenv("NODEWIRE_BACKEND", "redis")
		if _, err := LoadConfig(t.TempDir()); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("redis with url", func(t *testing.T) {
		t.Setenv("NODEWIRE_BACKEND", "redis")
		t.Setenv("NODEWIRE_REDIS_URL", "redis://localhost:6379/0")
		if _, err := LoadConfig(""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	t.Run("file backend without home", func(t *testing.T) {
		if _, err := LoadConfig(""); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("NODEWIRE_SESSION_TTL", "soon")
		if _, err := LoadConfig(t.TempDir()); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestLoadConfigIgnoresUnprefixedVariables(t *testing.T) {
	t.Setenv("HOME", "/home/someone")
	t.Setenv("BACKEND", "redis")
	t.Setenv("BIND", "0.0.0.0:80")
	t.Setenv("AUTH_TOKEN", "stray")
	t.Setenv("LOG_LEVEL", "trace")

	cfg, err := LoadConfig("/var/lib/nodewire-default")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Home != "/var/lib/nodewire-default" {
		t.Errorf("Home = %q, want the default data dir", cfg.Home)
	}
	if cfg.Backend != "sqlite" {
		t.Errorf("Backend = %q, want sqlite", cfg.Backend)
	}
	if cfg.Bind != "127.0.0.1:5000" {
		t.Errorf("Bind = %q", cfg.Bind)
	}
	if cfg.AuthToken != "" {
		t.Errorf("AuthToken = %q, want empty", cfg.AuthToken)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}
