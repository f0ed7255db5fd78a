package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config captures process-level configuration. It is built once at startup and
// passed by value; nothing re-reads the environment after FromEnv returns.
type Config struct {
	Addr        string
	Env         string
	DatabaseURL string
	Redis       RedisConfig
	Audit       AuditConfig
	JWT         JWTConfig
	CookiePath  string
}

// JWTConfig holds the two signing secrets. Access and refresh tokens use
// distinct keys so a leaked short-lived token can never be replayed as a
// long-lived one.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
}

// RedisConfig configures the optional Redis connection used by the login
// lockout store. An empty URL disables Redis and falls back to memory.
type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuditConfig configures the optional Kafka audit sink. Empty brokers keep
// audit events on the structured log only.
type AuditConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables so main stays lean.
// Secrets honor the *_FILE convention (vault/docker secret mounts) before
// falling back to the plain variable.
func FromEnv() (Config, error) {
	addr := os.Getenv("CLAVIS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	env := os.Getenv("CLAVIS_ENV")
	if env == "" {
		env = EnvDevelopment
	}

	accessSecret, err := resolveSecret("JWT_SECRET")
	if err != nil {
		return Config{}, err
	}
	refreshSecret, err := resolveSecret("JWT_REFRESH_SECRET")
	if err != nil {
		return Config{}, err
	}
	if env == EnvProduction && (len(accessSecret) == 0 || len(refreshSecret) == 0) {
		return Config{}, fmt.Errorf("JWT_SECRET and JWT_REFRESH_SECRET are required in production")
	}
	// Development convenience only; production bails out above.
	if len(accessSecret) == 0 {
		accessSecret = []byte("dev-access-secret-change-in-production")
	}
	if len(refreshSecret) == 0 {
		refreshSecret = []byte("dev-refresh-secret-change-in-production")
	}

	cookiePath := os.Getenv("CLAVIS_COOKIE_PATH")
	if cookiePath == "" {
		cookiePath = "/api/users"
	}

	var brokers []string
	if raw := os.Getenv("AUDIT_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	topic := os.Getenv("AUDIT_KAFKA_TOPIC")
	if topic == "" {
		topic = "clavis.audit"
	}

	return Config{
		Addr:        addr,
		Env:         env,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Audit: AuditConfig{
			Brokers: brokers,
			Topic:   topic,
		},
		JWT: JWTConfig{
			AccessSecret:  accessSecret,
			RefreshSecret: refreshSecret,
		},
		CookiePath: cookiePath,
	}, nil
}

// IsProduction reports whether the process runs with production hardening
// (secure cookies, mandatory secrets).
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// resolveSecret reads NAME_FILE (a mounted secret path) first, then NAME.
func resolveSecret(name string) ([]byte, error) {
	if path := os.Getenv(name + "_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s_FILE: %w", name, err)
		}
		return []byte(strings.TrimSpace(string(raw))), nil
	}
	if v := os.Getenv(name); v != "" {
		return []byte(v), nil
	}
	return nil, nil
}
