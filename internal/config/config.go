// Package config loads the server configuration from the environment.
//
// Values come from environment variables (a .env file is loaded into the
// environment by cmd/server before Load runs). CONFIG_FILE may point at a
// YAML/TOML/JSON file whose keys use the same names; the environment wins.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MinJWTSecretLength matches the check in auth.NewTokenService.
const MinJWTSecretLength = 16

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Env       string
	LogLevel  slog.Level
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Path string
}

type AuthConfig struct {
	JWTSecret  string
	JWTIssuer  string
	TokenTTL   time.Duration
	BcryptCost int
}

type RateLimitConfig struct {
	// Login is a limiter rate such as "20-M". Empty disables throttling.
	Login string
	// TrustProxy keys the limiter on X-Forwarded-For / X-Real-IP instead
	// of the TCP peer. Set it only behind a reverse proxy.
	TrustProxy bool
}

type RedisConfig struct {
	// URL is optional; without it rate limit counters stay in memory.
	URL string
}

// IsDevelopment reports whether APP_ENV is development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("PORT", 8080)
	v.SetDefault("DB_PATH", "data/studytrackr.db")
	v.SetDefault("JWT_ISSUER", "studytrackr")
	v.SetDefault("TOKEN_TTL", "168h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("LOGIN_RATE", "20-M")
	v.SetDefault("TRUST_PROXY", false)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()

	if p := v.GetString("CONFIG_FILE"); p != "" {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", p, err)
		}
	}

	cfg := &Config{
		Server:   ServerConfig{Port: v.GetInt("PORT")},
		Database: DatabaseConfig{Path: v.GetString("DB_PATH")},
		Auth: AuthConfig{
			JWTSecret:  v.GetString("JWT_SECRET"),
			JWTIssuer:  v.GetString("JWT_ISSUER"),
			TokenTTL:   v.GetDuration("TOKEN_TTL"),
			BcryptCost: v.GetInt("BCRYPT_COST"),
		},
		RateLimit: RateLimitConfig{
			Login:      v.GetString("LOGIN_RATE"),
			TrustProxy: v.GetBool("TRUST_PROXY"),
		},
		Redis:     RedisConfig{URL: v.GetString("REDIS_URL")},
		Env:       strings.ToLower(v.GetString("APP_ENV")),
	}

	level, err := parseLevel(v.GetString("LOG_LEVEL"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLength))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Server.Port))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be a positive duration"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
