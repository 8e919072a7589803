// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON file, a .env file and
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"port" env:"SERVER_ADDRESS"`

	// DatabaseDriver selects the local account store backend.
	DatabaseDriver string `json:"database_driver" env:"DATABASE_DRIVER"`
	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn" env:"DATABASE_DSN"`

	// ProfileServiceURL is the base URL of the remote profile service.
	ProfileServiceURL string `json:"profile_service_url" env:"PROFILE_SERVICE_URL"`
	// ProfileTimeout bounds every call to the profile service.
	ProfileTimeout time.Duration `json:"profile_timeout" env:"PROFILE_TIMEOUT"`
	// CompensationTimeout bounds the rollback delete of a local account.
	CompensationTimeout time.Duration `json:"compensation_timeout" env:"COMPENSATION_TIMEOUT"`

	JWTSecret string        `json:"jwt_secret" env:"JWT_SECRET"`
	JWTIssuer string        `json:"jwt_issuer" env:"JWT_ISSUER"`
	TokenTTL  time.Duration `json:"token_ttl" env:"TOKEN_TTL"`

	// ResetTokenTTL is how long a password reset token stays valid.
	ResetTokenTTL time.Duration `json:"reset_token_ttl" env:"RESET_TOKEN_TTL"`
	// ResetCleanupInterval is the period of the expired reset token cleaner.
	ResetCleanupInterval time.Duration `json:"reset_cleanup_interval" env:"RESET_CLEANUP_INTERVAL"`
	// ResetTokenDebug logs issued reset tokens at Debug. Development only.
	ResetTokenDebug bool `json:"reset_token_debug" env:"RESET_TOKEN_DEBUG"`

	// RedisAddr enables login lockout tracking when set.
	RedisAddr        string        `json:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword    string        `json:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB          int           `json:"redis_db" env:"REDIS_DB"`
	LoginMaxAttempts int           `json:"login_max_attempts" env:"LOGIN_MAX_ATTEMPTS"`
	LoginLockout     time.Duration `json:"login_lockout" env:"LOGIN_LOCKOUT"`

	// RateLimitRPM is the per-client budget for public auth endpoints. Zero disables it.
	RateLimitRPM int `json:"rate_limit_rpm" env:"RATE_LIMIT_RPM"`

	LogLevel     string `json:"log_level" env:"LOG_LEVEL"`
	OTLPEndpoint string `json:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `json:"service_name" env:"SERVICE_NAME"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert" env:"TLS_CERT"`
	TLSKey  string `json:"tls_key" env:"TLS_KEY"`

	// Config is the path to the Config file.
	Config string `json:"-" env:"CONFIG"`
}

// Parse parses the command-line flags, the config file and environment
// variables. It returns a pointer to the Options struct containing the
// parsed configuration values and exits the process on malformed input.
func Parse() *Options {
	options, err := parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("error while loading config: %v", err)
	}
	return options
}

func parse(fs *flag.FlagSet, args []string) (*Options, error) {
	options := &Options{}

	fs.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.DatabaseDriver, "driver", DriverPostgres, "database driver (postgres|sqlite)")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.ProfileServiceURL, "profile-url", "", "profile service base URL")
	fs.DurationVar(&options.ProfileTimeout, "profile-timeout", 5*time.Second, "profile service call timeout")
	fs.DurationVar(&options.CompensationTimeout, "compensation-timeout", 5*time.Second, "local rollback timeout")
	fs.StringVar(&options.JWTSecret, "jwt-secret", "", "HMAC secret for access tokens")
	fs.StringVar(&options.JWTIssuer, "jwt-issuer", "gophauth", "access token issuer")
	fs.DurationVar(&options.TokenTTL, "token-ttl", time.Hour, "access token lifetime")
	fs.DurationVar(&options.ResetTokenTTL, "reset-ttl", 30*time.Minute, "password reset token lifetime")
	fs.DurationVar(&options.ResetCleanupInterval, "reset-cleanup", time.Hour, "reset token cleanup interval")
	fs.BoolVar(&options.ResetTokenDebug, "reset-token-debug", false, "log reset tokens at debug level (development only)")
	fs.StringVar(&options.RedisAddr, "redis", "", "redis address for login lockout")
	fs.IntVar(&options.LoginMaxAttempts, "login-attempts", 5, "failed logins before lockout")
	fs.DurationVar(&options.LoginLockout, "login-lockout", 15*time.Minute, "lockout window")
	fs.IntVar(&options.RateLimitRPM, "rate-limit", 600, "requests per minute per client")
	fs.StringVar(&options.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&options.ServiceName, "service-name", "gophauth", "service name for telemetry")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	if err := env.Parse(options); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return options, nil
}

// fileDuration accepts "1m30s" style strings as well as integer nanoseconds.
type fileDuration time.Duration

func (d *fileDuration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = fileDuration(time.Duration(value))
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = fileDuration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}

// UnmarshalJSON decodes the config file, reading duration fields through fileDuration.
func (o *Options) UnmarshalJSON(data []byte) error {
	type plain Options
	aux := struct {
		*plain
		ProfileTimeout       *fileDuration `json:"profile_timeout"`
		CompensationTimeout  *fileDuration `json:"compensation_timeout"`
		TokenTTL             *fileDuration `json:"token_ttl"`
		ResetTokenTTL        *fileDuration `json:"reset_token_ttl"`
		ResetCleanupInterval *fileDuration `json:"reset_cleanup_interval"`
		LoginLockout         *fileDuration `json:"login_lockout"`
	}{
		plain:                (*plain)(o),
		ProfileTimeout:       (*fileDuration)(&o.ProfileTimeout),
		CompensationTimeout:  (*fileDuration)(&o.CompensationTimeout),
		TokenTTL:             (*fileDuration)(&o.TokenTTL),
		ResetTokenTTL:        (*fileDuration)(&o.ResetTokenTTL),
		ResetCleanupInterval: (*fileDuration)(&o.ResetCleanupInterval),
		LoginLockout:         (*fileDuration)(&o.LoginLockout),
	}
	return json.Unmarshal(data, &aux)
}

// Validate reports the first missing or inconsistent setting.
func (o *Options) Validate() error {
	switch o.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", o.DatabaseDriver)
	}
	if o.DatabaseDSN == "" {
		return errors.New("database DSN is required")
	}
	if o.ProfileServiceURL == "" {
		return errors.New("profile service URL is required")
	}
	if o.JWTSecret == "" {
		return errors.New("JWT secret is required")
	}
	if o.ProfileTimeout <= 0 {
		return errors.New("profile timeout must be positive")
	}
	return nil
}
