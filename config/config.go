// Package config reads the service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting the page service reads at startup.
type Config struct {
	Debug      bool   `env:"DEBUG"`
	ListenPort string `env:"FUNCTIONS_CUSTOMHANDLER_PORT" envDefault:"8080"`

	StorageConnectionString string `env:"STORAGE_CONNECTION_STRING"`
	ActionsTable            string `env:"ACTIONS_TABLE"             envDefault:"actions"`
	CompletionQueue         string `env:"COMPLETION_QUEUE"`

	// CatalogFile replaces table storage with a YAML catalog when set.
	CatalogFile     string        `env:"ACTIONS_CATALOG_FILE"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"5m"`

	RedisConnectionString string        `env:"REDIS_CONNECTION_STRING,required,notEmpty"`
	SessionTTL            time.Duration `env:"SESSION_TTL"             envDefault:"24h"`
	InFlightTTL           time.Duration `env:"INFLIGHT_TTL"            envDefault:"30s"`

	ProfileAPIURL     string        `env:"PROFILE_API_URL,required,notEmpty"`
	ProfileAPITimeout time.Duration `env:"PROFILE_API_TIMEOUT"               envDefault:"10s"`

	Auth0Domain    string        `env:"AUTH0_DOMAIN"`
	Auth0Audience  string        `env:"AUTH0_AUDIENCE"`
	AuthTestMode   bool          `env:"AUTH0_TEST_MODE"`
	AuthTestSecret string        `env:"AUTH_TEST_SECRET"`
	JWKSCacheTTL   time.Duration `env:"JWKS_CACHE_TTL"  envDefault:"5m"`

	CompletionWorkers int           `env:"COMPLETION_WORKERS"         envDefault:"2"`
	CompletionBuffer  int           `env:"COMPLETION_BUFFER"          envDefault:"64"`
	CompletionTimeout time.Duration `env:"COMPLETION_SEND_TIMEOUT"    envDefault:"30s"`
	CompletionHandoff time.Duration `env:"COMPLETION_HANDOFF_TIMEOUT" envDefault:"100ms"`

	OTELExporterEndpoint string `env:"OTEL_EXPORTER_ENDPOINT"`
	ServiceName          string `env:"OTEL_SERVICE_NAME"      envDefault:"footprint-action-page"`
	SecureCookies        bool   `env:"SECURE_COOKIES"         envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the service configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the combinations env tags cannot express.
func (c Config) Validate() error {
	var errs []error
	if c.CatalogFile == "" && c.StorageConnectionString == "" {
		errs = append(errs, errors.New("missing storage config: set STORAGE_CONNECTION_STRING or ACTIONS_CATALOG_FILE"))
	}
	if c.CompletionQueue != "" && c.StorageConnectionString == "" {
		errs = append(errs, errors.New("COMPLETION_QUEUE requires STORAGE_CONNECTION_STRING"))
	}
	if c.AuthTestMode {
		if c.AuthTestSecret == "" {
			errs = append(errs, errors.New("AUTH_TEST_SECRET is required in test mode"))
		}
	} else if c.Auth0Domain == "" || c.Auth0Audience == "" {
		errs = append(errs, errors.New("missing Auth0 config"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be greater than zero"))
	}
	if c.InFlightTTL <= 0 {
		errs = append(errs, errors.New("INFLIGHT_TTL must be greater than zero"))
	}
	if c.CompletionWorkers <= 0 {
		errs = append(errs, errors.New("COMPLETION_WORKERS must be greater than zero"))
	}
	return errors.Join(errs...)
}

// ListenAddr is the address the HTTP server binds to.
func (c Config) ListenAddr() string {
	return ":" + c.ListenPort
}
