package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the softphoned process.
// All values must come from env (or env-file loaded by the process runner).
// Connection profiles are runtime input, not configuration; only their
// defaults (bind address/port) live here.
type Config struct {
	App  AppConfig
	Auth AuthConfig
	SIP  SIPConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type AuthConfig struct {
	APISecret string
	TokenTTL  time.Duration
}

type SIPConfig struct {
	// BindPort is the default local SIP port used when a profile does not
	// specify one.
	BindPort int

	// BindAddr is optional; empty means "pick the best local interface".
	BindAddr string

	// ProfileFile optionally points at a YAML connection profile the daemon
	// initializes from at startup. Empty means wait for an init command.
	ProfileFile string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.Auth.APISecret = os.Getenv("API_SECRET")
	if raw := strings.TrimSpace(os.Getenv("API_TOKEN_TTL")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("API_TOKEN_TTL is not a duration: %w", err))
		} else {
			c.Auth.TokenTTL = d
		}
	}

	if raw := strings.TrimSpace(os.Getenv("SIP_BIND_PORT")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("SIP_BIND_PORT is not an integer: %w", err))
		} else {
			c.SIP.BindPort = n
		}
	}
	c.SIP.BindAddr = strings.TrimSpace(os.Getenv("SIP_BIND_ADDR"))
	c.SIP.ProfileFile = strings.TrimSpace(os.Getenv("SIP_PROFILE_FILE"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills local-friendly defaults.
// Production must be explicit about everything it relies on.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		c.App.Env = "local"
	}
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.App.Port < 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Auth.APISecret == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("API_SECRET is required in production"))
		} else {
			// Local-friendly default so a dev run needs zero setup.
			c.Auth.APISecret = "softphone-local-secret"
		}
	}
	if c.Auth.TokenTTL <= 0 {
		// Control tokens live as long as a typical desktop session.
		c.Auth.TokenTTL = 12 * time.Hour
	}

	if c.SIP.BindPort == 0 {
		c.SIP.BindPort = 5060
	}
	if c.SIP.BindPort < 0 || c.SIP.BindPort > 65535 {
		errs = append(errs, fmt.Errorf("SIP_BIND_PORT must be a valid port, got %d", c.SIP.BindPort))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func mustInt(key string) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s is not an integer: %w", key, err)
	}
	return n, nil
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		return 0, append(errs, err)
	}
	return n, errs
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return errors.New(strings.Join(msgs, "; "))
}
