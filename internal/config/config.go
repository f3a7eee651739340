package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the console process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App     AppConfig
	Backend BackendConfig
	Auth    AuthConfig
	Poll    PollConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type BackendConfig struct {
	// BaseURL is the interview backend API root, e.g. https://api.example.com/api
	BaseURL string

	// HTTPTimeout bounds every single request; polling retries on the next tick.
	HTTPTimeout time.Duration
}

type AuthConfig struct {
	// BaseURL is the token issuer root. Empty means the backend base URL.
	BaseURL string

	// TokenFile caches the access/refresh pair between invocations.
	TokenFile string

	// RefreshMargin refreshes the access token this long before its expiry.
	RefreshMargin time.Duration
}

type PollConfig struct {
	// Interval between call status refreshes while a call is live.
	Interval time.Duration
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	if v := strings.TrimSpace(os.Getenv("APP_PORT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("APP_PORT must be an integer, got %q", v))
		}
		c.App.Port = n
	}

	c.Backend.BaseURL = strings.TrimSpace(os.Getenv("API_BASE_URL"))
	c.Backend.HTTPTimeout = optDuration("HTTP_TIMEOUT")

	c.Auth.BaseURL = strings.TrimSpace(os.Getenv("AUTH_BASE_URL"))
	c.Auth.TokenFile = strings.TrimSpace(os.Getenv("TOKEN_FILE"))
	c.Auth.RefreshMargin = optDuration("TOKEN_REFRESH_MARGIN")

	c.Poll.Interval = optDuration("POLL_INTERVAL")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		c.App.Env = "local"
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port == 0 {
		c.App.Port = 8090
	}
	if c.App.Port < 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("API_BASE_URL is required"))
	} else if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("API_BASE_URL must be an http(s) URL, got %q", c.Backend.BaseURL))
	}
	if c.Backend.HTTPTimeout <= 0 {
		c.Backend.HTTPTimeout = 30 * time.Second
	}

	if c.Auth.BaseURL == "" {
		c.Auth.BaseURL = c.Backend.BaseURL
	}
	if c.Auth.TokenFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			errs = append(errs, errors.New("TOKEN_FILE is required when no home directory is available"))
		} else {
			c.Auth.TokenFile = filepath.Join(home, ".interviewer", "tokens.json")
		}
	}
	if c.Auth.RefreshMargin <= 0 {
		c.Auth.RefreshMargin = 30 * time.Second
	}

	if c.Poll.Interval <= 0 {
		c.Poll.Interval = 10 * time.Second
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func optDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
