// Package config loads the application configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env        string     `yaml:"env" env:"ENV" env-default:"local"`
	GitHub     GitHub     `yaml:"github"`
	HTTPServer HTTPServer `yaml:"http_server"`
}

type GitHub struct {
	Token string `yaml:"token" env:"GITHUB_TOKEN"`
	// BaseURL and GraphQLURL target GitHub Enterprise Server; empty means github.com.
	BaseURL             string        `yaml:"base_url" env:"GITHUB_BASE_URL"`
	GraphQLURL          string        `yaml:"graphql_url" env:"GITHUB_GRAPHQL_URL"`
	Timeout             time.Duration `yaml:"timeout" env:"GITHUB_TIMEOUT" env-default:"30s"`
	MaxAttempts         int           `yaml:"max_attempts" env:"GITHUB_MAX_ATTEMPTS" env-default:"3"`
	BaseDelay           time.Duration `yaml:"base_delay" env:"GITHUB_BASE_DELAY" env-default:"1s"`
	SecondaryLimitSleep time.Duration `yaml:"secondary_limit_sleep" env:"GITHUB_SECONDARY_LIMIT_SLEEP" env-default:"30s"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"5s"`
	// WriteTimeout and RequestTimeout default to zero, which disables them.
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"HTTP_REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

// Load reads path when given, otherwise the environment alone. A .env file in the working
// directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Env {
	case "local", "prod":
	default:
		return fmt.Errorf("invalid env %q: must be local or prod", c.Env)
	}
	if c.GitHub.Token == "" {
		return errors.New("github token is required: set GITHUB_TOKEN or github.token")
	}
	if c.GitHub.MaxAttempts < 1 {
		return fmt.Errorf("github.max_attempts must be at least 1, got %d", c.GitHub.MaxAttempts)
	}
	return nil
}
