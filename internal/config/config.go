package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	ENV           string              `mapstructure:"env"`
	Server        ServerConfig        `mapstructure:"server"`
	API           APIConfig           `mapstructure:"api"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

// ServerConfig holds dashboard gateway configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// APIConfig describes the coaching REST backend
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// RequestTimeout of 0 leaves the http.Client default (no timeout).
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// NotificationsConfig holds notification channel defaults
type NotificationsConfig struct {
	DefaultDuration time.Duration `mapstructure:"default_duration"`
}

var keys = []string{
	"env",
	"server.host",
	"server.port",
	"server.shutdown_timeout",
	"api.base_url",
	"api.request_timeout",
	"notifications.default_duration",
}

// Load reads configuration from the environment, optionally seeded from envFile.
// Variables already set in the process environment win over the file.
// A named envFile that cannot be read is an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		envMap, err := godotenv.Read(envFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
		}
		for k, val := range envMap {
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, val)
			}
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "prod")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("api.base_url", "http://localhost:8080/api")
	v.SetDefault("api.request_timeout", time.Duration(0))
	v.SetDefault("notifications.default_duration", 3*time.Second)
}

// Validate ensures required fields are present
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("server.port is required")
	}
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		return fmt.Errorf("api.base_url is invalid: %w", err)
	}
	if c.API.RequestTimeout < 0 {
		return errors.New("api.request_timeout must not be negative")
	}
	if c.Notifications.DefaultDuration <= 0 {
		return errors.New("notifications.default_duration must be positive")
	}
	return nil
}

// ServerAddr returns host:port for the gateway listener
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
