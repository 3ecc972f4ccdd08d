package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Local storage
	DataDir     string
	CacheDBPath string

	// Backend selection
	DataBackend string

	// Feed backend (remote document API)
	FeedBaseURL  string
	AMQPURL      string
	AMQPExchange string
	PollInterval time.Duration
	HTTPTimeout  time.Duration

	// Sync retry tuning
	RetryBase time.Duration
	RetryCap  time.Duration

	// Logging
	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8082"),

		DataDir:     getEnv("DATA_DIR", "./data"),
		CacheDBPath: getEnv("CACHE_DB_PATH", ""),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		FeedBaseURL:  getEnv("FEED_BASE_URL", ""),
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "dinerito"),
		PollInterval: getEnvDuration("POLL_INTERVAL", 30*time.Second),
		HTTPTimeout:  getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		RetryBase: getEnvDuration("RETRY_BASE", 3*time.Second),
		RetryCap:  getEnvDuration("RETRY_CAP", 60*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
	if cfg.CacheDBPath == "" {
		cfg.CacheDBPath = filepath.Join(cfg.DataDir, "cache.db")
	}
	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "feed"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataDir == "" {
		errors = append(errors, "data directory cannot be empty")
	} else if _, err := os.Stat(c.DataDir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.DataDir, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create data directory '%s': %v", c.DataDir, err))
		}
	}

	// Validate feed configuration if backend is feed
	if c.DataBackend == "feed" {
		if c.FeedBaseURL == "" {
			errors = append(errors, "feed base URL is required when using feed backend")
		} else if parsedURL, err := url.Parse(c.FeedBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid feed base URL '%s': %v", c.FeedBaseURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid feed base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}

		if c.PollInterval < time.Second {
			errors = append(errors, fmt.Sprintf("invalid poll interval %v: must be at least 1 second", c.PollInterval))
		}
		if c.HTTPTimeout < time.Second {
			errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at least 1 second", c.HTTPTimeout))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate retry tuning
	if c.RetryBase < time.Second {
		errors = append(errors, fmt.Sprintf("invalid retry base %v: must be at least 1 second", c.RetryBase))
	}
	if c.RetryCap < c.RetryBase {
		errors = append(errors, fmt.Sprintf("invalid retry cap %v: must be at least the retry base (%v)", c.RetryCap, c.RetryBase))
	}

	// Validate log level
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
