package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/afrinbhuiyan/sales-dashboard/internal/dashboard"
	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
	"github.com/afrinbhuiyan/sales-dashboard/internal/tokenstore"
)

// expandEnvVars expands environment variables in the format ${VAR} or $VAR
func expandEnvVars(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

// WebServerConfig represents the web dashboard configuration
type WebServerConfig struct {
	Server     HTTPServer        `yaml:"server"`
	API        APIConfig         `yaml:"api"`
	TokenStore tokenstore.Config `yaml:"token_store"`
	Session    SessionConfig     `yaml:"session"`
	RateLimit  RateLimitConfig   `yaml:"rate_limit"`
	Chart      ChartConfig       `yaml:"chart"`
	Notice     string            `yaml:"notice"` // Markdown shown above the dashboard
	Logging    LoggingConfig     `yaml:"logging"`
}

// HTTPServer holds HTTP server configuration
type HTTPServer struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr is the listen address
func (s HTTPServer) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// APIConfig describes the upstream sales API
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	TokenType  string        `yaml:"token_type"`
	PageSize   int           `yaml:"page_size"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// ClientOptions converts the API section into sales client options
func (a APIConfig) ClientOptions() salesapi.Options {
	return salesapi.Options{
		BaseURL:        a.BaseURL,
		TokenType:      a.TokenType,
		PageSize:       a.PageSize,
		RequestTimeout: a.Timeout,
		MaxRetries:     a.MaxRetries,
	}
}

// SessionConfig holds the preferences cookie configuration
type SessionConfig struct {
	Secret     string `yaml:"secret"` // 32-byte base64-encoded key
	Secure     bool   `yaml:"secure"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// RateLimitConfig limits /api requests. Zero requests per second disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// ChartConfig bounds how many sales the chart aggregates
type ChartConfig struct {
	Limit int `yaml:"limit"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // Log level: debug, info, warn, error
	Format string `yaml:"format"` // Log format: json, text
}

// DefaultConfigPaths defines the default locations to search for web configuration files
var DefaultConfigPaths = []string{
	"./config.yaml",
	"./config.yml",
	"./configs/web.yaml",
	"./configs/web.yml",
	"/etc/salesdash/web.yaml",
	"/etc/salesdash/web.yml",
}

// Environment overrides
const (
	EnvBaseURL       = "SALES_API_BASE_URL"
	EnvSessionSecret = "SESSION_SECRET"
	EnvRedisAddr     = "REDIS_ADDR"
)

// Default returns the configuration used when no file is found
func Default() *WebServerConfig {
	return &WebServerConfig{
		Server: HTTPServer{
			Host:            "localhost",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		API: APIConfig{
			BaseURL:   salesapi.DefaultBaseURL,
			TokenType: salesapi.DefaultTokenType,
			PageSize:  salesapi.DefaultPageSize,
			Timeout:   salesapi.DefaultRequestTimeout,
		},
		TokenStore: tokenstore.Config{
			Backend: tokenstore.BackendMemory,
		},
		Session: SessionConfig{
			MaxAgeDays: 30,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Chart: ChartConfig{
			Limit: dashboard.DefaultChartLimit,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads the web configuration from the specified file or default locations.
// A .env file in the working directory is loaded into the environment first.
func Load(configPath string) (*WebServerConfig, error) {
	if fileExists(".env") {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	config := Default()

	// If no config path is provided, search in default locations
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" && fileExists(configPath) {
		fmt.Printf("[CONFIG] Loading web config from: %s\n", configPath)
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		data = expandEnvVars(data)

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if configPath != "" {
		return nil, fmt.Errorf("config file %s not found", configPath)
	} else {
		fmt.Printf("[CONFIG] No web config file found, using defaults\n")
	}

	applyEnv(config)

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnv lets environment variables take precedence over the file
func applyEnv(config *WebServerConfig) {
	if baseURL := os.Getenv(EnvBaseURL); baseURL != "" {
		config.API.BaseURL = baseURL
		fmt.Printf("[CONFIG] Using sales API URL from environment: %s\n", baseURL)
	}
	if secret := os.Getenv(EnvSessionSecret); secret != "" {
		config.Session.Secret = secret
	}
	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		config.TokenStore.Backend = tokenstore.BackendRedis
		config.TokenStore.Redis.Address = addr
		fmt.Printf("[CONFIG] Using Redis token store from environment: %s\n", addr)
	}
	if config.TokenStore.Backend == tokenstore.BackendRedis && config.TokenStore.Redis.Prefix == "" {
		config.TokenStore.Redis.Prefix = "salesdash:web"
	}
}

// findConfigFile searches for a configuration file in default locations
func findConfigFile() string {
	for _, path := range DefaultConfigPaths {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// validate performs basic validation on the web configuration
func validate(config *WebServerConfig) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	u, err := url.Parse(config.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", config.API.BaseURL)
	}
	if config.API.PageSize < 0 {
		return fmt.Errorf("api.page_size cannot be negative")
	}
	if config.API.MaxRetries < 0 {
		return fmt.Errorf("api.max_retries cannot be negative")
	}

	switch config.TokenStore.Backend {
	case "", tokenstore.BackendMemory, tokenstore.BackendFile:
	case tokenstore.BackendRedis:
		if config.TokenStore.Redis.Address == "" {
			return fmt.Errorf("token_store.redis.address is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown token_store.backend %q", config.TokenStore.Backend)
	}

	if config.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.requests_per_second cannot be negative")
	}
	if config.RateLimit.RequestsPerSecond > 0 && config.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit.burst must be at least 1")
	}

	if config.Chart.Limit < 1 {
		return fmt.Errorf("chart.limit must be positive")
	}

	return nil
}
