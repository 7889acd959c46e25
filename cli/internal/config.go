package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/afrinbhuiyan/sales-dashboard/internal/salesapi"
	"github.com/afrinbhuiyan/sales-dashboard/internal/tokenstore"
)

// configEnvVar overrides the config file location
const configEnvVar = "SALESDASH_CONFIG"

// Context represents a named configuration context (like kubectl contexts)
type Context struct {
	API struct {
		BaseURL    string        `yaml:"base_url"`
		TokenType  string        `yaml:"token_type,omitempty"`
		PageSize   int           `yaml:"page_size,omitempty"`
		Timeout    time.Duration `yaml:"timeout,omitempty"`
		MaxRetries int           `yaml:"max_retries,omitempty"`
	} `yaml:"api"`
	TokenStore tokenstore.Config `yaml:"token_store"`
	Rendering  struct {
		Theme string `yaml:"theme"`
	} `yaml:"rendering"`
}

// Config represents the CLI configuration with multiple contexts
type Config struct {
	CurrentContext string              `yaml:"current-context"`
	Contexts       map[string]*Context `yaml:"contexts"`
}

// NewContext returns a context for baseURL with file token storage
func NewContext(baseURL string) *Context {
	ctx := &Context{}
	ctx.API.BaseURL = baseURL
	ctx.API.TokenType = salesapi.DefaultTokenType
	ctx.TokenStore.Backend = tokenstore.BackendFile
	ctx.Rendering.Theme = "auto"
	return ctx
}

// DefaultConfig returns the default configuration with a single "default" context
func DefaultConfig() *Config {
	return &Config{
		CurrentContext: "default",
		Contexts: map[string]*Context{
			"default": NewContext(salesapi.DefaultBaseURL),
		},
	}
}

// GetCurrentContext returns the current active context
func (c *Config) GetCurrentContext() (*Context, error) {
	if c.CurrentContext == "" {
		return nil, fmt.Errorf("no current context set")
	}

	ctx, ok := c.Contexts[c.CurrentContext]
	if !ok {
		return nil, fmt.Errorf("current context %q not found", c.CurrentContext)
	}

	return ctx, nil
}

// SetCurrentContext sets the current active context
func (c *Config) SetCurrentContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q does not exist", name)
	}
	c.CurrentContext = name
	return nil
}

// AddContext adds or updates a context
func (c *Config) AddContext(name string, ctx *Context) {
	if c.Contexts == nil {
		c.Contexts = make(map[string]*Context)
	}
	c.Contexts[name] = ctx
}

// DeleteContext removes a context
func (c *Config) DeleteContext(name string) error {
	if name == c.CurrentContext {
		return fmt.Errorf("cannot delete current context %q", name)
	}
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q does not exist", name)
	}
	delete(c.Contexts, name)
	return nil
}

// GetConfigPath returns the path to the config file, ~/.salesdash unless
// SALESDASH_CONFIG is set
func GetConfigPath() (string, error) {
	if p := os.Getenv(configEnvVar); p != "" {
		return p, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".salesdash"), nil
}

// LoadConfig loads configuration, creating the file with defaults on first use
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		defaultConfig := DefaultConfig()
		if err := SaveConfig(defaultConfig); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return defaultConfig, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure we have a valid current context
	if config.CurrentContext == "" && len(config.Contexts) > 0 {
		for name := range config.Contexts {
			config.CurrentContext = name
			break
		}
	}

	return &config, nil
}

// SaveConfig writes the configuration file. It may hold a Redis password, so
// it is readable by the owner only.
func SaveConfig(config *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// StoreConfig resolves the token store settings for the named context. File
// stores default to a per-context path so contexts never share a token.
func (ctx *Context) StoreConfig(contextName string) tokenstore.Config {
	cfg := ctx.TokenStore
	if cfg.Backend == "" {
		cfg.Backend = tokenstore.BackendFile
	}
	if cfg.Backend == tokenstore.BackendFile && cfg.Path == "" {
		cfg.Path = tokenstore.DefaultFilePath(contextName)
	}
	if cfg.Backend == tokenstore.BackendRedis && cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "salesdash:" + contextName
	}
	return cfg
}

// ClientOptions maps the context's API settings onto client options
func (ctx *Context) ClientOptions() salesapi.Options {
	return salesapi.Options{
		BaseURL:        ctx.API.BaseURL,
		TokenType:      ctx.API.TokenType,
		PageSize:       ctx.API.PageSize,
		RequestTimeout: ctx.API.Timeout,
		MaxRetries:     ctx.API.MaxRetries,
	}
}

// Theme returns the glamour style for this context
func (ctx *Context) Theme() string {
	if ctx == nil || ctx.Rendering.Theme == "" {
		return "auto"
	}
	return ctx.Rendering.Theme
}
