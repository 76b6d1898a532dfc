package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"igharvest/pkg/ratelimit"
)

// Config holds all configuration options for a harvest run
type Config struct {
	// Session credential used for browsing and the metadata API
	Session SessionConfig `yaml:"session" json:"session"`

	// Input, output and per-account limits
	Harvest HarvestConfig `yaml:"harvest" json:"harvest"`

	// Image download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Discovery timings and image selection
	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`

	// Process-wide request ceiling
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SessionConfig holds the session credential settings
type SessionConfig struct {
	SessionID string `yaml:"session_id" json:"session_id"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	// CredentialFile is read when no session id is configured elsewhere
	CredentialFile string `yaml:"credential_file" json:"credential_file"`
	// Label selects the stored credential
	Label string `yaml:"label" json:"label"`
}

// HarvestConfig holds run-level settings
type HarvestConfig struct {
	InputFile       string `yaml:"input_file" json:"input_file"`
	OutputDirectory string `yaml:"output_directory" json:"output_directory"`
	Concurrency     int    `yaml:"concurrency" json:"concurrency"`
	// MaxPerAccount caps new images per account; 0 is unbounded
	MaxPerAccount int `yaml:"max_per_account" json:"max_per_account"`
	// Delay is a "min-max" range in milliseconds
	Delay string `yaml:"delay" json:"delay"`
	// DefaultTarget is how many posts discovery seeks when MaxPerAccount is 0
	DefaultTarget int `yaml:"default_target" json:"default_target"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Retries              int           `yaml:"retries" json:"retries"`
	BackoffInitial       time.Duration `yaml:"backoff_initial" json:"backoff_initial"`
	BackoffMultiplier    float64       `yaml:"backoff_multiplier" json:"backoff_multiplier"`
	Jitter               float64       `yaml:"jitter" json:"jitter"`
	Timeout              time.Duration `yaml:"timeout" json:"timeout"`
	MaxRedirects         int           `yaml:"max_redirects" json:"max_redirects"`
	BlockPrivateNetworks bool          `yaml:"block_private_networks" json:"block_private_networks"`
}

// DiscoveryConfig holds discovery timings
type DiscoveryConfig struct {
	LinkDeadline      time.Duration `yaml:"link_deadline" json:"link_deadline"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	GridWait          time.Duration `yaml:"grid_wait" json:"grid_wait"`
	CarouselLimit     int           `yaml:"carousel_limit" json:"carousel_limit"`
	MinImageWidth     int           `yaml:"min_image_width" json:"min_image_width"`
	MediaHosts        []string      `yaml:"media_hosts" json:"media_hosts"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerMinute of 0 disables the ceiling
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	Burst             int `yaml:"burst" json:"burst"`
}

// MetricsConfig holds the metrics endpoint settings
type MetricsConfig struct {
	// ListenAddress of "" disables the endpoint
	ListenAddress string `yaml:"listen_address" json:"listen_address"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			CredentialFile: "IG_SESSIONID.txt",
			Label:          "default",
		},
		Harvest: HarvestConfig{
			InputFile:       "ig.txt",
			OutputDirectory: "downloads",
			Concurrency:     2,
			MaxPerAccount:   0,
			Delay:           "1200-2500",
			DefaultTarget:   80,
		},
		Download: DownloadConfig{
			Retries:              3,
			BackoffInitial:       800 * time.Millisecond,
			BackoffMultiplier:    1.7,
			Jitter:               0.1,
			Timeout:              60 * time.Second,
			MaxRedirects:         5,
			BlockPrivateNetworks: true,
		},
		Discovery: DiscoveryConfig{
			LinkDeadline:      20 * time.Second,
			NavigationTimeout: 60 * time.Second,
			GridWait:          8 * time.Second,
			CarouselLimit:     15,
			MinImageWidth:     640,
			MediaHosts:        []string{"cdninstagram", "instagram.f", "fbcdn"},
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
			Burst:             1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	// The legacy variable is read first so the namespaced one wins.
	if sessionID := os.Getenv("IG_SESSIONID"); sessionID != "" {
		c.Session.SessionID = sessionID
	}
	if sessionID := os.Getenv("IGHARVEST_SESSION_ID"); sessionID != "" {
		c.Session.SessionID = sessionID
	}
	if userAgent := os.Getenv("IGHARVEST_USER_AGENT"); userAgent != "" {
		c.Session.UserAgent = userAgent
	}

	if input := os.Getenv("IGHARVEST_INPUT"); input != "" {
		c.Harvest.InputFile = input
	}
	if outputDir := os.Getenv("IGHARVEST_OUTPUT_DIR"); outputDir != "" {
		c.Harvest.OutputDirectory = outputDir
	}
	if v := os.Getenv("IGHARVEST_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err != nil {
			errs = append(errs, fmt.Errorf("IGHARVEST_CONCURRENCY: %w", err))
		} else {
			c.Harvest.Concurrency = n
		}
	}
	if v := os.Getenv("IGHARVEST_MAX_PER_ACCOUNT"); v != "" {
		if n, err := strconv.Atoi(v); err != nil {
			errs = append(errs, fmt.Errorf("IGHARVEST_MAX_PER_ACCOUNT: %w", err))
		} else {
			c.Harvest.MaxPerAccount = n
		}
	}
	if delay := os.Getenv("IGHARVEST_DELAY"); delay != "" {
		c.Harvest.Delay = delay
	}

	if logLevel := os.Getenv("IGHARVEST_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if addr := os.Getenv("IGHARVEST_METRICS_ADDR"); addr != "" {
		c.Metrics.ListenAddress = addr
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".igharvest.yaml",
		".igharvest.yml",
		filepath.Join(home, ".config", "igharvest", "config.yaml"),
		filepath.Join(home, ".config", "igharvest", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// DefaultConfigPath is where `config init` writes by default
func DefaultConfigPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "igharvest", "config.yaml")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Harvest.Concurrency < 1 {
		errs = append(errs, errors.New("concurrency must be at least 1"))
	}
	if c.Harvest.MaxPerAccount < 0 {
		errs = append(errs, errors.New("max per account cannot be negative"))
	}
	if c.Harvest.OutputDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if _, err := c.DelayRange(); err != nil {
		errs = append(errs, err)
	}

	if c.Download.Retries < 1 {
		errs = append(errs, errors.New("retries must be at least 1"))
	}
	if c.Download.BackoffMultiplier < 1 {
		errs = append(errs, errors.New("backoff multiplier must be at least 1"))
	}
	if c.Download.MaxRedirects < 0 {
		errs = append(errs, errors.New("max redirects cannot be negative"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	if c.Discovery.CarouselLimit < 1 {
		errs = append(errs, errors.New("carousel limit must be at least 1"))
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// DelayRange parses Harvest.Delay
func (c *Config) DelayRange() (ratelimit.DelayRange, error) {
	return ratelimit.ParseDelayRange(c.Harvest.Delay)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Redacted returns a copy safe to print, with the session id masked
func (c *Config) Redacted() *Config {
	out := *c
	out.Discovery.MediaHosts = append([]string(nil), c.Discovery.MediaHosts...)
	if id := c.Session.SessionID; id != "" {
		if len(id) > 4 {
			out.Session.SessionID = id[:4] + strings.Repeat("*", 8)
		} else {
			out.Session.SessionID = "********"
		}
	}
	return &out
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if sessionID, ok := flags["session-id"].(string); ok && sessionID != "" {
		c.Session.SessionID = sessionID
	}
	if input, ok := flags["input"].(string); ok && input != "" {
		c.Harvest.InputFile = input
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Harvest.OutputDirectory = outputDir
	}
	if concurrency, ok := flags["concurrency"].(int); ok && concurrency > 0 {
		c.Harvest.Concurrency = concurrency
	}
	if max, ok := flags["max"].(int); ok && max >= 0 {
		c.Harvest.MaxPerAccount = max
	}
	if delay, ok := flags["delay"].(string); ok && delay != "" {
		c.Harvest.Delay = delay
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if addr, ok := flags["metrics-addr"].(string); ok && addr != "" {
		c.Metrics.ListenAddress = addr
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igharvest.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
