// Package config provides configuration management for the FortiGate exporter.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	fgerrors "github.com/DarkTangent01/fortigate-prometheus-exporter/internal/errors"
)

// Config holds all configuration settings for the exporter.
type Config struct {
	InventoryFile        string        `yaml:"inventory_file"`
	MetricsDir           string        `yaml:"metrics_dir"`
	Port                 string        `yaml:"port"`
	ProbeTimeout         time.Duration `yaml:"probe_timeout"`
	FetchTimeout         time.Duration `yaml:"fetch_timeout"`
	MaxConcurrentDevices int           `yaml:"max_concurrent_devices"`
	CollectInterval      time.Duration `yaml:"collect_interval"`
	ScrapeRateLimit      float64       `yaml:"scrape_rate_limit"`
	LogLevel             string        `yaml:"log_level"`
	LogFormat            string        `yaml:"log_format"`
	UseTsnet             bool          `yaml:"use_tsnet"`
	TsnetHostname        string        `yaml:"tsnet_hostname"`
	TsnetStateDir        string        `yaml:"tsnet_state_dir"`
	TsnetAuthKey         string        `yaml:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		InventoryFile: "hosts.ini",
		MetricsDir:    "./metrics",
		Port:          "8000",
		ProbeTimeout:  3 * time.Second,
		FetchTimeout:  5 * time.Second,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// Load builds the configuration from defaults, the optional YAML file at path,
// and environment variables, in increasing precedence. An empty path skips the
// file. CONFIG_FILE is resolved by the CLI flag that supplies path.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.loadPathSettings()
	cfg.loadNetworkSettings()
	cfg.loadCollectionSettings()
	cfg.loadLoggingSettings()
	cfg.loadTsnetSettings()

	return cfg, nil
}

func (cfg *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	return nil
}

func (cfg *Config) loadPathSettings() {
	if v := os.Getenv("INVENTORY_FILE"); v != "" {
		cfg.InventoryFile = v
	}
	if v := os.Getenv("METRICS_DIR"); v != "" {
		cfg.MetricsDir = v
	}
}

func (cfg *Config) loadNetworkSettings() {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}

	if v := os.Getenv("SCRAPE_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.ScrapeRateLimit = f
		}
	}
}

func (cfg *Config) loadCollectionSettings() {
	if d, ok := durationFromEnv("PROBE_TIMEOUT"); ok {
		cfg.ProbeTimeout = d
	}
	if d, ok := durationFromEnv("FETCH_TIMEOUT"); ok {
		cfg.FetchTimeout = d
	}
	if d, ok := durationFromEnv("COLLECT_INTERVAL"); ok {
		cfg.CollectInterval = d
	}

	if v := os.Getenv("MAX_CONCURRENT_DEVICES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxConcurrentDevices = n
		}
	}
}

func (cfg *Config) loadLoggingSettings() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
}

func (cfg *Config) loadTsnetSettings() {
	if strings.ToLower(os.Getenv("USE_TSNET")) == "true" {
		cfg.UseTsnet = true
	}
	if v := os.Getenv("TSNET_HOSTNAME"); v != "" {
		cfg.TsnetHostname = v
	}
	if v := os.Getenv("TSNET_STATE_DIR"); v != "" {
		cfg.TsnetStateDir = v
	}
	cfg.TsnetAuthKey = os.Getenv("TS_AUTHKEY")
}

// durationFromEnv accepts Go durations ("3s") or whole seconds ("3").
func durationFromEnv(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, true
	}
	if sec, err := strconv.Atoi(v); err == nil {
		return time.Duration(sec) * time.Second, true
	}
	return 0, false
}

// Validate checks the configuration for consistency and required values.
func (cfg Config) Validate() error {
	if err := cfg.validatePaths(); err != nil {
		return err
	}

	if err := cfg.validateLogSettings(); err != nil {
		return err
	}

	if err := cfg.validateNetworkSettings(); err != nil {
		return err
	}

	if err := cfg.validateCollectionSettings(); err != nil {
		return err
	}

	return cfg.validateTsnetSettings()
}

func (cfg Config) validatePaths() error {
	if cfg.InventoryFile == "" {
		return fgerrors.ConfigurationError{Field: "INVENTORY_FILE", Reason: "cannot be empty"}
	}
	if cfg.MetricsDir == "" {
		return fgerrors.ConfigurationError{Field: "METRICS_DIR", Reason: "cannot be empty"}
	}
	return nil
}

func (cfg Config) validateLogSettings() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if cfg.LogLevel != "" && !contains(validLogLevels, cfg.LogLevel) {
		return fgerrors.ConfigurationError{
			Field:  "LOG_LEVEL",
			Value:  cfg.LogLevel,
			Reason: fmt.Sprintf("valid options: %v", validLogLevels),
		}
	}

	validLogFormats := []string{"json", "text"}
	if cfg.LogFormat != "" && !contains(validLogFormats, cfg.LogFormat) {
		return fgerrors.ConfigurationError{
			Field:  "LOG_FORMAT",
			Value:  cfg.LogFormat,
			Reason: fmt.Sprintf("valid options: %v", validLogFormats),
		}
	}
	return nil
}

func (cfg Config) validateNetworkSettings() error {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fgerrors.ConfigurationError{Field: "PORT", Value: cfg.Port, Reason: "must be a port number"}
	}

	if cfg.ScrapeRateLimit < 0 {
		return fgerrors.ConfigurationError{
			Field:  "SCRAPE_RATE_LIMIT",
			Value:  strconv.FormatFloat(cfg.ScrapeRateLimit, 'f', -1, 64),
			Reason: "cannot be negative",
		}
	}
	return nil
}

func (cfg Config) validateCollectionSettings() error {
	if cfg.ProbeTimeout <= 0 {
		return fgerrors.ConfigurationError{Field: "PROBE_TIMEOUT", Value: cfg.ProbeTimeout.String(), Reason: "must be positive"}
	}
	if cfg.FetchTimeout <= 0 {
		return fgerrors.ConfigurationError{Field: "FETCH_TIMEOUT", Value: cfg.FetchTimeout.String(), Reason: "must be positive"}
	}
	if cfg.CollectInterval < 0 {
		return fgerrors.ConfigurationError{Field: "COLLECT_INTERVAL", Value: cfg.CollectInterval.String(), Reason: "cannot be negative"}
	}
	if cfg.MaxConcurrentDevices < 0 {
		return fgerrors.ConfigurationError{
			Field:  "MAX_CONCURRENT_DEVICES",
			Value:  strconv.Itoa(cfg.MaxConcurrentDevices),
			Reason: "cannot be negative",
		}
	}
	return nil
}

func (cfg Config) validateTsnetSettings() error {
	if cfg.UseTsnet && cfg.TsnetHostname == "" {
		return fgerrors.ConfigurationError{Field: "TSNET_HOSTNAME", Reason: "required when USE_TSNET=true"}
	}
	return nil
}

// SetupTsnetStateDir creates and validates the tsnet state directory.
func SetupTsnetStateDir(dir string) string {
	if dir == "" {
		dir = "/tmp/tsnet-fortigate-exporter"
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		slog.Warn("failed to create state directory", "dir", dir, "error", err)
		return ""
	}
	slog.Info("using tsnet state directory", "dir", dir)
	return dir
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
