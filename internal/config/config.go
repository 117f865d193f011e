package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/event-tables/internal/calculator"
	"github.com/eugenenazirov/event-tables/internal/history"
	"github.com/eugenenazirov/event-tables/internal/storage"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultHistoryDSN     = "event-tables.db"
	defaultLogLevel       = "info"
	defaultEnvFile        = ".env"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	TableCapacity        int
	GuestPolicy          calculator.GuestPolicy
	HistoryDriver        string
	HistoryDSN           string
	HistorySize          int
	LogLevel             string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	TableCapacity        int           `yaml:"table_capacity"`
	GuestPolicy          string        `yaml:"guest_policy"`
	LogLevel             string        `yaml:"log_level"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	History              yamlHistory   `yaml:"history"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlHistory represents the history section in YAML.
type yamlHistory struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Size   int    `yaml:"size"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	EnvFile        string
	Port           *string
	TableCapacity  *int
	GuestPolicy    *string
	HistoryDriver  *string
	HistoryDSN     *string
	LogLevel       *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Populate the process environment from a .env file before reading it
	if err := loadEnvFile(overrides); err != nil {
		return Config{}, err
	}
	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	// YAML overrides environment
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	// Validate final configuration
	if err := validateConfig(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		TableCapacity:        storage.DefaultTableCapacity(),
		GuestPolicy:          calculator.PolicyPerInvitee,
		HistoryDriver:        history.DriverMemory,
		HistoryDSN:           defaultHistoryDSN,
		HistorySize:          history.DefaultSize,
		LogLevel:             defaultLogLevel,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadEnvFile loads variables from an explicit env file, or from ./.env when present.
// Variables already set in the process environment are never overwritten.
func loadEnvFile(overrides *CLIOverrides) error {
	if overrides != nil && overrides.EnvFile != "" {
		if err := godotenv.Load(overrides.EnvFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	}

	if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", defaultEnvFile, err)
	}
	return nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	if yamlCfg.TableCapacity != 0 {
		cfg.TableCapacity = yamlCfg.TableCapacity
	}

	if yamlCfg.GuestPolicy != "" {
		cfg.GuestPolicy = calculator.GuestPolicy(yamlCfg.GuestPolicy)
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	durations := []struct {
		raw    string
		target *time.Duration
		name   string
	}{
		{yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod, "shutdown_grace_period"},
		{yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout, "read_header_timeout"},
		{yamlCfg.WriteTimeout, &cfg.WriteTimeout, "write_timeout"},
		{yamlCfg.IdleTimeout, &cfg.IdleTimeout, "idle_timeout"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.target = value
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.History.Driver != "" {
		cfg.HistoryDriver = yamlCfg.History.Driver
	}
	if yamlCfg.History.DSN != "" {
		cfg.HistoryDSN = yamlCfg.History.DSN
	}
	if yamlCfg.History.Size != 0 {
		cfg.HistorySize = yamlCfg.History.Size
	}

	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
// Numeric values that do not parse are reported rather than skipped.
func applyEnvConfig(cfg *Config) error {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if capacity := strings.TrimSpace(os.Getenv("TABLE_CAPACITY")); capacity != "" {
		value, err := strconv.Atoi(capacity)
		if err != nil {
			return fmt.Errorf("TABLE_CAPACITY must be an integer, got %q", capacity)
		}
		cfg.TableCapacity = value
	}

	if policy := strings.TrimSpace(os.Getenv("GUEST_POLICY")); policy != "" {
		cfg.GuestPolicy = calculator.GuestPolicy(policy)
	}

	if driver := strings.TrimSpace(os.Getenv("HISTORY_DRIVER")); driver != "" {
		cfg.HistoryDriver = driver
	}

	if dsn := strings.TrimSpace(os.Getenv("HISTORY_DSN")); dsn != "" {
		cfg.HistoryDSN = dsn
	}

	if size := strings.TrimSpace(os.Getenv("HISTORY_SIZE")); size != "" {
		value, err := strconv.Atoi(size)
		if err != nil {
			return fmt.Errorf("HISTORY_SIZE must be an integer, got %q", size)
		}
		cfg.HistorySize = value
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		value, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS must be a number, got %q", rps)
		}
		cfg.RateLimitRPS = value
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		value, err := strconv.Atoi(burst)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST must be an integer, got %q", burst)
		}
		cfg.RateLimitBurst = value
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.TableCapacity != nil {
		cfg.TableCapacity = *overrides.TableCapacity
	}

	if overrides.GuestPolicy != nil && *overrides.GuestPolicy != "" {
		cfg.GuestPolicy = calculator.GuestPolicy(*overrides.GuestPolicy)
	}

	if overrides.HistoryDriver != nil && *overrides.HistoryDriver != "" {
		cfg.HistoryDriver = *overrides.HistoryDriver
	}

	if overrides.HistoryDSN != nil && *overrides.HistoryDSN != "" {
		cfg.HistoryDSN = *overrides.HistoryDSN
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.RateLimitRPS != nil {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration and normalises the guest policy.
func validateConfig(cfg *Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.HistorySize <= 0 {
		return fmt.Errorf("history size must be > 0, got %d", cfg.HistorySize)
	}
	if cfg.TableCapacity <= 0 || cfg.TableCapacity > calculator.MaxTableCapacity {
		return fmt.Errorf("table capacity must be between 1 and %d, got %d", calculator.MaxTableCapacity, cfg.TableCapacity)
	}

	policy, err := calculator.ParseGuestPolicy(string(cfg.GuestPolicy))
	if err != nil {
		return err
	}
	cfg.GuestPolicy = policy

	switch cfg.HistoryDriver {
	case history.DriverMemory, history.DriverSQLite:
	default:
		return fmt.Errorf("%w: %q", history.ErrUnknownDriver, cfg.HistoryDriver)
	}

	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}
