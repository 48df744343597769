// Package config has the configuration for the fetcher and its serve mode
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment names accepted in ENV
const (
	EnvDevelopment = "dev"
	EnvStaging     = "staging"
	EnvProduction  = "prod"
	EnvTest        = "test"
)

// Config holds all application configuration
type Config struct {
	Env               string
	LogLevel          string
	LogDir            string // Empty means console only
	LogRetentionWeeks int    // Number of weeks to keep log files
	MaxLogFileSize    int64  // Maximum log file size in bytes

	OutputFile        string
	SourceProfilePath string
	Source            SourceProfile

	// Serve mode
	Port           string
	Address        string
	Schedule       string // gocron At() expression, e.g. "06:00" or "06:00;18:00"
	MaxRequestBody int64  // Maximum request body size in bytes
	MaxHeaderSize  int64  // Maximum request header size in bytes
}

// LoadDotEnv loads a .env file from the working directory or, failing that,
// from the executable's directory. A missing file is not an error.
func LoadDotEnv() {
	if err := godotenv.Load(); err == nil {
		return
	}

	ex, err := os.Executable()
	if err != nil {
		return
	}
	_ = godotenv.Load(filepath.Join(filepath.Dir(ex), ".env"))
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	return LoadWithProfile(os.Getenv("SOURCE_PROFILE"))
}

// LoadWithProfile is Load with an explicit source profile path. Source
// settings resolve as defaults, then the profile file, then the environment.
func LoadWithProfile(profilePath string) (*Config, error) {
	cfg := &Config{
		Env:               getEnvWithDefault("ENV", EnvDevelopment),
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogDir:            os.Getenv("LOG_DIR"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		OutputFile:        getEnvWithDefault("OUTPUT_FILE", "data.json"),
		SourceProfilePath: profilePath,
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Schedule:          getEnvWithDefault("SCHEDULE", "06:00"),
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576), // 1MB default
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),  // 1MB default
	}

	source, err := LoadSourceProfile(cfg.SourceProfilePath)
	if err != nil {
		return nil, err
	}
	applySourceEnv(&source)
	cfg.Source = source

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applySourceEnv lets single source settings be overridden without a profile file
func applySourceEnv(p *SourceProfile) {
	p.PageURL = getEnvWithDefault("PAGE_URL", p.PageURL)
	p.BaseURL = getEnvWithDefault("BASE_URL", p.BaseURL)
	p.Keyword = getEnvWithDefault("LINK_KEYWORD", p.Keyword)
	p.PageTimeout = getDurationEnvWithDefault("PAGE_TIMEOUT", p.PageTimeout)
	p.WorkbookTimeout = getDurationEnvWithDefault("WORKBOOK_TIMEOUT", p.WorkbookTimeout)
}

// Validate re-runs validation, used after command line overrides
func (c *Config) Validate() error {
	return validateConfig(c)
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if strings.TrimSpace(cfg.OutputFile) == "" {
		return fmt.Errorf("invalid OUTPUT_FILE: cannot be empty")
	}

	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateSchedule(cfg.Schedule); err != nil {
		return fmt.Errorf("invalid SCHEDULE: %w", err)
	}

	if cfg.MaxRequestBody <= 0 {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: must be positive, got: %d", cfg.MaxRequestBody)
	}

	if cfg.MaxHeaderSize <= 0 {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: must be positive, got: %d", cfg.MaxHeaderSize)
	}

	if err := cfg.Source.Validate(); err != nil {
		return fmt.Errorf("invalid source profile: %w", err)
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "localhost" {
		return nil
	}

	if ip := net.ParseIP(address); ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	return nil
}

// validateEnv validates the ENV environment variable
func validateEnv(env string) error {
	if env == "" {
		return fmt.Errorf("ENV cannot be empty")
	}

	validEnvs := []string{EnvDevelopment, EnvStaging, EnvProduction, EnvTest}
	env = strings.ToLower(env)

	for _, validEnv := range validEnvs {
		if env == validEnv {
			return nil
		}
	}

	return fmt.Errorf("ENV must be one of: %v, got: %s", validEnvs, env)
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	logLevel = strings.ToLower(logLevel)

	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 {
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateSchedule checks every HH:MM entry of a ';' separated list
func validateSchedule(schedule string) error {
	times, err := ParseSchedule(schedule)
	if err != nil {
		return err
	}
	if len(times) == 0 {
		return fmt.Errorf("SCHEDULE cannot be empty")
	}
	return nil
}

// ScheduleTime is one daily run time
type ScheduleTime struct {
	Hour   int
	Minute int
}

// ParseSchedule parses "06:00;18:00" into its daily run times
func ParseSchedule(schedule string) ([]ScheduleTime, error) {
	var times []ScheduleTime
	for _, part := range strings.Split(schedule, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := time.Parse("15:04", part)
		if err != nil {
			return nil, fmt.Errorf("time %q must be HH:MM: %w", part, err)
		}
		times = append(times, ScheduleTime{Hour: t.Hour(), Minute: t.Minute()})
	}
	return times, nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault accepts Go durations ("45s") or plain seconds ("45")
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"OUTPUT_FILE",
		"SOURCE_PROFILE",
		"PAGE_URL",
		"BASE_URL",
		"LINK_KEYWORD",
		"PAGE_TIMEOUT",
		"WORKBOOK_TIMEOUT",
		"PORT",
		"ADDRESS",
		"SCHEDULE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
	}
}
