package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values
const (
	DefaultConfigPath = "config.yaml"
)

// Config holds the configuration for the codebase consultant server
type Config struct {
	Log struct {
		Level    string `yaml:"level"`  // DEBUG, INFO, WARN, ERROR
		Format   string `yaml:"format"` // text, json
		Output   string `yaml:"output"` // stderr, /path/to/file (stdout carries the MCP stream)
		Rotation struct {
			MaxSize    int  `yaml:"max_size"`    // Megabytes
			MaxBackups int  `yaml:"max_backups"` // Number of old files to keep
			MaxAge     int  `yaml:"max_age"`     // Days to keep
			Compress   bool `yaml:"compress"`
		} `yaml:"rotation"`
	} `yaml:"log"`

	Server struct {
		MaxConcurrent  int           `yaml:"max_concurrent"`  // Max tool calls served at once
		RequestTimeout time.Duration `yaml:"request_timeout"` // Per tool call, 0 disables
		MetricsAddr    string        `yaml:"metrics_addr"`    // e.g. ":9090", empty disables
	} `yaml:"server"`

	LLM struct {
		Backend       string        `yaml:"backend"` // openai, genai, langchain
		Model         string        `yaml:"model"`
		Endpoint      string        `yaml:"endpoint"`
		APIKeys       []string      `yaml:"api_keys"` // Supplemented from Env
		Timeout       time.Duration `yaml:"timeout"`  // Per model request
		MaxConcurrent int           `yaml:"max_concurrent"`
	} `yaml:"llm"`

	Report ReportConfig `yaml:"report"`

	Storage StorageConfig `yaml:"storage"`
}

// ReportConfig holds configuration for codebase report generation
type ReportConfig struct {
	ViewerPath string        `yaml:"viewer_path"` // Path to the codebase_viewer binary
	CharLimit  int           `yaml:"char_limit"`  // Max report characters embedded into prompts
	Timeout    time.Duration `yaml:"timeout"`     // Per report generation run
}

// StorageConfig holds configuration for consultation persistence
type StorageConfig struct {
	Driver  string        `yaml:"driver"`  // sqlite
	DSN     string        `yaml:"dsn"`     // Connection string, empty disables persistence
	Timeout time.Duration `yaml:"timeout"` // Timeout for storage operations (default: 5s)
}

// GetLogLevel returns the slog.Level based on Log.Level string
func (c *Config) GetLogLevel() slog.Level {
	switch strings.ToUpper(c.Log.Level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadConfig loads configuration from YAML file and supplements with environment variables
func LoadConfig() *Config {
	cfg := &Config{}

	// Set some defaults before loading
	cfg.Log.Level = "INFO"
	cfg.Log.Format = "text"
	cfg.Log.Output = "stderr"
	cfg.Server.MaxConcurrent = 4
	cfg.LLM.Backend = BackendOpenAI
	cfg.LLM.Model = DefaultModel
	cfg.LLM.Endpoint = DefaultEndpoint
	cfg.LLM.Timeout = 10 * time.Minute
	cfg.Report.CharLimit = DefaultCharLimit
	cfg.Report.Timeout = 5 * time.Minute

	// Log Rotation defaults
	cfg.Log.Rotation.MaxSize = 100
	cfg.Log.Rotation.MaxBackups = 10
	cfg.Log.Rotation.MaxAge = 7
	cfg.Log.Rotation.Compress = true

	// Storage defaults
	cfg.Storage.Driver = "sqlite"
	cfg.Storage.Timeout = 5 * time.Second

	// Try to load from YAML
	configPath := getEnv("CONFIG_PATH", DefaultConfigPath)
	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			slog.Error("unmarshal config failed", "error", err, "path", configPath)
			os.Exit(1)
		}
		slog.Info("config loaded", "path", configPath)
	} else {
		if !os.IsNotExist(err) {
			slog.Error("read config failed", "error", err, "path", configPath)
			os.Exit(1)
		}
		slog.Info("config not found, using defaults", "path", configPath)
	}

	// Always supplement/override with environment variables for secrets and critical items
	if envKeys := os.Getenv("GEMINI_API_KEYS"); envKeys != "" {
		cfg.LLM.APIKeys = splitKeys(envKeys)
	} else if envKey := os.Getenv("GEMINI_API_KEY"); envKey != "" {
		cfg.LLM.APIKeys = []string{envKey}
	}

	cfg.LLM.Backend = getEnv("LLM_BACKEND", cfg.LLM.Backend)
	cfg.LLM.Model = getEnv("GEMINI_MODEL", cfg.LLM.Model)
	cfg.LLM.Endpoint = getEnv("LLM_ENDPOINT", cfg.LLM.Endpoint)
	cfg.Report.ViewerPath = getEnv("CODEBASE_VIEWER_PATH", cfg.Report.ViewerPath)
	cfg.Storage.DSN = getEnv("STORAGE_DSN", cfg.Storage.DSN)
	cfg.Server.MetricsAddr = getEnv("METRICS_ADDR", cfg.Server.MetricsAddr)

	if envLimit := getEnvInt("TOKEN_CHAR_LIMIT", 0); envLimit != 0 {
		cfg.Report.CharLimit = envLimit
	}
	if envConcurrent := getEnvInt("MAX_CONCURRENT", 0); envConcurrent != 0 {
		cfg.Server.MaxConcurrent = envConcurrent
	}
	if envLogLevel := os.Getenv("LOG_LEVEL"); envLogLevel != "" {
		cfg.Log.Level = envLogLevel
	}
	if envLogFormat := os.Getenv("LOG_FORMAT"); envLogFormat != "" {
		cfg.Log.Format = envLogFormat
	}
	if envLogOutput := getEnv("LOG_OUTPUT", ""); envLogOutput != "" {
		cfg.Log.Output = envLogOutput
	}
	if envLogMaxSize := getEnvInt("LOG_MAX_SIZE", 0); envLogMaxSize != 0 {
		cfg.Log.Rotation.MaxSize = envLogMaxSize
	}
	if envLogMaxBackups := getEnvInt("LOG_MAX_BACKUPS", 0); envLogMaxBackups != 0 {
		cfg.Log.Rotation.MaxBackups = envLogMaxBackups
	}
	if envLogMaxAge := getEnvInt("LOG_MAX_AGE", 0); envLogMaxAge != 0 {
		cfg.Log.Rotation.MaxAge = envLogMaxAge
	}

	return cfg
}

// Validate validates the configuration. Credential presence is checked where
// the key pool is built, not here, so a config file without keys still loads.
func (c *Config) Validate() error {
	var errs []string

	switch c.LLM.Backend {
	case BackendOpenAI, BackendGenAI, BackendLangChain:
	default:
		errs = append(errs, fmt.Sprintf("unknown llm backend: %q", c.LLM.Backend))
	}

	if c.LLM.Model == "" {
		errs = append(errs, "llm model is required")
	}
	if c.LLM.Endpoint == "" && c.LLM.Backend != BackendGenAI {
		errs = append(errs, "llm endpoint is required")
	}
	if c.Report.CharLimit <= 0 {
		errs = append(errs, fmt.Sprintf("invalid report char limit: %d", c.Report.CharLimit))
	}
	if c.Report.ViewerPath == "" {
		errs = append(errs, "CODEBASE_VIEWER_PATH must be set via --codebase-viewer-path flag, environment variable, or config file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

// splitKeys parses a comma-separated credential list, trimming whitespace and
// dropping empty entries.
func splitKeys(raw string) []string {
	var keys []string
	for _, part := range strings.Split(raw, ",") {
		if key := strings.TrimSpace(part); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// Helper functions for reading environment variables

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
