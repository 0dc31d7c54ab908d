package common

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Server      ServerConfig   `toml:"server"`
	Logging     LoggingConfig  `toml:"logging"`
	Storage     StorageConfig  `toml:"storage"`
	Analysis    AnalysisConfig `toml:"analysis"`
	GitHub      GitHubConfig   `toml:"github"`
	Gemini      GeminiConfig   `toml:"gemini"`
	Claude      ClaudeConfig   `toml:"claude"`
	LLM         LLMConfig      `toml:"llm"`
	Notion      NotionConfig   `toml:"notion"`
	Retention   RetentionConfig `toml:"retention"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents the result-archive database configuration
type BadgerConfig struct {
	Enabled        bool   `toml:"enabled"`          // Persist completed-job snapshots and graph artifacts
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// AnalysisConfig contains pipeline tuning parameters
type AnalysisConfig struct {
	MaxFilesRemote  int `toml:"max_files_remote"`  // Default file cap for remote repository jobs
	MaxFilesUpload  int `toml:"max_files_upload"`  // Default file cap for uploaded bundles
	MaxFileLines    int `toml:"max_file_lines"`    // Files longer than this are replaced by a marker
	MaxFileBytes    int `toml:"max_file_bytes"`    // Per-file byte cap during fetch
	FileConcurrency int `toml:"file_concurrency"`  // Per-language analyzer fan-out
	Workers         int `toml:"workers"`           // Background worker pool size
}

// GitHubConfig contains remote repository API configuration
type GitHubConfig struct {
	Token string `toml:"token"` // Optional; raises API rate limits
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // Default: "gemini-2.5-flash"
	Timeout     string  `toml:"timeout"`     // Per-call timeout as duration string
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between calls
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`      // Default: "claude-haiku-3-5-20241022"
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude"
}

// NotionConfig contains external report destination configuration.
// Both Token and PageID are required to enable external reporting.
type NotionConfig struct {
	Token  string `toml:"token"`
	PageID string `toml:"page_id"`
}

// RetentionConfig controls scheduled cleanup of terminal jobs
type RetentionConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule format
	MaxAge   string `toml:"max_age"`  // Duration string; terminal jobs older than this are removed
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8000,
			Host: "0.0.0.0",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Enabled: false,
				Path:    "./data",
			},
		},
		Analysis: AnalysisConfig{
			MaxFilesRemote:  100,
			MaxFilesUpload:  12,
			MaxFileLines:    500,
			MaxFileBytes:    512 * 1024,
			FileConcurrency: 4,
			Workers:         4,
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-2.5-flash",
			Timeout:     "60s",
			RateLimit:   "4s", // 15 RPM free tier
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "60s",
			RateLimit:   "1s",
			Temperature: 0.2,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Retention: RetentionConfig{
			Enabled:  true,
			Schedule: "0 0 * * * *", // Hourly
			MaxAge:   "24h",
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SCRUTOR_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("SCRUTOR_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SCRUTOR_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if level := os.Getenv("SCRUTOR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if badgerPath := os.Getenv("SCRUTOR_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Provider credentials follow the conventional variable names so existing
	// shells keep working without a config file.
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if token := os.Getenv("GITHUB_API_TOKEN"); token != "" {
		config.GitHub.Token = token
	}
	if token := os.Getenv("NOTION_TOKEN"); token != "" {
		config.Notion.Token = token
	}
	if pageID := os.Getenv("NOTION_PAGE_ID"); pageID != "" {
		config.Notion.PageID = pageID
	}
}

// NotionEnabled reports whether external reporting is fully configured
func (c *Config) NotionEnabled() bool {
	return c.Notion.Token != "" && c.Notion.PageID != ""
}
