// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RedisConfig provides redis connection settings for the lock and the queue.
type RedisConfig interface {
	GetRedisURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
}

// SchedulerConfig provides settings for the asynq queue.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// AIProviderConfig provides provider selection and credentials.
type AIProviderConfig interface {
	GetAIProvider() string
	GetOpenAIAPIKey() string
	GetOpenAIChatModel() string
	GetOpenAIAssistantID() string
	GetAzureOpenAIAPIKey() string
	GetAzureOpenAIEndpoint() string
	GetAzureOpenAIAPIVersion() string
	GetAzureOpenAIAssistantID() string
	GetGoogleAPIKey() string
	GetGoogleGeminiModel() string
	GetSystemPrompt() string
	GetMaxHistoryMessages() int
	GetToolRoundLimit() int
	GetRunTimeout() time.Duration
	GetRunPollInterval() time.Duration
	GetLockAcquireTimeout() time.Duration
	GetHumanTakeoverPause() time.Duration
	LeadToolsEnabled() bool
}

// SupportBoardConfig provides settings for the Support Board delivery client.
type SupportBoardConfig interface {
	GetSupportBoardURL() string
	GetSupportBoardToken() string
	GetSupportBoardBotUserID() string
	GetSupportBoardAgentIDs() []string
}

// LeadAPIConfig provides settings for the lead/CRM collaborator.
type LeadAPIConfig interface {
	GetLeadAPIURL() string
	GetLeadAPIKey() string
	IsLeadAPIEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string
	RedisURL    string

	AsynqQueueName   string
	AsynqConcurrency int

	AIProvider             string
	OpenAIAPIKey           string
	OpenAIChatModel        string
	OpenAIAssistantID      string
	AzureOpenAIAPIKey      string
	AzureOpenAIEndpoint    string
	AzureOpenAIAPIVersion  string
	AzureOpenAIAssistantID string
	GoogleAPIKey           string
	GoogleGeminiModel      string

	SystemPrompt       string
	SystemPromptFile   string
	MaxHistoryMessages int
	ToolRoundLimit     int
	RunTimeout         time.Duration
	RunPollInterval    time.Duration
	LockAcquireTimeout time.Duration
	HumanTakeoverPause time.Duration
	EnableLeadTools    bool

	SupportBoardURL       string
	SupportBoardToken     string
	SupportBoardBotUserID string
	SupportBoardAgentIDs  []string

	LeadAPIURL string
	LeadAPIKey string
}

// Load reads configuration from the environment (and .env, if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	runTimeout, err := getEnvDuration("RUN_TIMEOUT", "120s")
	if err != nil {
		return nil, err
	}
	runPollInterval, err := getEnvDuration("RUN_POLL_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}
	lockAcquireTimeout, err := getEnvDuration("LOCK_ACQUIRE_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	humanTakeoverPause, err := getEnvDuration("HUMAN_TAKEOVER_PAUSE", "1h")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "conversations"),
		AsynqConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 10),

		AIProvider:             getEnv("AI_PROVIDER", "openai_chat"),
		OpenAIAPIKey:           getEnv("OPENAI_API_KEY", ""),
		OpenAIChatModel:        getEnv("OPENAI_CHAT_MODEL", "gpt-4o"),
		OpenAIAssistantID:      getEnv("OPENAI_ASSISTANT_ID", ""),
		AzureOpenAIAPIKey:      getEnv("AZURE_OPENAI_API_KEY", ""),
		AzureOpenAIEndpoint:    getEnv("AZURE_OPENAI_ENDPOINT", ""),
		AzureOpenAIAPIVersion:  getEnv("AZURE_OPENAI_API_VERSION", "2024-05-01-preview"),
		AzureOpenAIAssistantID: getEnv("AZURE_OPENAI_ASSISTANT_ID", ""),
		GoogleAPIKey:           getEnv("GOOGLE_API_KEY", ""),
		GoogleGeminiModel:      getEnv("GOOGLE_GEMINI_MODEL", "gemini-2.0-flash"),

		SystemPromptFile:   getEnv("SYSTEM_PROMPT_FILE", ""),
		MaxHistoryMessages: getEnvInt("MAX_HISTORY_MESSAGES", 16),
		ToolRoundLimit:     getEnvInt("TOOL_ROUND_LIMIT", 3),
		RunTimeout:         runTimeout,
		RunPollInterval:    runPollInterval,
		LockAcquireTimeout: lockAcquireTimeout,
		HumanTakeoverPause: humanTakeoverPause,
		EnableLeadTools:    strings.EqualFold(getEnv("ENABLE_LEAD_TOOLS", "true"), "true"),

		SupportBoardURL:       getEnv("SUPPORT_BOARD_URL", ""),
		SupportBoardToken:     getEnv("SUPPORT_BOARD_TOKEN", ""),
		SupportBoardBotUserID: getEnv("SUPPORT_BOARD_BOT_USER_ID", ""),
		SupportBoardAgentIDs:  splitCSV(getEnv("SUPPORT_BOARD_AGENT_IDS", "")),

		LeadAPIURL: getEnv("LEAD_API_URL", ""),
		LeadAPIKey: getEnv("LEAD_API_KEY", ""),
	}

	cfg.SystemPrompt = getEnv("SYSTEM_PROMPT", "")
	if cfg.SystemPrompt == "" && cfg.SystemPromptFile != "" {
		content, err := os.ReadFile(cfg.SystemPromptFile)
		if err != nil {
			return nil, fmt.Errorf("read system prompt file %q: %w", cfg.SystemPromptFile, err)
		}
		cfg.SystemPrompt = strings.TrimSpace(string(content))
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ToolRoundLimit < 1 {
		return nil, fmt.Errorf("TOOL_ROUND_LIMIT must be at least 1")
	}

	return cfg, nil
}

// Interface implementations.

func (c *Config) GetDatabaseURL() string    { return c.DatabaseURL }
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetHTTPAddr() string       { return c.HTTPAddr }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetAIProvider() string                { return c.AIProvider }
func (c *Config) GetOpenAIAPIKey() string              { return c.OpenAIAPIKey }
func (c *Config) GetOpenAIChatModel() string           { return c.OpenAIChatModel }
func (c *Config) GetOpenAIAssistantID() string         { return c.OpenAIAssistantID }
func (c *Config) GetAzureOpenAIAPIKey() string         { return c.AzureOpenAIAPIKey }
func (c *Config) GetAzureOpenAIEndpoint() string       { return c.AzureOpenAIEndpoint }
func (c *Config) GetAzureOpenAIAPIVersion() string     { return c.AzureOpenAIAPIVersion }
func (c *Config) GetAzureOpenAIAssistantID() string    { return c.AzureOpenAIAssistantID }
func (c *Config) GetGoogleAPIKey() string              { return c.GoogleAPIKey }
func (c *Config) GetGoogleGeminiModel() string         { return c.GoogleGeminiModel }
func (c *Config) GetSystemPrompt() string              { return c.SystemPrompt }
func (c *Config) GetMaxHistoryMessages() int           { return c.MaxHistoryMessages }
func (c *Config) GetToolRoundLimit() int               { return c.ToolRoundLimit }
func (c *Config) GetRunTimeout() time.Duration         { return c.RunTimeout }
func (c *Config) GetRunPollInterval() time.Duration    { return c.RunPollInterval }
func (c *Config) GetLockAcquireTimeout() time.Duration { return c.LockAcquireTimeout }
func (c *Config) GetHumanTakeoverPause() time.Duration { return c.HumanTakeoverPause }
func (c *Config) LeadToolsEnabled() bool               { return c.EnableLeadTools }

func (c *Config) GetSupportBoardURL() string        { return c.SupportBoardURL }
func (c *Config) GetSupportBoardToken() string      { return c.SupportBoardToken }
func (c *Config) GetSupportBoardBotUserID() string  { return c.SupportBoardBotUserID }
func (c *Config) GetSupportBoardAgentIDs() []string { return c.SupportBoardAgentIDs }

func (c *Config) GetLeadAPIURL() string  { return c.LeadAPIURL }
func (c *Config) GetLeadAPIKey() string  { return c.LeadAPIKey }
func (c *Config) IsLeadAPIEnabled() bool { return c.LeadAPIURL != "" }

// Helpers.

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvDuration(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}
