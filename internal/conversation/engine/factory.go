package engine

import (
	"fmt"
	"strings"

	"battbot_backend/platform/ai/assistantapi"
	"battbot_backend/platform/apperr"
	"battbot_backend/platform/config"
	"battbot_backend/platform/logger"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Supported provider names, selected via AI_PROVIDER.
const (
	ProviderOpenAIChat      = "openai_chat"
	ProviderOpenAIAssistant = "openai_assistant"
	ProviderAzureAssistant  = "azure_assistant"
	ProviderGoogleGemini    = "google_gemini"
)

// Gemini models are reachable through an OpenAI-compatible endpoint, which
// lets the chat loop serve both vendors.
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// Factory builds the configured provider strategy. Missing credentials for
// the selected provider are a configuration error, reported at construction
// time and never retried.
type Factory struct {
	cfg     config.AIProviderConfig
	tools   ChatToolProvider
	threads ThreadStore
	log     *logger.Logger
}

// NewFactory creates a provider factory.
func NewFactory(cfg config.AIProviderConfig, tools ChatToolProvider, threads ThreadStore, log *logger.Logger) *Factory {
	return &Factory{cfg: cfg, tools: tools, threads: threads, log: log}
}

// Build instantiates the provider strategy named by the configuration.
func (f *Factory) Build() (Provider, error) {
	name := strings.TrimSpace(f.cfg.GetAIProvider())

	switch name {
	case ProviderOpenAIChat:
		if f.cfg.GetOpenAIAPIKey() == "" {
			return nil, apperr.Configuration("AI_PROVIDER is 'openai_chat', but OPENAI_API_KEY is not set")
		}
		client := openai.NewClient(option.WithAPIKey(f.cfg.GetOpenAIAPIKey()))
		return NewChatLoop(&client.Chat.Completions, f.tools, f.log, ChatLoopConfig{
			ProviderName:       name,
			Model:              f.cfg.GetOpenAIChatModel(),
			SystemPrompt:       f.cfg.GetSystemPrompt(),
			MaxHistoryMessages: f.cfg.GetMaxHistoryMessages(),
			ToolRoundLimit:     f.cfg.GetToolRoundLimit(),
		}), nil

	case ProviderGoogleGemini:
		if f.cfg.GetGoogleAPIKey() == "" {
			return nil, apperr.Configuration("AI_PROVIDER is 'google_gemini', but GOOGLE_API_KEY is not set")
		}
		client := openai.NewClient(
			option.WithAPIKey(f.cfg.GetGoogleAPIKey()),
			option.WithBaseURL(geminiBaseURL),
		)
		return NewChatLoop(&client.Chat.Completions, f.tools, f.log, ChatLoopConfig{
			ProviderName:       name,
			Model:              f.cfg.GetGoogleGeminiModel(),
			SystemPrompt:       f.cfg.GetSystemPrompt(),
			MaxHistoryMessages: f.cfg.GetMaxHistoryMessages(),
			ToolRoundLimit:     f.cfg.GetToolRoundLimit(),
			TransportApology:   replyGeminiTransport,
			ExhaustedApology:   replyNoFinalAnswer,
		}), nil

	case ProviderOpenAIAssistant:
		if f.cfg.GetOpenAIAPIKey() == "" || f.cfg.GetOpenAIAssistantID() == "" {
			return nil, apperr.Configuration("AI_PROVIDER is 'openai_assistant', but OPENAI_API_KEY or OPENAI_ASSISTANT_ID is not set")
		}
		client := assistantapi.NewClient(assistantapi.Config{
			BaseURL:   "https://api.openai.com/v1",
			APIKey:    f.cfg.GetOpenAIAPIKey(),
			AuthStyle: assistantapi.AuthBearer,
			Timeout:   f.cfg.GetRunTimeout(),
		})
		return NewAssistantRun(client, f.threads, f.tools, f.log, AssistantRunConfig{
			ProviderName: name,
			AssistantID:  f.cfg.GetOpenAIAssistantID(),
			PollInterval: f.cfg.GetRunPollInterval(),
			RunTimeout:   f.cfg.GetRunTimeout(),
		}), nil

	case ProviderAzureAssistant:
		if f.cfg.GetAzureOpenAIAPIKey() == "" ||
			f.cfg.GetAzureOpenAIEndpoint() == "" ||
			f.cfg.GetAzureOpenAIAPIVersion() == "" ||
			f.cfg.GetAzureOpenAIAssistantID() == "" {
			return nil, apperr.Configuration("AI_PROVIDER is 'azure_assistant', but one or more required Azure settings are missing")
		}
		client := assistantapi.NewClient(assistantapi.Config{
			BaseURL:    strings.TrimRight(f.cfg.GetAzureOpenAIEndpoint(), "/") + "/openai",
			APIKey:     f.cfg.GetAzureOpenAIAPIKey(),
			AuthStyle:  assistantapi.AuthAPIKey,
			APIVersion: f.cfg.GetAzureOpenAIAPIVersion(),
			Timeout:    f.cfg.GetRunTimeout(),
		})
		return NewAssistantRun(client, f.threads, f.tools, f.log, AssistantRunConfig{
			ProviderName: name,
			AssistantID:  f.cfg.GetAzureOpenAIAssistantID(),
			PollInterval: f.cfg.GetRunPollInterval(),
			RunTimeout:   f.cfg.GetRunTimeout(),
		}), nil

	default:
		return nil, apperr.Configuration(fmt.Sprintf("unsupported AI_PROVIDER: %q", name))
	}
}
