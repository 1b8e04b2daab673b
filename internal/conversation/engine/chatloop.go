package engine

import (
	"context"
	"strings"

	"battbot_backend/platform/logger"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

// CompletionService is the slice of the OpenAI client the chat loop needs.
type CompletionService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// ChatToolProvider supplies both the function-calling schema attached to each
// completion request and the dispatcher that executes the requested calls.
type ChatToolProvider interface {
	ToolExecutor
	Definitions() []openai.ChatCompletionToolParam
}

// ChatLoopConfig parameterizes the shared chat-completion tool loop. The
// OpenAI and Gemini strategies differ only in client endpoint, model name,
// and apology wording.
type ChatLoopConfig struct {
	ProviderName       string
	Model              string
	SystemPrompt       string
	MaxHistoryMessages int
	ToolRoundLimit     int
	TransportApology   string
	ExhaustedApology   string
}

// ChatLoop drives a bounded tool-calling loop over the Chat Completions API.
type ChatLoop struct {
	completions CompletionService
	tools       ChatToolProvider
	log         *logger.Logger
	cfg         ChatLoopConfig
}

var _ Provider = (*ChatLoop)(nil)

// NewChatLoop creates a chat-completion provider strategy.
func NewChatLoop(completions CompletionService, tools ChatToolProvider, log *logger.Logger, cfg ChatLoopConfig) *ChatLoop {
	if cfg.TransportApology == "" {
		cfg.TransportApology = replyChatTransport
	}
	if cfg.ExhaustedApology == "" {
		cfg.ExhaustedApology = replyLoopExhausted
	}
	return &ChatLoop{
		completions: completions,
		tools:       tools,
		log:         log,
		cfg:         cfg,
	}
}

func (p *ChatLoop) Name() string { return p.cfg.ProviderName }

// ProcessMessage replays the transcript through the completion API, executing
// requested tool calls in order, until the model produces a plain answer or
// the round limit is hit. At most ToolRoundLimit+1 completion calls are made.
func (p *ChatLoop) ProcessMessage(ctx context.Context, conv Conversation) (string, error) {
	if len(conv.Transcript) == 0 {
		p.log.Warn("no transcript to process", "provider", p.cfg.ProviderName, "conversation_id", conv.ID)
		return replyNoHistory, nil
	}

	messages := p.buildMessages(conv.Transcript)
	tools := p.tools.Definitions()

	for round := 0; round <= p.cfg.ToolRoundLimit; round++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		resp, err := p.completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(p.cfg.Model),
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			p.log.ProviderError(p.cfg.ProviderName, conv.ID, err)
			return p.cfg.TransportApology, nil
		}
		if len(resp.Choices) == 0 {
			p.log.Error("completion response had no choices", "provider", p.cfg.ProviderName, "conversation_id", conv.ID)
			return p.cfg.TransportApology, nil
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			answer := strings.TrimSpace(msg.Content)
			if answer == "" {
				return p.cfg.ExhaustedApology, nil
			}
			return answer, nil
		}

		messages = append(messages, assistantToolCallMessage(msg))
		for _, tc := range msg.ToolCalls {
			result := p.tools.Execute(ctx, conv.ID, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
			messages = append(messages, openai.ToolMessage(result.Output, result.ToolCallID))
		}
	}

	p.log.Warn("tool round limit reached without final answer", "provider", p.cfg.ProviderName, "conversation_id", conv.ID)
	return p.cfg.ExhaustedApology, nil
}

// buildMessages caps the history at the most recent N messages while keeping
// the system prompt first.
func (p *ChatLoop) buildMessages(transcript []TranscriptMessage) []openai.ChatCompletionMessageParamUnion {
	history := transcript
	if p.cfg.MaxHistoryMessages > 0 && len(history) > p.cfg.MaxHistoryMessages {
		history = history[len(history)-p.cfg.MaxHistoryMessages:]
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	messages = append(messages, openai.SystemMessage(p.cfg.SystemPrompt))
	for _, m := range history {
		if m.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(m.Text))
		} else {
			messages = append(messages, openai.UserMessage(m.Text))
		}
	}
	return messages
}

// assistantToolCallMessage converts a model response carrying tool calls back
// into a request parameter, so the tool results that follow can reference the
// tool call ids.
func assistantToolCallMessage(msg openai.ChatCompletionMessage) openai.ChatCompletionMessageParamUnion {
	toolCalls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID:   tc.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
	if msg.Content != "" {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: param.NewOpt(msg.Content),
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}
