// Package engine implements the AI provider strategies that turn an inbound
// customer message into a final reply: a bounded chat-completion tool loop
// and a polling assistant-run state machine, plus the factory that selects
// one from configuration.
package engine

import "context"

// Role tags a transcript message by its author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TranscriptMessage is one message of the conversation history, already
// mapped from channel user ids to chat roles.
type TranscriptMessage struct {
	Role Role
	Text string
}

// Conversation is the provider-facing view of one conversation at the moment
// a message is processed.
type Conversation struct {
	ID             string
	CustomerUserID string
	Source         string

	// Transcript is the full history, oldest first. Chat-completion
	// strategies replay it on every call.
	Transcript []TranscriptMessage

	// PendingCustomerText is the contiguous block of trailing customer
	// messages joined with a single space. Assistant strategies append it to
	// the provider-side thread as one message, keeping one run per customer
	// turn instead of one per message.
	PendingCustomerText string
}

// Provider produces the final reply text for a conversation. An empty reply
// with a nil error is an intentional skip: nothing is sent to the customer.
// Failures inside a provider surface as canned apology strings, never as raw
// errors, so the returned error is reserved for cancellation.
type Provider interface {
	Name() string
	ProcessMessage(ctx context.Context, conv Conversation) (string, error)
}

// ToolCall is a function invocation requested by a model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolResult is the JSON envelope produced for one tool call.
type ToolResult struct {
	ToolCallID string
	Output     string
}

// ToolExecutor dispatches tool calls to their handlers. Execute never fails:
// unknown tools and handler errors come back as {"status":"error",...}
// envelopes the model can read.
type ToolExecutor interface {
	Execute(ctx context.Context, conversationID string, call ToolCall) ToolResult
}

// ThreadStore persists the (conversation, provider) → thread id mapping used
// by assistant strategies.
type ThreadStore interface {
	GetThreadID(ctx context.Context, conversationID, provider string) (string, error)
	StoreThreadID(ctx context.Context, conversationID, provider, threadID string) error
}

// Canned customer-facing replies. Internal detail is logged, never shown.
const (
	replyNoHistory       = "Lo siento, no pude procesar tu solicitud."
	replyChatTransport   = "Lo siento, ocurrió un error inesperado. Por favor intenta de nuevo."
	replyGeminiTransport = "Lo siento, ocurrió un error con el servicio de Google AI. Por favor intenta de nuevo."
	replyLoopExhausted   = "Parece que estoy teniendo dificultades para completar tu solicitud. Por favor, contacta a un agente de soporte."
	replyNoFinalAnswer   = "No pude generar una respuesta final. Por favor, contacta a un agente."
	replyRunFailedFmt    = "Lo siento, la operación falló con el estado: %s."
	replyRunTimedOut     = "Lo siento, la operación tardó demasiado en completarse."
	replyAssistantError  = "Ocurrió un error inesperado con nuestro asistente. Por favor, intente de nuevo."
)
