// Package tools implements the function-calling surface exposed to every AI
// provider: an explicit registry mapping tool names to typed handlers, plus
// the JSON schemas attached to completion requests.
//
// Tool failures never propagate: unknown names, malformed arguments, and
// handler errors all come back as {"status":"error",...} envelopes so the
// model can recover conversationally.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"battbot_backend/internal/conversation/engine"
	"battbot_backend/platform/apperr"
	"battbot_backend/platform/logger"

	"github.com/openai/openai-go"
)

// HandlerFunc executes one tool call and returns a JSON-serializable result.
type HandlerFunc func(ctx context.Context, conversationID string, args map[string]any) (map[string]any, error)

type registration struct {
	definition openai.ChatCompletionToolParam
	handler    HandlerFunc
}

// Registry dispatches tool calls by name. The tool set is fixed at
// construction; a schema without a handler is a configuration error.
type Registry struct {
	order    []string
	handlers map[string]registration
	log      *logger.Logger
}

var _ engine.ChatToolProvider = (*Registry)(nil)

func newRegistry(log *logger.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]registration),
		log:      log,
	}
}

func (r *Registry) register(def openai.ChatCompletionToolParam, handler HandlerFunc) error {
	name := def.Function.Name
	if name == "" {
		return apperr.Configuration("tool definition is missing a name")
	}
	if handler == nil {
		return apperr.Configuration(fmt.Sprintf("tool %q has no handler", name))
	}
	if _, exists := r.handlers[name]; exists {
		return apperr.Configuration(fmt.Sprintf("tool %q registered twice", name))
	}

	r.order = append(r.order, name)
	r.handlers[name] = registration{definition: def, handler: handler}
	return nil
}

// Definitions returns the tool schemas in registration order.
func (r *Registry) Definitions() []openai.ChatCompletionToolParam {
	defs := make([]openai.ChatCompletionToolParam, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.handlers[name].definition)
	}
	return defs
}

// Execute dispatches one tool call. The returned output is always a valid
// JSON object.
func (r *Registry) Execute(ctx context.Context, conversationID string, call engine.ToolCall) engine.ToolResult {
	r.log.ToolCall(conversationID, call.Name, call.ID)

	reg, ok := r.handlers[call.Name]
	if !ok {
		r.log.Warn("unknown tool requested", "conversation_id", conversationID, "tool", call.Name)
		return errorResult(call.ID, fmt.Sprintf("Unknown tool: %s", call.Name))
	}

	var args map[string]any
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			r.log.ToolError(conversationID, call.Name, err)
			return errorResult(call.ID, fmt.Sprintf("invalid tool arguments: %v", err))
		}
	}

	result, err := reg.handler(ctx, conversationID, args)
	if err != nil {
		r.log.ToolError(conversationID, call.Name, err)
		return errorResult(call.ID, err.Error())
	}

	output, err := json.Marshal(result)
	if err != nil {
		r.log.ToolError(conversationID, call.Name, err)
		return errorResult(call.ID, "tool produced an unserializable result")
	}
	return engine.ToolResult{ToolCallID: call.ID, Output: string(output)}
}

func errorResult(toolCallID, message string) engine.ToolResult {
	output, _ := json.Marshal(map[string]any{
		"status":  "error",
		"message": message,
	})
	return engine.ToolResult{ToolCallID: toolCallID, Output: string(output)}
}
