package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"battbot_backend/platform/logger"
)

type fakeCompletions struct {
	responses []*openai.ChatCompletion
	err       error

	calls  int
	bodies []openai.ChatCompletionNewParams
}

func (f *fakeCompletions) New(_ context.Context, body openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.bodies = append(f.bodies, body)
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

type fakeTools struct {
	defs     []openai.ChatCompletionToolParam
	executed []ToolCall
}

func (f *fakeTools) Definitions() []openai.ChatCompletionToolParam { return f.defs }

func (f *fakeTools) Execute(_ context.Context, _ string, call ToolCall) ToolResult {
	f.executed = append(f.executed, call)
	return ToolResult{ToolCallID: call.ID, Output: `{"status":"success"}`}
}

func answerResponse(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func toolCallResponse(calls ...openai.ChatCompletionMessageToolCall) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{ToolCalls: calls}},
		},
	}
}

func toolCall(id, name, args string) openai.ChatCompletionMessageToolCall {
	return openai.ChatCompletionMessageToolCall{
		ID: id,
		Function: openai.ChatCompletionMessageToolCallFunction{
			Name:      name,
			Arguments: args,
		},
	}
}

func newTestChatLoop(completions CompletionService, tools ChatToolProvider, cfg ChatLoopConfig) *ChatLoop {
	if cfg.ProviderName == "" {
		cfg.ProviderName = ProviderOpenAIChat
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.ToolRoundLimit == 0 {
		cfg.ToolRoundLimit = 3
	}
	return NewChatLoop(completions, tools, logger.New("test"), cfg)
}

func userConversation(texts ...string) Conversation {
	conv := Conversation{ID: "conv-1", CustomerUserID: "42"}
	for _, text := range texts {
		conv.Transcript = append(conv.Transcript, TranscriptMessage{Role: RoleUser, Text: text})
	}
	return conv
}

func TestChatLoopEmptyTranscript(t *testing.T) {
	completions := &fakeCompletions{}
	loop := newTestChatLoop(completions, &fakeTools{}, ChatLoopConfig{})

	reply, err := loop.ProcessMessage(context.Background(), Conversation{ID: "conv-1"})
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if reply != replyNoHistory {
		t.Errorf("expected no-history apology, got %q", reply)
	}
	if completions.calls != 0 {
		t.Errorf("expected no completion calls, got %d", completions.calls)
	}
}

func TestChatLoopDirectAnswer(t *testing.T) {
	completions := &fakeCompletions{responses: []*openai.ChatCompletion{answerResponse("  Hola, ¿en qué puedo ayudarte?  ")}}
	loop := newTestChatLoop(completions, &fakeTools{}, ChatLoopConfig{})

	reply, err := loop.ProcessMessage(context.Background(), userConversation("hola"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if reply != "Hola, ¿en qué puedo ayudarte?" {
		t.Errorf("expected trimmed answer, got %q", reply)
	}
	if completions.calls != 1 {
		t.Errorf("expected 1 completion call, got %d", completions.calls)
	}
}

func TestChatLoopExecutesToolCallsInOrder(t *testing.T) {
	tools := &fakeTools{}
	completions := &fakeCompletions{responses: []*openai.ChatCompletion{
		toolCallResponse(
			toolCall("call_1", "search_vehicle_batteries", `{"make":"Toyota","model":"Corolla"}`),
			toolCall("call_2", "get_cashea_financing_options", `{"product_price":120}`),
		),
		answerResponse("Encontré estas opciones."),
	}}
	loop := newTestChatLoop(completions, tools, ChatLoopConfig{})

	reply, err := loop.ProcessMessage(context.Background(), userConversation("busco una batería"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if reply != "Encontré estas opciones." {
		t.Errorf("unexpected reply: %q", reply)
	}
	if completions.calls != 2 {
		t.Fatalf("expected 2 completion calls, got %d", completions.calls)
	}
	if len(tools.executed) != 2 {
		t.Fatalf("expected 2 tool executions, got %d", len(tools.executed))
	}
	if tools.executed[0].ID != "call_1" || tools.executed[1].ID != "call_2" {
		t.Errorf("tool calls executed out of order: %v", tools.executed)
	}
	if tools.executed[0].Name != "search_vehicle_batteries" {
		t.Errorf("unexpected first tool name %q", tools.executed[0].Name)
	}
}

func TestChatLoopRoundLimitBoundsCalls(t *testing.T) {
	tools := &fakeTools{}
	completions := &fakeCompletions{responses: []*openai.ChatCompletion{
		toolCallResponse(toolCall("call_n", "search_vehicle_batteries", `{}`)),
	}}
	loop := newTestChatLoop(completions, tools, ChatLoopConfig{ToolRoundLimit: 2})

	reply, err := loop.ProcessMessage(context.Background(), userConversation("hola"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if reply != replyLoopExhausted {
		t.Errorf("expected exhausted apology, got %q", reply)
	}
	// Round limit R allows at most R+1 completion calls.
	if completions.calls != 3 {
		t.Errorf("expected 3 completion calls for limit 2, got %d", completions.calls)
	}
}

func TestChatLoopTransportErrorUsesConfiguredApology(t *testing.T) {
	completions := &fakeCompletions{err: errors.New("connection reset")}
	loop := newTestChatLoop(completions, &fakeTools{}, ChatLoopConfig{TransportApology: replyGeminiTransport})

	reply, err := loop.ProcessMessage(context.Background(), userConversation("hola"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if reply != replyGeminiTransport {
		t.Errorf("expected configured transport apology, got %q", reply)
	}
}

func TestChatLoopEmptyAnswerFallsBack(t *testing.T) {
	completions := &fakeCompletions{responses: []*openai.ChatCompletion{answerResponse("   ")}}
	loop := newTestChatLoop(completions, &fakeTools{}, ChatLoopConfig{})

	reply, err := loop.ProcessMessage(context.Background(), userConversation("hola"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if reply != replyLoopExhausted {
		t.Errorf("expected fallback apology for empty answer, got %q", reply)
	}
}

func TestChatLoopTrimsHistoryKeepingSystemPrompt(t *testing.T) {
	completions := &fakeCompletions{responses: []*openai.ChatCompletion{answerResponse("ok")}}
	loop := newTestChatLoop(completions, &fakeTools{}, ChatLoopConfig{
		SystemPrompt:       "Eres un asistente de baterías.",
		MaxHistoryMessages: 2,
	})

	_, err := loop.ProcessMessage(context.Background(), userConversation("m1", "m2", "m3", "m4"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	messages := completions.bodies[0].Messages
	if len(messages) != 3 {
		t.Fatalf("expected system prompt plus 2 history messages, got %d", len(messages))
	}
	if messages[0].OfSystem == nil {
		t.Fatal("expected first message to be the system prompt")
	}
	for i, want := range []string{"m3", "m4"} {
		user := messages[i+1].OfUser
		if user == nil {
			t.Fatalf("expected message %d to be a user message", i+1)
		}
		if got := user.Content.OfString.Value; got != want {
			t.Errorf("expected trimmed history to keep %q, got %q", want, got)
		}
	}
}
