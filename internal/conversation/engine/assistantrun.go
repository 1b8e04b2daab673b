package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"battbot_backend/platform/ai/assistantapi"
	"battbot_backend/platform/logger"
)

// AssistantClient is the slice of the Assistants REST client the run engine
// needs. Both vendors are served by the same client, configured with their
// base URL and auth style.
type AssistantClient interface {
	CreateThread(ctx context.Context) (assistantapi.Thread, error)
	AddMessage(ctx context.Context, threadID, role, content string) (assistantapi.Message, error)
	CreateRun(ctx context.Context, threadID, assistantID string) (assistantapi.Run, error)
	GetRun(ctx context.Context, threadID, runID string) (assistantapi.Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []assistantapi.ToolOutput) (assistantapi.Run, error)
	LatestAssistantMessage(ctx context.Context, threadID string) (string, error)
}

// AssistantRunConfig parameterizes the shared assistant-run strategy.
type AssistantRunConfig struct {
	ProviderName string
	AssistantID  string
	PollInterval time.Duration
	RunTimeout   time.Duration
}

// AssistantRun drives one provider-side run per customer turn: resolve the
// persistent thread, append the pending customer text, create a run, then
// poll until the run reaches a terminal state or the wall clock runs out.
type AssistantRun struct {
	client  AssistantClient
	threads ThreadStore
	tools   ToolExecutor
	log     *logger.Logger
	cfg     AssistantRunConfig
}

var _ Provider = (*AssistantRun)(nil)

// NewAssistantRun creates an assistant-run provider strategy.
func NewAssistantRun(client AssistantClient, threads ThreadStore, tools ToolExecutor, log *logger.Logger, cfg AssistantRunConfig) *AssistantRun {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 120 * time.Second
	}
	return &AssistantRun{
		client:  client,
		threads: threads,
		tools:   tools,
		log:     log,
		cfg:     cfg,
	}
}

func (p *AssistantRun) Name() string { return p.cfg.ProviderName }

func (p *AssistantRun) ProcessMessage(ctx context.Context, conv Conversation) (string, error) {
	text := strings.TrimSpace(conv.PendingCustomerText)
	if text == "" {
		p.log.Warn("no pending customer text, skipping run", "provider", p.cfg.ProviderName, "conversation_id", conv.ID)
		return "", nil
	}

	threadID, err := p.resolveThread(ctx, conv.ID)
	if err != nil {
		p.log.ProviderError(p.cfg.ProviderName, conv.ID, err)
		return replyAssistantError, nil
	}

	if _, err := p.client.AddMessage(ctx, threadID, "user", text); err != nil {
		p.log.ProviderError(p.cfg.ProviderName, conv.ID, fmt.Errorf("add message: %w", err))
		return replyAssistantError, nil
	}

	run, err := p.client.CreateRun(ctx, threadID, p.cfg.AssistantID)
	if err != nil {
		p.log.ProviderError(p.cfg.ProviderName, conv.ID, fmt.Errorf("create run: %w", err))
		return replyAssistantError, nil
	}
	p.log.Info("run created",
		"provider", p.cfg.ProviderName,
		"conversation_id", conv.ID,
		"thread_id", threadID,
		"run_id", run.ID,
	)

	deadline := time.Now().Add(p.cfg.RunTimeout)
	for time.Now().Before(deadline) {
		run, err = p.client.GetRun(ctx, threadID, run.ID)
		if err != nil {
			p.log.ProviderError(p.cfg.ProviderName, conv.ID, fmt.Errorf("poll run: %w", err))
			return replyAssistantError, nil
		}

		switch run.Status {
		case assistantapi.RunStatusCompleted:
			reply, err := p.client.LatestAssistantMessage(ctx, threadID)
			if err != nil {
				p.log.ProviderError(p.cfg.ProviderName, conv.ID, fmt.Errorf("fetch reply: %w", err))
				return replyAssistantError, nil
			}
			return reply, nil

		case assistantapi.RunStatusRequiresAction:
			outputs := p.executeToolCalls(ctx, conv.ID, run)
			if _, err := p.client.SubmitToolOutputs(ctx, threadID, run.ID, outputs); err != nil {
				p.log.ProviderError(p.cfg.ProviderName, conv.ID, fmt.Errorf("submit tool outputs: %w", err))
				return replyAssistantError, nil
			}

		case assistantapi.RunStatusFailed, assistantapi.RunStatusCancelled, assistantapi.RunStatusExpired:
			p.log.Error("run ended in terminal failure",
				"provider", p.cfg.ProviderName,
				"conversation_id", conv.ID,
				"run_id", run.ID,
				"status", run.Status,
				"last_error", runErrorDetail(run),
			)
			return fmt.Sprintf(replyRunFailedFmt, run.Status), nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.cfg.PollInterval):
		}
	}

	// The run keeps executing on the provider side; we stop waiting for it.
	p.log.Error("run timed out",
		"provider", p.cfg.ProviderName,
		"conversation_id", conv.ID,
		"run_id", run.ID,
		"timeout", p.cfg.RunTimeout,
	)
	return replyRunTimedOut, nil
}

// resolveThread returns the persistent thread for this conversation, creating
// and recording one on first contact.
func (p *AssistantRun) resolveThread(ctx context.Context, conversationID string) (string, error) {
	threadID, err := p.threads.GetThreadID(ctx, conversationID, p.cfg.ProviderName)
	if err != nil {
		return "", fmt.Errorf("lookup thread mapping: %w", err)
	}
	if threadID != "" {
		return threadID, nil
	}

	thread, err := p.client.CreateThread(ctx)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	if err := p.threads.StoreThreadID(ctx, conversationID, p.cfg.ProviderName, thread.ID); err != nil {
		return "", fmt.Errorf("store thread mapping: %w", err)
	}
	return thread.ID, nil
}

// executeToolCalls runs every requested tool call in request order and
// collects the outputs for one batched submission.
func (p *AssistantRun) executeToolCalls(ctx context.Context, conversationID string, run assistantapi.Run) []assistantapi.ToolOutput {
	if run.RequiredAction == nil || run.RequiredAction.SubmitToolOutputs == nil {
		return nil
	}

	calls := run.RequiredAction.SubmitToolOutputs.ToolCalls
	outputs := make([]assistantapi.ToolOutput, 0, len(calls))
	for _, tc := range calls {
		result := p.tools.Execute(ctx, conversationID, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
		outputs = append(outputs, assistantapi.ToolOutput{
			ToolCallID: result.ToolCallID,
			Output:     result.Output,
		})
	}
	return outputs
}

func runErrorDetail(run assistantapi.Run) string {
	if run.LastError == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", run.LastError.Code, run.LastError.Message)
}
