// Package assistantapi provides a client for the OpenAI Assistants REST API.
// The same client speaks to both the public OpenAI endpoint and Azure OpenAI
// deployments, which differ only in base URL, auth header, and query string.
package assistantapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AuthStyle selects how requests are authenticated.
type AuthStyle int

const (
	// AuthBearer uses an Authorization Bearer token plus the assistants beta
	// header. This is the public OpenAI style.
	AuthBearer AuthStyle = iota
	// AuthAPIKey uses an api-key header plus an api-version query parameter.
	// This is the Azure OpenAI style.
	AuthAPIKey
)

// Client is an HTTP client for the Assistants API.
type Client struct {
	baseURL    string
	apiKey     string
	authStyle  AuthStyle
	apiVersion string
	httpClient *http.Client
}

// Config configures the Assistants API client.
type Config struct {
	BaseURL    string
	APIKey     string
	AuthStyle  AuthStyle
	APIVersion string // required for AuthAPIKey
	Timeout    time.Duration
}

// NewClient creates a new Assistants API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		authStyle:  cfg.AuthStyle,
		apiVersion: cfg.APIVersion,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Thread is a conversation thread on the provider side.
type Thread struct {
	ID string `json:"id"`
}

// Message is a message inside a thread.
type Message struct {
	ID      string           `json:"id"`
	Role    string           `json:"role"`
	Content []MessageContent `json:"content"`
}

// MessageContent is one content block of a message.
type MessageContent struct {
	Type string       `json:"type"`
	Text *MessageText `json:"text,omitempty"`
}

// MessageText is the text payload of a content block.
type MessageText struct {
	Value string `json:"value"`
}

// messageList is the paged response of the list messages endpoint.
type messageList struct {
	Data []Message `json:"data"`
}

// Run is an assistant run over a thread.
type Run struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
	LastError      *RunError       `json:"last_error,omitempty"`
}

// Run status values reported by the API.
const (
	RunStatusQueued         = "queued"
	RunStatusInProgress     = "in_progress"
	RunStatusRequiresAction = "requires_action"
	RunStatusCompleted      = "completed"
	RunStatusFailed         = "failed"
	RunStatusCancelled      = "cancelled"
	RunStatusExpired        = "expired"
)

// RequiredAction carries the tool calls a run is waiting on.
type RequiredAction struct {
	Type              string             `json:"type"`
	SubmitToolOutputs *SubmitToolOutputs `json:"submit_tool_outputs,omitempty"`
}

// SubmitToolOutputs lists the pending tool calls.
type SubmitToolOutputs struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// ToolCall is one pending function invocation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the function and carries its JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// RunError describes why a run failed.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToolOutput is the result of one executed tool call.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// CreateThread creates a new empty thread.
func (c *Client) CreateThread(ctx context.Context) (Thread, error) {
	var thread Thread
	if err := c.do(ctx, http.MethodPost, "/threads", map[string]any{}, &thread); err != nil {
		return Thread{}, err
	}
	return thread, nil
}

// AddMessage appends a message to a thread.
func (c *Client) AddMessage(ctx context.Context, threadID, role, content string) (Message, error) {
	body := map[string]any{"role": role, "content": content}
	var msg Message
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/messages", body, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// CreateRun starts an assistant run over the thread.
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (Run, error) {
	body := map[string]any{"assistant_id": assistantID}
	var run Run
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs", body, &run); err != nil {
		return Run{}, err
	}
	return run, nil
}

// GetRun fetches the current state of a run.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+runID, nil, &run); err != nil {
		return Run{}, err
	}
	return run, nil
}

// SubmitToolOutputs hands the executed tool results back to a waiting run.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (Run, error) {
	body := map[string]any{"tool_outputs": outputs}
	var run Run
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs/"+runID+"/submit_tool_outputs", body, &run); err != nil {
		return Run{}, err
	}
	return run, nil
}

// LatestAssistantMessage returns the newest assistant text in the thread.
// Returns an empty string when the thread has no assistant message yet.
func (c *Client) LatestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	var list messageList
	path := "/threads/" + threadID + "/messages?order=desc&limit=10"
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return "", err
	}

	for _, msg := range list.Data {
		if msg.Role != "assistant" {
			continue
		}
		for _, block := range msg.Content {
			if block.Type == "text" && block.Text != nil && block.Text.Value != "" {
				return block.Text.Value, nil
			}
		}
	}

	return "", nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	endpoint, err := c.buildURL(path)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal assistant request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	request, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create assistant request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")
	switch c.authStyle {
	case AuthAPIKey:
		request.Header.Set("api-key", c.apiKey)
	default:
		request.Header.Set("Authorization", "Bearer "+c.apiKey)
		request.Header.Set("OpenAI-Beta", "assistants=v2")
	}

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("assistant request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("assistant API returned %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode assistant response: %w", err)
	}

	return nil
}

func (c *Client) buildURL(path string) (string, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", fmt.Errorf("invalid assistant API url: %w", err)
	}

	if c.authStyle == AuthAPIKey && c.apiVersion != "" {
		q := u.Query()
		q.Set("api-version", c.apiVersion)
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}
