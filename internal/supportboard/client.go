// Package supportboard provides a client for the Support Board messaging API.
//
// The API is a single endpoint that takes form-encoded POST requests with a
// "function" parameter selecting the operation and a "token" parameter for
// authentication. Responses are JSON envelopes of the form
// {"success": bool, "response": <payload>}.
package supportboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is an HTTP client for the Support Board API.
type Client struct {
	apiURL     string
	token      string
	botUserID  string
	httpClient *http.Client
}

// Config configures the Support Board client.
type Config struct {
	APIURL    string
	Token     string
	BotUserID string
	Timeout   time.Duration
}

// NewClient creates a new Support Board API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	return &Client{
		apiURL:     strings.TrimSpace(cfg.APIURL),
		token:      cfg.Token,
		botUserID:  strings.TrimSpace(cfg.BotUserID),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BotUserID returns the configured bot user id used for message attribution.
func (c *Client) BotUserID() string { return c.botUserID }

// FlexID is an identifier that Support Board serializes sometimes as a JSON
// string and sometimes as a number, depending on the endpoint.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string { return string(f) }

// Message is one message inside a Support Board conversation.
type Message struct {
	ID           FlexID `json:"id"`
	UserID       FlexID `json:"user_id"`
	Message      string `json:"message"`
	Payload      string `json:"payload,omitempty"`
	CreationTime string `json:"creation_time,omitempty"`
}

// ConversationDetails holds the metadata block of a conversation.
type ConversationDetails struct {
	ID     FlexID `json:"id"`
	UserID FlexID `json:"user_id"`
	Source string `json:"source,omitempty"`
	Extra  string `json:"extra,omitempty"`
}

// Conversation is the full conversation payload from get-conversation.
// Messages are ordered oldest first, matching the dashboard transcript.
type Conversation struct {
	Details  ConversationDetails `json:"details"`
	Messages []Message           `json:"messages"`
}

type envelope struct {
	Success  bool            `json:"success"`
	Response json.RawMessage `json:"response"`
}

// GetConversation fetches the full transcript and details for a conversation.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation id is required")
	}

	raw, err := c.call(ctx, "get-conversation", url.Values{
		"conversation_id": {conversationID},
	})
	if err != nil {
		return nil, err
	}

	var conv Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, fmt.Errorf("failed to decode get-conversation response: %w", err)
	}
	return &conv, nil
}

// SendBotMessage appends a message to a conversation attributed to the bot
// user, which makes the reply visible in the dashboard and delivers it to the
// customer channel.
func (c *Client) SendBotMessage(ctx context.Context, conversationID, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message text is required")
	}
	if c.botUserID == "" {
		return fmt.Errorf("bot user id is not configured")
	}

	_, err := c.call(ctx, "send-message", url.Values{
		"user_id":         {c.botUserID},
		"conversation_id": {conversationID},
		"message":         {text},
		"attachments":     {"[]"},
	})
	if err != nil {
		return fmt.Errorf("send-message for conversation %s: %w", conversationID, err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, function string, params url.Values) (json.RawMessage, error) {
	if c.apiURL == "" || c.token == "" {
		return nil, fmt.Errorf("support board API URL or token is not configured")
	}

	form := url.Values{}
	for key, values := range params {
		form[key] = values
	}
	form.Set("function", function)
	form.Set("token", c.token)

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", function, err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", function, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("support board API returned %d for %s: %s", resp.StatusCode, function, string(body))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", function, err)
	}
	if !env.Success {
		return nil, fmt.Errorf("support board API reported failure for %s: %s", function, string(env.Response))
	}
	return env.Response, nil
}
