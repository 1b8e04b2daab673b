// Package leadapi provides a client for the external lead-capture CRM API.
//
// Lead submission is a two-step flow: an intent is created first with the
// products of interest, then the customer's contact details are attached to
// the returned lead id.
package leadapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is an HTTP client for the lead-capture API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config configures the lead-capture API client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient creates a new lead-capture API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the client has both a base URL and an API key.
func (c *Client) Configured() bool { return c.baseURL != "" && c.apiKey != "" }

// ProductOfInterest is one line item on a lead intent.
type ProductOfInterest struct {
	SKU         string  `json:"sku"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	PricePaid   float64 `json:"price_paid,omitempty"`
}

// InitiateIntentParams holds the fields for creating a lead intent.
type InitiateIntentParams struct {
	ConversationID          string              `json:"conversation_id"`
	PlatformUserID          string              `json:"platform_user_id,omitempty"`
	SourceChannel           string              `json:"source_channel,omitempty"`
	PaymentMethodPreference string              `json:"payment_method_preference"`
	ProductsOfInterest      []ProductOfInterest `json:"products_of_interest"`
}

// Lead is the response payload from the intent endpoint.
type Lead struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
}

// CustomerDetailsParams holds the contact fields attached to an existing lead.
type CustomerDetailsParams struct {
	CustomerFullName    string `json:"customer_full_name"`
	CustomerEmail       string `json:"customer_email"`
	CustomerPhoneNumber string `json:"customer_phone_number"`
}

// InitiateLeadIntent creates a new lead intent and returns the lead id.
func (c *Client) InitiateLeadIntent(ctx context.Context, params InitiateIntentParams) (*Lead, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("lead API client is not configured")
	}
	if len(params.ProductsOfInterest) == 0 {
		return nil, fmt.Errorf("at least one product of interest is required")
	}

	var lead Lead
	if err := c.do(ctx, http.MethodPost, "/leads/intent", params, &lead); err != nil {
		return nil, err
	}
	if lead.ID == "" {
		return nil, fmt.Errorf("lead intent response did not include a lead id")
	}
	return &lead, nil
}

// SubmitCustomerDetails attaches customer contact details to an existing lead.
func (c *Client) SubmitCustomerDetails(ctx context.Context, leadID string, params CustomerDetailsParams) error {
	if !c.Configured() {
		return fmt.Errorf("lead API client is not configured")
	}
	if leadID == "" {
		return fmt.Errorf("lead id is required")
	}

	path := fmt.Sprintf("/leads/%s/customer-details", leadID)
	return c.do(ctx, http.MethodPut, path, params, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s request: %w", method, path, err)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create %s %s request: %w", method, path, err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%s %s request failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("lead API returned %d for %s %s: %s", resp.StatusCode, method, path, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}
