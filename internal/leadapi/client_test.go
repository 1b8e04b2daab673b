package leadapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "key-1"})
}

func TestInitiateLeadIntent(t *testing.T) {
	var gotPath, gotKey string
	var gotBody InitiateIntentParams
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotKey = r.Header.Get("X-API-KEY")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{"id": "lead-77", "status": "intent_initiated"}`))
	})

	lead, err := client.InitiateLeadIntent(context.Background(), InitiateIntentParams{
		ConversationID:          "conv-1",
		PlatformUserID:          "42",
		PaymentMethodPreference: "Cashea",
		ProductsOfInterest: []ProductOfInterest{{
			SKU:         "Fulgor_NS40-670",
			Description: "Batería Fulgor NS40-670",
			Quantity:    1,
		}},
	})
	if err != nil {
		t.Fatalf("InitiateLeadIntent failed: %v", err)
	}

	if lead.ID != "lead-77" {
		t.Errorf("expected lead id lead-77, got %q", lead.ID)
	}
	if gotPath != "POST /leads/intent" {
		t.Errorf("unexpected request %q", gotPath)
	}
	if gotKey != "key-1" {
		t.Errorf("expected API key header, got %q", gotKey)
	}
	if len(gotBody.ProductsOfInterest) != 1 || gotBody.ProductsOfInterest[0].SKU != "Fulgor_NS40-670" {
		t.Errorf("unexpected request body: %+v", gotBody)
	}
}

func TestInitiateLeadIntentRequiresProducts(t *testing.T) {
	client := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected without products")
	})

	_, err := client.InitiateLeadIntent(context.Background(), InitiateIntentParams{ConversationID: "conv-1"})
	if err == nil {
		t.Fatal("expected error without products of interest")
	}
}

func TestInitiateLeadIntentRejectsMissingID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status": "intent_initiated"}`))
	})

	_, err := client.InitiateLeadIntent(context.Background(), InitiateIntentParams{
		ConversationID:     "conv-1",
		ProductsOfInterest: []ProductOfInterest{{SKU: "A_B", Description: "Batería A B", Quantity: 1}},
	})
	if err == nil {
		t.Fatal("expected error when response lacks a lead id")
	}
}

func TestSubmitCustomerDetails(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	err := client.SubmitCustomerDetails(context.Background(), "lead-77", CustomerDetailsParams{
		CustomerFullName:    "Ana Pérez",
		CustomerEmail:       "not_provided@example.com",
		CustomerPhoneNumber: "+58 412 5551234",
	})
	if err != nil {
		t.Fatalf("SubmitCustomerDetails failed: %v", err)
	}
	if gotPath != "PUT /leads/lead-77/customer-details" {
		t.Errorf("unexpected request %q", gotPath)
	}
}

func TestNotConfiguredClientRefuses(t *testing.T) {
	client := NewClient(Config{})
	if client.Configured() {
		t.Fatal("empty client must not report configured")
	}
	if _, err := client.InitiateLeadIntent(context.Background(), InitiateIntentParams{}); err == nil {
		t.Fatal("expected error from unconfigured client")
	}
}
