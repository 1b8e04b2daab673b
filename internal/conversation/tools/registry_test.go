package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"battbot_backend/internal/catalog/transport"
	"battbot_backend/internal/conversation/engine"
	"battbot_backend/internal/leadapi"
	"battbot_backend/platform/apperr"
	"battbot_backend/platform/logger"
)

type fakeCatalog struct {
	batteries  []transport.BatterySummary
	searchErr  error
	plans      []transport.FinancingPlan
	plansErr   error
	priceGiven decimal.Decimal
}

func (f *fakeCatalog) SearchBatteriesForVehicle(_ context.Context, _, _ string, _ *int) ([]transport.BatterySummary, error) {
	return f.batteries, f.searchErr
}

func (f *fakeCatalog) ComputeFinancingPlans(_ context.Context, _ string, price decimal.Decimal) ([]transport.FinancingPlan, error) {
	f.priceGiven = price
	return f.plans, f.plansErr
}

type fakePauses struct {
	pausedID string
	duration time.Duration
	err      error
}

func (f *fakePauses) PauseFor(_ context.Context, conversationID string, d time.Duration) error {
	f.pausedID = conversationID
	f.duration = d
	return f.err
}

type fakeLeads struct {
	configured bool
	intent     leadapi.InitiateIntentParams
	intentErr  error
	details    leadapi.CustomerDetailsParams
	detailsErr error
	leadID     string
}

func (f *fakeLeads) Configured() bool { return f.configured }

func (f *fakeLeads) InitiateLeadIntent(_ context.Context, params leadapi.InitiateIntentParams) (*leadapi.Lead, error) {
	f.intent = params
	if f.intentErr != nil {
		return nil, f.intentErr
	}
	return &leadapi.Lead{ID: f.leadID, Status: "intent_initiated"}, nil
}

func (f *fakeLeads) SubmitCustomerDetails(_ context.Context, leadID string, params leadapi.CustomerDetailsParams) error {
	f.details = params
	return f.detailsErr
}

func newTestRegistry(t *testing.T, catalog CatalogService, pauses PauseStore, leads LeadClient, cfg Config) *Registry {
	t.Helper()
	r, err := NewRegistry(catalog, pauses, leads, logger.New("test"), cfg)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	return r
}

func decodeOutput(t *testing.T, result engine.ToolResult) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(result.Output), &out); err != nil {
		t.Fatalf("tool output is not valid JSON: %v\n%s", err, result.Output)
	}
	return out
}

func TestRegistryDefinitionsInRegistrationOrder(t *testing.T) {
	r := newTestRegistry(t, &fakeCatalog{}, &fakePauses{}, &fakeLeads{configured: true}, Config{EnableLeadTools: true})

	defs := r.Definitions()
	want := []string{ToolSearchVehicleBatteries, ToolFinancingOptions, ToolRequestHumanAgent, ToolSubmitOrder}
	if len(defs) != len(want) {
		t.Fatalf("expected %d definitions, got %d", len(want), len(defs))
	}
	for i, name := range want {
		if defs[i].Function.Name != name {
			t.Errorf("definition %d = %q, want %q", i, defs[i].Function.Name, name)
		}
	}
}

func TestRegistryOmitsLeadToolWhenNotConfigured(t *testing.T) {
	r := newTestRegistry(t, &fakeCatalog{}, &fakePauses{}, &fakeLeads{configured: false}, Config{EnableLeadTools: true})

	for _, def := range r.Definitions() {
		if def.Function.Name == ToolSubmitOrder {
			t.Fatal("submit order tool must not be registered without a configured lead client")
		}
	}
}

func TestRegistryRejectsDuplicateRegistration(t *testing.T) {
	r := newRegistry(logger.New("test"))
	def := searchVehicleBatteriesDefinition()
	handler := func(context.Context, string, map[string]any) (map[string]any, error) { return nil, nil }

	if err := r.register(def, handler); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	err := r.register(def, handler)
	if !apperr.Is(err, apperr.KindConfiguration) {
		t.Fatalf("expected configuration error on duplicate, got %v", err)
	}
}

func TestExecuteUnknownToolReturnsErrorEnvelope(t *testing.T) {
	r := newTestRegistry(t, &fakeCatalog{}, &fakePauses{}, nil, Config{})

	result := r.Execute(context.Background(), "conv-1", engine.ToolCall{ID: "call_1", Name: "fly_to_the_moon"})
	out := decodeOutput(t, result)
	if out["status"] != "error" {
		t.Errorf("expected error envelope, got %v", out)
	}
	if msg, _ := out["message"].(string); !strings.Contains(msg, "fly_to_the_moon") {
		t.Errorf("expected unknown tool name in message, got %q", msg)
	}
	if result.ToolCallID != "call_1" {
		t.Errorf("expected tool call id preserved, got %q", result.ToolCallID)
	}
}

func TestExecuteMalformedArgumentsReturnsErrorEnvelope(t *testing.T) {
	r := newTestRegistry(t, &fakeCatalog{}, &fakePauses{}, nil, Config{})

	result := r.Execute(context.Background(), "conv-1", engine.ToolCall{
		ID:        "call_1",
		Name:      ToolSearchVehicleBatteries,
		Arguments: `{"make": "Toyota"`,
	})
	out := decodeOutput(t, result)
	if out["status"] != "error" {
		t.Errorf("expected error envelope for bad JSON, got %v", out)
	}
}

func TestExecuteHandlerErrorReturnsErrorEnvelope(t *testing.T) {
	catalog := &fakeCatalog{searchErr: errors.New("database offline")}
	r := newTestRegistry(t, catalog, &fakePauses{}, nil, Config{})

	result := r.Execute(context.Background(), "conv-1", engine.ToolCall{
		ID:        "call_1",
		Name:      ToolSearchVehicleBatteries,
		Arguments: `{"make":"Toyota","model":"Corolla"}`,
	})
	out := decodeOutput(t, result)
	if out["status"] != "error" {
		t.Errorf("expected error envelope for handler failure, got %v", out)
	}
}

func TestSearchToolShapesResults(t *testing.T) {
	discount := 95.5
	catalog := &fakeCatalog{batteries: []transport.BatterySummary{
		{
			Brand:           "Fulgor",
			ModelCode:       "NS40-670",
			WarrantyInfo:    "18 meses",
			PriceFull:       120,
			PriceDiscountFX: &discount,
			StockQuantity:   7,
		},
		{
			Brand:         "Optima",
			ModelCode:     "RED-34",
			WarrantyInfo:  "Garantía no especificada",
			PriceFull:     250,
			StockQuantity: 2,
		},
	}}
	r := newTestRegistry(t, catalog, &fakePauses{}, nil, Config{})

	result := r.Execute(context.Background(), "conv-1", engine.ToolCall{
		ID:        "call_1",
		Name:      ToolSearchVehicleBatteries,
		Arguments: `{"make":"Chevrolet","model":"Aveo","year":2015}`,
	})
	out := decodeOutput(t, result)

	found, ok := out["batteries_found"].([]any)
	if !ok {
		t.Fatalf("expected batteries_found list, got %v", out)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(found))
	}

	first := found[0].(map[string]any)
	if first["brand"] != "Fulgor" || first["model_code"] != "NS40-670" {
		t.Errorf("unexpected first entry: %v", first)
	}
	if first["price_discount_fx"] != 95.5 {
		t.Errorf("expected discount passed through, got %v", first["price_discount_fx"])
	}

	second := found[1].(map[string]any)
	if _, present := second["price_discount_fx"]; present {
		t.Errorf("expected no discount key for second entry: %v", second)
	}
}

func TestFinancingToolRequiresPrice(t *testing.T) {
	r := newTestRegistry(t, &fakeCatalog{}, &fakePauses{}, nil, Config{})

	result := r.Execute(context.Background(), "conv-1", engine.ToolCall{
		ID:        "call_1",
		Name:      ToolFinancingOptions,
		Arguments: `{}`,
	})
	out := decodeOutput(t, result)
	if out["status"] != "error" {
		t.Errorf("expected error without product_price, got %v", out)
	}
}

func TestFinancingToolReturnsPlans(t *testing.T) {
	catalog := &fakeCatalog{plans: []transport.FinancingPlan{{
		Provider:          "cashea",
		LevelName:         "Nivel 1",
		DiscountedPrice:   "108.00",
		InitialPayment:    "43.20",
		Installments:      3,
		InstallmentAmount: "21.60",
	}}}
	r := newTestRegistry(t, catalog, &fakePauses{}, nil, Config{})

	result := r.Execute(context.Background(), "conv-1", engine.ToolCall{
		ID:        "call_1",
		Name:      ToolFinancingOptions,
		Arguments: `{"product_price": 120}`,
	})
	out := decodeOutput(t, result)
	if out["status"] != "success" {
		t.Fatalf("expected success envelope, got %v", out)
	}
	if !catalog.priceGiven.Equal(decimal.NewFromInt(120)) {
		t.Errorf("expected price 120 passed to catalog, got %s", catalog.priceGiven)
	}
	plans, ok := out["plans"].([]any)
	if !ok || len(plans) != 1 {
		t.Fatalf("expected 1 plan, got %v", out["plans"])
	}
}

func TestHumanAgentToolPausesConversation(t *testing.T) {
	pauses := &fakePauses{}
	r := newTestRegistry(t, &fakeCatalog{}, pauses, nil, Config{HumanTakeoverPause: 2 * time.Hour})

	result := r.Execute(context.Background(), "conv-9", engine.ToolCall{
		ID:        "call_1",
		Name:      ToolRequestHumanAgent,
		Arguments: `{"reason":"cliente molesto"}`,
	})
	out := decodeOutput(t, result)
	if out["status"] != "success" {
		t.Fatalf("expected success envelope, got %v", out)
	}
	if pauses.pausedID != "conv-9" {
		t.Errorf("expected conversation conv-9 paused, got %q", pauses.pausedID)
	}
	if pauses.duration != 2*time.Hour {
		t.Errorf("expected configured pause duration, got %s", pauses.duration)
	}
}

func TestSubmitOrderToolTwoStepFlow(t *testing.T) {
	leads := &fakeLeads{configured: true, leadID: "lead-77"}
	r := newTestRegistry(t, &fakeCatalog{}, &fakePauses{}, leads, Config{EnableLeadTools: true})

	args := `{
		"conversation_id": "conv-1",
		"user_id": "42",
		"customer_name": "Ana Pérez",
		"customer_phone": "+58 412 5551234",
		"chosen_battery_brand": "Fulgor",
		"chosen_battery_model": "NS40-670",
		"final_price_paid": 108,
		"shipping_method": "Entrega a Domicilio",
		"payment_method": "Cashea"
	}`
	result := r.Execute(context.Background(), "conv-1", engine.ToolCall{ID: "call_1", Name: ToolSubmitOrder, Arguments: args})
	out := decodeOutput(t, result)

	if out["status"] != "success" || out["lead_id"] != "lead-77" {
		t.Fatalf("expected successful submission, got %v", out)
	}
	if out["details_updated"] != true {
		t.Errorf("expected details_updated true, got %v", out["details_updated"])
	}

	if len(leads.intent.ProductsOfInterest) != 1 {
		t.Fatalf("expected one product of interest, got %v", leads.intent.ProductsOfInterest)
	}
	product := leads.intent.ProductsOfInterest[0]
	if product.SKU != "Fulgor_NS40-670" {
		t.Errorf("expected SKU Fulgor_NS40-670, got %q", product.SKU)
	}
	if product.Description != "Batería Fulgor NS40-670" {
		t.Errorf("unexpected description %q", product.Description)
	}
	if leads.details.CustomerEmail != leadContactFallbackEmail {
		t.Errorf("expected fallback email, got %q", leads.details.CustomerEmail)
	}
}

func TestSubmitOrderToolDetailsFailureStillSucceeds(t *testing.T) {
	leads := &fakeLeads{configured: true, leadID: "lead-77", detailsErr: errors.New("timeout")}
	r := newTestRegistry(t, &fakeCatalog{}, &fakePauses{}, leads, Config{EnableLeadTools: true})

	args := `{
		"conversation_id": "conv-1",
		"user_id": "42",
		"customer_name": "Ana Pérez",
		"customer_phone": "+58 412 5551234",
		"chosen_battery_brand": "Fulgor",
		"chosen_battery_model": "NS40-670",
		"final_price_paid": 108,
		"shipping_method": "Entrega a Domicilio",
		"payment_method": "Cashea"
	}`
	result := r.Execute(context.Background(), "conv-1", engine.ToolCall{ID: "call_1", Name: ToolSubmitOrder, Arguments: args})
	out := decodeOutput(t, result)

	// The lead intent exists even if the contact details call failed; the
	// model is told so it can warn the customer.
	if out["status"] != "success" || out["lead_id"] != "lead-77" {
		t.Fatalf("expected success with lead id, got %v", out)
	}
	if out["details_updated"] != false {
		t.Errorf("expected details_updated false, got %v", out["details_updated"])
	}
}
