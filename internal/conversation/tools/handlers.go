package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"battbot_backend/internal/catalog/transport"
	"battbot_backend/internal/leadapi"
	"battbot_backend/platform/logger"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	"github.com/shopspring/decimal"
)

// Tool names shared across every provider strategy. These are part of the
// provider contract: assistants are configured with the same schema.
const (
	ToolSearchVehicleBatteries = "search_vehicle_batteries"
	ToolFinancingOptions       = "get_cashea_financing_options"
	ToolRequestHumanAgent      = "request_human_agent"
	ToolSubmitOrder            = "submit_order_for_processing"
)

// leadContactFallbackEmail is sent when the chat flow never collected an
// email address; the lead API requires the field.
const leadContactFallbackEmail = "not_provided@example.com"

// CatalogService is the slice of the catalog module the tools need.
type CatalogService interface {
	SearchBatteriesForVehicle(ctx context.Context, make, model string, year *int) ([]transport.BatterySummary, error)
	ComputeFinancingPlans(ctx context.Context, provider string, price decimal.Decimal) ([]transport.FinancingPlan, error)
}

// PauseStore pauses a conversation for human takeover.
type PauseStore interface {
	PauseFor(ctx context.Context, conversationID string, duration time.Duration) error
}

// LeadClient is the two-step lead submission collaborator.
type LeadClient interface {
	Configured() bool
	InitiateLeadIntent(ctx context.Context, params leadapi.InitiateIntentParams) (*leadapi.Lead, error)
	SubmitCustomerDetails(ctx context.Context, leadID string, params leadapi.CustomerDetailsParams) error
}

// Config controls optional tools and the human-takeover pause length.
type Config struct {
	HumanTakeoverPause time.Duration
	EnableLeadTools    bool
}

// NewRegistry wires the full tool set. The lead submission tool is only
// registered when enabled and its client is configured.
func NewRegistry(catalog CatalogService, pauses PauseStore, leads LeadClient, log *logger.Logger, cfg Config) (*Registry, error) {
	if cfg.HumanTakeoverPause <= 0 {
		cfg.HumanTakeoverPause = time.Hour
	}

	r := newRegistry(log)

	if err := r.register(searchVehicleBatteriesDefinition(), searchVehicleBatteriesHandler(catalog)); err != nil {
		return nil, err
	}
	if err := r.register(financingOptionsDefinition(), financingOptionsHandler(catalog)); err != nil {
		return nil, err
	}
	if err := r.register(requestHumanAgentDefinition(), requestHumanAgentHandler(pauses, log, cfg.HumanTakeoverPause)); err != nil {
		return nil, err
	}
	if cfg.EnableLeadTools && leads != nil && leads.Configured() {
		if err := r.register(submitOrderDefinition(), submitOrderHandler(leads, log)); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func searchVehicleBatteriesDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        ToolSearchVehicleBatteries,
			Description: openai.String("Searches for suitable batteries based on vehicle make, model, and year."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"make":           map[string]any{"type": "string", "description": "The make of the vehicle, e.g., 'Toyota'."},
					"model":          map[string]any{"type": "string", "description": "The model of the vehicle, e.g., 'Corolla'."},
					"year":           map[string]any{"type": "integer", "description": "The manufacturing year of the vehicle, e.g., 2018."},
					"engine_details": map[string]any{"type": "string", "description": "Optional details about the engine, e.g., 'postes gruesos'."},
				},
				"required": []string{"make", "model"},
			},
		},
	}
}

func searchVehicleBatteriesHandler(catalog CatalogService) HandlerFunc {
	return func(ctx context.Context, conversationID string, args map[string]any) (map[string]any, error) {
		vehicleMake := stringArg(args, "make")
		vehicleModel := stringArg(args, "model")
		year := intArg(args, "year")

		results, err := catalog.SearchBatteriesForVehicle(ctx, vehicleMake, vehicleModel, year)
		if err != nil {
			return nil, err
		}

		found := make([]map[string]any, 0, len(results))
		for _, b := range results {
			entry := map[string]any{
				"brand":          b.Brand,
				"model_code":     b.ModelCode,
				"price_full":     b.PriceFull,
				"warranty_info":  b.WarrantyInfo,
				"stock_quantity": b.StockQuantity,
			}
			if b.PriceDiscountFX != nil {
				entry["price_discount_fx"] = *b.PriceDiscountFX
			}
			if b.Message != "" {
				entry["message"] = b.Message
			}
			found = append(found, entry)
		}
		return map[string]any{"batteries_found": found}, nil
	}
}

func financingOptionsDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        ToolFinancingOptions,
			Description: openai.String("Calcula los planes de financiamiento de Cashea para un precio de producto específico. Úsalo cuando un cliente pregunta '¿cómo puedo pagar con Cashea?' o solicita un plan de pagos."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"product_price": map[string]any{
						"type":        "number",
						"description": "El precio final del producto sobre el cual se calculará el financiamiento.",
					},
				},
				"required": []string{"product_price"},
			},
		},
	}
}

func financingOptionsHandler(catalog CatalogService) HandlerFunc {
	return func(ctx context.Context, conversationID string, args map[string]any) (map[string]any, error) {
		price, ok := numberArg(args, "product_price")
		if !ok {
			return nil, fmt.Errorf("product_price is required")
		}

		plans, err := catalog.ComputeFinancingPlans(ctx, "", decimal.NewFromFloat(price))
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"status": "success",
			"plans":  plans,
		}, nil
	}
}

func requestHumanAgentDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        ToolRequestHumanAgent,
			Description: openai.String("Use this function if the user explicitly asks to speak with a human agent, expresses frustration, or has a complex issue beyond your capabilities."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"reason": map[string]any{"type": "string", "description": "A brief summary of why the human agent is needed."},
				},
				"required": []string{"reason"},
			},
		},
	}
}

func requestHumanAgentHandler(pauses PauseStore, log *logger.Logger, pause time.Duration) HandlerFunc {
	return func(ctx context.Context, conversationID string, args map[string]any) (map[string]any, error) {
		log.Info("human agent requested",
			"conversation_id", conversationID,
			"reason", stringArg(args, "reason"),
		)
		if err := pauses.PauseFor(ctx, conversationID, pause); err != nil {
			return nil, err
		}
		return map[string]any{
			"status":  "success",
			"message": "Conversation paused for human intervention.",
		}, nil
	}
}

func submitOrderDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        ToolSubmitOrder,
			Description: openai.String("Submits the final, confirmed order details to the sales team for processing."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"conversation_id":                  map[string]any{"type": "string", "description": "The current conversation ID."},
					"user_id":                          map[string]any{"type": "string", "description": "The platform-specific user ID of the customer."},
					"customer_name":                    map[string]any{"type": "string", "description": "Customer's full name."},
					"customer_cedula":                  map[string]any{"type": "string", "description": "Customer's ID number (Cédula)."},
					"customer_phone":                   map[string]any{"type": "string", "description": "Customer's phone number."},
					"chosen_battery_brand":             map[string]any{"type": "string", "description": "The brand of the chosen battery."},
					"chosen_battery_model":             map[string]any{"type": "string", "description": "The model code of the chosen battery."},
					"original_list_price":              map[string]any{"type": "number", "description": "The base price of the battery from the search result (price_full)."},
					"product_discount_applied_percent": map[string]any{"type": "number", "description": "The additional product-specific discount percentage applied, e.g., 0.10."},
					"final_price_paid":                 map[string]any{"type": "number", "description": "The final calculated price after all discounts."},
					"shipping_method":                  map[string]any{"type": "string", "description": "How the customer will receive the battery, e.g., 'Entrega a Domicilio' or 'Recoger en Tienda'."},
					"delivery_address":                 map[string]any{"type": "string", "description": "Customer's full delivery address, if applicable."},
					"pickup_store_location":            map[string]any{"type": "string", "description": "The name or location of the store for pickup, if applicable."},
					"payment_method":                   map[string]any{"type": "string", "description": "Chosen payment method, e.g., 'Divisas', 'Cashea', 'Pago Móvil'."},
					"cashea_level":                     map[string]any{"type": "string", "description": "The customer's Cashea level, e.g., 'Nivel 1', if applicable."},
					"cashea_initial_payment":           map[string]any{"type": "number", "description": "The calculated initial payment for Cashea, if applicable."},
					"cashea_installment_amount":        map[string]any{"type": "number", "description": "The calculated amount for each Cashea installment, if applicable."},
					"notes_about_old_battery_fee":      map[string]any{"type": "string", "description": "A note confirming the user was informed about the old battery requirement."},
				},
				"required": []string{
					"conversation_id", "user_id", "customer_name", "customer_phone",
					"chosen_battery_brand", "chosen_battery_model", "final_price_paid",
					"shipping_method", "payment_method",
				},
			},
		},
	}
}

func submitOrderHandler(leads LeadClient, log *logger.Logger) HandlerFunc {
	return func(ctx context.Context, conversationID string, args map[string]any) (map[string]any, error) {
		brand := stringArg(args, "chosen_battery_brand")
		model := stringArg(args, "chosen_battery_model")

		lead, err := leads.InitiateLeadIntent(ctx, leadapi.InitiateIntentParams{
			ConversationID:          stringArg(args, "conversation_id"),
			PlatformUserID:          stringArg(args, "user_id"),
			PaymentMethodPreference: stringArg(args, "payment_method"),
			ProductsOfInterest: []leadapi.ProductOfInterest{{
				SKU:         fmt.Sprintf("%s_%s", brand, model),
				Description: fmt.Sprintf("Batería %s %s", brand, model),
				Quantity:    1,
			}},
		})
		if err != nil {
			return nil, err
		}

		detailsUpdated := true
		err = leads.SubmitCustomerDetails(ctx, lead.ID, leadapi.CustomerDetailsParams{
			CustomerFullName:    stringArg(args, "customer_name"),
			CustomerEmail:       leadContactFallbackEmail,
			CustomerPhoneNumber: stringArg(args, "customer_phone"),
		})
		if err != nil {
			log.ToolError(conversationID, ToolSubmitOrder, fmt.Errorf("submit customer details for lead %s: %w", lead.ID, err))
			detailsUpdated = false
		}

		return map[string]any{
			"status":          "success",
			"lead_id":         lead.ID,
			"details_updated": detailsUpdated,
		}, nil
	}
}

// Argument helpers. JSON numbers arrive as float64.

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func numberArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func intArg(args map[string]any, key string) *int {
	if v, ok := numberArg(args, key); ok {
		year := int(v)
		return &year
	}
	return nil
}
