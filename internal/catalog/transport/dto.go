// Package transport defines request and response DTOs for the catalog module.
package transport

// UpsertBatteryRequest creates or replaces a battery. The ID is derived from
// brand and model code when omitted.
type UpsertBatteryRequest struct {
	ID              string         `json:"id"`
	Brand           string         `json:"brand" validate:"required,max=128"`
	ModelCode       string         `json:"modelCode" validate:"required,max=100"`
	ItemName        *string        `json:"itemName"`
	Description     *string        `json:"description"`
	WarrantyMonths  *int           `json:"warrantyMonths" validate:"omitempty,min=0"`
	PriceRegular    float64        `json:"priceRegular" validate:"required,gt=0"`
	PriceDiscountFX *float64       `json:"priceDiscountFx" validate:"omitempty,gt=0"`
	Stock           int            `json:"stock" validate:"min=0"`
	AdditionalData  map[string]any `json:"additionalData"`
}

// BatteryResponse is the API representation of a battery.
type BatteryResponse struct {
	ID              string         `json:"id"`
	Brand           string         `json:"brand"`
	ModelCode       string         `json:"modelCode"`
	ItemName        *string        `json:"itemName,omitempty"`
	Description     *string        `json:"description,omitempty"`
	WarrantyMonths  *int           `json:"warrantyMonths,omitempty"`
	PriceRegular    float64        `json:"priceRegular"`
	PriceDiscountFX *float64       `json:"priceDiscountFx,omitempty"`
	Stock           int            `json:"stock"`
	AdditionalData  map[string]any `json:"additionalData,omitempty"`
	CreatedAt       string         `json:"createdAt"`
	UpdatedAt       string         `json:"updatedAt"`
}

// BatteryListResponse wraps a battery collection.
type BatteryListResponse struct {
	Items []BatteryResponse `json:"items"`
	Total int               `json:"total"`
}

// CreateFitmentRequest creates a vehicle configuration.
type CreateFitmentRequest struct {
	VehicleMake   string  `json:"vehicleMake" validate:"required,max=100"`
	VehicleModel  string  `json:"vehicleModel" validate:"required,max=100"`
	YearStart     *int    `json:"yearStart" validate:"omitempty,min=1950"`
	YearEnd       *int    `json:"yearEnd" validate:"omitempty,min=1950"`
	EngineDetails *string `json:"engineDetails"`
	Notes         *string `json:"notes"`
}

// FitmentResponse is the API representation of a vehicle fitment.
type FitmentResponse struct {
	FitmentID     int     `json:"fitmentId"`
	VehicleMake   string  `json:"vehicleMake"`
	VehicleModel  string  `json:"vehicleModel"`
	YearStart     *int    `json:"yearStart,omitempty"`
	YearEnd       *int    `json:"yearEnd,omitempty"`
	EngineDetails *string `json:"engineDetails,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// LinkBatteryRequest links a battery to a fitment.
type LinkBatteryRequest struct {
	BatteryID string `json:"batteryId" validate:"required"`
}

// VehicleSearchRequest queries batteries compatible with a vehicle.
type VehicleSearchRequest struct {
	Make  string `form:"make" validate:"required"`
	Model string `form:"model" validate:"required"`
	Year  *int   `form:"year" validate:"omitempty,min=1950"`
}

// BatterySummary is the compact search result handed to chat tooling and the
// vehicle search endpoint. Field names follow the wire contract the assistant
// prompt was written against.
type BatterySummary struct {
	ID              string   `json:"id"`
	Brand           string   `json:"brand"`
	ModelCode       string   `json:"model_code"`
	ItemName        string   `json:"item_name,omitempty"`
	WarrantyInfo    string   `json:"warranty_info"`
	PriceFull       float64  `json:"price_full"`
	PriceDiscountFX *float64 `json:"price_discount_fx,omitempty"`
	StockQuantity   int      `json:"stock_quantity"`
	Message         string   `json:"message,omitempty"`
}

// UpsertFinancingRuleRequest creates or replaces a financing rule.
type UpsertFinancingRuleRequest struct {
	Provider                   string   `json:"provider" validate:"required,max=50"`
	LevelName                  string   `json:"levelName" validate:"required,max=50"`
	InitialPaymentPercentage   float64  `json:"initialPaymentPercentage" validate:"required,gt=0,lte=1"`
	Installments               int      `json:"installments" validate:"required,min=1"`
	ProviderDiscountPercentage *float64 `json:"providerDiscountPercentage" validate:"omitempty,gte=0,lt=1"`
}

// ReplaceFinancingRulesRequest swaps a provider's entire rule set.
type ReplaceFinancingRulesRequest struct {
	Provider string                      `json:"provider" validate:"required,max=50"`
	Rules    []ReplaceFinancingRuleEntry `json:"rules" validate:"required,min=1,dive"`
}

// ReplaceFinancingRuleEntry is one rule inside a wholesale replace.
type ReplaceFinancingRuleEntry struct {
	LevelName                  string   `json:"levelName" validate:"required,max=50"`
	InitialPaymentPercentage   float64  `json:"initialPaymentPercentage" validate:"required,gt=0,lte=1"`
	Installments               int      `json:"installments" validate:"required,min=1"`
	ProviderDiscountPercentage *float64 `json:"providerDiscountPercentage" validate:"omitempty,gte=0,lt=1"`
}

// FinancingRuleResponse is the API representation of a financing rule.
type FinancingRuleResponse struct {
	ID                         int      `json:"id"`
	Provider                   string   `json:"provider"`
	LevelName                  string   `json:"levelName"`
	InitialPaymentPercentage   float64  `json:"initialPaymentPercentage"`
	Installments               int      `json:"installments"`
	ProviderDiscountPercentage *float64 `json:"providerDiscountPercentage,omitempty"`
}

// FinancingPlan is one computed payment plan for a provider level. Monetary
// amounts are fixed-point strings with two decimals.
type FinancingPlan struct {
	Provider          string `json:"provider"`
	LevelName         string `json:"level_name"`
	DiscountedPrice   string `json:"discounted_price"`
	InitialPayment    string `json:"initial_payment"`
	Installments      int    `json:"installments"`
	InstallmentAmount string `json:"installment_amount"`
}
