package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Battery represents one battery product. The ID is the stable business key
// "<Brand>_<ModelCode>", e.g. "Fulgor_NS40-670".
type Battery struct {
	ID              string           `db:"id"`
	Brand           string           `db:"brand"`
	ModelCode       string           `db:"model_code"`
	ItemName        *string          `db:"item_name"`
	Description     *string          `db:"description"`
	WarrantyMonths  *int             `db:"warranty_months"`
	PriceRegular    decimal.Decimal  `db:"price_regular"`
	PriceDiscountFX *decimal.Decimal `db:"price_discount_fx"`
	Stock           int              `db:"stock"`
	AdditionalData  map[string]any   `db:"additional_data"`
	CreatedAt       time.Time        `db:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at"`
}

// VehicleFitment is one vehicle configuration a battery can fit.
type VehicleFitment struct {
	FitmentID     int     `db:"fitment_id"`
	VehicleMake   string  `db:"vehicle_make"`
	VehicleModel  string  `db:"vehicle_model"`
	YearStart     *int    `db:"year_start"`
	YearEnd       *int    `db:"year_end"`
	EngineDetails *string `db:"engine_details"`
	Notes         *string `db:"notes"`
}

// FinancingRule is one financing tier of a provider such as Cashea.
type FinancingRule struct {
	ID                         int              `db:"id"`
	Provider                   string           `db:"provider"`
	LevelName                  string           `db:"level_name"`
	InitialPaymentPercentage   decimal.Decimal  `db:"initial_payment_percentage"`
	Installments               int              `db:"installments"`
	ProviderDiscountPercentage *decimal.Decimal `db:"provider_discount_percentage"`
}

// UpsertBatteryParams contains data for creating or updating a battery.
type UpsertBatteryParams struct {
	ID              string
	Brand           string
	ModelCode       string
	ItemName        *string
	Description     *string
	WarrantyMonths  *int
	PriceRegular    decimal.Decimal
	PriceDiscountFX *decimal.Decimal
	Stock           int
	AdditionalData  map[string]any
}

// CreateFitmentParams contains data for creating a vehicle fitment row.
type CreateFitmentParams struct {
	VehicleMake   string
	VehicleModel  string
	YearStart     *int
	YearEnd       *int
	EngineDetails *string
	Notes         *string
}

// FitmentSearchParams carries pre-normalized make and model plus an optional
// year. Normalization happens in the service layer so the repository can rely
// on exact lowercase matches.
type FitmentSearchParams struct {
	Make  string
	Model string
	Year  *int
}

// UpsertFinancingRuleParams contains data for creating or updating a rule.
type UpsertFinancingRuleParams struct {
	Provider                   string
	LevelName                  string
	InitialPaymentPercentage   decimal.Decimal
	Installments               int
	ProviderDiscountPercentage *decimal.Decimal
}

// Repository defines catalog storage operations.
type Repository interface {
	UpsertBattery(ctx context.Context, params UpsertBatteryParams) (Battery, error)
	GetBatteryByID(ctx context.Context, id string) (Battery, error)
	ListBatteries(ctx context.Context) ([]Battery, error)
	DeleteBattery(ctx context.Context, id string) error

	CreateFitment(ctx context.Context, params CreateFitmentParams) (VehicleFitment, error)
	ListFitments(ctx context.Context) ([]VehicleFitment, error)
	DeleteFitment(ctx context.Context, fitmentID int) error
	LinkBatteryToFitment(ctx context.Context, batteryID string, fitmentID int) error
	UnlinkBatteryFromFitment(ctx context.Context, batteryID string, fitmentID int) error

	FindBatteriesForVehicle(ctx context.Context, params FitmentSearchParams) ([]Battery, error)

	ListFinancingRules(ctx context.Context, provider string) ([]FinancingRule, error)
	UpsertFinancingRule(ctx context.Context, params UpsertFinancingRuleParams) (FinancingRule, error)
	// ReplaceFinancingRules swaps a provider's entire rule set inside one
	// transaction. Readers never observe a partially replaced set.
	ReplaceFinancingRules(ctx context.Context, provider string, rules []UpsertFinancingRuleParams) ([]FinancingRule, error)
	DeleteFinancingRule(ctx context.Context, id int) error
}
