// Package service implements catalog business logic: battery and fitment
// management, vehicle compatibility search, and financing plan computation.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"battbot_backend/internal/catalog/repository"
	"battbot_backend/internal/catalog/transport"
	"battbot_backend/platform/apperr"
	"battbot_backend/platform/logger"
)

// makeAliases maps common colloquial makes to their canonical form. Keys and
// values are lowercase.
var makeAliases = map[string]string{
	"vw":        "volkswagen",
	"chevy":     "chevrolet",
	"mercedes":  "mercedes-benz",
	"landrover": "land rover",
}

// Service provides business logic for the battery catalog.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new catalog service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// NormalizeVehicleMake lowercases, trims, and resolves make aliases.
func NormalizeVehicleMake(vehicleMake string) string {
	normalized := strings.ToLower(strings.TrimSpace(vehicleMake))
	if canonical, ok := makeAliases[normalized]; ok {
		return canonical
	}
	return normalized
}

// NormalizeVehicleModel lowercases and trims the model name.
func NormalizeVehicleModel(model string) string {
	return strings.ToLower(strings.TrimSpace(model))
}

// SearchBatteriesForVehicle finds batteries compatible with the given vehicle.
// An empty result is a valid answer, not an error.
func (s *Service) SearchBatteriesForVehicle(ctx context.Context, vehicleMake, vehicleModel string, year *int) ([]transport.BatterySummary, error) {
	normalizedMake := NormalizeVehicleMake(vehicleMake)
	normalizedModel := NormalizeVehicleModel(vehicleModel)
	if normalizedMake == "" || normalizedModel == "" {
		return nil, apperr.Validation("vehicle make and model are required")
	}

	batteries, err := s.repo.FindBatteriesForVehicle(ctx, repository.FitmentSearchParams{
		Make:  normalizedMake,
		Model: normalizedModel,
		Year:  year,
	})
	if err != nil {
		s.log.DatabaseError("find batteries for vehicle", err)
		return nil, err
	}

	summaries := make([]transport.BatterySummary, 0, len(batteries))
	for _, battery := range batteries {
		summaries = append(summaries, toBatterySummary(battery))
	}

	s.log.Info("vehicle battery search",
		"make", normalizedMake, "model", normalizedModel, "results", len(summaries))
	return summaries, nil
}

// UpsertBattery creates or replaces a battery.
func (s *Service) UpsertBattery(ctx context.Context, req transport.UpsertBatteryRequest) (transport.BatteryResponse, error) {
	brand := strings.TrimSpace(req.Brand)
	modelCode := strings.TrimSpace(req.ModelCode)

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = fmt.Sprintf("%s_%s", brand, modelCode)
	}

	var discountFX *decimal.Decimal
	if req.PriceDiscountFX != nil {
		d := decimal.NewFromFloat(*req.PriceDiscountFX)
		discountFX = &d
	}

	battery, err := s.repo.UpsertBattery(ctx, repository.UpsertBatteryParams{
		ID:              id,
		Brand:           brand,
		ModelCode:       modelCode,
		ItemName:        req.ItemName,
		Description:     req.Description,
		WarrantyMonths:  req.WarrantyMonths,
		PriceRegular:    decimal.NewFromFloat(req.PriceRegular),
		PriceDiscountFX: discountFX,
		Stock:           req.Stock,
		AdditionalData:  req.AdditionalData,
	})
	if err != nil {
		return transport.BatteryResponse{}, err
	}

	s.log.Info("battery upserted", "id", battery.ID, "brand", battery.Brand)
	return toBatteryResponse(battery), nil
}

// GetBatteryByID retrieves a battery.
func (s *Service) GetBatteryByID(ctx context.Context, id string) (transport.BatteryResponse, error) {
	battery, err := s.repo.GetBatteryByID(ctx, id)
	if err != nil {
		return transport.BatteryResponse{}, err
	}
	return toBatteryResponse(battery), nil
}

// ListBatteries retrieves all batteries.
func (s *Service) ListBatteries(ctx context.Context) (transport.BatteryListResponse, error) {
	batteries, err := s.repo.ListBatteries(ctx)
	if err != nil {
		return transport.BatteryListResponse{}, err
	}

	items := make([]transport.BatteryResponse, 0, len(batteries))
	for _, battery := range batteries {
		items = append(items, toBatteryResponse(battery))
	}
	return transport.BatteryListResponse{Items: items, Total: len(items)}, nil
}

// DeleteBattery removes a battery.
func (s *Service) DeleteBattery(ctx context.Context, id string) error {
	if err := s.repo.DeleteBattery(ctx, id); err != nil {
		return err
	}
	s.log.Info("battery deleted", "id", id)
	return nil
}

// CreateFitment creates a vehicle configuration.
func (s *Service) CreateFitment(ctx context.Context, req transport.CreateFitmentRequest) (transport.FitmentResponse, error) {
	if req.YearStart != nil && req.YearEnd != nil && *req.YearEnd < *req.YearStart {
		return transport.FitmentResponse{}, apperr.Validation("yearEnd must not precede yearStart")
	}

	fitment, err := s.repo.CreateFitment(ctx, repository.CreateFitmentParams{
		VehicleMake:   strings.TrimSpace(req.VehicleMake),
		VehicleModel:  strings.TrimSpace(req.VehicleModel),
		YearStart:     req.YearStart,
		YearEnd:       req.YearEnd,
		EngineDetails: req.EngineDetails,
		Notes:         req.Notes,
	})
	if err != nil {
		return transport.FitmentResponse{}, err
	}
	return toFitmentResponse(fitment), nil
}

// ListFitments retrieves all vehicle configurations.
func (s *Service) ListFitments(ctx context.Context) ([]transport.FitmentResponse, error) {
	fitments, err := s.repo.ListFitments(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]transport.FitmentResponse, 0, len(fitments))
	for _, fitment := range fitments {
		responses = append(responses, toFitmentResponse(fitment))
	}
	return responses, nil
}

// DeleteFitment removes a vehicle configuration.
func (s *Service) DeleteFitment(ctx context.Context, fitmentID int) error {
	return s.repo.DeleteFitment(ctx, fitmentID)
}

// LinkBatteryToFitment marks a battery compatible with a fitment.
func (s *Service) LinkBatteryToFitment(ctx context.Context, batteryID string, fitmentID int) error {
	// Surface a not-found early instead of a foreign key violation.
	if _, err := s.repo.GetBatteryByID(ctx, batteryID); err != nil {
		return err
	}
	return s.repo.LinkBatteryToFitment(ctx, batteryID, fitmentID)
}

// UnlinkBatteryFromFitment removes a compatibility link.
func (s *Service) UnlinkBatteryFromFitment(ctx context.Context, batteryID string, fitmentID int) error {
	return s.repo.UnlinkBatteryFromFitment(ctx, batteryID, fitmentID)
}

func toBatteryResponse(b repository.Battery) transport.BatteryResponse {
	priceRegular, _ := b.PriceRegular.Float64()
	var discountFX *float64
	if b.PriceDiscountFX != nil {
		v, _ := b.PriceDiscountFX.Float64()
		discountFX = &v
	}

	return transport.BatteryResponse{
		ID:              b.ID,
		Brand:           b.Brand,
		ModelCode:       b.ModelCode,
		ItemName:        b.ItemName,
		Description:     b.Description,
		WarrantyMonths:  b.WarrantyMonths,
		PriceRegular:    priceRegular,
		PriceDiscountFX: discountFX,
		Stock:           b.Stock,
		AdditionalData:  b.AdditionalData,
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       b.UpdatedAt.Format(time.RFC3339),
	}
}

func toBatterySummary(b repository.Battery) transport.BatterySummary {
	priceRegular, _ := b.PriceRegular.Float64()
	var discountFX *float64
	if b.PriceDiscountFX != nil {
		v, _ := b.PriceDiscountFX.Float64()
		discountFX = &v
	}

	warranty := "Garantía no especificada"
	if b.WarrantyMonths != nil {
		warranty = fmt.Sprintf("%d meses", *b.WarrantyMonths)
	}

	var itemName string
	if b.ItemName != nil {
		itemName = *b.ItemName
	}

	return transport.BatterySummary{
		ID:              b.ID,
		Brand:           b.Brand,
		ModelCode:       b.ModelCode,
		ItemName:        itemName,
		WarrantyInfo:    warranty,
		PriceFull:       priceRegular,
		PriceDiscountFX: discountFX,
		StockQuantity:   b.Stock,
		Message:         formatBatteryMessage(b),
	}
}

// formatBatteryMessage renders the store message for one battery. Batteries
// may carry a message_template in additional_data with uppercase placeholders;
// otherwise a default Spanish block is produced.
func formatBatteryMessage(b repository.Battery) string {
	warranty := "N/A"
	if b.WarrantyMonths != nil {
		warranty = fmt.Sprintf("%d", *b.WarrantyMonths)
	}
	priceRegular := b.PriceRegular.StringFixed(2)
	priceFX := "N/A"
	if b.PriceDiscountFX != nil {
		priceFX = b.PriceDiscountFX.StringFixed(2)
	}

	if b.AdditionalData != nil {
		if raw, ok := b.AdditionalData["message_template"]; ok {
			if template, ok := raw.(string); ok && template != "" {
				replacer := strings.NewReplacer(
					"{BRAND}", b.Brand,
					"{MODEL_CODE}", b.ModelCode,
					"{WARRANTY_MONTHS}", warranty,
					"{PRICE_REGULAR}", "$"+priceRegular,
					"{PRICE_DISCOUNT_FX}", "$"+priceFX,
					"{STOCK}", fmt.Sprintf("%d", b.Stock),
				)
				return replacer.Replace(template)
			}
		}
	}

	name := b.Brand + " " + b.ModelCode
	if b.ItemName != nil && *b.ItemName != "" {
		name = *b.ItemName
	}

	lines := []string{
		fmt.Sprintf("Batería: %s.", name),
		fmt.Sprintf("Marca: %s.", b.Brand),
		fmt.Sprintf("Modelo: %s.", b.ModelCode),
		fmt.Sprintf("Garantía: %s meses.", warranty),
		fmt.Sprintf("Precio Regular: $%s.", priceRegular),
	}
	if b.PriceDiscountFX != nil {
		lines = append(lines, fmt.Sprintf("Descuento Pago en Divisas: $%s.", priceFX))
	}
	lines = append(lines,
		fmt.Sprintf("Stock: %d.", b.Stock),
		"Debe entregar la chatarra.",
		"⚠️ Para que su descuento sea válido, debe presentar este mensaje en la tienda.",
	)
	return strings.Join(lines, "\n")
}

func toFitmentResponse(f repository.VehicleFitment) transport.FitmentResponse {
	return transport.FitmentResponse{
		FitmentID:     f.FitmentID,
		VehicleMake:   f.VehicleMake,
		VehicleModel:  f.VehicleModel,
		YearStart:     f.YearStart,
		YearEnd:       f.YearEnd,
		EngineDetails: f.EngineDetails,
		Notes:         f.Notes,
	}
}
