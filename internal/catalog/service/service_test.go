package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"battbot_backend/internal/catalog/repository"
	"battbot_backend/platform/apperr"
	"battbot_backend/platform/logger"
)

type fakeRepo struct {
	repository.Repository

	searchParams repository.FitmentSearchParams
	searchResult []repository.Battery
	searchErr    error

	rules    []repository.FinancingRule
	rulesErr error

	replacedProvider string
	replacedRules    []repository.UpsertFinancingRuleParams
	replaceResult    []repository.FinancingRule
	replaceErr       error
}

func (f *fakeRepo) FindBatteriesForVehicle(_ context.Context, params repository.FitmentSearchParams) ([]repository.Battery, error) {
	f.searchParams = params
	return f.searchResult, f.searchErr
}

func (f *fakeRepo) ListFinancingRules(_ context.Context, _ string) ([]repository.FinancingRule, error) {
	return f.rules, f.rulesErr
}

func (f *fakeRepo) ReplaceFinancingRules(_ context.Context, provider string, rules []repository.UpsertFinancingRuleParams) ([]repository.FinancingRule, error) {
	f.replacedProvider = provider
	f.replacedRules = rules
	return f.replaceResult, f.replaceErr
}

func newTestService(repo repository.Repository) *Service {
	return New(repo, logger.New("test"))
}

func intPtr(v int) *int { return &v }

func TestNormalizeVehicleMake(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Toyota", "toyota"},
		{"  Volkswagen  ", "volkswagen"},
		{"VW", "volkswagen"},
		{"vw", "volkswagen"},
		{"Chevy", "chevrolet"},
		{"CHEVROLET", "chevrolet"},
	}
	for _, tc := range cases {
		if got := NormalizeVehicleMake(tc.input); got != tc.want {
			t.Errorf("NormalizeVehicleMake(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSearchBatteriesForVehicleNormalizesInput(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo)

	_, err := svc.SearchBatteriesForVehicle(context.Background(), " VW ", " Gol ", intPtr(2005))
	if err != nil {
		t.Fatalf("SearchBatteriesForVehicle failed: %v", err)
	}

	if repo.searchParams.Make != "volkswagen" {
		t.Errorf("expected alias-resolved make volkswagen, got %q", repo.searchParams.Make)
	}
	if repo.searchParams.Model != "gol" {
		t.Errorf("expected normalized model gol, got %q", repo.searchParams.Model)
	}
	if repo.searchParams.Year == nil || *repo.searchParams.Year != 2005 {
		t.Errorf("expected year 2005 to pass through, got %v", repo.searchParams.Year)
	}
}

func TestSearchBatteriesForVehicleRequiresMakeAndModel(t *testing.T) {
	svc := newTestService(&fakeRepo{})

	_, err := svc.SearchBatteriesForVehicle(context.Background(), "  ", "Corolla", nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for blank make, got: %v", err)
	}

	_, err = svc.SearchBatteriesForVehicle(context.Background(), "Toyota", "", nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for blank model, got: %v", err)
	}
}

func TestSearchBatteriesForVehicleEmptyResultIsNotError(t *testing.T) {
	svc := newTestService(&fakeRepo{})

	results, err := svc.SearchBatteriesForVehicle(context.Background(), "Toyota", "Corolla", nil)
	if err != nil {
		t.Fatalf("empty search must not error, got: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestSearchBatteriesForVehicleSummaryFields(t *testing.T) {
	discount := decimal.NewFromFloat(95.50)
	repo := &fakeRepo{
		searchResult: []repository.Battery{
			{
				ID:              "Fulgor_NS40-670",
				Brand:           "Fulgor",
				ModelCode:       "NS40-670",
				WarrantyMonths:  intPtr(18),
				PriceRegular:    decimal.NewFromFloat(120),
				PriceDiscountFX: &discount,
				Stock:           7,
			},
			{
				ID:           "Optima_RED-34",
				Brand:        "Optima",
				ModelCode:    "RED-34",
				PriceRegular: decimal.NewFromFloat(250),
				Stock:        2,
			},
		},
	}
	svc := newTestService(repo)

	results, err := svc.SearchBatteriesForVehicle(context.Background(), "Chevy", "Aveo", nil)
	if err != nil {
		t.Fatalf("SearchBatteriesForVehicle failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	first := results[0]
	if first.WarrantyInfo != "18 meses" {
		t.Errorf("expected warranty text '18 meses', got %q", first.WarrantyInfo)
	}
	if first.PriceFull != 120 {
		t.Errorf("expected price_full 120, got %v", first.PriceFull)
	}
	if first.PriceDiscountFX == nil || *first.PriceDiscountFX != 95.50 {
		t.Errorf("expected price_discount_fx 95.50, got %v", first.PriceDiscountFX)
	}
	if first.StockQuantity != 7 {
		t.Errorf("expected stock_quantity 7, got %d", first.StockQuantity)
	}

	second := results[1]
	if second.WarrantyInfo != "Garantía no especificada" {
		t.Errorf("expected default warranty text, got %q", second.WarrantyInfo)
	}
	if second.PriceDiscountFX != nil {
		t.Errorf("expected nil price_discount_fx, got %v", *second.PriceDiscountFX)
	}
}

func TestFormatBatteryMessageUsesTemplate(t *testing.T) {
	battery := repository.Battery{
		ID:             "Fulgor_NS40-670",
		Brand:          "Fulgor",
		ModelCode:      "NS40-670",
		WarrantyMonths: intPtr(18),
		PriceRegular:   decimal.NewFromFloat(120),
		Stock:          7,
		AdditionalData: map[string]any{
			"message_template": "Oferta: {BRAND} {MODEL_CODE} por {PRICE_REGULAR}, garantía {WARRANTY_MONTHS} meses.",
		},
	}

	got := formatBatteryMessage(battery)
	want := "Oferta: Fulgor NS40-670 por $120.00, garantía 18 meses."
	if got != want {
		t.Errorf("formatBatteryMessage = %q, want %q", got, want)
	}
}

func TestFormatBatteryMessageFallback(t *testing.T) {
	battery := repository.Battery{
		ID:           "Optima_RED-34",
		Brand:        "Optima",
		ModelCode:    "RED-34",
		PriceRegular: decimal.NewFromFloat(250),
		Stock:        2,
	}

	got := formatBatteryMessage(battery)
	if got == "" {
		t.Fatal("expected non-empty fallback message")
	}
	for _, fragment := range []string{"Optima", "RED-34", "$250.00", "chatarra"} {
		if !strings.Contains(got, fragment) {
			t.Errorf("fallback message missing %q:\n%s", fragment, got)
		}
	}
}
