package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"battbot_backend/internal/catalog/repository"
	"battbot_backend/internal/catalog/transport"
	"battbot_backend/platform/apperr"
)

func decPtr(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func TestComputeFinancingPlansSingleRule(t *testing.T) {
	repo := &fakeRepo{
		rules: []repository.FinancingRule{
			{
				ID:                         1,
				Provider:                   "Cashea",
				LevelName:                  "Nivel 1",
				InitialPaymentPercentage:   decimal.NewFromFloat(0.60),
				Installments:               3,
				ProviderDiscountPercentage: decPtr(0.13),
			},
		},
	}
	svc := newTestService(repo)

	plans, err := svc.ComputeFinancingPlans(context.Background(), "Cashea", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("ComputeFinancingPlans failed: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(plans))
	}

	plan := plans[0]
	if plan.DiscountedPrice != "87.00" {
		t.Errorf("discounted price = %s, want 87.00", plan.DiscountedPrice)
	}
	if plan.InitialPayment != "52.20" {
		t.Errorf("initial payment = %s, want 52.20", plan.InitialPayment)
	}
	if plan.InstallmentAmount != "11.60" {
		t.Errorf("installment amount = %s, want 11.60", plan.InstallmentAmount)
	}
	if plan.Installments != 3 {
		t.Errorf("installments = %d, want 3", plan.Installments)
	}
}

func TestComputeFinancingPlansNoDiscount(t *testing.T) {
	repo := &fakeRepo{
		rules: []repository.FinancingRule{
			{
				Provider:                 "Cashea",
				LevelName:                "Nivel 6",
				InitialPaymentPercentage: decimal.NewFromFloat(0.40),
				Installments:             3,
			},
		},
	}
	svc := newTestService(repo)

	plans, err := svc.ComputeFinancingPlans(context.Background(), "Cashea", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("ComputeFinancingPlans failed: %v", err)
	}

	plan := plans[0]
	if plan.DiscountedPrice != "100.00" {
		t.Errorf("nil discount should leave price intact, got %s", plan.DiscountedPrice)
	}
	if plan.InitialPayment != "40.00" {
		t.Errorf("initial payment = %s, want 40.00", plan.InitialPayment)
	}
	if plan.InstallmentAmount != "20.00" {
		t.Errorf("installment amount = %s, want 20.00", plan.InstallmentAmount)
	}
}

func TestComputeFinancingPlansRoundsHalfUp(t *testing.T) {
	repo := &fakeRepo{
		rules: []repository.FinancingRule{
			{
				Provider:                 "Cashea",
				LevelName:                "Nivel 2",
				InitialPaymentPercentage: decimal.NewFromFloat(0.50),
				Installments:             3,
			},
		},
	}
	svc := newTestService(repo)

	// 100.01 / 2 = 50.005 which must round up to 50.01.
	plans, err := svc.ComputeFinancingPlans(context.Background(), "Cashea", decimal.NewFromFloat(100.01))
	if err != nil {
		t.Fatalf("ComputeFinancingPlans failed: %v", err)
	}
	if plans[0].InitialPayment != "50.01" {
		t.Errorf("initial payment = %s, want 50.01 (half-up)", plans[0].InitialPayment)
	}
}

func TestComputeFinancingPlansNoRulesIsConfigurationError(t *testing.T) {
	svc := newTestService(&fakeRepo{})

	_, err := svc.ComputeFinancingPlans(context.Background(), "Cashea", decimal.NewFromInt(100))
	if !apperr.Is(err, apperr.KindConfiguration) {
		t.Fatalf("expected configuration error for zero rules, got: %v", err)
	}
}

func TestComputeFinancingPlansRejectsNonPositivePrice(t *testing.T) {
	svc := newTestService(&fakeRepo{})

	_, err := svc.ComputeFinancingPlans(context.Background(), "Cashea", decimal.Zero)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for zero price, got: %v", err)
	}
}

func TestComputeFinancingPlansOnePlanPerRule(t *testing.T) {
	repo := &fakeRepo{
		rules: []repository.FinancingRule{
			{Provider: "Cashea", LevelName: "Nivel 1", InitialPaymentPercentage: decimal.NewFromFloat(0.60), Installments: 3, ProviderDiscountPercentage: decPtr(0.13)},
			{Provider: "Cashea", LevelName: "Nivel 2", InitialPaymentPercentage: decimal.NewFromFloat(0.50), Installments: 3, ProviderDiscountPercentage: decPtr(0.10)},
			{Provider: "Cashea", LevelName: "Nivel 3", InitialPaymentPercentage: decimal.NewFromFloat(0.40), Installments: 3},
		},
	}
	svc := newTestService(repo)

	plans, err := svc.ComputeFinancingPlans(context.Background(), "", decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("ComputeFinancingPlans failed: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("expected one plan per rule, got %d", len(plans))
	}
	for i, level := range []string{"Nivel 1", "Nivel 2", "Nivel 3"} {
		if plans[i].LevelName != level {
			t.Errorf("plan %d level = %s, want %s", i, plans[i].LevelName, level)
		}
	}
}

func TestReplaceFinancingRulesSwapsWholeProviderSet(t *testing.T) {
	repo := &fakeRepo{
		replaceResult: []repository.FinancingRule{
			{ID: 7, Provider: "Cashea", LevelName: "Nivel 1", InitialPaymentPercentage: decimal.NewFromFloat(0.60), Installments: 3, ProviderDiscountPercentage: decPtr(0.13)},
			{ID: 8, Provider: "Cashea", LevelName: "Nivel 2", InitialPaymentPercentage: decimal.NewFromFloat(0.50), Installments: 6},
		},
	}
	svc := newTestService(repo)

	discount := 0.13
	result, err := svc.ReplaceFinancingRules(context.Background(), transport.ReplaceFinancingRulesRequest{
		Provider: "Cashea",
		Rules: []transport.ReplaceFinancingRuleEntry{
			{LevelName: "Nivel 1", InitialPaymentPercentage: 0.60, Installments: 3, ProviderDiscountPercentage: &discount},
			{LevelName: "Nivel 2", InitialPaymentPercentage: 0.50, Installments: 6},
		},
	})
	if err != nil {
		t.Fatalf("ReplaceFinancingRules failed: %v", err)
	}

	if repo.replacedProvider != "Cashea" {
		t.Errorf("replaced provider = %s, want Cashea", repo.replacedProvider)
	}
	if len(repo.replacedRules) != 2 {
		t.Fatalf("expected 2 rules handed to the repository, got %d", len(repo.replacedRules))
	}
	first := repo.replacedRules[0]
	if first.Provider != "Cashea" || first.LevelName != "Nivel 1" {
		t.Errorf("first rule = %+v, want Cashea Nivel 1", first)
	}
	if !first.InitialPaymentPercentage.Equal(decimal.NewFromFloat(0.60)) {
		t.Errorf("first rule initial payment = %s, want 0.6", first.InitialPaymentPercentage)
	}
	if first.ProviderDiscountPercentage == nil || !first.ProviderDiscountPercentage.Equal(decimal.NewFromFloat(0.13)) {
		t.Errorf("first rule discount = %v, want 0.13", first.ProviderDiscountPercentage)
	}
	if repo.replacedRules[1].ProviderDiscountPercentage != nil {
		t.Errorf("second rule discount = %v, want nil", repo.replacedRules[1].ProviderDiscountPercentage)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 rules in response, got %d", len(result))
	}
	if result[0].ID != 7 || result[1].Installments != 6 {
		t.Errorf("response rules = %+v, want repository rows mapped through", result)
	}
}
