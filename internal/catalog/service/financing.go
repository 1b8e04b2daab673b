package service

import (
	"context"

	"github.com/shopspring/decimal"

	"battbot_backend/internal/catalog/repository"
	"battbot_backend/internal/catalog/transport"
	"battbot_backend/platform/apperr"
)

// DefaultFinancingProvider is the provider used when a caller does not name one.
const DefaultFinancingProvider = "Cashea"

// ComputeFinancingPlans calculates one payment plan per configured rule of the
// provider. Having zero rules is a configuration fault, not an empty answer.
func (s *Service) ComputeFinancingPlans(ctx context.Context, provider string, price decimal.Decimal) ([]transport.FinancingPlan, error) {
	if provider == "" {
		provider = DefaultFinancingProvider
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.Validation("product price must be positive")
	}

	rules, err := s.repo.ListFinancingRules(ctx, provider)
	if err != nil {
		s.log.DatabaseError("list financing rules", err)
		return nil, err
	}
	if len(rules) == 0 {
		return nil, apperr.Configuration("no financing rules configured for provider " + provider)
	}

	plans := make([]transport.FinancingPlan, 0, len(rules))
	for _, rule := range rules {
		plans = append(plans, computePlan(price, rule))
	}
	return plans, nil
}

// computePlan applies one rule to a price. Rounding is half-up to two
// decimals, matching how the store quotes amounts to customers.
func computePlan(price decimal.Decimal, rule repository.FinancingRule) transport.FinancingPlan {
	discounted := price
	if rule.ProviderDiscountPercentage != nil {
		discounted = price.Mul(decimal.NewFromInt(1).Sub(*rule.ProviderDiscountPercentage))
	}

	initial := discounted.Mul(rule.InitialPaymentPercentage).Round(2)
	remaining := discounted.Sub(initial)
	installment := remaining.Div(decimal.NewFromInt(int64(rule.Installments))).Round(2)

	return transport.FinancingPlan{
		Provider:          rule.Provider,
		LevelName:         rule.LevelName,
		DiscountedPrice:   discounted.Round(2).StringFixed(2),
		InitialPayment:    initial.StringFixed(2),
		Installments:      rule.Installments,
		InstallmentAmount: installment.StringFixed(2),
	}
}

// ListFinancingRules retrieves the configured rules for a provider.
func (s *Service) ListFinancingRules(ctx context.Context, provider string) ([]transport.FinancingRuleResponse, error) {
	if provider == "" {
		provider = DefaultFinancingProvider
	}

	rules, err := s.repo.ListFinancingRules(ctx, provider)
	if err != nil {
		return nil, err
	}

	responses := make([]transport.FinancingRuleResponse, 0, len(rules))
	for _, rule := range rules {
		responses = append(responses, toFinancingRuleResponse(rule))
	}
	return responses, nil
}

// UpsertFinancingRule creates or replaces a rule for a provider level.
func (s *Service) UpsertFinancingRule(ctx context.Context, req transport.UpsertFinancingRuleRequest) (transport.FinancingRuleResponse, error) {
	var discount *decimal.Decimal
	if req.ProviderDiscountPercentage != nil {
		d := decimal.NewFromFloat(*req.ProviderDiscountPercentage)
		discount = &d
	}

	rule, err := s.repo.UpsertFinancingRule(ctx, repository.UpsertFinancingRuleParams{
		Provider:                   req.Provider,
		LevelName:                  req.LevelName,
		InitialPaymentPercentage:   decimal.NewFromFloat(req.InitialPaymentPercentage),
		Installments:               req.Installments,
		ProviderDiscountPercentage: discount,
	})
	if err != nil {
		return transport.FinancingRuleResponse{}, err
	}

	s.log.Info("financing rule upserted", "provider", rule.Provider, "level", rule.LevelName)
	return toFinancingRuleResponse(rule), nil
}

// ReplaceFinancingRules swaps every rule of a provider for the given set.
func (s *Service) ReplaceFinancingRules(ctx context.Context, req transport.ReplaceFinancingRulesRequest) ([]transport.FinancingRuleResponse, error) {
	params := make([]repository.UpsertFinancingRuleParams, 0, len(req.Rules))
	for _, entry := range req.Rules {
		var discount *decimal.Decimal
		if entry.ProviderDiscountPercentage != nil {
			d := decimal.NewFromFloat(*entry.ProviderDiscountPercentage)
			discount = &d
		}
		params = append(params, repository.UpsertFinancingRuleParams{
			Provider:                   req.Provider,
			LevelName:                  entry.LevelName,
			InitialPaymentPercentage:   decimal.NewFromFloat(entry.InitialPaymentPercentage),
			Installments:               entry.Installments,
			ProviderDiscountPercentage: discount,
		})
	}

	rules, err := s.repo.ReplaceFinancingRules(ctx, req.Provider, params)
	if err != nil {
		return nil, err
	}

	s.log.Info("financing rules replaced", "provider", req.Provider, "count", len(rules))
	responses := make([]transport.FinancingRuleResponse, 0, len(rules))
	for _, rule := range rules {
		responses = append(responses, toFinancingRuleResponse(rule))
	}
	return responses, nil
}

// DeleteFinancingRule removes a rule.
func (s *Service) DeleteFinancingRule(ctx context.Context, id int) error {
	return s.repo.DeleteFinancingRule(ctx, id)
}

func toFinancingRuleResponse(rule repository.FinancingRule) transport.FinancingRuleResponse {
	initialPct, _ := rule.InitialPaymentPercentage.Float64()
	var discount *float64
	if rule.ProviderDiscountPercentage != nil {
		v, _ := rule.ProviderDiscountPercentage.Float64()
		discount = &v
	}

	return transport.FinancingRuleResponse{
		ID:                         rule.ID,
		Provider:                   rule.Provider,
		LevelName:                  rule.LevelName,
		InitialPaymentPercentage:   initialPct,
		Installments:               rule.Installments,
		ProviderDiscountPercentage: discount,
	}
}
