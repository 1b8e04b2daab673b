package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"battbot_backend/platform/apperr"
)

const (
	batteryNotFoundMessage = "battery not found"
	fitmentNotFoundMessage = "vehicle fitment not found"
	ruleNotFoundMessage    = "financing rule not found"
)

const batteryColumns = `id, brand, model_code, item_name, description, warranty_months,
	price_regular, price_discount_fx, stock, additional_data, created_at, updated_at`

// Repo implements the catalog repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func scanBattery(row pgx.Row) (Battery, error) {
	var b Battery
	err := row.Scan(
		&b.ID, &b.Brand, &b.ModelCode, &b.ItemName, &b.Description, &b.WarrantyMonths,
		&b.PriceRegular, &b.PriceDiscountFX, &b.Stock, &b.AdditionalData, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

// UpsertBattery creates or replaces a battery by its business key.
func (r *Repo) UpsertBattery(ctx context.Context, params UpsertBatteryParams) (Battery, error) {
	query := fmt.Sprintf(`
		INSERT INTO batteries (id, brand, model_code, item_name, description, warranty_months,
			price_regular, price_discount_fx, stock, additional_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			brand = EXCLUDED.brand,
			model_code = EXCLUDED.model_code,
			item_name = EXCLUDED.item_name,
			description = EXCLUDED.description,
			warranty_months = EXCLUDED.warranty_months,
			price_regular = EXCLUDED.price_regular,
			price_discount_fx = EXCLUDED.price_discount_fx,
			stock = EXCLUDED.stock,
			additional_data = EXCLUDED.additional_data,
			updated_at = now()
		RETURNING %s`, batteryColumns)

	battery, err := scanBattery(r.pool.QueryRow(ctx, query,
		params.ID, params.Brand, params.ModelCode, params.ItemName, params.Description,
		params.WarrantyMonths, params.PriceRegular, params.PriceDiscountFX, params.Stock, params.AdditionalData,
	))
	if err != nil {
		return Battery{}, fmt.Errorf("upsert battery: %w", err)
	}
	return battery, nil
}

// GetBatteryByID retrieves a battery by its ID.
func (r *Repo) GetBatteryByID(ctx context.Context, id string) (Battery, error) {
	query := fmt.Sprintf(`SELECT %s FROM batteries WHERE id = $1`, batteryColumns)

	battery, err := scanBattery(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Battery{}, apperr.NotFound(batteryNotFoundMessage)
		}
		return Battery{}, fmt.Errorf("get battery by id: %w", err)
	}
	return battery, nil
}

// ListBatteries lists all batteries ordered by brand and model code.
func (r *Repo) ListBatteries(ctx context.Context) ([]Battery, error) {
	query := fmt.Sprintf(`SELECT %s FROM batteries ORDER BY brand, model_code`, batteryColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list batteries: %w", err)
	}
	defer rows.Close()

	var batteries []Battery
	for rows.Next() {
		battery, err := scanBattery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan battery: %w", err)
		}
		batteries = append(batteries, battery)
	}
	return batteries, rows.Err()
}

// DeleteBattery removes a battery and its fitment links.
func (r *Repo) DeleteBattery(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM batteries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete battery: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(batteryNotFoundMessage)
	}
	return nil
}

// CreateFitment creates a vehicle fitment row.
func (r *Repo) CreateFitment(ctx context.Context, params CreateFitmentParams) (VehicleFitment, error) {
	query := `
		INSERT INTO vehicle_battery_fitment (vehicle_make, vehicle_model, year_start, year_end, engine_details, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING fitment_id, vehicle_make, vehicle_model, year_start, year_end, engine_details, notes`

	var f VehicleFitment
	if err := r.pool.QueryRow(ctx, query,
		params.VehicleMake, params.VehicleModel, params.YearStart, params.YearEnd, params.EngineDetails, params.Notes,
	).Scan(&f.FitmentID, &f.VehicleMake, &f.VehicleModel, &f.YearStart, &f.YearEnd, &f.EngineDetails, &f.Notes); err != nil {
		return VehicleFitment{}, fmt.Errorf("create fitment: %w", err)
	}
	return f, nil
}

// ListFitments lists all vehicle fitments.
func (r *Repo) ListFitments(ctx context.Context) ([]VehicleFitment, error) {
	query := `
		SELECT fitment_id, vehicle_make, vehicle_model, year_start, year_end, engine_details, notes
		FROM vehicle_battery_fitment
		ORDER BY vehicle_make, vehicle_model, year_start`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list fitments: %w", err)
	}
	defer rows.Close()

	var fitments []VehicleFitment
	for rows.Next() {
		var f VehicleFitment
		if err := rows.Scan(&f.FitmentID, &f.VehicleMake, &f.VehicleModel, &f.YearStart, &f.YearEnd, &f.EngineDetails, &f.Notes); err != nil {
			return nil, fmt.Errorf("scan fitment: %w", err)
		}
		fitments = append(fitments, f)
	}
	return fitments, rows.Err()
}

// DeleteFitment removes a fitment and its battery links.
func (r *Repo) DeleteFitment(ctx context.Context, fitmentID int) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM vehicle_battery_fitment WHERE fitment_id = $1`, fitmentID)
	if err != nil {
		return fmt.Errorf("delete fitment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(fitmentNotFoundMessage)
	}
	return nil
}

// LinkBatteryToFitment marks a battery as compatible with a vehicle fitment.
func (r *Repo) LinkBatteryToFitment(ctx context.Context, batteryID string, fitmentID int) error {
	query := `
		INSERT INTO battery_vehicle_fitments (battery_product_id_fk, fitment_id_fk)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, batteryID, fitmentID); err != nil {
		return fmt.Errorf("link battery to fitment: %w", err)
	}
	return nil
}

// UnlinkBatteryFromFitment removes a compatibility link.
func (r *Repo) UnlinkBatteryFromFitment(ctx context.Context, batteryID string, fitmentID int) error {
	query := `DELETE FROM battery_vehicle_fitments WHERE battery_product_id_fk = $1 AND fitment_id_fk = $2`
	result, err := r.pool.Exec(ctx, query, batteryID, fitmentID)
	if err != nil {
		return fmt.Errorf("unlink battery from fitment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(fitmentNotFoundMessage)
	}
	return nil
}

// FindBatteriesForVehicle returns the deduplicated set of batteries compatible
// with the given vehicle. Make and model must already be normalized to
// lowercase. A nil year matches any fitment year range.
func (r *Repo) FindBatteriesForVehicle(ctx context.Context, params FitmentSearchParams) ([]Battery, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT ON (b.id) %s
		FROM batteries b
		JOIN battery_vehicle_fitments link ON link.battery_product_id_fk = b.id
		JOIN vehicle_battery_fitment f ON f.fitment_id = link.fitment_id_fk
		WHERE lower(f.vehicle_make) = $1
		  AND lower(f.vehicle_model) = $2
		  AND ($3::int IS NULL OR (
			(f.year_start IS NULL OR f.year_start <= $3) AND
			(f.year_end IS NULL OR f.year_end >= $3)
		  ))
		ORDER BY b.id`,
		prefixedBatteryColumns("b"))

	rows, err := r.pool.Query(ctx, query, params.Make, params.Model, params.Year)
	if err != nil {
		return nil, fmt.Errorf("find batteries for vehicle: %w", err)
	}
	defer rows.Close()

	var batteries []Battery
	for rows.Next() {
		battery, err := scanBattery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan battery: %w", err)
		}
		batteries = append(batteries, battery)
	}
	return batteries, rows.Err()
}

func prefixedBatteryColumns(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.brand, %[1]s.model_code, %[1]s.item_name, %[1]s.description,
		%[1]s.warranty_months, %[1]s.price_regular, %[1]s.price_discount_fx, %[1]s.stock,
		%[1]s.additional_data, %[1]s.created_at, %[1]s.updated_at`, alias)
}

// ListFinancingRules returns all rules for a provider ordered by level name.
func (r *Repo) ListFinancingRules(ctx context.Context, provider string) ([]FinancingRule, error) {
	query := `
		SELECT id, provider, level_name, initial_payment_percentage, installments, provider_discount_percentage
		FROM financing_rules
		WHERE provider = $1
		ORDER BY level_name`

	rows, err := r.pool.Query(ctx, query, provider)
	if err != nil {
		return nil, fmt.Errorf("list financing rules: %w", err)
	}
	defer rows.Close()

	var rules []FinancingRule
	for rows.Next() {
		var rule FinancingRule
		if err := rows.Scan(
			&rule.ID, &rule.Provider, &rule.LevelName,
			&rule.InitialPaymentPercentage, &rule.Installments, &rule.ProviderDiscountPercentage,
		); err != nil {
			return nil, fmt.Errorf("scan financing rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// UpsertFinancingRule creates or replaces a rule for a provider level.
func (r *Repo) UpsertFinancingRule(ctx context.Context, params UpsertFinancingRuleParams) (FinancingRule, error) {
	query := `
		INSERT INTO financing_rules (provider, level_name, initial_payment_percentage, installments, provider_discount_percentage)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT uq_provider_level DO UPDATE SET
			initial_payment_percentage = EXCLUDED.initial_payment_percentage,
			installments = EXCLUDED.installments,
			provider_discount_percentage = EXCLUDED.provider_discount_percentage
		RETURNING id, provider, level_name, initial_payment_percentage, installments, provider_discount_percentage`

	var rule FinancingRule
	if err := r.pool.QueryRow(ctx, query,
		params.Provider, params.LevelName, params.InitialPaymentPercentage,
		params.Installments, params.ProviderDiscountPercentage,
	).Scan(
		&rule.ID, &rule.Provider, &rule.LevelName,
		&rule.InitialPaymentPercentage, &rule.Installments, &rule.ProviderDiscountPercentage,
	); err != nil {
		return FinancingRule{}, fmt.Errorf("upsert financing rule: %w", err)
	}
	return rule, nil
}

// ReplaceFinancingRules deletes every rule of a provider and inserts the
// given set in one transaction, then re-reads so callers get assigned IDs.
func (r *Repo) ReplaceFinancingRules(ctx context.Context, provider string, rules []UpsertFinancingRuleParams) ([]FinancingRule, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("replace financing rules: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM financing_rules WHERE provider = $1`, provider); err != nil {
		return nil, fmt.Errorf("replace financing rules: %w", err)
	}

	for _, rule := range rules {
		if _, err := tx.Exec(ctx, `
			INSERT INTO financing_rules (provider, level_name, initial_payment_percentage, installments, provider_discount_percentage)
			VALUES ($1, $2, $3, $4, $5)`,
			provider, rule.LevelName, rule.InitialPaymentPercentage,
			rule.Installments, rule.ProviderDiscountPercentage,
		); err != nil {
			return nil, fmt.Errorf("replace financing rules: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("replace financing rules: %w", err)
	}

	return r.ListFinancingRules(ctx, provider)
}

// DeleteFinancingRule removes a rule by ID.
func (r *Repo) DeleteFinancingRule(ctx context.Context, id int) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM financing_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete financing rule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(ruleNotFoundMessage)
	}
	return nil
}
