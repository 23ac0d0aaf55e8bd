package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/opensource-finance/ticpe/internal/domain"
	"github.com/opensource-finance/ticpe/internal/reference"
)

// SQLSource answers reference lookups with one query per lookup against the
// seeded tables of a version. Missing rows yield the lookup defaults; a driver
// error is returned wrapped.
type SQLSource struct {
	db      *sql.DB
	driver  string
	version string
	year    int
	lookup  domain.LookupDefaults
}

// NewSQLSource reads the dataset header of version. The version must be seeded.
func NewSQLSource(ctx context.Context, db *sql.DB, driver, version string) (*SQLSource, error) {
	year, lookup, err := loadHeader(ctx, db, driver, version)
	if err != nil {
		return nil, err
	}
	return &SQLSource{
		db:      db,
		driver:  driver,
		version: version,
		year:    year,
		lookup:  lookup,
	}, nil
}

// Version returns the dataset version the source reads.
func (s *SQLSource) Version() string {
	return s.version
}

// memory resolves a lookup over a partial table set with the in-memory rules.
func (s *SQLSource) memory(t domain.ReferenceTables) *reference.MemorySource {
	t.Version = s.version
	t.Year = s.year
	t.Lookup = s.lookup
	return reference.NewMemorySource(&t)
}

// FuelRate implements domain.ReferenceSource.
func (s *SQLSource) FuelRate(ctx context.Context, fuelTypes []domain.FuelType, sector domain.Sector) (float64, error) {
	rates, err := queryFuelRates(ctx, s.db, s.driver, s.version)
	if err != nil {
		return 0, err
	}
	var sectors []domain.SectorRow
	row, err := querySector(ctx, s.db, s.driver, s.version, sector)
	if err != nil {
		return 0, err
	}
	if row != nil {
		sectors = append(sectors, *row)
	}
	return s.memory(domain.ReferenceTables{FuelRates: rates, Sectors: sectors}).FuelRate(ctx, fuelTypes, sector)
}

// VehicleCoefficient implements domain.ReferenceSource.
func (s *SQLSource) VehicleCoefficient(ctx context.Context, vehicleTypes []domain.VehicleType) (float64, error) {
	if len(vehicleTypes) == 0 {
		return s.lookup.VehicleCoefficient, nil
	}
	rows, err := queryVehicleTypes(ctx, s.db, s.driver, s.version)
	if err != nil {
		return 0, err
	}
	return s.memory(domain.ReferenceTables{VehicleTypes: rows}).VehicleCoefficient(ctx, vehicleTypes)
}

// SectorPerformance implements domain.ReferenceSource.
func (s *SQLSource) SectorPerformance(ctx context.Context, sector domain.Sector) (float64, error) {
	row, err := querySector(ctx, s.db, s.driver, s.version, sector)
	if err != nil || row == nil {
		return 0, err
	}
	return row.Performance, nil
}

// Benchmark implements domain.ReferenceSource.
func (s *SQLSource) Benchmark(ctx context.Context, sector domain.Sector, vehicleCount int) (*domain.BenchmarkRow, error) {
	rows, err := queryBenchmarks(ctx, s.db, s.driver, s.version, sector)
	if err != nil {
		return nil, err
	}
	return s.memory(domain.ReferenceTables{Benchmarks: rows}).Benchmark(ctx, sector, vehicleCount)
}

// MaturityRule implements domain.ReferenceSource.
func (s *SQLSource) MaturityRule(ctx context.Context, indicator string) (*domain.ScoringRule, error) {
	query := `SELECT tiers FROM ticpe_maturity_rules WHERE version = ? AND indicator = ?`

	var tiers string
	err := s.db.QueryRowContext(ctx, rebind(s.driver, query), s.version, indicator).Scan(&tiers)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query maturity rule %s: %w", indicator, err)
	}

	rule := &domain.ScoringRule{Indicator: indicator}
	if err := json.Unmarshal([]byte(tiers), &rule.Tiers); err != nil {
		return nil, fmt.Errorf("decode maturity rule %s: %w", indicator, err)
	}
	return rule, nil
}

var _ domain.ReferenceSource = (*SQLSource)(nil)

func loadHeader(ctx context.Context, db *sql.DB, driver, version string) (int, domain.LookupDefaults, error) {
	var (
		year   int
		raw    string
		lookup domain.LookupDefaults
	)
	query := `SELECT year, lookup FROM ticpe_datasets WHERE version = ?`
	err := db.QueryRowContext(ctx, rebind(driver, query), version).Scan(&year, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, lookup, fmt.Errorf("dataset %s: %w", version, ErrNotFound)
	}
	if err != nil {
		return 0, lookup, fmt.Errorf("query dataset %s: %w", version, err)
	}
	if err := json.Unmarshal([]byte(raw), &lookup); err != nil {
		return 0, lookup, fmt.Errorf("decode lookup defaults of %s: %w", version, err)
	}
	return year, lookup, nil
}

func querySector(ctx context.Context, db *sql.DB, driver, version string, sector domain.Sector) (*domain.SectorRow, error) {
	query := `SELECT sector, performance, default_fuel FROM ticpe_sectors WHERE version = ? AND sector = ?`

	var row domain.SectorRow
	err := db.QueryRowContext(ctx, rebind(driver, query), version, string(sector)).Scan(
		&row.Sector, &row.Performance, &row.DefaultFuel,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query sector %s: %w", sector, err)
	}
	return &row, nil
}

func querySectors(ctx context.Context, db *sql.DB, driver, version string) ([]domain.SectorRow, error) {
	query := `SELECT sector, performance, default_fuel FROM ticpe_sectors WHERE version = ? ORDER BY sector`

	rows, err := db.QueryContext(ctx, rebind(driver, query), version)
	if err != nil {
		return nil, fmt.Errorf("query sectors: %w", err)
	}
	defer rows.Close()

	var out []domain.SectorRow
	for rows.Next() {
		var row domain.SectorRow
		if err := rows.Scan(&row.Sector, &row.Performance, &row.DefaultFuel); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func queryFuelRates(ctx context.Context, db *sql.DB, driver, version string) ([]domain.FuelRateRow, error) {
	query := `SELECT fuel_type, year, rate FROM ticpe_fuel_rates WHERE version = ? ORDER BY fuel_type, year`

	rows, err := db.QueryContext(ctx, rebind(driver, query), version)
	if err != nil {
		return nil, fmt.Errorf("query fuel rates: %w", err)
	}
	defer rows.Close()

	var out []domain.FuelRateRow
	for rows.Next() {
		var row domain.FuelRateRow
		if err := rows.Scan(&row.FuelType, &row.Year, &row.Rate); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func queryVehicleTypes(ctx context.Context, db *sql.DB, driver, version string) ([]domain.VehicleTypeRow, error) {
	query := `SELECT vehicle_type, coefficient FROM ticpe_vehicle_types WHERE version = ? ORDER BY vehicle_type`

	rows, err := db.QueryContext(ctx, rebind(driver, query), version)
	if err != nil {
		return nil, fmt.Errorf("query vehicle types: %w", err)
	}
	defer rows.Close()

	var out []domain.VehicleTypeRow
	for rows.Next() {
		var row domain.VehicleTypeRow
		if err := rows.Scan(&row.VehicleType, &row.Coefficient); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// queryBenchmarks returns the benchmark rows in seed order, restricted to a
// sector unless sector is empty.
func queryBenchmarks(ctx context.Context, db *sql.DB, driver, version string, sector domain.Sector) ([]domain.BenchmarkRow, error) {
	query := `
		SELECT sector, vehicle_count_min, vehicle_count_max, average_recovery,
			   min_recovery, max_recovery, sample_size, confidence_level
		FROM ticpe_benchmarks
		WHERE version = ?`
	args := []any{version}
	if sector != "" {
		query += ` AND sector = ?`
		args = append(args, string(sector))
	}
	query += ` ORDER BY position`

	rows, err := db.QueryContext(ctx, rebind(driver, query), args...)
	if err != nil {
		return nil, fmt.Errorf("query benchmarks: %w", err)
	}
	defer rows.Close()

	var out []domain.BenchmarkRow
	for rows.Next() {
		var b domain.BenchmarkRow
		if err := rows.Scan(
			&b.Sector, &b.VehicleCountMin, &b.VehicleCountMax, &b.AverageRecovery,
			&b.MinRecovery, &b.MaxRecovery, &b.SampleSize, &b.ConfidenceLevel,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func queryMaturityRules(ctx context.Context, db *sql.DB, driver, version string) ([]domain.ScoringRule, error) {
	query := `SELECT indicator, tiers FROM ticpe_maturity_rules WHERE version = ? ORDER BY position`

	rows, err := db.QueryContext(ctx, rebind(driver, query), version)
	if err != nil {
		return nil, fmt.Errorf("query maturity rules: %w", err)
	}
	defer rows.Close()

	var out []domain.ScoringRule
	for rows.Next() {
		var (
			rule  domain.ScoringRule
			tiers string
		)
		if err := rows.Scan(&rule.Indicator, &tiers); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tiers), &rule.Tiers); err != nil {
			return nil, fmt.Errorf("decode maturity rule %s: %w", rule.Indicator, err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}
