// Package repository provides data persistence implementations: the versioned
// TICPE reference tables and the calculation history.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/opensource-finance/ticpe/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (*SQLRepository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// Source returns a reference source reading the seeded tables of a version.
func (r *SQLRepository) Source(ctx context.Context, version string) (*SQLSource, error) {
	return NewSQLSource(ctx, r.db, r.driver, version)
}

// SeedReference upserts every row of a table set in one transaction.
// Seeding the same version twice leaves the tables unchanged.
func (r *SQLRepository) SeedReference(ctx context.Context, tables *domain.ReferenceTables) error {
	if tables == nil || tables.Version == "" {
		return fmt.Errorf("%w: dataset version is required", ErrInvalidInput)
	}

	lookup, err := json.Marshal(tables.Lookup)
	if err != nil {
		return fmt.Errorf("marshal lookup defaults: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	v := tables.Version
	exec := func(query string, args ...any) error {
		_, err := tx.ExecContext(ctx, r.rebind(query), args...)
		return err
	}

	if err := exec(`
		INSERT INTO ticpe_datasets (version, year, lookup, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(version) DO UPDATE SET
			year = excluded.year,
			lookup = excluded.lookup
	`, v, tables.Year, string(lookup), time.Now().UTC()); err != nil {
		return fmt.Errorf("seed dataset %s: %w", v, err)
	}

	for _, s := range tables.Sectors {
		if err := exec(`
			INSERT INTO ticpe_sectors (version, sector, performance, default_fuel)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(version, sector) DO UPDATE SET
				performance = excluded.performance,
				default_fuel = excluded.default_fuel
		`, v, string(s.Sector), s.Performance, string(s.DefaultFuel)); err != nil {
			return fmt.Errorf("seed sector %s: %w", s.Sector, err)
		}
	}

	for _, f := range tables.FuelRates {
		if err := exec(`
			INSERT INTO ticpe_fuel_rates (version, fuel_type, year, rate)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(version, fuel_type, year) DO UPDATE SET
				rate = excluded.rate
		`, v, string(f.FuelType), f.Year, f.Rate); err != nil {
			return fmt.Errorf("seed fuel rate %s/%d: %w", f.FuelType, f.Year, err)
		}
	}

	for _, vt := range tables.VehicleTypes {
		if err := exec(`
			INSERT INTO ticpe_vehicle_types (version, vehicle_type, coefficient)
			VALUES (?, ?, ?)
			ON CONFLICT(version, vehicle_type) DO UPDATE SET
				coefficient = excluded.coefficient
		`, v, string(vt.VehicleType), vt.Coefficient); err != nil {
			return fmt.Errorf("seed vehicle type %s: %w", vt.VehicleType, err)
		}
	}

	// Benchmark order decides overlapping buckets, so rows are keyed by position.
	if err := exec(`DELETE FROM ticpe_benchmarks WHERE version = ? AND position >= ?`, v, len(tables.Benchmarks)); err != nil {
		return fmt.Errorf("trim benchmarks: %w", err)
	}
	for i, b := range tables.Benchmarks {
		if err := exec(`
			INSERT INTO ticpe_benchmarks (
				version, position, sector, vehicle_count_min, vehicle_count_max,
				average_recovery, min_recovery, max_recovery, sample_size, confidence_level
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(version, position) DO UPDATE SET
				sector = excluded.sector,
				vehicle_count_min = excluded.vehicle_count_min,
				vehicle_count_max = excluded.vehicle_count_max,
				average_recovery = excluded.average_recovery,
				min_recovery = excluded.min_recovery,
				max_recovery = excluded.max_recovery,
				sample_size = excluded.sample_size,
				confidence_level = excluded.confidence_level
		`, v, i, string(b.Sector), b.VehicleCountMin, b.VehicleCountMax,
			b.AverageRecovery, b.MinRecovery, b.MaxRecovery, b.SampleSize, b.ConfidenceLevel); err != nil {
			return fmt.Errorf("seed benchmark %s: %w", b.Sector, err)
		}
	}

	for i, m := range tables.MaturityRules {
		tiers, err := json.Marshal(m.Tiers)
		if err != nil {
			return fmt.Errorf("marshal tiers of %s: %w", m.Indicator, err)
		}
		if err := exec(`
			INSERT INTO ticpe_maturity_rules (version, position, indicator, tiers)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(version, indicator) DO UPDATE SET
				position = excluded.position,
				tiers = excluded.tiers
		`, v, i, m.Indicator, string(tiers)); err != nil {
			return fmt.Errorf("seed maturity rule %s: %w", m.Indicator, err)
		}
	}

	return tx.Commit()
}

// LoadReference reads back every table of a version.
func (r *SQLRepository) LoadReference(ctx context.Context, version string) (*domain.ReferenceTables, error) {
	if version == "" {
		return nil, fmt.Errorf("%w: dataset version is required", ErrInvalidInput)
	}

	t := &domain.ReferenceTables{Version: version}
	year, lookup, err := loadHeader(ctx, r.db, r.driver, version)
	if err != nil {
		return nil, err
	}
	t.Year = year
	t.Lookup = lookup

	if t.Sectors, err = querySectors(ctx, r.db, r.driver, version); err != nil {
		return nil, err
	}
	if t.FuelRates, err = queryFuelRates(ctx, r.db, r.driver, version); err != nil {
		return nil, err
	}
	if t.VehicleTypes, err = queryVehicleTypes(ctx, r.db, r.driver, version); err != nil {
		return nil, err
	}
	if t.Benchmarks, err = queryBenchmarks(ctx, r.db, r.driver, version, ""); err != nil {
		return nil, err
	}
	if t.MaturityRules, err = queryMaturityRules(ctx, r.db, r.driver, version); err != nil {
		return nil, err
	}
	return t, nil
}

// ListReferenceVersions returns the seeded dataset versions.
func (r *SQLRepository) ListReferenceVersions(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT version FROM ticpe_datasets ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// SaveCalculation stores a calculation with tenant isolation.
// Saving an existing ID replaces its status, result and error.
func (r *SQLRepository) SaveCalculation(ctx context.Context, tenantID string, calc *domain.Calculation) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if calc == nil || calc.ID == "" {
		return fmt.Errorf("%w: calculation ID is required", ErrInvalidInput)
	}

	responses, err := json.Marshal(calc.Responses)
	if err != nil {
		return fmt.Errorf("marshal responses: %w", err)
	}

	var result sql.NullString
	if calc.Result != nil {
		data, err := json.Marshal(calc.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		result = sql.NullString{String: string(data), Valid: true}
	}

	createdAt := calc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO calculations (
			id, tenant_id, status, responses, result, error,
			trace_id, dataset_version, created_at, process_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			result = excluded.result,
			error = excluded.error,
			dataset_version = excluded.dataset_version,
			process_ms = excluded.process_ms
		WHERE calculations.tenant_id = excluded.tenant_id
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		calc.ID, tenantID, calc.Status, string(responses), result, calc.Error,
		calc.TraceID, calc.DatasetVersion, createdAt, calc.ProcessMs,
	)
	return err
}

const calculationColumns = `
	id, tenant_id, status, responses, result, error,
	trace_id, dataset_version, created_at, process_ms
`

// GetCalculation retrieves a calculation by ID with tenant isolation.
func (r *SQLRepository) GetCalculation(ctx context.Context, tenantID string, calcID string) (*domain.Calculation, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + calculationColumns + ` FROM calculations WHERE tenant_id = ? AND id = ?`

	calc, err := scanCalculation(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, calcID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return calc, nil
}

// ListCalculations returns the most recent calculations of a tenant.
// A non-positive limit uses the default page size.
func (r *SQLRepository) ListCalculations(ctx context.Context, tenantID string, limit int) ([]*domain.Calculation, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `SELECT ` + calculationColumns + `
		FROM calculations
		WHERE tenant_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calcs []*domain.Calculation
	for rows.Next() {
		calc, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		calcs = append(calcs, calc)
	}
	return calcs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalculation(row rowScanner) (*domain.Calculation, error) {
	var (
		calc      domain.Calculation
		responses string
		result    sql.NullString
		errMsg    sql.NullString
		traceID   sql.NullString
		version   sql.NullString
	)
	if err := row.Scan(
		&calc.ID, &calc.TenantID, &calc.Status, &responses, &result, &errMsg,
		&traceID, &version, &calc.CreatedAt, &calc.ProcessMs,
	); err != nil {
		return nil, err
	}

	calc.Error = errMsg.String
	calc.TraceID = traceID.String
	calc.DatasetVersion = version.String

	if err := json.Unmarshal([]byte(responses), &calc.Responses); err != nil {
		return nil, fmt.Errorf("decode responses of %s: %w", calc.ID, err)
	}
	if result.Valid && result.String != "" {
		calc.Result = &domain.CalculationResult{}
		if err := json.Unmarshal([]byte(result.String), calc.Result); err != nil {
			return nil, fmt.Errorf("decode result of %s: %w", calc.ID, err)
		}
	}
	return &calc, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func (r *SQLRepository) rebind(query string) string {
	return rebind(r.driver, query)
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func rebind(driver, query string) string {
	if driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

var _ domain.Repository = (*SQLRepository)(nil)
