package repository

// Schema definitions for the TICPE database.
// Compatible with both SQLite and PostgreSQL.
// Reference rows are keyed by dataset version so several versions coexist.

const schemaDatasets = `
CREATE TABLE IF NOT EXISTS ticpe_datasets (
    version TEXT PRIMARY KEY,
    year INTEGER NOT NULL,
    lookup TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
`

const schemaSectors = `
CREATE TABLE IF NOT EXISTS ticpe_sectors (
    version TEXT NOT NULL,
    sector TEXT NOT NULL,
    performance REAL NOT NULL,
    default_fuel TEXT NOT NULL,
    PRIMARY KEY (version, sector)
);
`

const schemaFuelRates = `
CREATE TABLE IF NOT EXISTS ticpe_fuel_rates (
    version TEXT NOT NULL,
    fuel_type TEXT NOT NULL,
    year INTEGER NOT NULL,
    rate REAL NOT NULL,
    PRIMARY KEY (version, fuel_type, year)
);
`

const schemaVehicleTypes = `
CREATE TABLE IF NOT EXISTS ticpe_vehicle_types (
    version TEXT NOT NULL,
    vehicle_type TEXT NOT NULL,
    coefficient REAL NOT NULL,
    PRIMARY KEY (version, vehicle_type)
);
`

const schemaBenchmarks = `
CREATE TABLE IF NOT EXISTS ticpe_benchmarks (
    version TEXT NOT NULL,
    position INTEGER NOT NULL,
    sector TEXT NOT NULL,
    vehicle_count_min INTEGER NOT NULL,
    vehicle_count_max INTEGER NOT NULL,
    average_recovery REAL NOT NULL,
    min_recovery REAL NOT NULL,
    max_recovery REAL NOT NULL,
    sample_size INTEGER NOT NULL,
    confidence_level REAL NOT NULL,
    PRIMARY KEY (version, position)
);

CREATE INDEX IF NOT EXISTS idx_ticpe_benchmarks_sector ON ticpe_benchmarks(version, sector);
`

const schemaMaturityRules = `
CREATE TABLE IF NOT EXISTS ticpe_maturity_rules (
    version TEXT NOT NULL,
    position INTEGER NOT NULL,
    indicator TEXT NOT NULL,
    tiers TEXT NOT NULL,
    PRIMARY KEY (version, indicator)
);
`

const schemaCalculations = `
CREATE TABLE IF NOT EXISTS calculations (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    status TEXT NOT NULL,
    responses TEXT NOT NULL,
    result TEXT,
    error TEXT,
    trace_id TEXT,
    dataset_version TEXT,
    created_at TIMESTAMP NOT NULL,
    process_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_calculations_tenant ON calculations(tenant_id, created_at);
`

// AllSchemas returns all schema definitions in order.
func AllSchemas() []string {
	return []string{
		schemaDatasets,
		schemaSectors,
		schemaFuelRates,
		schemaVehicleTypes,
		schemaBenchmarks,
		schemaMaturityRules,
		schemaCalculations,
	}
}
