// Package domain defines the core interfaces and types of the TICPE engine.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// Calculation methods require tenantID for strict multi-tenancy isolation;
// reference tables are shared by every tenant.
type Repository interface {
	// Reference tables
	SeedReference(ctx context.Context, tables *ReferenceTables) error
	LoadReference(ctx context.Context, version string) (*ReferenceTables, error)
	ListReferenceVersions(ctx context.Context) ([]string, error)

	// Calculation history
	SaveCalculation(ctx context.Context, tenantID string, calc *Calculation) error
	GetCalculation(ctx context.Context, tenantID string, calcID string) (*Calculation, error)
	ListCalculations(ctx context.Context, tenantID string, limit int) ([]*Calculation, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `mapstructure:"driver"`

	// SQLite specific
	SQLitePath string `mapstructure:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `mapstructure:"postgresHost"`
	PostgresPort     int    `mapstructure:"postgresPort"`
	PostgresUser     string `mapstructure:"postgresUser"`
	PostgresPassword string `mapstructure:"postgresPassword"`
	PostgresDB       string `mapstructure:"postgresDB"`
	PostgresSSLMode  string `mapstructure:"postgresSSLMode"`

	// Connection pool settings
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
}
