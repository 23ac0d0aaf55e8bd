package domain

import (
	"context"
)

// ReferenceSource is the read-only lookup boundary between the engine and the
// reference tables. Missing data is not an error: implementations return the
// documented default (or nil for benchmarks). An error means the store itself
// could not be read.
type ReferenceSource interface {
	// FuelRate returns the €/1000 L rate for the detected fuels, or the
	// sector default when none were detected.
	FuelRate(ctx context.Context, fuelTypes []FuelType, sector Sector) (float64, error)

	// VehicleCoefficient returns the average eligibility coefficient of the tags.
	VehicleCoefficient(ctx context.Context, vehicleTypes []VehicleType) (float64, error)

	// SectorPerformance returns the 0-100 performance score of a sector, 0 if unknown.
	SectorPerformance(ctx context.Context, sector Sector) (float64, error)

	// Benchmark returns the benchmark row whose fleet range contains vehicleCount.
	Benchmark(ctx context.Context, sector Sector, vehicleCount int) (*BenchmarkRow, error)

	// MaturityRule returns the scoring rule for an administrative indicator.
	MaturityRule(ctx context.Context, indicator string) (*ScoringRule, error)
}

// Maturity indicators.
const (
	IndicatorFuelCards           = "cartes_carburant"
	IndicatorNominativeInvoices  = "factures_nominatives"
	IndicatorCompanyRegistration = "immatriculation_societe"
	IndicatorDeclarations        = "declarations_ticpe"
	IndicatorFuelInvoices        = "factures_carburant"
)

// SectorRow is a sector entry of the reference tables.
type SectorRow struct {
	Sector      Sector   `json:"sector" yaml:"sector"`
	Performance float64  `json:"performance" yaml:"performance"`
	DefaultFuel FuelType `json:"defaultFuel" yaml:"defaultFuel"`
}

// FuelRateRow is the rate of one fuel type for one year, in €/1000 L.
type FuelRateRow struct {
	FuelType FuelType `json:"fuelType" yaml:"fuelType"`
	Year     int      `json:"year" yaml:"year"`
	Rate     float64  `json:"rate" yaml:"rate"`
}

// VehicleTypeRow is the eligibility coefficient of a vehicle tag.
type VehicleTypeRow struct {
	VehicleType VehicleType `json:"vehicleType" yaml:"vehicleType"`
	Coefficient float64     `json:"coefficient" yaml:"coefficient"`
}

// BenchmarkRow is the historical recovery for a sector and fleet-size bucket.
type BenchmarkRow struct {
	Sector          Sector  `json:"sector" yaml:"sector"`
	VehicleCountMin int     `json:"vehicleCountMin" yaml:"vehicleCountMin"`
	VehicleCountMax int     `json:"vehicleCountMax" yaml:"vehicleCountMax"`
	AverageRecovery float64 `json:"averageRecovery" yaml:"averageRecovery"`
	MinRecovery     float64 `json:"minRecovery" yaml:"minRecovery"`
	MaxRecovery     float64 `json:"maxRecovery" yaml:"maxRecovery"`
	SampleSize      int     `json:"sampleSize" yaml:"sampleSize"`
	ConfidenceLevel float64 `json:"confidenceLevel" yaml:"confidenceLevel"`
}

// Contains reports whether the bucket covers the vehicle count.
func (b *BenchmarkRow) Contains(vehicleCount int) bool {
	return vehicleCount >= b.VehicleCountMin && vehicleCount <= b.VehicleCountMax
}

// ScoringRule awards points to the first tier whose answer matches.
type ScoringRule struct {
	Indicator string        `json:"indicator" yaml:"indicator"`
	Tiers     []ScoringTier `json:"tiers" yaml:"tiers"`
}

// ScoringTier maps an exact answer to points.
type ScoringTier struct {
	Answer string `json:"answer" yaml:"answer"`
	Points int    `json:"points" yaml:"points"`
}

// Points returns the points awarded for an answer.
func (r *ScoringRule) Points(answer string) int {
	if r == nil || answer == "" {
		return 0
	}
	for _, t := range r.Tiers {
		if t.Answer == answer {
			return t.Points
		}
	}
	return 0
}

// MaxPoints returns the highest tier value.
func (r *ScoringRule) MaxPoints() int {
	max := 0
	if r == nil {
		return max
	}
	for _, t := range r.Tiers {
		if t.Points > max {
			max = t.Points
		}
	}
	return max
}
