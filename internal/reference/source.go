package reference

import (
	"context"
	"strings"

	"github.com/opensource-finance/ticpe/internal/domain"
)

// MemorySource answers reference lookups from an in-memory table set.
// It is immutable after construction and safe for concurrent use.
type MemorySource struct {
	tables   *domain.ReferenceTables
	sectors  map[domain.Sector]domain.SectorRow
	rates    map[domain.FuelType]float64
	vehicles map[domain.VehicleType]float64
	maturity map[string]*domain.ScoringRule
}

// NewMemorySource indexes the tables. Fuel rates are taken for the table year;
// a fuel without a row for that year uses its most recent one.
func NewMemorySource(t *domain.ReferenceTables) *MemorySource {
	s := &MemorySource{
		tables:   t,
		sectors:  make(map[domain.Sector]domain.SectorRow, len(t.Sectors)),
		rates:    make(map[domain.FuelType]float64, len(t.FuelRates)),
		vehicles: make(map[domain.VehicleType]float64, len(t.VehicleTypes)),
		maturity: make(map[string]*domain.ScoringRule, len(t.MaturityRules)),
	}

	for _, row := range t.Sectors {
		s.sectors[row.Sector] = row
	}

	rateYear := make(map[domain.FuelType]int)
	for _, row := range t.FuelRates {
		if y, seen := rateYear[row.FuelType]; seen && !closerYear(row.Year, y, t.Year) {
			continue
		}
		rateYear[row.FuelType] = row.Year
		s.rates[row.FuelType] = row.Rate
	}

	for _, row := range t.VehicleTypes {
		s.vehicles[row.VehicleType] = row.Coefficient
	}
	for i := range t.MaturityRules {
		r := &t.MaturityRules[i]
		s.maturity[r.Indicator] = r
	}
	return s
}

// closerYear reports whether candidate is a better rate year than current for
// target: the target itself, else the latest year not after it.
func closerYear(candidate, current, target int) bool {
	if current == target {
		return false
	}
	if candidate == target {
		return true
	}
	if candidate <= target && current <= target {
		return candidate > current
	}
	if current > target {
		return candidate < current
	}
	return false
}

// Tables returns the underlying tables.
func (s *MemorySource) Tables() *domain.ReferenceTables {
	return s.tables
}

// FuelRate returns the weighted average rate of the known fuels. Diesel
// variants weigh DieselWeight, every other fuel OtherFuelWeight. With no known
// fuel the sector default fuel applies, then the global default.
func (s *MemorySource) FuelRate(_ context.Context, fuelTypes []domain.FuelType, sector domain.Sector) (float64, error) {
	var sum, weights float64
	for _, f := range fuelTypes {
		rate, ok := s.rates[f]
		if !ok {
			continue
		}
		w := s.tables.Lookup.OtherFuelWeight
		if strings.Contains(string(f), "Gazole") {
			w = s.tables.Lookup.DieselWeight
		}
		sum += rate * w
		weights += w
	}
	if weights > 0 {
		return sum / weights, nil
	}

	if row, ok := s.sectors[sector]; ok {
		if rate, ok := s.rates[row.DefaultFuel]; ok {
			return rate, nil
		}
	}
	return s.tables.Lookup.FuelRate, nil
}

// VehicleCoefficient averages the coefficients of the distinct tags.
func (s *MemorySource) VehicleCoefficient(_ context.Context, vehicleTypes []domain.VehicleType) (float64, error) {
	seen := make(map[domain.VehicleType]struct{}, len(vehicleTypes))
	var sum float64
	for _, v := range vehicleTypes {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		c, ok := s.vehicles[v]
		if !ok {
			c = s.tables.Lookup.UnknownVehicleCoefficient
		}
		sum += c
	}
	if len(seen) == 0 {
		return s.tables.Lookup.VehicleCoefficient, nil
	}
	return sum / float64(len(seen)), nil
}

// SectorPerformance returns the sector score, 0 when the sector is unknown.
func (s *MemorySource) SectorPerformance(_ context.Context, sector domain.Sector) (float64, error) {
	return s.sectors[sector].Performance, nil
}

// Benchmark returns the first bucket of the sector containing vehicleCount.
func (s *MemorySource) Benchmark(_ context.Context, sector domain.Sector, vehicleCount int) (*domain.BenchmarkRow, error) {
	for i := range s.tables.Benchmarks {
		b := &s.tables.Benchmarks[i]
		if b.Sector == sector && b.Contains(vehicleCount) {
			row := *b
			return &row, nil
		}
	}
	return nil, nil
}

// MaturityRule returns the scoring rule of an indicator, nil if absent.
func (s *MemorySource) MaturityRule(_ context.Context, indicator string) (*domain.ScoringRule, error) {
	r, ok := s.maturity[indicator]
	if !ok {
		return nil, nil
	}
	cp := *r
	cp.Tiers = append([]domain.ScoringTier(nil), r.Tiers...)
	return &cp, nil
}

var _ domain.ReferenceSource = (*MemorySource)(nil)
