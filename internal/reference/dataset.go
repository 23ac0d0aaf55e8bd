// Package reference holds the versioned TICPE reference dataset: the lookup
// tables read through domain.ReferenceSource and the scoring policy applied by
// the engine. Every rate, coefficient and threshold of a calculation lives here.
package reference

import (
	"github.com/opensource-finance/ticpe/internal/domain"
)

// Dataset is one consistent version of the tables and the scoring policy.
type Dataset struct {
	domain.ReferenceTables `yaml:",inline"`

	Policy Policy              `json:"policy" yaml:"policy"`
	Rules  []domain.RuleConfig `json:"rules" yaml:"rules"`
}

// Policy carries the weights and thresholds that are not looked up per request.
type Policy struct {
	Sectors                   []SectorPolicy    `json:"sectors" yaml:"sectors"`
	ProfessionalVehiclePoints int               `json:"professionalVehiclePoints" yaml:"professionalVehiclePoints"`
	VehiclePoints             []VehiclePoints   `json:"vehiclePoints" yaml:"vehiclePoints"`
	VehiclePointsCap          int               `json:"vehiclePointsCap" yaml:"vehiclePointsCap"`
	ConsumptionBands          []ConsumptionBand `json:"consumptionBands" yaml:"consumptionBands"`
	ConsumptionPoints         []Threshold       `json:"consumptionPoints" yaml:"consumptionPoints"`
	CompleteInvoicesKeyword   string            `json:"completeInvoicesKeyword" yaml:"completeInvoicesKeyword"`
	CompleteInvoicesPoints    int               `json:"completeInvoicesPoints" yaml:"completeInvoicesPoints"`
	ScoreCap                  int               `json:"scoreCap" yaml:"scoreCap"`

	MinConsumption float64     `json:"minConsumption" yaml:"minConsumption"`
	LitersPerKm    float64     `json:"litersPerKm" yaml:"litersPerKm"`
	DefaultLiters  float64     `json:"defaultLiters" yaml:"defaultLiters"`
	FleetBands     []CountBand `json:"fleetBands" yaml:"fleetBands"`
	TurnoverBands  []CountBand `json:"turnoverBands" yaml:"turnoverBands"`

	UsageScenarios          []UsageScenario `json:"usageScenarios" yaml:"usageScenarios"`
	DefaultUsageCoefficient float64         `json:"defaultUsageCoefficient" yaml:"defaultUsageCoefficient"`
	ProfileMultipliers      []Multiplier    `json:"profileMultipliers" yaml:"profileMultipliers"`
	FleetCorrections        []RangeFactor   `json:"fleetCorrections" yaml:"fleetCorrections"`
	TurnoverCorrections     []RangeFactor   `json:"turnoverCorrections" yaml:"turnoverCorrections"`
	SizeCorrectionMin       float64         `json:"sizeCorrectionMin" yaml:"sizeCorrectionMin"`
	SizeCorrectionMax       float64         `json:"sizeCorrectionMax" yaml:"sizeCorrectionMax"`
	MinRecovery             float64         `json:"minRecovery" yaml:"minRecovery"`
	MaxRecovery             float64         `json:"maxRecovery" yaml:"maxRecovery"`

	MaturityIndicators []string `json:"maturityIndicators" yaml:"maturityIndicators"`
	MaturityCap        int      `json:"maturityCap" yaml:"maturityCap"`

	DefaultVehicleCount   int     `json:"defaultVehicleCount" yaml:"defaultVehicleCount"`
	BelowBenchmarkPercent float64 `json:"belowBenchmarkPercent" yaml:"belowBenchmarkPercent"`

	Timeline   TimelinePolicy   `json:"timeline" yaml:"timeline"`
	Confidence ConfidencePolicy `json:"confidence" yaml:"confidence"`
}

// SectorPolicy is the per-sector scoring data.
type SectorPolicy struct {
	Sector        domain.Sector `json:"sector" yaml:"sector"`
	Eligible      bool          `json:"eligible" yaml:"eligible"`
	Points        int           `json:"points" yaml:"points"`
	DefaultLiters float64       `json:"defaultLiters" yaml:"defaultLiters"`
}

// VehiclePoints is the score contribution of a vehicle tag.
type VehiclePoints struct {
	VehicleType domain.VehicleType `json:"vehicleType" yaml:"vehicleType"`
	Points      int                `json:"points" yaml:"points"`
}

// ConsumptionBand maps a consumption answer to representative litres per year.
type ConsumptionBand struct {
	Label  string  `json:"label" yaml:"label"`
	Liters float64 `json:"liters" yaml:"liters"`
}

// Threshold awards Points to values strictly above Above.
type Threshold struct {
	Above  float64 `json:"above" yaml:"above"`
	Points int     `json:"points" yaml:"points"`
}

// CountBand maps a band label to a representative quantity.
type CountBand struct {
	Label string  `json:"label" yaml:"label"`
	Value float64 `json:"value" yaml:"value"`
}

// UsageScenario maps a professional-use range to a coefficient.
type UsageScenario struct {
	Label       string  `json:"label" yaml:"label"`
	MinPercent  float64 `json:"minPercent" yaml:"minPercent"`
	MaxPercent  float64 `json:"maxPercent" yaml:"maxPercent"`
	Coefficient float64 `json:"coefficient" yaml:"coefficient"`
}

// Multiplier adjusts the amount when an indicator has the given answer.
type Multiplier struct {
	Indicator string  `json:"indicator" yaml:"indicator"`
	Answer    string  `json:"answer" yaml:"answer"`
	Factor    float64 `json:"factor" yaml:"factor"`
}

// RangeFactor applies Factor to quantities in [Min, Max]. Max 0 means unbounded.
type RangeFactor struct {
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Factor float64 `json:"factor" yaml:"factor"`
}

// Matches reports whether v falls inside the range.
func (r RangeFactor) Matches(v float64) bool {
	if v < r.Min {
		return false
	}
	return r.Max == 0 || v <= r.Max
}

// TimelinePolicy spreads the annual amount over the reclaimable years.
type TimelinePolicy struct {
	CurrentFactor      float64         `json:"currentFactor" yaml:"currentFactor"`
	PreviousFactor     float64         `json:"previousFactor" yaml:"previousFactor"`
	TwoBackFactor      float64         `json:"twoBackFactor" yaml:"twoBackFactor"`
	NextFactor         float64         `json:"nextFactor" yaml:"nextFactor"`
	FullRecoveryFactor float64         `json:"fullRecoveryFactor" yaml:"fullRecoveryFactor"`
	InvoiceFactors     []InvoiceFactor `json:"invoiceFactors" yaml:"invoiceFactors"`
}

// InvoiceFactor overrides past-year factors for an invoice-history answer.
type InvoiceFactor struct {
	Answer   string  `json:"answer" yaml:"answer"`
	Previous float64 `json:"previous" yaml:"previous"`
	TwoBack  float64 `json:"twoBack" yaml:"twoBack"`
}

// ConfidencePolicy weights the confidence composite out of 100.
type ConfidencePolicy struct {
	MaturityWeight            float64 `json:"maturityWeight" yaml:"maturityWeight"`
	ConsumptionPoints         float64 `json:"consumptionPoints" yaml:"consumptionPoints"`
	FuelTypePoints            float64 `json:"fuelTypePoints" yaml:"fuelTypePoints"`
	StrongBenchmarkPoints     float64 `json:"strongBenchmarkPoints" yaml:"strongBenchmarkPoints"`
	WeakBenchmarkPoints       float64 `json:"weakBenchmarkPoints" yaml:"weakBenchmarkPoints"`
	StrongBenchmarkConfidence float64 `json:"strongBenchmarkConfidence" yaml:"strongBenchmarkConfidence"`
	High                      float64 `json:"high" yaml:"high"`
	Medium                    float64 `json:"medium" yaml:"medium"`
}

// Source returns an in-memory lookup over the dataset tables.
func (d *Dataset) Source() *MemorySource {
	return NewMemorySource(&d.ReferenceTables)
}

// Sector returns the scoring data of a sector.
func (p *Policy) Sector(s domain.Sector) (SectorPolicy, bool) {
	for _, sp := range p.Sectors {
		if sp.Sector == s {
			return sp, true
		}
	}
	return SectorPolicy{}, false
}

// EligibleSectors lists the whitelisted sector labels.
func (p *Policy) EligibleSectors() []string {
	out := make([]string, 0, len(p.Sectors))
	for _, sp := range p.Sectors {
		if sp.Eligible {
			out = append(out, string(sp.Sector))
		}
	}
	return out
}

// BandValue returns the representative value of a band label.
func BandValue(bands []CountBand, label string) (float64, bool) {
	for _, b := range bands {
		if b.Label == label {
			return b.Value, true
		}
	}
	return 0, false
}

// ConsumptionLiters returns the representative litres of a consumption band.
func (p *Policy) ConsumptionLiters(label string) (float64, bool) {
	for _, b := range p.ConsumptionBands {
		if b.Label == label {
			return b.Liters, true
		}
	}
	return 0, false
}

// UsageScenarioFor returns the scenario of a band label.
func (p *Policy) UsageScenarioFor(label string) (UsageScenario, bool) {
	if label == "" {
		return UsageScenario{}, false
	}
	for _, u := range p.UsageScenarios {
		if u.Label == label {
			return u, true
		}
	}
	return UsageScenario{}, false
}

// UsageScenarioForPercent returns the scenario covering an explicit
// percentage, 0 included.
func (p *Policy) UsageScenarioForPercent(percent float64) (UsageScenario, bool) {
	for _, u := range p.UsageScenarios {
		if percent >= u.MinPercent && percent < u.MaxPercent+1 {
			return u, true
		}
	}
	return UsageScenario{}, false
}
