package domain

import (
	"time"
)

// Confidence levels attached to a calculation.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// Benchmark performance labels.
const (
	PerformanceAbove   = "above"
	PerformanceAverage = "average"
	PerformanceBelow   = "below"
)

// CalculationResult is the engine output for one questionnaire session.
// It carries no identifiers or timestamps: the same responses against the
// same dataset always produce the same value.
type CalculationResult struct {
	Eligible            bool                 `json:"eligible"`
	EligibilityScore    int                  `json:"eligibility_score"`
	EstimatedRecovery   float64              `json:"estimated_recovery"`
	ConfidenceLevel     string               `json:"confidence_level"`
	SectorPerformance   float64              `json:"sector_performance"`
	MaturityScore       int                  `json:"maturity_score"`
	BenchmarkComparison *BenchmarkComparison `json:"benchmark_comparison"`
	Recommendations     []string             `json:"recommendations"`
	RiskFactors         []string             `json:"risk_factors"`
	CalculationDetails  CalculationDetails   `json:"calculation_details"`
	Timeline            *RecoveryTimeline    `json:"recovery_timeline,omitempty"`
	Profile             *Profile             `json:"profile,omitempty"`
	DatasetVersion      string               `json:"dataset_version"`
}

// CalculationDetails exposes the intermediate figures of the amount calculation.
type CalculationDetails struct {
	BaseAmount         float64 `json:"base_amount"`
	VehicleCoefficient float64 `json:"vehicle_coefficient"`
	UsageCoefficient   float64 `json:"usage_coefficient"`
	FuelRate           float64 `json:"fuel_rate"`
	TotalConsumption   float64 `json:"total_consumption"`
	ProfileMultiplier  float64 `json:"profile_multiplier"`
	SizeCorrection     float64 `json:"size_correction"`
}

// RecoveryCalculation is the full output of the amount calculator.
type RecoveryCalculation struct {
	CalculationDetails
	FinalAmount float64 `json:"final_amount"`
}

// BenchmarkComparison positions an estimate against the sector history.
type BenchmarkComparison struct {
	Benchmark       float64 `json:"benchmark"`
	Difference      float64 `json:"difference"`
	PercentageDiff  float64 `json:"percentage_diff"`
	Performance     string  `json:"performance"`
	SampleSize      int     `json:"sample_size"`
	ConfidenceLevel float64 `json:"confidence_level"`
}

// YearlyRecovery is the reclaimable amount for one fiscal year.
type YearlyRecovery struct {
	Year   int     `json:"year"`
	Amount float64 `json:"amount"`
	Factor float64 `json:"factor"`
	Status string  `json:"status"`
}

// RecoveryTimeline spreads the annual estimate over the reclaimable years.
type RecoveryTimeline struct {
	Years []YearlyRecovery `json:"years"`
	Total float64          `json:"total"`
}

// Calculation is a persisted calculation request and its result.
type Calculation struct {
	ID        string             `json:"id"`
	TenantID  string             `json:"tenantId"`
	Status    string             `json:"status"`
	Responses []Response         `json:"responses"`
	Result    *CalculationResult `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	TraceID   string             `json:"traceId,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	ProcessMs int64              `json:"processMs"`

	DatasetVersion string `json:"datasetVersion,omitempty"`
}

// Calculation lifecycle statuses.
const (
	CalculationPending   = "pending"
	CalculationCompleted = "completed"
	CalculationFailed    = "failed"
)
