package engine

import (
	"context"
	"math"
	"slices"
	"strings"

	"github.com/opensource-finance/ticpe/internal/domain"
	"github.com/opensource-finance/ticpe/internal/reference"
	"github.com/opensource-finance/ticpe/internal/rules"
)

// Eligibility is the outcome of the gates.
type Eligibility struct {
	Eligible          bool    `json:"eligible"`
	Reason            string  `json:"reason,omitempty"`
	RuleID            string  `json:"ruleId,omitempty"`
	SectorPerformance float64 `json:"sectorPerformance"`
}

// Timeline statuses.
const (
	StatusFullRecovery    = "Récupération possible"
	StatusPartialRecovery = "Récupération partielle"
	StatusFollowUp        = "Suivi et récupération assurés"
)

// CheckEligibility applies the gate rules in order. Sector performance is
// reported for whitelisted sectors even when a later gate fails.
func (e *Engine) CheckEligibility(ctx context.Context, p *domain.Profile) (*Eligibility, error) {
	eligible := e.policy.EligibleSectors()

	var perf float64
	if slices.Contains(eligible, string(p.Sector)) {
		v, err := e.source.SectorPerformance(ctx, p.Sector)
		if err != nil {
			return nil, referenceError("sector performance", err)
		}
		perf = v
	}

	failed, ok := e.rules.CheckGates(&rules.Input{
		Sector:               string(p.Sector),
		EligibleSectors:      eligible,
		ProfessionalVehicles: p.ProfessionalVehicles,
		ConsumptionLiters:    e.ConsumptionLiters(p),
		MinConsumption:       e.policy.MinConsumption,
	})
	if !ok {
		return &Eligibility{Reason: failed.Message, RuleID: failed.RuleID, SectorPerformance: perf}, nil
	}
	return &Eligibility{Eligible: true, SectorPerformance: perf}, nil
}

// EligibilityScore sums the weighted profile attributes, capped at ScoreCap.
// Only a consumption the client declared earns consumption points.
func (e *Engine) EligibilityScore(p *domain.Profile) int {
	score := 0
	if sp, ok := e.policy.Sector(p.Sector); ok {
		score += sp.Points
	}
	if p.ProfessionalVehicles {
		score += e.policy.ProfessionalVehiclePoints
	}

	vehicles := 0
	for _, vp := range e.policy.VehiclePoints {
		if p.HasVehicleType(vp.VehicleType) {
			vehicles += vp.Points
		}
	}
	score += min(vehicles, e.policy.VehiclePointsCap)

	if liters, ok := e.declaredLiters(p); ok {
		for _, th := range e.policy.ConsumptionPoints {
			if liters > th.Above {
				score += th.Points
				break
			}
		}
	}

	if e.policy.CompleteInvoicesKeyword != "" && strings.Contains(p.FuelInvoices, e.policy.CompleteInvoicesKeyword) {
		score += e.policy.CompleteInvoicesPoints
	}

	return clampInt(score, 0, e.policy.ScoreCap)
}

// ConsumptionLiters resolves annual litres: declared figure, then band, then
// fleet size times mileage, then the sector default.
func (e *Engine) ConsumptionLiters(p *domain.Profile) float64 {
	if liters, ok := e.declaredLiters(p); ok {
		return liters
	}
	if vehicles := e.fleetCount(p); vehicles > 0 && p.AnnualKilometers > 0 {
		return vehicles * p.AnnualKilometers * e.policy.LitersPerKm
	}
	if sp, ok := e.policy.Sector(p.Sector); ok && sp.DefaultLiters > 0 {
		return sp.DefaultLiters
	}
	return e.policy.DefaultLiters
}

func (e *Engine) declaredLiters(p *domain.Profile) (float64, bool) {
	if p.ConsumptionDeclared {
		return p.ConsumptionLiters, true
	}
	return e.policy.ConsumptionLiters(p.ConsumptionBand)
}

// fleetCount is the declared vehicle count or the band representative, 0 if unknown.
func (e *Engine) fleetCount(p *domain.Profile) float64 {
	if p.FleetCount > 0 {
		return float64(p.FleetCount)
	}
	n, _ := reference.BandValue(e.policy.FleetBands, p.FleetBand)
	return n
}

func (e *Engine) turnover(p *domain.Profile) float64 {
	if p.Turnover > 0 {
		return p.Turnover
	}
	n, _ := reference.BandValue(e.policy.TurnoverBands, p.TurnoverBand)
	return n
}

// RecoveryAmount computes the reclaimable amount and its intermediate figures.
func (e *Engine) RecoveryAmount(ctx context.Context, p *domain.Profile) (*domain.RecoveryCalculation, error) {
	rate, err := e.source.FuelRate(ctx, p.FuelTypes, p.Sector)
	if err != nil {
		return nil, referenceError("fuel rate", err)
	}
	vc, err := e.source.VehicleCoefficient(ctx, p.VehicleTypes)
	if err != nil {
		return nil, referenceError("vehicle coefficient", err)
	}

	liters := e.ConsumptionLiters(p)
	base := liters / 1000 * rate
	uc := e.UsageCoefficient(p)
	pm := e.ProfileMultiplier(p)
	size := e.SizeCorrection(p)

	final := base * vc * uc * pm * size
	final = math.Max(e.policy.MinRecovery, math.Min(e.policy.MaxRecovery, final))

	return &domain.RecoveryCalculation{
		CalculationDetails: domain.CalculationDetails{
			BaseAmount:         roundCents(base),
			VehicleCoefficient: vc,
			UsageCoefficient:   uc,
			FuelRate:           rate,
			TotalConsumption:   liters,
			ProfileMultiplier:  pm,
			SizeCorrection:     size,
		},
		FinalAmount: roundCents(final),
	}, nil
}

// UsageCoefficient maps the professional-use share to a coefficient.
// Below the lowest scenario the claim is void.
func (e *Engine) UsageCoefficient(p *domain.Profile) float64 {
	if u, ok := e.usageScenario(p); ok {
		return u.Coefficient
	}
	return e.policy.DefaultUsageCoefficient
}

func (e *Engine) usageScenario(p *domain.Profile) (reference.UsageScenario, bool) {
	if p.UsageDeclared {
		return e.policy.UsageScenarioForPercent(p.UsagePercent)
	}
	return e.policy.UsageScenarioFor(p.UsageBand)
}

// usagePercent is the declared share, or the lower bound of the usage band.
func (e *Engine) usagePercent(p *domain.Profile) float64 {
	if p.UsageDeclared {
		return p.UsagePercent
	}
	if u, ok := e.policy.UsageScenarioFor(p.UsageBand); ok {
		return u.MinPercent
	}
	return 0
}

// ProfileMultiplier multiplies the factors of every matching indicator answer.
func (e *Engine) ProfileMultiplier(p *domain.Profile) float64 {
	m := 1.0
	for _, pm := range e.policy.ProfileMultipliers {
		if indicatorAnswer(p, pm.Indicator) == pm.Answer {
			m *= pm.Factor
		}
	}
	return m
}

// SizeCorrection combines the fleet and turnover factors within the policy bounds.
func (e *Engine) SizeCorrection(p *domain.Profile) float64 {
	c := 1.0
	if n := e.fleetCount(p); n > 0 {
		c *= firstFactor(e.policy.FleetCorrections, n)
	}
	if t := e.turnover(p); t > 0 {
		c *= firstFactor(e.policy.TurnoverCorrections, t)
	}
	return math.Max(e.policy.SizeCorrectionMin, math.Min(e.policy.SizeCorrectionMax, c))
}

func firstFactor(ranges []reference.RangeFactor, v float64) float64 {
	for _, r := range ranges {
		if r.Matches(v) {
			return r.Factor
		}
	}
	return 1.0
}

// MaturityScore sums the points of each administrative indicator, capped at MaturityCap.
func (e *Engine) MaturityScore(ctx context.Context, p *domain.Profile) (int, error) {
	score := 0
	for _, indicator := range e.policy.MaturityIndicators {
		rule, err := e.source.MaturityRule(ctx, indicator)
		if err != nil {
			return 0, referenceError("maturity rule "+indicator, err)
		}
		score += rule.Points(indicatorAnswer(p, indicator))
	}
	return clampInt(score, 0, e.policy.MaturityCap), nil
}

// CompareWithBenchmarks positions amount against the sector and fleet-size
// benchmark. A missing benchmark yields nil without error.
func (e *Engine) CompareWithBenchmarks(ctx context.Context, p *domain.Profile, amount float64) (*domain.BenchmarkComparison, error) {
	vehicles := int(e.fleetCount(p))
	if vehicles <= 0 {
		vehicles = e.policy.DefaultVehicleCount
	}

	row, err := e.source.Benchmark(ctx, p.Sector, vehicles)
	if err != nil {
		return nil, referenceError("benchmark", err)
	}
	if row == nil || row.AverageRecovery <= 0 {
		return nil, nil
	}

	diff := math.Round(amount - row.AverageRecovery)
	pct := math.Round((amount - row.AverageRecovery) / row.AverageRecovery * 100)

	performance := domain.PerformanceAverage
	switch {
	case pct > 0:
		performance = domain.PerformanceAbove
	case pct < e.policy.BelowBenchmarkPercent:
		performance = domain.PerformanceBelow
	}

	return &domain.BenchmarkComparison{
		Benchmark:       row.AverageRecovery,
		Difference:      diff,
		PercentageDiff:  pct,
		Performance:     performance,
		SampleSize:      row.SampleSize,
		ConfidenceLevel: row.ConfidenceLevel,
	}, nil
}

// RecoveryTimeline spreads the annual amount over the two previous fiscal
// years, the dataset year and the following one.
func (e *Engine) RecoveryTimeline(p *domain.Profile, annual float64) *domain.RecoveryTimeline {
	tp := e.policy.Timeline
	previous, twoBack := tp.PreviousFactor, tp.TwoBackFactor
	for _, f := range tp.InvoiceFactors {
		if f.Answer == p.FuelInvoices {
			previous, twoBack = f.Previous, f.TwoBack
			break
		}
	}

	year := e.dataset.Year
	entries := []struct {
		year   int
		factor float64
		next   bool
	}{
		{year - 2, twoBack, false},
		{year - 1, previous, false},
		{year, tp.CurrentFactor, false},
		{year + 1, tp.NextFactor, true},
	}

	t := &domain.RecoveryTimeline{Years: make([]domain.YearlyRecovery, 0, len(entries))}
	for _, en := range entries {
		status := StatusPartialRecovery
		switch {
		case en.next:
			status = StatusFollowUp
		case en.factor >= tp.FullRecoveryFactor:
			status = StatusFullRecovery
		}
		amount := math.Round(annual * en.factor)
		t.Years = append(t.Years, domain.YearlyRecovery{
			Year:   en.year,
			Amount: amount,
			Factor: en.factor,
			Status: status,
		})
		t.Total += amount
	}
	return t
}

// Advise evaluates the recommendation and risk rules.
func (e *Engine) Advise(p *domain.Profile, amount float64, maturity int, bench *domain.BenchmarkComparison, timeline *domain.RecoveryTimeline) (recommendations, risks []string) {
	in := &rules.Input{
		Sector:               string(p.Sector),
		EligibleSectors:      e.policy.EligibleSectors(),
		ProfessionalVehicles: p.ProfessionalVehicles,
		ConsumptionLiters:    e.ConsumptionLiters(p),
		MinConsumption:       e.policy.MinConsumption,
		FinalAmount:          amount,
		MaturityScore:        float64(maturity),
		UsageKnown:           p.UsageKnown(),
		UsagePercent:         e.usagePercent(p),
		FuelInvoices:         p.FuelInvoices,
		FuelCards:            p.FuelCards,
		NominativeInvoices:   p.NominativeInvoices,
		Declarations:         p.TICPEDeclarations,
	}
	if bench != nil {
		in.HasBenchmark = true
		in.BenchmarkPerformance = bench.Performance
		in.BenchmarkPercent = bench.PercentageDiff
		in.BenchmarkAmount = bench.Benchmark
	}
	if timeline != nil {
		in.TimelineTotal = timeline.Total
	}

	return e.rules.Messages(domain.RuleKindRecommendation, in), e.rules.Messages(domain.RuleKindRisk, in)
}

// ConfidenceLevel weighs maturity, data completeness and benchmark quality.
func (e *Engine) ConfidenceLevel(p *domain.Profile, maturity int, bench *domain.BenchmarkComparison) string {
	cp := e.policy.Confidence
	score := float64(maturity) / 100 * cp.MaturityWeight
	if p.ConsumptionKnown() {
		score += cp.ConsumptionPoints
	}
	if len(p.FuelTypes) > 0 {
		score += cp.FuelTypePoints
	}
	if bench != nil {
		if bench.ConfidenceLevel > cp.StrongBenchmarkConfidence {
			score += cp.StrongBenchmarkPoints
		} else {
			score += cp.WeakBenchmarkPoints
		}
	}

	switch {
	case score >= cp.High:
		return domain.ConfidenceHigh
	case score >= cp.Medium:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// indicatorAnswer returns the profile answer of an administrative indicator.
func indicatorAnswer(p *domain.Profile, indicator string) string {
	switch indicator {
	case domain.IndicatorFuelCards:
		return p.FuelCards
	case domain.IndicatorNominativeInvoices:
		return p.NominativeInvoices
	case domain.IndicatorCompanyRegistration:
		return p.CompanyRegistration
	case domain.IndicatorDeclarations:
		return p.TICPEDeclarations
	case domain.IndicatorFuelInvoices:
		return p.FuelInvoices
	default:
		return ""
	}
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
