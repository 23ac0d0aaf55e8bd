package rules

import (
	"math"
	"strconv"
	"strings"
)

// Input is the calculation state exposed to rule expressions.
// Gate rules only read the profile fields; advisory rules read everything.
type Input struct {
	Sector               string
	EligibleSectors      []string
	ProfessionalVehicles bool
	ConsumptionLiters    float64
	MinConsumption       float64

	FinalAmount   float64
	MaturityScore float64
	UsageKnown    bool
	UsagePercent  float64

	FuelInvoices       string
	FuelCards          string
	NominativeInvoices string
	Declarations       string

	HasBenchmark         bool
	BenchmarkPerformance string
	BenchmarkPercent     float64
	BenchmarkAmount      float64
	TimelineTotal        float64
}

func (in *Input) activation() map[string]any {
	sectors := in.EligibleSectors
	if sectors == nil {
		sectors = []string{}
	}
	return map[string]any{
		"sector":                in.Sector,
		"eligible_sectors":      sectors,
		"professional_vehicles": in.ProfessionalVehicles,
		"consumption_liters":    in.ConsumptionLiters,
		"min_consumption":       in.MinConsumption,
		"final_amount":          in.FinalAmount,
		"maturity_score":        in.MaturityScore,
		"usage_known":           in.UsageKnown,
		"usage_percent":         in.UsagePercent,
		"fuel_invoices":         in.FuelInvoices,
		"fuel_cards":            in.FuelCards,
		"nominative_invoices":   in.NominativeInvoices,
		"declarations":          in.Declarations,
		"has_benchmark":         in.HasBenchmark,
		"benchmark_performance": in.BenchmarkPerformance,
		"benchmark_percent":     in.BenchmarkPercent,
		"benchmark_amount":      in.BenchmarkAmount,
		"timeline_total":        in.TimelineTotal,
	}
}

// messageFields are the {name} placeholders available to rule messages.
func (in *Input) messageFields() map[string]string {
	return map[string]string{
		"sector":          in.Sector,
		"amount":          FormatAmount(in.FinalAmount),
		"benchmark":       FormatAmount(in.BenchmarkAmount),
		"percent":         FormatAmount(in.BenchmarkPercent),
		"liters":          FormatAmount(in.ConsumptionLiters),
		"min_consumption": strconv.FormatFloat(in.MinConsumption, 'f', -1, 64),
		"maturity":        strconv.FormatFloat(in.MaturityScore, 'f', -1, 64),
		"timeline_total":  FormatAmount(in.TimelineTotal),
	}
}

// groupSeparator is the French thousands separator (narrow no-break space).
const groupSeparator = "\u202f"

// FormatAmount rounds v to a whole number and groups thousands the French way,
// e.g. 12345.6 becomes "12 346".
func FormatAmount(v float64) string {
	n := int64(math.Round(v))
	neg := n < 0
	if neg {
		n = -n
	}

	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 && !(neg && b.Len() == 1) {
			b.WriteString(groupSeparator)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
