// Package profile turns raw questionnaire responses into a domain.Profile.
//
// Matching is keyword based and cumulative: one free-text answer may set
// several fields, and tag fields collect values across responses. Extraction
// never fails; anything it cannot interpret is left unset.
package profile

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/opensource-finance/ticpe/internal/domain"
)

// Extractor evaluates a keyword table against questionnaire responses.
// It holds no per-call state and is safe for concurrent use.
type Extractor struct {
	table     []Keyword
	questions map[string]Field
}

// New creates an extractor over the default table.
func New() *Extractor {
	return NewWithTable(DefaultTable())
}

// NewWithTable creates an extractor over a custom table.
func NewWithTable(table []Keyword) *Extractor {
	return &Extractor{table: table, questions: Questions}
}

// Extract builds a profile from responses. Later answers for the same scalar
// field overwrite earlier ones.
func (e *Extractor) Extract(responses []domain.Response) *domain.Profile {
	p := &domain.Profile{}
	for _, r := range responses {
		e.apply(p, r)
	}

	if !p.ProfessionalVehicles && (p.FleetBand != "" || p.FleetCount > 0 || len(p.VehicleTypes) > 0) {
		p.ProfessionalVehicles = true
	}
	return p
}

func (e *Extractor) apply(p *domain.Profile, r domain.Response) {
	text := strings.TrimSpace(Coerce(r.Value))
	if text == "" {
		return
	}

	field, scoped := e.questions[r.QuestionID]
	if scoped {
		if n, ok := parseQuantity(text); ok && setQuantity(p, field, n) {
			return
		}
	}

	matched := make(map[Field]bool)
	for _, k := range e.table {
		if scoped && k.Field != field {
			continue
		}
		if k.Scoped && !scoped {
			continue
		}
		if !tagField(k.Field) && matched[k.Field] {
			continue
		}
		if !k.matches(text) {
			continue
		}
		matched[k.Field] = true
		set(p, k.Field, k.Value)
	}

	// An unrecognised sector answer is kept verbatim so the gate can name it.
	if scoped && field == FieldSector && !matched[FieldSector] {
		p.Sector = domain.Sector(text)
	}
}

func (k *Keyword) matches(text string) bool {
	if k.Exact != "" {
		return text == k.Exact
	}
	for _, kw := range k.All {
		if !strings.Contains(text, kw) {
			return false
		}
	}
	for _, kw := range k.Not {
		if strings.Contains(text, kw) {
			return false
		}
	}
	if len(k.Any) == 0 {
		return len(k.All) > 0
	}
	for _, kw := range k.Any {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func set(p *domain.Profile, f Field, v string) {
	switch f {
	case FieldSector:
		p.Sector = domain.Sector(v)
	case FieldProfessionalVehicles:
		p.ProfessionalVehicles = v == "true"
	case FieldFleet:
		p.FleetBand = v
	case FieldVehicleTypes:
		if !p.HasVehicleType(domain.VehicleType(v)) {
			p.VehicleTypes = append(p.VehicleTypes, domain.VehicleType(v))
		}
	case FieldConsumption:
		p.ConsumptionBand = v
		p.ConsumptionLiters, p.ConsumptionDeclared = 0, false
	case FieldFuelTypes:
		if !p.HasFuelType(domain.FuelType(v)) {
			p.FuelTypes = append(p.FuelTypes, domain.FuelType(v))
		}
	case FieldFuelInvoices:
		p.FuelInvoices = v
	case FieldUsage:
		p.UsageBand = v
		p.UsagePercent, p.UsageDeclared = 0, false
	case FieldFuelCards:
		p.FuelCards = v
	case FieldNominativeInvoices:
		p.NominativeInvoices = v
	case FieldRegistration:
		p.CompanyRegistration = v
	case FieldDeclarations:
		p.TICPEDeclarations = v
	case FieldTurnover:
		p.TurnoverBand = v
	}
}

// setQuantity stores an explicit number, zero included, replacing any band
// of the same field. It reports false for fields that take no quantity so
// the text is matched against the table instead.
func setQuantity(p *domain.Profile, f Field, n float64) bool {
	if n < 0 {
		return false
	}
	switch f {
	case FieldFleet:
		p.FleetCount = int(math.Round(n))
	case FieldConsumption:
		p.ConsumptionLiters, p.ConsumptionDeclared = n, true
		p.ConsumptionBand = ""
	case FieldKilometers:
		p.AnnualKilometers = n
	case FieldUsage:
		p.UsagePercent, p.UsageDeclared = math.Min(n, 100), true
		p.UsageBand = ""
	case FieldTurnover:
		p.Turnover = n
	default:
		return false
	}
	return true
}

// quantityUnits are the suffixes accepted after an explicit number.
var quantityUnits = []string{"véhicules", "véhicule", "litres", "litre", "euros", "km/an", "L/an", "kms", "km", "L", "l", "%", "€"}

// parseQuantity reads a whole answer as a number, ignoring digit grouping
// spaces and a trailing unit ("25 000 litres", "85 %", "1 200 000 €").
func parseQuantity(text string) (float64, bool) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	for _, unit := range quantityUnits {
		if strings.HasSuffix(s, unit) {
			s = strings.TrimSuffix(s, unit)
			break
		}
	}
	if s == "" {
		return 0, false
	}
	s = strings.Replace(s, ",", ".", 1)
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Coerce flattens a response value into one string: lists and object values
// are joined with ", " (object values in key order), booleans become Oui/Non.
func Coerce(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "Oui"
		}
		return "Non"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case []string:
		return strings.Join(x, ", ")
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s := Coerce(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s := Coerce(x[k]); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]string:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if x[k] != "" {
				parts = append(parts, x[k])
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}
