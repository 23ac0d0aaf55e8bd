package reference

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/opensource-finance/ticpe/internal/domain"
)

// ErrInvalidDataset is returned when a dataset fails validation.
var ErrInvalidDataset = errors.New("invalid dataset")

// Load reads and validates a YAML dataset file.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	ds, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return ds, nil
}

// Parse decodes a YAML dataset. A dataset without rules gets DefaultRules.
func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.UnmarshalStrict(data, &ds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	if len(ds.Rules) == 0 {
		ds.Rules = DefaultRules()
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Export writes the dataset as YAML.
func (d *Dataset) Export(w io.Writer) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// Validate checks the structural consistency of the dataset.
func (d *Dataset) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidDataset, fmt.Sprintf(format, args...))
	}

	if d.Version == "" {
		return invalid("version is required")
	}
	if d.Year <= 0 {
		return invalid("year is required")
	}
	if d.Lookup.FuelRate <= 0 {
		return invalid("lookup.fuelRate must be positive")
	}
	if len(d.Sectors) == 0 {
		return invalid("at least one sector is required")
	}

	for _, r := range d.FuelRates {
		if r.Rate < 0 {
			return invalid("fuel rate for %q in %d is negative", r.FuelType, r.Year)
		}
	}
	for _, v := range d.VehicleTypes {
		if v.Coefficient < 0 {
			return invalid("vehicle coefficient for %q is negative", v.VehicleType)
		}
	}
	for _, b := range d.Benchmarks {
		if b.VehicleCountMin > b.VehicleCountMax {
			return invalid("benchmark %q has min %d above max %d", b.Sector, b.VehicleCountMin, b.VehicleCountMax)
		}
	}

	p := &d.Policy
	if len(p.EligibleSectors()) == 0 {
		return invalid("policy has no eligible sector")
	}
	if p.MinRecovery < 0 || p.MaxRecovery < p.MinRecovery {
		return invalid("recovery bounds [%g, %g] are inconsistent", p.MinRecovery, p.MaxRecovery)
	}
	if p.SizeCorrectionMin <= 0 || p.SizeCorrectionMax < p.SizeCorrectionMin {
		return invalid("size correction bounds [%g, %g] are inconsistent", p.SizeCorrectionMin, p.SizeCorrectionMax)
	}
	if p.Confidence.Medium > p.Confidence.High {
		return invalid("confidence thresholds are inverted")
	}

	seen := make(map[string]struct{}, len(d.Rules))
	for _, r := range d.Rules {
		if r.ID == "" {
			return invalid("rule without id")
		}
		if _, dup := seen[r.ID]; dup {
			return invalid("duplicate rule %q", r.ID)
		}
		seen[r.ID] = struct{}{}
		switch r.Kind {
		case domain.RuleKindGate, domain.RuleKindRecommendation, domain.RuleKindRisk:
		default:
			return invalid("rule %q has unknown kind %q", r.ID, r.Kind)
		}
		if r.Expression == "" {
			return invalid("rule %q has no expression", r.ID)
		}
	}
	return nil
}
