// Package engine computes TICPE eligibility and recoverable amounts from
// questionnaire responses.
//
// A calculation extracts a profile, applies the eligibility gates and, for
// eligible profiles, runs the score, amount and maturity calculators
// concurrently before comparing with benchmarks and deriving advice.
// Every figure comes from the reference dataset the engine was built with.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/opensource-finance/ticpe/internal/domain"
	"github.com/opensource-finance/ticpe/internal/profile"
	"github.com/opensource-finance/ticpe/internal/reference"
	"github.com/opensource-finance/ticpe/internal/rules"
)

// ErrReferenceData is returned when the reference store cannot be read.
// It is the only error a calculation can produce.
var ErrReferenceData = errors.New("reference data unavailable")

const notEligibleRecommendation = "❌ Non éligible à la récupération TICPE"

var tracer = otel.Tracer("ticpe-engine")

// Engine runs calculations against one dataset version.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	source    domain.ReferenceSource
	dataset   *reference.Dataset
	policy    *reference.Policy
	rules     *rules.Engine
	extractor *profile.Extractor
}

// New creates an engine. Lookups go through source; a nil source reads the
// dataset tables in memory. The dataset rules are compiled once here.
func New(source domain.ReferenceSource, ds *reference.Dataset) (*Engine, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset is required")
	}
	if source == nil {
		source = ds.Source()
	}

	re, err := rules.NewEngine()
	if err != nil {
		return nil, err
	}
	if err := re.LoadRules(ds.Rules); err != nil {
		return nil, fmt.Errorf("load dataset %s rules: %w", ds.Version, err)
	}

	return &Engine{
		source:    source,
		dataset:   ds,
		policy:    &ds.Policy,
		rules:     re,
		extractor: profile.New(),
	}, nil
}

// Version returns the dataset version results are computed with.
func (e *Engine) Version() string {
	return e.dataset.Version
}

// Dataset returns the engine dataset.
func (e *Engine) Dataset() *reference.Dataset {
	return e.dataset
}

// ExtractProfile normalizes responses without calculating anything.
func (e *Engine) ExtractProfile(responses []domain.Response) *domain.Profile {
	return e.extractor.Extract(responses)
}

// Calculate runs the full pipeline. Malformed responses never fail; only a
// reference store failure returns an error, wrapping ErrReferenceData.
func (e *Engine) Calculate(ctx context.Context, responses []domain.Response) (*domain.CalculationResult, error) {
	ctx, span := tracer.Start(ctx, "engine.Calculate")
	defer span.End()
	span.SetAttributes(
		attribute.String("ticpe.dataset_version", e.dataset.Version),
		attribute.Int("ticpe.responses", len(responses)),
	)

	result, err := e.calculate(ctx, responses)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("ticpe.sector", string(result.Profile.Sector)),
		attribute.Bool("ticpe.eligible", result.Eligible),
		attribute.Float64("ticpe.estimated_recovery", result.EstimatedRecovery),
		attribute.String("ticpe.confidence", result.ConfidenceLevel),
	)
	slog.Debug("calculation completed",
		"sector", result.Profile.Sector,
		"eligible", result.Eligible,
		"estimated_recovery", result.EstimatedRecovery,
		"confidence", result.ConfidenceLevel,
		"dataset_version", result.DatasetVersion,
	)
	return result, nil
}

func (e *Engine) calculate(ctx context.Context, responses []domain.Response) (*domain.CalculationResult, error) {
	p := e.extractor.Extract(responses)

	elig, err := e.CheckEligibility(ctx, p)
	if err != nil {
		return nil, err
	}
	if !elig.Eligible {
		return e.notEligible(p, elig), nil
	}

	var (
		score    int
		calc     *domain.RecoveryCalculation
		maturity int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		score = e.EligibilityScore(p)
		return nil
	})
	g.Go(func() error {
		var err error
		calc, err = e.RecoveryAmount(gctx, p)
		return err
	})
	g.Go(func() error {
		var err error
		maturity, err = e.MaturityScore(gctx, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	estimate := math.Round(calc.FinalAmount)
	bench, err := e.CompareWithBenchmarks(ctx, p, estimate)
	if err != nil {
		return nil, err
	}
	timeline := e.RecoveryTimeline(p, estimate)
	recommendations, risks := e.Advise(p, estimate, maturity, bench, timeline)

	return &domain.CalculationResult{
		Eligible:            true,
		EligibilityScore:    score,
		EstimatedRecovery:   estimate,
		ConfidenceLevel:     e.ConfidenceLevel(p, maturity, bench),
		SectorPerformance:   elig.SectorPerformance,
		MaturityScore:       maturity,
		BenchmarkComparison: bench,
		Recommendations:     recommendations,
		RiskFactors:         risks,
		CalculationDetails:  calc.CalculationDetails,
		Timeline:            timeline,
		Profile:             p,
		DatasetVersion:      e.dataset.Version,
	}, nil
}

// notEligible builds the complete zero result of a gated profile.
func (e *Engine) notEligible(p *domain.Profile, elig *Eligibility) *domain.CalculationResult {
	return &domain.CalculationResult{
		Eligible:          false,
		ConfidenceLevel:   domain.ConfidenceLow,
		SectorPerformance: elig.SectorPerformance,
		Recommendations:   []string{notEligibleRecommendation},
		RiskFactors:       []string{elig.Reason},
		Profile:           p,
		DatasetVersion:    e.dataset.Version,
	}
}

func referenceError(lookup string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrReferenceData, lookup, err)
}
