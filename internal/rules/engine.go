// Package rules provides the CEL-Go based rule evaluation engine used for
// eligibility gates, recommendations and risk factors.
package rules

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/ticpe/internal/domain"
)

// Engine is the CEL-based rule evaluation engine.
// Rules keep their load order; evaluation is sequential so output lists are stable.
type Engine struct {
	mu    sync.RWMutex
	env   *cel.Env
	rules map[domain.RuleKind][]*CompiledRule
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  domain.RuleConfig
	Program cel.Program
}

// NewEngine creates a new rule evaluation engine.
func NewEngine() (*Engine, error) {
	// Create CEL environment with calculation variables
	env, err := cel.NewEnv(
		cel.Variable("sector", cel.StringType),
		cel.Variable("eligible_sectors", cel.ListType(cel.StringType)),
		cel.Variable("professional_vehicles", cel.BoolType),
		cel.Variable("consumption_liters", cel.DoubleType),
		cel.Variable("min_consumption", cel.DoubleType),
		cel.Variable("final_amount", cel.DoubleType),
		cel.Variable("maturity_score", cel.DoubleType),
		cel.Variable("usage_known", cel.BoolType),
		cel.Variable("usage_percent", cel.DoubleType),
		cel.Variable("fuel_invoices", cel.StringType),
		cel.Variable("fuel_cards", cel.StringType),
		cel.Variable("nominative_invoices", cel.StringType),
		cel.Variable("declarations", cel.StringType),
		cel.Variable("has_benchmark", cel.BoolType),
		cel.Variable("benchmark_performance", cel.StringType),
		cel.Variable("benchmark_percent", cel.DoubleType),
		cel.Variable("benchmark_amount", cel.DoubleType),
		cel.Variable("timeline_total", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:   env,
		rules: make(map[domain.RuleKind][]*CompiledRule),
	}, nil
}

// ValidateRule compiles and validates a rule without mutating loaded engine rules.
func (e *Engine) ValidateRule(cfg *domain.RuleConfig) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRules clears all existing rules and loads the enabled ones.
// On error the previously loaded set is kept.
func (e *Engine) LoadRules(configs []domain.RuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[domain.RuleKind][]*CompiledRule)
	for i := range configs {
		cfg := &configs[i]
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.Kind] = append(newRules[cfg.Kind], compiled)
	}

	e.rules = newRules
	return nil
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := 0
	for _, rs := range e.rules {
		n += len(rs)
	}
	return n
}

// GetLoadedRules returns the loaded rule configurations of a kind, in order.
func (e *Engine) GetLoadedRules(kind domain.RuleKind) []domain.RuleConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]domain.RuleConfig, 0, len(e.rules[kind]))
	for _, r := range e.rules[kind] {
		out = append(out, r.Config)
	}
	return out
}

// CheckGates evaluates the gate rules in order. It returns the first failing
// gate with its rendered message, or ok when every gate holds. A gate that
// cannot be evaluated counts as failing.
func (e *Engine) CheckGates(in *Input) (failed domain.RuleResult, ok bool) {
	activation, fields := in.activation(), in.messageFields()
	for _, r := range e.loaded(domain.RuleKindGate) {
		res := e.evaluateRule(r, activation, fields)
		if res.Error != "" || !res.Matched {
			res.Message = render(r.Config.Message, fields)
			return res, false
		}
	}
	return domain.RuleResult{}, true
}

// Evaluate runs every advisory rule of a kind and returns all results in order.
func (e *Engine) Evaluate(kind domain.RuleKind, in *Input) []domain.RuleResult {
	activation, fields := in.activation(), in.messageFields()
	rules := e.loaded(kind)
	results := make([]domain.RuleResult, 0, len(rules))
	for _, r := range rules {
		results = append(results, e.evaluateRule(r, activation, fields))
	}
	return results
}

// Messages returns the rendered messages of the matching rules of a kind.
func (e *Engine) Messages(kind domain.RuleKind, in *Input) []string {
	out := []string{}
	for _, res := range e.Evaluate(kind, in) {
		if res.Matched && res.Message != "" {
			out = append(out, res.Message)
		}
	}
	return out
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = make(map[domain.RuleKind][]*CompiledRule)
	return nil
}

func (e *Engine) loaded(kind domain.RuleKind) []*CompiledRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rules[kind]
}

// evaluateRule evaluates a single rule and returns the result.
func (e *Engine) evaluateRule(rule *CompiledRule, activation map[string]any, fields map[string]string) domain.RuleResult {
	result := domain.RuleResult{RuleID: rule.Config.ID}

	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		result.Error = fmt.Sprintf("evaluation error: %v", err)
		return result
	}

	matched, ok := out.(types.Bool)
	if !ok {
		result.Error = fmt.Sprintf("unexpected result type %s", out.Type())
		return result
	}
	result.Matched = bool(matched)
	if result.Matched {
		result.Message = render(rule.Config.Message, fields)
	}
	return result
}

func (e *Engine) compileRule(cfg *domain.RuleConfig) (*CompiledRule, error) {
	switch cfg.Kind {
	case domain.RuleKindGate, domain.RuleKindRecommendation, domain.RuleKindRisk:
	default:
		return nil, fmt.Errorf("rule %s: unknown kind %q", cfg.ID, cfg.Kind)
	}

	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	if outputType := ast.OutputType(); !outputType.IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  *cfg,
		Program: program,
	}, nil
}

// render fills {name} placeholders from fields. Unknown placeholders are kept.
func render(message string, fields map[string]string) string {
	if !strings.Contains(message, "{") {
		return message
	}
	pairs := make([]string, 0, len(fields)*2)
	for k, v := range fields {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(message)
}
