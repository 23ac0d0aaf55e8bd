package domain

// RuleKind groups rules by how their outcome is used.
type RuleKind string

const (
	// RuleKindGate rules must all hold for a profile to be eligible.
	RuleKindGate RuleKind = "gate"

	// RuleKindRecommendation rules emit a recommendation when they hold.
	RuleKindRecommendation RuleKind = "recommendation"

	// RuleKindRisk rules emit a risk factor when they hold.
	RuleKindRisk RuleKind = "risk"
)

// RuleConfig defines a CEL rule over a calculation.
type RuleConfig struct {
	ID   string   `json:"id" yaml:"id"`
	Kind RuleKind `json:"kind" yaml:"kind"`

	// CEL expression, must evaluate to bool
	Expression string `json:"expression" yaml:"expression"`

	// Message is emitted when an advisory rule holds, or when a gate fails.
	// {name} placeholders are filled from the message fields of the input.
	Message string `json:"message" yaml:"message"`

	Enabled bool `json:"enabled" yaml:"enabled"`
}

// RuleResult is the output of one rule evaluation.
type RuleResult struct {
	RuleID  string `json:"ruleId"`
	Matched bool   `json:"matched"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
