package ruleengine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Evaluator evaluates eligibility criteria and condition trees.
type Evaluator struct {
	logger *slog.Logger
}

// New creates a new Evaluator. If logger is nil, it defaults to slog.Default().
func New(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{logger: logger}
}

// AccountAttributes holds the account-level fields addressable by eligibility
// rules without a namespace prefix.
type AccountAttributes struct {
	AccountID       string
	CustomerID      string
	AccountType     string
	Region          string
	State           string
	CustomerSegment string
	LineOfBusiness  string
}

// Rule is a single flat eligibility predicate. Field may name an account
// attribute directly, or redirect into the request context via the
// "$metadata." / "$request." prefixes.
type Rule struct {
	Field    string
	Operator Operator
	Value    any
}

// CombineOperator joins the rules of an EligibilityCriteria.
type CombineOperator int

const (
	CombineAnd CombineOperator = iota
	CombineOr
)

func (c CombineOperator) String() string {
	if c == CombineOr {
		return "OR"
	}
	return "AND"
}

// EligibilityCriteria is a flat rule list with a single combining operator.
type EligibilityCriteria struct {
	Operator CombineOperator
	Rules    []Rule
}

type rawCriteria struct {
	Operator string `json:"operator"`
	Rules    []struct {
		Field    string `json:"field"`
		Operator string `json:"operator"`
		Value    any    `json:"value"`
	} `json:"rules"`
}

// ParseEligibility decodes eligibility criteria from template configuration.
// Empty input yields nil criteria, which evaluates open (true).
func ParseEligibility(data []byte) (*EligibilityCriteria, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var raw rawCriteria
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse eligibility criteria: %w", err)
	}

	criteria := &EligibilityCriteria{}
	switch strings.ToUpper(strings.TrimSpace(raw.Operator)) {
	case "", "AND":
		criteria.Operator = CombineAnd
	case "OR":
		criteria.Operator = CombineOr
	default:
		return nil, fmt.Errorf("unknown eligibility operator %q", raw.Operator)
	}

	for _, r := range raw.Rules {
		criteria.Rules = append(criteria.Rules, Rule{
			Field:    r.Field,
			Operator: ParseOperator(r.Operator),
			Value:    r.Value,
		})
	}

	return criteria, nil
}

// EvaluateEligibility gates a template for an account. Absent criteria or an
// empty rule list is open by default. AND requires every rule to pass, OR at
// least one. A rule whose field resolves to no value fails.
func (e *Evaluator) EvaluateEligibility(criteria *EligibilityCriteria, attrs AccountAttributes, ctx map[string]any) bool {
	if criteria == nil || len(criteria.Rules) == 0 {
		return true
	}

	for _, rule := range criteria.Rules {
		passed := e.evalRule(rule, attrs, ctx)

		if criteria.Operator == CombineOr && passed {
			return true
		}
		if criteria.Operator == CombineAnd && !passed {
			return false
		}
	}

	// AND: no rule failed. OR: no rule passed.
	return criteria.Operator == CombineAnd
}

const (
	metadataPrefix = "$metadata."
	requestPrefix  = "$request."
)

func (e *Evaluator) evalRule(rule Rule, attrs AccountAttributes, ctx map[string]any) bool {
	if rule.Operator == OperatorUnknown {
		e.logger.Warn("skipping eligibility rule with unknown operator", "field", rule.Field)
		return false
	}

	actual, ok := resolveRuleField(rule.Field, attrs, ctx)
	if !ok {
		return false
	}

	return rule.Operator.Eval(actual, rule.Value)
}

// resolveRuleField looks up a rule's field value. Namespaced fields go to the
// context; known account attributes come from the account record; anything
// else falls back to a generic context lookup so rules can reference
// dynamically extracted fields.
func resolveRuleField(field string, attrs AccountAttributes, ctx map[string]any) (any, bool) {
	if name, ok := strings.CutPrefix(field, metadataPrefix); ok {
		return lookupContext(ctx, name)
	}
	if name, ok := strings.CutPrefix(field, requestPrefix); ok {
		return lookupContext(ctx, name)
	}

	switch field {
	case "accountId":
		return nonEmpty(attrs.AccountID)
	case "customerId":
		return nonEmpty(attrs.CustomerID)
	case "accountType":
		return nonEmpty(attrs.AccountType)
	case "region":
		return nonEmpty(attrs.Region)
	case "state":
		return nonEmpty(attrs.State)
	case "customerSegment":
		return nonEmpty(attrs.CustomerSegment)
	case "lineOfBusiness":
		return nonEmpty(attrs.LineOfBusiness)
	}

	return lookupContext(ctx, field)
}

func lookupContext(ctx map[string]any, key string) (any, bool) {
	v, ok := ctx[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func nonEmpty(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	return s, true
}
