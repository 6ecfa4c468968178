// Package ruleengine provides the generic expression evaluation used by both
// template eligibility rules and conditional document matching. Operators and
// condition trees are parsed from template configuration once and evaluated
// against the per-request context map.
package ruleengine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Operator is a closed enumeration of the comparison operators accepted in
// template configuration. Config strings are parsed once at load time;
// anything unrecognized becomes OperatorUnknown, which always evaluates false.
type Operator int

const (
	OperatorUnknown Operator = iota
	OperatorEquals
	OperatorNotEquals
	OperatorGreaterThan
	OperatorGreaterThanOrEqual
	OperatorLessThan
	OperatorLessThanOrEqual
	OperatorIn
	OperatorNotIn
	OperatorMatches
	OperatorContains
	OperatorStartsWith
	OperatorEndsWith
)

var operatorNames = map[Operator]string{
	OperatorUnknown:            "UNKNOWN",
	OperatorEquals:             "EQUALS",
	OperatorNotEquals:          "NOT_EQUALS",
	OperatorGreaterThan:        "GREATER_THAN",
	OperatorGreaterThanOrEqual: "GREATER_THAN_OR_EQUAL",
	OperatorLessThan:           "LESS_THAN",
	OperatorLessThanOrEqual:    "LESS_THAN_OR_EQUAL",
	OperatorIn:                 "IN",
	OperatorNotIn:              "NOT_IN",
	OperatorMatches:            "MATCHES",
	OperatorContains:           "CONTAINS",
	OperatorStartsWith:         "STARTS_WITH",
	OperatorEndsWith:           "ENDS_WITH",
}

var operatorValues = func() map[string]Operator {
	m := make(map[string]Operator, len(operatorNames))
	for op, name := range operatorNames {
		m[name] = op
	}
	return m
}()

func (op Operator) String() string {
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", int(op))
}

// ParseOperator converts a configuration string to an Operator.
// Unrecognized strings map to OperatorUnknown rather than an error so that a
// single bad rule cannot break an otherwise valid template.
func ParseOperator(s string) Operator {
	op, ok := operatorValues[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return OperatorUnknown
	}
	return op
}

// Eval applies the operator to an actual value from the context and an
// expected value from configuration. It never panics: type mismatches make
// the predicate false.
func (op Operator) Eval(actual, expected any) bool {
	if actual == nil {
		return false
	}

	switch op {
	case OperatorEquals:
		return stringForm(actual) == stringForm(expected)
	case OperatorNotEquals:
		return stringForm(actual) != stringForm(expected)
	case OperatorGreaterThan:
		return compareNumeric(actual, expected, func(a, b float64) bool { return a > b })
	case OperatorGreaterThanOrEqual:
		return compareNumeric(actual, expected, func(a, b float64) bool { return a >= b })
	case OperatorLessThan:
		return compareNumeric(actual, expected, func(a, b float64) bool { return a < b })
	case OperatorLessThanOrEqual:
		return compareNumeric(actual, expected, func(a, b float64) bool { return a <= b })
	case OperatorIn:
		return containsStringForm(expected, actual)
	case OperatorNotIn:
		list, ok := asList(expected)
		if !ok {
			return false
		}
		return !containsStringForm(list, actual)
	case OperatorMatches:
		return fullMatch(stringForm(expected), stringForm(actual))
	case OperatorContains:
		return strings.Contains(stringForm(actual), stringForm(expected))
	case OperatorStartsWith:
		return strings.HasPrefix(stringForm(actual), stringForm(expected))
	case OperatorEndsWith:
		return strings.HasSuffix(stringForm(actual), stringForm(expected))
	default:
		return false
	}
}

// stringForm normalizes a value to its string representation for equality
// and substring predicates. JSON numbers arrive as float64; integral values
// are rendered without a decimal point so 800.0 and "800" compare equal.
func stringForm(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// toFloat attempts a numeric interpretation of a value.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func compareNumeric(actual, expected any, cmp func(a, b float64) bool) bool {
	a, ok := toFloat(actual)
	if !ok {
		return false
	}
	b, ok := toFloat(expected)
	if !ok {
		return false
	}
	return cmp(a, b)
}

// asList normalizes the expected value of IN/NOT_IN to a slice.
func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func containsStringForm(list any, needle any) bool {
	items, ok := asList(list)
	if !ok {
		return false
	}
	target := stringForm(needle)
	for _, item := range items {
		if stringForm(item) == target {
			return true
		}
	}
	return false
}

// fullMatch anchors the pattern so the whole actual value must match.
func fullMatch(pattern, actual string) bool {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return false
	}
	return re.MatchString(actual)
}
