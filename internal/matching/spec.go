// Package matching selects the candidate documents for a template: by a
// static reference key, by conditional rule-driven reference key selection,
// or by the shared/account-scoped fallback, with validity-window filtering
// applied to every result set.
package matching

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ghmd86/document-hub-sub000/internal/ruleengine"
)

// ErrMissingReferenceKeyType marks a conditional matching spec without a
// referenceKeyType. The template definition is broken; this surfaces to the
// caller instead of degrading.
var ErrMissingReferenceKeyType = errors.New("conditional matching spec is missing referenceKeyType")

// MatchBy selects the matching strategy declared by a template.
type MatchBy int

const (
	MatchByUnknown MatchBy = iota
	MatchByReferenceKey
	MatchByConditional
)

func (m MatchBy) String() string {
	switch m {
	case MatchByReferenceKey:
		return "reference_key"
	case MatchByConditional:
		return "conditional"
	default:
		return "unknown"
	}
}

// ConditionalRule binds a predicate to the reference key it selects.
// Rules are evaluated in declared order; the first match wins.
type ConditionalRule struct {
	Field        string
	Operator     ruleengine.Operator
	Value        any
	ReferenceKey string
}

// Spec is a template's parsed document matching configuration. Read-only.
type Spec struct {
	MatchBy           MatchBy
	RawMatchBy        string
	ReferenceKeyField string
	ReferenceKeyType  string
	Conditions        []ConditionalRule
}

type rawSpec struct {
	MatchBy           string `json:"matchBy"`
	ReferenceKeyField string `json:"referenceKeyField"`
	ReferenceKeyType  string `json:"referenceKeyType"`
	Conditions        []struct {
		Field        string `json:"field"`
		Operator     string `json:"operator"`
		Value        any    `json:"value"`
		ReferenceKey string `json:"referenceKey"`
	} `json:"conditions"`
}

// ParseSpec decodes a matching spec from template configuration. Empty input
// means the template declares no spec (shared/account fallback applies) and
// yields (nil, nil).
func ParseSpec(data []byte) (*Spec, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var raw rawSpec
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse matching spec: %w", err)
	}
	if raw.MatchBy == "" {
		return nil, nil
	}

	spec := &Spec{
		RawMatchBy:        raw.MatchBy,
		ReferenceKeyField: raw.ReferenceKeyField,
		ReferenceKeyType:  raw.ReferenceKeyType,
	}

	switch strings.ToLower(strings.TrimSpace(raw.MatchBy)) {
	case "reference_key":
		spec.MatchBy = MatchByReferenceKey
	case "conditional":
		spec.MatchBy = MatchByConditional
	default:
		spec.MatchBy = MatchByUnknown
	}

	if spec.MatchBy == MatchByConditional && spec.ReferenceKeyType == "" {
		return nil, ErrMissingReferenceKeyType
	}

	for _, c := range raw.Conditions {
		spec.Conditions = append(spec.Conditions, ConditionalRule{
			Field:        c.Field,
			Operator:     ruleengine.ParseOperator(c.Operator),
			Value:        c.Value,
			ReferenceKey: c.ReferenceKey,
		})
	}

	return spec, nil
}
