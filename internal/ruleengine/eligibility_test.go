package ruleengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEligibility(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    func(t *testing.T, criteria *EligibilityCriteria)
		wantErr bool
	}{
		{
			name:  "Should parse AND criteria with rules",
			input: `{"operator": "AND", "rules": [{"field": "accountType", "operator": "EQUALS", "value": "MORTGAGE"}]}`,
			want: func(t *testing.T, criteria *EligibilityCriteria) {
				assert.Equal(t, CombineAnd, criteria.Operator)
				require.Len(t, criteria.Rules, 1)
				assert.Equal(t, "accountType", criteria.Rules[0].Field)
				assert.Equal(t, OperatorEquals, criteria.Rules[0].Operator)
				assert.Equal(t, "MORTGAGE", criteria.Rules[0].Value)
			},
		},
		{
			name:  "Should parse OR criteria",
			input: `{"operator": "OR", "rules": []}`,
			want: func(t *testing.T, criteria *EligibilityCriteria) {
				assert.Equal(t, CombineOr, criteria.Operator)
			},
		},
		{
			name:  "Should default missing operator to AND",
			input: `{"rules": [{"field": "region", "operator": "EQUALS", "value": "WEST"}]}`,
			want: func(t *testing.T, criteria *EligibilityCriteria) {
				assert.Equal(t, CombineAnd, criteria.Operator)
			},
		},
		{
			name:  "Should return nil criteria for empty input",
			input: "",
			want: func(t *testing.T, criteria *EligibilityCriteria) {
				assert.Nil(t, criteria)
			},
		},
		{
			name:    "Should fail on unknown combining operator",
			input:   `{"operator": "XOR", "rules": []}`,
			wantErr: true,
		},
		{
			name:    "Should fail on malformed JSON",
			input:   `{"operator":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			criteria, err := ParseEligibility([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.want(t, criteria)
		})
	}
}

func TestEvaluateEligibility(t *testing.T) {
	attrs := AccountAttributes{
		AccountID:       "ACC-1",
		CustomerID:      "CUST-1",
		AccountType:     "MORTGAGE",
		Region:          "WEST",
		State:           "CA",
		CustomerSegment: "STANDARD",
		LineOfBusiness:  "RETAIL",
	}

	mustParse := func(t *testing.T, input string) *EligibilityCriteria {
		t.Helper()
		criteria, err := ParseEligibility([]byte(input))
		require.NoError(t, err)
		return criteria
	}

	tests := []struct {
		name     string
		criteria string
		ctx      map[string]any
		want     bool
	}{
		{
			name: "OR passes when one clause is satisfied",
			criteria: `{"operator": "OR", "rules": [
				{"field": "customerSegment", "operator": "EQUALS", "value": "VIP"},
				{"field": "creditScore", "operator": "GREATER_THAN_OR_EQUAL", "value": 800},
				{"field": "state", "operator": "IN", "value": ["CA", "WA"]}
			]}`,
			ctx:  map[string]any{"creditScore": float64(650)},
			want: true,
		},
		{
			name: "OR fails when no clause is satisfied",
			criteria: `{"operator": "OR", "rules": [
				{"field": "customerSegment", "operator": "EQUALS", "value": "VIP"},
				{"field": "creditScore", "operator": "GREATER_THAN_OR_EQUAL", "value": 800},
				{"field": "state", "operator": "IN", "value": ["NV", "OR"]}
			]}`,
			ctx:  map[string]any{"creditScore": float64(650)},
			want: false,
		},
		{
			name: "AND requires every rule to pass",
			criteria: `{"operator": "AND", "rules": [
				{"field": "accountType", "operator": "EQUALS", "value": "MORTGAGE"},
				{"field": "region", "operator": "EQUALS", "value": "WEST"}
			]}`,
			want: true,
		},
		{
			name: "AND fails on a single failing rule",
			criteria: `{"operator": "AND", "rules": [
				{"field": "accountType", "operator": "EQUALS", "value": "MORTGAGE"},
				{"field": "region", "operator": "EQUALS", "value": "EAST"}
			]}`,
			want: false,
		},
		{
			name:     "Metadata-namespaced field resolves from context",
			criteria: `{"operator": "AND", "rules": [{"field": "$metadata.documentClass", "operator": "EQUALS", "value": "statement"}]}`,
			ctx:      map[string]any{"documentClass": "statement"},
			want:     true,
		},
		{
			name:     "Request-namespaced field resolves from context",
			criteria: `{"operator": "AND", "rules": [{"field": "$request.channel", "operator": "EQUALS", "value": "mobile"}]}`,
			ctx:      map[string]any{"channel": "mobile"},
			want:     true,
		},
		{
			name:     "Unrecognized field falls back to context lookup",
			criteria: `{"operator": "AND", "rules": [{"field": "creditScore", "operator": "GREATER_THAN", "value": 600}]}`,
			ctx:      map[string]any{"creditScore": float64(650)},
			want:     true,
		},
		{
			name:     "Rule with unresolvable field fails",
			criteria: `{"operator": "AND", "rules": [{"field": "neverExtracted", "operator": "EQUALS", "value": "x"}]}`,
			want:     false,
		},
		{
			name:     "Empty rule list is open by default",
			criteria: `{"operator": "AND", "rules": []}`,
			want:     true,
		},
	}

	evaluator := New(nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			criteria := mustParse(t, tt.criteria)
			assert.Equal(t, tt.want, evaluator.EvaluateEligibility(criteria, attrs, tt.ctx))
		})
	}
}

func TestEvaluateEligibilityAbsentCriteria(t *testing.T) {
	evaluator := New(nil)
	assert.True(t, evaluator.EvaluateEligibility(nil, AccountAttributes{}, nil))
}
