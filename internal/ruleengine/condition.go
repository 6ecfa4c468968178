package ruleengine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GroupType combines the results of a group's child expressions.
type GroupType int

const (
	GroupAll GroupType = iota // every child must be true (empty group is true)
	GroupAny                  // at least one child must be true (empty group is false)
)

func (g GroupType) String() string {
	if g == GroupAny {
		return "ANY"
	}
	return "ALL"
}

// Condition is a leaf predicate against a single field of the context.
type Condition struct {
	Source   string
	Field    string
	Operator Operator
	Expected any
}

// Node is a parsed condition tree: either a leaf Condition or a composite
// group of child nodes. Exactly one of Leaf/Children is meaningful, selected
// by IsGroup. Nodes are immutable after parsing.
type Node struct {
	IsGroup  bool
	Group    GroupType
	Children []Node
	Leaf     Condition
}

// rawNode mirrors the JSON shape before the union is resolved. The stored
// configuration discriminates leaves from groups by the presence of "type".
type rawNode struct {
	Type        *string           `json:"type"`
	Expressions []json.RawMessage `json:"expressions"`

	Source        string `json:"source"`
	Field         string `json:"field"`
	Operator      string `json:"operator"`
	ExpectedValue any    `json:"expectedValue"`
}

// ParseConditions decodes a condition tree from template configuration.
// Parsing resolves the union once so evaluation never re-inspects raw JSON.
func ParseConditions(data []byte) (*Node, error) {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse condition tree: %w", err)
	}
	return buildNode(raw)
}

func buildNode(raw rawNode) (*Node, error) {
	if raw.Type == nil {
		if raw.Field == "" {
			return nil, fmt.Errorf("condition leaf is missing a field")
		}
		return &Node{
			Leaf: Condition{
				Source:   raw.Source,
				Field:    raw.Field,
				Operator: ParseOperator(raw.Operator),
				Expected: raw.ExpectedValue,
			},
		}, nil
	}

	var group GroupType
	switch strings.ToUpper(strings.TrimSpace(*raw.Type)) {
	case "ALL":
		group = GroupAll
	case "ANY":
		group = GroupAny
	default:
		return nil, fmt.Errorf("unknown condition group type %q", *raw.Type)
	}

	children := make([]Node, 0, len(raw.Expressions))
	for i, expr := range raw.Expressions {
		var childRaw rawNode
		if err := json.Unmarshal(expr, &childRaw); err != nil {
			return nil, fmt.Errorf("failed to parse expression %d: %w", i, err)
		}
		child, err := buildNode(childRaw)
		if err != nil {
			return nil, err
		}
		children = append(children, *child)
	}

	return &Node{
		IsGroup:  true,
		Group:    group,
		Children: children,
	}, nil
}

// EvaluateGroup evaluates a parsed condition tree against the context with
// short-circuit semantics. ALL groups stop at the first false child, ANY
// groups at the first true one. An empty ALL is vacuously true; an empty ANY
// is false.
func (e *Evaluator) EvaluateGroup(node *Node, ctx map[string]any) bool {
	if node == nil {
		return true
	}

	if !node.IsGroup {
		return e.evalLeaf(node.Leaf, ctx)
	}

	switch node.Group {
	case GroupAny:
		for i := range node.Children {
			if e.EvaluateGroup(&node.Children[i], ctx) {
				return true
			}
		}
		return false
	default:
		for i := range node.Children {
			if !e.EvaluateGroup(&node.Children[i], ctx) {
				return false
			}
		}
		return true
	}
}

// evalLeaf resolves the leaf's field from the context and applies its
// operator. A missing field fails closed.
func (e *Evaluator) evalLeaf(cond Condition, ctx map[string]any) bool {
	actual, ok := ctx[cond.Field]
	if !ok || actual == nil {
		return false
	}

	if cond.Operator == OperatorUnknown {
		e.logger.Warn("skipping condition with unknown operator",
			"field", cond.Field,
			"source", cond.Source,
		)
		return false
	}

	return cond.Operator.Eval(actual, cond.Expected)
}
