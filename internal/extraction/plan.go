package extraction

import (
	"errors"
	"fmt"
)

// ErrCircularDependency signals that the dependency graph cannot be
// topologically ordered. It is a configuration error, surfaced before any
// fetch begins.
var ErrCircularDependency = errors.New("circular dependency in data source configuration")

// Plan is an ordered sequence of execution levels. Every source appears in
// exactly one level, and all of its dependencies appear in strictly earlier
// levels. Sources within one level may execute concurrently.
type Plan struct {
	Levels [][]string
}

// SourceCount returns the total number of scheduled sources.
func (p *Plan) SourceCount() int {
	n := 0
	for _, level := range p.Levels {
		n += len(level)
	}
	return n
}

// BuildPlan computes the execution levels for a set of data sources.
// Each pass collects every not-yet-scheduled source whose dependencies are
// all satisfied by earlier levels. A pass that schedules nothing while
// sources remain means the remaining dependencies can never be satisfied
// (a cycle, or a reference to an unknown source).
func BuildPlan(sources []SourceSpec) (*Plan, error) {
	scheduled := make(map[string]struct{}, len(sources))
	remaining := make([]SourceSpec, len(sources))
	copy(remaining, sources)

	plan := &Plan{}
	for len(remaining) > 0 {
		var level []string
		var next []SourceSpec

		// Declared order keeps level membership deterministic.
		for _, src := range remaining {
			if depsSatisfied(src, scheduled) {
				level = append(level, src.ID)
			} else {
				next = append(next, src)
			}
		}

		if len(level) == 0 {
			ids := make([]string, len(next))
			for i, src := range next {
				ids[i] = src.ID
			}
			return nil, fmt.Errorf("%w: unschedulable sources %v", ErrCircularDependency, ids)
		}

		for _, id := range level {
			scheduled[id] = struct{}{}
		}
		plan.Levels = append(plan.Levels, level)
		remaining = next
	}

	return plan, nil
}

func depsSatisfied(src SourceSpec, scheduled map[string]struct{}) bool {
	for _, dep := range src.DependsOn {
		if _, ok := scheduled[dep.SourceID]; !ok {
			return false
		}
	}
	return true
}
