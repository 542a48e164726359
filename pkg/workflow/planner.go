package workflow

import (
	"github.com/uaesivakumar/agenthub/pkg/errors"
)

// visit colors for cycle detection.
type visitState int

const (
	unvisited visitState = iota
	visiting
	visited
)

// Plan returns the workflow's steps in dependency order.
// The sort is a depth-first topological sort; given the same input step
// order, the output order is deterministic. Cycles yield
// CIRCULAR_DEPENDENCY before any tool is invoked.
func Plan(def *Definition) ([]Step, error) {
	byID := make(map[string]*Step, len(def.Steps))
	for i := range def.Steps {
		byID[def.Steps[i].ID] = &def.Steps[i]
	}

	states := make(map[string]visitState, len(def.Steps))
	ordered := make([]Step, 0, len(def.Steps))

	var visit func(step *Step) error
	visit = func(step *Step) error {
		switch states[step.ID] {
		case visited:
			return nil
		case visiting:
			return errors.Newf(errors.KindCircularDependency,
				"workflow %s: circular dependency involving step %s", def.Name, step.ID).
				WithDetail("step_id", step.ID)
		}

		states[step.ID] = visiting
		for _, dep := range step.Dependencies {
			depStep, ok := byID[dep]
			if !ok {
				// Validate catches this at registration; guard anyway.
				return errors.Newf(errors.KindInvalidWorkflow,
					"workflow %s: step %s references unknown dependency: %s", def.Name, step.ID, dep)
			}
			if err := visit(depStep); err != nil {
				return err
			}
		}
		states[step.ID] = visited
		ordered = append(ordered, *step)
		return nil
	}

	for i := range def.Steps {
		if err := visit(&def.Steps[i]); err != nil {
			return nil, err
		}
	}

	return ordered, nil
}

// Waves partitions a plan into dependency-depth waves. Steps in the same
// wave have no dependency relation and may run concurrently; wave order
// preserves plan order within each wave.
func Waves(plan []Step) [][]Step {
	depth := make(map[string]int, len(plan))
	var waves [][]Step

	for _, step := range plan {
		d := 0
		for _, dep := range step.Dependencies {
			if depDepth, ok := depth[dep]; ok && depDepth+1 > d {
				d = depDepth + 1
			}
		}
		depth[step.ID] = d

		for len(waves) <= d {
			waves = append(waves, nil)
		}
		waves[d] = append(waves[d], step)
	}

	return waves
}
