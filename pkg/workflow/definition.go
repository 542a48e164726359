// Package workflow provides the hub's workflow primitives: definitions,
// dependency planning, and the execution engine.
//
// A workflow is a named DAG of tool invocations. Definitions are plain
// values, loadable from YAML, and are copied on registration so they are
// effectively read-only afterwards.
package workflow

import (
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/uaesivakumar/agenthub/pkg/errors"
	"github.com/uaesivakumar/agenthub/pkg/workflow/datapath"
)

// Mode selects how a workflow's plan is executed.
type Mode string

const (
	// ModeSequential runs steps one at a time in plan order.
	ModeSequential Mode = "sequential"

	// ModeParallel runs steps wave by wave, each wave concurrently.
	ModeParallel Mode = "parallel"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultTimeoutMs = 30_000
	DefaultBackoffMs = 1_000
)

// RetryConfig bounds per-step retries.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// BackoffMs is the constant wait between attempts.
	BackoffMs int `yaml:"backoff_ms" json:"backoff_ms"`
}

// Config holds a workflow's execution settings.
type Config struct {
	// Mode is sequential or parallel.
	Mode Mode `yaml:"mode" json:"mode"`

	// TimeoutMs bounds each step attempt.
	TimeoutMs int `yaml:"timeout_ms" json:"timeout_ms"`

	// Retry bounds per-step retries.
	Retry RetryConfig `yaml:"retry" json:"retry"`
}

// Step is one tool invocation in a workflow.
type Step struct {
	// ID uniquely identifies the step within the workflow.
	ID string `yaml:"id" json:"id"`

	// ToolName must resolve in the registry at execution time.
	ToolName string `yaml:"tool" json:"tool"`

	// InputMapping maps target input fields to data-path expressions over
	// the execution context ($.input.* and $.results.<id>.*).
	InputMapping map[string]string `yaml:"input_mapping,omitempty" json:"input_mapping,omitempty"`

	// Dependencies lists step ids that must complete before this one.
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`

	// Optional steps degrade to a skipped result on failure instead of
	// aborting the workflow.
	Optional bool `yaml:"optional,omitempty" json:"optional,omitempty"`

	// Condition optionally gates the step. Evaluated against
	// {input, results}; false skips the step without error.
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty"`
}

// Definition represents a workflow.
type Definition struct {
	// Name is the workflow identifier.
	Name string `yaml:"name" json:"name"`

	// Version is opaque to the engine.
	Version string `yaml:"version,omitempty" json:"version,omitempty"`

	// Description provides human-readable context.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Steps is the ordered step list. Plan order is deterministic given
	// this order.
	Steps []Step `yaml:"steps" json:"steps"`

	// Config holds execution settings.
	Config Config `yaml:"config" json:"config"`
}

// ApplyDefaults fills unset config values.
func (d *Definition) ApplyDefaults() {
	if d.Version == "" {
		d.Version = "1.0"
	}
	if d.Config.Mode == "" {
		d.Config.Mode = ModeSequential
	}
	if d.Config.TimeoutMs <= 0 {
		d.Config.TimeoutMs = DefaultTimeoutMs
	}
	if d.Config.Retry.BackoffMs <= 0 {
		d.Config.Retry.BackoffMs = DefaultBackoffMs
	}
}

// Validate checks structural integrity: unique step ids, known dependency
// ids, well-formed input mappings and conditions, a valid mode.
// All violations surface as INVALID_WORKFLOW.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return errors.New(errors.KindInvalidWorkflow, "workflow name is required")
	}

	switch d.Config.Mode {
	case ModeSequential, ModeParallel, "":
	default:
		return errors.Newf(errors.KindInvalidWorkflow, "workflow %s: unknown mode %q", d.Name, d.Config.Mode)
	}

	if d.Config.Retry.MaxRetries < 0 {
		return errors.Newf(errors.KindInvalidWorkflow, "workflow %s: max_retries cannot be negative", d.Name)
	}

	stepIDs := make(map[string]bool, len(d.Steps))
	for _, step := range d.Steps {
		if step.ID == "" {
			return errors.Newf(errors.KindInvalidWorkflow, "workflow %s: step id is required", d.Name)
		}
		if stepIDs[step.ID] {
			return errors.Newf(errors.KindInvalidWorkflow, "workflow %s: duplicate step id: %s", d.Name, step.ID)
		}
		stepIDs[step.ID] = true
	}

	for _, step := range d.Steps {
		if step.ToolName == "" {
			return errors.Newf(errors.KindInvalidWorkflow, "workflow %s: step %s: tool name is required", d.Name, step.ID)
		}

		for _, dep := range step.Dependencies {
			if !stepIDs[dep] {
				return errors.Newf(errors.KindInvalidWorkflow,
					"workflow %s: step %s references unknown dependency: %s", d.Name, step.ID, dep)
			}
			if dep == step.ID {
				return errors.Newf(errors.KindInvalidWorkflow,
					"workflow %s: step %s depends on itself", d.Name, step.ID)
			}
		}

		for field, pathExpr := range step.InputMapping {
			p, err := datapath.Compile(pathExpr)
			if err != nil {
				return errors.Wrap(errors.KindInvalidWorkflow,
					fmt.Sprintf("workflow %s: step %s: mapping for %s", d.Name, step.ID, field), err)
			}
			switch p.Root() {
			case "input", "results":
			default:
				return errors.Newf(errors.KindInvalidWorkflow,
					"workflow %s: step %s: mapping for %s must read $.input or $.results, got %s",
					d.Name, step.ID, field, pathExpr)
			}
		}

		if step.Condition != "" {
			if _, err := expr.Compile(step.Condition, expr.AllowUndefinedVariables()); err != nil {
				return errors.Wrap(errors.KindInvalidWorkflow,
					fmt.Sprintf("workflow %s: step %s: condition", d.Name, step.ID), err)
			}
		}
	}

	return nil
}

// Info is the listing view of a registered definition.
type Info struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	StepCount   int    `json:"step_count"`
	Mode        Mode   `json:"mode"`
}

// Info returns the definition's listing view.
func (d *Definition) Info() Info {
	return Info{
		Name:        d.Name,
		Version:     d.Version,
		Description: d.Description,
		StepCount:   len(d.Steps),
		Mode:        d.Config.Mode,
	}
}

// clone deep-copies a definition so registered workflows are isolated from
// caller mutation.
func (d *Definition) clone() Definition {
	out := *d
	out.Steps = make([]Step, len(d.Steps))
	for i, step := range d.Steps {
		s := step
		if step.InputMapping != nil {
			s.InputMapping = make(map[string]string, len(step.InputMapping))
			for k, v := range step.InputMapping {
				s.InputMapping[k] = v
			}
		}
		if step.Dependencies != nil {
			s.Dependencies = append([]string(nil), step.Dependencies...)
		}
		out.Steps[i] = s
	}
	return out
}
