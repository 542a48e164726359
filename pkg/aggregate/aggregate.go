// Package aggregate fuses per-step tool outputs into the single result a
// workflow run returns.
//
// Aggregation extracts the key fields of well-known tools, fuses per-tool
// confidence values into one score, and merges step metadata (decision ids,
// durations, A/B groups) into a single block.
package aggregate

import (
	"math"
	"time"
)

// Key-field extraction table for well-known tool output schemas.
// Tools not listed here pass their full output through.
var keyFields = map[string][]string{
	"CompanyQualityTool":  {"quality_score", "quality_tier", "confidence", "key_factors"},
	"ContactTierTool":     {"tier", "tier_score", "confidence", "decision_factors"},
	"TimingScoreTool":     {"timing_score", "timing_window", "confidence", "urgency_factors"},
	"BankingProductsTool": {"matched_products", "match_score", "confidence", "rationale"},
}

// neutralConfidence is used when no step reported a usable confidence.
const neutralConfidence = 0.5

// StepOutcome carries one completed (or skipped) step into aggregation, in
// planner order.
type StepOutcome struct {
	// StepID is the step's id within the workflow.
	StepID string

	// ToolName is the registry name the step bound to.
	ToolName string

	// Output is the tool output, or the {error, skipped} marker for
	// skipped steps.
	Output map[string]any

	// DurationMs is the step's wall time across all attempts.
	DurationMs int64

	// Skipped marks optional steps that failed or whose condition held
	// them back.
	Skipped bool
}

// Meta identifies the run being aggregated.
type Meta struct {
	WorkflowName    string
	WorkflowVersion string
	WorkflowID      string
	ExecutedAt      time.Time
}

// Result is the aggregated value returned from a workflow run.
type Result struct {
	Workflow   string         `json:"workflow"`
	ExecutedAt time.Time      `json:"executed_at"`
	Results    map[string]any `json:"results"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata"`
}

// Aggregate fuses step outcomes into a Result.
// Outcomes must be in planner order; tools_executed preserves it so callers
// can reason about causality.
func Aggregate(meta Meta, outcomes []StepOutcome) Result {
	results := make(map[string]any, len(outcomes))
	toolsExecuted := make([]string, 0, len(outcomes))
	skipped := make([]string, 0)

	decisionIDs := map[string]any{}
	executionTimes := map[string]any{}
	abGroups := map[string]any{}
	shadowMode := map[string]any{}

	var confidences []float64

	for _, outcome := range outcomes {
		if outcome.Skipped {
			skipped = append(skipped, outcome.StepID)
			results[outcome.ToolName] = outcome.Output
			continue
		}

		toolsExecuted = append(toolsExecuted, outcome.ToolName)
		results[outcome.ToolName] = extract(outcome.ToolName, outcome.Output)
		executionTimes[outcome.ToolName] = outcome.DurationMs

		if c, ok := confidenceOf(outcome.Output); ok && c > 0 {
			confidences = append(confidences, c)
		}

		if md, ok := outcome.Output["metadata"].(map[string]any); ok {
			if id, ok := md["decision_id"]; ok {
				decisionIDs[outcome.ToolName] = id
			}
			if group, ok := md["ab_test_group"]; ok {
				abGroups[outcome.ToolName] = group
			}
			if shadow, ok := md["shadow_mode_active"]; ok {
				shadowMode[outcome.ToolName] = shadow
			}
		}
	}

	metadata := map[string]any{
		"workflow_id":        meta.WorkflowID,
		"workflow_version":   meta.WorkflowVersion,
		"tools_executed":     toolsExecuted,
		"decision_ids":       decisionIDs,
		"execution_times_ms": executionTimes,
		"ab_test_groups":     abGroups,
		"shadow_mode_active": shadowMode,
	}
	if len(skipped) > 0 {
		metadata["skipped_steps"] = skipped
	}

	return Result{
		Workflow:   meta.WorkflowName,
		ExecutedAt: meta.ExecutedAt,
		Results:    results,
		Confidence: fuseConfidence(confidences),
		Metadata:   metadata,
	}
}

// extract picks the key fields for a well-known tool; unknown tools yield
// the full output.
func extract(toolName string, output map[string]any) map[string]any {
	fields, known := keyFields[toolName]
	if !known {
		return output
	}

	extracted := make(map[string]any, len(fields))
	for _, field := range fields {
		if v, ok := output[field]; ok {
			extracted[field] = v
		}
	}
	return extracted
}

// confidenceOf finds a step's confidence, either top-level or nested under
// metadata.
func confidenceOf(output map[string]any) (float64, bool) {
	if c, ok := asFloat(output["confidence"]); ok {
		return c, true
	}
	if md, ok := output["metadata"].(map[string]any); ok {
		if c, ok := asFloat(md["confidence"]); ok {
			return c, true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// fuseConfidence computes the geometric mean of the collected confidences,
// rounded to two decimals. An empty list yields the neutral 0.5.
func fuseConfidence(confidences []float64) float64 {
	if len(confidences) == 0 {
		return neutralConfidence
	}

	sumLogs := 0.0
	for _, c := range confidences {
		sumLogs += math.Log(c)
	}
	mean := math.Exp(sumLogs / float64(len(confidences)))
	return math.Round(mean*100) / 100
}
