package workflow

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/uaesivakumar/agenthub/pkg/aggregate"
	"github.com/uaesivakumar/agenthub/pkg/breaker"
	"github.com/uaesivakumar/agenthub/pkg/errors"
	"github.com/uaesivakumar/agenthub/pkg/tool"
	"github.com/uaesivakumar/agenthub/pkg/workflow/datapath"
)

// ToolResolver is the engine's view of the tool registry.
type ToolResolver interface {
	Get(name string) (tool.Descriptor, tool.Tool, error)
}

// executionContext is owned by a single run and discarded on completion.
// During parallel waves only the coordinator writes to results, between
// waves, so step goroutines read it without locks.
type executionContext struct {
	input      map[string]any
	results    map[string]any
	workflowID string
	startedAt  time.Time
}

// data builds the root value data paths resolve against.
func (ec *executionContext) data() map[string]any {
	return map[string]any{
		"input":   ec.input,
		"results": ec.results,
	}
}

// stepOutcome is the engine-internal result of one step.
type stepOutcome struct {
	outcome aggregate.StepOutcome
	err     error
}

// Engine executes registered workflows.
type Engine struct {
	store    *Store
	resolver ToolResolver
	breakers *breaker.Set
	logger   *slog.Logger
	tracer   trace.Tracer
	newID    func() string
	now      func() time.Time
}

// NewEngine creates an engine over the given store and registry.
// The breaker set is shared with the router so single-tool calls and
// workflow steps observe the same circuit state.
func NewEngine(store *Store, resolver ToolResolver, breakers *breaker.Set) *Engine {
	return &Engine{
		store:    store,
		resolver: resolver,
		breakers: breakers,
		logger:   slog.Default(),
		tracer:   otel.Tracer("agenthub/workflow"),
		newID:    func() string { return uuid.New().String() },
		now:      time.Now,
	}
}

// WithLogger sets the engine's logger.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger
	return e
}

// Execute runs the named workflow against input and returns the aggregated
// result augmented with a _workflow block.
func (e *Engine) Execute(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	def, err := e.store.Get(name)
	if err != nil {
		return nil, err
	}

	plan, err := Plan(&def)
	if err != nil {
		return nil, err
	}

	ec := &executionContext{
		input:      input,
		results:    make(map[string]any, len(plan)),
		workflowID: e.newID(),
		startedAt:  e.now(),
	}

	ctx, span := e.tracer.Start(ctx, "workflow.execute",
		trace.WithAttributes(
			attribute.String("workflow.name", def.Name),
			attribute.String("workflow.id", ec.workflowID),
			attribute.String("workflow.mode", string(def.Config.Mode)),
		))
	defer span.End()

	logger := e.logger.With("workflow", def.Name, "workflow_id", ec.workflowID)
	logger.Info("workflow started", "mode", string(def.Config.Mode), "steps", len(plan))

	var outcomes []aggregate.StepOutcome
	switch def.Config.Mode {
	case ModeParallel:
		outcomes, err = e.runParallel(ctx, &def, plan, ec, logger)
	default:
		outcomes, err = e.runSequential(ctx, &def, plan, ec, logger)
	}
	if err != nil {
		logger.Error("workflow failed", "error", err)
		return nil, err
	}

	totalDuration := e.now().Sub(ec.startedAt)
	executed := 0
	for _, o := range outcomes {
		if !o.Skipped {
			executed++
		}
	}

	result := aggregate.Aggregate(aggregate.Meta{
		WorkflowName:    def.Name,
		WorkflowVersion: def.Version,
		WorkflowID:      ec.workflowID,
		ExecutedAt:      ec.startedAt,
	}, outcomes)

	logger.Info("workflow completed",
		"duration_ms", totalDuration.Milliseconds(),
		"steps_executed", executed,
		"confidence", result.Confidence,
	)

	return map[string]any{
		"workflow":    result.Workflow,
		"executed_at": result.ExecutedAt,
		"results":     result.Results,
		"confidence":  result.Confidence,
		"metadata":    result.Metadata,
		"_workflow": map[string]any{
			"id":                ec.workflowID,
			"name":              def.Name,
			"version":           def.Version,
			"mode":              string(def.Config.Mode),
			"total_duration_ms": totalDuration.Milliseconds(),
			"steps_executed":    executed,
			"steps_total":       len(plan),
		},
	}, nil
}

// runSequential executes the plan one step at a time. Step i+1 observes
// step i's result through the execution context.
func (e *Engine) runSequential(ctx context.Context, def *Definition, plan []Step, ec *executionContext, logger *slog.Logger) ([]aggregate.StepOutcome, error) {
	outcomes := make([]aggregate.StepOutcome, 0, len(plan))

	for _, step := range plan {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.KindCancelled, "workflow run cancelled", err)
		}

		res := e.runStep(ctx, def, step, ec.data(), logger)
		if res.err != nil {
			return nil, res.err
		}

		ec.results[step.ID] = res.outcome.Output
		outcomes = append(outcomes, res.outcome)
	}

	return outcomes, nil
}

// runParallel executes the plan wave by wave. Steps within a wave run
// concurrently; the coordinator joins the wave before merging results, so
// later waves observe a consistent context.
func (e *Engine) runParallel(ctx context.Context, def *Definition, plan []Step, ec *executionContext, logger *slog.Logger) ([]aggregate.StepOutcome, error) {
	planIndex := make(map[string]int, len(plan))
	for i, step := range plan {
		planIndex[step.ID] = i
	}
	byID := make(map[string]aggregate.StepOutcome, len(plan))

	for _, wave := range Waves(plan) {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.KindCancelled, "workflow run cancelled", err)
		}

		data := ec.data()
		results := make([]stepOutcome, len(wave))

		var wg sync.WaitGroup
		for i, step := range wave {
			wg.Add(1)
			go func(i int, step Step) {
				defer wg.Done()
				results[i] = e.runStep(ctx, def, step, data, logger)
			}(i, step)
		}
		wg.Wait()

		// Merge after the join; abort on the wave's first failure in plan
		// order so errors are deterministic.
		for i, step := range wave {
			if results[i].err != nil {
				return nil, results[i].err
			}
			ec.results[step.ID] = results[i].outcome.Output
			byID[step.ID] = results[i].outcome
		}
	}

	outcomes := make([]aggregate.StepOutcome, 0, len(plan))
	for _, step := range plan {
		outcomes = append(outcomes, byID[step.ID])
	}
	return outcomes, nil
}

// runStep applies the per-step protections, in order: condition gate, input
// mapping, input validation, then the retry loop around breaker-gated,
// deadline-bounded attempts.
func (e *Engine) runStep(ctx context.Context, def *Definition, step Step, data map[string]any, logger *slog.Logger) stepOutcome {
	stepLogger := logger.With("step_id", step.ID, "tool", step.ToolName)
	started := e.now()

	if step.Condition != "" {
		hold, err := evalCondition(step.Condition, data)
		if err != nil {
			return e.failStep(step, started, errors.Wrap(errors.KindInternal,
				fmt.Sprintf("step %s: condition evaluation failed", step.ID), err), stepLogger)
		}
		if !hold {
			stepLogger.Debug("step skipped", "reason", "condition evaluated to false")
			return e.skipStep(step, started, "condition evaluated to false")
		}
	}

	desc, instance, err := e.resolver.Get(step.ToolName)
	if err != nil {
		return e.failStep(step, started, err, stepLogger)
	}

	input := applyMapping(step.InputMapping, data)

	if err := desc.InputSchema.Validate(input); err != nil {
		return e.failStep(step, started, errors.Wrap(errors.KindInvalidInput,
			fmt.Sprintf("step %s: input validation failed for tool %s", step.ID, step.ToolName), err), stepLogger)
	}

	br := e.breakers.For(step.ToolName)
	backoff := time.Duration(def.Config.Retry.BackoffMs) * time.Millisecond
	maxAttempts := 1 + def.Config.Retry.MaxRetries

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		output, err := e.attempt(ctx, def, desc, instance, br, input, stepLogger)
		if err == nil {
			return stepOutcome{outcome: aggregate.StepOutcome{
				StepID:     step.ID,
				ToolName:   step.ToolName,
				Output:     output,
				DurationMs: e.now().Sub(started).Milliseconds(),
			}}
		}

		// Cancellation aborts the run immediately, optional or not.
		if errors.KindOf(err) == errors.KindCancelled {
			return stepOutcome{err: err}
		}

		lastErr = err
		if !errors.IsRetriable(err) || attempt == maxAttempts {
			break
		}

		stepLogger.Warn("step attempt failed, retrying",
			"attempt", attempt,
			"backoff_ms", def.Config.Retry.BackoffMs,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return stepOutcome{err: errors.Wrap(errors.KindCancelled, "workflow run cancelled", ctx.Err())}
		case <-time.After(backoff):
		}
	}

	return e.failStep(step, started, lastErr, stepLogger)
}

// attempt makes one breaker-gated, deadline-bounded tool call.
func (e *Engine) attempt(ctx context.Context, def *Definition, desc tool.Descriptor, instance tool.Tool, br *breaker.Breaker, input map[string]any, logger *slog.Logger) (map[string]any, error) {
	if err := br.Allow(); err != nil {
		return nil, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(def.Config.TimeoutMs)*time.Millisecond)
	defer cancel()

	output, err := instance.Execute(attemptCtx, input)
	if err != nil {
		if ctx.Err() != nil {
			// The run was cancelled, not the attempt's deadline; the tool's
			// failure is not held against it.
			return nil, errors.Wrap(errors.KindCancelled, "workflow run cancelled", ctx.Err())
		}
		br.RecordFailure()
		return nil, classifyToolError(desc.Name, err, attemptCtx)
	}

	br.RecordSuccess()

	if verr := desc.OutputSchema.Validate(output); verr != nil {
		// Schema drift is a warning, not a failure.
		logger.Warn("tool output failed schema validation", "tool", desc.Name, "error", verr)
	}

	return output, nil
}

// failStep resolves a step's final failure: optional steps degrade to a
// skipped marker, required steps abort the workflow.
func (e *Engine) failStep(step Step, started time.Time, cause error, logger *slog.Logger) stepOutcome {
	if step.Optional {
		logger.Warn("optional step failed, skipping", "error", cause)
		return stepOutcome{outcome: aggregate.StepOutcome{
			StepID:   step.ID,
			ToolName: step.ToolName,
			Output: map[string]any{
				"error":   cause.Error(),
				"skipped": true,
			},
			DurationMs: e.now().Sub(started).Milliseconds(),
			Skipped:    true,
		}}
	}

	return stepOutcome{err: errors.Wrap(errors.KindStepFailed,
		fmt.Sprintf("step %s failed", step.ID), cause).
		WithDetail("step_id", step.ID).
		WithDetail("cause_kind", string(errors.KindOf(cause)))}
}

// skipStep builds the outcome for a step held back by its condition.
func (e *Engine) skipStep(step Step, started time.Time, reason string) stepOutcome {
	return stepOutcome{outcome: aggregate.StepOutcome{
		StepID:   step.ID,
		ToolName: step.ToolName,
		Output: map[string]any{
			"skipped": true,
			"reason":  reason,
		},
		DurationMs: e.now().Sub(started).Milliseconds(),
		Skipped:    true,
	}}
}

// classifyToolError maps a tool failure to the taxonomy. Tool-declared kinds
// pass through; a deadline hit is TIMEOUT; anything else is TOOL_ERROR.
func classifyToolError(toolName string, err error, attemptCtx context.Context) error {
	var hubErr *errors.Error
	if stderrors.As(err, &hubErr) {
		return err
	}

	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return errors.Wrap(errors.KindTimeout,
			fmt.Sprintf("tool %s exceeded attempt deadline", toolName), err)
	}

	return errors.Wrap(errors.KindToolError,
		fmt.Sprintf("tool %s failed", toolName), err)
}

// applyMapping builds a step's input from its data-path mapping. Paths that
// do not resolve omit the field; the tool's input schema decides whether
// that is fatal.
func applyMapping(mapping map[string]string, data map[string]any) map[string]any {
	input := make(map[string]any, len(mapping))
	for field, pathExpr := range mapping {
		p, err := datapath.Compile(pathExpr)
		if err != nil {
			// Validate rejected bad paths at registration; treat as absent.
			continue
		}
		if v, ok := p.Resolve(data); ok {
			input[field] = v
		}
	}
	return input
}

// evalCondition evaluates a step's condition expression against
// {input, results}.
func evalCondition(condition string, data map[string]any) (bool, error) {
	program, err := expr.Compile(condition, expr.AllowUndefinedVariables())
	if err != nil {
		return false, err
	}

	out, err := expr.Run(program, data)
	if err != nil {
		return false, err
	}

	hold, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q evaluated to %T, want bool", condition, out)
	}
	return hold, nil
}
