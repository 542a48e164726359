// Package router validates request envelopes and dispatches them to a
// single tool or a workflow run.
//
// The router is the hub's one entry point: both the HTTP adapter and the
// MCP server funnel through Route, so protections (schema validation,
// per-call timeout, circuit breaking, decision recording) apply uniformly.
package router

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/uaesivakumar/agenthub/pkg/breaker"
	"github.com/uaesivakumar/agenthub/pkg/errors"
	"github.com/uaesivakumar/agenthub/pkg/registry"
	"github.com/uaesivakumar/agenthub/pkg/schema"
	"github.com/uaesivakumar/agenthub/pkg/sink"
)

// Request type discriminators.
const (
	TypeSingleTool = "single-tool"
	TypeWorkflow   = "workflow"
)

// envelopeSchema validates the request envelope shape; the type-specific
// name requirements are checked after.
var envelopeSchema = schema.MustCompile(map[string]any{
	"type": "object",
	"properties": map[string]any{
		"type":          map[string]any{"type": "string", "enum": []string{TypeSingleTool, TypeWorkflow}},
		"tool_name":     map[string]any{"type": "string"},
		"workflow_name": map[string]any{"type": "string"},
		"input":         map[string]any{"type": []string{"object", "null"}},
	},
	"required": []string{"type"},
})

// Request is the routing envelope.
type Request struct {
	// Type selects the dispatch path: single-tool or workflow.
	Type string `json:"type"`

	// ToolName is required when Type is single-tool.
	ToolName string `json:"tool_name,omitempty"`

	// WorkflowName is required when Type is workflow.
	WorkflowName string `json:"workflow_name,omitempty"`

	// Input is the caller's raw input.
	Input map[string]any `json:"input"`
}

// WorkflowExecutor is the router's view of the workflow engine.
type WorkflowExecutor interface {
	Execute(ctx context.Context, name string, input map[string]any) (map[string]any, error)
}

// Router dispatches validated requests.
type Router struct {
	registry *registry.Registry
	engine   WorkflowExecutor
	breakers *breaker.Set
	sink     sink.DecisionSink
	logger   *slog.Logger
	tracer   trace.Tracer
	newID    func() string
	now      func() time.Time
}

// New creates a router. The breaker set should be the same one handed to the
// engine so single-tool calls and workflow steps share circuit state.
func New(reg *registry.Registry, engine WorkflowExecutor, breakers *breaker.Set) *Router {
	return &Router{
		registry: reg,
		engine:   engine,
		breakers: breakers,
		sink:     sink.Noop{},
		logger:   slog.Default(),
		tracer:   otel.Tracer("agenthub/router"),
		newID:    func() string { return uuid.New().String() },
		now:      time.Now,
	}
}

// WithLogger sets the router's logger.
func (r *Router) WithLogger(logger *slog.Logger) *Router {
	r.logger = logger
	return r
}

// WithSink sets the decision sink. Recording must never block; wrap
// persistent sinks in sink.NewAsync.
func (r *Router) WithSink(s sink.DecisionSink) *Router {
	r.sink = s
	return r
}

// Route validates the envelope and dispatches the request.
// All failures carry a taxonomy kind for adapters to translate.
func (r *Router) Route(ctx context.Context, req Request) (map[string]any, error) {
	if err := r.validateEnvelope(req); err != nil {
		return nil, err
	}

	requestID := r.newID()
	routedAt := r.now()

	ctx, span := r.tracer.Start(ctx, "router.route",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("request.type", req.Type),
		))
	defer span.End()

	var (
		out map[string]any
		err error
	)
	switch req.Type {
	case TypeSingleTool:
		out, err = r.routeTool(ctx, req.ToolName, req.Input)
	case TypeWorkflow:
		out, err = r.engine.Execute(ctx, req.WorkflowName, req.Input)
	}

	duration := r.now().Sub(routedAt)
	r.record(ctx, requestID, req, out, err, routedAt, duration)

	if err != nil {
		r.logger.Warn("request failed",
			"request_id", requestID,
			"type", req.Type,
			"kind", string(errors.KindOf(err)),
			"error", err,
		)
		return nil, err
	}

	out["_routing"] = map[string]any{
		"type":        req.Type,
		"duration_ms": duration.Milliseconds(),
		"routed_at":   routedAt.UTC().Format(time.RFC3339Nano),
	}
	return out, nil
}

// validateEnvelope checks the request shape and the type-specific name
// requirements.
func (r *Router) validateEnvelope(req Request) error {
	if err := envelopeSchema.Validate(req); err != nil {
		return errors.Wrap(errors.KindInvalidRequest, "invalid request envelope", err)
	}

	switch req.Type {
	case TypeSingleTool:
		if req.ToolName == "" {
			return errors.New(errors.KindInvalidRequest, "tool_name is required for single-tool requests")
		}
	case TypeWorkflow:
		if req.WorkflowName == "" {
			return errors.New(errors.KindInvalidRequest, "workflow_name is required for workflow requests")
		}
	}
	return nil
}

// routeTool runs one tool under its schema, timeout, and breaker protections.
func (r *Router) routeTool(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	desc, instance, err := r.registry.Get(name)
	if err != nil {
		return nil, err
	}

	if input == nil {
		input = map[string]any{}
	}
	if err := desc.InputSchema.Validate(input); err != nil {
		return nil, errors.Wrap(errors.KindInvalidInput,
			fmt.Sprintf("input validation failed for tool %s", name), err)
	}

	br := r.breakers.For(name)
	if err := br.Allow(); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, desc.CallTimeout())
	defer cancel()

	output, err := instance.Execute(callCtx, input)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.KindCancelled, "request cancelled", ctx.Err())
		}
		br.RecordFailure()
		return nil, classifyToolError(name, err, callCtx)
	}
	br.RecordSuccess()

	if verr := desc.OutputSchema.Validate(output); verr != nil {
		// Schema drift is a warning, not a failure.
		r.logger.Warn("tool output failed schema validation", "tool", name, "error", verr)
	}

	// Copy so _routing never leaks into the tool's own map.
	result := make(map[string]any, len(output)+1)
	for k, v := range output {
		result[k] = v
	}
	return result, nil
}

// record publishes the decision; sink failures never affect the request.
func (r *Router) record(ctx context.Context, requestID string, req Request, out map[string]any, err error, routedAt time.Time, duration time.Duration) {
	decision := sink.Decision{
		RequestID:  requestID,
		Type:       req.Type,
		Target:     req.ToolName,
		DurationMs: duration.Milliseconds(),
		RoutedAt:   routedAt,
	}
	if req.Type == TypeWorkflow {
		decision.Target = req.WorkflowName
		if out != nil {
			if wf, ok := out["_workflow"].(map[string]any); ok {
				decision.WorkflowID, _ = wf["id"].(string)
			}
			if c, ok := out["confidence"].(float64); ok {
				decision.Confidence = c
			}
		}
	}
	if err != nil {
		decision.ErrorKind = string(errors.KindOf(err))
	}

	if serr := r.sink.Record(ctx, decision); serr != nil {
		r.logger.Warn("decision sink record failed", "request_id", requestID, "error", serr)
	}
}

// Breakers exposes breaker snapshots for diagnostics endpoints.
func (r *Router) Breakers() map[string]breaker.Status {
	return r.breakers.Statuses()
}

// classifyToolError maps a tool failure to the taxonomy. Tool-declared kinds
// pass through; a deadline hit is TIMEOUT; anything else is TOOL_ERROR.
func classifyToolError(toolName string, err error, callCtx context.Context) error {
	var hubErr *errors.Error
	if stderrors.As(err, &hubErr) {
		return err
	}

	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return errors.Wrap(errors.KindTimeout,
			fmt.Sprintf("tool %s exceeded call deadline", toolName), err)
	}

	return errors.Wrap(errors.KindToolError,
		fmt.Sprintf("tool %s failed", toolName), err)
}
