package router_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uaesivakumar/agenthub/pkg/breaker"
	"github.com/uaesivakumar/agenthub/pkg/errors"
	"github.com/uaesivakumar/agenthub/pkg/registry"
	"github.com/uaesivakumar/agenthub/pkg/router"
	"github.com/uaesivakumar/agenthub/pkg/schema"
	"github.com/uaesivakumar/agenthub/pkg/sink"
	"github.com/uaesivakumar/agenthub/pkg/tool"
	"github.com/uaesivakumar/agenthub/pkg/tool/tooltest"
	"github.com/uaesivakumar/agenthub/pkg/workflow"
)

func companyQualityDescriptor(t *testing.T) tool.Descriptor {
	t.Helper()
	input, err := schema.Compile(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"company_name": map[string]any{"type": "string"},
			"size":         map[string]any{"type": "integer"},
		},
		"required": []string{"company_name"},
	})
	require.NoError(t, err)
	output, err := schema.Compile(map[string]any{"type": "object"})
	require.NoError(t, err)

	return tool.Descriptor{
		Name:         "CompanyQualityTool",
		DisplayName:  "Company Quality",
		Version:      "1.2.0",
		InputSchema:  input,
		OutputSchema: output,
		SLA:          tool.SLA{P50Ms: 20, P95Ms: 100, ErrorRateThreshold: 0.05},
	}
}

type fixture struct {
	registry *registry.Registry
	store    *workflow.Store
	breakers *breaker.Set
	router   *router.Router
}

func newFixture(t *testing.T, breakerCfg breaker.Config) *fixture {
	t.Helper()
	reg := registry.New(nil)
	store := workflow.NewStore()
	breakers := breaker.NewSet(breakerCfg)
	engine := workflow.NewEngine(store, reg, breakers)
	return &fixture{
		registry: reg,
		store:    store,
		breakers: breakers,
		router:   router.New(reg, engine, breakers),
	}
}

func TestRoute_SingleToolHappyPath(t *testing.T) {
	f := newFixture(t, breaker.DefaultConfig())
	fake := tooltest.Returning(map[string]any{
		"quality_score": 85,
		"quality_tier":  "High-Value",
		"confidence":    0.92,
		"key_factors":   []any{"UAE_VERIFIED", "HIGH_SALARY"},
	})
	require.NoError(t, f.registry.Register(companyQualityDescriptor(t), fake))

	out, err := f.router.Route(context.Background(), router.Request{
		Type:     router.TypeSingleTool,
		ToolName: "CompanyQualityTool",
		Input:    map[string]any{"company_name": "TechCorp UAE", "size": 150},
	})
	require.NoError(t, err)

	assert.Equal(t, 85, out["quality_score"])
	routing := out["_routing"].(map[string]any)
	assert.Equal(t, "single-tool", routing["type"])
	assert.NotEmpty(t, routing["routed_at"])
	assert.Equal(t, "TechCorp UAE", fake.Input(0)["company_name"])
}

func TestRoute_DeterministicOutputAcrossCalls(t *testing.T) {
	f := newFixture(t, breaker.DefaultConfig())
	fake := tooltest.Returning(map[string]any{"quality_score": 85, "confidence": 0.92})
	require.NoError(t, f.registry.Register(companyQualityDescriptor(t), fake))

	req := router.Request{
		Type:     router.TypeSingleTool,
		ToolName: "CompanyQualityTool",
		Input:    map[string]any{"company_name": "TechCorp UAE"},
	}

	first, err := f.router.Route(context.Background(), req)
	require.NoError(t, err)
	second, err := f.router.Route(context.Background(), req)
	require.NoError(t, err)

	delete(first, "_routing")
	delete(second, "_routing")
	assert.Equal(t, first, second)
}

func TestRoute_EnvelopeValidation(t *testing.T) {
	f := newFixture(t, breaker.DefaultConfig())

	tests := []struct {
		name string
		req  router.Request
	}{
		{"unknown type", router.Request{Type: "batch", Input: map[string]any{}}},
		{"empty type", router.Request{Input: map[string]any{}}},
		{"single-tool without tool_name", router.Request{Type: router.TypeSingleTool}},
		{"workflow without workflow_name", router.Request{Type: router.TypeWorkflow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.router.Route(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, errors.KindInvalidRequest, errors.KindOf(err))
		})
	}
}

func TestRoute_InputSchemaRejection(t *testing.T) {
	f := newFixture(t, breaker.DefaultConfig())
	fake := tooltest.Returning(map[string]any{"ok": true})
	require.NoError(t, f.registry.Register(companyQualityDescriptor(t), fake))

	_, err := f.router.Route(context.Background(), router.Request{
		Type:     router.TypeSingleTool,
		ToolName: "CompanyQualityTool",
		Input:    map[string]any{"size": 150}, // missing required company_name
	})
	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))
	assert.Equal(t, 0, fake.CallCount(), "invalid input must not reach the tool")
}

func TestRoute_UnknownTool(t *testing.T) {
	f := newFixture(t, breaker.DefaultConfig())

	_, err := f.router.Route(context.Background(), router.Request{
		Type:     router.TypeSingleTool,
		ToolName: "NoSuchTool",
		Input:    map[string]any{},
	})
	require.Error(t, err)
	assert.Equal(t, errors.KindToolNotFound, errors.KindOf(err))
}

func TestRoute_Timeout(t *testing.T) {
	f := newFixture(t, breaker.DefaultConfig())
	// CallTimeout is 2 x p95 = 200ms; the tool sleeps past it.
	slow := tooltest.NewFake(tooltest.Response{
		Output: map[string]any{"ok": true},
		Delay:  400 * time.Millisecond,
	})
	require.NoError(t, f.registry.Register(companyQualityDescriptor(t), slow))

	_, err := f.router.Route(context.Background(), router.Request{
		Type:     router.TypeSingleTool,
		ToolName: "CompanyQualityTool",
		Input:    map[string]any{"company_name": "TechCorp UAE"},
	})
	require.Error(t, err)
	assert.Equal(t, errors.KindTimeout, errors.KindOf(err))
}

func TestRoute_BreakerOpensAfterFailures(t *testing.T) {
	f := newFixture(t, breaker.Config{FailureThreshold: 3, SuccessThreshold: 2, OpenTimeout: time.Minute})
	failing := tooltest.Failing(errors.New(errors.KindToolError, "backend down"))
	require.NoError(t, f.registry.Register(companyQualityDescriptor(t), failing))

	req := router.Request{
		Type:     router.TypeSingleTool,
		ToolName: "CompanyQualityTool",
		Input:    map[string]any{"company_name": "TechCorp UAE"},
	}

	for i := 0; i < 3; i++ {
		_, err := f.router.Route(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, errors.KindToolError, errors.KindOf(err), "call %d", i+1)
	}

	// Fourth call: breaker refuses without invoking the tool.
	_, err := f.router.Route(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errors.KindCircuitOpen, errors.KindOf(err))
	assert.Equal(t, 3, failing.CallCount())

	statuses := f.router.Breakers()
	assert.Equal(t, breaker.StateOpen, statuses["CompanyQualityTool"].State)
}

func TestRoute_WorkflowDispatch(t *testing.T) {
	f := newFixture(t, breaker.DefaultConfig())

	permissive, err := schema.Compile(map[string]any{"type": "object"})
	require.NoError(t, err)
	desc := companyQualityDescriptor(t)
	desc.InputSchema = permissive
	require.NoError(t, f.registry.Register(desc, tooltest.Returning(map[string]any{"confidence": 0.92})))

	require.NoError(t, f.store.Register(workflow.Definition{
		Name:    "single_step",
		Version: "1.0.0",
		Steps:   []workflow.Step{{ID: "s1", ToolName: "CompanyQualityTool"}},
		Config:  workflow.Config{TimeoutMs: 1000},
	}))

	out, err := f.router.Route(context.Background(), router.Request{
		Type:         router.TypeWorkflow,
		WorkflowName: "single_step",
		Input:        map[string]any{},
	})
	require.NoError(t, err)

	assert.Equal(t, "single_step", out["workflow"])
	assert.Equal(t, 0.92, out["confidence"])
	routing := out["_routing"].(map[string]any)
	assert.Equal(t, "workflow", routing["type"])
}

func TestRoute_WorkflowNotFound(t *testing.T) {
	f := newFixture(t, breaker.DefaultConfig())

	_, err := f.router.Route(context.Background(), router.Request{
		Type:         router.TypeWorkflow,
		WorkflowName: "missing",
		Input:        map[string]any{},
	})
	require.Error(t, err)
	assert.Equal(t, errors.KindWorkflowNotFound, errors.KindOf(err))
}

// captureSink records decisions synchronously for assertions.
type captureSink struct {
	mu        sync.Mutex
	decisions []sink.Decision
}

func (c *captureSink) Record(_ context.Context, d sink.Decision) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decisions = append(c.decisions, d)
	return nil
}

func TestRoute_RecordsDecisions(t *testing.T) {
	f := newFixture(t, breaker.DefaultConfig())
	capture := &captureSink{}
	f.router.WithSink(capture)

	require.NoError(t, f.registry.Register(companyQualityDescriptor(t),
		tooltest.Returning(map[string]any{"confidence": 0.92})))

	_, err := f.router.Route(context.Background(), router.Request{
		Type:     router.TypeSingleTool,
		ToolName: "CompanyQualityTool",
		Input:    map[string]any{"company_name": "TechCorp UAE"},
	})
	require.NoError(t, err)

	_, err = f.router.Route(context.Background(), router.Request{
		Type:     router.TypeSingleTool,
		ToolName: "NoSuchTool",
		Input:    map[string]any{},
	})
	require.Error(t, err)

	require.Len(t, capture.decisions, 2)
	assert.Equal(t, "CompanyQualityTool", capture.decisions[0].Target)
	assert.Empty(t, capture.decisions[0].ErrorKind)
	assert.Equal(t, "TOOL_NOT_FOUND", capture.decisions[1].ErrorKind)
	assert.NotEmpty(t, capture.decisions[0].RequestID)
}

// failingSink always errors; routing must not care.
type failingSink struct{}

func (failingSink) Record(context.Context, sink.Decision) error {
	return fmt.Errorf("sink unavailable")
}

func TestRoute_SinkFailureDoesNotAffectRequest(t *testing.T) {
	f := newFixture(t, breaker.DefaultConfig())
	f.router.WithSink(failingSink{})

	require.NoError(t, f.registry.Register(companyQualityDescriptor(t),
		tooltest.Returning(map[string]any{"quality_score": 85})))

	out, err := f.router.Route(context.Background(), router.Request{
		Type:     router.TypeSingleTool,
		ToolName: "CompanyQualityTool",
		Input:    map[string]any{"company_name": "TechCorp UAE"},
	})
	require.NoError(t, err)
	assert.Equal(t, 85, out["quality_score"])
}
