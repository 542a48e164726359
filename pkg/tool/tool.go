// Package tool defines the capability contract and descriptor metadata for
// decision tools dispatched by the hub.
//
// The hub never introspects tool internals: a tool is any object satisfying
// the Tool interface, registered alongside an immutable Descriptor.
package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/uaesivakumar/agenthub/pkg/schema"
)

// Tool is the capability contract every registered tool satisfies.
//
// Implementations must be safe for concurrent use and must honor context
// cancellation: the hub cancels the context when the per-call timeout elapses.
type Tool interface {
	// Execute runs the tool with the given input and returns its output.
	Execute(ctx context.Context, input map[string]any) (map[string]any, error)
}

// Func adapts a plain function to the Tool interface.
type Func func(ctx context.Context, input map[string]any) (map[string]any, error)

// Execute implements Tool.
func (f Func) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	return f(ctx, input)
}

// Classification tags how a tool's decisions are governed. Informational only;
// the hub routes STRICT and DELEGATED tools identically.
type Classification string

const (
	// ClassificationStrict marks tools whose outputs are applied verbatim.
	ClassificationStrict Classification = "STRICT"

	// ClassificationDelegated marks tools whose outputs downstream systems
	// may override.
	ClassificationDelegated Classification = "DELEGATED"
)

// SLA declares a tool's latency and reliability envelope.
// The hub derives the per-call timeout from P95Ms.
type SLA struct {
	// P50Ms is the median expected latency in milliseconds.
	P50Ms int `json:"p50_ms"`

	// P95Ms is the 95th-percentile expected latency in milliseconds.
	P95Ms int `json:"p95_ms"`

	// ErrorRateThreshold is the acceptable error fraction in [0,1].
	ErrorRateThreshold float64 `json:"error_rate_threshold"`
}

// Capabilities describes optional tool behaviors.
type Capabilities struct {
	// BatchExecution reports whether the tool tolerates concurrent calls.
	// Declared but not acted on; the hub assumes tools are reentrant.
	BatchExecution bool `json:"batch_execution"`
}

// Descriptor is the immutable metadata a tool registers under.
type Descriptor struct {
	// Name uniquely identifies the tool; it is the registry key.
	Name string

	// DisplayName is the human-facing tool name.
	DisplayName string

	// Version is opaque to the hub.
	Version string

	// Classification tags the tool's governance mode.
	Classification Classification

	// InputSchema validates tool inputs. Required.
	InputSchema *schema.Schema

	// OutputSchema validates tool outputs. Required; violations are logged,
	// never fatal.
	OutputSchema *schema.Schema

	// SLA declares the latency envelope the call timeout derives from.
	SLA SLA

	// Capabilities flags optional behaviors.
	Capabilities Capabilities

	// HealthInput is a benign sample input the registry's health probe
	// invokes the tool with.
	HealthInput map[string]any

	// Dependencies names other tools this one composes with. Informational.
	Dependencies []string
}

// Validate checks the minimal registration requirements.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor name cannot be empty")
	}
	if d.InputSchema == nil {
		return fmt.Errorf("descriptor %s: input schema is required", d.Name)
	}
	if d.OutputSchema == nil {
		return fmt.Errorf("descriptor %s: output schema is required", d.Name)
	}
	if d.SLA.P50Ms <= 0 || d.SLA.P95Ms <= 0 {
		return fmt.Errorf("descriptor %s: SLA latencies must be positive", d.Name)
	}
	if d.SLA.ErrorRateThreshold < 0 || d.SLA.ErrorRateThreshold > 1 {
		return fmt.Errorf("descriptor %s: error rate threshold must be in [0,1]", d.Name)
	}
	return nil
}

// CallTimeout returns the per-call deadline derived from the SLA.
func (d *Descriptor) CallTimeout() time.Duration {
	return 2 * time.Duration(d.SLA.P95Ms) * time.Millisecond
}
