// Package tooltest provides scripted tool fakes for exercising the hub's
// dispatch paths in tests.
package tooltest

import (
	"context"
	"sync"
	"time"

	"github.com/uaesivakumar/agenthub/pkg/tool"
)

// Response scripts one call to a Fake.
type Response struct {
	// Output is returned when Err is nil.
	Output map[string]any

	// Err is returned instead of Output when set.
	Err error

	// Delay is waited before responding; the wait honors context
	// cancellation so deadline tests observe real timeouts.
	Delay time.Duration
}

// Fake is a scripted Tool. Calls consume Responses in order; once the script
// is exhausted, the last response repeats. The zero value returns empty
// outputs immediately.
type Fake struct {
	mu        sync.Mutex
	responses []Response
	inputs    []map[string]any
}

var _ tool.Tool = (*Fake)(nil)

// NewFake creates a Fake scripted with the given responses.
func NewFake(responses ...Response) *Fake {
	return &Fake{responses: responses}
}

// Returning creates a Fake that always succeeds with the given output.
func Returning(output map[string]any) *Fake {
	return NewFake(Response{Output: output})
}

// Failing creates a Fake that always fails with the given error.
func Failing(err error) *Fake {
	return NewFake(Response{Err: err})
}

// Execute implements tool.Tool.
func (f *Fake) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, input)
	idx := len(f.inputs) - 1
	var resp Response
	if len(f.responses) > 0 {
		if idx >= len(f.responses) {
			idx = len(f.responses) - 1
		}
		resp = f.responses[idx]
	}
	f.mu.Unlock()

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if resp.Err != nil {
		return nil, resp.Err
	}
	if resp.Output == nil {
		return map[string]any{}, nil
	}
	return resp.Output, nil
}

// CallCount returns how many times Execute has been invoked.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

// Input returns the input seen by the i-th call.
func (f *Fake) Input(i int) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inputs[i]
}
