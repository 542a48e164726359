// Package sink defines the write-only decision sink the router publishes to,
// for single-tool and workflow requests alike.
//
// Sinks are boundary collaborators: recording a decision must never slow
// down or fail a request, so callers go through Async, which drops on
// backpressure instead of blocking the dispatch path.
package sink

import (
	"context"
	"log/slog"
	"time"
)

// Decision is one routed call, as the hub saw it.
type Decision struct {
	// RequestID correlates the decision with request logs.
	RequestID string `json:"request_id"`

	// Type is "single-tool" or "workflow".
	Type string `json:"type"`

	// Target is the tool or workflow name.
	Target string `json:"target"`

	// WorkflowID is set for workflow runs.
	WorkflowID string `json:"workflow_id,omitempty"`

	// DurationMs is the request wall time.
	DurationMs int64 `json:"duration_ms"`

	// ErrorKind is empty on success.
	ErrorKind string `json:"error_kind,omitempty"`

	// Confidence is the aggregated confidence for workflow runs.
	Confidence float64 `json:"confidence,omitempty"`

	// RoutedAt is when the router accepted the request.
	RoutedAt time.Time `json:"routed_at"`
}

// DecisionSink records routed decisions. Implementations must tolerate
// concurrent calls.
type DecisionSink interface {
	Record(ctx context.Context, decision Decision) error
}

// Noop discards every decision.
type Noop struct{}

// Record implements DecisionSink.
func (Noop) Record(context.Context, Decision) error { return nil }

// Async wraps a sink with a buffered worker so Record never blocks the
// request path. Decisions are dropped, with a warning logged, when the buffer
// is full.
type Async struct {
	next   DecisionSink
	buf    chan Decision
	done   chan struct{}
	logger *slog.Logger
}

// NewAsync starts the async worker. Close releases it.
func NewAsync(next DecisionSink, bufferSize int, logger *slog.Logger) *Async {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &Async{
		next:   next,
		buf:    make(chan Decision, bufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}

	go func() {
		defer close(a.done)
		for decision := range a.buf {
			if err := a.next.Record(context.Background(), decision); err != nil {
				a.logger.Warn("decision sink write failed",
					"request_id", decision.RequestID,
					"error", err,
				)
			}
		}
	}()

	return a
}

// Record implements DecisionSink. It never blocks; decisions are dropped
// when the buffer is full.
func (a *Async) Record(_ context.Context, decision Decision) error {
	select {
	case a.buf <- decision:
	default:
		a.logger.Warn("decision sink buffer full, dropping decision",
			"request_id", decision.RequestID)
	}
	return nil
}

// Close drains buffered decisions and stops the worker.
func (a *Async) Close() {
	close(a.buf)
	<-a.done
}
