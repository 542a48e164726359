// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api provides the hub's HTTP adapter.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uaesivakumar/agenthub/internal/httputil"
	"github.com/uaesivakumar/agenthub/internal/metrics"
	"github.com/uaesivakumar/agenthub/pkg/errors"
	"github.com/uaesivakumar/agenthub/pkg/registry"
	"github.com/uaesivakumar/agenthub/pkg/router"
	"github.com/uaesivakumar/agenthub/pkg/workflow"
)

// WorkflowLister is the adapter's view of the workflow store.
type WorkflowLister interface {
	List() []workflow.Info
}

// Router wraps an http.ServeMux with the hub's endpoints.
type Router struct {
	mux       *http.ServeMux
	dispatch  *router.Router
	registry  *registry.Registry
	workflows WorkflowLister
	logger    *slog.Logger
}

// NewRouter builds the HTTP surface around the request router.
func NewRouter(dispatch *router.Router, reg *registry.Registry, workflows WorkflowLister, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Router{
		mux:       http.NewServeMux(),
		dispatch:  dispatch,
		registry:  reg,
		workflows: workflows,
		logger:    logger,
	}

	r.mux.HandleFunc("POST /v1/execute-tool", r.handleExecuteTool)
	r.mux.HandleFunc("POST /v1/execute-workflow", r.handleExecuteWorkflow)
	r.mux.HandleFunc("GET /v1/tools", r.handleListTools)
	r.mux.HandleFunc("GET /v1/workflows", r.handleListWorkflows)
	r.mux.HandleFunc("GET /health", r.handleHealth)
	r.mux.HandleFunc("GET /ready", r.handleReady)
	r.mux.Handle("GET /metrics", promhttp.Handler())

	return r
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// executeToolRequest is the /v1/execute-tool body.
type executeToolRequest struct {
	ToolName string         `json:"tool_name"`
	Input    map[string]any `json:"input"`
}

// executeWorkflowRequest is the /v1/execute-workflow body.
type executeWorkflowRequest struct {
	WorkflowName string         `json:"workflow_name"`
	Input        map[string]any `json:"input"`
}

func (r *Router) handleExecuteTool(w http.ResponseWriter, req *http.Request) {
	requestID := uuid.New().String()
	w.Header().Set("X-Request-ID", requestID)

	var body executeToolRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httputil.WriteErrorMessage(w, requestID, errors.KindInvalidRequest, "request body must be JSON")
		return
	}

	r.route(w, req, requestID, router.Request{
		Type:     router.TypeSingleTool,
		ToolName: body.ToolName,
		Input:    body.Input,
	})
}

func (r *Router) handleExecuteWorkflow(w http.ResponseWriter, req *http.Request) {
	requestID := uuid.New().String()
	w.Header().Set("X-Request-ID", requestID)

	var body executeWorkflowRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httputil.WriteErrorMessage(w, requestID, errors.KindInvalidRequest, "request body must be JSON")
		return
	}

	r.route(w, req, requestID, router.Request{
		Type:         router.TypeWorkflow,
		WorkflowName: body.WorkflowName,
		Input:        body.Input,
	})
}

// route dispatches through the request router and translates the outcome.
func (r *Router) route(w http.ResponseWriter, req *http.Request, requestID string, hubReq router.Request) {
	started := time.Now()
	out, err := r.dispatch.Route(req.Context(), hubReq)
	elapsed := time.Since(started)

	kind := ""
	if err != nil {
		kind = string(errors.KindOf(err))
	}
	metrics.RecordRequest(hubReq.Type, kind, elapsed.Seconds())

	if err != nil {
		r.logger.Warn("request failed",
			"request_id", requestID,
			"type", hubReq.Type,
			"kind", kind,
			"duration_ms", elapsed.Milliseconds(),
		)
		httputil.WriteError(w, requestID, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, out)
}

func (r *Router) handleListTools(w http.ResponseWriter, req *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"tools": r.registry.List(),
	})
}

func (r *Router) handleListWorkflows(w http.ResponseWriter, req *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"workflows": r.workflows.List(),
	})
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleReady(w http.ResponseWriter, req *http.Request) {
	if !r.registry.Ready() {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
