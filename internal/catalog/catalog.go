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

// Package catalog declares the hub's built-in decision tool descriptors.
//
// The descriptors (schemas, SLAs, health inputs) live here; the tool
// implementations are external collaborators supplied at wiring time. Stubs
// returning canned shapes exist so a fresh checkout serves end to end.
package catalog

import (
	"context"

	"github.com/uaesivakumar/agenthub/pkg/registry"
	"github.com/uaesivakumar/agenthub/pkg/schema"
	"github.com/uaesivakumar/agenthub/pkg/tool"
)

// Descriptors returns the built-in decision tool descriptors.
func Descriptors() []tool.Descriptor {
	return []tool.Descriptor{
		{
			Name:           "CompanyQualityTool",
			DisplayName:    "Evaluate employer quality for UAE lead scoring",
			Version:        "1.2.0",
			Classification: tool.ClassificationStrict,
			InputSchema: schema.MustCompile(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"company_name": map[string]any{"type": "string"},
					"size":         map[string]any{"type": "integer", "minimum": 0},
					"uae_signals": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"has_ae_domain": map[string]any{"type": "boolean"},
							"trade_license": map[string]any{"type": "string"},
							"free_zone":     map[string]any{"type": "string"},
						},
					},
				},
				"required": []string{"company_name"},
			}),
			OutputSchema: schema.MustCompile(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"quality_score": map[string]any{"type": "number"},
					"quality_tier":  map[string]any{"type": "string"},
					"confidence":    map[string]any{"type": "number"},
					"key_factors":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"quality_score", "confidence"},
			}),
			SLA:         tool.SLA{P50Ms: 80, P95Ms: 400, ErrorRateThreshold: 0.05},
			HealthInput: map[string]any{"company_name": "health-probe"},
		},
		{
			Name:           "ContactTierTool",
			DisplayName:    "Classify contact seniority tier",
			Version:        "1.1.0",
			Classification: tool.ClassificationStrict,
			InputSchema: schema.MustCompile(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"job_title":  map[string]any{"type": "string"},
					"salary_aed": map[string]any{"type": "number"},
					"emirate":    map[string]any{"type": "string"},
				},
				"required": []string{"job_title"},
			}),
			OutputSchema: schema.MustCompile(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tier":             map[string]any{"type": "string"},
					"tier_score":       map[string]any{"type": "number"},
					"confidence":       map[string]any{"type": "number"},
					"decision_factors": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"tier", "confidence"},
			}),
			SLA:         tool.SLA{P50Ms: 40, P95Ms: 200, ErrorRateThreshold: 0.05},
			HealthInput: map[string]any{"job_title": "health-probe"},
		},
		{
			Name:           "TimingScoreTool",
			DisplayName:    "Score outreach timing window",
			Version:        "1.0.3",
			Classification: tool.ClassificationDelegated,
			InputSchema: schema.MustCompile(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"signals":        map[string]any{"type": "array"},
					"last_contacted": map[string]any{"type": "string"},
				},
			}),
			OutputSchema: schema.MustCompile(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"timing_score":    map[string]any{"type": "number"},
					"timing_window":   map[string]any{"type": "string"},
					"confidence":      map[string]any{"type": "number"},
					"urgency_factors": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"timing_score", "confidence"},
			}),
			SLA:         tool.SLA{P50Ms: 30, P95Ms: 150, ErrorRateThreshold: 0.1},
			HealthInput: map[string]any{},
		},
		{
			Name:           "BankingProductsTool",
			DisplayName:    "Match banking products to lead profile",
			Version:        "2.0.1",
			Classification: tool.ClassificationDelegated,
			InputSchema: schema.MustCompile(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"quality_score": map[string]any{"type": "number"},
					"tier":          map[string]any{"type": "string"},
					"salary_aed":    map[string]any{"type": "number"},
				},
			}),
			OutputSchema: schema.MustCompile(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"matched_products": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"match_score":      map[string]any{"type": "number"},
					"confidence":       map[string]any{"type": "number"},
					"rationale":        map[string]any{"type": "string"},
				},
				"required": []string{"matched_products", "confidence"},
			}),
			SLA:          tool.SLA{P50Ms: 60, P95Ms: 300, ErrorRateThreshold: 0.05},
			HealthInput:  map[string]any{},
			Dependencies: []string{"CompanyQualityTool", "ContactTierTool"},
		},
	}
}

// Stubs returns canned-output instances keyed by tool name, for local
// development and wiring tests.
func Stubs() map[string]tool.Tool {
	return map[string]tool.Tool{
		"CompanyQualityTool": tool.Func(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			return map[string]any{
				"quality_score": 85,
				"quality_tier":  "High-Value",
				"confidence":    0.92,
				"key_factors":   []string{"UAE_VERIFIED", "HIGH_SALARY"},
			}, nil
		}),
		"ContactTierTool": tool.Func(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			return map[string]any{
				"tier":             "T1",
				"tier_score":       92,
				"confidence":       0.95,
				"decision_factors": []string{"SENIOR_TITLE"},
			}, nil
		}),
		"TimingScoreTool": tool.Func(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			return map[string]any{
				"timing_score":    71,
				"timing_window":   "this_week",
				"confidence":      0.88,
				"urgency_factors": []string{"RECENT_SIGNAL"},
			}, nil
		}),
		"BankingProductsTool": tool.Func(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			return map[string]any{
				"matched_products": []string{"premium_account", "salary_transfer_loan"},
				"match_score":      78,
				"confidence":       0.90,
				"rationale":        "high quality score with senior tier",
			}, nil
		}),
	}
}

// Register adds every catalog descriptor to the registry, binding each to
// its instance. Missing instances fall back to the stub.
func Register(reg *registry.Registry, instances map[string]tool.Tool) error {
	stubs := Stubs()
	for _, desc := range Descriptors() {
		instance := instances[desc.Name]
		if instance == nil {
			instance = stubs[desc.Name]
		}
		if err := reg.Register(desc, instance); err != nil {
			return err
		}
	}
	return nil
}
