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

package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNameTable_StaticEntries(t *testing.T) {
	table, err := buildNameTable([]string{"CompanyQualityTool", "TimingScoreTool"})
	require.NoError(t, err)

	external, ok := table.external("CompanyQualityTool")
	require.True(t, ok)
	assert.Equal(t, "evaluate_company_quality", external)

	internal, ok := table.internal("evaluate_timing_score")
	require.True(t, ok)
	assert.Equal(t, "TimingScoreTool", internal)
}

func TestBuildNameTable_Bijection(t *testing.T) {
	names := []string{"CompanyQualityTool", "ContactTierTool", "BankingProductsTool", "LeadEchoTool"}
	table, err := buildNameTable(names)
	require.NoError(t, err)

	// Encoding then decoding yields the original name.
	for _, internal := range names {
		external, ok := table.external(internal)
		require.True(t, ok, internal)

		back, ok := table.internal(external)
		require.True(t, ok, external)
		assert.Equal(t, internal, back)
	}
}

func TestBuildNameTable_Collision(t *testing.T) {
	// Both derive to "lead_echo".
	_, err := buildNameTable([]string{"LeadEchoTool", "LeadEcho"})
	assert.Error(t, err)
}

func TestDeriveExternalName(t *testing.T) {
	tests := []struct {
		internal string
		want     string
	}{
		{"LeadEchoTool", "lead_echo"},
		{"CompanyQualityTool", "company_quality"},
		{"Simple", "simple"},
		{"already_snake", "already_snake"},
	}

	for _, tt := range tests {
		t.Run(tt.internal, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveExternalName(tt.internal))
		})
	}
}
