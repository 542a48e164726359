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
	"fmt"
	"strings"
	"unicode"
)

// externalNames maps internal registry names to the stable names exposed
// over MCP. The table is configuration, not policy: tools missing here get a
// derived snake_case name.
var externalNames = map[string]string{
	"CompanyQualityTool":  "evaluate_company_quality",
	"ContactTierTool":     "evaluate_contact_tier",
	"TimingScoreTool":     "evaluate_timing_score",
	"BankingProductsTool": "match_banking_products",
}

// nameTable is a per-server bijection between internal and external names.
type nameTable struct {
	toExternal map[string]string
	toInternal map[string]string
}

// buildNameTable assigns every internal name a unique external name, using
// the static table first and a derived name otherwise.
func buildNameTable(internalNames []string) (*nameTable, error) {
	t := &nameTable{
		toExternal: make(map[string]string, len(internalNames)),
		toInternal: make(map[string]string, len(internalNames)),
	}

	for _, internal := range internalNames {
		external, ok := externalNames[internal]
		if !ok {
			external = deriveExternalName(internal)
		}
		if prev, taken := t.toInternal[external]; taken {
			return nil, fmt.Errorf("external name %q assigned to both %s and %s", external, prev, internal)
		}
		t.toExternal[internal] = external
		t.toInternal[external] = internal
	}

	return t, nil
}

// external returns the external name for an internal one.
func (t *nameTable) external(internal string) (string, bool) {
	name, ok := t.toExternal[internal]
	return name, ok
}

// internal returns the internal name for an external one.
func (t *nameTable) internal(external string) (string, bool) {
	name, ok := t.toInternal[external]
	return name, ok
}

// deriveExternalName converts CamelCase registry names to snake_case and
// strips a trailing "_tool" suffix: "LeadEchoTool" -> "lead_echo".
func deriveExternalName(internal string) string {
	var b strings.Builder
	for i, r := range internal {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSuffix(b.String(), "_tool")
}
