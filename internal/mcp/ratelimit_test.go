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
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	rl := NewRateLimiter(3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.AllowCall(), "call %d should be allowed", i+1)
	}
	assert.False(t, rl.AllowCall(), "call over the limit should be rejected")
}

func TestRateLimiter_Refills(t *testing.T) {
	rl := NewRateLimiter(60) // one token per second

	for i := 0; i < 60; i++ {
		rl.AllowCall()
	}
	assert.False(t, rl.AllowCall())

	// Simulate elapsed time by rewinding the refill clock.
	rl.callBucket.mu.Lock()
	rl.callBucket.lastRefill = rl.callBucket.lastRefill.Add(-2 * time.Second)
	rl.callBucket.mu.Unlock()

	assert.True(t, rl.AllowCall())
}
