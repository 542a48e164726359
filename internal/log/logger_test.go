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

package log_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uaesivakumar/agenthub/internal/log"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&log.Config{Level: "info", Format: log.FormatJSON, Output: &buf})

	logger.Info("tool registered", log.ToolKey, "CompanyQualityTool")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "tool registered", entry["msg"])
	assert.Equal(t, "CompanyQualityTool", entry["tool"])
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&log.Config{Level: "warn", Format: log.FormatJSON, Output: &buf})

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&log.Config{Level: "info", Format: log.FormatText, Output: &buf})

	logger.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNew_NilConfigDefaults(t *testing.T) {
	logger := log.New(nil)
	assert.NotNil(t, logger)
}

func TestFromEnv_Debug(t *testing.T) {
	t.Setenv("AGENTHUB_DEBUG", "1")
	cfg := log.FromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.True(t, cfg.AddSource)
}

func TestFromEnv_LevelAndFormat(t *testing.T) {
	t.Setenv("AGENTHUB_DEBUG", "")
	t.Setenv("LOG_LEVEL", "ERROR")
	t.Setenv("LOG_FORMAT", "TEXT")

	cfg := log.FromEnv()
	assert.Equal(t, "error", cfg.Level)
	assert.Equal(t, log.FormatText, cfg.Format)
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&log.Config{Level: "info", Format: log.FormatJSON, Output: &buf})

	log.WithComponent(logger, "registry").Info("x")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "registry", entry["component"])
}
