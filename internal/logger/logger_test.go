// Copyright 2026 The glusterfs-sub024 Authors.
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

package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/gluster/glusterfs-sub024/internal/cfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCapturedOutput(t *testing.T, format cfg.LogFormat, severity cfg.LogSeverity) *bytes.Buffer {
	t.Helper()
	mu.Lock()
	savedLogger, savedFormat, savedLevel := defaultLogger, currentFormat, programLevel
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		defaultLogger, currentFormat, programLevel = savedLogger, savedFormat, savedLevel
		mu.Unlock()
	})

	buf := &bytes.Buffer{}
	lvl := new(slog.LevelVar)
	lvl.Set(levelFromSeverity(severity))

	mu.Lock()
	programLevel = lvl
	defaultLogger = slog.New(newHandler(format, buf, lvl))
	currentFormat = format
	mu.Unlock()
	return buf
}

func TestInfofWritesAboveThreshold(t *testing.T) {
	buf := withCapturedOutput(t, cfg.LogFormatText, cfg.InfoLogSeverity)
	Infof("layout for %s refreshed", "gfid-1")
	assert.Contains(t, buf.String(), "layout for gfid-1 refreshed")
	assert.Contains(t, buf.String(), "severity=INFO")
}

func TestDebugfSuppressedBelowThreshold(t *testing.T) {
	buf := withCapturedOutput(t, cfg.LogFormatText, cfg.InfoLogSeverity)
	Debugf("cache hit for %s", "gfid-1")
	assert.Empty(t, buf.String())
}

func TestSetSeverityRaisesThresholdAtRuntime(t *testing.T) {
	buf := withCapturedOutput(t, cfg.LogFormatText, cfg.InfoLogSeverity)
	Debugf("should be suppressed")
	assert.Empty(t, buf.String())

	SetSeverity(cfg.DebugLogSeverity)
	Debugf("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestJSONFormatRenamesLevelKeyToSeverity(t *testing.T) {
	buf := withCapturedOutput(t, cfg.LogFormatJSON, cfg.InfoLogSeverity)
	Errorf("heal failed on %s", "brick-0")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "ERROR", record["severity"])
	assert.NotContains(t, record, "level")
}

func TestDomainTagsRecordsWithDomainName(t *testing.T) {
	buf := withCapturedOutput(t, cfg.LogFormatText, cfg.InfoLogSeverity)
	d := NewDomain("dht.heal")
	d.Infof("fixed layout for %s", "gfid-1")
	assert.True(t, strings.Contains(buf.String(), "domain=dht.heal"))
}

func TestSeverityFromLevelLadder(t *testing.T) {
	assert.Equal(t, "TRACE", severityFromLevel(LevelTrace))
	assert.Equal(t, "DEBUG", severityFromLevel(LevelDebug))
	assert.Equal(t, "INFO", severityFromLevel(LevelInfo))
	assert.Equal(t, "WARNING", severityFromLevel(LevelWarn))
	assert.Equal(t, "ERROR", severityFromLevel(LevelError))
}

func TestLevelFromSeverityDefaultsToInfo(t *testing.T) {
	assert.Equal(t, LevelInfo, levelFromSeverity(cfg.LogSeverity("")))
	assert.Equal(t, LevelTrace, levelFromSeverity(cfg.TraceLogSeverity))
	assert.Equal(t, LevelError, levelFromSeverity(cfg.ErrorLogSeverity))
}
