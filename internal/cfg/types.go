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

// Package cfg is the viper-backed configuration surface for dhtctl and
// any long-running process embedding the dht/lock/heal packages: typed
// config structs, pflag/cobra binding, and a mapstructure decode hook
// for the handful of fields that don't round-trip through plain YAML
// scalars.
package cfg

import (
	"fmt"
	"slices"
	"strings"
)

// LogSeverity mirrors the ladder package logger implements.
type LogSeverity string

const (
	TraceLogSeverity   LogSeverity = "TRACE"
	DebugLogSeverity   LogSeverity = "DEBUG"
	InfoLogSeverity    LogSeverity = "INFO"
	WarningLogSeverity LogSeverity = "WARNING"
	ErrorLogSeverity   LogSeverity = "ERROR"
)

func (l *LogSeverity) UnmarshalText(text []byte) error {
	v := LogSeverity(strings.ToUpper(string(text)))
	valid := []LogSeverity{TraceLogSeverity, DebugLogSeverity, InfoLogSeverity, WarningLogSeverity, ErrorLogSeverity}
	if !slices.Contains(valid, v) {
		return fmt.Errorf("cfg: invalid log severity %q, must be one of %v", text, valid)
	}
	*l = v
	return nil
}

// LogFormat selects the slog handler package logger installs.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

func (f *LogFormat) UnmarshalText(text []byte) error {
	v := LogFormat(strings.ToLower(string(text)))
	if v != LogFormatJSON && v != LogFormatText {
		return fmt.Errorf("cfg: invalid log format %q, must be json or text", text)
	}
	*f = v
	return nil
}

// LookupUnhashedPolicy controls how the dispatcher behaves when a
// layout search reports a hole for the hashed target.
type LookupUnhashedPolicy string

const (
	LookupUnhashedOff  LookupUnhashedPolicy = "off"
	LookupUnhashedAuto LookupUnhashedPolicy = "auto"
	LookupUnhashedOn   LookupUnhashedPolicy = "on"
)

func (p *LookupUnhashedPolicy) UnmarshalText(text []byte) error {
	v := LookupUnhashedPolicy(strings.ToLower(string(text)))
	if v != LookupUnhashedOff && v != LookupUnhashedAuto && v != LookupUnhashedOn {
		return fmt.Errorf("cfg: invalid lookup-unhashed policy %q", text)
	}
	*p = v
	return nil
}
