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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gluster/glusterfs-sub024/internal/cfg"
)

var (
	mu           sync.Mutex
	programLevel = new(slog.LevelVar)
	defaultLogger = slog.New(newHandler(cfg.LogFormatText, os.Stderr, programLevel))
	currentFormat = cfg.LogFormatText
	rotator       *lumberjack.Logger
)

// Init (re)configures the package-level logger from c. It is safe to
// call more than once — e.g. once with compiled-in defaults at process
// start, then again after cfg.Load parses the operator's config file.
func Init(c cfg.LoggingConfig) error {
	mu.Lock()
	defer mu.Unlock()

	programLevel.Set(levelFromSeverity(c.Severity))
	currentFormat = c.Format
	if currentFormat == "" {
		currentFormat = cfg.LogFormatText
	}

	var writer io.Writer = os.Stderr
	if c.FilePath != "" {
		rotator = &lumberjack.Logger{
			Filename:   c.FilePath,
			MaxSize:    c.MaxSizeMb,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAgeDays,
			Compress:   c.Compress,
		}
		writer = rotator
	}

	defaultLogger = slog.New(newHandler(currentFormat, writer, programLevel))
	return nil
}

// SetSeverity adjusts the running logger's minimum severity without
// touching output format or destination.
func SetSeverity(s cfg.LogSeverity) {
	programLevel.Set(levelFromSeverity(s))
}

func log(ctx context.Context, level slog.Level, format string, args ...any) {
	mu.Lock()
	l := defaultLogger
	mu.Unlock()
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, fmt.Sprintf(format, args...))
}

func Tracef(format string, args ...any) { log(context.Background(), LevelTrace, format, args...) }
func Debugf(format string, args ...any) { log(context.Background(), LevelDebug, format, args...) }
func Infof(format string, args ...any)  { log(context.Background(), LevelInfo, format, args...) }
func Warnf(format string, args ...any)  { log(context.Background(), LevelWarn, format, args...) }
func Errorf(format string, args ...any) { log(context.Background(), LevelError, format, args...) }

// Domain is a logger tagged with a fixed "domain" attribute, so each
// subsystem gets its own tagged logger.
type Domain struct {
	name string
}

// NewDomain returns a Domain tagging every record with domain=name
// (e.g. "dht.layout", "dht.heal", "dht.lock", "dht.migrate").
func NewDomain(name string) *Domain { return &Domain{name: name} }

func (d *Domain) log(level slog.Level, format string, args ...any) {
	mu.Lock()
	l := defaultLogger
	mu.Unlock()
	if !l.Enabled(context.Background(), level) {
		return
	}
	l.With("domain", d.name).Log(context.Background(), level, fmt.Sprintf(format, args...))
}

func (d *Domain) Tracef(format string, args ...any) { d.log(LevelTrace, format, args...) }
func (d *Domain) Debugf(format string, args ...any) { d.log(LevelDebug, format, args...) }
func (d *Domain) Infof(format string, args ...any)  { d.log(LevelInfo, format, args...) }
func (d *Domain) Warnf(format string, args ...any)  { d.log(LevelWarn, format, args...) }
func (d *Domain) Errorf(format string, args ...any) { d.log(LevelError, format, args...) }
