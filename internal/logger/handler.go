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
	"io"
	"log/slog"

	"github.com/gluster/glusterfs-sub024/internal/cfg"
)

// replaceAttr renames slog's built-in "level" key to "severity" and
// prints our extended five-level ladder's label instead of slog's
// default four-level one.
func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	if a.Key == slog.LevelKey {
		level, _ := a.Value.Any().(slog.Level)
		return slog.String("severity", severityFromLevel(level))
	}
	return a
}

// newHandler builds the configured-format slog.Handler, writing to w and
// gated by programLevel so SetLevel can adjust verbosity at runtime
// without rebuilding the logger.
func newHandler(format cfg.LogFormat, w io.Writer, programLevel *slog.LevelVar) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       programLevel,
		ReplaceAttr: replaceAttr,
	}
	if format == cfg.LogFormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
