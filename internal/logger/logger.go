// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

// Package logger builds the single slog.Logger used across the engine,
// the pusher, and the exporter. Every component receives its logger by
// constructor parameter, derived from this one via With(...); nothing
// reaches for a package-global logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

var logLevel slog.Level

// New builds a slog.Logger writing to w in the requested format.
func New(level, format string, w io.Writer) *slog.Logger {
	logLevel = parseLogLevel(level)
	return slog.New(handlerForFormat(format, logLevel, w))
}

// LogLevel returns the level selected by the most recent call to New.
func LogLevel() slog.Level {
	return logLevel
}

// Component returns a child logger tagged with a "component" attribute.
// The engine, layer and pusher constructors do not call it: the engine
// tags its logger with "scope" and "socket", and the pushers add their
// own "component" attribute directly.
func Component(base *slog.Logger, name string) *slog.Logger {
	return base.With("component", name)
}

func handlerForFormat(format string, logLevel slog.Level, w io.Writer) slog.Handler {
	switch format {
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		})

	case "text":
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.SourceKey {
					if src, ok := a.Value.Any().(*slog.Source); ok {
						parts := strings.Split(filepath.ToSlash(src.File), "/")
						if len(parts) > 2 {
							src.File = filepath.Join(parts[len(parts)-3], parts[len(parts)-2], parts[len(parts)-1])
						} else if len(parts) > 0 {
							src.File = filepath.Join(parts...)
						}
					}
				}
				return a
			},
		})

	default:
		panic(fmt.Sprintf("invalid format: %s", format))
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
