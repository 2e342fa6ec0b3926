// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

// Package pusher implements the result-publication collaborator the
// estimation engine pushes PowerReport/FormulaReport values to. It is
// deliberately narrow: formula.Engine only needs PushPower/PushFormula
// (formula.Sink), so any Pusher implementation satisfies that
// interface structurally with no import back into internal/formula.
package pusher

import (
	"log/slog"

	"github.com/powerapi-ng/smartwatts-formula/internal/report"
)

// Pusher is the full downstream collaborator cmd/smartwatts wires
// engines to: the two push methods formula.Sink requires, plus a
// lifecycle Close for whatever the implementation holds open.
type Pusher interface {
	PushPower(report.PowerReport)
	PushFormula(report.FormulaReport)
	Close() error
}

// LogPusher republishes every report as a structured log line. It does
// not forward reports to any other Pusher.
type LogPusher struct {
	logger *slog.Logger
}

// NewLogPusher returns a Pusher that logs each report at debug level.
func NewLogPusher(logger *slog.Logger) *LogPusher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPusher{logger: logger.With("component", "pusher")}
}

func (p *LogPusher) PushPower(r report.PowerReport) {
	p.logger.Debug("power report",
		"timestamp", r.Timestamp, "sensor", r.Sensor, "target", r.Target,
		"scope", r.Scope, "socket", r.Socket, "power", r.Power, "ratio", r.Ratio)
}

func (p *LogPusher) PushFormula(r report.FormulaReport) {
	p.logger.Debug("formula report",
		"timestamp", r.Timestamp, "sensor", r.Sensor, "scope", r.Scope, "socket", r.Socket,
		"layer_frequency", r.LayerFrequency, "samples", r.Samples, "id", r.ID, "error", r.Error)
}

func (p *LogPusher) Close() error { return nil }
