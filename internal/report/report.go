// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

package report

import "time"

// Report is the closed set of report kinds the engine emits; the
// unexported method fixes the set at compile time. Downstream routing
// does not switch over this interface: sinks and pushers take each kind
// through its own method (PushPower, PushFormula).
type Report interface {
	reportKind() string
}

// PowerReport is an estimate of the power a single target consumed on
// one socket during one tick, expressed in Watts.
type PowerReport struct {
	Timestamp time.Time
	Sensor    string
	Target    string // "rapl", "global", or a running target's name
	Power     float64
	Ratio     float64
	Scope     string // "cpu" or "dram"
	Socket    string
	Formula   string // rapl event name (Target=="rapl") or model hash
	Predict   float64
	Metadata  map[string]string // pass-through from the source report
}

func (PowerReport) reportKind() string { return "power" }

// FormulaReport is a diagnostic snapshot of the power model that
// produced a tick's PowerReports, letting a consumer correlate
// estimates with the exact model generation that produced them.
type FormulaReport struct {
	Timestamp      time.Time
	Sensor         string
	Target         string // model content hash
	Scope          string
	Socket         string
	LayerFrequency int // MHz
	PkgFrequency   int // MHz
	Samples        int
	ID             uint64
	Error          float64
	Intercept      float64
	Coef           []float64
	Metadata       map[string]string
}

func (FormulaReport) reportKind() string { return "formula" }

var (
	_ Report = PowerReport{}
	_ Report = FormulaReport{}
)
