// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

package pusher

import (
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/powerapi-ng/smartwatts-formula/internal/report"
)

// powerKey identifies the latest power report for one (scope, socket,
// target) triple; a later report for the same key replaces the prior
// one rather than accumulating without bound.
type powerKey struct {
	scope, socket, target string
}

// formulaKey identifies the latest formula report for one (scope,
// socket, layer frequency) triple.
type formulaKey struct {
	scope, socket string
	frequency     int
}

// Snapshot is an immutable, point-in-time copy of everything a
// MemoryPusher currently holds.
type Snapshot struct {
	Power   []report.PowerReport
	Formula []report.FormulaReport
}

// MemoryPusher buffers the latest report per key in memory, for
// exporters (e.g. the Prometheus collector) that poll on their own
// schedule rather than receiving a push per tick.
type MemoryPusher struct {
	logger *slog.Logger

	mu      sync.RWMutex
	power   map[powerKey]report.PowerReport
	formula map[formulaKey]report.FormulaReport

	dataCh        chan struct{}
	snapshotGroup singleflight.Group
}

// NewMemoryPusher returns an empty MemoryPusher.
func NewMemoryPusher(logger *slog.Logger) *MemoryPusher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryPusher{
		logger:  logger.With("component", "memory-pusher"),
		power:   make(map[powerKey]report.PowerReport),
		formula: make(map[formulaKey]report.FormulaReport),
		dataCh:  make(chan struct{}, 1),
	}
}

func (p *MemoryPusher) PushPower(r report.PowerReport) {
	key := powerKey{scope: r.Scope, socket: r.Socket, target: r.Target}
	p.mu.Lock()
	p.power[key] = r
	p.mu.Unlock()
	p.signalNewData()
}

func (p *MemoryPusher) PushFormula(r report.FormulaReport) {
	key := formulaKey{scope: r.Scope, socket: r.Socket, frequency: r.LayerFrequency}
	p.mu.Lock()
	p.formula[key] = r
	p.mu.Unlock()
	p.signalNewData()
}

func (p *MemoryPusher) signalNewData() {
	select {
	case p.dataCh <- struct{}{}:
	default:
	}
}

// DataChannel signals (non-blocking, best-effort) whenever a push has
// landed since the last signal was drained.
func (p *MemoryPusher) DataChannel() <-chan struct{} {
	return p.dataCh
}

// Snapshot returns a consistent copy of every buffered report.
// Concurrent callers (e.g. overlapping Prometheus scrapes) collapse
// into a single clone via singleflight rather than each taking the
// read lock and copying independently.
func (p *MemoryPusher) Snapshot() (*Snapshot, error) {
	v, err, _ := p.snapshotGroup.Do("snapshot", func() (any, error) {
		p.mu.RLock()
		defer p.mu.RUnlock()

		snap := &Snapshot{
			Power:   make([]report.PowerReport, 0, len(p.power)),
			Formula: make([]report.FormulaReport, 0, len(p.formula)),
		}
		for _, r := range p.power {
			snap.Power = append(snap.Power, r)
		}
		for _, r := range p.formula {
			snap.Formula = append(snap.Formula, r)
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (p *MemoryPusher) Close() error {
	p.logger.Debug("closing memory pusher")
	return nil
}
