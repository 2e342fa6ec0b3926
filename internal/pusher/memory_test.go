// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

package pusher

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powerapi-ng/smartwatts-formula/internal/report"
)

func TestMemoryPusherLatestWinsPerTarget(t *testing.T) {
	p := NewMemoryPusher(nil)

	p.PushPower(report.PowerReport{Scope: "cpu", Socket: "0", Target: "A", Power: 1})
	p.PushPower(report.PowerReport{Scope: "cpu", Socket: "0", Target: "A", Power: 2})
	p.PushPower(report.PowerReport{Scope: "cpu", Socket: "0", Target: "B", Power: 3})

	snap, err := p.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Power, 2)

	byTarget := map[string]float64{}
	for _, r := range snap.Power {
		byTarget[r.Target] = r.Power
	}
	assert.Equal(t, float64(2), byTarget["A"], "later push for the same key replaces the prior one")
	assert.Equal(t, float64(3), byTarget["B"])
}

func TestMemoryPusherFormulaKeyedByFrequency(t *testing.T) {
	p := NewMemoryPusher(nil)

	p.PushFormula(report.FormulaReport{Scope: "cpu", Socket: "0", LayerFrequency: 2000, ID: 1})
	p.PushFormula(report.FormulaReport{Scope: "cpu", Socket: "0", LayerFrequency: 2000, ID: 2})
	p.PushFormula(report.FormulaReport{Scope: "cpu", Socket: "0", LayerFrequency: 2200, ID: 1})

	snap, err := p.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Formula, 2)
}

func TestMemoryPusherSignalsDataChannel(t *testing.T) {
	p := NewMemoryPusher(nil)

	select {
	case <-p.DataChannel():
		t.Fatal("no signal expected before any push")
	default:
	}

	p.PushPower(report.PowerReport{Scope: "cpu", Socket: "0", Target: "A"})

	select {
	case <-p.DataChannel():
	case <-time.After(time.Second):
		t.Fatal("expected a signal after PushPower")
	}
}

func TestMemoryPusherConcurrentSnapshotsAreConsistent(t *testing.T) {
	p := NewMemoryPusher(nil)
	for i := 0; i < 50; i++ {
		p.PushPower(report.PowerReport{Scope: "cpu", Socket: "0", Target: "A", Power: float64(i)})
	}

	var wg sync.WaitGroup
	results := make([]*Snapshot, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := p.Snapshot()
			assert.NoError(t, err)
			results[i] = snap
		}(i)
	}
	wg.Wait()

	for _, snap := range results {
		require.Len(t, snap.Power, 1)
	}
}

func TestMemoryPusherClose(t *testing.T) {
	p := NewMemoryPusher(nil)
	assert.NoError(t, p.Close())
}
