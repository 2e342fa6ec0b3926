// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

package formula

// CPUTopology enumerates the admissible frequency layers for a socket,
// derived from the base clock and an efficiency/base/turbo ratio
// range. It is immutable once constructed.
type CPUTopology struct {
	tdp          float64
	baseClockMHz int
	ratioMin     int
	ratioBase    int
	ratioMax     int
}

// NewCPUTopology builds a CPUTopology. tdp is in Watts, baseClockMHz in
// MHz; ratioMin/ratioBase/ratioMax multiply the base clock to yield
// min/base/max package frequency.
func NewCPUTopology(tdp float64, baseClockMHz, ratioMin, ratioBase, ratioMax int) *CPUTopology {
	return &CPUTopology{
		tdp:          tdp,
		baseClockMHz: baseClockMHz,
		ratioMin:     ratioMin,
		ratioBase:    ratioBase,
		ratioMax:     ratioMax,
	}
}

func (t *CPUTopology) TDP() float64 { return t.tdp }

func (t *CPUTopology) MinFrequency() int { return t.baseClockMHz * t.ratioMin }

func (t *CPUTopology) BaseFrequency() int { return t.baseClockMHz * t.ratioBase }

func (t *CPUTopology) MaxFrequency() int { return t.baseClockMHz * t.ratioMax }

// SupportedFrequencies returns the ascending sequence of frequency
// layer keys, one per integer ratio step from ratioMin to ratioMax.
func (t *CPUTopology) SupportedFrequencies() []int {
	freqs := make([]int, 0, t.ratioMax-t.ratioMin+1)
	for ratio := t.ratioMin; ratio <= t.ratioMax; ratio++ {
		freqs = append(freqs, ratio*t.baseClockMHz)
	}
	return freqs
}
