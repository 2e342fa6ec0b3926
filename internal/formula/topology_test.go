// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCPUTopologyFrequencies(t *testing.T) {
	topo := NewCPUTopology(125, 100, 8, 20, 22)

	assert.Equal(t, 800, topo.MinFrequency())
	assert.Equal(t, 2000, topo.BaseFrequency())
	assert.Equal(t, 2200, topo.MaxFrequency())
	assert.Equal(t, []int{800, 900, 1000, 1100, 1200, 1300, 1400, 1500, 1600, 1700, 1800, 1900, 2000, 2100, 2200}, topo.SupportedFrequencies())
}

func TestCPUTopologySingleRatio(t *testing.T) {
	topo := NewCPUTopology(65, 100, 10, 10, 10)
	assert.Equal(t, []int{1000}, topo.SupportedFrequencies())
}
