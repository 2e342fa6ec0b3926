// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

// Package report defines the HWPC input contract and the PowerReport /
// FormulaReport output contract the estimation engine produces.
package report

import "time"

// GlobalTarget is the distinguished target name carrying the RAPL and
// MSR reference groups for a tick.
const GlobalTarget = "all"

// HWPC is one Hardware Performance Counter snapshot for a single
// target at a single timestamp. By convention only the "all" target
// carries the "rapl" and "msr" groups; per-target reports carry only
// "core". Groups is keyed group name -> socket id -> CPU id -> Group.
type HWPC struct {
	Timestamp time.Time
	Sensor    string
	Target    string
	Groups    map[string]map[int]map[int]Group
	Metadata  map[string]string
}

// SocketCPUs returns the per-CPU groups for the given group name and
// socket id, or false if the group or socket is absent.
func (h HWPC) SocketCPUs(group string, socket int) (map[int]Group, bool) {
	bySocket, ok := h.Groups[group]
	if !ok {
		return nil, false
	}
	cpus, ok := bySocket[socket]
	return cpus, ok
}
