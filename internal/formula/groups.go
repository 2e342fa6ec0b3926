// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

// Package formula is the estimation engine core: the tick buffer, the
// per-frequency power model cache, the online learning loop, and the
// attribution arithmetic that turns HWPC counters into power reports.
package formula

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/powerapi-ng/smartwatts-formula/internal/report"
)

// timePrefix is the convention marking a counter as a bookkeeping
// timer rather than a predictive feature (e.g. "time_enabled",
// "time_running"); these are dropped from MSR/core aggregation.
const timePrefix = "time_"

// genRAPL reads the reference RAPL energy counter for socket and
// converts it to an average power over the reporting period. The
// counter is read off the lowest-numbered CPU present for the socket
// (RAPL is socket-wide; any CPU in the socket reports the same value).
func genRAPL(global report.HWPC, socket int, raplEvent string, reportsFrequencyMS int) (report.Group, error) {
	cpus, ok := global.SocketCPUs("rapl", socket)
	if !ok {
		return nil, fmt.Errorf("%w: rapl", ErrMissingGroup)
	}

	cpuID, ok := lowestCPU(cpus)
	if !ok {
		return nil, fmt.Errorf("%w: rapl", ErrMissingGroup)
	}

	raw, ok := cpus[cpuID][raplEvent]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingEvent, raplEvent)
	}

	energy := math.Ldexp(raw, -32) * (1000 / float64(reportsFrequencyMS))
	return report.Group{raplEvent: energy}, nil
}

// genMSRAvg returns, for each non-timer MSR event, the arithmetic mean
// of its value across every CPU of socket.
func genMSRAvg(global report.HWPC, socket int) (report.Group, error) {
	cpus, ok := global.SocketCPUs("msr", socket)
	if !ok {
		return nil, fmt.Errorf("%w: msr", ErrMissingGroup)
	}

	sums := report.Group{}
	counts := map[string]int{}
	for _, events := range cpus {
		for name, value := range events {
			if strings.HasPrefix(name, timePrefix) {
				continue
			}
			sums[name] += value
			counts[name]++
		}
	}

	avg := make(report.Group, len(sums))
	for name, sum := range sums {
		avg[name] = sum / float64(counts[name])
	}
	return avg, nil
}

// genCore returns, for each non-timer core (PMU) event, the sum of its
// value across every CPU of socket in r.
func genCore(r report.HWPC, socket int) (report.Group, error) {
	cpus, ok := r.SocketCPUs("core", socket)
	if !ok {
		return nil, fmt.Errorf("%w: core", ErrMissingGroup)
	}

	sums := report.Group{}
	for _, events := range cpus {
		for name, value := range events {
			if strings.HasPrefix(name, timePrefix) {
				continue
			}
			sums[name] += value
		}
	}
	return sums, nil
}

// genAggCore sums genCore across every target in targets, ignoring any
// target missing the "core" group for socket.
func genAggCore(targets map[string]report.HWPC, socket int) report.Group {
	agg := report.Group{}
	for _, r := range targets {
		core, err := genCore(r, socket)
		if err != nil {
			continue
		}
		for name, value := range core {
			agg[name] += value
		}
	}
	return agg
}

func lowestCPU(cpus map[int]report.Group) (int, bool) {
	if len(cpus) == 0 {
		return 0, false
	}
	ids := make([]int, 0, len(cpus))
	for id := range cpus {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids[0], true
}
