// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

package report

import "sort"

// Group is an event group: a mapping from event name to numeric value,
// as read off one CPU (or summed/averaged across a socket's CPUs).
type Group map[string]float64

// FeatureVector projects a Group to a float64 slice ordered by event
// name ascending. This ordering is the feature-space contract between
// history samples, fits, and predictions — callers must never rely on
// map insertion order.
func (g Group) FeatureVector() []float64 {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]float64, len(names))
	for i, name := range names {
		values[i] = g[name]
	}
	return values
}

// Merge returns a new Group holding the sum of matching events from g
// and other; neither input is modified. The formula package's core
// aggregation sums its groups inline and does not call Merge.
func (g Group) Merge(other Group) Group {
	merged := make(Group, len(g)+len(other))
	for name, value := range g {
		merged[name] = value
	}
	for name, value := range other {
		merged[name] += value
	}
	return merged
}
