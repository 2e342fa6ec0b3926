// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

package formula

import (
	"sort"
	"time"

	"github.com/powerapi-ng/smartwatts-formula/internal/report"
)

// TickBuffer orders partial per-target report sets by timestamp
// ascending, absorbing out-of-order arrival from sensor/transport
// jitter before the oldest tick is popped for processing.
type TickBuffer struct {
	order []time.Time
	ticks map[time.Time]map[string]report.HWPC
}

// NewTickBuffer returns an empty TickBuffer.
func NewTickBuffer() *TickBuffer {
	return &TickBuffer{ticks: map[time.Time]map[string]report.HWPC{}}
}

// Ingest upserts r into the tick bucket for its timestamp, creating the
// bucket (and recording the timestamp in sorted order) on first sight.
func (b *TickBuffer) Ingest(r report.HWPC) {
	bucket, ok := b.ticks[r.Timestamp]
	if !ok {
		bucket = map[string]report.HWPC{}
		b.ticks[r.Timestamp] = bucket
		b.insertSorted(r.Timestamp)
	}
	bucket[r.Target] = r
}

func (b *TickBuffer) insertSorted(ts time.Time) {
	i := sort.Search(len(b.order), func(i int) bool { return !b.order[i].Before(ts) })
	b.order = append(b.order, time.Time{})
	copy(b.order[i+1:], b.order[i:])
	b.order[i] = ts
}

// Len returns the number of distinct buffered timestamps.
func (b *TickBuffer) Len() int { return len(b.order) }

// PopOldest removes and returns the earliest buffered tick. ok is false
// if the buffer is empty.
func (b *TickBuffer) PopOldest() (timestamp time.Time, reports map[string]report.HWPC, ok bool) {
	if len(b.order) == 0 {
		return time.Time{}, nil, false
	}

	timestamp = b.order[0]
	b.order = b.order[1:]
	reports = b.ticks[timestamp]
	delete(b.ticks, timestamp)
	return timestamp, reports, true
}
