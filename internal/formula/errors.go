// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

package formula

import "errors"

// Sentinel errors of the estimation engine. ErrMissingGroup,
// ErrMissingEvent and ErrNotFitted are recovered at tick granularity by
// the estimation pipeline. ErrInvalidConfig is returned by NewEngine and
// ErrSocketMismatch by Engine.Ingest. ErrTickIncomplete and ErrZeroMPERF
// name the other two tick-dropping conditions; the pipeline logs those
// conditions and does not return these values.
var (
	ErrMissingGroup   = errors.New("formula: missing event group")
	ErrMissingEvent   = errors.New("formula: missing event")
	ErrNotFitted      = errors.New("formula: model not fitted")
	ErrTickIncomplete = errors.New("formula: tick missing global report")
	ErrZeroMPERF      = errors.New("formula: MPERF is zero")
	ErrSocketMismatch = errors.New("formula: report socket does not match engine socket")
	ErrInvalidConfig  = errors.New("formula: invalid configuration")
)
