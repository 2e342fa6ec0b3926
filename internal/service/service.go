// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

// Package service wires the engine(s), the exporter, and the signal
// handler into a single run group. It carries no formula-specific
// knowledge; it is the actor/supervisor plumbing spec.md §1 treats as
// an external collaborator.
package service

import "context"

// Service is the minimal identity every long-running component exposes.
type Service interface {
	// Name returns a short, stable identifier used in logs.
	Name() string
}

// Initializer is implemented by services that need one-time setup
// before the run group starts.
type Initializer interface {
	Service
	Init() error
}

// Runner is implemented by services that block until their context is
// cancelled or they encounter a fatal error.
type Runner interface {
	Service
	Run(ctx context.Context) error
}

// Shutdowner is implemented by services that need to release resources
// after the run group stops.
type Shutdowner interface {
	Service
	Shutdown() error
}
