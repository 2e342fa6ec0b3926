// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

package service

import "context"

// The stubs below stand in for the real lifecycle shapes wired in
// cmd/smartwatts: an engine (Runner + Shutdowner, no Init), the
// Prometheus exporter (Initializer + Runner + Shutdowner), and
// components exercising just one of Init/Run/Shutdown in isolation.

// stubComponent implements Service only — e.g. a component with no
// lifecycle hooks at all, exercising the "skip" paths in Init/Run.
type stubComponent struct {
	name string
}

func (m *stubComponent) Name() string {
	return m.name
}

// stubInitOnly implements Initializer only.
type stubInitOnly struct {
	stubComponent
	initFn    func() error
	initCount int
}

func (m *stubInitOnly) Init() error {
	m.initCount++
	if m.initFn != nil {
		return m.initFn()
	}
	return nil
}

// stubExporter implements Initializer and Shutdowner, mirroring the
// Prometheus exporter's lifecycle shape (it has setup and teardown
// but, in these tests, no blocking Run).
type stubExporter struct {
	stubComponent
	initFn        func() error
	shutdownFn    func() error
	initCount     int
	shutdownCount int
}

func (m *stubExporter) Init() error {
	m.initCount++
	if m.initFn != nil {
		return m.initFn()
	}
	return nil
}

func (m *stubExporter) Shutdown() error {
	m.shutdownCount++
	if m.shutdownFn != nil {
		return m.shutdownFn()
	}
	return nil
}

// stubRunOnly implements Runner only, mirroring the signal handler's
// shape (blocks, no Init, no Shutdown).
type stubRunOnly struct {
	stubComponent
	runFn    func(ctx context.Context) error
	runCount int
}

func (m *stubRunOnly) Run(ctx context.Context) error {
	m.runCount++
	if m.runFn != nil {
		return m.runFn(ctx)
	}
	return nil
}

// stubEngine implements Runner and Shutdowner, mirroring
// engineService's shape (blocks ingesting reports, shuts down the
// underlying *formula.Engine on stop).
type stubEngine struct {
	stubComponent
	runFn         func(ctx context.Context) error
	shutdownFn    func() error
	runCount      int
	shutdownCount int
}

func (m *stubEngine) Run(ctx context.Context) error {
	m.runCount++
	if m.runFn != nil {
		return m.runFn(ctx)
	}
	return nil
}

func (m *stubEngine) Shutdown() error {
	m.shutdownCount++
	if m.shutdownFn != nil {
		return m.shutdownFn()
	}
	return nil
}
