// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/powerapi-ng/smartwatts-formula/internal/formula"
	"github.com/powerapi-ng/smartwatts-formula/internal/report"
)

// engineService adapts a *formula.Engine to service.Runner/Shutdowner.
// Feeding it HWPC reports is an external-collaborator concern (spec's
// ingestion transport is out of scope); Reports() is the seam an
// external listener/adapter pushes onto.
type engineService struct {
	name    string
	engine  *formula.Engine
	reports chan report.HWPC
	logger  *slog.Logger
}

func newEngineService(name string, engine *formula.Engine, logger *slog.Logger) *engineService {
	return &engineService{
		name:    name,
		engine:  engine,
		reports: make(chan report.HWPC, 64),
		logger:  logger.With("engine", name),
	}
}

func (s *engineService) Name() string { return s.name }

// Reports returns the channel an external HWPC source pushes onto.
func (s *engineService) Reports() chan<- report.HWPC { return s.reports }

func (s *engineService) Run(ctx context.Context) error {
	for {
		select {
		case r := <-s.reports:
			if err := s.engine.Ingest(r); err != nil {
				s.logger.Warn("dropped report", "error", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *engineService) Shutdown() error {
	if err := s.engine.Shutdown(); err != nil {
		return fmt.Errorf("engine %s shutdown: %w", s.name, err)
	}
	return nil
}
