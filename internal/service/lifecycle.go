// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/oklog/run"
)

// defaultLogger returns a stderr text logger when main hasn't wired
// one up yet — Init can run before logger.New has seen the config.
func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// Init brings up the engine pair, the Prometheus exporter, and any
// other Initializer in services, in the order given. If one fails,
// every component already initialized is unwound via Shutdowner
// before Init returns the failure — a half-started engine pair never
// reaches Run.
func Init(logger *slog.Logger, services []Service) error {
	logger = defaultLogger(logger)

	var retErr error
	initialized := make([]Service, 0, len(services))

	for _, s := range services {
		srv, ok := s.(Initializer)
		if !ok {
			logger.Debug("skipping initialization", "component", s.Name(),
				"reason", "component does not implement Initializer")
			continue
		}

		logger.Info("initializing component", "component", s.Name())
		if err := srv.Init(); err != nil {
			retErr = fmt.Errorf("initialize %s: %w", s.Name(), err)
			break
		}
		initialized = append(initialized, s)
	}

	if retErr == nil {
		return nil
	}

	logger.Info("rolling back initialized components")
	for _, s := range initialized {
		srv, ok := s.(Shutdowner)
		if !ok {
			logger.Debug("skipping rollback", "component", s.Name(),
				"reason", "component does not implement Shutdowner")
			continue
		}
		if err := srv.Shutdown(); err != nil {
			logger.Error("rollback failed", "component", s.Name(), "error", err)
		} else {
			logger.Debug("rolled back", "component", s.Name())
		}
	}
	return retErr
}

// Run starts every engine, the exporter, and the signal handler that
// implement Runner, and blocks until one of them returns — normally
// the signal handler, on SIGINT/SIGTERM. When any component returns
// (with or without an error) the shared context is cancelled and every
// running component, the one that returned included, is shut down
// where it implements Shutdowner.
func Run(outer context.Context, logger *slog.Logger, services []Service) error {
	logger = defaultLogger(logger)

	logger.Info("starting run group", "components", len(services))
	ctx, cancel := context.WithCancel(outer)
	defer cancel()

	var g run.Group
	for _, s := range services {
		runner, ok := s.(Runner)
		if !ok {
			logger.Warn("not runnable, skipping", "component", s.Name())
			continue
		}

		// Local copies for the closures below.
		svc, r := s, runner
		g.Add(
			func() error {
				logger.Info("running component", "component", svc.Name())
				return r.Run(ctx)
			},
			func(err error) {
				cancel()
				if err != nil {
					logger.Warn("component stopped", "component", svc.Name(), "reason", err)
				}

				shutdowner, ok := svc.(Shutdowner)
				if !ok {
					logger.Debug("skipping shutdown", "component", svc.Name(),
						"reason", "component does not implement Shutdowner")
					return
				}

				logger.Info("shutting down component", "component", svc.Name())
				if shutdownErr := shutdowner.Shutdown(); shutdownErr != nil {
					logger.Warn("shutdown failed", "component", svc.Name(), "error", shutdownErr)
				}
			},
		)
	}

	return g.Run()
}
