// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

package prometheus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter is a service.Service that serves a /metrics endpoint
// backed by a PowerCollector over source. Result publication's HTTP
// surface is an external-collaborator concern the teacher addresses
// with a shared API-registry service; SmartWatts owns its own
// http.Server directly instead, since that shared registry has no
// counterpart requirement here.
type Exporter struct {
	logger *slog.Logger
	addr   string
	source SnapshotProvider

	registry *prometheus.Registry
	server   *http.Server
}

// NewExporter builds an Exporter that will listen on addr once Init
// and Run are called by the service run group.
func NewExporter(source SnapshotProvider, addr string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		logger: logger.With("service", "prometheus"),
		addr:   addr,
		source: source,
	}
}

func (e *Exporter) Name() string { return "prometheus" }

// Init registers the power collector and the standard Go runtime
// collector, and builds the HTTP server; it does not start listening.
func (e *Exporter) Init() error {
	e.registry = prometheus.NewRegistry()
	e.registry.MustRegister(collectors.NewGoCollector())
	e.registry.MustRegister(NewPowerCollector(e.source, e.logger))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		Registry:          e.registry,
		EnableOpenMetrics: true,
	}))

	e.server = &http.Server{
		Addr:              e.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

// Run blocks serving /metrics until ctx is cancelled.
func (e *Exporter) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		e.logger.Info("serving metrics", "addr", e.addr)
		errCh <- e.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return e.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	}
}

func (e *Exporter) Shutdown() error {
	return e.server.Close()
}
