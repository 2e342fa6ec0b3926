// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

// Package prometheus republishes the estimation engine's buffered
// reports as a prometheus.Collector.
package prometheus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/powerapi-ng/smartwatts-formula/internal/pusher"
)

const namespace = "smartwatts"

// SnapshotProvider is the narrow collaborator PowerCollector needs: a
// way to wait for fresh data and fetch a consistent point-in-time
// copy of it. *pusher.MemoryPusher satisfies this structurally.
type SnapshotProvider interface {
	DataChannel() <-chan struct{}
	Snapshot() (*pusher.Snapshot, error)
}

// PowerCollector fetches one MemoryPusher snapshot per Collect() call
// so every metric family in a single scrape reflects the same instant.
type PowerCollector struct {
	source SnapshotProvider
	logger *slog.Logger

	mutex sync.RWMutex
	ready bool

	powerWattsDesc     *prometheus.Desc
	powerRatioDesc     *prometheus.Desc
	formulaSamplesDesc *prometheus.Desc
	formulaModelIDDesc *prometheus.Desc
	formulaErrorDesc   *prometheus.Desc
}

// NewPowerCollector builds a PowerCollector over source. Collect stays
// a no-op until source's data channel has fired at least once.
func NewPowerCollector(source SnapshotProvider, logger *slog.Logger) *PowerCollector {
	if logger == nil {
		logger = slog.Default()
	}

	powerLabels := []string{"scope", "socket", "target", "sensor"}
	formulaLabels := []string{"scope", "socket", "sensor"}

	c := &PowerCollector{
		source: source,
		logger: logger.With("collector", "power"),

		powerWattsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "power", "watts"),
			"Estimated power attributed to a target.",
			powerLabels, nil),
		powerRatioDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "power", "ratio"),
			"Share of global power attributed to a target (0.0-1.0).",
			powerLabels, nil),
		formulaSamplesDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "formula", "samples"),
			"Number of samples currently held in the active frequency layer's history.",
			formulaLabels, nil),
		formulaModelIDDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "formula", "model_id"),
			"Generation id of the active frequency layer's power model.",
			formulaLabels, nil),
		formulaErrorDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "formula", "error_watts"),
			"Absolute error between the RAPL reference and the model's global power prediction.",
			formulaLabels, nil),
	}

	go c.waitForData()

	return c
}

func (c *PowerCollector) waitForData() {
	<-c.source.DataChannel()
	c.mutex.Lock()
	c.ready = true
	c.mutex.Unlock()
}

func (c *PowerCollector) isReady() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.ready
}

// Describe implements prometheus.Collector.
func (c *PowerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.powerWattsDesc
	ch <- c.powerRatioDesc
	ch <- c.formulaSamplesDesc
	ch <- c.formulaModelIDDesc
	ch <- c.formulaErrorDesc
}

// Collect implements prometheus.Collector.
func (c *PowerCollector) Collect(ch chan<- prometheus.Metric) {
	if !c.isReady() {
		c.logger.Debug("collect called before first push")
		return
	}

	started := time.Now()
	snapshot, err := c.source.Snapshot()
	if err != nil {
		c.logger.Error("failed to snapshot reports", "error", err)
		return
	}
	defer func() { c.logger.Debug("collected power data", "duration", time.Since(started)) }()

	for _, r := range snapshot.Power {
		ch <- prometheus.MustNewConstMetric(c.powerWattsDesc, prometheus.GaugeValue, r.Power,
			r.Scope, r.Socket, r.Target, r.Sensor)
		ch <- prometheus.MustNewConstMetric(c.powerRatioDesc, prometheus.GaugeValue, r.Ratio,
			r.Scope, r.Socket, r.Target, r.Sensor)
	}

	for _, r := range snapshot.Formula {
		ch <- prometheus.MustNewConstMetric(c.formulaSamplesDesc, prometheus.GaugeValue, float64(r.Samples),
			r.Scope, r.Socket, r.Sensor)
		ch <- prometheus.MustNewConstMetric(c.formulaModelIDDesc, prometheus.GaugeValue, float64(r.ID),
			r.Scope, r.Socket, r.Sensor)
		ch <- prometheus.MustNewConstMetric(c.formulaErrorDesc, prometheus.GaugeValue, r.Error,
			r.Scope, r.Socket, r.Sensor)
	}
}

var _ prometheus.Collector = (*PowerCollector)(nil)
