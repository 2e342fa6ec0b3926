// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

package formula

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"k8s.io/utils/clock"

	"github.com/powerapi-ng/smartwatts-formula/internal/report"
)

// Scope selects which RAPL domain an engine instance models.
type Scope string

const (
	ScopeCPU  Scope = "cpu"
	ScopeDRAM Scope = "dram"
)

// Sink is the narrow downstream collaborator an Engine pushes its
// output reports to. Result publication is out of this package's
// scope (spec's external-collaborator boundary); Sink is the minimal
// interface the engine needs from whatever implements it.
type Sink interface {
	PushPower(report.PowerReport)
	PushFormula(report.FormulaReport)
}

// EngineConfig holds the tuning knobs of a single engine instance.
type EngineConfig struct {
	RAPLEvent          string
	ReportsFrequencyMS int
	ErrorThresholdW    float64
	MinSamplesRequired int
	HistoryWindowSize  int
	ErrorWindowSize    int
	ErrorWindowMethod  ErrorWindowMethod
	RealTimeMode       bool
}

// Engine is one logical instance for a (scope, socket) pair: the tick
// buffer, the per-frequency layer map, and the estimation pipeline
// that turns buffered ticks into power and formula reports.
type Engine struct {
	scope    Scope
	socket   int
	sensor   string
	topology *CPUTopology
	cfg      EngineConfig

	layers      map[int]*FrequencyLayer
	sortedFreqs []int

	delayWindow int
	tickBuffer  *TickBuffer

	sink   Sink
	logger *slog.Logger
	clock  clock.PassiveClock
}

// NewEngine validates cfg and topology and builds an engine with one
// empty (unfit) layer per supported frequency. Scope, socket and
// sensor are explicit constructor parameters — the engine never
// recovers its identity from an actor name or other ambient context.
func NewEngine(scope Scope, socketID int, sensor string, topology *CPUTopology, cfg EngineConfig, sink Sink, logger *slog.Logger, clk clock.PassiveClock) (*Engine, error) {
	if err := validateEngineConfig(cfg); err != nil {
		return nil, err
	}

	freqs := topology.SupportedFrequencies()
	if len(freqs) == 0 {
		return nil, fmt.Errorf("%w: empty frequency set", ErrInvalidConfig)
	}

	layers := make(map[int]*FrequencyLayer, len(freqs))
	for _, f := range freqs {
		layers[f] = NewFrequencyLayer(f, cfg.HistoryWindowSize, cfg.ErrorWindowSize)
	}

	delayWindow := 5
	if cfg.RealTimeMode {
		delayWindow = 2
	}

	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.RealClock{}
	}

	return &Engine{
		scope:       scope,
		socket:      socketID,
		sensor:      sensor,
		topology:    topology,
		cfg:         cfg,
		layers:      layers,
		sortedFreqs: freqs,
		delayWindow: delayWindow,
		tickBuffer:  NewTickBuffer(),
		sink:        sink,
		logger:      logger.With("scope", string(scope), "socket", socketID),
		clock:       clk,
	}, nil
}

func validateEngineConfig(cfg EngineConfig) error {
	switch {
	case cfg.RAPLEvent == "":
		return fmt.Errorf("%w: rapl_event must not be empty", ErrInvalidConfig)
	case cfg.ReportsFrequencyMS <= 0:
		return fmt.Errorf("%w: reports_frequency_ms must be positive", ErrInvalidConfig)
	case cfg.ErrorThresholdW <= 0:
		return fmt.Errorf("%w: error_threshold_w must be positive", ErrInvalidConfig)
	case cfg.MinSamplesRequired <= 0:
		return fmt.Errorf("%w: min_samples_required must be positive", ErrInvalidConfig)
	case cfg.HistoryWindowSize <= 0:
		return fmt.Errorf("%w: history_window_size must be positive", ErrInvalidConfig)
	case cfg.ErrorWindowSize <= 0:
		return fmt.Errorf("%w: error_window_size must be positive", ErrInvalidConfig)
	case cfg.ErrorWindowMethod != ErrorWindowMedian && cfg.ErrorWindowMethod != ErrorWindowMean:
		return fmt.Errorf("%w: unknown error_window_method %q", ErrInvalidConfig, cfg.ErrorWindowMethod)
	default:
		return nil
	}
}

// Ingest upserts r into the tick buffer, then drains and processes
// ticks while the buffer holds more than the configured delay window.
func (e *Engine) Ingest(r report.HWPC) error {
	if len(r.Groups) > 0 && !e.reportTargetsSocket(r) {
		e.logger.Warn("dropping report: socket mismatch", "target", r.Target, "timestamp", r.Timestamp)
		return fmt.Errorf("%w: engine socket %d", ErrSocketMismatch, e.socket)
	}

	e.tickBuffer.Ingest(r)

	for e.tickBuffer.Len() > e.delayWindow {
		timestamp, reports, ok := e.tickBuffer.PopOldest()
		if !ok {
			break
		}
		e.processTick(timestamp, reports)
	}
	return nil
}

// Flush processes every buffered tick in timestamp order without
// waiting for the delay window to fill, leaving the buffer empty.
func (e *Engine) Flush() {
	for {
		timestamp, reports, ok := e.tickBuffer.PopOldest()
		if !ok {
			return
		}
		e.processTick(timestamp, reports)
	}
}

// Shutdown drains the tick buffer. The caller is responsible for
// closing any shared downstream sink once every engine using it has
// shut down.
func (e *Engine) Shutdown() error {
	e.Flush()
	return nil
}

func (e *Engine) reportTargetsSocket(r report.HWPC) bool {
	for _, bySocket := range r.Groups {
		if _, ok := bySocket[e.socket]; ok {
			return true
		}
	}
	return false
}

// processTick runs the twelve-step estimation pipeline (spec §4.7) on
// one popped tick. reports is the tick's full report set, still
// including the "all" target on entry.
func (e *Engine) processTick(timestamp time.Time, reports map[string]report.HWPC) {
	global, ok := reports[report.GlobalTarget]
	if !ok {
		e.logger.Warn("dropping tick: missing global report", "timestamp", timestamp)
		return
	}
	delete(reports, report.GlobalTarget)

	sensor := global.Sensor
	if sensor == "" {
		sensor = e.sensor
	}

	raplGroup, err := genRAPL(global, e.socket, e.cfg.RAPLEvent, e.cfg.ReportsFrequencyMS)
	if err != nil {
		e.logger.Warn("dropping tick: rapl unavailable", "timestamp", timestamp, "error", err)
		return
	}
	raplPower := raplGroup[e.cfg.RAPLEvent]

	e.sink.PushPower(e.powerReport(timestamp, sensor, "rapl", raplPower, 1.0, e.cfg.RAPLEvent, raplPower, global.Metadata))

	if len(reports) == 0 {
		return
	}

	avgMSR, err := genMSRAvg(global, e.socket)
	if err != nil {
		e.logger.Warn("dropping tick: msr unavailable", "timestamp", timestamp, "error", err)
		return
	}
	mperf := avgMSR["MPERF"]
	if mperf == 0 {
		e.logger.Warn("dropping tick: MPERF is zero", "timestamp", timestamp)
		return
	}
	pkgFreq := int(math.Floor(float64(e.topology.BaseFrequency()) * avgMSR["APERF"] / mperf))

	layer := e.nearestLayer(pkgFreq)

	globalCore := genAggCore(reports, e.socket)
	xg := globalCore.FeatureVector()

	rawGlobal, err := layer.Model().Predict(xg)
	if err != nil {
		layer.StoreSample(raplPower, xg)
		layer.UpdateModel(0, e.topology.TDP(), e.cfg.MinSamplesRequired)
		return
	}

	e.sink.PushPower(e.powerReport(timestamp, sensor, "global", rawGlobal, 1.0, layer.Model().Hash(), rawGlobal, global.Metadata))

	for _, name := range sortedTargetNames(reports) {
		r := reports[name]
		core, err := genCore(r, e.socket)
		if err != nil {
			e.logger.Warn("skipping target: core unavailable", "target", name, "error", err)
			continue
		}
		xt := core.FeatureVector()
		rawTarget, err := layer.Model().Predict(xt)
		if err != nil {
			continue
		}
		power, ratio := layer.Model().Cap(rawTarget, rawGlobal)
		e.sink.PushPower(e.powerReport(timestamp, sensor, name, power, ratio, layer.Model().Hash(), rawTarget, r.Metadata))
	}

	modelErr := math.Abs(raplPower - rawGlobal)
	layer.StoreSample(raplPower, xg)
	layer.StoreError(modelErr)

	if layer.Errors().Summary(e.cfg.ErrorWindowMethod) > e.cfg.ErrorThresholdW {
		layer.UpdateModel(0, e.topology.TDP(), e.cfg.MinSamplesRequired)
	}

	e.sink.PushFormula(report.FormulaReport{
		Timestamp:      timestamp,
		Sensor:         sensor,
		Target:         layer.Model().Hash(),
		Scope:          string(e.scope),
		Socket:         strconv.Itoa(e.socket),
		LayerFrequency: layer.Frequency(),
		PkgFrequency:   pkgFreq,
		Samples:        layer.Samples().Len(),
		ID:             layer.Model().ID(),
		Error:          modelErr,
		Intercept:      layer.Model().Intercept(),
		Coef:           layer.Model().Coef(),
	})
}

func (e *Engine) powerReport(timestamp time.Time, sensor, target string, power, ratio float64, formula string, predict float64, metadata map[string]string) report.PowerReport {
	return report.PowerReport{
		Timestamp: timestamp,
		Sensor:    sensor,
		Target:    target,
		Power:     power,
		Ratio:     ratio,
		Scope:     string(e.scope),
		Socket:    strconv.Itoa(e.socket),
		Formula:   formula,
		Predict:   predict,
		Metadata:  metadata,
	}
}

// nearestLayer returns the layer with the greatest frequency key <=
// pkgFreq, or the lowest layer when pkgFreq falls below every key.
func (e *Engine) nearestLayer(pkgFreq int) *FrequencyLayer {
	best := e.sortedFreqs[0]
	for _, f := range e.sortedFreqs {
		if f > pkgFreq {
			break
		}
		best = f
	}
	return e.layers[best]
}

func sortedTargetNames(reports map[string]report.HWPC) []string {
	names := make([]string, 0, len(reports))
	for name := range reports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
