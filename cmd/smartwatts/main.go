/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/alecthomas/kingpin/v2"

	"github.com/powerapi-ng/smartwatts-formula/internal/config"
	"github.com/powerapi-ng/smartwatts-formula/internal/exporter/prometheus"
	"github.com/powerapi-ng/smartwatts-formula/internal/formula"
	"github.com/powerapi-ng/smartwatts-formula/internal/logger"
	"github.com/powerapi-ng/smartwatts-formula/internal/pusher"
	"github.com/powerapi-ng/smartwatts-formula/internal/service"
)

const sensorName = "smartwatts"

func main() {
	app := kingpin.New("smartwatts", "Online self-calibrating software power meter.")
	configPath := app.Flag("config", "Path to the YAML configuration file.").String()
	metricsAddr := app.Flag("web.listen-address", "Address to serve /metrics on.").Default(":9300").String()
	socketCount := app.Flag("sockets", "Number of CPU sockets to build an engine pair for.").Default("1").Int()
	updateConfig := config.RegisterFlags(app)

	kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := updateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	log.Info("starting smartwatts", "sockets", *socketCount, "metrics_addr", *metricsAddr)

	topology := formula.NewCPUTopology(
		cfg.Topology.TDP, cfg.Topology.BaseClockMHz,
		cfg.Topology.RatioMin, cfg.Topology.RatioBase, cfg.Topology.RatioMax,
	)

	mp := pusher.NewMemoryPusher(log)

	services := []service.Service{
		service.NewSignalHandler(syscall.SIGINT, syscall.SIGTERM),
		prometheus.NewExporter(mp, *metricsAddr, log),
	}

	for socket := 0; socket < *socketCount; socket++ {
		cpuSvc, err := buildEngineService(formula.ScopeCPU, socket, topology, cfg.CPU, mp, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to build cpu engine for socket %d: %v\n", socket, err)
			os.Exit(1)
		}
		dramSvc, err := buildEngineService(formula.ScopeDRAM, socket, topology, cfg.DRAM, mp, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to build dram engine for socket %d: %v\n", socket, err)
			os.Exit(1)
		}
		services = append(services, cpuSvc, dramSvc)
	}

	if err := service.Init(log, services); err != nil {
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}

	if err := service.Run(context.Background(), log, services); err != nil {
		log.Error("smartwatts terminated with an error", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.FromFile(path)
}

func buildEngineService(scope formula.Scope, socket int, topology *formula.CPUTopology, s config.Scope, sink formula.Sink, log *slog.Logger) (*engineService, error) {
	engineCfg := formula.EngineConfig{
		RAPLEvent:          s.RAPLEvent,
		ReportsFrequencyMS: s.ReportsFrequencyMS,
		ErrorThresholdW:    s.ErrorThresholdW,
		MinSamplesRequired: s.MinSamplesRequired,
		HistoryWindowSize:  s.HistoryWindowSize,
		ErrorWindowSize:    s.ErrorWindowSize,
		ErrorWindowMethod:  formula.ErrorWindowMethod(s.ErrorWindowMethod),
		RealTimeMode:       s.RealTimeMode,
	}

	engine, err := formula.NewEngine(scope, socket, sensorName, topology, engineCfg, sink, log, nil)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("engine-%s-%d", scope, socket)
	return newEngineService(name, engine, log), nil
}
