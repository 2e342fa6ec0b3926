// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

// SignalHandler is the Runner that lets an operator stop a running
// engine pair with Ctrl+C (or any configured signal) instead of
// killing the process, so Shutdown on every engine and the exporter
// still runs.
type SignalHandler struct {
	signals []os.Signal
}

// NewSignalHandler watches for the given OS signals.
func NewSignalHandler(signals ...os.Signal) *SignalHandler {
	return &SignalHandler{
		signals: signals,
	}
}

func (sh *SignalHandler) Name() string {
	return "signal-handler"
}

// Run blocks until one of sh.signals arrives or ctx is cancelled,
// triggering the run group's shutdown of every engine and the
// exporter.
func (sh *SignalHandler) Run(ctx context.Context) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, sh.signals...)
	fmt.Println("smartwatts running, press Ctrl+C to stop")

	select {
	case <-c:
		return nil

	case <-ctx.Done():
		return ctx.Err()
	}
}
