// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

package formula

// FrequencyLayer composes one power model with its sample and error
// histories, keyed by a quantized CPU package frequency.
type FrequencyLayer struct {
	frequency int
	model     *PowerModel
	samples   *SampleHistory
	errors    *ErrorHistory
}

// NewFrequencyLayer builds an empty layer: an unfit model, empty
// sample history of capacity historyWindowSize, and empty error
// history of capacity errorWindowSize.
func NewFrequencyLayer(frequency, historyWindowSize, errorWindowSize int) *FrequencyLayer {
	return &FrequencyLayer{
		frequency: frequency,
		model:     NewPowerModel(frequency),
		samples:   NewSampleHistory(historyWindowSize),
		errors:    NewErrorHistory(errorWindowSize),
	}
}

func (l *FrequencyLayer) Frequency() int          { return l.frequency }
func (l *FrequencyLayer) Model() *PowerModel      { return l.model }
func (l *FrequencyLayer) Samples() *SampleHistory { return l.samples }
func (l *FrequencyLayer) Errors() *ErrorHistory   { return l.errors }

// StoreSample appends a sample to the layer's sample history.
func (l *FrequencyLayer) StoreSample(power float64, features []float64) {
	l.samples.Store(power, features)
}

// StoreError appends an absolute prediction error to the layer's error
// history.
func (l *FrequencyLayer) StoreError(err float64) {
	l.errors.Store(err)
}

// UpdateModel attempts to refit the layer's model from its sample
// history. On an accepted fit, the error history is cleared, since
// errors measured against the prior generation no longer apply.
func (l *FrequencyLayer) UpdateModel(minIntercept, maxIntercept float64, minSamples int) bool {
	accepted := l.model.Fit(l.samples, minIntercept, maxIntercept, minSamples)
	if accepted {
		l.errors.Clear()
	}
	return accepted
}
