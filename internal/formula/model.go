// SPDX-FileCopyrightText: 2025 The SmartWatts Authors
// SPDX-License-Identifier: Apache-2.0

package formula

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Elastic-net hyperparameters. Matched to scikit-learn's ElasticNet
// defaults (alpha=1.0, l1_ratio=0.5), since the original formula never
// tunes them away from the library default.
const (
	elasticNetAlpha   = 1.0
	elasticNetL1Ratio = 0.5
	elasticNetMaxIter = 1000
	elasticNetTol     = 1e-4
)

// uninitializedHash is the model's content hash before any fit has
// been accepted.
const uninitializedHash = "uninitialized"

// PowerModel is a positive-coefficient elastic-net linear regression
// mapping a core-event feature vector to RAPL power, at one frequency.
// It owns its fit state, a content hash of that state, and a
// monotonic generation id.
type PowerModel struct {
	frequency int // MHz, the layer this model belongs to

	fitted    bool
	intercept float64
	coef      []float64
	hash      string
	id        uint64
}

// NewPowerModel returns an unfit model for the given frequency label.
func NewPowerModel(frequency int) *PowerModel {
	return &PowerModel{frequency: frequency, hash: uninitializedHash}
}

func (m *PowerModel) Frequency() int { return m.frequency }
func (m *PowerModel) Fitted() bool   { return m.fitted }
func (m *PowerModel) ID() uint64     { return m.id }
func (m *PowerModel) Hash() string   { return m.hash }
func (m *PowerModel) Intercept() float64 {
	return m.intercept
}

// Coef returns a copy of the fit coefficient vector.
func (m *PowerModel) Coef() []float64 {
	return append([]float64(nil), m.coef...)
}

// Predict returns intercept + coef·x. Fails with ErrNotFitted if the
// model has never been successfully fit.
func (m *PowerModel) Predict(x []float64) (float64, error) {
	if !m.fitted {
		return 0, ErrNotFitted
	}
	return m.intercept + dot(m.coef, x), nil
}

// Fit attempts to learn a new model from history. It returns false
// (leaving the model unchanged) when the history is too small, or when
// the resulting intercept falls outside [minIntercept, maxIntercept).
// The intercept is fit-free (forced to 0) until history reaches its
// capacity; once saturated, the intercept is also fit.
func (m *PowerModel) Fit(history *SampleHistory, minIntercept, maxIntercept float64, minSamples int) bool {
	if history.Len() < minSamples {
		return false
	}

	coef, intercept := fitElasticNet(history.X(), history.Y(), history.Full())

	if intercept < minIntercept || intercept >= maxIntercept {
		return false
	}

	m.coef = coef
	m.intercept = intercept
	m.fitted = true
	m.hash = contentHash(coef, intercept)
	m.id++
	return true
}

// Cap scales a target's raw prediction against the global raw
// prediction, attributing it its share of the model's intercept. It
// returns (0, 0) when either value is non-positive once the intercept
// is removed — the target contributed nothing measurable this tick.
func (m *PowerModel) Cap(rawTarget, rawGlobal float64) (power, ratio float64) {
	targetPower := rawTarget - m.intercept
	globalPower := rawGlobal - m.intercept

	if globalPower <= 0 || targetPower <= 0 {
		return 0, 0
	}

	ratio = targetPower / globalPower
	return targetPower + ratio*m.intercept, ratio
}

func dot(coef, x []float64) float64 {
	var sum float64
	for i := range coef {
		if i >= len(x) {
			break
		}
		sum += coef[i] * x[i]
	}
	return sum
}

// contentHash is a stable digest of a model's fit parameters: equal
// (coef, intercept) pairs always hash identically, and any change to
// either changes the hash.
func contentHash(coef []float64, intercept float64) string {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.BigEndian, intercept)
	for _, c := range coef {
		_ = binary.Write(buf, binary.BigEndian, c)
	}
	sum := sha1.Sum(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// fitElasticNet fits a non-negative elastic net via coordinate
// descent. When fitIntercept is false, the intercept is forced to 0.
// Deterministic: same X, y, fitIntercept always produce the same coef
// and intercept.
func fitElasticNet(x [][]float64, y []float64, fitIntercept bool) ([]float64, float64) {
	n := len(y)
	if n == 0 {
		return nil, 0
	}
	d := len(x[0])
	coef := make([]float64, d)
	var intercept float64

	predictSum := func(i int, skip int) float64 {
		pred := intercept
		for k := 0; k < d; k++ {
			if k == skip {
				continue
			}
			pred += coef[k] * x[i][k]
		}
		return pred
	}

	for iter := 0; iter < elasticNetMaxIter; iter++ {
		if fitIntercept {
			var sum float64
			for i := 0; i < n; i++ {
				sum += y[i] - predictSum(i, -1)
			}
			intercept = sum / float64(n)
		}

		var maxDelta float64
		for j := 0; j < d; j++ {
			var rho, z float64
			for i := 0; i < n; i++ {
				xij := x[i][j]
				r := y[i] - predictSum(i, j)
				rho += xij * r
				z += xij * xij
			}

			var newCoef float64
			if z > 0 {
				num := rho/float64(n) - elasticNetAlpha*elasticNetL1Ratio
				if num < 0 {
					num = 0
				}
				denom := z/float64(n) + elasticNetAlpha*(1-elasticNetL1Ratio)
				newCoef = num / denom
			}

			if delta := math.Abs(newCoef - coef[j]); delta > maxDelta {
				maxDelta = delta
			}
			coef[j] = newCoef
		}

		if maxDelta < elasticNetTol {
			break
		}
	}

	return coef, intercept
}
