// Package motor simulates a motor's vibration signature and classifies its
// condition with a fixed-threshold proxy classifier. The simulator owns the
// ground-truth condition; the classifier only ever sees the noisy signal,
// so prediction error is observable.
package motor

import (
	"math"
	"math/rand"
)

// Condition is a motor condition label. SUSPECT is a reported meta-state
// for low classifier confidence, never a ground truth.
type Condition string

const (
	ConditionOK          Condition = "OK"
	ConditionImbalance   Condition = "IMBALANCE"
	ConditionBearingWear Condition = "BEARING_WEAR"
	ConditionStall       Condition = "STALL"
	ConditionSuspect     Condition = "SUSPECT"
)

const (
	baseHz = 28.0

	// truthHoldS is how long a ground-truth condition persists before a
	// weighted redraw.
	truthHoldS = 12.0

	// suspectThreshold demotes low-confidence non-stall predictions.
	suspectThreshold = 0.55
)

// truthDraw weights OK three times as likely as any single fault truth.
var truthDraw = []Condition{
	ConditionOK, ConditionImbalance, ConditionBearingWear,
	ConditionOK, ConditionOK, ConditionStall,
}

// Reading is the per-tick classifier output. Advisory telemetry only;
// nothing is retained between ticks.
type Reading struct {
	Truth      Condition
	Pred       Condition
	State      Condition
	Confidence float64
	Anomaly    float64
}

// Simulator holds the asset's truth condition and signal phase. It is
// exclusively owned by the tick loop and is not safe for concurrent use.
type Simulator struct {
	rng        *rand.Rand
	phase      float64
	truth      Condition
	truthTimer float64
}

// NewSimulator creates a simulator with a seeded random source so runs are
// reproducible for golden-output tests.
func NewSimulator(seed int64) *Simulator {
	return &Simulator{
		rng:   rand.New(rand.NewSource(seed)),
		truth: ConditionOK,
	}
}

// Truth exposes the current ground-truth condition.
func (s *Simulator) Truth() Condition { return s.truth }

// Step advances the simulation by dt seconds under the given fault level
// and returns the classified reading. It never fails; faultLevel outside
// [0,1] behaves like its clamped value in the formulas below.
func (s *Simulator) Step(dt, faultLevel float64) Reading {
	// Occasionally change the underlying truth state, slowly.
	s.truthTimer += dt
	if s.truthTimer > truthHoldS {
		s.truthTimer = 0
		s.truth = truthDraw[s.rng.Intn(len(truthDraw))]
	}

	var amp float64
	switch s.truth {
	case ConditionImbalance:
		amp = 1.4
	case ConditionBearingWear:
		amp = 1.2
	case ConditionStall:
		amp = 0.2
	default:
		amp = 1.0
	}

	// Frequency wobble for imbalance and wear.
	var wobble float64
	switch s.truth {
	case ConditionImbalance:
		wobble = 0.08 * math.Sin(2*math.Pi*1.0*s.phase)
	case ConditionBearingWear:
		wobble = 0.04 * math.Sin(2*math.Pi*2.0*s.phase)
	}

	// One instantaneous vibration sample.
	s.phase += dt
	omega := 2 * math.Pi * baseHz * (1.0 + wobble)
	vib := amp * math.Sin(omega*s.phase)

	// Nominal sensor noise, then fault-dependent noise and spikes.
	vib += s.rng.NormFloat64() * 0.08
	vib += s.rng.NormFloat64() * 0.30 * faultLevel
	if s.rng.Float64() < 0.02*(1.0+10.0*faultLevel) {
		sign := 1.0
		if s.rng.Intn(2) == 0 {
			sign = -1.0
		}
		vib += sign * (1.0 + 3.0*faultLevel)
	}

	// Cheap feature proxies: single-sample RMS and waveform mismatch.
	rms := math.Abs(vib)
	rough := math.Abs(vib - math.Sin(omega*s.phase))

	var pred Condition
	var baseConf float64
	switch {
	case s.truth == ConditionStall || rms < 0.35:
		pred, baseConf = ConditionStall, 0.85
	case rms > 1.25 && rough < 0.35:
		pred, baseConf = ConditionImbalance, 0.80
	case rough > 0.40:
		pred, baseConf = ConditionBearingWear, 0.75
	default:
		pred, baseConf = ConditionOK, 0.90
	}

	anomaly := clamp(0.15+0.9*rough+0.6*faultLevel, 0, 1)
	confidence := clamp(baseConf*(1.0-0.75*faultLevel)*(1.0-0.55*anomaly), 0, 1)

	// A stalled reading is always reported as STALL regardless of
	// confidence; everything else demotes to SUSPECT when confidence is
	// low.
	state := pred
	if confidence < suspectThreshold && pred != ConditionStall {
		state = ConditionSuspect
	}

	return Reading{
		Truth:      s.truth,
		Pred:       pred,
		State:      state,
		Confidence: confidence,
		Anomaly:    anomaly,
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
