package motor

import (
	"math/rand"
	"testing"
)

func TestStep_OutputsAlwaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := NewSimulator(1)

	for i := 0; i < 20_000; i++ {
		dt := 0.001 + rng.Float64()*0.5
		level := rng.Float64()
		r := s.Step(dt, level)

		if r.Confidence < 0 || r.Confidence > 1 {
			t.Fatalf("confidence %v out of [0,1] at i=%d level=%v", r.Confidence, i, level)
		}
		if r.Anomaly < 0 || r.Anomaly > 1 {
			t.Fatalf("anomaly %v out of [0,1] at i=%d level=%v", r.Anomaly, i, level)
		}
	}
}

func TestStep_SuspectOnlyWhenLowConfidenceNonStall(t *testing.T) {
	s := NewSimulator(42)
	var sawSuspect, sawStall bool

	for i := 0; i < 50_000; i++ {
		level := float64(i%11) / 10.0
		r := s.Step(0.2, level)

		switch r.State {
		case ConditionSuspect:
			sawSuspect = true
			if r.Confidence >= 0.55 {
				t.Fatalf("SUSPECT with confidence %v >= 0.55", r.Confidence)
			}
			if r.Pred == ConditionStall {
				t.Fatal("STALL prediction must never be demoted to SUSPECT")
			}
		case ConditionStall:
			sawStall = true
			if r.Pred != ConditionStall {
				t.Fatalf("reported STALL but predicted %v", r.Pred)
			}
		default:
			if r.Confidence < 0.55 {
				t.Fatalf("state %v with confidence %v < 0.55 should be SUSPECT", r.State, r.Confidence)
			}
		}
	}

	// The thresholds make both paths reachable over 50k noisy ticks; if
	// either never fires the invariant checks above proved nothing.
	if !sawSuspect || !sawStall {
		t.Fatalf("expected both SUSPECT and STALL readings (suspect=%v stall=%v)", sawSuspect, sawStall)
	}
}

func TestStep_DeterministicForSeed(t *testing.T) {
	a := NewSimulator(1234)
	b := NewSimulator(1234)

	for i := 0; i < 1000; i++ {
		ra := a.Step(0.2, 0.3)
		rb := b.Step(0.2, 0.3)
		if ra != rb {
			t.Fatalf("step %d diverged: %+v vs %+v", i, ra, rb)
		}
	}
}

func TestStep_TruthRedrawsOnTimer(t *testing.T) {
	s := NewSimulator(99)
	seen := map[Condition]bool{}

	// 12s simulated per redraw; 4000 ticks at 0.5s crosses ~166 redraws.
	for i := 0; i < 4000; i++ {
		r := s.Step(0.5, 0)
		seen[r.Truth] = true
		if r.Truth == ConditionSuspect {
			t.Fatal("SUSPECT must never be a ground truth")
		}
	}
	for _, c := range []Condition{ConditionOK, ConditionImbalance, ConditionBearingWear, ConditionStall} {
		if !seen[c] {
			t.Fatalf("truth %v never drawn across redraws", c)
		}
	}
}

func TestStep_StallTruthAlwaysReportedStall(t *testing.T) {
	s := NewSimulator(5)
	for i := 0; i < 20_000; i++ {
		r := s.Step(0.1, 0.9)
		if r.Truth == ConditionStall && r.State != ConditionStall {
			t.Fatalf("truth STALL reported as %v", r.State)
		}
	}
}
