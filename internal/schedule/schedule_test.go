package schedule

import (
	"encoding/json"
	"testing"
)

func f(v float64) *float64 { return &v }

func singleSegmentSchedule() Schedule {
	return Schedule{
		Schema:  "faults_v0",
		Enabled: true,
		Segments: []Segment{
			{
				Name:  "A",
				T0:    f(0),
				T1:    f(10),
				Marks: []string{MarkBeamOn},
				Flux: []FluxRule{
					{Process: "level", Effect: FluxEffect{
						Kind:   "continuous",
						Bundle: map[string]float64{"noise": 0.1},
					}},
				},
			},
		},
	}
}

func TestCompile_SingleSegment(t *testing.T) {
	s := singleSegmentSchedule()

	got := Compile(s, 5)
	if got.T != 5 {
		t.Fatalf("t = %v, want 5", got.T)
	}
	if len(got.ActiveSegments) != 1 || got.ActiveSegments[0] != "A" {
		t.Fatalf("active_segments = %v, want [A]", got.ActiveSegments)
	}
	if len(got.Marks) != 1 || got.Marks[0] != MarkBeamOn {
		t.Fatalf("marks = %v, want [beam_on]", got.Marks)
	}
	if got.FaultBundle["noise"] != 0.1 || len(got.FaultBundle) != 1 {
		t.Fatalf("fault_bundle = %v, want {noise:0.1}", got.FaultBundle)
	}
}

func TestCompile_OutsideAllSegments(t *testing.T) {
	got := Compile(singleSegmentSchedule(), 15)
	if len(got.ActiveSegments) != 0 || len(got.Marks) != 0 || len(got.FaultBundle) != 0 {
		t.Fatalf("expected empty bundle at t=15, got %+v", got)
	}
	if got.ActiveSegments == nil || got.Marks == nil || got.FaultBundle == nil {
		t.Fatal("empty bundle fields must be non-nil for stable serialization")
	}
}

func TestCompile_WindowIsClosedOpen(t *testing.T) {
	s := singleSegmentSchedule()
	if got := Compile(s, 0); len(got.ActiveSegments) != 1 {
		t.Fatal("t0 is inclusive")
	}
	if got := Compile(s, 10); len(got.ActiveSegments) != 0 {
		t.Fatal("t1 is exclusive")
	}
}

func TestCompile_AdditiveAccumulation(t *testing.T) {
	s := Schedule{Segments: []Segment{{
		Name: "stacked",
		T0:   f(0), T1: f(100),
		Flux: []FluxRule{
			{Process: "level", Effect: FluxEffect{Kind: "continuous", Bundle: map[string]float64{"noise": 0.1, "drift": 0.2}}},
			{Process: "level", Effect: FluxEffect{Kind: "continuous", Bundle: map[string]float64{"noise": 0.3}}},
			// Non-contributing rules: wrong process, wrong kind.
			{Process: "gain", Effect: FluxEffect{Kind: "continuous", Bundle: map[string]float64{"noise": 99}}},
			{Process: "level", Effect: FluxEffect{Kind: "pulse", Bundle: map[string]float64{"noise": 99}}},
		},
		Events: []Event{
			{Action: "apply", At: f(5), DurationS: 10, Bundle: map[string]float64{"noise": 0.05, "spike": 1}},
			{Action: "apply", At: f(50), DurationS: 1, Bundle: map[string]float64{"noise": 99}}, // inactive at t=7
			{Action: "revert", At: f(0), DurationS: 100, Bundle: map[string]float64{"noise": 99}},
			{Action: "apply", Bundle: map[string]float64{"noise": 99}}, // missing at: skipped
		},
	}}}

	got := Compile(s, 7)
	want := map[string]float64{"noise": 0.45, "drift": 0.2, "spike": 1}
	if len(got.FaultBundle) != len(want) {
		t.Fatalf("fault_bundle = %v, want %v", got.FaultBundle, want)
	}
	for k, v := range want {
		if d := got.FaultBundle[k] - v; d > 1e-12 || d < -1e-12 {
			t.Fatalf("fault_bundle[%s] = %v, want %v", k, got.FaultBundle[k], v)
		}
	}
}

func TestCompile_FirstMatchWins(t *testing.T) {
	s := Schedule{Segments: []Segment{
		{Name: "first", T0: f(0), T1: f(10)},
		{Name: "second", T0: f(0), T1: f(10), Marks: []string{"never"}},
	}}
	got := Compile(s, 5)
	if len(got.ActiveSegments) != 1 || got.ActiveSegments[0] != "first" {
		t.Fatalf("active_segments = %v, want [first]", got.ActiveSegments)
	}
	if len(got.Marks) != 0 {
		t.Fatalf("overlapping segments must not merge, got marks %v", got.Marks)
	}
}

func TestCompile_SkipsSegmentsWithMissingBounds(t *testing.T) {
	s := Schedule{Segments: []Segment{
		{Name: "broken", T0: f(0)}, // no t1
		{Name: "alsoBroken", T1: f(10)},
		{Name: "good", T0: f(0), T1: f(10)},
	}}
	got := Compile(s, 5)
	if len(got.ActiveSegments) != 1 || got.ActiveSegments[0] != "good" {
		t.Fatalf("active_segments = %v, want [good]", got.ActiveSegments)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	s := singleSegmentSchedule()
	a, _ := json.Marshal(Compile(s, 5))
	b, _ := json.Marshal(Compile(s, 5))
	if string(a) != string(b) {
		t.Fatalf("compile not byte-stable: %s vs %s", a, b)
	}
}

func TestInitialBeamMark(t *testing.T) {
	cases := []struct {
		name string
		s    Schedule
		want string
	}{
		{"beam_on", singleSegmentSchedule(), MarkBeamOn},
		{"beam_off", Schedule{Segments: []Segment{
			{Name: "A", T0: f(0), T1: f(10), Marks: []string{MarkBeamOff}},
		}}, MarkBeamOff},
		{"on wins over off", Schedule{Segments: []Segment{
			{Name: "A", T0: f(0), T1: f(10), Marks: []string{MarkBeamOff, MarkBeamOn}},
		}}, MarkBeamOn},
		{"no beam marks", Schedule{Segments: []Segment{
			{Name: "A", T0: f(0), T1: f(10), Marks: []string{"other"}},
		}}, ""},
		{"no segment at zero", Schedule{Segments: []Segment{
			{Name: "A", T0: f(5), T1: f(10), Marks: []string{MarkBeamOn}},
		}}, ""},
		{"missing bounds skipped", Schedule{Segments: []Segment{
			{Name: "broken", Marks: []string{MarkBeamOn}},
			{Name: "good", T0: f(0), T1: f(10), Marks: []string{MarkBeamOff}},
		}}, MarkBeamOff},
		{"empty schedule", Schedule{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := InitialBeamMark(tc.s); got != tc.want {
				t.Fatalf("InitialBeamMark = %q, want %q", got, tc.want)
			}
		})
	}
}
