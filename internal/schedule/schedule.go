// Package schedule compiles declarative, time-segmented fault schedules
// into the concrete fault bundles the live engine consumes. Compilation is
// pure: the bundle at any instant is a function of (schedule, t) alone.
package schedule

// Marks recognized on the segment covering t=0.
const (
	MarkBeamOn  = "beam_on"
	MarkBeamOff = "beam_off"
)

// FluxEffect describes how a flux rule contributes to the bundle. Only
// continuous effects contribute.
type FluxEffect struct {
	Kind   string             `json:"kind" yaml:"kind"`
	Bundle map[string]float64 `json:"bundle" yaml:"bundle"`
}

// FluxRule is a per-segment contribution keyed by process. Only the
// "level" process contributes.
type FluxRule struct {
	Process string     `json:"process" yaml:"process"`
	Effect  FluxEffect `json:"effect" yaml:"effect"`
}

// Event is a timed contribution within a segment, active on the
// closed-open window [At, At+DurationS).
type Event struct {
	Action    string             `json:"action" yaml:"action"`
	At        *float64           `json:"at" yaml:"at"`
	DurationS float64            `json:"duration_s" yaml:"duration_s"`
	Bundle    map[string]float64 `json:"bundle" yaml:"bundle"`
}

// Segment is a closed-open time window [T0, T1) with associated marks,
// flux rules, and events. T0 and T1 are pointers so a missing bound is
// distinguishable from zero; segments missing either bound are skipped.
type Segment struct {
	Name   string     `json:"name" yaml:"name"`
	T0     *float64   `json:"t0" yaml:"t0"`
	T1     *float64   `json:"t1" yaml:"t1"`
	Marks  []string   `json:"marks" yaml:"marks"`
	Flux   []FluxRule `json:"flux" yaml:"flux"`
	Events []Event    `json:"events" yaml:"events"`
}

// FaultDef is a named fault description carried by the schedule document.
// It does not affect compilation; the offline tool summarizes it.
type FaultDef struct {
	Type string `json:"type" yaml:"type"`
}

// Schedule is the fault schedule document.
type Schedule struct {
	Schema   string              `json:"schema" yaml:"schema"`
	Enabled  bool                `json:"enabled" yaml:"enabled"`
	Segments []Segment           `json:"segments" yaml:"segments"`
	Faults   map[string]FaultDef `json:"faults,omitempty" yaml:"faults,omitempty"`
}

// Bundle is the compiler output at a single instant: the active segment
// names, their marks, and the additively-combined fault effects keyed by
// effect name.
type Bundle struct {
	T              float64            `json:"t"`
	ActiveSegments []string           `json:"active_segments"`
	Marks          []string           `json:"marks"`
	FaultBundle    map[string]float64 `json:"fault_bundle"`
}

// segmentAt returns the first segment whose window covers t, or nil.
// First match wins; overlapping segments are not merged.
func segmentAt(s Schedule, t float64) *Segment {
	for i := range s.Segments {
		seg := &s.Segments[i]
		if seg.T0 == nil || seg.T1 == nil {
			continue
		}
		if *seg.T0 <= t && t < *seg.T1 {
			return seg
		}
	}
	return nil
}

// Compile returns the fault bundle at time t. It is total: malformed or
// absent segment data contributes nothing rather than failing, and the
// lists in the result are always non-nil.
func Compile(s Schedule, t float64) Bundle {
	out := Bundle{
		T:              t,
		ActiveSegments: []string{},
		Marks:          []string{},
		FaultBundle:    map[string]float64{},
	}

	seg := segmentAt(s, t)
	if seg == nil {
		return out
	}

	out.ActiveSegments = append(out.ActiveSegments, seg.Name)
	out.Marks = append(out.Marks, seg.Marks...)

	for _, fx := range seg.Flux {
		if fx.Process != "level" || fx.Effect.Kind != "continuous" {
			continue
		}
		for k, v := range fx.Effect.Bundle {
			out.FaultBundle[k] += v
		}
	}

	for _, ev := range seg.Events {
		if ev.Action != "apply" || ev.At == nil {
			continue
		}
		if *ev.At <= t && t < *ev.At+ev.DurationS {
			for k, v := range ev.Bundle {
				out.FaultBundle[k] += v
			}
		}
	}

	return out
}

// InitialBeamMark reports the beam state declared by the segment covering
// t=0: MarkBeamOn if present (checked first), else MarkBeamOff if present,
// else "".
func InitialBeamMark(s Schedule) string {
	seg := segmentAt(s, 0)
	if seg == nil {
		return ""
	}
	marks := make(map[string]bool, len(seg.Marks))
	for _, m := range seg.Marks {
		marks[m] = true
	}
	if marks[MarkBeamOn] {
		return MarkBeamOn
	}
	if marks[MarkBeamOff] {
		return MarkBeamOff
	}
	return ""
}
