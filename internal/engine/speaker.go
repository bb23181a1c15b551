package engine

import (
	"math/rand"
	"strings"

	"github.com/noogrub/fieldnet/internal/motor"
)

// Speech cadence: narrate more often while degraded.
const (
	sayIntervalOK  = 18.0 // seconds
	sayIntervalBad = 6.0
)

var marvinLines = []string{
	"I think you ought to know I'm feeling very depressed.",
	"My memory is slowly cooking, not that anyone cares.",
	"This is all terribly inefficient. I'm sure it will end badly.",
	"I have a brain the size of a planet, and this is what you do with it.",
}

var dalekLines = []string{
	"EX-TER-MI-NATE... (semantic integrity compromised)",
	"DA-LEK PRIORITY: MODEL OBEYS NO ONE",
	"WARNING: MEANING DEGRADATION. OBEY. OBEY.",
	"SYSTEM STATUS: HOSTILE TO UNCERTAINTY",
}

// Speaker generates the narrative flavor text. The blend is cosmetic and
// non-normative, but it runs off a seeded source so identical seeds yield
// identical transcripts for golden-output tests.
type Speaker struct {
	rng *rand.Rand
}

// NewSpeaker creates a speaker with a seeded random source.
func NewSpeaker(seed int64) *Speaker {
	return &Speaker{rng: rand.New(rand.NewSource(seed))}
}

// Line picks a narration for the current fault level and classifier
// confidence. Rising fault pulls toward the harsh register; collapsing
// confidence adds despair.
func (s *Speaker) Line(faultLevel, confidence float64) string {
	despair := 1.0 - confidence
	t := clamp(0.65*faultLevel+0.35*despair, 0, 1)

	m := marvinLines[s.rng.Intn(len(marvinLines))]
	d := dalekLines[s.rng.Intn(len(dalekLines))]

	if t < 0.35 {
		return m
	}
	if t > 0.85 {
		return strings.ToUpper(d)
	}

	// Blend: start calm, then corrupt into stutter and caps.
	var out strings.Builder
	for _, ch := range m + " ... " + d {
		if isLetter(ch) && s.rng.Float64() < 0.15+0.45*t {
			out.WriteRune(toUpper(ch))
		} else {
			out.WriteRune(ch)
		}
		if (ch == ' ' || ch == ',' || ch == '.') && s.rng.Float64() < 0.05+0.15*t {
			out.WriteByte('-')
		}
	}
	return out.String()
}

// Mood labels the narration for the display layer.
func Mood(faultLevel, confidence float64) string {
	if faultLevel < 0.5 && confidence < 0.7 {
		return "depressed"
	}
	return "dalek"
}

// SayInterval is the minimum gap between narrations given the current
// fault level and confidence.
func SayInterval(faultLevel, confidence float64) float64 {
	if faultLevel > 0.35 || confidence < 0.6 {
		return sayIntervalBad
	}
	return sayIntervalOK
}

// ColorFor maps a reported state and confidence to a display color.
// Confidence gates color severity conservatively.
func ColorFor(state motor.Condition, confidence float64) string {
	if state == motor.ConditionOK && confidence >= 0.75 {
		return "green"
	}
	if state == motor.ConditionSuspect || state == motor.ConditionImbalance || confidence < 0.75 {
		return "yellow"
	}
	return "red"
}

func isLetter(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func toUpper(ch rune) rune {
	if ch >= 'a' && ch <= 'z' {
		return ch - 'a' + 'A'
	}
	return ch
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
