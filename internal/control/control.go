// Package control owns the shared fault-injection control state and
// interprets inbound field.command records. The command handler writes the
// state; the simulation loop reads it. All access goes through one critical
// section so the loop never observes a torn multi-field update.
package control

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/noogrub/fieldnet/internal/bus"
	"github.com/noogrub/fieldnet/internal/telemetry"
)

// RunMode selects how the simulation loop advances.
type RunMode string

const (
	RunModeRun   RunMode = "run"
	RunModeStep  RunMode = "step"
	RunModePause RunMode = "pause"
)

// Clamp ranges for numeric command parameters. Out-of-range values are
// clamped, never rejected.
const (
	MinTickHz = 0.2
	MaxTickHz = 200.0

	minStep = 1
	maxStep = 10_000

	// rampIncrement is the interval between ramp mutations. The lock is
	// held only for the instant of each mutation so the tick loop is
	// never starved by an in-flight ramp.
	rampIncrement = 200 * time.Millisecond
)

// Inbound record and command names.
const (
	RecordTypeCommand = "field.command"

	CmdSimPause  = "sim.pause"
	CmdSimRun    = "sim.run"
	CmdSimStep   = "sim.step"
	CmdSimRate   = "sim.rate"
	CmdFaultSet  = "fault.set"
	CmdFaultRamp = "fault.ramp"
)

// State is the whole control tuple. Snapshot returns it by value so the
// loop acts on one consistent view of all five fields.
type State struct {
	FaultLevel    float64
	FaultMode     string
	RunMode       RunMode
	StepRemaining int
	TickHz        float64
}

// Controller applies inbound command records to the shared control state.
type Controller struct {
	motorID string
	source  string // node_id.motor_id
	logger  *slog.Logger

	commandsApplied metric.Int64Counter

	mu sync.Mutex
	st State
}

// New creates a controller with the engine defaults: no fault, bitflip
// mode, paused, 5 Hz.
func New(nodeID, motorID string, logger *slog.Logger) *Controller {
	counter, err := telemetry.Meter("fieldnet/control").Int64Counter("fieldnet.commands.applied",
		metric.WithDescription("Commands applied to the control state"))
	if err != nil {
		logger.Warn("control: command counter unavailable", "error", err)
	}
	return &Controller{
		motorID:         motorID,
		source:          nodeID + "." + motorID,
		logger:          logger,
		commandsApplied: counter,
		st: State{
			FaultLevel: 0,
			FaultMode:  "bitflip",
			RunMode:    RunModePause,
			TickHz:     5.0,
		},
	}
}

// Snapshot returns the full control tuple under the critical section.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// ConsumeStep decrements the queued step count by one if any remain,
// reporting whether a step was consumed.
func (c *Controller) ConsumeStep() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st.StepRemaining <= 0 {
		return false
	}
	c.st.StepRemaining--
	return true
}

// HandleRecord is the bus handler: it interprets one inbound record.
// Unknown commands and records addressed to other entities are non-fatal
// no-ops. fault.ramp blocks this call for the ramp's duration (but never
// the tick loop) and observes ctx cancellation.
func (c *Controller) HandleRecord(ctx context.Context, rec bus.Record) {
	if rec.Type != RecordTypeCommand {
		c.logger.Debug("control: ignoring record", "type", rec.Type, "source", rec.Source)
		return
	}

	data := rec.Data
	if data == nil {
		data = map[string]any{}
	}
	cmd, _ := data["cmd"].(string)

	// Addressing filter: a target naming a different entity is not ours.
	if target, ok := data["target"].(string); ok && target != "" &&
		target != c.motorID && target != c.source {
		return
	}

	ctx, span := otel.Tracer("fieldnet/control").Start(ctx, "control.apply")
	span.SetAttributes(attribute.String("fieldnet.cmd", cmd))
	defer span.End()

	switch cmd {
	case CmdSimPause:
		c.mu.Lock()
		c.st.RunMode = RunModePause
		c.mu.Unlock()
		c.logger.Info("cmd: sim.pause")

	case CmdSimRun:
		c.mu.Lock()
		c.st.RunMode = RunModeRun
		c.mu.Unlock()
		c.logger.Info("cmd: sim.run")

	case CmdSimStep:
		n := clampInt(intParam(data, "n", 1), minStep, maxStep)
		c.mu.Lock()
		c.st.RunMode = RunModePause
		c.st.StepRemaining += n
		queued := c.st.StepRemaining
		c.mu.Unlock()
		c.logger.Info("cmd: sim.step", "n", n, "queued", queued)

	case CmdSimRate:
		hz := clamp(floatParam(data, "hz", 5.0), MinTickHz, MaxTickHz)
		c.mu.Lock()
		c.st.TickHz = hz
		c.mu.Unlock()
		c.logger.Info("cmd: sim.rate", "hz", hz)

	case CmdFaultSet:
		level := clamp(floatParam(data, "level", 0.0), 0, 1)
		c.mu.Lock()
		c.st.FaultLevel = level
		// Mode carries over when the command omits it.
		if mode, ok := data["mode"].(string); ok && mode != "" {
			c.st.FaultMode = mode
		}
		mode := c.st.FaultMode
		c.mu.Unlock()
		c.logger.Info("cmd: fault.set", "level", level, "mode", mode)

	case CmdFaultRamp:
		c.ramp(ctx, data)

	default:
		c.logger.Warn("cmd: unknown", "cmd", cmd, "source", rec.Source)
		return
	}

	if c.commandsApplied != nil {
		c.commandsApplied.Add(ctx, 1, metric.WithAttributes(attribute.String("cmd", cmd)))
	}
}

// ramp linearly interpolates the fault level to the target over the given
// wall-clock duration in fixed increments. Each increment re-acquires the
// critical section only for the instant of mutation.
func (c *Controller) ramp(ctx context.Context, data map[string]any) {
	target := clamp(floatParam(data, "level", 0.0), 0, 1)
	seconds := floatParam(data, "seconds", 5.0)
	if seconds < 0.1 {
		seconds = 0.1
	}

	c.mu.Lock()
	start := c.st.FaultLevel
	c.mu.Unlock()

	steps := int(seconds / rampIncrement.Seconds())
	if steps < 1 {
		steps = 1
	}

	ticker := time.NewTicker(rampIncrement)
	defer ticker.Stop()
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			c.logger.Info("cmd: fault.ramp cancelled", "level_reached", c.Snapshot().FaultLevel)
			return
		case <-ticker.C:
		}
		t := float64(i+1) / float64(steps)
		level := start + (target-start)*t
		c.mu.Lock()
		c.st.FaultLevel = level
		c.mu.Unlock()
	}
	c.logger.Info("cmd: fault.ramp done", "level", target)
}

// floatParam reads a numeric command parameter; JSON decoding yields
// float64 but integer-typed values are tolerated.
func floatParam(data map[string]any, key string, def float64) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

func intParam(data map[string]any, key string, def int) int {
	return int(floatParam(data, key, float64(def)))
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

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
