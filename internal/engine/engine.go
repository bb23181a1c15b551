// Package engine drives the simulated motor on a command-controlled
// cadence and publishes state, color, and speech records over the message
// bus.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/noogrub/fieldnet/internal/bus"
	"github.com/noogrub/fieldnet/internal/control"
	"github.com/noogrub/fieldnet/internal/motor"
	"github.com/noogrub/fieldnet/internal/telemetry"
)

// Outbound record types.
const (
	RecordTypeNodeState = "field.node_state"
	RecordTypeColor     = "display.color"
	RecordTypeSay       = "display.say"
)

// idlePoll is how long a paused engine sleeps between control re-polls.
const idlePoll = 100 * time.Millisecond

// Config assembles an engine.
type Config struct {
	NodeID  string
	MotorID string
	Bus     bus.Bus
	Control *control.Controller
	Sim     *motor.Simulator
	Speaker *Speaker
	Logger  *slog.Logger

	// Now is the wall clock used for the speak cooldown; defaults to
	// time.Now.
	Now func() time.Time
}

// Engine is the tick loop. It is the sole owner of the simulator; the only
// shared state it touches is the controller's, via atomic snapshots.
type Engine struct {
	nodeID  string
	motorID string
	source  string
	bus     bus.Bus
	ctrl    *control.Controller
	sim     *motor.Simulator
	speaker *Speaker
	logger  *slog.Logger
	now     func() time.Time

	lastSay time.Time

	ticks     metric.Int64Counter
	published metric.Int64Counter
}

// New assembles an engine from its collaborators.
func New(cfg Config) *Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	meter := telemetry.Meter("fieldnet/engine")
	ticks, err := meter.Int64Counter("fieldnet.sim.ticks",
		metric.WithDescription("Simulation ticks advanced"))
	if err != nil {
		cfg.Logger.Warn("engine: tick counter unavailable", "error", err)
	}
	published, err := meter.Int64Counter("fieldnet.records.published",
		metric.WithDescription("Records published to the bus"))
	if err != nil {
		cfg.Logger.Warn("engine: publish counter unavailable", "error", err)
	}
	return &Engine{
		nodeID:    cfg.NodeID,
		motorID:   cfg.MotorID,
		source:    cfg.NodeID + "." + cfg.MotorID,
		bus:       cfg.Bus,
		ctrl:      cfg.Control,
		sim:       cfg.Sim,
		speaker:   cfg.Speaker,
		logger:    cfg.Logger,
		now:       cfg.Now,
		ticks:     ticks,
		published: published,
	}
}

// Run is the tick loop. Each iteration takes one atomic snapshot of the
// control tuple, advances the simulation when running (or when paused with
// queued steps), and publishes the resulting records. It returns when ctx
// is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine: starting", "source", e.source)
	for {
		snap := e.ctrl.Snapshot()
		dt := 1.0 / snap.TickHz

		// Paused with nothing queued: idle lightly and re-poll.
		if snap.RunMode == control.RunModePause && snap.StepRemaining <= 0 {
			if err := sleepCtx(ctx, idlePoll); err != nil {
				return e.stop(err)
			}
			continue
		}

		if snap.RunMode == control.RunModePause {
			e.ctrl.ConsumeStep()
		}

		if err := e.tick(ctx, dt, snap); err != nil {
			return e.stop(err)
		}

		if err := sleepCtx(ctx, time.Duration(dt*float64(time.Second))); err != nil {
			return e.stop(err)
		}
	}
}

func (e *Engine) stop(err error) error {
	e.logger.Info("engine: stopping")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// tick advances the simulation once and publishes state, color, and (at
// most once per cooldown interval) speech records.
func (e *Engine) tick(ctx context.Context, dt float64, snap control.State) error {
	r := e.sim.Step(dt, snap.FaultLevel)
	if e.ticks != nil {
		e.ticks.Add(ctx, 1)
	}

	state := bus.NewRecord(RecordTypeNodeState, e.source, map[string]any{
		"id":          e.motorID,
		"state":       string(r.State),
		"pred":        string(r.Pred),
		"truth":       string(r.Truth),
		"confidence":  round4(r.Confidence),
		"anomaly":     round4(r.Anomaly),
		"fault_level": round4(snap.FaultLevel),
		"fault_mode":  snap.FaultMode,
		"stamp":       bus.Stamp(),
	})
	if err := e.publish(ctx, state); err != nil {
		return err
	}

	color := bus.NewRecord(RecordTypeColor, e.source, map[string]any{
		"id":    e.motorID,
		"color": ColorFor(r.State, r.Confidence),
		"stamp": bus.Stamp(),
	})
	if err := e.publish(ctx, color); err != nil {
		return err
	}

	now := e.now()
	interval := SayInterval(snap.FaultLevel, r.Confidence)
	if now.Sub(e.lastSay).Seconds() > interval {
		e.lastSay = now
		say := bus.NewRecord(RecordTypeSay, e.source, map[string]any{
			"id":    e.motorID,
			"text":  e.speaker.Line(snap.FaultLevel, r.Confidence),
			"mood":  Mood(snap.FaultLevel, r.Confidence),
			"stamp": bus.Stamp(),
		})
		if err := e.publish(ctx, say); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, rec bus.Record) error {
	if err := e.bus.Send(ctx, rec); err != nil {
		return fmt.Errorf("engine: publish %s: %w", rec.Type, err)
	}
	if e.published != nil {
		e.published.Add(ctx, 1, metric.WithAttributes(attribute.String("type", rec.Type)))
	}
	e.logger.Debug("engine: sent", "type", rec.Type)
	return nil
}

// round4 trims advisory floats to four decimals for the wire, matching the
// node-state record schema.
func round4(x float64) float64 {
	return math.Round(x*10_000) / 10_000
}

// sleepCtx sleeps for d or until ctx is cancelled. All of the engine's
// suspension points go through here so shutdown is never blocked by a
// pacing sleep.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
