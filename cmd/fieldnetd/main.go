// Command fieldnetd runs a simulated fieldnet sensor node: a motor
// simulation with fault injection, driven by field.command records and
// publishing state/display records over the message bus.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/noogrub/fieldnet/internal/bus"
	"github.com/noogrub/fieldnet/internal/config"
	"github.com/noogrub/fieldnet/internal/control"
	"github.com/noogrub/fieldnet/internal/engine"
	"github.com/noogrub/fieldnet/internal/motor"
	"github.com/noogrub/fieldnet/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("FIELDNET_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; deployed nodes won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("fieldnetd starting",
		"version", version, "node_id", cfg.NodeID, "motor_id", cfg.MotorID)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	b := bus.NewWSBus(cfg.WebSocketURL, cfg.ReconnectDelay, logger)
	if err := b.Connect(ctx); err != nil {
		return fmt.Errorf("bus: %w", err)
	}
	defer func() { _ = b.Close() }()

	ctrl := control.New(cfg.NodeID, cfg.MotorID, logger)
	eng := engine.New(engine.Config{
		NodeID:  cfg.NodeID,
		MotorID: cfg.MotorID,
		Bus:     b,
		Control: ctrl,
		Sim:     motor.NewSimulator(cfg.SimSeed),
		Speaker: engine.NewSpeaker(cfg.SpeakSeed),
		Logger:  logger,
	})

	// The command handler and the tick loop share only the control state,
	// behind its single critical section. Cancellation reaches both.
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := b.Listen(ctx, ctrl.HandleRecord)
		if err != nil && ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return eng.Run(ctx)
	})

	err = g.Wait()
	slog.Info("fieldnetd shutting down")
	return err
}
