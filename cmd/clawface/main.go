// Package main provides the Claw Face daemon: the animation engine, the
// external command pollers, and the HTTP/websocket surface render clients
// attach to.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/clawface/internal/bus"
	"github.com/openclaw/clawface/internal/config"
	"github.com/openclaw/clawface/internal/control"
	"github.com/openclaw/clawface/internal/face"
	"github.com/openclaw/clawface/internal/logging"
	"github.com/openclaw/clawface/internal/metrics"
	"github.com/openclaw/clawface/internal/server"
)

var version = "dev"

type flags struct {
	configPath string
	logLevel   string
	host       string
	port       int
	fps        int
	windowed   bool
	width      int
	height     int
	headless   bool
	saveConfig bool
	seed       int64
}

func main() {
	var f flags

	rootCmd := &cobra.Command{
		Use:     "clawface",
		Short:   "Claw Face - an animated face display",
		Version: version,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(f)
		},
	}

	rootCmd.Flags().StringVarP(&f.configPath, "config", "c", "", "path to config file")
	rootCmd.Flags().StringVar(&f.logLevel, "log-level", "info", "logging level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&f.host, "host", "", "HTTP server host/interface")
	rootCmd.Flags().IntVar(&f.port, "port", -1, "HTTP server port")
	rootCmd.Flags().IntVar(&f.fps, "fps", 0, "target FPS for animation")
	rootCmd.Flags().BoolVar(&f.windowed, "windowed", false, "disable fullscreen")
	rootCmd.Flags().IntVar(&f.width, "width", 0, "window width for --windowed")
	rootCmd.Flags().IntVar(&f.height, "height", 0, "window height for --windowed")
	rootCmd.Flags().BoolVar(&f.headless, "headless", false, "server only, no window hint")
	rootCmd.Flags().BoolVar(&f.saveConfig, "save-config", false, "save default configuration and exit")
	rootCmd.Flags().Int64Var(&f.seed, "seed", 0, "behavior random seed (0 = time-based)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(f flags) error {
	if f.saveConfig {
		if err := config.Save(config.Default()); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("Default configuration saved to %s\n", filepath.Join(config.Dir(), "config.yaml"))
		return nil
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOverrides(cfg, f)

	log, closer, err := logging.New(logging.Config{
		LogDir:  filepath.Join(config.Dir(), "logs"),
		Level:   f.logLevel,
		Console: true,
	})
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	log.Info().
		Str("version", version).
		Bool("headless", f.headless).
		Int("fps", cfg.Display.FPS).
		Msg("claw face starting")

	// Engine with config-driven behavior timing.
	blinkMin, blinkMax := cfg.BlinkInterval()
	lookMin, lookMax := cfg.LookInterval()
	exprMin, exprMax := cfg.ExpressionInterval()
	engine := face.NewEngine(face.Options{
		Blink: face.BlinkConfig{
			IntervalMin:       blinkMin,
			IntervalMax:       blinkMax,
			DoubleBlinkChance: cfg.Behavior.DoubleBlinkChance,
		},
		Idle: face.IdleConfig{
			LookIntervalMin:       lookMin,
			LookIntervalMax:       lookMax,
			LookCenterChance:      cfg.Behavior.LookCenterChance,
			ExpressionIntervalMin: exprMin,
			ExpressionIntervalMax: exprMax,
		},
		Seed:   f.seed,
		Logger: log,
	})

	events := bus.NewEventBus()
	engine.SetOnChange(func(ev face.ChangeEvent) {
		metrics.ExpressionChanges.WithLabelValues(string(ev.Origin)).Inc()
		events.Publish(bus.Event{
			Type: bus.EventTypeExpressionChanged,
			Data: map[string]any{"from": ev.From, "to": ev.To, "origin": ev.Origin},
		})
	})

	status := control.NewStatusManager(cfg.Control.StatusFile, cfg.StatusPollInterval(), cfg.Control.StatusMaxLen, log)
	status.SetOnChange(func(text string) {
		events.Publish(bus.Event{
			Type: bus.EventTypeStatusChanged,
			Data: map[string]any{"text": text},
		})
	})

	poller := control.NewPoller(cfg.Control.CommandFile, cfg.CommandPollInterval(), engine, log)
	poller.SetOnApply(func(cmd control.Command) {
		events.Publish(bus.Event{
			Type: bus.EventTypeCommandApplied,
			Data: map[string]any{"command": cmd.Sanitized()},
		})
	})

	srv := server.New(cfg, engine, status, log)
	srv.SetEvents(events)

	// Every bus event lands in the debug log; expression and status
	// changes additionally go out-of-band to websocket clients.
	events.SubscribeMultiple(bus.AllEventTypes(), func(ev bus.Event) {
		log.Debug().Str("event", string(ev.Type)).Fields(ev.Data).Msg("bus event")
	})
	events.SubscribeMultiple([]bus.EventType{
		bus.EventTypeExpressionChanged,
		bus.EventTypeStatusChanged,
	}, srv.PushEvent)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.SetOnQuit(cancel)

	if _, err := srv.Start(); err != nil {
		return err
	}

	go poller.Run(ctx)
	go status.Run(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	runLoop(ctx, cfg, engine, srv)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("claw face stopped")
	return nil
}

// runLoop is the single animation timeline: it advances the engine and
// publishes the resolved pose once per frame until ctx is done.
func runLoop(ctx context.Context, cfg *config.Config, engine *face.Engine, srv *server.Server) {
	frame := time.Second / time.Duration(cfg.Display.FPS)
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			engine.Tick(now)
			srv.BroadcastFrame(now)
		}
	}
}

func applyOverrides(cfg *config.Config, f flags) {
	if f.host != "" {
		cfg.Display.Host = f.host
	}
	if f.port >= 0 {
		cfg.Display.Port = f.port
	}
	if f.fps > 0 {
		cfg.Display.FPS = f.fps
	}
	if f.windowed {
		cfg.Display.Fullscreen = false
	}
	if f.width > 0 {
		cfg.Display.WindowWidth = f.width
	}
	if f.height > 0 {
		cfg.Display.WindowHeight = f.height
	}
	cfg.Validate()
}
