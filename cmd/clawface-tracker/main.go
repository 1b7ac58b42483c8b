// Package main provides the face-tracking daemon. It watches the webcam
// and steers the Claw Face gaze toward whoever is in front of it.
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

	"github.com/openclaw/clawface/internal/config"
	"github.com/openclaw/clawface/internal/logging"
	"github.com/openclaw/clawface/internal/tracker"
)

func main() {
	tcfg := tracker.DefaultConfig()
	var (
		logLevel   string
		intervalMS int
		greet      bool
	)

	cmd := &cobra.Command{
		Use:   "clawface-tracker",
		Short: "Webcam face tracking for Claw Face",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(tcfg, logLevel, intervalMS, greet)
		},
	}

	cmd.Flags().IntVar(&tcfg.Device, "device", tcfg.Device, "camera device index")
	cmd.Flags().IntVar(&intervalMS, "interval-ms", 150, "detection interval in milliseconds")
	cmd.Flags().Float64Var(&tcfg.Scale, "scale", tcfg.Scale, "downscale factor before detection")
	cmd.Flags().Float64Var(&tcfg.Smoothing, "smoothing", tcfg.Smoothing, "gaze smoothing factor, 0 to 1")
	cmd.Flags().IntVar(&tcfg.NoFaceThreshold, "no-face-threshold", tcfg.NoFaceThreshold, "frames without a face before releasing the gaze")
	cmd.Flags().StringSliceVar(&tcfg.CascadeFiles, "cascade", tcfg.CascadeFiles, "haar cascade file, repeatable")
	cmd.Flags().BoolVar(&greet, "greet", true, "show a greeting on the status line when a face appears")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "logging level")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(tcfg tracker.Config, logLevel string, intervalMS int, greet bool) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	tcfg.CommandFile = cfg.Control.CommandFile
	tcfg.StatusFile = cfg.Control.StatusFile
	tcfg.Interval = time.Duration(intervalMS) * time.Millisecond
	tcfg.Greet = greet

	log, closer, err := logging.New(logging.Config{
		LogDir:  filepath.Join(config.Dir(), "logs"),
		Level:   logLevel,
		Console: true,
	})
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	t, err := tracker.New(tcfg, log)
	if err != nil {
		return err
	}
	defer t.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	log.Info().Int("device", tcfg.Device).Msg("face tracker starting")
	t.Run(ctx)
	log.Info().Msg("face tracker stopped")
	return nil
}
