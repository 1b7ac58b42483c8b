// Package config provides configuration management for Claw Face.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Color is an RGB triple, each channel 0-255.
type Color [3]int

// Colors configures the dot-matrix palette.
type Colors struct {
	Background Color `mapstructure:"background"`
	EyeWhite   Color `mapstructure:"eye_white"`
	Pupil      Color `mapstructure:"pupil"`
	Iris       Color `mapstructure:"iris"`
	Mouth      Color `mapstructure:"mouth"`
	Highlight  Color `mapstructure:"highlight"`
}

// Behavior configures the idle and blink timing.
type Behavior struct {
	BlinkIntervalMin  float64 `mapstructure:"blink_interval_min"` // seconds
	BlinkIntervalMax  float64 `mapstructure:"blink_interval_max"`
	DoubleBlinkChance float64 `mapstructure:"double_blink_chance"`

	LookIntervalMin  float64 `mapstructure:"look_interval_min"`
	LookIntervalMax  float64 `mapstructure:"look_interval_max"`
	LookCenterChance float64 `mapstructure:"look_center_chance"`

	ExpressionIntervalMin float64 `mapstructure:"expression_interval_min"`
	ExpressionIntervalMax float64 `mapstructure:"expression_interval_max"`
}

// Display configures the render tick and the window geometry consumed by
// the rendering collaborator.
type Display struct {
	Fullscreen   bool   `mapstructure:"fullscreen"`
	FPS          int    `mapstructure:"fps"`
	WindowWidth  int    `mapstructure:"window_width"`
	WindowHeight int    `mapstructure:"window_height"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
}

// Control configures the external control channel files and cadences.
type Control struct {
	CommandFile        string  `mapstructure:"command_file"`
	StatusFile         string  `mapstructure:"status_file"`
	CommandPollSeconds float64 `mapstructure:"command_poll_seconds"`
	StatusPollSeconds  float64 `mapstructure:"status_poll_seconds"`
	StatusMaxLen       int     `mapstructure:"status_max_len"`
}

// Config is the main configuration container.
type Config struct {
	Colors   Colors   `mapstructure:"colors"`
	Behavior Behavior `mapstructure:"behavior"`
	Display  Display  `mapstructure:"display"`
	Control  Control  `mapstructure:"control"`
}

// Dir returns the Claw Face config directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clawface"
	}
	return filepath.Join(home, ".config", "claw-face")
}

// Default returns the stock configuration.
func Default() *Config {
	dir := Dir()
	return &Config{
		Colors: Colors{
			Background: Color{0, 0, 0},
			EyeWhite:   Color{255, 255, 255},
			Pupil:      Color{30, 35, 45},
			Iris:       Color{100, 140, 180},
			Mouth:      Color{255, 255, 255},
			Highlight:  Color{255, 255, 255},
		},
		Behavior: Behavior{
			BlinkIntervalMin:      3.0,
			BlinkIntervalMax:      6.0,
			DoubleBlinkChance:     0.15,
			LookIntervalMin:       2.0,
			LookIntervalMax:       5.0,
			LookCenterChance:      0.3,
			ExpressionIntervalMin: 8.0,
			ExpressionIntervalMax: 20.0,
		},
		Display: Display{
			Fullscreen:   true,
			FPS:          60,
			WindowWidth:  1280,
			WindowHeight: 720,
			Host:         "127.0.0.1",
			Port:         8420,
		},
		Control: Control{
			CommandFile:        filepath.Join(dir, "command.json"),
			StatusFile:         filepath.Join(dir, "status.txt"),
			CommandPollSeconds: 1.0,
			StatusPollSeconds:  7.0,
			StatusMaxLen:       120,
		},
	}
}

// Load reads configuration from the given file, or the default location
// when path is empty, with CLAWFACE_* environment overrides. A missing
// config file yields defaults, never an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CLAWFACE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return cfg, err
		}
		cfg.Validate()
		return cfg, nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return cfg, err
	}
	cfg.Validate()
	return cfg, nil
}

// Save writes cfg to the default config file.
func Save(cfg *Config) error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	v := viper.New()
	v.Set("colors", cfg.Colors)
	v.Set("behavior", cfg.Behavior)
	v.Set("display", cfg.Display)
	v.Set("control", cfg.Control)
	return v.WriteConfigAs(filepath.Join(dir, "config.yaml"))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (c *Color) clamp() {
	for i := range c {
		c[i] = clampInt(c[i], 0, 255)
	}
}

// Validate clamps every field back into its legal range and normalizes
// inverted intervals. Bad values in a hand-edited config file are a
// runtime condition, not a defect, so this never fails.
func (c *Config) Validate() {
	c.Colors.Background.clamp()
	c.Colors.EyeWhite.clamp()
	c.Colors.Pupil.clamp()
	c.Colors.Iris.clamp()
	c.Colors.Mouth.clamp()
	c.Colors.Highlight.clamp()

	b := &c.Behavior
	b.BlinkIntervalMin = clampFloat(b.BlinkIntervalMin, 0.1, 3600)
	b.BlinkIntervalMax = clampFloat(b.BlinkIntervalMax, 0.1, 3600)
	if b.BlinkIntervalMax < b.BlinkIntervalMin {
		b.BlinkIntervalMin, b.BlinkIntervalMax = b.BlinkIntervalMax, b.BlinkIntervalMin
	}
	b.DoubleBlinkChance = clampFloat(b.DoubleBlinkChance, 0, 1)
	b.LookIntervalMin = clampFloat(b.LookIntervalMin, 0.1, 3600)
	b.LookIntervalMax = clampFloat(b.LookIntervalMax, 0.1, 3600)
	if b.LookIntervalMax < b.LookIntervalMin {
		b.LookIntervalMin, b.LookIntervalMax = b.LookIntervalMax, b.LookIntervalMin
	}
	b.LookCenterChance = clampFloat(b.LookCenterChance, 0, 1)
	b.ExpressionIntervalMin = clampFloat(b.ExpressionIntervalMin, 0.5, 3600)
	b.ExpressionIntervalMax = clampFloat(b.ExpressionIntervalMax, 0.5, 3600)
	if b.ExpressionIntervalMax < b.ExpressionIntervalMin {
		b.ExpressionIntervalMin, b.ExpressionIntervalMax = b.ExpressionIntervalMax, b.ExpressionIntervalMin
	}

	d := &c.Display
	d.FPS = clampInt(d.FPS, 1, 240)
	d.Port = clampInt(d.Port, 0, 65535)
	if d.WindowWidth < 1 {
		d.WindowWidth = 1
	}
	if d.WindowHeight < 1 {
		d.WindowHeight = 1
	}
	if d.Host == "" {
		d.Host = "127.0.0.1"
	}

	ct := &c.Control
	if ct.CommandFile == "" {
		ct.CommandFile = filepath.Join(Dir(), "command.json")
	}
	if ct.StatusFile == "" {
		ct.StatusFile = filepath.Join(Dir(), "status.txt")
	}
	ct.CommandPollSeconds = clampFloat(ct.CommandPollSeconds, 0.1, 60)
	ct.StatusPollSeconds = clampFloat(ct.StatusPollSeconds, 0.1, 600)
	if ct.StatusMaxLen <= 0 {
		ct.StatusMaxLen = 120
	}
}

// CommandPollInterval returns the command poll cadence as a Duration.
func (c *Config) CommandPollInterval() time.Duration {
	return time.Duration(c.Control.CommandPollSeconds * float64(time.Second))
}

// StatusPollInterval returns the status poll cadence as a Duration.
func (c *Config) StatusPollInterval() time.Duration {
	return time.Duration(c.Control.StatusPollSeconds * float64(time.Second))
}

// seconds converts a float second count to a Duration.
func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// BlinkInterval returns the configured blink range as Durations.
func (c *Config) BlinkInterval() (min, max time.Duration) {
	return seconds(c.Behavior.BlinkIntervalMin), seconds(c.Behavior.BlinkIntervalMax)
}

// LookInterval returns the configured look range as Durations.
func (c *Config) LookInterval() (min, max time.Duration) {
	return seconds(c.Behavior.LookIntervalMin), seconds(c.Behavior.LookIntervalMax)
}

// ExpressionInterval returns the configured auto-cycle range as Durations.
func (c *Config) ExpressionInterval() (min, max time.Duration) {
	return seconds(c.Behavior.ExpressionIntervalMin), seconds(c.Behavior.ExpressionIntervalMax)
}
