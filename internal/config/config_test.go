package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	before := *cfg
	cfg.Validate()
	if *cfg != before {
		t.Error("Validate changed an already-valid default config")
	}
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	want.Validate()
	if cfg.Display.FPS != want.Display.FPS || cfg.Display.Port != want.Display.Port {
		t.Errorf("missing file did not fall back to defaults: %+v", cfg.Display)
	}
}

func TestLoad_UnknownKeysIgnored(t *testing.T) {
	path := writeConfig(t, `
colors:
  background: [1, 2, 3]
  unknown: 123
behavior:
  blink_interval_min: 1
  nope: true
display:
  fps: 60
  wat: ok
top_level_unknown: 1
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Colors.Background != (Color{1, 2, 3}) {
		t.Errorf("background = %v", cfg.Colors.Background)
	}
	if cfg.Display.FPS != 60 {
		t.Errorf("fps = %d", cfg.Display.FPS)
	}
}

func TestValidate_ClampsAndNormalizes(t *testing.T) {
	path := writeConfig(t, `
colors:
  background: [-10, 260, 5]
behavior:
  blink_interval_min: 10
  blink_interval_max: 3
display:
  fps: 9999
  port: 99999
  window_width: 0
  window_height: -1
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Colors.Background != (Color{0, 255, 5}) {
		t.Errorf("background = %v, want clamped", cfg.Colors.Background)
	}
	if cfg.Behavior.BlinkIntervalMin > cfg.Behavior.BlinkIntervalMax {
		t.Errorf("blink interval not normalized: [%v, %v]",
			cfg.Behavior.BlinkIntervalMin, cfg.Behavior.BlinkIntervalMax)
	}
	if cfg.Display.FPS < 1 || cfg.Display.FPS > 240 {
		t.Errorf("fps = %d, want within [1, 240]", cfg.Display.FPS)
	}
	if cfg.Display.Port < 0 || cfg.Display.Port > 65535 {
		t.Errorf("port = %d, want within [0, 65535]", cfg.Display.Port)
	}
	if cfg.Display.WindowWidth < 1 || cfg.Display.WindowHeight < 1 {
		t.Errorf("window = %dx%d, want at least 1x1",
			cfg.Display.WindowWidth, cfg.Display.WindowHeight)
	}
}

func TestValidate_ChancesClampedToUnit(t *testing.T) {
	cfg := Default()
	cfg.Behavior.DoubleBlinkChance = 3
	cfg.Behavior.LookCenterChance = -1
	cfg.Validate()
	if cfg.Behavior.DoubleBlinkChance != 1 {
		t.Errorf("double blink chance = %v", cfg.Behavior.DoubleBlinkChance)
	}
	if cfg.Behavior.LookCenterChance != 0 {
		t.Errorf("look center chance = %v", cfg.Behavior.LookCenterChance)
	}
}

func TestValidate_EmptyPathsRestored(t *testing.T) {
	cfg := Default()
	cfg.Control.CommandFile = ""
	cfg.Control.StatusFile = ""
	cfg.Display.Host = ""
	cfg.Validate()
	if cfg.Control.CommandFile == "" || cfg.Control.StatusFile == "" {
		t.Error("control file paths not restored")
	}
	if cfg.Display.Host != "127.0.0.1" {
		t.Errorf("host = %q, want loopback default", cfg.Display.Host)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	if got := cfg.CommandPollInterval(); got != time.Second {
		t.Errorf("command poll = %v, want 1s", got)
	}
	if got := cfg.StatusPollInterval(); got != 7*time.Second {
		t.Errorf("status poll = %v, want 7s", got)
	}
	min, max := cfg.BlinkInterval()
	if min != 3*time.Second || max != 6*time.Second {
		t.Errorf("blink interval = [%v, %v]", min, max)
	}
	min, max = cfg.ExpressionInterval()
	if min != 8*time.Second || max != 20*time.Second {
		t.Errorf("expression interval = [%v, %v]", min, max)
	}
}
