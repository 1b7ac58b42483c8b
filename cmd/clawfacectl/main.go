// Package main provides clawfacectl, a small CLI that writes the Claw Face
// control files. It exists because shell quoting around raw JSON is fragile;
// this validates the expression and writes the files safely.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openclaw/clawface/internal/config"
	"github.com/openclaw/clawface/internal/control"
	"github.com/openclaw/clawface/internal/face"
)

type flags struct {
	expression   string
	autoCycle    string
	intensity    float64
	lookX        float64
	lookY        float64
	look         bool
	blink        bool
	sequence     string
	status       string
	clearStatus  bool
	clearCommand bool
}

func main() {
	var f flags

	cmd := &cobra.Command{
		Use:   "clawfacectl",
		Short: "Control a running Claw Face display",
		RunE: func(c *cobra.Command, _ []string) error {
			f.look = c.Flags().Changed("look-x") || c.Flags().Changed("look-y")
			hasStatus := c.Flags().Changed("status")
			hasIntensity := c.Flags().Changed("intensity")
			return run(f, hasStatus, hasIntensity)
		},
	}

	cmd.Flags().StringVarP(&f.expression, "expression", "e", "", "expression name or alias")
	cmd.Flags().StringVar(&f.autoCycle, "auto-cycle", "", "enable/disable auto-cycling (true/false)")
	cmd.Flags().Float64Var(&f.intensity, "intensity", 1.0, "expression intensity, 0 to 1")
	cmd.Flags().Float64Var(&f.lookX, "look-x", 0, "gaze X, -1 (left) to 1 (right)")
	cmd.Flags().Float64Var(&f.lookY, "look-y", 0, "gaze Y, -1 (down) to 1 (up)")
	cmd.Flags().BoolVar(&f.blink, "blink", false, "trigger a blink")
	cmd.Flags().StringVar(&f.sequence, "sequence", "", "play a one-shot expression pulse")
	cmd.Flags().StringVar(&f.status, "status", "", "status line text")
	cmd.Flags().BoolVar(&f.clearStatus, "clear-status", false, "remove the status file")
	cmd.Flags().BoolVar(&f.clearCommand, "clear-command", false, "remove the command file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(f flags, hasStatus, hasIntensity bool) error {
	dir := config.Dir()
	commandFile := filepath.Join(dir, "command.json")
	statusFile := filepath.Join(dir, "status.txt")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if f.clearStatus {
		if err := os.Remove(statusFile); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if hasStatus {
		text := strings.Join(strings.Fields(f.status), " ")
		if err := control.AtomicWrite(statusFile, []byte(text)); err != nil {
			return err
		}
	}
	if f.clearCommand {
		if err := os.Remove(commandFile); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	touchesCommand := f.expression != "" || f.autoCycle != "" || f.look ||
		f.blink || f.sequence != "" || hasIntensity
	if !touchesCommand {
		return nil
	}

	cmd := loadCommand(commandFile)

	if f.expression != "" {
		expr, ok := face.Resolve(f.expression)
		if !ok {
			return fmt.Errorf("invalid expression %q, valid: %s", f.expression, validExpressions())
		}
		cmd["expression"] = string(expr)
	}
	if f.autoCycle != "" {
		enabled, err := parseBool(f.autoCycle)
		if err != nil {
			return err
		}
		cmd["auto_cycle"] = enabled
	}
	if hasIntensity {
		cmd["intensity"] = clamp(f.intensity, 0, 1)
	}
	if f.look {
		cmd["look"] = map[string]float64{
			"x": clamp(f.lookX, -1, 1),
			"y": clamp(f.lookY, -1, 1),
		}
	}
	if f.blink {
		cmd["blink_seq"] = nextSeq(cmd, "blink_seq")
	}
	if f.sequence != "" {
		expr, ok := face.Resolve(f.sequence)
		if !ok {
			return fmt.Errorf("invalid sequence %q, valid: %s", f.sequence, validExpressions())
		}
		cmd["sequence"] = string(expr)
		cmd["sequence_seq"] = nextSeq(cmd, "sequence_seq")
	}

	data, err := json.MarshalIndent(cmd, "", "  ")
	if err != nil {
		return err
	}
	return control.AtomicWrite(commandFile, append(data, '\n'))
}

// loadCommand reads the existing command file so unrelated fields survive
// the merge. Anything unreadable starts over from an empty document.
func loadCommand(path string) map[string]any {
	raw, err := os.ReadFile(path)
	if err != nil {
		return map[string]any{}
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return map[string]any{}
	}
	return doc
}

// nextSeq bumps a monotonic counter field so the daemon sees a fresh edge
// even when the rest of the document is unchanged.
func nextSeq(cmd map[string]any, key string) int64 {
	if v, ok := cmd[key].(float64); ok {
		return int64(v) + 1
	}
	return 1
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q (use true/false)", s)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func validExpressions() string {
	names := make([]string, 0)
	for _, e := range face.Canonical() {
		names = append(names, string(e))
	}
	for alias := range face.Aliases() {
		names = append(names, alias)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
