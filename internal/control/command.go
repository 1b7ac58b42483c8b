// Package control implements the external control surface of the face: the
// command.json poller, the status line manager, and the atomic file writes
// their external writers rely on.
package control

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/openclaw/clawface/internal/face"
)

// Look is an absolute gaze target, x and y each in [-1, 1].
type Look struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Command is one external control payload. Every field is optional; a
// Command is a partial patch over the engine state and is discarded after
// it has been applied.
type Command struct {
	Expression  *string  `json:"expression,omitempty"`
	AutoCycle   *bool    `json:"auto_cycle,omitempty"`
	Intensity   *float64 `json:"intensity,omitempty"`
	Look        *Look    `json:"look,omitempty"`
	BlinkSeq    *int64   `json:"blink_seq,omitempty"`
	Sequence    *string  `json:"sequence,omitempty"`
	SequenceSeq *int64   `json:"sequence_seq,omitempty"`
}

// ParseCommand decodes a raw payload into a Command with per-field partial
// acceptance: a field that is missing or badly typed is dropped, the rest
// still apply. Only a document that is not a JSON object at all is an
// error. Unknown expression names survive parsing and are rejected during
// application, so the other fields of the same payload still take effect.
func ParseCommand(raw []byte) (Command, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Command{}, err
	}

	var cmd Command
	if v, ok := fields["expression"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil {
			cmd.Expression = &s
		}
	}
	if v, ok := fields["auto_cycle"]; ok {
		var b bool
		if json.Unmarshal(v, &b) == nil {
			cmd.AutoCycle = &b
		}
	}
	if v, ok := fields["intensity"]; ok {
		var f float64
		if json.Unmarshal(v, &f) == nil {
			f = mgl64.Clamp(f, 0, 1)
			cmd.Intensity = &f
		}
	}
	if v, ok := fields["look"]; ok {
		var l Look
		if json.Unmarshal(v, &l) == nil {
			l.X = mgl64.Clamp(l.X, -1, 1)
			l.Y = mgl64.Clamp(l.Y, -1, 1)
			cmd.Look = &l
		}
	}
	if v, ok := fields["blink_seq"]; ok {
		var n int64
		if json.Unmarshal(v, &n) == nil {
			cmd.BlinkSeq = &n
		}
	}
	if v, ok := fields["sequence"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil {
			cmd.Sequence = &s
		}
	}
	if v, ok := fields["sequence_seq"]; ok {
		var n int64
		if json.Unmarshal(v, &n) == nil {
			cmd.SequenceSeq = &n
		}
	}
	return cmd, nil
}

// IsZero reports whether the command patches nothing.
func (c Command) IsZero() bool {
	return c.Expression == nil && c.AutoCycle == nil && c.Intensity == nil &&
		c.Look == nil && c.BlinkSeq == nil && c.Sequence == nil && c.SequenceSeq == nil
}

// Sanitized returns only the well-known fields with expression names
// resolved, for echoing back on the API surface.
func (c Command) Sanitized() Command {
	out := c
	if c.Expression != nil {
		if canonical, ok := face.Resolve(*c.Expression); ok {
			s := string(canonical)
			out.Expression = &s
		} else {
			out.Expression = nil
		}
	}
	return out
}
