package face

import (
	"sort"
	"time"
)

// Expression names a canonical face preset.
type Expression string

// The canonical closed set. Every external name resolves to one of these
// before it reaches the state machine.
const (
	ExpressionNormal     Expression = "normal"
	ExpressionHappy      Expression = "happy"
	ExpressionSad        Expression = "sad"
	ExpressionAngry      Expression = "angry"
	ExpressionSurprised  Expression = "surprised"
	ExpressionSuspicious Expression = "suspicious"
	ExpressionCute       Expression = "cute"
	ExpressionTired      Expression = "tired"
	ExpressionWonder     Expression = "wonder"
	ExpressionUpset      Expression = "upset"
	ExpressionConfused   Expression = "confused"
	ExpressionScared     Expression = "scared"
	ExpressionSleepy     Expression = "sleepy"
	ExpressionGlee       Expression = "glee"
	ExpressionSkeptic    Expression = "skeptic"
	ExpressionThinking   Expression = "thinking"
	ExpressionWink       Expression = "wink"
	ExpressionTalking    Expression = "talking"
	ExpressionTyping     Expression = "typing"
)

// Definition is one entry of the expression table: the canonical target
// pose plus personality flags.
type Definition struct {
	Pose      Pose
	Momentary bool          // auto-reverts after Hold
	Hold      time.Duration // only meaningful when Momentary
	Weight    int           // auto-cycle selection weight, 0 = never chosen
}

// aliases maps accepted external names to canonical ones. Resolution
// happens at the command boundary; the state machine only ever sees keys
// of the definitions table.
var aliases = map[string]Expression{
	"neutral": ExpressionNormal,
	"love":    ExpressionCute,
	"focused": ExpressionSuspicious,
	"excited": ExpressionGlee,
	"glitch":  ExpressionScared,
	"smug":    ExpressionSkeptic,
	"sleep":   ExpressionSleepy,
}

var definitions = map[Expression]Definition{
	ExpressionNormal: {
		Pose:   pose(1, 0, 1, 1, 0, 1, 0.15, 0, 0.9),
		Weight: 25,
	},
	ExpressionHappy: {
		Pose:   pose(1, 0.5, 1, 1, 0.5, 1, 0.8, 0, 1.0),
		Weight: 35,
	},
	ExpressionSad: {
		Pose:   pose(0.7, 0, 0.9, 0.7, 0, 0.9, -0.7, 0, 0.8),
		Weight: 5,
	},
	ExpressionAngry: {
		Pose:   pose(0.6, 0, 1, 0.6, 0, 1, -0.5, 0, 1.1),
		Weight: 3,
	},
	ExpressionSurprised: {
		Pose:   pose(1, 0, 1.2, 1, 0, 1.2, 0.2, 0.7, 0.8),
		Weight: 8,
	},
	ExpressionSuspicious: {
		Pose:   pose(0.45, 0, 0.95, 0.8, 0, 1, 0.1, 0, 0.8),
		Weight: 6,
	},
	ExpressionCute: {
		Pose:   pose(1, 0.8, 1.05, 1, 0.8, 1.05, 0.9, 0, 1.0),
		Weight: 6,
	},
	ExpressionTired: {
		Pose:   pose(0.5, 0.3, 0.9, 0.5, 0.3, 0.9, -0.1, 0, 0.8),
		Weight: 4,
	},
	ExpressionWonder: {
		Pose:   pose(1, 0, 1.15, 1, 0, 1.15, 0.3, 0.3, 0.9),
		Weight: 5,
	},
	ExpressionUpset: {
		Pose:   pose(0.6, 0, 0.9, 0.6, 0, 0.9, -0.8, 0, 0.9),
		Weight: 3,
	},
	ExpressionConfused: {
		Pose:   pose(1, 0, 1.1, 0.6, 0, 0.9, -0.2, 0.1, 0.7),
		Weight: 3,
	},
	ExpressionScared: {
		Pose:   pose(1, 0, 1.3, 1, 0, 1.3, -0.4, 0.5, 0.7),
		Weight: 1,
	},
	ExpressionSleepy: {
		Pose:   pose(0.3, 0.6, 0.85, 0.3, 0.6, 0.85, 0.3, 0, 0.7),
		Weight: 12,
	},
	ExpressionGlee: {
		Pose:   pose(1, 0.8, 1.1, 1, 0.8, 1.1, 1, 0.3, 1.2),
		Weight: 4,
	},
	ExpressionSkeptic: {
		Pose:   pose(1, 0, 1.05, 0.5, 0, 0.9, 0.4, 0, 0.9),
		Weight: 6,
	},
	ExpressionThinking: {
		Pose:   pose(0.7, 0, 0.95, 0.7, 0, 0.95, 0.05, 0, 0.75),
		Weight: 8,
	},
	ExpressionWink: {
		Pose:      pose(1, 0.5, 1, 0, 0, 1, 0.9, 0, 1.0),
		Momentary: true,
		Hold:      1200 * time.Millisecond,
	},
	ExpressionTalking: {
		Pose: pose(1, 0.2, 1, 1, 0.2, 1, 0.5, 0.6, 1.0),
	},
	ExpressionTyping: {
		Pose: pose(0.8, 0, 0.95, 0.8, 0, 0.95, 0.2, 0.2, 0.85),
	},
}

// pose is a construction shorthand ordered left eye (openness, squint,
// size), right eye, then mouth (curve, open, width).
func pose(lo, lsq, lsz, ro, rsq, rsz, curve, open, width float64) Pose {
	return Pose{
		LeftEye:   EyePose{Openness: lo, Squint: lsq, Size: lsz},
		RightEye:  EyePose{Openness: ro, Squint: rsq, Size: rsz},
		Mouth:     MouthPose{Curve: curve, Open: open, Width: width},
		Intensity: 1,
	}.Clamped()
}

// Lookup returns the definition for a canonical expression.
func Lookup(e Expression) (Definition, bool) {
	d, ok := definitions[e]
	return d, ok
}

// Resolve maps an external name (canonical or alias) to its canonical
// expression. Unknown names are rejected here and never stored.
func Resolve(name string) (Expression, bool) {
	if _, ok := definitions[Expression(name)]; ok {
		return Expression(name), true
	}
	if c, ok := aliases[name]; ok {
		return c, true
	}
	return "", false
}

// Canonical returns the sorted canonical name set.
func Canonical() []Expression {
	out := make([]Expression, 0, len(definitions))
	for e := range definitions {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Aliases returns a copy of the alias map for the API surface.
func Aliases() map[string]Expression {
	out := make(map[string]Expression, len(aliases))
	for k, v := range aliases {
		out[k] = v
	}
	return out
}

// Weights returns the auto-cycle weight table over canonical names.
// Momentary and zero-weight expressions are excluded.
func Weights() map[Expression]int {
	out := make(map[Expression]int)
	for e, d := range definitions {
		if d.Weight > 0 && !d.Momentary {
			out[e] = d.Weight
		}
	}
	return out
}
