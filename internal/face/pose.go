// Package face implements the Claw Face expression and animation engine:
// poses, the expression table, blink and idle behaviors, and the state
// machine that owns what the face is doing right now.
package face

import (
	"github.com/go-gl/mathgl/mgl64"
)

// EyePose describes one eye at a single rendered instant.
type EyePose struct {
	Openness float64 `json:"openness"` // 0 closed .. 1 open
	Squint   float64 `json:"squint"`   // 0 round .. 1 full happy arc
	Size     float64 `json:"size"`     // multiplier, 0.7 .. 1.3
}

// MouthPose describes the mouth at a single rendered instant.
type MouthPose struct {
	Curve float64 `json:"curve"` // -1 sad .. 1 happy
	Open  float64 `json:"open"`  // 0 closed .. 1 wide open
	Width float64 `json:"width"` // multiplier, 0.5 .. 1.5
}

// Pose is one rendered instant of the whole face. Poses are immutable once
// constructed; blending produces a new Pose. All normalized fields stay
// inside their declared bounds after any blend.
type Pose struct {
	LeftEye   EyePose    `json:"left_eye"`
	RightEye  EyePose    `json:"right_eye"`
	Mouth     MouthPose  `json:"mouth"`
	Gaze      mgl64.Vec2 `json:"gaze"`      // x, y each in -1 .. 1
	Intensity float64    `json:"intensity"` // 0 .. 1, scales deviation from neutral
}

// NeutralPose returns the resting face.
func NeutralPose() Pose {
	return Pose{
		LeftEye:   EyePose{Openness: 1, Squint: 0, Size: 1},
		RightEye:  EyePose{Openness: 1, Squint: 0, Size: 1},
		Mouth:     MouthPose{Curve: 0.15, Open: 0, Width: 0.9},
		Gaze:      mgl64.Vec2{0, 0},
		Intensity: 1,
	}
}

// Smoothstep is the ease-in-out curve used for every pose morph. Input is
// clamped to [0,1] so late ticks cannot overshoot the target.
func Smoothstep(t float64) float64 {
	t = mgl64.Clamp(t, 0, 1)
	return t * t * (3 - 2*t)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func (e EyePose) clamped() EyePose {
	return EyePose{
		Openness: mgl64.Clamp(e.Openness, 0, 1),
		Squint:   mgl64.Clamp(e.Squint, 0, 1),
		Size:     mgl64.Clamp(e.Size, 0.7, 1.3),
	}
}

func (m MouthPose) clamped() MouthPose {
	return MouthPose{
		Curve: mgl64.Clamp(m.Curve, -1, 1),
		Open:  mgl64.Clamp(m.Open, 0, 1),
		Width: mgl64.Clamp(m.Width, 0.5, 1.5),
	}
}

// Clamped returns a copy of p with every field forced back inside its
// declared bounds.
func (p Pose) Clamped() Pose {
	p.LeftEye = p.LeftEye.clamped()
	p.RightEye = p.RightEye.clamped()
	p.Mouth = p.Mouth.clamped()
	p.Gaze = mgl64.Vec2{
		mgl64.Clamp(p.Gaze.X(), -1, 1),
		mgl64.Clamp(p.Gaze.Y(), -1, 1),
	}
	p.Intensity = mgl64.Clamp(p.Intensity, 0, 1)
	return p
}

func blendEye(a, b EyePose, t float64) EyePose {
	return EyePose{
		Openness: lerp(a.Openness, b.Openness, t),
		Squint:   lerp(a.Squint, b.Squint, t),
		Size:     lerp(a.Size, b.Size, t),
	}
}

// Blend interpolates linearly from a to b by fraction t and clamps the
// result. Callers wanting eased morphs pass Smoothstep(elapsedFraction).
func Blend(a, b Pose, t float64) Pose {
	t = mgl64.Clamp(t, 0, 1)
	out := Pose{
		LeftEye:  blendEye(a.LeftEye, b.LeftEye, t),
		RightEye: blendEye(a.RightEye, b.RightEye, t),
		Mouth: MouthPose{
			Curve: lerp(a.Mouth.Curve, b.Mouth.Curve, t),
			Open:  lerp(a.Mouth.Open, b.Mouth.Open, t),
			Width: lerp(a.Mouth.Width, b.Mouth.Width, t),
		},
		Gaze: mgl64.Vec2{
			lerp(a.Gaze.X(), b.Gaze.X(), t),
			lerp(a.Gaze.Y(), b.Gaze.Y(), t),
		},
		Intensity: lerp(a.Intensity, b.Intensity, t),
	}
	return out.Clamped()
}

// WithGaze returns a copy of p looking at (x, y).
func (p Pose) WithGaze(x, y float64) Pose {
	p.Gaze = mgl64.Vec2{mgl64.Clamp(x, -1, 1), mgl64.Clamp(y, -1, 1)}
	return p
}

// WithIntensity returns a copy of p with the intensity multiplier applied.
func (p Pose) WithIntensity(v float64) Pose {
	p.Intensity = mgl64.Clamp(v, 0, 1)
	return p
}

// Scaled blends p toward the neutral pose as intensity drops, so a command
// with intensity 0.5 lands halfway between neutral and the full expression.
// Gaze is left alone; it is not part of an expression's identity.
func (p Pose) Scaled() Pose {
	if p.Intensity >= 1 {
		return p
	}
	n := NeutralPose()
	out := Blend(n, p, p.Intensity)
	out.Gaze = p.Gaze
	out.Intensity = p.Intensity
	return out
}
