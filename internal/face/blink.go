package face

import "time"

// BlinkPhase identifies where the blink sub-animation is in its cycle.
type BlinkPhase string

const (
	BlinkWaiting BlinkPhase = "waiting"
	BlinkClosing BlinkPhase = "closing"
	BlinkClosed  BlinkPhase = "closed"
	BlinkOpening BlinkPhase = "opening"
)

// BlinkConfig holds blink timing. Zero values are replaced with defaults.
type BlinkConfig struct {
	IntervalMin       time.Duration
	IntervalMax       time.Duration
	DoubleBlinkChance float64
	CloseDuration     time.Duration
	HoldDuration      time.Duration
	OpenDuration      time.Duration
}

// DefaultBlinkConfig returns the stock blink timing.
func DefaultBlinkConfig() BlinkConfig {
	return BlinkConfig{
		IntervalMin:       3 * time.Second,
		IntervalMax:       6 * time.Second,
		DoubleBlinkChance: 0.15,
		CloseDuration:     100 * time.Millisecond,
		HoldDuration:      30 * time.Millisecond,
		OpenDuration:      100 * time.Millisecond,
	}
}

func (c BlinkConfig) withDefaults() BlinkConfig {
	d := DefaultBlinkConfig()
	if c.IntervalMin <= 0 {
		c.IntervalMin = d.IntervalMin
	}
	if c.IntervalMax < c.IntervalMin {
		c.IntervalMax = c.IntervalMin
	}
	if c.CloseDuration <= 0 {
		c.CloseDuration = d.CloseDuration
	}
	if c.HoldDuration < 0 {
		c.HoldDuration = d.HoldDuration
	}
	if c.OpenDuration <= 0 {
		c.OpenDuration = d.OpenDuration
	}
	return c
}

// BlinkController owns the blink sub-animation. While a blink runs it
// contributes a transient eye-openness override on top of whatever the base
// expression says; expression changes never preempt it.
type BlinkController struct {
	cfg     BlinkConfig
	clock   Clock
	sampler *Sampler

	phase      BlinkPhase
	phaseStart time.Time
	nextAt     time.Time
}

// NewBlinkController schedules the first blink and returns the controller.
func NewBlinkController(cfg BlinkConfig, clock Clock, sampler *Sampler) *BlinkController {
	b := &BlinkController{
		cfg:     cfg.withDefaults(),
		clock:   clock,
		sampler: sampler,
		phase:   BlinkWaiting,
	}
	b.nextAt = clock.Now().Add(sampler.Between(b.cfg.IntervalMin, b.cfg.IntervalMax))
	return b
}

// Phase returns the current blink phase.
func (b *BlinkController) Phase() BlinkPhase { return b.phase }

// NextBlinkAt returns when the next scheduled blink fires.
func (b *BlinkController) NextBlinkAt() time.Time { return b.nextAt }

// Trigger forces an immediate blink regardless of the schedule. It is a
// no-op while a blink is already running.
func (b *BlinkController) Trigger(now time.Time) {
	if b.phase != BlinkWaiting {
		return
	}
	b.phase = BlinkClosing
	b.phaseStart = now
}

// Tick advances the blink state machine to now.
func (b *BlinkController) Tick(now time.Time) {
	switch b.phase {
	case BlinkWaiting:
		if !now.Before(b.nextAt) {
			b.phase = BlinkClosing
			b.phaseStart = now
		}
	case BlinkClosing:
		if now.Sub(b.phaseStart) >= b.cfg.CloseDuration {
			b.phase = BlinkClosed
			b.phaseStart = now
		}
	case BlinkClosed:
		if now.Sub(b.phaseStart) >= b.cfg.HoldDuration {
			b.phase = BlinkOpening
			b.phaseStart = now
		}
	case BlinkOpening:
		if now.Sub(b.phaseStart) >= b.cfg.OpenDuration {
			b.phase = BlinkWaiting
			b.reschedule(now)
		}
	}
}

// reschedule resamples nextBlinkAt after a completed blink, occasionally
// queueing a quick double blink.
func (b *BlinkController) reschedule(now time.Time) {
	if b.sampler.Chance(b.cfg.DoubleBlinkChance) {
		b.nextAt = now.Add(300 * time.Millisecond)
		return
	}
	b.nextAt = now.Add(b.sampler.Between(b.cfg.IntervalMin, b.cfg.IntervalMax))
}

// Amount returns how closed the eyes are right now, 0 fully open to 1
// fully closed, eased so the lid accelerates then settles.
func (b *BlinkController) Amount(now time.Time) float64 {
	switch b.phase {
	case BlinkClosing:
		return Smoothstep(float64(now.Sub(b.phaseStart)) / float64(b.cfg.CloseDuration))
	case BlinkClosed:
		return 1
	case BlinkOpening:
		return 1 - Smoothstep(float64(now.Sub(b.phaseStart))/float64(b.cfg.OpenDuration))
	default:
		return 0
	}
}
