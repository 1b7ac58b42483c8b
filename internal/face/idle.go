package face

import "time"

// IdleConfig holds the timer ranges for scheduler-originated behavior.
type IdleConfig struct {
	LookIntervalMin       time.Duration
	LookIntervalMax       time.Duration
	LookCenterChance      float64
	ExpressionIntervalMin time.Duration
	ExpressionIntervalMax time.Duration
}

// DefaultIdleConfig returns the stock idle timing.
func DefaultIdleConfig() IdleConfig {
	return IdleConfig{
		LookIntervalMin:       2 * time.Second,
		LookIntervalMax:       5 * time.Second,
		LookCenterChance:      0.3,
		ExpressionIntervalMin: 8 * time.Second,
		ExpressionIntervalMax: 20 * time.Second,
	}
}

func (c IdleConfig) withDefaults() IdleConfig {
	d := DefaultIdleConfig()
	if c.LookIntervalMin <= 0 {
		c.LookIntervalMin = d.LookIntervalMin
	}
	if c.LookIntervalMax < c.LookIntervalMin {
		c.LookIntervalMax = c.LookIntervalMin
	}
	if c.ExpressionIntervalMin <= 0 {
		c.ExpressionIntervalMin = d.ExpressionIntervalMin
	}
	if c.ExpressionIntervalMax < c.ExpressionIntervalMin {
		c.ExpressionIntervalMax = c.ExpressionIntervalMin
	}
	return c
}

// idleScheduler decides, at randomized intervals, to nudge the gaze or
// change expression. It never fires while an external hold or momentary
// expression is active, and it only talks to the engine through the
// transition API, so the engine stays the single writer of its state.
type idleScheduler struct {
	cfg     IdleConfig
	sampler *Sampler

	nextLookAt       time.Time
	nextExpressionAt time.Time
}

func newIdleScheduler(cfg IdleConfig, now time.Time, sampler *Sampler) *idleScheduler {
	s := &idleScheduler{cfg: cfg.withDefaults(), sampler: sampler}
	s.nextLookAt = now.Add(sampler.Between(s.cfg.LookIntervalMin, s.cfg.LookIntervalMax))
	s.nextExpressionAt = now.Add(sampler.Between(s.cfg.ExpressionIntervalMin, s.cfg.ExpressionIntervalMax))
	return s
}

// tick is called from the engine with its mutex held.
func (s *idleScheduler) tick(e *Engine, now time.Time) {
	if !e.idleAllowed(now) {
		return
	}

	if !now.Before(s.nextLookAt) {
		if s.sampler.Chance(s.cfg.LookCenterChance) {
			e.lookAtLocked(0, 0, now)
		} else {
			e.lookAtLocked(s.sampler.Range(-1, 1), s.sampler.Range(-0.5, 0.5), now)
		}
		s.nextLookAt = now.Add(s.sampler.Between(s.cfg.LookIntervalMin, s.cfg.LookIntervalMax))
	}

	if !now.Before(s.nextExpressionAt) {
		if e.autoCycle {
			next := s.sampler.PickExpression(Weights(), e.current)
			e.requestLocked(next, RequestOptions{Origin: OriginIdle}, now)
		}
		s.nextExpressionAt = now.Add(s.sampler.Between(s.cfg.ExpressionIntervalMin, s.cfg.ExpressionIntervalMax))
	}
}
