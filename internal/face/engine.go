package face

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State identifies what the state machine is doing with the base expression.
type State string

const (
	StateIdle          State = "idle"
	StateTransitioning State = "transitioning"
	StateHeld          State = "held"
)

// Origin says who asked for a transition. External commands preempt
// idle-scheduler changes; internal reverts come from hold expiry.
type Origin string

const (
	OriginExternal Origin = "external"
	OriginIdle     Origin = "idle"
	OriginInternal Origin = "internal"
)

// RequestOptions qualifies an expression request.
type RequestOptions struct {
	Origin    Origin
	Force     bool          // restart the morph even if already targeting this expression
	Momentary bool          // override the table's momentary flag
	Hold      time.Duration // override the hold duration (momentary or forced)
}

// ChangeEvent is emitted whenever the intended expression changes.
type ChangeEvent struct {
	From   Expression
	To     Expression
	Origin Origin
}

// EngineConfig holds morph and overlay timing.
type EngineConfig struct {
	TransitionDuration time.Duration // expression morph length
	ForcedHold         time.Duration // idle suppression window after an external command
	MomentaryHold      time.Duration // hold for momentary requests that carry no duration
	BreathPeriod       time.Duration
	BreathDepth        float64 // eye-size amplitude of the breathing overlay
}

// DefaultEngineConfig returns the stock engine timing.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TransitionDuration: 300 * time.Millisecond,
		ForcedHold:         10 * time.Second,
		MomentaryHold:      1200 * time.Millisecond,
		BreathPeriod:       4 * time.Second,
		BreathDepth:        0.015,
	}
}

func (c EngineConfig) withDefaults() EngineConfig {
	d := DefaultEngineConfig()
	if c.TransitionDuration <= 0 {
		c.TransitionDuration = d.TransitionDuration
	}
	if c.ForcedHold <= 0 {
		c.ForcedHold = d.ForcedHold
	}
	if c.MomentaryHold <= 0 {
		c.MomentaryHold = d.MomentaryHold
	}
	if c.BreathPeriod <= 0 {
		c.BreathPeriod = d.BreathPeriod
	}
	if c.BreathDepth < 0 {
		c.BreathDepth = d.BreathDepth
	}
	return c
}

// Options configures a new Engine.
type Options struct {
	Engine EngineConfig
	Blink  BlinkConfig
	Idle   IdleConfig
	Clock  Clock
	Seed   int64 // 0 means seed from the wall clock
	Logger zerolog.Logger
}

// Engine is the expression state machine and the single owner of the
// animation state. Blink and idle behavior mutate it only through the
// transition API; the render reader sees a composed Pose snapshot.
type Engine struct {
	mu      sync.Mutex
	cfg     EngineConfig
	clock   Clock
	sampler *Sampler
	log     zerolog.Logger

	state    State
	current  Expression // intended expression
	baseline Expression // sustained expression a momentary reverts to

	startPose  Pose // snapshot at transition start
	targetPose Pose
	transStart time.Time
	transDur   time.Duration

	holdUntil   time.Time // momentary expiry, valid in StateHeld
	pendingHold time.Duration
	forcedUntil time.Time // external-command idle suppression window

	autoCycle bool
	gazeX     float64
	gazeY     float64
	intensity float64

	blink *BlinkController
	idle  *idleScheduler

	breathStart time.Time

	onChange func(ChangeEvent)
}

// NewEngine constructs an engine starting at Idle(normal) with auto-cycle
// enabled.
func NewEngine(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	var sampler *Sampler
	if opts.Seed != 0 {
		sampler = NewSampler(opts.Seed)
	} else {
		sampler = NewTimeSampler()
	}
	now := opts.Clock.Now()

	neutral, _ := Lookup(ExpressionNormal)
	e := &Engine{
		cfg:         opts.Engine.withDefaults(),
		clock:       opts.Clock,
		sampler:     sampler,
		log:         opts.Logger.With().Str("component", "engine").Logger(),
		state:       StateIdle,
		current:     ExpressionNormal,
		baseline:    ExpressionNormal,
		startPose:   neutral.Pose,
		targetPose:  neutral.Pose,
		autoCycle:   true,
		intensity:   1,
		breathStart: now,
	}
	e.blink = NewBlinkController(opts.Blink, opts.Clock, sampler)
	e.idle = newIdleScheduler(opts.Idle, now, sampler)
	return e
}

// SetOnChange registers a callback fired (outside the engine lock) when the
// intended expression changes.
func (e *Engine) SetOnChange(fn func(ChangeEvent)) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

// CurrentExpression returns the intended expression.
func (e *Engine) CurrentExpression() Expression {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// State returns the state machine's phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// AutoCycle reports whether the idle scheduler may originate expression
// changes.
func (e *Engine) AutoCycle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.autoCycle
}

// SetAutoCycle toggles idle-originated expression changes. An in-flight
// transition is never interrupted.
func (e *Engine) SetAutoCycle(enabled bool) {
	e.mu.Lock()
	e.autoCycle = enabled
	e.mu.Unlock()
}

// SetIntensity scales how far poses deviate from neutral, 0 to 1.
func (e *Engine) SetIntensity(v float64) {
	e.mu.Lock()
	e.intensity = math.Max(0, math.Min(1, v))
	e.mu.Unlock()
}

// TriggerBlink forces an immediate blink.
func (e *Engine) TriggerBlink() {
	e.mu.Lock()
	e.blink.Trigger(e.clock.Now())
	e.mu.Unlock()
}

// LookAt redirects the gaze, externally. The morph mechanism is the same
// one expressions use, so gaze changes are just as smooth.
func (e *Engine) LookAt(x, y float64) {
	e.mu.Lock()
	e.lookAtLocked(x, y, e.clock.Now())
	e.mu.Unlock()
}

// RequestExpression validates name against the expression table and begins
// a morph toward it. Requesting the expression already being targeted is a
// no-op unless Force is set. Returns false for unknown names; engine state
// is unchanged in that case.
func (e *Engine) RequestExpression(name Expression, opts RequestOptions) bool {
	if _, ok := Lookup(name); !ok {
		e.log.Warn().Str("expression", string(name)).Msg("unknown expression rejected")
		return false
	}
	e.mu.Lock()
	ev, changed := e.requestLocked(name, opts, e.clock.Now())
	fn := e.onChange
	e.mu.Unlock()
	if changed && fn != nil {
		fn(ev)
	}
	return true
}

// Tick advances hold timers, the blink controller and the idle scheduler to
// now. It is synchronous, non-blocking and safe to call at frame rate.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()

	// Collapse a finished morph so the pose is exactly the target and
	// further ticks are idempotent.
	if e.state == StateTransitioning && e.fraction(now) >= 1 {
		e.finishTransition(now)
	}

	// Momentary expiry reverts to the sustained baseline.
	var ev ChangeEvent
	changed := false
	if e.state == StateHeld && !now.Before(e.holdUntil) {
		ev, changed = e.requestLocked(e.baseline, RequestOptions{Origin: OriginInternal}, now)
	}

	e.blink.Tick(now)
	e.idle.tick(e, now)

	fn := e.onChange
	e.mu.Unlock()

	if changed && fn != nil {
		fn(ev)
	}
}

// Pose returns the fully resolved pose at now: the interpolated base
// expression with intensity scaling, then the blink and breathing overlays
// composed on top. Render readers need nothing else.
func (e *Engine) Pose(now time.Time) Pose {
	e.mu.Lock()
	defer e.mu.Unlock()

	base := e.basePose(now).WithIntensity(e.intensity).Scaled()

	if amt := e.blink.Amount(now); amt > 0 {
		base.LeftEye.Openness *= 1 - amt
		base.RightEye.Openness *= 1 - amt
	}

	phase := math.Mod(now.Sub(e.breathStart).Seconds(), e.cfg.BreathPeriod.Seconds())
	breath := math.Sin(2 * math.Pi * phase / e.cfg.BreathPeriod.Seconds())
	base.LeftEye.Size += e.cfg.BreathDepth * breath
	base.RightEye.Size += e.cfg.BreathDepth * breath

	return base.Clamped()
}

// BlinkPhase exposes the blink sub-state for the API surface.
func (e *Engine) BlinkPhase() BlinkPhase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.blink.Phase()
}

// Gaze returns the current gaze target.
func (e *Engine) Gaze() (x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gazeX, e.gazeY
}

// --- internals, called with e.mu held ---

func (e *Engine) fraction(now time.Time) float64 {
	if e.transDur <= 0 {
		return 1
	}
	f := float64(now.Sub(e.transStart)) / float64(e.transDur)
	return math.Max(0, math.Min(1, f))
}

// basePose is the interpolated expression pose before overlays.
func (e *Engine) basePose(now time.Time) Pose {
	if e.state != StateTransitioning {
		return e.targetPose
	}
	return Blend(e.startPose, e.targetPose, Smoothstep(e.fraction(now)))
}

func (e *Engine) finishTransition(now time.Time) {
	e.startPose = e.targetPose
	if e.pendingHold > 0 {
		e.state = StateHeld
		e.holdUntil = now.Add(e.pendingHold)
		e.pendingHold = 0
		return
	}
	if e.current != e.baseline {
		// A momentary whose hold already lapsed mid-morph; expire it on
		// the next tick.
		e.state = StateHeld
		e.holdUntil = now
		e.pendingHold = 0
		return
	}
	e.state = StateIdle
}

func (e *Engine) idleAllowed(now time.Time) bool {
	if e.state == StateHeld {
		return false
	}
	return !now.Before(e.forcedUntil)
}

func (e *Engine) lookAtLocked(x, y float64, now time.Time) {
	e.gazeX = math.Max(-1, math.Min(1, x))
	e.gazeY = math.Max(-1, math.Min(1, y))
	e.startPose = e.basePose(now)
	e.targetPose = e.targetPose.WithGaze(e.gazeX, e.gazeY)
	e.transStart = now
	e.transDur = e.cfg.TransitionDuration
	if e.state == StateHeld {
		// Preserve the remaining hold across the gaze morph.
		e.pendingHold = e.holdUntil.Sub(now)
	}
	e.state = StateTransitioning
}

func (e *Engine) requestLocked(name Expression, opts RequestOptions, now time.Time) (ChangeEvent, bool) {
	def, ok := Lookup(name)
	if !ok {
		return ChangeEvent{}, false
	}

	// Already morphing toward this target: no-op, but an external command
	// still refreshes its idle-suppression window.
	if name == e.current && !opts.Force {
		if opts.Origin == OriginExternal {
			e.forcedUntil = now.Add(e.holdFor(opts, def))
		}
		return ChangeEvent{}, false
	}

	momentary := def.Momentary || opts.Momentary
	hold := opts.Hold
	if hold <= 0 {
		hold = def.Hold
	}
	// A sustained expression requested as a pulse carries no table hold;
	// without a floor it would revert the tick after the morph finishes.
	if momentary && hold <= 0 {
		hold = e.cfg.MomentaryHold
	}

	// A momentary reverts to the last sustained expression.
	from := e.current
	if !momentary {
		e.baseline = name
	}

	e.startPose = e.basePose(now)
	e.targetPose = def.Pose.WithGaze(e.gazeX, e.gazeY)
	e.transStart = now
	e.transDur = e.cfg.TransitionDuration
	e.state = StateTransitioning
	e.current = name

	e.pendingHold = 0
	if momentary {
		e.pendingHold = hold
	}
	if opts.Origin == OriginExternal {
		e.forcedUntil = now.Add(e.holdFor(opts, def))
	}

	e.log.Debug().
		Str("from", string(from)).
		Str("to", string(name)).
		Str("origin", string(opts.Origin)).
		Msg("expression transition")

	return ChangeEvent{From: from, To: name, Origin: opts.Origin}, true
}

func (e *Engine) holdFor(opts RequestOptions, def Definition) time.Duration {
	if opts.Hold > 0 {
		return opts.Hold
	}
	if def.Momentary && def.Hold > 0 {
		return def.Hold
	}
	return e.cfg.ForcedHold
}
