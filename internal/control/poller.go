package control

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/openclaw/clawface/internal/face"
	"github.com/openclaw/clawface/internal/metrics"
)

// DefaultPollInterval is the reference command poll cadence. It is a
// tunable, not a correctness-critical value.
const DefaultPollInterval = time.Second

// Poller reads the external command file at a fixed cadence, validates the
// payload, and feeds the result into the engine. An fsnotify watch on the
// control directory wakes it early when the file is rewritten, but the
// timer remains the source of truth so a lost event only delays a command
// by one cycle. All I/O stays off the render tick.
type Poller struct {
	path     string
	interval time.Duration
	engine   *face.Engine
	log      zerolog.Logger

	lastPayload []byte
	lastBlink   int64
	lastSeq     int64

	onApply func(Command)
}

// SetOnApply registers a callback invoked after a polled command changed
// engine state. Used to fan command activity out onto the event bus.
func (p *Poller) SetOnApply(fn func(Command)) {
	p.onApply = fn
}

// NewPoller creates a poller for the command file at path.
func NewPoller(path string, interval time.Duration, engine *face.Engine, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		path:     path,
		interval: interval,
		engine:   engine,
		log:      log.With().Str("component", "poller").Logger(),
	}
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	wake := p.watch(ctx)

	p.Poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll()
		case <-wake:
			p.Poll()
		}
	}
}

// watch sets up the fsnotify wake channel. Watch failure is not fatal; the
// ticker alone still satisfies the polling contract.
func (p *Poller) watch(ctx context.Context) <-chan struct{} {
	wake := make(chan struct{}, 1)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.log.Debug().Err(err).Msg("fsnotify unavailable, timer-only polling")
		return wake
	}
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil || watcher.Add(dir) != nil {
		p.log.Debug().Str("dir", dir).Msg("cannot watch control directory, timer-only polling")
		watcher.Close()
		return wake
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != filepath.Base(p.path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return wake
}

// Poll performs one read-validate-apply cycle. Transient I/O failures and
// malformed payloads are skipped; the next cycle retries.
func (p *Poller) Poll() {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		if !os.IsNotExist(err) {
			metrics.PollErrors.Inc()
			p.log.Debug().Err(err).Msg("command read failed, retrying next cycle")
		}
		return
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return
	}

	// A payload identical to the last seen one is a stale write observed
	// again through the polling race; neither applying nor re-counting it
	// may have a second effect.
	if bytes.Equal(raw, p.lastPayload) {
		return
	}

	cmd, err := ParseCommand(raw)
	if err != nil {
		metrics.PollErrors.Inc()
		p.log.Debug().Err(err).Msg("malformed command payload skipped")
		p.lastPayload = append(p.lastPayload[:0], raw...)
		return
	}

	p.apply(cmd)
	p.lastPayload = append(p.lastPayload[:0], raw...)
}

// apply feeds the validated patch into the engine, field by field.
func (p *Poller) apply(cmd Command) {
	applied := false

	if cmd.Expression != nil {
		if canonical, ok := face.Resolve(*cmd.Expression); ok {
			p.engine.RequestExpression(canonical, face.RequestOptions{Origin: face.OriginExternal})
			applied = true
		} else {
			// Partial acceptance: drop only this field.
			p.log.Warn().Str("expression", *cmd.Expression).Msg("unknown expression dropped")
		}
	}
	if cmd.AutoCycle != nil {
		p.engine.SetAutoCycle(*cmd.AutoCycle)
		applied = true
	}
	if cmd.Intensity != nil {
		p.engine.SetIntensity(*cmd.Intensity)
		applied = true
	}
	if cmd.Look != nil {
		p.engine.LookAt(cmd.Look.X, cmd.Look.Y)
		applied = true
	}
	if cmd.BlinkSeq != nil {
		if *cmd.BlinkSeq > p.lastBlink {
			p.lastBlink = *cmd.BlinkSeq
			p.engine.TriggerBlink()
			applied = true
		}
	}
	if cmd.Sequence != nil && cmd.SequenceSeq != nil {
		if *cmd.SequenceSeq > p.lastSeq {
			p.lastSeq = *cmd.SequenceSeq
			if canonical, ok := face.Resolve(*cmd.Sequence); ok {
				p.engine.RequestExpression(canonical, face.RequestOptions{
					Origin:    face.OriginExternal,
					Momentary: true,
				})
				applied = true
			} else {
				p.log.Warn().Str("sequence", *cmd.Sequence).Msg("unknown sequence dropped")
			}
		}
	}

	if applied {
		metrics.CommandsApplied.Inc()
		if p.onApply != nil {
			p.onApply(cmd)
		}
	}
}
