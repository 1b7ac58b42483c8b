package control

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultStatusMaxLen bounds the status line; external writers are not
// trusted to keep it short.
const DefaultStatusMaxLen = 120

// StatusManager maintains the authoritative status line text read from the
// status file. It normalizes whitespace, truncates, and only notifies
// downstream when the value actually changes.
type StatusManager struct {
	path     string
	interval time.Duration
	maxLen   int
	log      zerolog.Logger

	mu       sync.RWMutex
	current  string
	onChange func(string)
}

// NewStatusManager creates a manager polling path at the given cadence.
func NewStatusManager(path string, interval time.Duration, maxLen int, log zerolog.Logger) *StatusManager {
	if interval <= 0 {
		interval = 7 * time.Second
	}
	if maxLen <= 0 {
		maxLen = DefaultStatusMaxLen
	}
	return &StatusManager{
		path:     path,
		interval: interval,
		maxLen:   maxLen,
		log:      log.With().Str("component", "status").Logger(),
	}
}

// SetOnChange registers the downstream publish callback.
func (m *StatusManager) SetOnChange(fn func(string)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Current returns the authoritative status text.
func (m *StatusManager) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Normalize collapses internal whitespace to single spaces, trims, and
// truncates to max runes.
func Normalize(text string, maxLen int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if maxLen > 0 && len(runes) > maxLen {
		text = string(runes[:maxLen])
	}
	return text
}

// Poll reads the status file once. A missing file means an empty status; a
// read error leaves the current value untouched.
func (m *StatusManager) Poll() {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			m.update("")
		} else {
			m.log.Debug().Err(err).Msg("status read failed, keeping previous value")
		}
		return
	}
	m.update(Normalize(string(raw), m.maxLen))
}

func (m *StatusManager) update(text string) {
	m.mu.Lock()
	if text == m.current {
		m.mu.Unlock()
		return
	}
	m.current = text
	fn := m.onChange
	m.mu.Unlock()

	m.log.Debug().Str("text", text).Msg("status line changed")
	if fn != nil {
		fn(text)
	}
}

// Run polls until ctx is done. It never blocks anything but itself.
func (m *StatusManager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll()
		}
	}
}
