package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/openclaw/clawface/internal/bus"
	"github.com/openclaw/clawface/internal/config"
	"github.com/openclaw/clawface/internal/control"
	"github.com/openclaw/clawface/internal/face"
	"github.com/openclaw/clawface/internal/metrics"
)

// Frame is the fully resolved per-tick output pushed to render clients.
// Blink and breathing overlays are already composed onto the pose, so the
// renderer never needs to know about sub-animation state.
type Frame struct {
	Pose       face.Pose       `json:"pose"`
	Expression face.Expression `json:"expression"`
	State      face.State      `json:"state"`
	AutoCycle  bool            `json:"auto_cycle"`
	BlinkPhase face.BlinkPhase `json:"blink_phase"`
	Status     string          `json:"status"`
	TimeMs     int64           `json:"time_ms"`
}

// Server serves the control API and the render frame stream.
type Server struct {
	cfg    *config.Config
	engine *face.Engine
	status *control.StatusManager
	log    zerolog.Logger
	hub    *Hub

	httpSrv  *http.Server
	upgrader websocket.Upgrader
	onQuit   func()
}

// New creates a server around the engine and status manager.
func New(cfg *config.Config, engine *face.Engine, status *control.StatusManager, log zerolog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		status: status,
		log:    log.With().Str("component", "server").Logger(),
		hub:    NewHub(log),
		upgrader: websocket.Upgrader{
			// The UI is served same-origin; local tools connect directly.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	return s
}

// SetOnQuit registers the shutdown callback behind /api/quit.
func (s *Server) SetOnQuit(fn func()) { s.onQuit = fn }

// SetEvents attaches the event bus; the hub publishes client lifecycle
// events on it.
func (s *Server) SetEvents(events *bus.EventBus) { s.hub.SetEvents(events) }

// PushEvent forwards a bus event to every render client as an out-of-band
// message, so state changes reach the UI between pose frames. Event
// messages carry an "event" key; pose frames never do, which is how
// clients tell the two apart.
func (s *Server) PushEvent(ev bus.Event) {
	if s.hub.ClientCount() == 0 {
		return
	}
	msg, err := json.Marshal(map[string]any{
		"event": ev.Type,
		"data":  ev.Data,
	})
	if err != nil {
		return
	}
	s.hub.Broadcast(msg)
}

// IsLoopbackAddress reports whether host parses as a loopback IP.
func IsLoopbackAddress(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/command", s.handleCommand)
	r.Get("/api/config", s.handleConfig)
	r.Get("/api/expressions", s.handleExpressions)
	r.Get("/api/state", s.handleState)
	r.Get("/api/quit", s.handleQuit)
	r.Get("/ws", s.handleWS)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start begins listening. Returns the bound address, useful when port 0
// asked for an ephemeral port.
func (s *Server) Start() (string, error) {
	host := s.cfg.Display.Host
	if !IsLoopbackAddress(host) && host != "0.0.0.0" && host != "::" {
		s.log.Warn().Str("host", host).Msg("binding to a non-loopback interface")
	}

	addr := fmt.Sprintf("%s:%d", host, s.cfg.Display.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", addr, err)
	}

	s.httpSrv = &http.Server{Handler: s.Routes()}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("http server stopped")
		}
	}()

	bound := ln.Addr().String()
	s.log.Info().Str("addr", bound).Msg("claw face server listening")
	return bound, nil
}

// Shutdown stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// BroadcastFrame pushes one resolved frame to all render clients.
func (s *Server) BroadcastFrame(now time.Time) {
	if s.hub.ClientCount() == 0 {
		return
	}
	frame := Frame{
		Pose:       s.engine.Pose(now),
		Expression: s.engine.CurrentExpression(),
		State:      s.engine.State(),
		AutoCycle:  s.engine.AutoCycle(),
		BlinkPhase: s.engine.BlinkPhase(),
		Status:     s.status.Current(),
		TimeMs:     now.UnixMilli(),
	}
	msg, err := json.Marshal(frame)
	if err != nil {
		return
	}
	s.hub.Broadcast(msg)
	metrics.FramesStreamed.Inc()
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug().Err(err).Msg("response write failed")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"text": s.status.Current()})
}

// handleCommand echoes the current command file with only known, valid
// fields, the same surface the original UI polls.
func (s *Server) handleCommand(w http.ResponseWriter, _ *http.Request) {
	raw, err := os.ReadFile(s.cfg.Control.CommandFile)
	if err != nil {
		s.writeJSON(w, control.Command{})
		return
	}
	cmd, err := control.ParseCommand(raw)
	if err != nil {
		s.writeJSON(w, control.Command{})
		return
	}
	s.writeJSON(w, cmd.Sanitized())
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.cfg)
}

func (s *Server) handleExpressions(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]any{
		"canonical": face.Canonical(),
		"aliases":   face.Aliases(),
		"weights":   face.Weights(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	now := time.Now()
	gx, gy := s.engine.Gaze()
	s.writeJSON(w, map[string]any{
		"expression":  s.engine.CurrentExpression(),
		"state":       s.engine.State(),
		"auto_cycle":  s.engine.AutoCycle(),
		"blink_phase": s.engine.BlinkPhase(),
		"gaze":        map[string]float64{"x": gx, "y": gy},
		"pose":        s.engine.Pose(now),
	})
}

func (s *Server) handleQuit(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]bool{"ok": true})
	if s.onQuit != nil {
		go s.onQuit()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	go s.hub.serve(conn)
}
