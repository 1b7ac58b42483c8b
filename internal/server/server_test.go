package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/openclaw/clawface/internal/bus"
	"github.com/openclaw/clawface/internal/config"
	"github.com/openclaw/clawface/internal/control"
	"github.com/openclaw/clawface/internal/face"
)

func newTestServer(t *testing.T) (*Server, *face.Engine, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Control.CommandFile = filepath.Join(dir, "command.json")
	cfg.Control.StatusFile = filepath.Join(dir, "status.txt")

	engine := face.NewEngine(face.Options{Seed: 1})
	status := control.NewStatusManager(cfg.Control.StatusFile, time.Second, 120, zerolog.Nop())
	return New(cfg, engine, status, zerolog.Nop()), engine, cfg
}

func getJSON(t *testing.T, ts *httptest.Server, path string, out any) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}

func TestIsLoopbackAddress(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"127.0.0.1", true},
		{"127.1.2.3", true},
		{"::1", true},
		{"0.0.0.0", false},
		{"192.168.1.5", false},
		{"localhost", false}, // names are not resolved
		{"", false},
	}
	for _, tt := range tests {
		if got := IsLoopbackAddress(tt.host); got != tt.want {
			t.Errorf("IsLoopbackAddress(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestServer_StateEndpoint(t *testing.T) {
	s, engine, _ := newTestServer(t)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	engine.RequestExpression(face.ExpressionHappy, face.RequestOptions{Origin: face.OriginExternal})

	var state struct {
		Expression string `json:"expression"`
		State      string `json:"state"`
		AutoCycle  bool   `json:"auto_cycle"`
	}
	getJSON(t, ts, "/api/state", &state)
	if state.Expression != "happy" {
		t.Errorf("expression = %q", state.Expression)
	}
	if state.State != "transitioning" {
		t.Errorf("state = %q", state.State)
	}
	if !state.AutoCycle {
		t.Error("auto_cycle = false, want true")
	}
}

func TestServer_ExpressionsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	var out struct {
		Canonical []string          `json:"canonical"`
		Aliases   map[string]string `json:"aliases"`
		Weights   map[string]int    `json:"weights"`
	}
	getJSON(t, ts, "/api/expressions", &out)
	if len(out.Canonical) == 0 {
		t.Fatal("no canonical expressions listed")
	}
	if out.Aliases["neutral"] != "normal" {
		t.Errorf("aliases = %v", out.Aliases)
	}
	if _, ok := out.Weights["wink"]; ok {
		t.Error("weight table lists the momentary wink")
	}
}

func TestServer_StatusEndpoint(t *testing.T) {
	s, _, cfg := newTestServer(t)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	if err := os.WriteFile(cfg.Control.StatusFile, []byte("deploying\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s.status.Poll()

	var out map[string]string
	getJSON(t, ts, "/api/status", &out)
	if out["text"] != "deploying" {
		t.Errorf("status = %q", out["text"])
	}
}

func TestServer_CommandEndpointSanitizes(t *testing.T) {
	s, _, cfg := newTestServer(t)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	payload := `{"expression": "neutral", "auto_cycle": true, "junk": 1}`
	if err := os.WriteFile(cfg.Control.CommandFile, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	var out struct {
		Expression *string `json:"expression"`
		AutoCycle  *bool   `json:"auto_cycle"`
	}
	getJSON(t, ts, "/api/command", &out)
	if out.Expression == nil || *out.Expression != "normal" {
		t.Errorf("expression not canonicalized: %v", out.Expression)
	}
	if out.AutoCycle == nil || !*out.AutoCycle {
		t.Error("auto_cycle missing from echo")
	}
}

func TestServer_CommandEndpointMissingFile(t *testing.T) {
	s, _, _ := newTestServer(t)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	var out map[string]any
	getJSON(t, ts, "/api/command", &out)
	if len(out) != 0 {
		t.Errorf("missing command file echoed %v, want empty object", out)
	}
}

func TestServer_QuitInvokesCallback(t *testing.T) {
	s, _, _ := newTestServer(t)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	quit := make(chan struct{})
	s.SetOnQuit(func() { close(quit) })

	var out map[string]bool
	getJSON(t, ts, "/api/quit", &out)
	if !out["ok"] {
		t.Error("quit did not acknowledge")
	}
	select {
	case <-quit:
	case <-time.After(2 * time.Second):
		t.Fatal("quit callback never fired")
	}
}

func TestServer_PushEventReachesWebsocketClient(t *testing.T) {
	s, _, _ := newTestServer(t)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	type eventMsg struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	done := make(chan eventMsg, 1)
	go func() {
		var m eventMsg
		if err := conn.ReadJSON(&m); err == nil {
			done <- m
		}
	}()

	// The hub registers the client asynchronously; push until delivered.
	ev := bus.Event{
		Type: bus.EventTypeExpressionChanged,
		Data: map[string]any{"from": "normal", "to": "happy"},
	}
	deadline := time.After(2 * time.Second)
	for {
		s.PushEvent(ev)
		select {
		case m := <-done:
			if m.Event != string(bus.EventTypeExpressionChanged) {
				t.Errorf("event = %q", m.Event)
			}
			if m.Data["to"] != "happy" {
				t.Errorf("data = %v", m.Data)
			}
			return
		case <-deadline:
			t.Fatal("no event received over websocket")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestServer_WebsocketReceivesFrames(t *testing.T) {
	s, _, _ := newTestServer(t)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The hub registers the client asynchronously; broadcast until the
	// frame arrives.
	done := make(chan Frame, 1)
	go func() {
		var f Frame
		if err := conn.ReadJSON(&f); err == nil {
			done <- f
		}
	}()

	deadline := time.After(2 * time.Second)
	for {
		s.BroadcastFrame(time.Now())
		select {
		case f := <-done:
			if f.Expression != face.ExpressionNormal {
				t.Errorf("frame expression = %v", f.Expression)
			}
			if f.Pose.LeftEye.Size < 0.7 || f.Pose.LeftEye.Size > 1.3 {
				t.Errorf("frame pose out of bounds: %+v", f.Pose.LeftEye)
			}
			return
		case <-deadline:
			t.Fatal("no frame received over websocket")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
