// Package tracker implements the webcam face-tracking daemon: it detects a
// nearby person and steers the face's gaze toward them by writing look
// coordinates into the command file.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/openclaw/clawface/internal/control"
)

// greetings shown on the status line when a face is first acquired.
var greetings = []string{
	"Hi! I see you!",
	"Oh hey there!",
	"Hello!",
	"I see you!",
	"Hi there!",
	"Hey! :)",
}

// statusPrefix marks status lines written by the tracker so we never
// clobber someone else's message.
const statusPrefix = "[eyes] "

// Config holds tracker settings.
type Config struct {
	Device       int
	Interval     time.Duration
	Scale        float64 // downscale factor before detection
	CascadeFiles []string
	CommandFile  string
	StatusFile   string

	Smoothing       float64 // 0..1, lower is smoother
	NoFaceThreshold int     // frames without a face before clearing the look
	Greet           bool    // write a status-line greeting on face acquisition
}

// DefaultConfig returns the stock tracker settings.
func DefaultConfig() Config {
	return Config{
		Device:   0,
		Interval: 150 * time.Millisecond,
		Scale:    0.3,
		CascadeFiles: []string{
			"/usr/share/opencv4/haarcascades/haarcascade_frontalface_alt2.xml",
			"/usr/share/opencv4/haarcascades/haarcascade_frontalface_default.xml",
			"/usr/share/opencv4/haarcascades/haarcascade_profileface.xml",
		},
		Smoothing:       0.4,
		NoFaceThreshold: 8,
		Greet:           true,
	}
}

// MapFaceToGaze maps a face center inside the camera frame to gaze
// coordinates. The webcam image is mirrored, so X flips; a face at the top
// of the frame means the person is above the screen, so Y flips too. The
// result is dampened so the eyes stay natural instead of pinning to the
// edges.
func MapFaceToGaze(faceCX, faceCY float64, frameW, frameH int) (x, y float64) {
	nx := (faceCX/float64(frameW))*2 - 1
	ny := (faceCY/float64(frameH))*2 - 1

	x = math.Max(-0.8, math.Min(0.8, -nx*1.2))
	y = math.Max(-0.5, math.Min(0.5, -ny*0.8))
	return x, y
}

// Tracker runs the detection loop.
type Tracker struct {
	cfg      Config
	log      zerolog.Logger
	cascades []gocv.CascadeClassifier
	capture  *gocv.VideoCapture
	rng      *rand.Rand

	lastX, lastY float64
	noFaceCount  int
	active       bool
}

// New opens the camera and loads the cascade classifiers.
func New(cfg Config, log zerolog.Logger) (*Tracker, error) {
	t := &Tracker{
		cfg: cfg,
		log: log.With().Str("component", "tracker").Logger(),
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	for _, path := range cfg.CascadeFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		c := gocv.NewCascadeClassifier()
		if !c.Load(path) {
			c.Close()
			continue
		}
		t.cascades = append(t.cascades, c)
	}
	if len(t.cascades) == 0 {
		return nil, fmt.Errorf("no cascade classifiers could be loaded")
	}

	capture, err := gocv.VideoCaptureDevice(cfg.Device)
	if err != nil {
		t.closeCascades()
		return nil, fmt.Errorf("open camera device %d: %w", cfg.Device, err)
	}
	// Low resolution keeps detection cheap.
	capture.Set(gocv.VideoCaptureFrameWidth, 320)
	capture.Set(gocv.VideoCaptureFrameHeight, 240)
	t.capture = capture

	return t, nil
}

// Close releases the camera and classifiers.
func (t *Tracker) Close() {
	if t.capture != nil {
		t.capture.Close()
	}
	t.closeCascades()
}

func (t *Tracker) closeCascades() {
	for i := range t.cascades {
		t.cascades[i].Close()
	}
	t.cascades = nil
}

// Run detects until ctx is done.
func (t *Tracker) Run(ctx context.Context) error {
	img := gocv.NewMat()
	defer img.Close()
	small := gocv.NewMat()
	defer small.Close()
	gray := gocv.NewMat()
	defer gray.Close()

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	t.log.Info().Int("device", t.cfg.Device).Dur("interval", t.cfg.Interval).Msg("face tracker started")

	for {
		select {
		case <-ctx.Done():
			t.shutdown()
			return ctx.Err()
		case <-ticker.C:
		}

		if ok := t.capture.Read(&img); !ok || img.Empty() {
			continue
		}

		gocv.Resize(img, &small, image.Point{}, t.cfg.Scale, t.cfg.Scale, gocv.InterpolationLinear)
		gocv.CvtColor(small, &gray, gocv.ColorBGRToGray)

		rect, found := t.detect(gray)
		if !found {
			t.onFaceLost()
			continue
		}

		cx := float64(rect.Min.X+rect.Max.X) / 2
		cy := float64(rect.Min.Y+rect.Max.Y) / 2
		gx, gy := MapFaceToGaze(cx, cy, gray.Cols(), gray.Rows())

		// Exponential smoothing keeps the eyes from twitching.
		t.lastX += (gx - t.lastX) * t.cfg.Smoothing
		t.lastY += (gy - t.lastY) * t.cfg.Smoothing
		t.noFaceCount = 0

		if !t.active {
			t.active = true
			t.greet()
		}
		t.writeLook(t.lastX, t.lastY)
	}
}

// detect returns the largest face found by any classifier.
func (t *Tracker) detect(gray gocv.Mat) (image.Rectangle, bool) {
	minSize := image.Pt(int(20*t.cfg.Scale), int(20*t.cfg.Scale))
	for i := range t.cascades {
		rects := t.cascades[i].DetectMultiScaleWithParams(
			gray, 1.1, 3, 0, minSize, image.Point{},
		)
		if len(rects) == 0 {
			continue
		}
		best := rects[0]
		for _, r := range rects[1:] {
			if r.Dx()*r.Dy() > best.Dx()*best.Dy() {
				best = r
			}
		}
		return best, true
	}
	return image.Rectangle{}, false
}

func (t *Tracker) onFaceLost() {
	t.noFaceCount++
	if t.active && t.noFaceCount >= t.cfg.NoFaceThreshold {
		t.active = false
		t.clearLook()
		t.clearGreeting()
	}
}

func (t *Tracker) shutdown() {
	if t.active {
		t.clearLook()
		t.clearGreeting()
	}
}

// readCommand returns the current command file as a generic map so fields
// written by other controllers are preserved.
func (t *Tracker) readCommand() map[string]any {
	raw, err := os.ReadFile(t.cfg.CommandFile)
	if err != nil {
		return map[string]any{}
	}
	var cmd map[string]any
	if json.Unmarshal(raw, &cmd) != nil || cmd == nil {
		return map[string]any{}
	}
	return cmd
}

func (t *Tracker) writeCommand(cmd map[string]any) {
	data, err := json.MarshalIndent(cmd, "", "  ")
	if err != nil {
		return
	}
	if err := control.AtomicWrite(t.cfg.CommandFile, append(data, '\n')); err != nil {
		t.log.Debug().Err(err).Msg("command write failed")
	}
}

func (t *Tracker) writeLook(x, y float64) {
	cmd := t.readCommand()
	cmd["look"] = map[string]float64{
		"x": math.Round(x*1000) / 1000,
		"y": math.Round(y*1000) / 1000,
	}
	t.writeCommand(cmd)
}

func (t *Tracker) clearLook() {
	cmd := t.readCommand()
	delete(cmd, "look")
	t.writeCommand(cmd)
}

func (t *Tracker) greet() {
	if !t.cfg.Greet {
		return
	}
	text := statusPrefix + greetings[t.rng.Intn(len(greetings))]
	if err := control.AtomicWrite(t.cfg.StatusFile, []byte(text+"\n")); err != nil {
		t.log.Debug().Err(err).Msg("status write failed")
	}
}

// clearGreeting removes the status line only if it is one of ours.
func (t *Tracker) clearGreeting() {
	raw, err := os.ReadFile(t.cfg.StatusFile)
	if err != nil {
		return
	}
	if len(raw) >= len(statusPrefix) && string(raw[:len(statusPrefix)]) == statusPrefix {
		_ = control.AtomicWrite(t.cfg.StatusFile, nil)
	}
}
