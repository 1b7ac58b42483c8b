package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExpressionChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clawface_expression_changes_total",
			Help: "Total number of expression transitions",
		},
		[]string{"origin"},
	)

	CommandsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clawface_commands_applied_total",
			Help: "Total number of external commands applied",
		},
	)

	PollErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clawface_poll_errors_total",
			Help: "Total number of command/status channel read failures",
		},
	)

	FramesStreamed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clawface_frames_streamed_total",
			Help: "Total number of pose frames pushed to render clients",
		},
	)

	RenderClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clawface_render_clients",
			Help: "Number of connected render clients",
		},
	)
)
