package onebot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("onebot")

var connected = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "zzxbot_onebot_connected",
	Help: "Whether the OneBot websocket is currently connected",
})

var reconnects = promauto.NewCounter(prometheus.CounterOpts{
	Name: "zzxbot_onebot_reconnects_total",
	Help: "Number of times the OneBot websocket was re-dialed",
})

var eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "zzxbot_onebot_events_received_total",
	Help: "Number of decoded inbound events",
}, []string{"kind"})

var framesDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "zzxbot_onebot_frames_dropped_total",
	Help: "Number of inbound frames which could not be decoded",
})

var actionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "zzxbot_onebot_action_duration_sec",
	Help:    "Duration of OneBot action calls",
	Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
}, []string{"action", "status"})
