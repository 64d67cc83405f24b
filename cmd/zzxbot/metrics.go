package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("zzxbot")

var eventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "zzxbot_events_handled_total",
	Help: "Number of inbound events handled, by kind",
}, []string{"kind"})

var eventsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "zzxbot_events_failed_total",
	Help: "Number of inbound events whose processing returned an error",
}, []string{"kind"})

var eventsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "zzxbot_events_in_flight",
	Help: "Number of inbound events currently being processed",
})
