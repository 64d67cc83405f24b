package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "automod_event_duration_sec",
	Help: "Total duration of automod event processing",
}, []string{"type"})

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_event_processed",
	Help: "Number of events processed",
}, []string{"type"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_event_errors",
	Help: "Number of events which failed processing",
}, []string{"type"})

var eventPanicCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_event_panics",
	Help: "Number of events where rule execution panicked",
}, []string{"type"})

var actionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_actions",
	Help: "Number of platform actions executed, by kind",
}, []string{"kind"})

var actionFailureCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_action_failures",
	Help: "Number of platform actions which failed, by kind",
}, []string{"kind"})

var verdictCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_message_verdicts",
	Help: "Number of moderated messages, by verdict",
}, []string{"verdict"})

var noticeFailureCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_notice_failures",
	Help: "Number of admin notices which could not be delivered",
}, []string{"notifier"})
