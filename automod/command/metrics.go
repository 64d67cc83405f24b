package command

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("command")

var commandCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_commands",
	Help: "Number of operator commands handled, by command and status",
}, []string{"command", "status"})
