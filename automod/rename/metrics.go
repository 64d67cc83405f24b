package rename

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var renameCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "automod_rename_members",
	Help: "Number of members renamed by bulk rename jobs",
})

var renameFailureCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "automod_rename_failures",
	Help: "Number of member renames which failed",
})
