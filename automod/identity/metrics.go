package identity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var nameCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "zzxbot_identity_name_cache_hits",
	Help: "Number of cache hits for user display name lookups",
}, []string{"directory"})

var nameCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "zzxbot_identity_name_cache_misses",
	Help: "Number of cache misses for user display name lookups",
}, []string{"directory"})

var nameLookupsCoalesced = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "zzxbot_identity_name_lookups_coalesced",
	Help: "Number of display name lookups which shared an in-flight request",
}, []string{"directory"})
