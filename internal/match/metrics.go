package match

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricCandidates = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "streamvault_match_candidates_total",
	Help: "Playback candidates produced, by resolution tier.",
}, []string{"provenance"})
