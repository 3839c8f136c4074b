package epg

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricProgramsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamvault_guide_programs_processed_total",
		Help: "Guide programmes persisted across all ingestion runs.",
	})

	metricProgramsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamvault_guide_programs_failed_total",
		Help: "Guide programmes lost to persistence errors.",
	})

	metricFlushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamvault_guide_flushes_total",
		Help: "Bulk insert operations performed by the ingestion pipeline.",
	})

	// metricRuns tracks ingestion run outcomes ("ok" or "failed").
	metricRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamvault_guide_runs_total",
		Help: "Guide ingestion runs by outcome.",
	}, []string{"outcome"})
)
