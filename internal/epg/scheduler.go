package epg

import (
	"context"
	"log"
	"time"

	"github.com/voyagen/streamvault/internal/freshness"
	"github.com/voyagen/streamvault/internal/models"
)

// RunGuideRefresh executes one guide ingestion run and, on success, stamps
// the global freshness marker. Failures leave the marker untouched so the
// next scheduling decision retries.
func RunGuideRefresh(ctx context.Context, p *Pipeline, fresh *freshness.Controller, sourceURL string) error {
	stats, err := p.Run(ctx, sourceURL)
	if err != nil {
		metricRuns.WithLabelValues("failed").Inc()
		log.Printf("[epg] guide refresh failed after %d flushes: %v", stats.Flushes, err)
		return err
	}
	metricRuns.WithLabelValues("ok").Inc()
	if err := fresh.MarkRefreshed(ctx, models.GlobalTenant, models.KeyGuideUpdate); err != nil {
		log.Printf("[epg] mark guide refreshed: %v", err)
	}
	return nil
}

// Scheduler decides when guide ingestion runs: once at startup if the last
// successful run is missing or older than the guide window, then once per
// calendar day at midnight. The actual run goes through trigger, which
// either executes directly or enqueues a job for the worker.
type Scheduler struct {
	fresh   *freshness.Controller
	trigger func(ctx context.Context, reason string)
}

// NewScheduler creates a Scheduler. trigger must be safe to call from the
// scheduler goroutine.
func NewScheduler(fresh *freshness.Controller, trigger func(ctx context.Context, reason string)) *Scheduler {
	return &Scheduler{fresh: fresh, trigger: trigger}
}

// Start blocks until ctx is cancelled. Run it in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	stale, err := s.fresh.ShouldRefresh(ctx, models.GlobalTenant, models.KeyGuideUpdate, freshness.GuideWindow)
	if err != nil {
		log.Printf("[epg] freshness check failed, refreshing anyway: %v", err)
		stale = true
	}
	if stale {
		log.Printf("[epg] guide is stale at startup, triggering refresh")
		s.trigger(ctx, "startup")
	} else {
		log.Printf("[epg] guide is up to date at startup")
	}

	for {
		wait := time.Until(nextMidnight(time.Now()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
			s.trigger(ctx, "schedule")
		}
	}
}

func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}
