package epg

import (
	"context"
	"testing"
	"time"

	"github.com/voyagen/streamvault/internal/freshness"
	"github.com/voyagen/streamvault/internal/models"
	"github.com/voyagen/streamvault/internal/store"
)

func TestSchedulerTriggersWhenStale(t *testing.T) {
	mem := store.NewMemory()
	fresh := freshness.New(mem)

	triggered := make(chan string, 1)
	s := NewScheduler(fresh, func(_ context.Context, reason string) {
		select {
		case triggered <- reason:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	select {
	case reason := <-triggered:
		if reason != "startup" {
			t.Errorf("reason: want startup, got %q", reason)
		}
	case <-time.After(time.Second):
		t.Fatal("no marker means the scheduler must trigger at startup")
	}
}

func TestSchedulerSkipsWhenFresh(t *testing.T) {
	mem := store.NewMemory()
	fresh := freshness.New(mem)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := fresh.MarkRefreshed(ctx, models.GlobalTenant, models.KeyGuideUpdate); err != nil {
		t.Fatalf("MarkRefreshed: %v", err)
	}

	triggered := make(chan string, 1)
	s := NewScheduler(fresh, func(_ context.Context, reason string) {
		select {
		case triggered <- reason:
		default:
		}
	})
	go s.Start(ctx)

	select {
	case reason := <-triggered:
		t.Errorf("fresh marker must not trigger, got %q", reason)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNextMidnight(t *testing.T) {
	now := time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC)
	want := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	if got := nextMidnight(now); !got.Equal(want) {
		t.Errorf("nextMidnight(%v) = %v, want %v", now, got, want)
	}

	// Exactly at midnight the next run is a full day away.
	atMidnight := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	if got := nextMidnight(atMidnight); !got.Equal(atMidnight.AddDate(0, 0, 1)) {
		t.Errorf("nextMidnight(midnight) = %v", got)
	}
}

func TestRunGuideRefreshMarksOnSuccess(t *testing.T) {
	mem := store.NewMemory()
	fresh := freshness.New(mem)
	srv := feedServer(t, true, syntheticFeed(3))
	defer srv.Close()

	p := NewPipeline(mem, testOptions())
	if err := RunGuideRefresh(context.Background(), p, fresh, srv.URL); err != nil {
		t.Fatalf("RunGuideRefresh: %v", err)
	}

	stale, err := fresh.ShouldRefresh(context.Background(), models.GlobalTenant, models.KeyGuideUpdate, freshness.GuideWindow)
	if err != nil {
		t.Fatalf("ShouldRefresh: %v", err)
	}
	if stale {
		t.Error("successful refresh must stamp the completion marker")
	}
}

func TestRunGuideRefreshLeavesMarkerOnFailure(t *testing.T) {
	mem := store.NewMemory()
	fresh := freshness.New(mem)

	p := NewPipeline(mem, testOptions())
	if err := RunGuideRefresh(context.Background(), p, fresh, "http://127.0.0.1:0/feed"); err == nil {
		t.Fatal("expected download failure")
	}
	if len(mem.Freshness) != 0 {
		t.Error("failed refresh must not stamp the marker")
	}
}
