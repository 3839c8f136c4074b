package epg

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/voyagen/streamvault/internal/store"
)

func feedServer(t *testing.T, gzipped bool, body []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if gzipped {
			gz := gzip.NewWriter(w)
			_, _ = gz.Write(body)
			_ = gz.Close()
			return
		}
		_, _ = w.Write(body)
	}))
}

func syntheticFeed(n int) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><tv>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b,
			`<programme start="20240115%02d0000 +0000" stop="20240115%02d3000 +0000" channel="c%d"><title>Show %d</title></programme>`,
			i%24, i%24, i%5, i)
	}
	b.WriteString(`</tv>`)
	return []byte(b.String())
}

func testOptions() Options {
	return Options{BatchSize: 10, RetryAttempts: 2, RetryDelay: 10 * time.Millisecond, Timeout: 5 * time.Second}
}

func TestRunIngestsGzipFeed(t *testing.T) {
	feed := syntheticFeed(37)
	srv := feedServer(t, true, feed)
	defer srv.Close()

	mem := store.NewMemory()
	p := NewPipeline(mem, testOptions())

	stats, err := p.Run(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Processed != 37 {
		t.Errorf("processed: want 37, got %d", stats.Processed)
	}
	if stats.Failed != 0 {
		t.Errorf("failed: want 0, got %d", stats.Failed)
	}
	// ceil(37/10) bulk inserts.
	if stats.Flushes != 4 {
		t.Errorf("flushes: want 4, got %d", stats.Flushes)
	}
	if len(mem.Programs) != 37 {
		t.Errorf("stored rows: want 37, got %d", len(mem.Programs))
	}
	if mem.ProgramIndexBuilds != 1 {
		t.Errorf("index builds: want 1, got %d", mem.ProgramIndexBuilds)
	}
}

func TestRunIngestsPlainFeed(t *testing.T) {
	srv := feedServer(t, false, syntheticFeed(5))
	defer srv.Close()

	mem := store.NewMemory()
	p := NewPipeline(mem, testOptions())

	stats, err := p.Run(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Processed != 5 {
		t.Errorf("processed: want 5, got %d", stats.Processed)
	}
}

func TestRunCountsFailedRows(t *testing.T) {
	srv := feedServer(t, true, syntheticFeed(25))
	defer srv.Close()

	mem := store.NewMemory()
	mem.FailProgramInserts = true
	p := NewPipeline(mem, testOptions())

	stats, err := p.Run(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Processed != 0 {
		t.Errorf("processed: want 0, got %d", stats.Processed)
	}
	if stats.Failed != 25 {
		t.Errorf("failed: want 25, got %d", stats.Failed)
	}
	// Persistence failures never abort the run.
	if stats.Flushes != 3 {
		t.Errorf("flushes: want 3, got %d", stats.Flushes)
	}
}

func TestRunCountsDroppedElements(t *testing.T) {
	raw, err := os.ReadFile("testdata/sample.xml")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	srv := feedServer(t, false, raw)
	defer srv.Close()

	mem := store.NewMemory()
	p := NewPipeline(mem, testOptions())

	stats, err := p.Run(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Processed != 4 {
		t.Errorf("processed: want 4, got %d", stats.Processed)
	}
	if stats.Dropped != 2 {
		t.Errorf("dropped: want 2, got %d", stats.Dropped)
	}
	if stats.Processed+stats.Failed != 4 {
		t.Errorf("processed+failed should cover all valid rows, got %d", stats.Processed+stats.Failed)
	}
}

func TestRunRetriesThenFails(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	mem := store.NewMemory()
	p := NewPipeline(mem, testOptions())

	_, err := p.Run(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected download error")
	}
	var dlErr *DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("expected DownloadError, got %T: %v", err, err)
	}
	if dlErr.Attempts != 2 {
		t.Errorf("attempts in error: want 2, got %d", dlErr.Attempts)
	}
	if attempts != 2 {
		t.Errorf("server hits: want 2, got %d", attempts)
	}
}

func TestRunWipesBeforeIngest(t *testing.T) {
	srv := feedServer(t, true, syntheticFeed(3))
	defer srv.Close()

	mem := store.NewMemory()
	p := NewPipeline(mem, testOptions())

	for i := 0; i < 2; i++ {
		if _, err := p.Run(context.Background(), srv.URL); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	// Full replace, not accumulation.
	if len(mem.Programs) != 3 {
		t.Errorf("stored rows after two runs: want 3, got %d", len(mem.Programs))
	}
}

func TestRunAbortsOnBrokenXML(t *testing.T) {
	body := []byte(`<tv><programme start="20240115060000 +0000" stop="20240115070000 +0000" channel="c1"><title>Ok</title></programme><programme start=`)
	srv := feedServer(t, false, body)
	defer srv.Close()

	mem := store.NewMemory()
	p := NewPipeline(mem, testOptions())

	if _, err := p.Run(context.Background(), srv.URL); err == nil {
		t.Fatal("expected parse error for truncated stream")
	}
	// Indexes must not be built after a failed parse.
	if mem.ProgramIndexBuilds != 0 {
		t.Errorf("index builds after failed run: want 0, got %d", mem.ProgramIndexBuilds)
	}
}
