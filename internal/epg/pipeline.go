package epg

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/voyagen/streamvault/internal/models"
)

// Options configures a Pipeline. Zero values fall back to the defaults.
type Options struct {
	BatchSize     int           // programmes per bulk insert (default 2000)
	RetryAttempts int           // download attempts before giving up (default 3)
	RetryDelay    time.Duration // fixed delay between attempts (default 5s)
	Timeout       time.Duration // per-attempt timeout to response headers (default 30s)
	UserAgent     string
}

func (o *Options) withDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 2000
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 5 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
}

// Stats reports the outcome of one ingestion run.
type Stats struct {
	Processed int // rows persisted
	Failed    int // rows lost to persistence errors
	Dropped   int // elements rejected by validation or malformed XML
	Flushes   int // bulk insert operations
	Started   time.Time
	Finished  time.Time
}

// Duration returns the wall time of the run.
func (s *Stats) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}

// DownloadError is the terminal failure after exhausting download attempts.
type DownloadError struct {
	Attempts int
	Err      error // last cause
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download after %d attempts: %v", e.Attempts, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ProgramStore is the slice of persistence the pipeline needs.
type ProgramStore interface {
	WipePrograms(ctx context.Context) error
	InsertPrograms(ctx context.Context, programs []models.Program) (stored, failed int, err error)
	EnsureProgramIndexes(ctx context.Context) error
}

// Pipeline downloads and ingests one XMLTV feed into the program store.
// Each run is a full replace: prior guide rows are wiped before parsing
// starts, so a failed run can leave the guide empty until the next run.
type Pipeline struct {
	store  ProgramStore
	client *http.Client
	opts   Options
	now    func() time.Time
}

// NewPipeline creates a Pipeline over the given store.
func NewPipeline(s ProgramStore, opts Options) *Pipeline {
	opts.withDefaults()
	return &Pipeline{
		store: s,
		// The per-attempt timeout bounds connect + response headers only;
		// the body streams for as long as parsing takes.
		client: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: opts.Timeout},
		},
		opts: opts,
		now:  time.Now,
	}
}

// Run executes one ingestion: wipe, download (with retry), streaming
// gunzip + parse, batched persistence, then index builds. Per-element
// problems never abort the run; only download exhaustion or a broken XML
// stream do.
func (p *Pipeline) Run(ctx context.Context, sourceURL string) (*Stats, error) {
	stats := &Stats{Started: p.now()}

	if err := p.store.WipePrograms(ctx); err != nil {
		return stats, fmt.Errorf("wipe programs: %w", err)
	}

	body, err := p.download(ctx, sourceURL)
	if err != nil {
		return stats, err
	}
	defer body.Close()

	reader, err := maybeGunzip(body)
	if err != nil {
		return stats, fmt.Errorf("decompress: %w", err)
	}

	out := make(chan models.Program, p.opts.BatchSize)
	resultCh := make(chan parseResult, 1)
	go func() {
		res := parsePrograms(ctx, reader, out, p.now)
		close(out)
		resultCh <- res
	}()

	batch := make([]models.Program, 0, p.opts.BatchSize)
	for pr := range out {
		batch = append(batch, pr)
		if len(batch) >= p.opts.BatchSize {
			p.flush(ctx, batch, stats)
			batch = batch[:0]
		}
	}

	res := <-resultCh
	stats.Dropped = res.dropped
	if res.err != nil {
		return stats, fmt.Errorf("parse guide feed: %w", res.err)
	}

	if len(batch) > 0 {
		p.flush(ctx, batch, stats)
	}

	if err := p.store.EnsureProgramIndexes(ctx); err != nil {
		return stats, fmt.Errorf("build guide indexes: %w", err)
	}

	stats.Finished = p.now()
	log.Printf("[epg] ingestion done: %d stored, %d failed, %d dropped in %v",
		stats.Processed, stats.Failed, stats.Dropped, stats.Duration())
	return stats, nil
}

// download fetches the feed with a bounded number of attempts and a fixed
// inter-attempt delay. Exhaustion returns a DownloadError with the last
// cause.
func (p *Pipeline) download(ctx context.Context, sourceURL string) (io.ReadCloser, error) {
	var lastErr error
	for attempt := 1; attempt <= p.opts.RetryAttempts; attempt++ {
		body, err := p.fetch(ctx, sourceURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if attempt < p.opts.RetryAttempts {
			log.Printf("[epg] download attempt %d failed, retrying: %v", attempt, err)
			select {
			case <-time.After(p.opts.RetryDelay):
			case <-ctx.Done():
				return nil, &DownloadError{Attempts: attempt, Err: ctx.Err()}
			}
		}
	}
	return nil, &DownloadError{Attempts: p.opts.RetryAttempts, Err: lastErr}
}

func (p *Pipeline) fetch(ctx context.Context, sourceURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("NewRequest: %w", err)
	}
	if p.opts.UserAgent != "" {
		req.Header.Set("User-Agent", p.opts.UserAgent)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Do: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	log.Printf("[epg] downloaded: status=%d content_length=%d", resp.StatusCode, resp.ContentLength)
	return resp.Body, nil
}

// maybeGunzip wraps r in a gzip reader when the stream starts with the gzip
// magic bytes; plain XML passes through untouched.
func maybeGunzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err == nil && len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return gz, nil
	}
	return br, nil
}

// flush persists one batch and folds the outcome into stats. A failed bulk
// insert marks the whole batch failed and the run continues with the
// next batch.
func (p *Pipeline) flush(ctx context.Context, batch []models.Program, stats *Stats) {
	stored, failed, err := p.store.InsertPrograms(ctx, batch)
	if err != nil {
		log.Printf("[epg] batch insert error: %v", err)
		failed = len(batch)
		stored = 0
	}
	stats.Processed += stored
	stats.Failed += failed
	stats.Flushes++

	metricProgramsProcessed.Add(float64(stored))
	metricProgramsFailed.Add(float64(failed))
	metricFlushes.Inc()

	elapsed := p.now().Sub(stats.Started).Seconds()
	rate := 0
	if elapsed > 0 {
		rate = int(float64(stats.Processed) / elapsed)
	}
	log.Printf("[epg] processed: %d items (%d items/sec) | failed: %d", stats.Processed, rate, stats.Failed)
}
