package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/voyagen/streamvault/internal/cache"
	"github.com/voyagen/streamvault/internal/catalog"
	"github.com/voyagen/streamvault/internal/config"
	"github.com/voyagen/streamvault/internal/epg"
	"github.com/voyagen/streamvault/internal/freshness"
	"github.com/voyagen/streamvault/internal/match"
	"github.com/voyagen/streamvault/internal/metadata"
	"github.com/voyagen/streamvault/internal/server"
	"github.com/voyagen/streamvault/internal/store"
	"github.com/voyagen/streamvault/internal/xtream"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use env DATABASE_URL")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Run migrations.
	absMigrations, err := filepath.Abs("migrations")
	if err != nil {
		absMigrations = "migrations"
	}
	if _, err := os.Stat(absMigrations); err != nil {
		if exe, e := os.Executable(); e == nil {
			absMigrations = filepath.Join(filepath.Dir(exe), "migrations")
		}
	}
	migrationsPath := "file://" + absMigrations
	if err := store.RunMigrations(cfg.DatabaseURL, migrationsPath); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	// Connect to Redis if REDIS_URL is configured.
	var rds *cache.Redis
	if cfg.RedisURL != "" {
		rds, err = cache.New(cfg.RedisURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer rds.Close()

		if err := rds.Ping(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "redis ping: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "redis connected")
	} else {
		fmt.Fprintln(os.Stderr, "redis disabled (REDIS_URL not set)")
	}

	creds := xtream.Credentials{
		Host:     cfg.XtreamHost,
		Port:     cfg.XtreamPort,
		Username: cfg.XtreamUsername,
		Password: cfg.XtreamPassword,
	}
	provider := xtream.New(creds, cfg.UserAgent)
	if creds.Host != "" {
		if err := provider.ValidateCredentials(ctx); err != nil {
			log.Printf("provider check failed (continuing): %v", err)
		}
	}

	fresh := freshness.New(pg)
	syncer := catalog.NewSyncer(pg, provider, fresh)
	cinemeta := metadata.NewCinemeta(rds)
	tmdb := metadata.NewTMDB(cfg.TMDBAPIKey)
	resolver := match.NewResolver(pg, tmdb)
	engine := match.NewEngine(pg, cinemeta, resolver, syncer, provider, provider.TenantID())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var guideTrigger server.GuideTrigger
	if cfg.GuideEnabled {
		pipeline := epg.NewPipeline(pg, epg.Options{
			Timeout:   cfg.Timeout,
			UserAgent: cfg.UserAgent,
		})

		runGuide := func(runCtx context.Context, reason string) {
			if rds != nil {
				unlock, err := cache.TryLock(runCtx, rds, cache.GuideLockKey, 30*time.Minute)
				if err != nil {
					if err == cache.ErrLocked {
						log.Printf("[epg] refresh already in progress, skipping (%s)", reason)
						return
					}
					log.Printf("[epg] lock: %v", err)
					return
				}
				defer unlock()
			}
			if err := epg.RunGuideRefresh(runCtx, pipeline, fresh, cfg.GuideURL); err != nil {
				log.Printf("[epg] refresh (%s): %v", reason, err)
			}
		}

		// With Redis the trigger only enqueues; the worker goroutine runs
		// jobs one at a time. Without it, triggers run inline.
		if rds != nil {
			guideTrigger = func(trigCtx context.Context, reason string) error {
				return cache.Enqueue(trigCtx, rds, cache.GuideQueue, cache.GuideJob{
					SourceURL: cfg.GuideURL,
					Reason:    reason,
				})
			}
			go runGuideWorker(ctx, rds, runGuide)
		} else {
			guideTrigger = func(trigCtx context.Context, reason string) error {
				go runGuide(ctx, reason)
				return nil
			}
		}

		scheduler := epg.NewScheduler(fresh, func(schedCtx context.Context, reason string) {
			if err := guideTrigger(schedCtx, reason); err != nil {
				log.Printf("[epg] trigger (%s): %v", reason, err)
			}
		})
		go scheduler.Start(ctx)
	} else {
		fmt.Fprintln(os.Stderr, "guide ingestion disabled (EPG_ENABLED=false)")
	}

	srv := server.New(pg, cfg, engine, syncer, provider, guideTrigger)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

// runGuideWorker continuously dequeues guide jobs from Redis and processes
// them. It stops when ctx is cancelled (graceful shutdown).
func runGuideWorker(ctx context.Context, rds *cache.Redis, run func(ctx context.Context, reason string)) {
	log.Println("guide worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("guide worker stopping")
			return
		default:
		}

		job, err := cache.Dequeue(ctx, rds, cache.GuideQueue, 5*time.Second)
		if err != nil {
			log.Printf("guide worker: dequeue error: %v", err)
			time.Sleep(2 * time.Second)
			continue
		}
		if job == nil {
			continue // timeout, loop back to check ctx
		}

		log.Printf("guide worker: processing job reason=%q source=%q", job.Reason, job.SourceURL)
		run(ctx, job.Reason)
	}
}
