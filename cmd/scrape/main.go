package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/oxleyhq/forager/internal/browser"
	"github.com/oxleyhq/forager/internal/crawler"
	"github.com/oxleyhq/forager/internal/db"
	"github.com/oxleyhq/forager/internal/emails"
	"github.com/oxleyhq/forager/internal/jobs"
	"github.com/oxleyhq/forager/internal/results"
	"github.com/oxleyhq/forager/internal/signals"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// One-shot scrape of a single website from the command line.
//
// Usage:
//   go run ./cmd/scrape -url example.com -max-pages 10 -concurrency 5
//
// Connects to the same PostgreSQL ledger and Redis stop store as the
// server, so a running scrape can be stopped from another process.
func main() {
	godotenv.Load(".env.local", ".env")

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	url := flag.String("url", "", "website to scrape (required)")
	maxPages := flag.Int("max-pages", jobs.DefaultMaxPages, "maximum pages to visit")
	concurrency := flag.Int("concurrency", jobs.DefaultConcurrency, "concurrent page visits")
	headless := flag.Bool("headless", true, "run the browser headless")
	resultsPath := flag.String("results", "results.json", "path of the JSON results file")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall scrape timeout")
	flag.Parse()

	if *url == "" {
		flag.Usage()
		os.Exit(2)
	}

	pgDB, err := db.InitFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL database")
	}
	defer pgDB.Close()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	stops := signals.NewStore(redisAddr, "forager:", 24*time.Hour)
	defer stops.Close()

	browserConfig := browser.DefaultConfig()
	browserConfig.Headless = *headless
	browserConfig.ProxyURL = os.Getenv("PROXY_URL")
	browsers := browser.NewManager(browserConfig)
	defer browsers.Close()

	provider := jobs.SessionProviderFunc(func(ctx context.Context) (jobs.Session, error) {
		session, err := browsers.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return session, nil
	})

	coordinator := jobs.NewCoordinator(provider, crawler.NewResolver(nil), jobs.NewMatcherExtractor(emails.NewMatcher()), pgDB, stops, jobs.CoordinatorConfig{})
	manager := jobs.NewJobManager(coordinator, pgDB, stops, results.NewWriter(*resultsPath), pgDB)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	job, found, err := manager.RunJob(ctx, &jobs.JobOptions{
		SeedURL:     *url,
		MaxPages:    *maxPages,
		Concurrency: *concurrency,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Scrape failed")
	}

	log.Info().
		Str("job_id", job.ID).
		Int("emails", len(found)).
		Msg("Scrape finished")

	for _, address := range found {
		fmt.Println(address)
	}
}
