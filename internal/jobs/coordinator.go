package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/oxleyhq/forager/internal/crawler"
	"github.com/oxleyhq/forager/internal/db"
	"github.com/oxleyhq/forager/internal/emails"
	"github.com/oxleyhq/forager/internal/metrics"
	"github.com/oxleyhq/forager/internal/util"
)

// errStopRequested signals that a stop sentinel was observed mid-crawl.
var errStopRequested = errors.New("stop requested")

// CoordinatorConfig tunes a Coordinator.
type CoordinatorConfig struct {
	// Rank orders discovered URLs before visiting. Nil means the default
	// contact-page ranking.
	Rank *crawler.RankConfig
	// VisitDelay is the minimum spacing between page visits across all
	// workers of one job.
	VisitDelay time.Duration
}

// Coordinator runs email discovery jobs end to end: URL discovery, ranking,
// concurrent visitation and ledger checkpoints.
type Coordinator struct {
	sessions  SessionProvider
	resolver  URLDiscoverer
	extractor EmailExtractor
	ledger    ProgressLedger
	stops     StopSignals
	config    CoordinatorConfig
}

// NewCoordinator wires a Coordinator from its collaborators.
func NewCoordinator(sessions SessionProvider, resolver URLDiscoverer, extractor EmailExtractor, ledger ProgressLedger, stops StopSignals, config CoordinatorConfig) *Coordinator {
	if config.VisitDelay <= 0 {
		config.VisitDelay = time.Second
	}
	return &Coordinator{
		sessions:  sessions,
		resolver:  resolver,
		extractor: extractor,
		ledger:    ledger,
		stops:     stops,
		config:    config,
	}
}

// NewMatcherExtractor adapts an emails.Matcher to the EmailExtractor
// interface.
func NewMatcherExtractor(matcher *emails.Matcher) EmailExtractor {
	return matcherExtractor{matcher: matcher}
}

type matcherExtractor struct {
	matcher *emails.Matcher
}

func (e matcherExtractor) ExtractFromPage(ctx context.Context, page Session, url string) []string {
	return e.matcher.ExtractFromPage(ctx, page, url)
}

// Run executes a job and returns the emails found, already recorded in the
// ledger under the job's terminal status. The error is non-nil only for
// failed runs; a stopped job returns the emails collected before the stop
// with a nil error.
func (c *Coordinator) Run(ctx context.Context, job *Job) (found []string, err error) {
	span := sentry.StartSpan(ctx, "jobs.run")
	span.SetTag("job_id", job.ID)
	defer span.Finish()

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			sentry.CurrentHub().Recover(r)
			err = fmt.Errorf("job panicked: %v", r)
			c.markTerminal(job, db.StatusFailed, err.Error())
		}

		duration := time.Since(start)
		metrics.JobDuration.Observe(duration.Seconds())
		log.Info().
			Str("job_id", job.ID).
			Dur("duration", duration).
			Int("emails", len(found)).
			Msg("Job finished")
	}()

	if err := c.checkpoint(ctx, job, db.ProgressUpdate{Status: statusPtr(db.StatusRunning)}); err != nil {
		return nil, err
	}

	if c.stops.IsCancelled(ctx, job.ID, job.StepID) {
		c.markStopped(job)
		return nil, nil
	}

	session, err := c.sessions.Acquire(ctx)
	if err != nil {
		err = fmt.Errorf("failed to acquire browser session: %w", err)
		sentry.CaptureException(err)
		c.markTerminal(job, db.StatusFailed, err.Error())
		return nil, err
	}
	defer session.Close()

	targets, err := c.discoverTargets(ctx, session, job)
	if err != nil {
		c.markTerminal(job, db.StatusFailed, err.Error())
		return nil, err
	}

	if c.stops.IsCancelled(ctx, job.ID, job.StepID) {
		c.markStopped(job)
		return nil, nil
	}

	total := len(targets)
	if total > job.MaxPages {
		total = job.MaxPages
	}
	if err := c.checkpoint(ctx, job, db.ProgressUpdate{TotalRows: &total}); err != nil {
		return nil, err
	}

	state := newCrawlState(job.MaxPages)
	err = c.visitAll(ctx, job, session, targets, state)

	found = state.snapshot()
	switch {
	case errors.Is(err, errStopRequested) || errors.Is(err, context.Canceled):
		c.markStopped(job)
		return found, nil
	case err != nil:
		sentry.CaptureException(err)
		c.markTerminal(job, db.StatusFailed, err.Error())
		return found, err
	default:
		c.markTerminal(job, db.StatusCompleted, "")
		return found, nil
	}
}

// discoverTargets resolves the site's sitemaps and ranks the result. The seed
// URL is always a candidate, so a site with no usable sitemap degrades to
// visiting just the seed.
func (c *Coordinator) discoverTargets(ctx context.Context, session Session, job *Job) ([]string, error) {
	if err := c.checkpoint(ctx, job, db.ProgressUpdate{Status: statusPtr(db.StatusRunning)}); err != nil {
		return nil, err
	}

	discovered, err := c.resolver.Discover(ctx, session, job.SeedURL)
	if err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Msg("Sitemap discovery failed, visiting seed only")
	}

	ranked := crawler.RankURLs(append(discovered, job.SeedURL), util.BaseDomain(job.SeedURL), c.config.Rank)
	if len(ranked) == 0 {
		ranked = []string{job.SeedURL}
	}

	log.Info().
		Str("job_id", job.ID).
		Int("discovered", len(discovered)).
		Int("ranked", len(ranked)).
		Msg("URL discovery complete")
	return ranked, nil
}

// visitAll fans targets out to the job's workers. The primary session is
// reused by the first worker; every other worker acquires its own.
func (c *Coordinator) visitAll(ctx context.Context, job *Job, primary Session, targets []string, state *crawlState) error {
	workers := job.Concurrency
	if workers > len(targets) {
		workers = len(targets)
	}
	if workers > job.MaxPages {
		workers = job.MaxPages
	}
	if workers < 1 {
		workers = 1
	}

	limiter := rate.NewLimiter(rate.Every(c.config.VisitDelay), 1)

	g, groupCtx := errgroup.WithContext(ctx)
	urlCh := make(chan string)

	g.Go(func() error {
		defer close(urlCh)
		for _, target := range targets {
			select {
			case urlCh <- target:
			case <-groupCtx.Done():
				return nil
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		usePrimary := i == 0
		g.Go(func() error {
			session := primary
			if !usePrimary {
				var err error
				session, err = c.sessions.Acquire(groupCtx)
				if err != nil {
					return fmt.Errorf("failed to acquire worker session: %w", err)
				}
				defer session.Close()
			}
			return c.visitLoop(groupCtx, job, session, urlCh, limiter, state)
		})
	}

	return g.Wait()
}

func (c *Coordinator) visitLoop(ctx context.Context, job *Job, session Session, urlCh <-chan string, limiter *rate.Limiter, state *crawlState) error {
	for url := range urlCh {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.stops.IsCancelled(ctx, job.ID, job.StepID) {
			return errStopRequested
		}
		if !state.tryClaim(url) {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		found := c.extractor.ExtractFromPage(ctx, session, url)
		newEmails, completed := state.record(found)

		metrics.PagesVisited.Inc()
		metrics.EmailsFound.Add(float64(len(newEmails)))

		if err := c.checkpoint(ctx, job, db.ProgressUpdate{CurrentRow: &completed}); err != nil {
			log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to checkpoint progress")
		}

		log.Debug().
			Str("job_id", job.ID).
			Str("url", url).
			Int("emails_on_page", len(found)).
			Int("completed", completed).
			Msg("Page visited")
	}
	return nil
}

func (c *Coordinator) checkpoint(ctx context.Context, job *Job, update db.ProgressUpdate) error {
	return c.ledger.UpsertProgress(ctx, job.ID, job.StepID, update)
}

// markTerminal records a terminal status. Ledger writes here use a fresh
// context because the job's own context may already be cancelled.
func (c *Coordinator) markTerminal(job *Job, status db.ProgressStatus, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	update := db.ProgressUpdate{Status: &status}
	if message != "" {
		update.ErrorMessage = &message
	}
	if err := c.ledger.UpsertProgress(ctx, job.ID, job.StepID, update); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to record terminal job status")
	}
	metrics.JobsCompleted.WithLabelValues(string(status)).Inc()
}

func (c *Coordinator) markStopped(job *Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status := db.StatusStopped
	acknowledged := true
	update := db.ProgressUpdate{Status: &status, StopCall: &acknowledged}
	if err := c.ledger.UpsertProgress(ctx, job.ID, job.StepID, update); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to record stopped job status")
	}
	metrics.JobsCompleted.WithLabelValues(string(db.StatusStopped)).Inc()
	log.Info().Str("job_id", job.ID).Msg("Job stopped on request")
}

func statusPtr(status db.ProgressStatus) *db.ProgressStatus {
	return &status
}

// EmailsToString flattens a list of addresses for lead storage.
func EmailsToString(addresses []string) string {
	return strings.Join(addresses, ", ")
}
