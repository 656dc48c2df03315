package jobs

import (
	"context"

	"github.com/oxleyhq/forager/internal/crawler"
	"github.com/oxleyhq/forager/internal/db"
)

// Session is the slice of a browser tab a crawl worker uses. It satisfies
// both crawler.PageFetcher and emails.Page.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Content(ctx context.Context) (string, error)
	BodyText(ctx context.Context) (string, error)
	LinkHrefs(ctx context.Context) ([]string, error)
	Close()
}

// SessionProvider hands out browser sessions, one per worker.
type SessionProvider interface {
	Acquire(ctx context.Context) (Session, error)
}

// SessionProviderFunc adapts a function to the SessionProvider interface.
type SessionProviderFunc func(ctx context.Context) (Session, error)

func (f SessionProviderFunc) Acquire(ctx context.Context) (Session, error) {
	return f(ctx)
}

// URLDiscoverer finds the page URLs of a site
type URLDiscoverer interface {
	Discover(ctx context.Context, fetcher crawler.PageFetcher, baseURL string) ([]string, error)
}

// EmailExtractor pulls email addresses out of a rendered page
type EmailExtractor interface {
	ExtractFromPage(ctx context.Context, page Session, url string) []string
}

// ProgressLedger persists job execution state
type ProgressLedger interface {
	GetProgress(ctx context.Context, jobID, stepID string) (*db.ProgressRecord, error)
	UpsertProgress(ctx context.Context, jobID, stepID string, update db.ProgressUpdate) error
	DeleteProgress(ctx context.Context, jobID, stepID string) error
}

// StopSignals carries cancellation requests between processes
type StopSignals interface {
	IsCancelled(ctx context.Context, jobID, stepID string) bool
	RequestStop(ctx context.Context, jobID, stepID string) error
	ClearStop(ctx context.Context, jobID, stepID string) error
}

// LeadStore records discovered emails against known leads
type LeadStore interface {
	UpdateLeadEmails(ctx context.Context, website, emails string) error
}
