package jobs

import (
	"context"
	"sync"

	"github.com/oxleyhq/forager/internal/crawler"
	"github.com/oxleyhq/forager/internal/db"
)

// memoryLedger is an in-memory ProgressLedger shared across test files.
type memoryLedger struct {
	mu      sync.Mutex
	records map[string]*db.ProgressRecord
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{records: make(map[string]*db.ProgressRecord)}
}

func (l *memoryLedger) GetProgress(ctx context.Context, jobID, stepID string) (*db.ProgressRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[jobID+"/"+stepID]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (l *memoryLedger) UpsertProgress(ctx context.Context, jobID, stepID string, update db.ProgressUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := jobID + "/" + stepID
	record, ok := l.records[key]
	if !ok {
		record = &db.ProgressRecord{JobID: jobID, StepID: stepID, Status: db.StatusRunning}
		l.records[key] = record
	}
	if update.Status != nil {
		record.Status = *update.Status
	}
	if update.CurrentRow != nil && *update.CurrentRow > record.CurrentRow {
		record.CurrentRow = *update.CurrentRow
	}
	if update.TotalRows != nil {
		record.TotalRows = *update.TotalRows
	}
	if update.ErrorMessage != nil {
		record.ErrorMessage = *update.ErrorMessage
	}
	if update.StopCall != nil {
		record.StopCall = *update.StopCall
	}
	return nil
}

func (l *memoryLedger) DeleteProgress(ctx context.Context, jobID, stepID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, jobID+"/"+stepID)
	return nil
}

// memoryStops is an in-process StopSignals implementation.
type memoryStops struct {
	mu      sync.Mutex
	stopped map[string]bool
}

func newMemoryStops() *memoryStops {
	return &memoryStops{stopped: make(map[string]bool)}
}

func (s *memoryStops) IsCancelled(ctx context.Context, jobID, stepID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped[jobID+"/"+stepID]
}

func (s *memoryStops) RequestStop(ctx context.Context, jobID, stepID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped[jobID+"/"+stepID] = true
	return nil
}

func (s *memoryStops) ClearStop(ctx context.Context, jobID, stepID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stopped, jobID+"/"+stepID)
	return nil
}

// stubSession is a no-op Session.
type stubSession struct{}

func (stubSession) Navigate(ctx context.Context, url string) error  { return nil }
func (stubSession) Content(ctx context.Context) (string, error)     { return "", nil }
func (stubSession) BodyText(ctx context.Context) (string, error)    { return "", nil }
func (stubSession) LinkHrefs(ctx context.Context) ([]string, error) { return nil, nil }
func (stubSession) Close()                                          {}

// stubDiscoverer returns a fixed URL list.
type stubDiscoverer struct {
	urls []string
	err  error
}

func (d stubDiscoverer) Discover(ctx context.Context, fetcher crawler.PageFetcher, baseURL string) ([]string, error) {
	return d.urls, d.err
}

// scriptedExtractor returns scripted addresses per URL and records which
// URLs were visited, in order.
type scriptedExtractor struct {
	mu     sync.Mutex
	emails map[string][]string
	visits []string
}

func newScriptedExtractor(emails map[string][]string) *scriptedExtractor {
	return &scriptedExtractor{emails: emails}
}

func (e *scriptedExtractor) ExtractFromPage(ctx context.Context, page Session, url string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visits = append(e.visits, url)
	return e.emails[url]
}

func (e *scriptedExtractor) visited() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	visits := make([]string, len(e.visits))
	copy(visits, e.visits)
	return visits
}
