package jobs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxleyhq/forager/internal/db"
	"github.com/oxleyhq/forager/internal/results"
)

// memoryLeads records UpdateLeadEmails calls.
type memoryLeads struct {
	updates map[string]string
}

func (m *memoryLeads) UpdateLeadEmails(ctx context.Context, website, emails string) error {
	if m.updates == nil {
		m.updates = make(map[string]string)
	}
	m.updates[website] = emails
	return nil
}

func newTestManager(t *testing.T, extractor EmailExtractor, urls []string) (*JobManager, *memoryLedger, *memoryStops, *results.Writer, *memoryLeads) {
	t.Helper()
	ledger := newMemoryLedger()
	stops := newMemoryStops()
	coordinator := testCoordinator(stubDiscoverer{urls: urls}, extractor, ledger, stops)
	writer := results.NewWriter(filepath.Join(t.TempDir(), "results.json"))
	leads := &memoryLeads{}
	return NewJobManager(coordinator, ledger, stops, writer, leads), ledger, stops, writer, leads
}

func TestRunJob(t *testing.T) {
	extractor := newScriptedExtractor(map[string][]string{
		"https://acme.com/contact": {"sales@acme.com"},
	})
	manager, _, _, writer, leads := newTestManager(t, extractor, []string{"https://acme.com/contact"})

	job, found, err := manager.RunJob(context.Background(), &JobOptions{SeedURL: "acme.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sales@acme.com"}, found)

	records, err := writer.Read()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, job.ID, records[0].JobID)
	assert.Equal(t, "https://acme.com", records[0].Input)
	assert.Equal(t, []string{"sales@acme.com"}, records[0].Emails)

	assert.Equal(t, "sales@acme.com", leads.updates["https://acme.com"])
}

func TestRunJobInvalidSeed(t *testing.T) {
	manager, _, _, _, _ := newTestManager(t, newScriptedExtractor(nil), nil)

	_, _, err := manager.RunJob(context.Background(), &JobOptions{SeedURL: "https://facebook.com/acme"})
	assert.Error(t, err)
}

func TestRunJobClearsStaleStop(t *testing.T) {
	extractor := newScriptedExtractor(map[string][]string{
		"https://acme.com/contact": {"sales@acme.com"},
	})
	manager, _, stops, _, _ := newTestManager(t, extractor, []string{"https://acme.com/contact"})

	options := &JobOptions{SeedURL: "acme.com", JobID: "fixed-job"}
	require.NoError(t, stops.RequestStop(context.Background(), "fixed-job", DefaultStepID))

	_, found, err := manager.RunJob(context.Background(), options)
	require.NoError(t, err)
	assert.Equal(t, []string{"sales@acme.com"}, found)
}

func TestRunJobRetiresAcknowledgedStop(t *testing.T) {
	ledger := newMemoryLedger()
	stops := newMemoryStops()
	extractor := &stoppingExtractor{
		scriptedExtractor: newScriptedExtractor(map[string][]string{
			"https://acme.com/about": {"sales@acme.com"},
		}),
		stops:  stops,
		jobID:  "fixed-job",
		stepID: DefaultStepID,
	}
	coordinator := testCoordinator(stubDiscoverer{urls: []string{
		"https://acme.com/contact",
		"https://acme.com/about",
	}}, extractor, ledger, stops)
	writer := results.NewWriter(filepath.Join(t.TempDir(), "results.json"))
	manager := NewJobManager(coordinator, ledger, stops, writer, &memoryLeads{})

	job, found, err := manager.RunJob(context.Background(), &JobOptions{SeedURL: "acme.com", JobID: "fixed-job", Concurrency: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"sales@acme.com"}, found)

	record, err := ledger.GetProgress(context.Background(), job.ID, job.StepID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusStopped, record.Status)

	// The signal is consumed once the outcome is recorded, so a re-run of
	// the same job starts clean.
	assert.False(t, stops.IsCancelled(context.Background(), job.ID, job.StepID))
}

func TestStartJob(t *testing.T) {
	extractor := newScriptedExtractor(map[string][]string{
		"https://acme.com/contact": {"sales@acme.com"},
	})
	manager, ledger, _, _, _ := newTestManager(t, extractor, []string{"https://acme.com/contact"})

	job, err := manager.StartJob(context.Background(), &JobOptions{SeedURL: "acme.com"})
	require.NoError(t, err)

	// The ledger row exists immediately after submission.
	record, err := manager.JobProgress(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Eventually(t, func() bool {
		record, err := ledger.GetProgress(context.Background(), job.ID, job.StepID)
		return err == nil && record != nil && record.Status == db.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStopJob(t *testing.T) {
	t.Run("unknown_job", func(t *testing.T) {
		manager, _, _, _, _ := newTestManager(t, newScriptedExtractor(nil), nil)
		assert.Error(t, manager.StopJob(context.Background(), "no-such-job"))
	})

	t.Run("known_job_sets_signal", func(t *testing.T) {
		manager, ledger, stops, _, _ := newTestManager(t, newScriptedExtractor(nil), nil)

		status := db.StatusRunning
		require.NoError(t, ledger.UpsertProgress(context.Background(), "job-1", DefaultStepID, db.ProgressUpdate{Status: &status}))

		require.NoError(t, manager.StopJob(context.Background(), "job-1"))
		assert.True(t, stops.IsCancelled(context.Background(), "job-1", DefaultStepID))
	})
}
