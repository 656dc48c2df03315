package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	t.Run("defaults_applied", func(t *testing.T) {
		job, err := NewJob(&JobOptions{SeedURL: "acme.com"})
		require.NoError(t, err)

		assert.NotEmpty(t, job.ID)
		assert.Equal(t, DefaultStepID, job.StepID)
		assert.Equal(t, "https://acme.com", job.SeedURL)
		assert.Equal(t, DefaultMaxPages, job.MaxPages)
		assert.Equal(t, DefaultConcurrency, job.Concurrency)
	})

	t.Run("explicit_options_kept", func(t *testing.T) {
		job, err := NewJob(&JobOptions{
			SeedURL:     "https://acme.com/some/page",
			MaxPages:    3,
			Concurrency: 2,
			JobID:       "job-1",
			StepID:      "custom_step",
		})
		require.NoError(t, err)

		assert.Equal(t, "job-1", job.ID)
		assert.Equal(t, "custom_step", job.StepID)
		assert.Equal(t, "https://acme.com", job.SeedURL)
		assert.Equal(t, 3, job.MaxPages)
		assert.Equal(t, 2, job.Concurrency)
	})

	t.Run("nil_options_rejected", func(t *testing.T) {
		_, err := NewJob(nil)
		assert.Error(t, err)
	})

	t.Run("non_business_domain_rejected", func(t *testing.T) {
		_, err := NewJob(&JobOptions{SeedURL: "https://www.instagram.com/acme"})
		assert.Error(t, err)
	})

	t.Run("empty_seed_rejected", func(t *testing.T) {
		_, err := NewJob(&JobOptions{SeedURL: "  "})
		assert.Error(t, err)
	})
}

func TestCrawlState(t *testing.T) {
	t.Run("claim_once_per_url", func(t *testing.T) {
		state := newCrawlState(10)
		assert.True(t, state.tryClaim("https://acme.com/a"))
		assert.False(t, state.tryClaim("https://acme.com/a"))
		assert.True(t, state.tryClaim("https://acme.com/b"))
	})

	t.Run("budget_enforced", func(t *testing.T) {
		state := newCrawlState(2)
		assert.True(t, state.tryClaim("https://acme.com/a"))
		assert.True(t, state.tryClaim("https://acme.com/b"))
		assert.False(t, state.tryClaim("https://acme.com/c"))
	})

	t.Run("record_dedupes_exact_strings", func(t *testing.T) {
		state := newCrawlState(10)
		newEmails, completed := state.record([]string{"sales@acme.com", "info@acme.com"})
		assert.Equal(t, []string{"sales@acme.com", "info@acme.com"}, newEmails)
		assert.Equal(t, 1, completed)

		newEmails, completed = state.record([]string{"sales@acme.com", "Sales@Acme.com", "other@acme.com"})
		assert.Equal(t, []string{"Sales@Acme.com", "other@acme.com"}, newEmails)
		assert.Equal(t, 2, completed)

		assert.Equal(t, []string{"sales@acme.com", "info@acme.com", "Sales@Acme.com", "other@acme.com"}, state.snapshot())
	})
}
