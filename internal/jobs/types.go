package jobs

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/oxleyhq/forager/internal/util"
)

// DefaultStepID identifies the email scraping step in the progress ledger.
const DefaultStepID = "email_scrape"

// Default job limits
const (
	DefaultMaxPages    = 10
	DefaultConcurrency = 5
)

// Job represents a single-site email discovery run
type Job struct {
	ID          string `json:"id"`
	StepID      string `json:"step_id"`
	SeedURL     string `json:"seed_url"`
	MaxPages    int    `json:"max_pages"`
	Concurrency int    `json:"concurrency"`
}

// JobOptions defines parameters for creating a new job
type JobOptions struct {
	SeedURL     string `json:"seed_url"`
	MaxPages    int    `json:"max_pages"`
	Concurrency int    `json:"concurrency"`
	JobID       string `json:"job_id"`
	StepID      string `json:"step_id"`
}

// NewJob validates options and builds a Job with defaults applied. The seed
// URL is normalised to its scheme://host base; social and marketplace
// domains are rejected.
func NewJob(options *JobOptions) (*Job, error) {
	if options == nil {
		return nil, fmt.Errorf("job options are required")
	}

	seedURL, err := util.SeedURL(options.SeedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid job options: %w", err)
	}

	job := &Job{
		ID:          options.JobID,
		StepID:      options.StepID,
		SeedURL:     seedURL,
		MaxPages:    options.MaxPages,
		Concurrency: options.Concurrency,
	}
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.StepID == "" {
		job.StepID = DefaultStepID
	}
	if job.MaxPages <= 0 {
		job.MaxPages = DefaultMaxPages
	}
	if job.Concurrency <= 0 {
		job.Concurrency = DefaultConcurrency
	}

	return job, nil
}
