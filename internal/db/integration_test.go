//go:build integration

package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxleyhq/forager/internal/testutil"
)

func connectTestDB(t *testing.T) *DB {
	t.Helper()

	testutil.LoadTestEnv(t)
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := New(&Config{DatabaseURL: databaseURL})
	require.NoError(t, err)
	require.NotNil(t, db)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestHealth_Integration(t *testing.T) {
	db := connectTestDB(t)
	assert.NoError(t, db.Health(context.Background()))
}

func TestProgressRoundTrip_Integration(t *testing.T) {
	db := connectTestDB(t)
	ctx := context.Background()

	jobID := "integration-job"
	stepID := "email_scrape"
	t.Cleanup(func() { _ = db.DeleteProgress(ctx, jobID, stepID) })

	running := StatusRunning
	row := 3
	total := 10
	require.NoError(t, db.UpsertProgress(ctx, jobID, stepID, ProgressUpdate{
		Status:     &running,
		CurrentRow: &row,
		TotalRows:  &total,
	}))

	record, err := db.GetProgress(ctx, jobID, stepID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, StatusRunning, record.Status)
	assert.Equal(t, 3, record.CurrentRow)
	assert.Equal(t, 10, record.TotalRows)

	// A stale checkpoint must not move the row counter backwards.
	stale := 1
	require.NoError(t, db.UpsertProgress(ctx, jobID, stepID, ProgressUpdate{CurrentRow: &stale}))

	record, err = db.GetProgress(ctx, jobID, stepID)
	require.NoError(t, err)
	assert.Equal(t, 3, record.CurrentRow)
}
