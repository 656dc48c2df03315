package results

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRead(t *testing.T) {
	writer := NewWriter(filepath.Join(t.TempDir(), "results.json"))

	require.NoError(t, writer.Append(Record{JobID: "job-1", Input: "https://acme.com", Emails: []string{"sales@acme.com"}}))
	require.NoError(t, writer.Append(Record{JobID: "job-2", Input: "https://globex.com", Emails: nil}))

	records, err := writer.Read()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "job-1", records[0].JobID)
	assert.Equal(t, []string{"sales@acme.com"}, records[0].Emails)
	assert.Equal(t, "https://globex.com", records[1].Input)
}

func TestReadMissingFile(t *testing.T) {
	writer := NewWriter(filepath.Join(t.TempDir(), "results.json"))

	records, err := writer.Read()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestConcurrentAppends(t *testing.T) {
	writer := NewWriter(filepath.Join(t.TempDir(), "results.json"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, writer.Append(Record{JobID: "job", Input: "https://acme.com"}))
		}()
	}
	wg.Wait()

	records, err := writer.Read()
	require.NoError(t, err)
	assert.Len(t, records, 10)
}
