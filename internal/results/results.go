// Package results appends crawl outcomes to a JSON results file, one array
// of records per file, so a batch run leaves a single reviewable artefact.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Record is one crawled site's outcome.
type Record struct {
	JobID  string   `json:"job_id"`
	Input  string   `json:"input"`
	Emails []string `json:"emails"`
}

// Writer serialises appends to a single results file.
type Writer struct {
	mu   sync.Mutex
	path string
}

// NewWriter creates a Writer targeting path. The file is created on first
// append.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path returns the results file path.
func (w *Writer) Path() string {
	return w.path
}

// Append adds a record to the results file, creating it as a one-element
// array when absent.
func (w *Writer) Append(record Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var records []Record
	data, err := os.ReadFile(w.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("results file %s is not a valid JSON array: %w", w.path, err)
		}
	case os.IsNotExist(err):
		// First append creates the file.
	default:
		return fmt.Errorf("failed to read results file: %w", err)
	}

	records = append(records, record)

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(w.path, out, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}

// Read returns every record in the results file, or an empty slice when the
// file does not exist yet.
func (w *Writer) Read() ([]Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := os.ReadFile(w.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("results file %s is not a valid JSON array: %w", w.path, err)
	}
	return records, nil
}
