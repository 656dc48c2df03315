package jobs

import (
	"sync"
)

// crawlState is the shared state of one running job. All workers of the job
// go through the same mutex; claim and record are the only writers, and both
// are quick map operations so the lock is never held across a page fetch.
type crawlState struct {
	mu        sync.Mutex
	maxPages  int
	visited   map[string]bool
	claimed   int
	completed int
	seen      map[string]bool
	emails    []string
}

func newCrawlState(maxPages int) *crawlState {
	return &crawlState{
		maxPages: maxPages,
		visited:  make(map[string]bool),
		seen:     make(map[string]bool),
	}
}

// tryClaim atomically reserves url for the calling worker. It fails when the
// URL was already claimed or the page budget is spent, so no URL is ever
// visited twice and no more than maxPages visits start.
func (s *crawlState) tryClaim(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.visited[url] || s.claimed >= s.maxPages {
		return false
	}
	s.visited[url] = true
	s.claimed++
	return true
}

// record merges the emails found on one page and marks the visit complete.
// It returns the addresses that were new to the job and the number of
// completed visits so far, which the caller checkpoints outside the lock.
func (s *crawlState) record(found []string) (newEmails []string, completed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, addr := range found {
		if s.seen[addr] {
			continue
		}
		s.seen[addr] = true
		s.emails = append(s.emails, addr)
		newEmails = append(newEmails, addr)
	}
	s.completed++
	return newEmails, s.completed
}

// snapshot returns a copy of the emails collected so far.
func (s *crawlState) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	emails := make([]string, len(s.emails))
	copy(emails, s.emails)
	return emails
}

func (s *crawlState) completedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}
