package crawler

import (
	"sort"
	"strings"

	"github.com/oxleyhq/forager/internal/util"
)

// RankConfig tunes how page URLs are ordered before visiting.
type RankConfig struct {
	// Keywords are path fragments that mark a page as likely to carry
	// contact details. Each match adds KeywordWeight to the score.
	Keywords []string
	// KeywordWeight is the score added per matched keyword.
	KeywordWeight int
	// LengthBase and LengthDivisor give shorter URLs a small bonus:
	// max(0, LengthBase - len(url)) / LengthDivisor.
	LengthBase    int
	LengthDivisor int
}

// DefaultRankConfig returns the standard contact-page ranking.
func DefaultRankConfig() *RankConfig {
	return &RankConfig{
		Keywords: []string{
			"/contact",
			"/contact-us",
			"/contactus",
			"/contacts",
			"/whoweare",
			"/who-we-are",
			"/who_we_are",
			"/aboutus",
			"/about",
			"/about-us",
			"/about_us",
		},
		KeywordWeight: 10,
		LengthBase:    100,
		LengthDivisor: 10,
	}
}

// Score rates how promising a URL is as a source of contact details.
func (c *RankConfig) Score(url string) int {
	lower := strings.ToLower(url)
	score := 0
	for _, keyword := range c.Keywords {
		if strings.Contains(lower, keyword) {
			score += c.KeywordWeight
		}
	}
	if diff := c.LengthBase - len(url); diff > 0 {
		score += diff / c.LengthDivisor
	}
	return score
}

// RankURLs filters urls to the site identified by baseDomain and orders them
// most-promising first. The www prefix is ignored when comparing domains.
// Duplicates keep their first occurrence; ties in score are broken by URL
// length ascending, then by original position.
func RankURLs(urls []string, baseDomain string, config *RankConfig) []string {
	if config == nil {
		config = DefaultRankConfig()
	}
	baseDomain = strings.TrimPrefix(strings.ToLower(baseDomain), "www.")

	type candidate struct {
		url   string
		score int
		pos   int
	}

	seen := make(map[string]bool)
	var candidates []candidate
	for i, u := range urls {
		if util.BaseDomain(u) != baseDomain {
			continue
		}
		if seen[u] {
			continue
		}
		seen[u] = true
		candidates = append(candidates, candidate{url: u, score: config.Score(u), pos: i})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if len(a.url) != len(b.url) {
			return len(a.url) < len(b.url)
		}
		return a.pos < b.pos
	})

	ranked := make([]string, len(candidates))
	for i, c := range candidates {
		ranked[i] = c.url
	}
	return ranked
}
