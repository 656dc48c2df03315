package crawler

import (
	"bufio"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// SitemapsFromRobots fetches robots.txt through the browser and returns the
// sitemap URLs it declares, in file order, deduplicated.
//
// Because the file is fetched through a rendered browser tab, the response is
// usually wrapped in an HTML shell (Chrome shows plain text inside a pre
// element). The wrapper is stripped before parsing.
func SitemapsFromRobots(ctx context.Context, fetcher PageFetcher, baseURL string) ([]string, error) {
	robotsURL := strings.TrimSuffix(baseURL, "/") + "/robots.txt"

	if err := fetcher.Navigate(ctx, robotsURL); err != nil {
		log.Debug().Err(err).Str("url", robotsURL).Msg("Failed to fetch robots.txt")
		return nil, err
	}

	content, err := fetcher.Content(ctx)
	if err != nil {
		log.Debug().Err(err).Str("url", robotsURL).Msg("Failed to read robots.txt content")
		return nil, err
	}

	sitemaps := parseRobotsSitemaps(stripHTMLShell(content))
	log.Debug().
		Str("url", robotsURL).
		Int("count", len(sitemaps)).
		Msg("Parsed sitemap declarations from robots.txt")
	return sitemaps, nil
}

// stripHTMLShell returns the plain text of content when it looks like a
// rendered HTML document, otherwise content unchanged.
func stripHTMLShell(content string) string {
	trimmed := strings.TrimSpace(content)
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "<!doctype") && !strings.HasPrefix(lower, "<html") && !strings.HasPrefix(lower, "<body") {
		return content
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}
	return doc.Find("body").Text()
}

// parseRobotsSitemaps extracts Sitemap: directives. Directives are matched
// case-insensitively; values must be absolute http(s) URLs and must not
// contain markup characters, which show up when a robots.txt is actually an
// HTML error page.
func parseRobotsSitemaps(content string) []string {
	var sitemaps []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if !strings.HasPrefix(strings.ToLower(line), "sitemap:") {
			continue
		}

		value := strings.TrimSpace(line[len("sitemap:"):])
		if !isValidSitemapURL(value) {
			log.Debug().Str("value", value).Msg("Skipping invalid sitemap declaration")
			continue
		}
		if seen[value] {
			continue
		}
		seen[value] = true
		sitemaps = append(sitemaps, value)
	}

	return sitemaps
}

func isValidSitemapURL(value string) bool {
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		return false
	}
	return !strings.ContainsAny(value, `<>'"`)
}
